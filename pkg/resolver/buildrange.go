package resolver

import (
	"strconv"
	"strings"
)

// ParseBuild extracts the numeric baseline of a build identifier. It accepts
// plain numbers ("150"), dotted builds ("150.2034") and a product prefix
// ("IC-150.2034"); only the leading component counts.
func ParseBuild(build string) (int, bool) {
	s := strings.TrimSpace(build)
	if i := strings.LastIndex(s, "-"); i >= 0 {
		s = s[i+1:]
	}
	if i := strings.Index(s, "."); i >= 0 {
		s = s[:i]
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// parseBound parses a declared build bound. Bounds are plain integers; any
// other text means the bound is not checked.
func parseBound(bound string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(bound))
	if err != nil {
		return 0, false
	}
	return n, true
}

// BuildRangeResult describes why a build falls outside a plugin's range
type BuildRangeResult struct {
	Compatible bool
	TooOld     bool // current build precedes since
	TooNew     bool // current build follows until
}

// CheckBuildRange tests the current build against an inclusive since/until
// range. A bound that is absent or not an integer is treated as satisfied,
// and so is everything when the current build itself is not numeric.
func CheckBuildRange(build, since, until string) BuildRangeResult {
	current, ok := ParseBuild(build)
	if !ok {
		return BuildRangeResult{Compatible: true}
	}

	if lo, ok := parseBound(since); ok && current < lo {
		return BuildRangeResult{TooOld: true}
	}
	if hi, ok := parseBound(until); ok && current > hi {
		return BuildRangeResult{TooNew: true}
	}

	return BuildRangeResult{Compatible: true}
}
