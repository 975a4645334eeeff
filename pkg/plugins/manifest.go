package plugins

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ManifestFile is the descriptor file name looked up inside a plugin directory
const ManifestFile = "plugin.yaml"

var (
	idRegex      = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)
	versionRegex = regexp.MustCompile(`^v?\d+(\.\d+)*([-+][a-zA-Z0-9.-]+)?$`)
)

// LoadDescriptor loads and parses a plugin descriptor from a file
func LoadDescriptor(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read descriptor: %w", err)
	}

	var desc Descriptor
	if err := yaml.Unmarshal(data, &desc); err != nil {
		return nil, fmt.Errorf("failed to parse descriptor: %w", err)
	}

	return &desc, nil
}

// LoadDescriptorFromDir loads the plugin.yaml of a plugin directory and
// resolves its relative code roots against that directory
func LoadDescriptorFromDir(dir string) (*Descriptor, error) {
	desc, err := LoadDescriptor(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, err
	}

	desc.Path = dir
	desc.CodeRoots = resolveCodeRoots(dir, desc.CodeRoots)
	return desc, nil
}

// SaveDescriptor writes a descriptor to a file
func SaveDescriptor(desc *Descriptor, path string) error {
	data, err := yaml.Marshal(desc)
	if err != nil {
		return fmt.Errorf("failed to marshal descriptor: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write descriptor: %w", err)
	}

	return nil
}

// resolveCodeRoots makes relative roots absolute against dir. Without
// declared roots the conventional "classes" and "lib" directories are used
// when present.
func resolveCodeRoots(dir string, roots []string) []string {
	if len(roots) == 0 {
		for _, name := range []string{"classes", "lib"} {
			candidate := filepath.Join(dir, name)
			if info, err := os.Stat(candidate); err == nil && info.IsDir() {
				roots = append(roots, candidate)
			}
		}
		return roots
	}

	resolved := make([]string, 0, len(roots))
	for _, root := range roots {
		if !filepath.IsAbs(root) {
			root = filepath.Join(dir, root)
		}
		resolved = append(resolved, root)
	}
	return resolved
}

// ValidateDescriptor performs basic validation on a descriptor. The resolver
// does not reject descriptors on these findings; they are reported by the
// validate command.
func ValidateDescriptor(desc *Descriptor) []ValidationError {
	var errors []ValidationError

	if desc.ID == "" {
		errors = append(errors, ValidationError{
			Field:    "id",
			Message:  "Plugin ID is required",
			Severity: "error",
		})
	} else if !idRegex.MatchString(desc.ID) {
		errors = append(errors, ValidationError{
			Field:    "id",
			Message:  fmt.Sprintf("Invalid plugin ID: %s", desc.ID),
			Severity: "error",
		})
	}

	if desc.Name == "" {
		errors = append(errors, ValidationError{
			Field:    "name",
			Message:  "Plugin name is recommended",
			Severity: "warning",
		})
	}

	if desc.Version != "" && !versionRegex.MatchString(desc.Version) {
		errors = append(errors, ValidationError{
			Field:    "version",
			Message:  fmt.Sprintf("Invalid version format: %s", desc.Version),
			Severity: "warning",
		})
	}

	// Non-numeric bounds are accepted by the resolver but silently ignored
	bounds := [][2]string{{"since_build", desc.SinceBuild}, {"until_build", desc.UntilBuild}}
	for _, b := range bounds {
		field, bound := b[0], b[1]
		if bound == "" {
			continue
		}
		if _, err := strconv.Atoi(strings.TrimSpace(bound)); err != nil {
			errors = append(errors, ValidationError{
				Field:    field,
				Message:  fmt.Sprintf("Build bound %q is not numeric and will not be enforced", bound),
				Severity: "warning",
			})
		}
	}

	seen := make(map[string]bool)
	for _, dep := range append(append([]string(nil), desc.Depends...), desc.OptionalDepends...) {
		if dep == desc.ID && dep != "" {
			errors = append(errors, ValidationError{
				Field:    "depends",
				Message:  "Plugin depends on itself",
				Severity: "error",
			})
		}
		if seen[dep] {
			errors = append(errors, ValidationError{
				Field:    "depends",
				Message:  fmt.Sprintf("Dependency declared twice: %s", dep),
				Severity: "warning",
			})
		}
		seen[dep] = true
	}

	return errors
}

// NormalizeDescriptor repairs the findings that have a mechanical fix:
// whitespace around the id and dependency ids, empty entries, self
// dependencies, and ids declared twice (an optional dependency that is also
// required is dropped from optional_depends). It returns one line per change.
func NormalizeDescriptor(desc *Descriptor) []string {
	var changes []string

	if id := strings.TrimSpace(desc.ID); id != desc.ID {
		desc.ID = id
		changes = append(changes, fmt.Sprintf("id: trimmed to %q", id))
	}

	seen := make(map[string]bool)
	clean := func(field string, deps []string) []string {
		if deps == nil {
			return nil
		}
		out := make([]string, 0, len(deps))
		for _, dep := range deps {
			id := strings.TrimSpace(dep)
			switch {
			case id == "":
				changes = append(changes, fmt.Sprintf("%s: removed empty entry", field))
			case id == desc.ID:
				changes = append(changes, fmt.Sprintf("%s: removed self dependency", field))
			case seen[id]:
				changes = append(changes, fmt.Sprintf("%s: removed duplicate %s", field, id))
			default:
				if id != dep {
					changes = append(changes, fmt.Sprintf("%s: trimmed %q", field, dep))
				}
				seen[id] = true
				out = append(out, id)
			}
		}
		return out
	}
	desc.Depends = clean("depends", desc.Depends)
	desc.OptionalDepends = clean("optional_depends", desc.OptionalDepends)

	return changes
}

// HasErrors reports whether any finding has error severity
func HasErrors(findings []ValidationError) bool {
	for _, f := range findings {
		if f.Severity == "error" {
			return true
		}
	}
	return false
}
