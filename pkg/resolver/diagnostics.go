package resolver

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Severity of a problem
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Problem is one non-fatal condition found while resolving plugins
type Problem struct {
	Kind     error  `json:"-"`
	PluginID string `json:"plugin_id,omitempty"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

func (p *Problem) Error() string {
	return p.Message
}

func (p *Problem) Unwrap() error {
	return p.Kind
}

// KindName returns the text of the problem's kind, used as a metric label
func (p *Problem) KindName() string {
	if p.Kind == nil {
		return "unknown"
	}
	return p.Kind.Error()
}

// Diagnostics aggregates problems across all pipeline stages. It is safe for
// concurrent use.
type Diagnostics struct {
	mu         sync.Mutex
	problems   []*Problem
	missingIDs int
}

// NewDiagnostics creates an empty collector
func NewDiagnostics() *Diagnostics {
	return &Diagnostics{}
}

// Add records an error-severity problem
func (d *Diagnostics) Add(kind error, pluginID, format string, args ...interface{}) {
	d.add(kind, pluginID, SeverityError, fmt.Sprintf(format, args...))
}

// Warn records a warning-severity problem
func (d *Diagnostics) Warn(kind error, pluginID, format string, args ...interface{}) {
	d.add(kind, pluginID, SeverityWarning, fmt.Sprintf(format, args...))
}

func (d *Diagnostics) add(kind error, pluginID, severity, message string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.problems = append(d.problems, &Problem{
		Kind:     kind,
		PluginID: pluginID,
		Message:  message,
		Severity: severity,
	})
}

// AddMissingID counts one descriptor without id; the count is summarized once
func (d *Diagnostics) AddMissingID() {
	d.mu.Lock()
	d.missingIDs++
	d.mu.Unlock()
}

// Problems returns every problem in the order found, followed by the
// missing-id summary if any descriptor lacked an id
func (d *Diagnostics) Problems() []*Problem {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]*Problem, 0, len(d.problems)+1)
	out = append(out, d.problems...)
	if d.missingIDs > 0 {
		noun := "descriptors"
		if d.missingIDs == 1 {
			noun = "descriptor"
		}
		out = append(out, &Problem{
			Kind:     ErrMissingID,
			Message:  fmt.Sprintf("%d plugin %s without id were skipped", d.missingIDs, noun),
			Severity: SeverityError,
		})
	}
	return out
}

// Len returns the number of problems including the missing-id summary
func (d *Diagnostics) Len() int {
	return len(d.Problems())
}

// Count returns the number of problems of the given kind
func (d *Diagnostics) Count(kind error) int {
	n := 0
	for _, p := range d.Problems() {
		if errors.Is(p, kind) {
			n++
		}
	}
	return n
}

// String renders the aggregated diagnostic text, one problem per line
func (d *Diagnostics) String() string {
	problems := d.Problems()
	lines := make([]string, 0, len(problems))
	for _, p := range problems {
		lines = append(lines, p.Message)
	}
	return strings.Join(lines, "\n")
}

// Err returns the problems joined as one error, or nil when there are none
func (d *Diagnostics) Err() error {
	problems := d.Problems()
	if len(problems) == 0 {
		return nil
	}
	errs := make([]error, 0, len(problems))
	for _, p := range problems {
		errs = append(errs, p)
	}
	return errors.Join(errs...)
}
