package plugins

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned when a status change would move a record backwards
var ErrInvalidTransition = errors.New("invalid plugin status transition")

// Status is the lifecycle state of a plugin record during one resolution pass
type Status int

const (
	StatusDiscovered Status = iota
	StatusDisabledDuplicate
	StatusDisabledMissingID
	StatusDisabledByUser
	StatusDisabledSelection
	StatusIncompatible
	StatusCandidate
	StatusDisabledCascade
	StatusOrdered
	StatusLoaderBound
	StatusLoaderFailed
	StatusActive
)

var statusNames = map[Status]string{
	StatusDiscovered:        "discovered",
	StatusDisabledDuplicate: "disabled-duplicate",
	StatusDisabledMissingID: "disabled-missing-id",
	StatusDisabledByUser:    "disabled-by-user",
	StatusDisabledSelection: "disabled-selection",
	StatusIncompatible:      "incompatible",
	StatusCandidate:         "candidate",
	StatusDisabledCascade:   "disabled-cascade",
	StatusOrdered:           "ordered",
	StatusLoaderBound:       "loader-bound",
	StatusLoaderFailed:      "loader-failed",
	StatusActive:            "active",
}

// transitions lists every legal forward move; anything absent is rejected
var transitions = map[Status][]Status{
	StatusDiscovered: {
		StatusDisabledDuplicate,
		StatusDisabledMissingID,
		StatusDisabledByUser,
		StatusDisabledSelection,
		StatusIncompatible,
		StatusCandidate,
	},
	StatusCandidate:   {StatusDisabledCascade, StatusOrdered},
	StatusOrdered:     {StatusLoaderBound, StatusLoaderFailed},
	StatusLoaderBound: {StatusActive},
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown"
}

// MarshalText renders the status name in JSON and YAML output
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a status name written by MarshalText
func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseStatus returns the status with the given name
func ParseStatus(name string) (Status, error) {
	for status, n := range statusNames {
		if n == name {
			return status, nil
		}
	}
	return StatusDiscovered, fmt.Errorf("unknown plugin status %q", name)
}

// Terminal reports whether no further transition is possible
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// Failed reports whether the status excludes the plugin from the active set
func (s Status) Failed() bool {
	return s.Terminal() && s != StatusActive
}

// CanTransition reports whether moving from s to next is a legal forward move
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Statuses returns every known status in declaration order
func Statuses() []Status {
	out := make([]Status, 0, len(statusNames))
	for s := StatusDiscovered; s <= StatusActive; s++ {
		out = append(out, s)
	}
	return out
}

func transitionError(id string, from, to Status) error {
	return fmt.Errorf("plugin %q: %s -> %s: %w", id, from, to, ErrInvalidTransition)
}
