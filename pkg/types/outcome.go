package types

import (
	"fmt"
	"time"
)

// Outcome is the terminal state of a single file in an indexing run
type Outcome string

const (
	OutcomeCreated    Outcome = "created"
	OutcomeUpdated    Outcome = "updated"
	OutcomeNotFound   Outcome = "not found"
	OutcomeUnreadable Outcome = "unreadable"
	OutcomeStoreError Outcome = "store error"
	OutcomeCancelled  Outcome = "cancelled"
)

// AllOutcomes lists every outcome in reporting order
var AllOutcomes = []Outcome{
	OutcomeCreated,
	OutcomeUpdated,
	OutcomeNotFound,
	OutcomeUnreadable,
	OutcomeStoreError,
	OutcomeCancelled,
}

// IsError reports whether the outcome counts as a failed file
func (o Outcome) IsError() bool {
	switch o {
	case OutcomeCreated, OutcomeUpdated:
		return false
	default:
		return true
	}
}

// Validate checks that the outcome is one of the known values
func (o Outcome) Validate() error {
	for _, known := range AllOutcomes {
		if o == known {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownOutcome, string(o))
}

// FileResult is what a worker reports back for one file
type FileResult struct {
	Path     string
	Outcome  Outcome
	Err      error // Nil for successful outcomes
	Duration time.Duration
}

// Reason returns a human readable description of the outcome
func (r FileResult) Reason() string {
	if r.Err == nil {
		return string(r.Outcome)
	}
	return fmt.Sprintf("%s: %v", r.Outcome, r.Err)
}

// Validate checks if the file result is valid
func (r FileResult) Validate() error {
	if r.Path == "" {
		return ErrEmptyPath
	}
	return r.Outcome.Validate()
}
