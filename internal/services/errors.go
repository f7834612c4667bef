package services

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced to callers. Analysis-layer errors
// (AnalysisError) are absorbed by the engine and only logged.
var (
	// ErrUnsupportedLanguage is returned by normalization for a language
	// outside the supported set. Not retried.
	ErrUnsupportedLanguage = errors.New("unsupported language")

	// ErrConflict is returned when a state-machine transition is attempted
	// on an entity that already left the required state. The caller must
	// re-fetch current state; no retry is performed here.
	ErrConflict = errors.New("conflict: entity is not in the required state")

	// ErrNotFound is returned for operations referencing a nonexistent id.
	ErrNotFound = errors.New("not found")

	// ErrMaxAttempts is returned when a student exceeds the assignment's
	// submission attempt limit.
	ErrMaxAttempts = errors.New("maximum submission attempts reached")
)

// Analysis failure kinds. All of them trigger fallback to the rule-based
// strategy; none is ever fatal to the submission.
const (
	AnalysisFailTimeout = "timeout"
	AnalysisFailSchema  = "schema"
	AnalysisFailRemote  = "remote"
)

// AnalysisError wraps a remote-strategy failure with its kind so the engine
// can log what went wrong before falling back.
type AnalysisError struct {
	Kind string
	Err  error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analysis %s failure: %v", e.Kind, e.Err)
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

func newAnalysisError(kind string, err error) *AnalysisError {
	return &AnalysisError{Kind: kind, Err: err}
}
