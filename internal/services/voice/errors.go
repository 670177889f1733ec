package voice

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyScript indicates the submitted text was empty or whitespace-only
	ErrEmptyScript = errors.New("script text is empty")
	// ErrProfileMissing indicates the user has no voice profile yet
	ErrProfileMissing = errors.New("voice profile missing")
	// ErrInsufficientExamples indicates the user has fewer examples than the extraction minimum
	ErrInsufficientExamples = errors.New("not enough voice examples for analysis")
	// ErrAnalysisInProgress indicates an extraction for this user is already in flight
	ErrAnalysisInProgress = errors.New("voice analysis already in progress")
	// ErrSessionNotFound indicates the referenced polish session does not exist for this user
	ErrSessionNotFound = errors.New("polish session not found")
	// ErrInvalidSessionState indicates the session exists but is not in the state the operation requires
	ErrInvalidSessionState = errors.New("polish session not in expected state")
	// ErrExampleNotFound indicates the referenced voice example does not exist for this user
	ErrExampleNotFound = errors.New("voice example not found")
	// ErrSuperseded indicates a newer polish attempt was started before this one completed;
	// the result has been discarded and must not be shown as the active draft
	ErrSuperseded = errors.New("polish attempt superseded by a newer one")
)

// UpstreamError wraps a failure or timeout from an external AI call. The core
// does not distinguish transient from permanent causes and never retries; the
// caller decides whether to re-invoke.
type UpstreamError struct {
	Op    string
	Cause error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s failed: %v", e.Op, e.Cause)
}

func (e *UpstreamError) Unwrap() error {
	return e.Cause
}
