package enums

import "strings"

// ProcessingState is the server-reported state of asynchronous media processing.
// The vocabulary is owned by the server; unknown values are kept verbatim.
type ProcessingState string

const (
	ProcessingStatePending    ProcessingState = "pending"
	ProcessingStateInProgress ProcessingState = "in_progress"
	ProcessingStateSucceeded  ProcessingState = "succeeded"
	ProcessingStateFailed     ProcessingState = "failed"
)

// String returns the literal string for the state.
func (s ProcessingState) String() string {
	return string(s)
}

// IsSucceeded reports whether processing finished successfully.
func (s ProcessingState) IsSucceeded() bool {
	return s == ProcessingStateSucceeded
}

// IsFailed reports whether the server gave up on the media.
func (s ProcessingState) IsFailed() bool {
	return s == ProcessingStateFailed
}

// ParseProcessingState normalizes raw server input. It never fails.
func ParseProcessingState(value string) ProcessingState {
	return ProcessingState(strings.ToLower(strings.TrimSpace(value)))
}
