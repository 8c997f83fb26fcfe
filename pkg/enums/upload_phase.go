package enums

import "fmt"

// UploadPhase describes where an upload session sits in the INIT/APPEND/FINALIZE/STATUS lifecycle.
type UploadPhase string

const (
	// UploadPhaseResolved marks an attempt whose file was inspected but whose session is not open yet.
	UploadPhaseResolved   UploadPhase = "resolved"
	UploadPhaseInitiated  UploadPhase = "initiated"
	UploadPhaseAppended   UploadPhase = "appended"
	UploadPhaseFinalized  UploadPhase = "finalized"
	UploadPhaseProcessing UploadPhase = "processing"
	UploadPhaseSucceeded  UploadPhase = "succeeded"
	UploadPhaseFailed     UploadPhase = "failed"
)

var validUploadPhases = []UploadPhase{
	UploadPhaseResolved,
	UploadPhaseInitiated,
	UploadPhaseAppended,
	UploadPhaseFinalized,
	UploadPhaseProcessing,
	UploadPhaseSucceeded,
	UploadPhaseFailed,
}

// allowedUploadTransitions lists the phases reachable from each phase.
var allowedUploadTransitions = map[UploadPhase][]UploadPhase{
	UploadPhaseResolved:   {UploadPhaseInitiated, UploadPhaseFailed},
	UploadPhaseInitiated:  {UploadPhaseAppended, UploadPhaseFailed},
	UploadPhaseAppended:   {UploadPhaseFinalized, UploadPhaseFailed},
	UploadPhaseFinalized:  {UploadPhaseProcessing, UploadPhaseSucceeded, UploadPhaseFailed},
	UploadPhaseProcessing: {UploadPhaseProcessing, UploadPhaseSucceeded, UploadPhaseFailed},
}

// String returns the literal string for the phase.
func (p UploadPhase) String() string {
	return string(p)
}

// IsValid reports whether the phase is known.
func (p UploadPhase) IsValid() bool {
	for _, candidate := range validUploadPhases {
		if candidate == p {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (p UploadPhase) IsTerminal() bool {
	return p == UploadPhaseSucceeded || p == UploadPhaseFailed
}

// CanTransitionTo reports whether moving from p to next is allowed.
func (p UploadPhase) CanTransitionTo(next UploadPhase) bool {
	for _, candidate := range allowedUploadTransitions[p] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ParseUploadPhase converts raw input into an UploadPhase.
func ParseUploadPhase(value string) (UploadPhase, error) {
	for _, candidate := range validUploadPhases {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid upload phase %q", value)
}
