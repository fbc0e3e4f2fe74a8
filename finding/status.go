package finding

import "fmt"

// Status represents the workflow state of a finding.
type Status string

const (
	// StatusOpen indicates a newly recorded finding awaiting analysis.
	StatusOpen Status = "open"

	// StatusInAnalysis indicates root cause analysis is underway.
	StatusInAnalysis Status = "in_analysis"

	// StatusActionPlanned indicates corrective or preventive actions
	// have been planned for the finding.
	StatusActionPlanned Status = "action_planned"

	// StatusClosed indicates the finding was verified and closed.
	// Only Finding.MarkVerified can produce this status.
	StatusClosed Status = "closed"
)

// IsValid returns true if the status is valid.
func (s Status) IsValid() bool {
	switch s {
	case StatusOpen, StatusInAnalysis, StatusActionPlanned, StatusClosed:
		return true
	default:
		return false
	}
}

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// DisplayName returns a human-readable display name for the status.
func (s Status) DisplayName() string {
	switch s {
	case StatusOpen:
		return "Open"
	case StatusInAnalysis:
		return "In Analysis"
	case StatusActionPlanned:
		return "Action Planned"
	case StatusClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// ParseStatus parses a string into a Status value.
// Returns an error if the string is not a valid status.
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid status: %s", s)
	}
	return status, nil
}

// Phase represents a stage of the non-conformance lifecycle.
// Phases are ordered and only ever move forward:
// detection -> treatment -> control.
type Phase string

const (
	// PhaseDetection is the initial phase: the issue has been recorded
	// but not yet analyzed.
	PhaseDetection Phase = "detection"

	// PhaseTreatment covers root cause analysis and action planning.
	PhaseTreatment Phase = "treatment"

	// PhaseControl covers verification of effectiveness and closure.
	PhaseControl Phase = "control"
)

// phaseOrder maps each phase to its position in the lifecycle.
var phaseOrder = map[Phase]int{
	PhaseDetection: 0,
	PhaseTreatment: 1,
	PhaseControl:   2,
}

// IsValid returns true if the phase is valid.
func (p Phase) IsValid() bool {
	_, ok := phaseOrder[p]
	return ok
}

// Ordinal returns the phase's position in the lifecycle (0-based).
// Returns -1 for invalid phases.
func (p Phase) Ordinal() int {
	if ord, ok := phaseOrder[p]; ok {
		return ord
	}
	return -1
}

// Before returns true if p comes strictly before other in the lifecycle.
func (p Phase) Before(other Phase) bool {
	return p.Ordinal() < other.Ordinal()
}

// String returns the string representation of the phase.
func (p Phase) String() string {
	return string(p)
}

// DisplayName returns a human-readable display name for the phase.
func (p Phase) DisplayName() string {
	switch p {
	case PhaseDetection:
		return "Detection"
	case PhaseTreatment:
		return "Treatment"
	case PhaseControl:
		return "Control"
	default:
		return "Unknown"
	}
}

// ParsePhase parses a string into a Phase value.
// Returns an error if the string is not a valid phase.
func ParsePhase(s string) (Phase, error) {
	phase := Phase(s)
	if !phase.IsValid() {
		return "", fmt.Errorf("invalid phase: %s", s)
	}
	return phase, nil
}
