package finding

import "fmt"

// Severity grades how serious a non-conformance is.
type Severity string

const (
	// SeverityCritical indicates a systemic failure requiring immediate containment.
	// Examples: shipped product out of specification, regulatory breach
	SeverityCritical Severity = "critical"

	// SeverityMajor indicates a significant failure of the quality system.
	// Examples: a required process step skipped, missing mandatory records
	SeverityMajor Severity = "major"

	// SeverityMinor indicates an isolated lapse with limited impact.
	// Examples: a single incomplete record, a late review
	SeverityMinor Severity = "minor"

	// SeverityObservation indicates an improvement opportunity, not a non-conformance.
	SeverityObservation Severity = "observation"
)

// severityWeights maps severity levels to numeric weights for prioritization.
// Higher weights indicate more severe findings.
var severityWeights = map[Severity]float64{
	SeverityCritical:    10.0,
	SeverityMajor:       7.5,
	SeverityMinor:       5.0,
	SeverityObservation: 1.0,
}

// IsValid returns true if the severity level is valid.
func (s Severity) IsValid() bool {
	_, ok := severityWeights[s]
	return ok
}

// Weight returns the numeric weight associated with the severity level.
// Returns 0.0 for invalid severity levels.
func (s Severity) Weight() float64 {
	if weight, ok := severityWeights[s]; ok {
		return weight
	}
	return 0.0
}

// String returns the string representation of the severity.
func (s Severity) String() string {
	return string(s)
}

// DisplayName returns a human-readable display name for the severity.
func (s Severity) DisplayName() string {
	switch s {
	case SeverityCritical:
		return "Critical"
	case SeverityMajor:
		return "Major"
	case SeverityMinor:
		return "Minor"
	case SeverityObservation:
		return "Observation"
	default:
		return "Unknown"
	}
}

// ParseSeverity parses a string into a Severity value.
// Returns an error if the string is not a valid severity level.
func ParseSeverity(s string) (Severity, error) {
	severity := Severity(s)
	if !severity.IsValid() {
		return "", fmt.Errorf("invalid severity: %s", s)
	}
	return severity, nil
}

// CompareSeverity compares two severity levels.
// Returns:
//   - negative if s1 < s2
//   - zero if s1 == s2
//   - positive if s1 > s2
func CompareSeverity(s1, s2 Severity) int {
	w1 := s1.Weight()
	w2 := s2.Weight()
	switch {
	case w1 < w2:
		return -1
	case w1 > w2:
		return 1
	default:
		return 0
	}
}
