package finding

import "fmt"

// Source identifies where a finding originated.
type Source string

const (
	// SourceAudit indicates the finding was raised during an audit.
	SourceAudit Source = "audit"

	// SourceInternal indicates the finding was reported internally,
	// outside any audit (e.g. a process owner's own observation).
	SourceInternal Source = "internal"

	// SourceCustomerComplaint indicates the finding came from a customer complaint.
	SourceCustomerComplaint Source = "customer_complaint"

	// SourceOther covers origins that fit none of the above.
	SourceOther Source = "other"
)

// IsValid returns true if the source is valid.
func (s Source) IsValid() bool {
	switch s {
	case SourceAudit, SourceInternal, SourceCustomerComplaint, SourceOther:
		return true
	default:
		return false
	}
}

// String returns the string representation of the source.
func (s Source) String() string {
	return string(s)
}

// DisplayName returns a human-readable display name for the source.
func (s Source) DisplayName() string {
	switch s {
	case SourceAudit:
		return "Audit"
	case SourceInternal:
		return "Internal Report"
	case SourceCustomerComplaint:
		return "Customer Complaint"
	case SourceOther:
		return "Other"
	default:
		return "Unknown"
	}
}

// ParseSource parses a string into a Source value.
// Returns an error if the string is not a valid source.
func ParseSource(s string) (Source, error) {
	source := Source(s)
	if !source.IsValid() {
		return "", fmt.Errorf("invalid source: %s", s)
	}
	return source, nil
}
