package finding

import (
	"errors"
	"fmt"
	"time"
)

// Errors returned by Finding state transitions.
var (
	// ErrAlreadyVerified is returned when a verified finding is verified again.
	ErrAlreadyVerified = errors.New("finding: already verified")

	// ErrPhaseRegression is returned when a phase transition would move the
	// lifecycle backward. Phases only ever advance.
	ErrPhaseRegression = errors.New("finding: phase cannot move backward")
)

// DocRef points at a document in the document store that supports a finding
// as evidence.
type DocRef struct {
	// ID is the document's identifier in the store.
	ID string `json:"id"`

	// Name is the document's display name.
	Name string `json:"name"`

	// URL is an optional direct link to the document.
	URL string `json:"url,omitempty"`
}

// Verification captures the control-phase verification of a finding.
type Verification struct {
	// VerifiedBy identifies the person who verified effectiveness.
	VerifiedBy string `json:"verifiedBy"`

	// VerificationDate is when the verification took place.
	VerificationDate time.Time `json:"verificationDate"`

	// VerificationEvidence describes the objective evidence reviewed.
	VerificationEvidence string `json:"verificationEvidence"`

	// VerificationComments holds free-form verifier comments.
	VerificationComments string `json:"verificationComments,omitempty"`
}

// Finding is a recorded non-conformance, observation, or issue.
//
// A Finding owns its own fields exclusively and holds only back-references
// (ids) to the Audit and Action aggregates. The counter and recurrence fields
// are derived: they are recomputed from the source of truth, never edited by
// hand.
type Finding struct {
	// ID is the store-assigned identifier.
	ID string `json:"id"`

	// FindingNumber is the human-readable code (e.g. "HAL-2025-0007").
	// Assigned exactly once at creation; immutable afterwards.
	FindingNumber string `json:"findingNumber"`

	// Source identifies where the finding originated.
	Source Source `json:"source"`

	// SourceID is the id of the originating record (e.g. an audit id).
	SourceID string `json:"sourceId,omitempty"`

	// SourceName is the resolved display name of the originating record.
	SourceName string `json:"sourceName,omitempty"`

	// SourceReference is an optional external reference (e.g. a complaint number).
	SourceReference string `json:"sourceReference,omitempty"`

	// FindingType classifies the finding (non-conformance, observation, ...).
	FindingType string `json:"findingType"`

	// Severity grades how serious the finding is.
	Severity Severity `json:"severity"`

	// Category is the issue taxonomy bucket used for recurrence matching.
	Category string `json:"category"`

	// ProcessID identifies the affected process, used for recurrence matching.
	ProcessID string `json:"processId,omitempty"`

	// RiskLevel is the assessed risk grading.
	RiskLevel string `json:"riskLevel,omitempty"`

	// Priority is the treatment priority.
	Priority string `json:"priority,omitempty"`

	// Title is a brief summary of the finding.
	Title string `json:"title"`

	// Description provides detailed information about the finding.
	Description string `json:"description"`

	// Evidence describes the objective evidence the finding rests on.
	Evidence string `json:"evidence"`

	// EvidenceDocuments references supporting documents in the store.
	EvidenceDocuments []DocRef `json:"evidenceDocuments,omitempty"`

	// Consequence describes the observed or potential consequence.
	Consequence string `json:"consequence,omitempty"`

	// ImpactAssessment holds the assessed impact on product or process.
	ImpactAssessment string `json:"impactAssessment,omitempty"`

	// Status is the workflow state.
	Status Status `json:"status"`

	// CurrentPhase is the lifecycle phase. It only moves forward.
	CurrentPhase Phase `json:"currentPhase"`

	// RequiresAction records whether corrective/preventive action is needed.
	RequiresAction bool `json:"requiresAction"`

	// RootCauseAnalysis holds the treatment-phase analysis, once performed.
	RootCauseAnalysis string `json:"rootCauseAnalysis,omitempty"`

	// ImmediateCorrection describes any containment applied right away.
	ImmediateCorrection string `json:"immediateCorrection,omitempty"`

	// Verification holds the control-phase verification, once performed.
	Verification *Verification `json:"verification,omitempty"`

	// IsVerified reports whether the finding's treatment was verified.
	IsVerified bool `json:"isVerified"`

	// ActualCloseDate is when the finding was closed.
	ActualCloseDate *time.Time `json:"actualCloseDate,omitempty"`

	// ActionsCount is the number of active actions linked to this finding.
	// Derived; recomputed from the Action aggregate, never incremented ad hoc.
	ActionsCount int `json:"actionsCount"`

	// OpenActionsCount is the number of linked actions not yet completed.
	OpenActionsCount int `json:"openActionsCount"`

	// CompletedActionsCount is the number of linked actions completed.
	CompletedActionsCount int `json:"completedActionsCount"`

	// IsRecurrent reports whether similar findings exist in the trailing window.
	IsRecurrent bool `json:"isRecurrent"`

	// PreviousFindingIDs lists the ids of the matching historical findings.
	PreviousFindingIDs []string `json:"previousFindingIds,omitempty"`

	// RecurrenceCount is the number of matching historical findings.
	RecurrenceCount int `json:"recurrenceCount"`

	// TraceabilityChain is the ordered list of human-readable codes from the
	// ultimate origin down to this finding. The finding's own code is always
	// the last element.
	TraceabilityChain []string `json:"traceabilityChain"`

	// IdentifiedDate is when the issue was identified.
	IdentifiedDate time.Time `json:"identifiedDate"`

	// ReportedBy identifies who reported the issue.
	ReportedBy string `json:"reportedBy,omitempty"`

	// IdentifiedByName is the resolved display name of the reporter.
	IdentifiedByName string `json:"identifiedByName,omitempty"`

	// CreatedBy identifies the user who created the record.
	CreatedBy string `json:"createdBy"`

	// UpdatedBy identifies the user who last modified the record.
	UpdatedBy string `json:"updatedBy,omitempty"`

	// CreatedAt is the timestamp when the record was created.
	CreatedAt time.Time `json:"createdAt"`

	// UpdatedAt is the timestamp when the record was last updated.
	UpdatedAt time.Time `json:"updatedAt"`

	// IsActive is the soft-delete flag. Inactive findings are excluded from
	// every query and from counters; records are never physically removed.
	IsActive bool `json:"isActive"`
}

// New creates a Finding in its initial state (status open, phase detection)
// with required fields populated and timestamps set.
func New(title, description, evidence string, source Source, severity Severity, category, actorID string) *Finding {
	now := time.Now()
	return &Finding{
		Source:            source,
		Severity:          severity,
		Category:          category,
		Title:             title,
		Description:       description,
		Evidence:          evidence,
		Status:            StatusOpen,
		CurrentPhase:      PhaseDetection,
		IdentifiedDate:    now,
		CreatedBy:         actorID,
		CreatedAt:         now,
		UpdatedAt:         now,
		IsActive:          true,
		TraceabilityChain: nil,
	}
}

// Validate checks that the finding has all required fields, valid enum values,
// and internally consistent derived state.
func (f *Finding) Validate() error {
	if f.Title == "" {
		return fmt.Errorf("title is required")
	}
	if f.Description == "" {
		return fmt.Errorf("description is required")
	}
	if f.Evidence == "" {
		return fmt.Errorf("evidence is required")
	}
	if f.Category == "" {
		return fmt.Errorf("category is required")
	}
	if !f.Source.IsValid() {
		return fmt.Errorf("invalid source: %s", f.Source)
	}
	if !f.Severity.IsValid() {
		return fmt.Errorf("invalid severity: %s", f.Severity)
	}
	if !f.Status.IsValid() {
		return fmt.Errorf("invalid status: %s", f.Status)
	}
	if !f.CurrentPhase.IsValid() {
		return fmt.Errorf("invalid phase: %s", f.CurrentPhase)
	}
	if f.CreatedAt.IsZero() {
		return fmt.Errorf("createdAt timestamp is required")
	}
	if f.UpdatedAt.IsZero() {
		return fmt.Errorf("updatedAt timestamp is required")
	}
	if f.FindingNumber != "" {
		if len(f.TraceabilityChain) == 0 {
			return fmt.Errorf("traceability chain is required once a number is assigned")
		}
		if last := f.TraceabilityChain[len(f.TraceabilityChain)-1]; last != f.FindingNumber {
			return fmt.Errorf("traceability chain must end with the finding's own number, got %s", last)
		}
	}
	if f.ActionsCount != f.OpenActionsCount+f.CompletedActionsCount {
		return fmt.Errorf("action counters inconsistent: %d != %d + %d",
			f.ActionsCount, f.OpenActionsCount, f.CompletedActionsCount)
	}
	if f.Status == StatusClosed {
		if !f.IsVerified || f.ActualCloseDate == nil || f.CurrentPhase != PhaseControl {
			return fmt.Errorf("closed finding must be verified, in control phase, with a close date")
		}
	}
	return nil
}

// AssignNumber sets the finding number and traceability chain. The number is
// assigned exactly once; calling this on a numbered finding is an error.
func (f *Finding) AssignNumber(number string, parentChain []string) error {
	if f.FindingNumber != "" {
		return fmt.Errorf("finding number already assigned: %s", f.FindingNumber)
	}
	f.FindingNumber = number
	f.TraceabilityChain = ExtendChain(parentChain, number)
	return nil
}

// SetRootCause records the root cause analysis and moves the finding into the
// treatment phase. Re-running with a new analysis overwrites the previous one.
func (f *Finding) SetRootCause(analysis, actorID string) error {
	if err := f.AdvancePhase(PhaseTreatment, actorID); err != nil {
		return err
	}
	f.RootCauseAnalysis = analysis
	f.Status = StatusInAnalysis
	f.touch(actorID)
	return nil
}

// SetRequiresAction records whether corrective/preventive action is needed.
// Marking a finding as requiring action moves its status to action_planned;
// marking it as not requiring action leaves the status untouched, since
// closure always requires explicit verification.
func (f *Finding) SetRequiresAction(requires bool, actorID string) {
	f.RequiresAction = requires
	if requires {
		f.Status = StatusActionPlanned
	}
	f.touch(actorID)
}

// SetImmediateCorrection attaches a containment description. Valid in any
// phase; does not affect status or phase.
func (f *Finding) SetImmediateCorrection(correction, actorID string) {
	f.ImmediateCorrection = correction
	f.touch(actorID)
}

// AdvancePhase moves the finding to the given phase. Staying in the current
// phase is a no-op; moving backward returns ErrPhaseRegression and leaves the
// record untouched.
func (f *Finding) AdvancePhase(phase Phase, actorID string) error {
	if !phase.IsValid() {
		return fmt.Errorf("invalid phase: %s", phase)
	}
	if phase.Before(f.CurrentPhase) {
		return fmt.Errorf("%w: %s -> %s", ErrPhaseRegression, f.CurrentPhase, phase)
	}
	f.CurrentPhase = phase
	f.touch(actorID)
	return nil
}

// MarkVerified records the control-phase verification and closes the finding.
// This is the only path to StatusClosed. Returns ErrAlreadyVerified if the
// finding was verified before; no fields are modified in that case.
func (f *Finding) MarkVerified(v Verification, actorID string, now time.Time) error {
	if f.IsVerified {
		return ErrAlreadyVerified
	}
	if v.VerificationDate.IsZero() {
		v.VerificationDate = now
	}
	f.Verification = &v
	f.IsVerified = true
	f.Status = StatusClosed
	f.CurrentPhase = PhaseControl
	closeDate := now
	f.ActualCloseDate = &closeDate
	f.touch(actorID)
	return nil
}

// ApplyRecurrence records the result of a recurrence scan. An empty match set
// clears the recurrence markers.
func (f *Finding) ApplyRecurrence(previousIDs []string, actorID string) {
	f.IsRecurrent = len(previousIDs) > 0
	f.PreviousFindingIDs = previousIDs
	f.RecurrenceCount = len(previousIDs)
	f.touch(actorID)
}

// SetActionCounters writes back recomputed action counters.
func (f *Finding) SetActionCounters(total, open, completed int, actorID string) {
	f.ActionsCount = total
	f.OpenActionsCount = open
	f.CompletedActionsCount = completed
	f.touch(actorID)
}

// SoftDelete marks the finding inactive. The record is never physically
// removed; inactive findings are excluded from queries and counters.
func (f *Finding) SoftDelete(actorID string) {
	f.IsActive = false
	f.touch(actorID)
}

// touch stamps the record with the acting user and current time.
func (f *Finding) touch(actorID string) {
	f.UpdatedBy = actorID
	f.UpdatedAt = time.Now()
}
