package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	mnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tnoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/halcyon-qm/sdk/directory"
	"github.com/halcyon-qm/sdk/finding"
	"github.com/halcyon-qm/sdk/sequence"
)

// ErrValidation is returned when an operation's input fails validation.
// The caller's fault; not retryable.
var ErrValidation = errors.New("lifecycle: validation failed")

// DefaultPrefix is the sequence prefix for finding numbers.
const DefaultPrefix = "HAL"

// CreateInput carries the caller-supplied fields for a new finding.
type CreateInput struct {
	Source          finding.Source
	SourceID        string
	SourceName      string
	SourceReference string
	FindingType     string
	Severity        finding.Severity
	Category        string
	ProcessID       string
	RiskLevel       string
	Priority        string

	Title             string
	Description       string
	Evidence          string
	EvidenceDocuments []finding.DocRef
	Consequence       string
	ImpactAssessment  string

	IdentifiedDate   time.Time
	ReportedBy       string
	IdentifiedByName string
}

// Service is the finding lifecycle state machine.
//
// Every operation takes the acting user's id explicitly; there is no ambient
// current-user state. Operations wrap lower-layer errors with operation
// context and never swallow them. The single deliberate downgrade is the
// cross-aggregate counter sync after an audit-sourced creation or deletion:
// the finding is the source of truth, counter sync is eventually consistent
// and recoverable, so its failure is logged rather than rolled back.
type Service struct {
	repo    finding.Repository
	seq     *sequence.Generator
	audits  directory.AuditDirectory
	actions directory.ActionDirectory

	prefix string
	logger *slog.Logger
	tracer trace.Tracer
	now    func() time.Time

	createdCounter metric.Int64Counter
	closedCounter  metric.Int64Counter
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithTracer sets an OpenTelemetry tracer for the lifecycle operations.
func WithTracer(tracer trace.Tracer) ServiceOption {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// WithMeter sets an OpenTelemetry meter for the lifecycle counters.
func WithMeter(meter metric.Meter) ServiceOption {
	return func(s *Service) {
		s.createdCounter, _ = meter.Int64Counter("halcyon.findings.created")
		s.closedCounter, _ = meter.Int64Counter("halcyon.findings.closed")
	}
}

// WithPrefix overrides the finding number prefix.
func WithPrefix(prefix string) ServiceOption {
	return func(s *Service) {
		s.prefix = prefix
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates the lifecycle service.
func NewService(repo finding.Repository, seq *sequence.Generator, audits directory.AuditDirectory, actions directory.ActionDirectory, opts ...ServiceOption) *Service {
	s := &Service{
		repo:    repo,
		seq:     seq,
		audits:  audits,
		actions: actions,
		prefix:  DefaultPrefix,
		logger:  slog.Default(),
		tracer:  tnoop.NewTracerProvider().Tracer("halcyon/lifecycle"),
		now:     time.Now,
	}
	WithMeter(mnoop.NewMeterProvider().Meter("halcyon/lifecycle"))(s)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create records a new finding: validates the input, extends the source
// audit's traceability chain when present, allocates the finding number, and
// persists the record.
//
// An audit source that cannot be resolved degrades gracefully: the finding is
// still created with a single-element chain. After an audit-sourced creation
// the source audit's findings counters are resynced; a failure there is
// logged and does not roll back the creation.
func (s *Service) Create(ctx context.Context, input CreateInput, actorID string) (*finding.Finding, error) {
	ctx, span := s.tracer.Start(ctx, "lifecycle.Create")
	defer span.End()

	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	f := finding.New(input.Title, input.Description, input.Evidence, input.Source, input.Severity, input.Category, actorID)
	f.SourceID = input.SourceID
	f.SourceName = input.SourceName
	f.SourceReference = input.SourceReference
	f.FindingType = input.FindingType
	f.ProcessID = input.ProcessID
	f.RiskLevel = input.RiskLevel
	f.Priority = input.Priority
	f.EvidenceDocuments = input.EvidenceDocuments
	f.Consequence = input.Consequence
	f.ImpactAssessment = input.ImpactAssessment
	f.ReportedBy = input.ReportedBy
	f.IdentifiedByName = input.IdentifiedByName
	if !input.IdentifiedDate.IsZero() {
		f.IdentifiedDate = input.IdentifiedDate
	}

	parentChain, err := s.resolveParentChain(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("create finding: %w", err)
	}

	number, err := s.seq.Next(ctx, s.prefix, s.now().Year())
	if err != nil {
		return nil, fmt.Errorf("create finding: %w", err)
	}
	if err := f.AssignNumber(number, parentChain); err != nil {
		return nil, fmt.Errorf("create finding: %w", err)
	}
	span.SetAttributes(attribute.String("finding.number", number))

	created, err := s.repo.Create(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("create finding %s: %w", number, err)
	}
	s.createdCounter.Add(ctx, 1)

	if created.Source == finding.SourceAudit && created.SourceID != "" {
		s.resyncAuditCounters(ctx, created.SourceID)
	}

	s.logger.Info("finding created",
		"id", created.ID,
		"number", created.FindingNumber,
		"source", created.Source,
		"actor", actorID)
	return created, nil
}

// Get returns the active finding with the given id.
func (s *Service) Get(ctx context.Context, id string) (*finding.Finding, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns active findings matching the filter.
func (s *Service) List(ctx context.Context, filter finding.Filter) ([]*finding.Finding, error) {
	return s.repo.List(ctx, filter)
}

// AnalyzeRootCause records the root cause analysis, moving the finding into
// the treatment phase with status in_analysis. Re-running with a new analysis
// overwrites the previous one; no history is retained here.
func (s *Service) AnalyzeRootCause(ctx context.Context, id, analysis, actorID string) (*finding.Finding, error) {
	ctx, span := s.tracer.Start(ctx, "lifecycle.AnalyzeRootCause")
	defer span.End()

	if analysis == "" {
		return nil, fmt.Errorf("%w: analysis is required", ErrValidation)
	}

	f, err := s.repo.Update(ctx, id, func(f *finding.Finding) error {
		return f.SetRootCause(analysis, actorID)
	})
	if err != nil {
		return nil, fmt.Errorf("analyze root cause of finding %s: %w", id, err)
	}
	return f, nil
}

// SetRequiresAction records whether corrective/preventive action is needed.
// Requiring action moves the status to action_planned; withdrawing the
// requirement leaves the status untouched — closure still needs Verify.
func (s *Service) SetRequiresAction(ctx context.Context, id string, requires bool, actorID string) (*finding.Finding, error) {
	ctx, span := s.tracer.Start(ctx, "lifecycle.SetRequiresAction")
	defer span.End()

	f, err := s.repo.Update(ctx, id, func(f *finding.Finding) error {
		f.SetRequiresAction(requires, actorID)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("set requires-action on finding %s: %w", id, err)
	}
	return f, nil
}

// AddImmediateCorrection attaches a containment description. Valid in any
// phase; status and phase are unaffected.
func (s *Service) AddImmediateCorrection(ctx context.Context, id, correction, actorID string) (*finding.Finding, error) {
	ctx, span := s.tracer.Start(ctx, "lifecycle.AddImmediateCorrection")
	defer span.End()

	if correction == "" {
		return nil, fmt.Errorf("%w: correction is required", ErrValidation)
	}

	f, err := s.repo.Update(ctx, id, func(f *finding.Finding) error {
		f.SetImmediateCorrection(correction, actorID)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("add immediate correction to finding %s: %w", id, err)
	}
	return f, nil
}

// UpdatePhase moves the finding to the given phase. This is the low-level
// escape hatch the named transitions use; external callers should prefer
// those. Backward movement is rejected with finding.ErrPhaseRegression.
func (s *Service) UpdatePhase(ctx context.Context, id string, phase finding.Phase, actorID string) (*finding.Finding, error) {
	ctx, span := s.tracer.Start(ctx, "lifecycle.UpdatePhase")
	defer span.End()

	f, err := s.repo.Update(ctx, id, func(f *finding.Finding) error {
		return f.AdvancePhase(phase, actorID)
	})
	if err != nil {
		return nil, fmt.Errorf("update phase of finding %s: %w", id, err)
	}
	return f, nil
}

// Verify records the control-phase verification and closes the finding. The
// only operation that can produce status closed. Verifying an already
// verified finding returns finding.ErrAlreadyVerified and changes nothing.
func (s *Service) Verify(ctx context.Context, id string, v finding.Verification, actorID string) (*finding.Finding, error) {
	ctx, span := s.tracer.Start(ctx, "lifecycle.Verify")
	defer span.End()

	if v.VerifiedBy == "" {
		return nil, fmt.Errorf("%w: verifiedBy is required", ErrValidation)
	}

	f, err := s.repo.Update(ctx, id, func(f *finding.Finding) error {
		return f.MarkVerified(v, actorID, s.now())
	})
	if err != nil {
		return nil, fmt.Errorf("verify finding %s: %w", id, err)
	}
	s.closedCounter.Add(ctx, 1)

	if f.Source == finding.SourceAudit && f.SourceID != "" {
		s.resyncAuditCounters(ctx, f.SourceID)
	}
	return f, nil
}

// Delete soft-deletes the finding. Linked actions are independently owned and
// are not cascaded.
func (s *Service) Delete(ctx context.Context, id, actorID string) error {
	ctx, span := s.tracer.Start(ctx, "lifecycle.Delete")
	defer span.End()

	f, err := s.repo.Update(ctx, id, func(f *finding.Finding) error {
		f.SoftDelete(actorID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete finding %s: %w", id, err)
	}

	if f.Source == finding.SourceAudit && f.SourceID != "" {
		s.resyncAuditCounters(ctx, f.SourceID)
	}
	return nil
}

// resolveParentChain fetches the source audit's traceability chain. A missing
// audit degrades to an empty parent chain rather than failing the creation;
// transient store failures still propagate.
func (s *Service) resolveParentChain(ctx context.Context, input CreateInput) ([]string, error) {
	if input.Source != finding.SourceAudit || input.SourceID == "" {
		return nil, nil
	}

	chain, err := s.audits.TraceabilityChain(ctx, input.SourceID)
	if err != nil {
		if errors.Is(err, directory.ErrAuditNotFound) {
			s.logger.Warn("source audit not found, creating finding with single-element chain",
				"auditId", input.SourceID)
			return nil, nil
		}
		return nil, fmt.Errorf("resolve audit chain %s: %w", input.SourceID, err)
	}
	return chain, nil
}

// resyncAuditCounters asks the source audit to recompute its findings
// counters. Failures are logged, not propagated: the finding is already the
// source of truth and the counters converge on the next sync.
func (s *Service) resyncAuditCounters(ctx context.Context, auditID string) {
	if err := s.audits.RecomputeFindingsCounters(ctx, auditID); err != nil {
		s.logger.Warn("failed to resync audit findings counters",
			"auditId", auditID,
			"error", err)
	}
}

func validateCreateInput(input CreateInput) error {
	if input.Title == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if input.Description == "" {
		return fmt.Errorf("%w: description is required", ErrValidation)
	}
	if input.Evidence == "" {
		return fmt.Errorf("%w: evidence is required", ErrValidation)
	}
	if input.Category == "" {
		return fmt.Errorf("%w: category is required", ErrValidation)
	}
	if !input.Source.IsValid() {
		return fmt.Errorf("%w: invalid source %q", ErrValidation, input.Source)
	}
	if !input.Severity.IsValid() {
		return fmt.Errorf("%w: invalid severity %q", ErrValidation, input.Severity)
	}
	return nil
}
