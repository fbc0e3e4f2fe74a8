package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/cel-go/cel"

	"github.com/halcyon-qm/sdk/finding"
)

// DefaultMatchExpression is the recurrence matching policy: a historical
// finding recurs when it shares category and process with the target.
const DefaultMatchExpression = `candidate.category == target.category && candidate.processId == target.processId`

// DefaultRecurrenceWindow is the trailing window scanned for recurrence.
const DefaultRecurrenceWindow = 365 * 24 * time.Hour

// DefaultRecurrenceLimit caps the number of matches recorded on the finding.
// The scan itself is bounded by the window, not by this cap: capping the fetch
// would let newer non-matching candidates evict genuine matches.
const DefaultRecurrenceLimit = 50

// Recurrence is the result of a recurrence scan.
type Recurrence struct {
	// IsRecurrent reports whether any matching historical finding exists.
	IsRecurrent bool `json:"isRecurrent"`

	// RelatedFindingIDs lists the matching historical findings.
	RelatedFindingIDs []string `json:"relatedFindingIds"`

	// Count is the number of matches.
	Count int `json:"count"`
}

// Analyzer scans historical findings for recurrence of the same issue.
//
// The matching key is policy, not mechanism: it is a CEL expression over the
// `target` and `candidate` findings, defaulting to category + process. The
// trailing window and the result cap are configurable for the same reason.
// Scans run on demand, not on every write.
type Analyzer struct {
	repo    finding.Repository
	window  time.Duration
	limit   int
	program cel.Program
	logger  *slog.Logger
	now     func() time.Time
}

// AnalyzerOption configures an Analyzer.
type AnalyzerOption func(*Analyzer)

// WithWindow sets the trailing scan window.
func WithWindow(d time.Duration) AnalyzerOption {
	return func(a *Analyzer) {
		a.window = d
	}
}

// WithLimit caps the number of matches recorded on the finding.
func WithLimit(n int) AnalyzerOption {
	return func(a *Analyzer) {
		a.limit = n
	}
}

// WithAnalyzerLogger sets the structured logger.
func WithAnalyzerLogger(logger *slog.Logger) AnalyzerOption {
	return func(a *Analyzer) {
		a.logger = logger
	}
}

// WithAnalyzerClock overrides the time source, for tests.
func WithAnalyzerClock(now func() time.Time) AnalyzerOption {
	return func(a *Analyzer) {
		a.now = now
	}
}

// NewAnalyzer creates a recurrence analyzer with the given match expression.
// Pass an empty expression to use DefaultMatchExpression. The expression is
// compiled once here; a malformed expression fails construction, not scans.
func NewAnalyzer(repo finding.Repository, matchExpression string, opts ...AnalyzerOption) (*Analyzer, error) {
	if matchExpression == "" {
		matchExpression = DefaultMatchExpression
	}

	env, err := cel.NewEnv(
		cel.Variable("target", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("candidate", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build match environment: %w", err)
	}

	ast, issues := env.Compile(matchExpression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("invalid match expression: %w", issues.Err())
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to compile match expression: %w", err)
	}

	a := &Analyzer{
		repo:    repo,
		window:  DefaultRecurrenceWindow,
		limit:   DefaultRecurrenceLimit,
		program: program,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// CheckRecurrence scans active findings identified within the trailing window
// for matches against the target finding, excluding the target itself, and
// writes the result back onto the target. Returns the scan result.
func (a *Analyzer) CheckRecurrence(ctx context.Context, findingID, actorID string) (*Recurrence, error) {
	target, err := a.repo.GetByID(ctx, findingID)
	if err != nil {
		return nil, fmt.Errorf("check recurrence of finding %s: %w", findingID, err)
	}

	// Fetch every in-window candidate in the category and let the policy
	// decide. A fetch cap here would be applied before the policy runs, so
	// newer candidates from other processes could crowd out real matches.
	now := a.now()
	since := now.Add(-a.window)
	candidates, err := a.repo.ListByCategoryProcess(ctx, target.Category, "", since, now, 0)
	if err != nil {
		return nil, fmt.Errorf("check recurrence of finding %s: %w", findingID, err)
	}

	targetVars := matchVars(target)
	var matches []string
	for _, c := range candidates {
		if c.ID == target.ID {
			continue
		}
		ok, err := a.matches(targetVars, matchVars(c))
		if err != nil {
			a.logger.Warn("recurrence match evaluation failed",
				"findingId", findingID,
				"candidateId", c.ID,
				"error", err)
			continue
		}
		if ok {
			matches = append(matches, c.ID)
			if len(matches) >= a.limit {
				break
			}
		}
	}

	if _, err := a.repo.Update(ctx, findingID, func(f *finding.Finding) error {
		f.ApplyRecurrence(matches, actorID)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("check recurrence of finding %s: %w", findingID, err)
	}

	return &Recurrence{
		IsRecurrent:       len(matches) > 0,
		RelatedFindingIDs: matches,
		Count:             len(matches),
	}, nil
}

func (a *Analyzer) matches(target, candidate map[string]any) (bool, error) {
	out, _, err := a.program.Eval(map[string]any{
		"target":    target,
		"candidate": candidate,
	})
	if err != nil {
		return false, err
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("match expression returned %T, want bool", out.Value())
	}
	return result, nil
}

// matchVars exposes the fields the match policy may reference.
func matchVars(f *finding.Finding) map[string]any {
	return map[string]any{
		"id":          f.ID,
		"category":    f.Category,
		"processId":   f.ProcessID,
		"source":      string(f.Source),
		"severity":    string(f.Severity),
		"findingType": f.FindingType,
		"status":      string(f.Status),
	}
}
