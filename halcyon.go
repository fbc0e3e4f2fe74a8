package sdk

import (
	"context"
	"io"
	"log/slog"
	"time"

	mnoop "go.opentelemetry.io/otel/metric/noop"
	tnoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/halcyon-qm/sdk/finding"
	"github.com/halcyon-qm/sdk/lifecycle"
	"github.com/halcyon-qm/sdk/sequence"
	"github.com/halcyon-qm/sdk/store"
)

// Engine is the assembled quality-management finding engine: the document
// store, number generator, lifecycle service, counter synchronizer, and
// recurrence analyzer wired together behind one facade.
//
// Every error returned by an Engine method is an *Error carrying the failed
// operation and a kind the caller can branch on.
type Engine struct {
	st       store.Store
	svc      *lifecycle.Service
	counters *lifecycle.CounterSynchronizer
	analyzer *lifecycle.Analyzer

	logger  *slog.Logger
	closers []io.Closer
}

// NewEngine builds an Engine from configuration.
//
// The store backend connects eagerly; a store that cannot be reached fails
// construction rather than the first operation.
func NewEngine(opts ...EngineOption) (*Engine, error) {
	o := &engineOptions{
		config: DefaultConfig(),
		logger: slog.Default(),
		tracer: tnoop.NewTracerProvider().Tracer("halcyon"),
		meter:  mnoop.NewMeterProvider().Meter("halcyon"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}

	if err := o.config.Validate(); err != nil {
		return nil, &Error{Op: "NewEngine", Kind: KindValidation, Err: err}
	}

	st, err := store.NewRedisStore(store.RedisOptions{
		URL:            o.config.Store.RedisURL,
		ConnectTimeout: o.config.Store.GetConnectTimeout(),
		ReadTimeout:    o.config.Store.GetReadTimeout(),
		WriteTimeout:   o.config.Store.GetWriteTimeout(),
	})
	if err != nil {
		return nil, &Error{Op: "NewEngine", Kind: KindStoreUnavailable, Err: err}
	}

	return newEngine(st, o, []io.Closer{st})
}

// NewEngineWithStore builds an Engine on an existing store. The caller keeps
// ownership of the store; Shutdown will not close it.
func NewEngineWithStore(st store.Store, opts ...EngineOption) (*Engine, error) {
	o := &engineOptions{
		config: DefaultConfig(),
		logger: slog.Default(),
		tracer: tnoop.NewTracerProvider().Tracer("halcyon"),
		meter:  mnoop.NewMeterProvider().Meter("halcyon"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}

	if err := o.config.Validate(); err != nil {
		return nil, &Error{Op: "NewEngineWithStore", Kind: KindValidation, Err: err}
	}
	return newEngine(st, o, nil)
}

func newEngine(st store.Store, o *engineOptions, closers []io.Closer) (*Engine, error) {
	alloc, closer, err := buildAllocator(st, o.config.Sequence)
	if err != nil {
		closeAll(closers, o.logger)
		return nil, &Error{Op: "NewEngine", Kind: KindStoreUnavailable, Err: err}
	}
	if closer != nil {
		closers = append(closers, closer)
	}

	gen := sequence.NewGenerator(alloc,
		sequence.WithMaxRetries(o.config.Sequence.MaxRetries),
		sequence.WithBackoff(o.config.Sequence.GetBackoff()))

	repo := store.NewFindingRepository(st)
	audits := store.NewAuditAdapter(st)
	actions := store.NewActionAdapter(st)

	svc := lifecycle.NewService(repo, gen, audits, actions,
		lifecycle.WithPrefix(o.config.Sequence.Prefix),
		lifecycle.WithLogger(o.logger),
		lifecycle.WithTracer(o.tracer),
		lifecycle.WithMeter(o.meter),
		lifecycle.WithClock(o.now))

	analyzer, err := lifecycle.NewAnalyzer(repo, o.config.Recurrence.MatchExpression,
		lifecycle.WithWindow(o.config.Recurrence.GetWindow()),
		lifecycle.WithLimit(o.config.Recurrence.Limit),
		lifecycle.WithAnalyzerLogger(o.logger),
		lifecycle.WithAnalyzerClock(o.now))
	if err != nil {
		closeAll(closers, o.logger)
		return nil, &Error{Op: "NewEngine", Kind: KindValidation, Err: err}
	}

	return &Engine{
		st:       st,
		svc:      svc,
		counters: lifecycle.NewCounterSynchronizer(repo, actions, o.logger),
		analyzer: analyzer,
		logger:   o.logger,
		closers:  closers,
	}, nil
}

// closeAll tears down engine-owned resources when construction fails partway.
func closeAll(closers []io.Closer, logger *slog.Logger) {
	for i := len(closers) - 1; i >= 0; i-- {
		CloseWithLog(closers[i], logger, "engine resource")
	}
}

func buildAllocator(st store.Store, cfg SequenceConfig) (sequence.Allocator, io.Closer, error) {
	if cfg.Backend == SequenceBackendEtcd {
		alloc, err := sequence.NewEtcdAllocator(sequence.EtcdConfig{
			Endpoints: cfg.EtcdEndpoints,
			Namespace: cfg.EtcdNamespace,
		})
		if err != nil {
			return nil, nil, err
		}
		return alloc, alloc, nil
	}
	return sequence.NewStoreAllocator(st), nil, nil
}

// CreateFinding records a new finding and returns it with its allocated
// number and traceability chain.
func (e *Engine) CreateFinding(ctx context.Context, input lifecycle.CreateInput, actorID string) (*finding.Finding, error) {
	f, err := e.svc.Create(ctx, input, actorID)
	if err != nil {
		return nil, wrapError("Engine.CreateFinding", err)
	}
	return f, nil
}

// GetFinding returns the active finding with the given id.
func (e *Engine) GetFinding(ctx context.Context, id string) (*finding.Finding, error) {
	f, err := e.svc.Get(ctx, id)
	if err != nil {
		return nil, wrapError("Engine.GetFinding", err)
	}
	return f, nil
}

// ListFindings returns active findings matching the filter.
func (e *Engine) ListFindings(ctx context.Context, filter finding.Filter) ([]*finding.Finding, error) {
	fs, err := e.svc.List(ctx, filter)
	if err != nil {
		return nil, wrapError("Engine.ListFindings", err)
	}
	return fs, nil
}

// AnalyzeRootCause records the root cause analysis and moves the finding into
// the treatment phase.
func (e *Engine) AnalyzeRootCause(ctx context.Context, id, analysis, actorID string) (*finding.Finding, error) {
	f, err := e.svc.AnalyzeRootCause(ctx, id, analysis, actorID)
	if err != nil {
		return nil, wrapError("Engine.AnalyzeRootCause", err)
	}
	return f, nil
}

// SetRequiresAction records whether corrective or preventive action is needed.
func (e *Engine) SetRequiresAction(ctx context.Context, id string, requires bool, actorID string) (*finding.Finding, error) {
	f, err := e.svc.SetRequiresAction(ctx, id, requires, actorID)
	if err != nil {
		return nil, wrapError("Engine.SetRequiresAction", err)
	}
	return f, nil
}

// AddImmediateCorrection attaches a containment description to the finding.
func (e *Engine) AddImmediateCorrection(ctx context.Context, id, correction, actorID string) (*finding.Finding, error) {
	f, err := e.svc.AddImmediateCorrection(ctx, id, correction, actorID)
	if err != nil {
		return nil, wrapError("Engine.AddImmediateCorrection", err)
	}
	return f, nil
}

// UpdatePhase moves the finding forward to the given phase.
func (e *Engine) UpdatePhase(ctx context.Context, id string, phase finding.Phase, actorID string) (*finding.Finding, error) {
	f, err := e.svc.UpdatePhase(ctx, id, phase, actorID)
	if err != nil {
		return nil, wrapError("Engine.UpdatePhase", err)
	}
	return f, nil
}

// VerifyFinding records the control-phase verification and closes the finding.
func (e *Engine) VerifyFinding(ctx context.Context, id string, v finding.Verification, actorID string) (*finding.Finding, error) {
	f, err := e.svc.Verify(ctx, id, v, actorID)
	if err != nil {
		return nil, wrapError("Engine.VerifyFinding", err)
	}
	return f, nil
}

// DeleteFinding soft-deletes the finding.
func (e *Engine) DeleteFinding(ctx context.Context, id, actorID string) error {
	if err := e.svc.Delete(ctx, id, actorID); err != nil {
		return wrapError("Engine.DeleteFinding", err)
	}
	return nil
}

// SyncActionCounters re-derives the finding's action counters from the Action
// aggregate and persists them.
func (e *Engine) SyncActionCounters(ctx context.Context, findingID, actorID string) (*finding.Finding, error) {
	f, err := e.counters.SyncActionCounters(ctx, findingID, actorID)
	if err != nil {
		return nil, wrapError("Engine.SyncActionCounters", err)
	}
	return f, nil
}

// CheckRecurrence scans historical findings for recurrence of the same issue
// and writes the result onto the finding.
func (e *Engine) CheckRecurrence(ctx context.Context, findingID, actorID string) (*lifecycle.Recurrence, error) {
	r, err := e.analyzer.CheckRecurrence(ctx, findingID, actorID)
	if err != nil {
		return nil, wrapError("Engine.CheckRecurrence", err)
	}
	return r, nil
}

// Store exposes the underlying document store for adjacent subsystems.
func (e *Engine) Store() store.Store {
	return e.st
}

// Shutdown releases the engine's resources. Only resources the engine itself
// opened are closed; a store supplied via NewEngineWithStore is left alone.
func (e *Engine) Shutdown(ctx context.Context) error {
	done := make(chan error, 1)
	go func() {
		var firstErr error
		for i := len(e.closers) - 1; i >= 0; i-- {
			if err := e.closers[i].Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		done <- firstErr
	}()

	select {
	case err := <-done:
		if err != nil {
			return &Error{Op: "Engine.Shutdown", Kind: KindInternal, Err: err}
		}
		return nil
	case <-ctx.Done():
		return &Error{Op: "Engine.Shutdown", Kind: KindTimeout, Err: ctx.Err()}
	}
}
