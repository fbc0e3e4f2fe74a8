package sdk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/halcyon-qm/sdk/directory"
	"github.com/halcyon-qm/sdk/finding"
	"github.com/halcyon-qm/sdk/lifecycle"
	"github.com/halcyon-qm/sdk/sequence"
	"github.com/halcyon-qm/sdk/store"
)

// Error kinds categorize errors by their type.
const (
	// KindValidation represents bad input: the caller's fault, no retry.
	KindValidation = "validation"

	// KindNotFound represents an id or reference that does not resolve.
	KindNotFound = "not_found"

	// KindConflict represents a state conflict, such as verifying an
	// already-verified finding.
	KindConflict = "conflict"

	// KindTimeout represents operations that exceeded the caller's deadline.
	KindTimeout = "timeout"

	// KindStoreUnavailable represents transient store failures, retryable by
	// the caller.
	KindStoreUnavailable = "store_unavailable"

	// KindSequenceExhausted represents a counter that could not be allocated
	// within the retry budget. Fatal for that creation attempt.
	KindSequenceExhausted = "sequence_exhausted"

	// KindInternal represents internal errors.
	KindInternal = "internal"
)

// Error is a structured error that wraps underlying errors with the operation
// that failed and the category of failure.
//
// Error implements the error interface and supports error unwrapping, making
// it compatible with errors.Is() and errors.As().
type Error struct {
	// Op is the operation that failed (e.g., "Engine.CreateFinding").
	Op string

	// Kind categorizes the error (e.g., KindNotFound, KindValidation).
	Kind string

	// Err is the underlying error that caused this error.
	Err error

	// Context provides additional context about the error (optional).
	Context map[string]any
}

// Error implements the error interface, returning a formatted message that
// includes the operation, kind, and underlying error.
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("halcyon: %s: %s", e.Op, e.Kind)
	}

	if len(e.Context) > 0 {
		return fmt.Sprintf("halcyon: %s (%s): %v [context: %+v]", e.Op, e.Kind, e.Err, e.Context)
	}

	return fmt.Sprintf("halcyon: %s (%s): %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying error, allowing errors.Is() and errors.As()
// to work correctly with wrapped errors.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is implements error matching, allowing comparison against another *Error by
// Kind (and Op, when set on the target) or against the underlying error.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}

	if t, ok := target.(*Error); ok {
		if t.Kind != "" && e.Kind == t.Kind {
			if t.Op == "" || e.Op == t.Op {
				return true
			}
		}
	}

	return errors.Is(e.Err, target)
}

// WithContext returns a copy of the error with the provided context added.
func (e *Error) WithContext(ctx map[string]any) *Error {
	newErr := *e
	if newErr.Context == nil {
		newErr.Context = make(map[string]any)
	}
	for k, v := range ctx {
		newErr.Context[k] = v
	}
	return &newErr
}

// wrapError classifies an error from the lifecycle layers into the Engine's
// error taxonomy. Returns nil for nil input.
func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}

	kind := KindInternal
	switch {
	case errors.Is(err, lifecycle.ErrValidation):
		kind = KindValidation
	case errors.Is(err, store.ErrNotFound), errors.Is(err, directory.ErrAuditNotFound):
		kind = KindNotFound
	case errors.Is(err, finding.ErrAlreadyVerified), errors.Is(err, finding.ErrPhaseRegression):
		kind = KindConflict
	case errors.Is(err, sequence.ErrExhausted):
		kind = KindSequenceExhausted
	case errors.Is(err, context.DeadlineExceeded):
		kind = KindTimeout
	case errors.Is(err, store.ErrUnavailable):
		kind = KindStoreUnavailable
	}

	return &Error{Op: op, Kind: kind, Err: err}
}

// CloseWithLog closes the resource, logging a failure at warning level
// instead of returning it. Used on construction error paths where a close
// error must not mask the error that caused the teardown. A nil closer is a
// no-op.
func CloseWithLog(closer io.Closer, logger *slog.Logger, name string) {
	if closer == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := closer.Close(); err != nil {
		logger.Warn("close failed", "resource", name, "error", err)
	}
}
