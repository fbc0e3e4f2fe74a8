package sequence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/halcyon-qm/sdk/store"
)

// ErrExhausted is returned when a number could not be allocated within the
// retry budget. The caller must not fabricate a number; the creation attempt
// fails.
var ErrExhausted = errors.New("sequence: allocation exhausted")

// Allocator hands out the next integer in a named, year-scoped counter.
type Allocator interface {
	// Next atomically increments the counter for (prefix, year) and returns
	// the new value.
	Next(ctx context.Context, prefix string, year int) (int64, error)
}

// Generator renders allocated counter values as human-readable codes in the
// form "PREFIX-YYYY-NNNN". Transient allocator failures are retried with
// backoff up to a bounded budget.
type Generator struct {
	allocator  Allocator
	maxRetries int
	backoff    time.Duration
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithMaxRetries sets the number of retries after the first failed allocation.
func WithMaxRetries(n int) GeneratorOption {
	return func(g *Generator) {
		g.maxRetries = n
	}
}

// WithBackoff sets the delay between allocation retries.
func WithBackoff(d time.Duration) GeneratorOption {
	return func(g *Generator) {
		g.backoff = d
	}
}

// NewGenerator creates a Generator over the given allocator.
func NewGenerator(allocator Allocator, opts ...GeneratorOption) *Generator {
	g := &Generator{
		allocator:  allocator,
		maxRetries: 3,
		backoff:    50 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Next allocates the next number for (prefix, year) and formats it as a code,
// e.g. Next(ctx, "HAL", 2025) -> "HAL-2025-0007".
//
// Returns ErrExhausted (wrapping the last allocator error) if no number could
// be allocated within the retry budget.
func (g *Generator) Next(ctx context.Context, prefix string, year int) (string, error) {
	if prefix == "" {
		return "", fmt.Errorf("sequence prefix is required")
	}

	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %w", ErrExhausted, ctx.Err())
			case <-time.After(g.backoff):
			}
		}

		n, err := g.allocator.Next(ctx, prefix, year)
		if err == nil {
			return Format(prefix, year, n), nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("%w after %d attempts: %w", ErrExhausted, g.maxRetries+1, lastErr)
}

// Format renders a code as "PREFIX-YYYY-NNNN". The counter is zero-padded to
// four digits and widens naturally past 9999.
func Format(prefix string, year int, n int64) string {
	return fmt.Sprintf("%s-%d-%04d", prefix, year, n)
}

// CounterKey returns the store key for a (prefix, year) counter.
func CounterKey(prefix string, year int) string {
	return fmt.Sprintf("%s:%d", prefix, year)
}

// StoreAllocator allocates numbers through the document store's atomic
// counter primitive.
type StoreAllocator struct {
	store store.Store
}

// NewStoreAllocator creates an allocator over the given store.
func NewStoreAllocator(s store.Store) *StoreAllocator {
	return &StoreAllocator{store: s}
}

// Next atomically increments the (prefix, year) counter and returns the new value.
func (a *StoreAllocator) Next(ctx context.Context, prefix string, year int) (int64, error) {
	return a.store.AtomicIncrement(ctx, CounterKey(prefix, year))
}
