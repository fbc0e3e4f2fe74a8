package finding

import (
	"context"
	"time"
)

// Repository provides persistence for Finding records.
//
// All read methods exclude soft-deleted findings. Implementations wrap
// store-layer failures with operation context rather than swallowing them.
type Repository interface {
	// Create persists a new finding and returns it with its store-assigned id.
	Create(ctx context.Context, f *Finding) (*Finding, error)

	// GetByID returns the active finding with the given id.
	// Returns a not-found error if the id does not resolve to an active finding.
	GetByID(ctx context.Context, id string) (*Finding, error)

	// Update applies mutate to the active finding with the given id and
	// persists the result. The mutation runs against the freshly loaded record.
	Update(ctx context.Context, id string, mutate func(*Finding) error) (*Finding, error)

	// ListBySource returns active findings originating from the given source record.
	ListBySource(ctx context.Context, source Source, sourceID string) ([]*Finding, error)

	// ListByCategoryProcess returns up to limit active findings sharing the
	// given category and process whose identified date falls in [since, until).
	ListByCategoryProcess(ctx context.Context, category, processID string, since, until time.Time, limit int) ([]*Finding, error)

	// List returns active findings matching the filter.
	List(ctx context.Context, filter Filter) ([]*Finding, error)
}

// Filter selects findings for list screens. Zero-valued fields match everything.
type Filter struct {
	// Status filters by workflow state.
	Status Status

	// Phase filters by lifecycle phase.
	Phase Phase

	// Source filters by origin.
	Source Source

	// Severity filters by severity grade.
	Severity Severity

	// Category filters by taxonomy bucket.
	Category string

	// ProcessID filters by affected process.
	ProcessID string

	// IdentifiedAfter keeps findings identified at or after this time.
	IdentifiedAfter time.Time

	// Limit caps the number of results. Zero means no cap.
	Limit int
}

// Matches reports whether the finding satisfies every set filter field.
func (fl Filter) Matches(f *Finding) bool {
	if fl.Status != "" && f.Status != fl.Status {
		return false
	}
	if fl.Phase != "" && f.CurrentPhase != fl.Phase {
		return false
	}
	if fl.Source != "" && f.Source != fl.Source {
		return false
	}
	if fl.Severity != "" && f.Severity != fl.Severity {
		return false
	}
	if fl.Category != "" && f.Category != fl.Category {
		return false
	}
	if fl.ProcessID != "" && f.ProcessID != fl.ProcessID {
		return false
	}
	if !fl.IdentifiedAfter.IsZero() && f.IdentifiedDate.Before(fl.IdentifiedAfter) {
		return false
	}
	return true
}
