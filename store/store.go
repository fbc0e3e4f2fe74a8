package store

import (
	"context"
	"errors"
	"fmt"
)

// Common errors returned by store operations.
var (
	// ErrNotFound is returned when a requested document does not exist.
	ErrNotFound = errors.New("store: document not found")

	// ErrInvalidKey is returned when a collection, id, or counter key is empty.
	ErrInvalidKey = errors.New("store: invalid key")

	// ErrUnavailable is returned when the underlying store cannot be reached
	// or an operation times out. Callers may retry.
	ErrUnavailable = errors.New("store: unavailable")
)

// Op is a predicate comparison operator.
type Op string

const (
	// OpEq matches documents whose field equals the predicate value.
	OpEq Op = "eq"

	// OpGte matches documents whose field is greater than or equal to the value.
	OpGte Op = "gte"

	// OpLte matches documents whose field is less than or equal to the value.
	OpLte Op = "lte"
)

// Predicate is a single field comparison applied to a decoded document.
type Predicate struct {
	// Field is the top-level JSON field name.
	Field string

	// Op is the comparison operator.
	Op Op

	// Value is the value to compare against.
	Value any
}

// Query selects documents from a collection.
type Query struct {
	// Predicates are ANDed together. An empty list matches every document.
	Predicates []Predicate

	// OrderBy names a top-level field to sort by. Empty means unspecified order.
	OrderBy string

	// Descending reverses the sort order.
	Descending bool

	// Limit caps the number of results. Zero means no cap.
	Limit int
}

// Store is a generic transactional key-document store.
//
// Documents are opaque JSON blobs; predicate evaluation happens against the
// decoded top-level fields. Every method respects the caller's context
// deadline and returns ErrUnavailable-wrapped errors on transport failure.
type Store interface {
	// Get returns the raw document with the given id.
	// Returns ErrNotFound if the document does not exist.
	Get(ctx context.Context, collection, id string) ([]byte, error)

	// Put stores a document under the given id, replacing any existing one.
	Put(ctx context.Context, collection, id string, doc []byte) error

	// Update merges the partial top-level fields into the existing document.
	// Returns ErrNotFound if the document does not exist.
	Update(ctx context.Context, collection, id string, partial map[string]any) error

	// Query returns documents matching the query.
	Query(ctx context.Context, collection string, q Query) ([][]byte, error)

	// AtomicIncrement increments the named counter by one and returns the new
	// value. The increment-and-read is a single atomic operation against the
	// store; concurrent callers never observe the same value twice.
	AtomicIncrement(ctx context.Context, counterKey string) (int64, error)

	// Close releases the store's resources.
	Close() error
}

// matchPredicate evaluates a predicate against a decoded document.
func matchPredicate(doc map[string]any, p Predicate) bool {
	field, ok := doc[p.Field]
	if !ok {
		return false
	}
	switch p.Op {
	case OpEq:
		return compareValues(field, p.Value) == 0
	case OpGte:
		return compareValues(field, p.Value) >= 0
	case OpLte:
		return compareValues(field, p.Value) <= 0
	default:
		return false
	}
}

// compareValues orders two JSON scalar values. Numbers compare numerically,
// everything else by string form. Returns -1, 0, or 1.
func compareValues(a, b any) int {
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	as := fmt.Sprintf("%v", a)
	bs := fmt.Sprintf("%v", b)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	default:
		return 0
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
