package sdk

import (
	"errors"
	"fmt"
	"testing"

	"github.com/halcyon-qm/sdk/finding"
	"github.com/halcyon-qm/sdk/lifecycle"
	"github.com/halcyon-qm/sdk/sequence"
	"github.com/halcyon-qm/sdk/store"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "without underlying error",
			err:  &Error{Op: "Engine.GetFinding", Kind: KindNotFound},
			want: "halcyon: Engine.GetFinding: not_found",
		},
		{
			name: "with underlying error",
			err:  &Error{Op: "Engine.CreateFinding", Kind: KindValidation, Err: errors.New("title is required")},
			want: "halcyon: Engine.CreateFinding (validation): title is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	underlying := errors.New("boom")
	err := &Error{Op: "op", Kind: KindInternal, Err: underlying}

	if !errors.Is(err, underlying) {
		t.Error("errors.Is should find the underlying error")
	}
}

func TestError_IsMatchesKind(t *testing.T) {
	err := &Error{Op: "Engine.VerifyFinding", Kind: KindConflict, Err: finding.ErrAlreadyVerified}

	if !errors.Is(err, &Error{Kind: KindConflict}) {
		t.Error("should match on kind alone")
	}
	if errors.Is(err, &Error{Kind: KindNotFound}) {
		t.Error("should not match a different kind")
	}
	if !errors.Is(err, &Error{Op: "Engine.VerifyFinding", Kind: KindConflict}) {
		t.Error("should match on kind and op")
	}
	if errors.Is(err, &Error{Op: "Engine.GetFinding", Kind: KindConflict}) {
		t.Error("should not match a different op")
	}
	if !errors.Is(err, finding.ErrAlreadyVerified) {
		t.Error("should still match the wrapped sentinel")
	}
}

func TestWrapError_Classification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind string
	}{
		{"validation", fmt.Errorf("create: %w", lifecycle.ErrValidation), KindValidation},
		{"not found", fmt.Errorf("get: %w", store.ErrNotFound), KindNotFound},
		{"already verified", fmt.Errorf("verify: %w", finding.ErrAlreadyVerified), KindConflict},
		{"phase regression", fmt.Errorf("phase: %w", finding.ErrPhaseRegression), KindConflict},
		{"sequence exhausted", fmt.Errorf("next: %w", sequence.ErrExhausted), KindSequenceExhausted},
		{"store unavailable", fmt.Errorf("put: %w", store.ErrUnavailable), KindStoreUnavailable},
		{"unknown", errors.New("mystery"), KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := wrapError("op", tt.err)

			var e *Error
			if !errors.As(wrapped, &e) {
				t.Fatalf("wrapError returned %T, want *Error", wrapped)
			}
			if e.Kind != tt.kind {
				t.Errorf("Kind = %q, want %q", e.Kind, tt.kind)
			}
			if !errors.Is(wrapped, tt.err) {
				t.Error("wrapped error should still match the original")
			}
		})
	}

	t.Run("nil passes through", func(t *testing.T) {
		if wrapError("op", nil) != nil {
			t.Error("wrapError(nil) should be nil")
		}
	})
}

func TestError_WithContext(t *testing.T) {
	base := &Error{Op: "op", Kind: KindNotFound, Err: store.ErrNotFound}
	enriched := base.WithContext(map[string]any{"findingId": "f-1"})

	if base.Context != nil {
		t.Error("WithContext should not mutate the original")
	}
	if enriched.Context["findingId"] != "f-1" {
		t.Errorf("Context[findingId] = %v, want f-1", enriched.Context["findingId"])
	}
}
