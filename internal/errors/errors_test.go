package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestSeriesError_Error(t *testing.T) {
	err := New(CategoryConfiguration, CodeMissingField, "metadata.id is required")
	expected := "[CONFIGURATION:MISSING_FIELD] metadata.id is required"
	if err.Error() != expected {
		t.Errorf("got %q, want %q", err.Error(), expected)
	}
}

func TestSeriesError_ErrorWithPeriodAndCause(t *testing.T) {
	cause := fmt.Errorf("not enough entities")
	err := Wrap(CategoryGeneration, CodeEngineFailed, "engine failed", cause).InPeriod(2, "existing")
	expected := "[GENERATION:ENGINE_FAILED] period 2 (existing) engine failed: not enough entities"
	if err.Error() != expected {
		t.Errorf("got %q, want %q", err.Error(), expected)
	}
}

func TestSeriesError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := Wrap(CategoryPersistence, CodeWriteFailed, "write failed", cause)
	if !errors.Is(err, cause) {
		t.Error("Unwrap should allow errors.Is to find the cause")
	}
}

func TestSeriesError_IsSentinel(t *testing.T) {
	err := Newf(CategoryConsistency, CodeColumnOrderMismatch, "column %q missing", "id")
	if !errors.Is(err, ErrColumnOrderMismatch) {
		t.Error("error with same category+code should match the sentinel")
	}
	if errors.Is(err, ErrInvalidPeriodUnit) {
		t.Error("different codes must not match")
	}

	wrapped := fmt.Errorf("assemble: %w", err)
	if !Is(wrapped, ErrColumnOrderMismatch) {
		t.Error("sentinel should match through fmt wrapping")
	}
}

func TestInPeriodDoesNotMutate(t *testing.T) {
	base := New(CategoryGeneration, CodeEngineFailed, "boom")
	tagged := base.InPeriod(3, "new")
	if base.Period != 0 || base.Stream != "" {
		t.Error("InPeriod must return a copy")
	}
	if tagged.Period != 3 || tagged.Stream != "new" {
		t.Errorf("unexpected tag: %d %s", tagged.Period, tagged.Stream)
	}
}

func TestCategoryOf(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(CategoryPersistence, CodeStoreFailed, "x"))
	cat, ok := CategoryOf(err)
	if !ok || cat != CategoryPersistence {
		t.Errorf("got %v %v", cat, ok)
	}
	if _, ok := CategoryOf(fmt.Errorf("plain")); ok {
		t.Error("plain error has no category")
	}
}
