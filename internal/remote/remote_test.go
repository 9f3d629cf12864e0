package remote

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestStoreErrorMessage(t *testing.T) {
	err := &StoreError{Op: "select", Status: 503, Err: errors.New("unavailable")}
	if got := err.Error(); got != "store select: status 503: unavailable" {
		t.Errorf("Error() = %q", got)
	}

	plain := &StoreError{Op: "count", Err: errors.New("disk full")}
	if got := plain.Error(); got != "store count: disk full" {
		t.Errorf("Error() = %q", got)
	}
}

func TestWrap(t *testing.T) {
	if Wrap("count", nil) != nil {
		t.Error("Wrap(nil) should be nil")
	}

	wrapped := Wrap("count", context.DeadlineExceeded)
	var se *StoreError
	if !errors.As(wrapped, &se) || se.Op != "count" {
		t.Fatalf("Wrap() = %v, want *StoreError with op count", wrapped)
	}
	if !errors.Is(wrapped, context.DeadlineExceeded) {
		t.Error("StoreError should unwrap to its cause")
	}

	orig := &StoreError{Op: "select", Status: 400, Err: errors.New("bad filter")}
	if Wrap("count", orig) != error(orig) {
		t.Error("Wrap should not rewrap an existing StoreError")
	}

	annotated := fmt.Errorf("page 2: %w", orig)
	if Wrap("count", annotated) != annotated {
		t.Error("Wrap should not rewrap a StoreError further down the chain")
	}
	if !errors.As(Wrap("count", annotated), &se) || se.Op != "select" {
		t.Errorf("chained StoreError should keep op select, got %+v", se)
	}
}
