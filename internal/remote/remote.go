// Package remote defines the queryable record collection the paging core
// reads from, and the error every backend reports failures with.
package remote

import (
	"context"
	"errors"
	"fmt"

	"github.com/abelbrown/ideadeck/internal/model"
	"github.com/abelbrown/ideadeck/internal/query"
)

// Store is a queryable collection of ideas.
// Implementations must honour ctx cancellation.
type Store interface {
	Count(ctx context.Context, q query.Spec) (int, error)
	Select(ctx context.Context, q query.Spec) ([]model.Idea, error)
}

// StoreError is a failed count or range query.
type StoreError struct {
	Op     string // "count", "select", ...
	Status int    // HTTP status, 0 for non-HTTP backends
	Err    error
}

func (e *StoreError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("store %s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Wrap returns err as a *StoreError for op, leaving nil and errors that
// already carry a StoreError in their chain untouched.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}
