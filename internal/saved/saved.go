// Package saved defines the per-identity saved-idea collaborator used by
// the presentation layer. The paging core does not depend on it.
package saved

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoIdentity means no authenticated identity is available.
var ErrNoIdentity = errors.New("saved: no authenticated identity")

// Outcome reports the saved state after a Save or Unsave.
type Outcome struct {
	Saved   bool // state after the call
	Changed bool // false when the call found the state already in place
}

// Client toggles and queries saved flags for the current identity.
// Save must be idempotent: saving a saved idea reports Changed=false and
// creates no duplicate.
type Client interface {
	IsSaved(ctx context.Context, ideaID int64) (bool, error)
	Save(ctx context.Context, ideaID int64) (Outcome, error)
	Unsave(ctx context.Context, ideaID int64) (Outcome, error)
	List(ctx context.Context) ([]int64, error)
}

// Toggle flips the saved state of ideaID.
func Toggle(ctx context.Context, c Client, ideaID int64) (Outcome, error) {
	isSaved, err := c.IsSaved(ctx, ideaID)
	if err != nil {
		return Outcome{}, fmt.Errorf("check saved state: %w", err)
	}
	if isSaved {
		return c.Unsave(ctx, ideaID)
	}
	return c.Save(ctx, ideaID)
}
