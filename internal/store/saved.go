package store

import (
	"context"
	"time"

	"github.com/abelbrown/ideadeck/internal/model"
	"github.com/abelbrown/ideadeck/internal/remote"
	"github.com/abelbrown/ideadeck/internal/saved"
)

// SavedIdeas is the saved_ideas table scoped to one identity.
type SavedIdeas struct {
	s    *Store
	user string
}

var _ saved.Client = (*SavedIdeas)(nil)

// SavedFor returns the saved-idea client for user. An empty user has no
// identity: reads report nothing saved and writes fail with saved.ErrNoIdentity.
func (s *Store) SavedFor(user string) *SavedIdeas {
	return &SavedIdeas{s: s, user: user}
}

// IsSaved reports whether ideaID is saved for the identity.
func (c *SavedIdeas) IsSaved(ctx context.Context, ideaID int64) (bool, error) {
	if c.user == "" {
		return false, nil
	}
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()

	var n int
	err := c.s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM saved_ideas WHERE user_id = ? AND idea_id = ?`,
		c.user, ideaID).Scan(&n)
	if err != nil {
		return false, &remote.StoreError{Op: "is_saved", Err: err}
	}
	return n > 0, nil
}

// Save marks ideaID saved. Saving twice leaves one row.
func (c *SavedIdeas) Save(ctx context.Context, ideaID int64) (saved.Outcome, error) {
	if c.user == "" {
		return saved.Outcome{}, saved.ErrNoIdentity
	}
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	res, err := c.s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO saved_ideas (user_id, idea_id, created_at) VALUES (?, ?, ?)`,
		c.user, ideaID, model.FormatTimestamp(time.Now()))
	if err != nil {
		return saved.Outcome{}, &remote.StoreError{Op: "save", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return saved.Outcome{}, &remote.StoreError{Op: "save", Err: err}
	}
	return saved.Outcome{Saved: true, Changed: n > 0}, nil
}

// Unsave clears the saved flag for ideaID.
func (c *SavedIdeas) Unsave(ctx context.Context, ideaID int64) (saved.Outcome, error) {
	if c.user == "" {
		return saved.Outcome{}, saved.ErrNoIdentity
	}
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	res, err := c.s.db.ExecContext(ctx,
		`DELETE FROM saved_ideas WHERE user_id = ? AND idea_id = ?`, c.user, ideaID)
	if err != nil {
		return saved.Outcome{}, &remote.StoreError{Op: "unsave", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return saved.Outcome{}, &remote.StoreError{Op: "unsave", Err: err}
	}
	return saved.Outcome{Saved: false, Changed: n > 0}, nil
}

// List returns saved idea IDs, most recently saved first.
func (c *SavedIdeas) List(ctx context.Context) ([]int64, error) {
	if c.user == "" {
		return nil, nil
	}
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()

	rows, err := c.s.db.QueryContext(ctx,
		`SELECT idea_id FROM saved_ideas WHERE user_id = ? ORDER BY created_at DESC, id DESC`, c.user)
	if err != nil {
		return nil, &remote.StoreError{Op: "list_saved", Err: err}
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, &remote.StoreError{Op: "list_saved", Err: err}
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, &remote.StoreError{Op: "list_saved", Err: err}
	}
	return ids, nil
}
