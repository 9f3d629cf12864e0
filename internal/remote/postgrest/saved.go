package postgrest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/abelbrown/ideadeck/internal/remote"
	"github.com/abelbrown/ideadeck/internal/saved"
)

// SavedIdeas is the saved_ideas table scoped to the session's user.
type SavedIdeas struct {
	c    *Client
	user uuid.UUID
	err  error // identity failure, reported by every write
}

var _ saved.Client = (*SavedIdeas)(nil)

// Saved returns the saved-idea client for the configured access token.
// Without a valid session, reads report nothing saved and writes fail
// with saved.ErrNoIdentity.
func (c *Client) Saved() *SavedIdeas {
	user, err := UserID(c.accessToken, time.Now())
	return &SavedIdeas{c: c, user: user, err: err}
}

type savedRow struct {
	UserID string `json:"user_id"`
	IdeaID int64  `json:"idea_id"`
}

func (s *SavedIdeas) match(ideaID int64) url.Values {
	v := url.Values{}
	v.Set("user_id", "eq."+s.user.String())
	v.Set("idea_id", "eq."+strconv.FormatInt(ideaID, 10))
	return v
}

// IsSaved requests the row as a single object; PostgREST answers
// PGRST116 when there is none.
func (s *SavedIdeas) IsSaved(ctx context.Context, ideaID int64) (bool, error) {
	if s.err != nil {
		return false, nil
	}
	v := s.match(ideaID)
	v.Set("select", "id")
	_, err := s.c.do(ctx, request{
		op:     "is_saved",
		method: http.MethodGet,
		table:  s.c.savedTable,
		query:  v,
		header: http.Header{"Accept": {"application/vnd.pgrst.object+json"}},
	})
	if err == nil {
		return true, nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Code == codeNoRows {
		return false, nil
	}
	return false, err
}

// Save checks for an existing row first so saving twice leaves one row.
// A unique-violation conflict from a concurrent save counts as already saved.
func (s *SavedIdeas) Save(ctx context.Context, ideaID int64) (saved.Outcome, error) {
	if s.err != nil {
		return saved.Outcome{}, s.identityErr()
	}
	exists, err := s.IsSaved(ctx, ideaID)
	if err != nil {
		return saved.Outcome{}, err
	}
	if exists {
		return saved.Outcome{Saved: true}, nil
	}

	body, err := json.Marshal(savedRow{UserID: s.user.String(), IdeaID: ideaID})
	if err != nil {
		return saved.Outcome{}, err
	}
	_, err = s.c.do(ctx, request{
		op:     "save",
		method: http.MethodPost,
		table:  s.c.savedTable,
		body:   body,
		header: http.Header{"Prefer": {"return=minimal"}},
	})
	var se *remote.StoreError
	if errors.As(err, &se) && se.Status == http.StatusConflict {
		return saved.Outcome{Saved: true}, nil
	}
	if err != nil {
		return saved.Outcome{}, err
	}
	return saved.Outcome{Saved: true, Changed: true}, nil
}

// Unsave deletes the row matching both the idea and the user.
func (s *SavedIdeas) Unsave(ctx context.Context, ideaID int64) (saved.Outcome, error) {
	if s.err != nil {
		return saved.Outcome{}, s.identityErr()
	}
	v := s.match(ideaID)
	v.Set("select", "id")
	resp, err := s.c.do(ctx, request{
		op:     "unsave",
		method: http.MethodDelete,
		table:  s.c.savedTable,
		query:  v,
		header: http.Header{"Prefer": {"return=representation"}},
	})
	if err != nil {
		return saved.Outcome{}, err
	}
	var deleted []json.RawMessage
	if err := json.Unmarshal(resp.body, &deleted); err != nil {
		return saved.Outcome{}, &remote.StoreError{Op: "unsave", Status: resp.status, Err: fmt.Errorf("decode rows: %w", err)}
	}
	return saved.Outcome{Changed: len(deleted) > 0}, nil
}

// List returns saved idea IDs, most recently saved first.
func (s *SavedIdeas) List(ctx context.Context) ([]int64, error) {
	if s.err != nil {
		return nil, nil
	}
	v := url.Values{}
	v.Set("select", "idea_id")
	v.Set("user_id", "eq."+s.user.String())
	v.Set("order", "created_at.desc")
	resp, err := s.c.do(ctx, request{
		op:     "list_saved",
		method: http.MethodGet,
		table:  s.c.savedTable,
		query:  v,
	})
	if err != nil {
		return nil, err
	}
	var rows []savedRow
	if err := json.Unmarshal(resp.body, &rows); err != nil {
		return nil, &remote.StoreError{Op: "list_saved", Status: resp.status, Err: fmt.Errorf("decode rows: %w", err)}
	}
	ids := make([]int64, len(rows))
	for i, r := range rows {
		ids[i] = r.IdeaID
	}
	return ids, nil
}

// identityErr always matches saved.ErrNoIdentity.
func (s *SavedIdeas) identityErr() error {
	if errors.Is(s.err, saved.ErrNoIdentity) {
		return s.err
	}
	return fmt.Errorf("%w: %w", saved.ErrNoIdentity, s.err)
}
