// Package store provides the embedded SQLite backend for IdeaDeck.
//
// Store serves the same business_ideas / saved_ideas tables the hosted
// backend exposes, so it satisfies remote.Store for the paging core and
// saved.Client (via SavedFor) for the presentation layer.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/abelbrown/ideadeck/internal/model"
	"github.com/abelbrown/ideadeck/internal/query"
	"github.com/abelbrown/ideadeck/internal/remote"
)

// Store handles SQLite persistence. NOT an interface - concrete type.
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ remote.Store = (*Store)(nil)

// Open creates a new Store with the given database path.
// Creates tables if they don't exist.
// Uses WAL mode for better concurrent read performance (file-based DBs only).
func Open(dbPath string) (*Store, error) {
	connStr := dbPath
	if dbPath == ":memory:" {
		// Shared cache so every pooled connection sees the same database.
		connStr = "file::memory:?cache=shared"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	s := &Store{db: db}

	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return s, nil
}

// createTables creates the required tables and indexes if they don't exist.
func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS business_ideas (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		upvotes INTEGER,
		subreddit_name TEXT,
		subreddit_subscribers INTEGER,
		post_date TEXT,
		url TEXT UNIQUE,
		original_post TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_ideas_created ON business_ideas(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_ideas_upvotes ON business_ideas(upvotes DESC);
	CREATE INDEX IF NOT EXISTS idx_ideas_category ON business_ideas(category);
	CREATE INDEX IF NOT EXISTS idx_ideas_subreddit ON business_ideas(subreddit_name);

	CREATE TABLE IF NOT EXISTS saved_ideas (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		idea_id INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		UNIQUE(user_id, idea_id)
	);

	CREATE INDEX IF NOT EXISTS idx_saved_user ON saved_ideas(user_id);

	CREATE TABLE IF NOT EXISTS feed_status (
		name TEXT PRIMARY KEY,
		last_fetched TEXT NOT NULL,
		idea_count INTEGER NOT NULL DEFAULT 0,
		last_error TEXT
	);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
// Thread-safe: acquires write lock to prevent closing during in-flight operations.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Count returns the number of ideas matching q. Range and order are ignored.
func (s *Store) Count(ctx context.Context, q query.Spec) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stmt, args, err := countSQL(q)
	if err != nil {
		return 0, &remote.StoreError{Op: "count", Err: err}
	}
	var n int
	if err := s.db.QueryRowContext(ctx, stmt, args...).Scan(&n); err != nil {
		return 0, &remote.StoreError{Op: "count", Err: err}
	}
	return n, nil
}

// Select returns the ideas matching q in q's order and range.
func (s *Store) Select(ctx context.Context, q query.Spec) ([]model.Idea, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stmt, args, err := selectSQL(q)
	if err != nil {
		return nil, &remote.StoreError{Op: "select", Err: err}
	}
	ideas, err := s.queryIdeas(ctx, stmt, args...)
	if err != nil {
		return nil, &remote.StoreError{Op: "select", Err: err}
	}
	return ideas, nil
}

// SaveIdeas stores ideas, returning count of new ideas inserted.
// Duplicates (by URL) are silently ignored via INSERT OR IGNORE.
// Missing timestamps are filled with the current time.
// Thread-safe: acquires write lock.
func (s *Store) SaveIdeas(ctx context.Context, ideas []model.Idea) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(ideas) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO business_ideas (
			title, description, category, upvotes, subreddit_name,
			subreddit_subscribers, post_date, url, original_post,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	now := model.FormatTimestamp(time.Now())
	newCount := 0
	for _, idea := range ideas {
		created := idea.CreatedAt
		if created == "" {
			created = now
		}
		updated := idea.UpdatedAt
		if updated == "" {
			updated = created
		}
		result, err := stmt.ExecContext(ctx,
			idea.Title,
			idea.Description,
			idea.Category,
			nullInt(idea.Upvotes),
			nullString(idea.SubredditName),
			nullInt(idea.SubredditSubscribers),
			nullString(idea.PostDate),
			nullString(idea.URL),
			nullString(idea.OriginalPost),
			created,
			updated,
		)
		if err != nil {
			return newCount, err
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return newCount, err
		}
		if affected > 0 {
			newCount++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return newCount, nil
}

// UpdateFeedStatus records the outcome of harvesting one feed.
func (s *Store) UpdateFeedStatus(name string, ideaCount int, lastError string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO feed_status (name, last_fetched, idea_count, last_error)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			last_fetched = excluded.last_fetched,
			idea_count = excluded.idea_count,
			last_error = excluded.last_error
	`, name, model.FormatTimestamp(time.Now()), ideaCount, lastError)
	return err
}

// FeedStatus is the last harvest outcome of one feed.
type FeedStatus struct {
	Name        string
	LastFetched time.Time
	IdeaCount   int
	LastError   string
}

// FeedStatuses returns every recorded feed, by name.
func (s *Store) FeedStatuses() ([]FeedStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT name, last_fetched, idea_count, COALESCE(last_error, '') FROM feed_status ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FeedStatus
	for rows.Next() {
		var fs FeedStatus
		var fetched string
		if err := rows.Scan(&fs.Name, &fetched, &fs.IdeaCount, &fs.LastError); err != nil {
			return nil, err
		}
		fs.LastFetched, _ = time.Parse(model.TimestampLayout, fetched)
		out = append(out, fs)
	}
	return out, rows.Err()
}

const ideaColumns = `id, title, description, category, upvotes, subreddit_name,
	subreddit_subscribers, post_date, url, original_post, created_at, updated_at`

// queryIdeas is a helper that executes a query and scans results into Ideas.
// Caller must hold s.mu (read lock is sufficient).
func (s *Store) queryIdeas(ctx context.Context, stmt string, args ...any) ([]model.Idea, error) {
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ideas []model.Idea
	for rows.Next() {
		var idea model.Idea
		var upvotes, subscribers sql.NullInt64
		var subreddit, postDate, url, original sql.NullString
		err := rows.Scan(
			&idea.ID,
			&idea.Title,
			&idea.Description,
			&idea.Category,
			&upvotes,
			&subreddit,
			&subscribers,
			&postDate,
			&url,
			&original,
			&idea.CreatedAt,
			&idea.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		idea.Upvotes = intPtr(upvotes)
		idea.SubredditSubscribers = intPtr(subscribers)
		idea.SubredditName = stringPtr(subreddit)
		idea.PostDate = stringPtr(postDate)
		idea.URL = stringPtr(url)
		idea.OriginalPost = stringPtr(original)
		ideas = append(ideas, idea)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return ideas, nil
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func stringPtr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	v := n.String
	return &v
}
