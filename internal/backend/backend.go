// Package backend opens the record store and saved-state client a config
// selects, so both binaries wire the same way.
package backend

import (
	"fmt"

	"github.com/abelbrown/ideadeck/internal/config"
	"github.com/abelbrown/ideadeck/internal/logging"
	"github.com/abelbrown/ideadeck/internal/otel"
	"github.com/abelbrown/ideadeck/internal/remote"
	"github.com/abelbrown/ideadeck/internal/remote/postgrest"
	"github.com/abelbrown/ideadeck/internal/saved"
	"github.com/abelbrown/ideadeck/internal/store"
)

// LocalUser owns saved ideas in the embedded store. There is no sign-in
// for a single-user database file.
const LocalUser = "local"

// Backend is an opened record store plus the saved-state client for the
// current identity.
type Backend struct {
	Name  string
	Store remote.Store
	Saved saved.Client

	// Local is the embedded store, nil for remote backends. Only it accepts
	// harvested ideas.
	Local *store.Store
}

// Open validates cfg and opens its backend. events may be nil.
func Open(cfg *config.Config, events *otel.Logger) (*Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case config.BackendSupabase:
		c := postgrest.New(cfg.Supabase, events)
		logging.Info("Using Supabase backend", "url", cfg.Supabase.URL, "signed_in", cfg.Supabase.AccessToken != "")
		return &Backend{Name: cfg.Backend, Store: c, Saved: c.Saved()}, nil

	case config.BackendSQLite:
		path := cfg.DBPath()
		st, err := store.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		logging.Info("Using SQLite backend", "path", path)
		return &Backend{Name: cfg.Backend, Store: st, Saved: st.SavedFor(LocalUser), Local: st}, nil
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

// Close releases the embedded store, if any.
func (b *Backend) Close() error {
	if b.Local != nil {
		return b.Local.Close()
	}
	return nil
}
