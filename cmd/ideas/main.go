// Command ideas is the IdeaDeck maintenance CLI.
//
// Usage:
//
//	ideas seed              Harvest subreddit feeds into the local database
//	ideas list [flags]      Page through ideas the way the TUI does
//	ideas stats             Totals and the saved-idea breakdown
//	ideas events            JSONL event log viewer
//	ideas config init       Write the effective config to ~/.ideadeck/config.json
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abelbrown/ideadeck/internal/backend"
	"github.com/abelbrown/ideadeck/internal/config"
	"github.com/abelbrown/ideadeck/internal/logging"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	backend  string
	db       string
	keysFile string
	debug    bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var gf globalFlags

	root := &cobra.Command{
		Use:          "ideas",
		Short:        "IdeaDeck maintenance CLI",
		Long:         "Seed, list and inspect the business-idea catalog without the TUI.",
		Version:      logging.Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.InitWriter(cmd.ErrOrStderr(), gf.debug)
		},
	}

	root.PersistentFlags().StringVar(&gf.backend, "backend", "", "Backend override: sqlite or supabase")
	root.PersistentFlags().StringVar(&gf.db, "db", "", "SQLite database path (default ~/.ideadeck/ideadeck.db)")
	root.PersistentFlags().StringVar(&gf.keysFile, "keys-file", "", "Dotenv-style file with SUPABASE_* keys")
	root.PersistentFlags().BoolVar(&gf.debug, "debug", false, "Verbose logging to stderr")

	root.AddCommand(
		newSeedCommand(&gf),
		newListCommand(&gf),
		newStatsCommand(&gf),
		newEventsCommand(),
		newConfigCommand(&gf),
	)
	return root
}

// loadConfig reads the config, then the keys file, then command-line
// overrides.
func loadConfig(gf *globalFlags) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if gf.keysFile != "" {
		if err := cfg.LoadKeysFromFile(gf.keysFile); err != nil {
			return nil, err
		}
	}
	if gf.backend != "" {
		cfg.Backend = gf.backend
	}
	if gf.db != "" {
		cfg.SQLite.Path = gf.db
	}
	return cfg, nil
}

// openBackend loads the config and opens the backend it selects.
func openBackend(gf *globalFlags) (*config.Config, *backend.Backend, error) {
	cfg, err := loadConfig(gf)
	if err != nil {
		return nil, nil, err
	}
	b, err := backend.Open(cfg, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("open backend: %w", err)
	}
	return cfg, b, nil
}
