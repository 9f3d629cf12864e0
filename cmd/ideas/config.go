package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abelbrown/ideadeck/internal/config"
)

func newConfigCommand(gf *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the IdeaDeck config file",
	}
	cmd.AddCommand(newConfigInitCommand(gf))
	return cmd
}

func newConfigInitCommand(gf *globalFlags) *cobra.Command {
	var (
		path  string
		force bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write defaults plus env, keys-file and flag overrides to the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(gf)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			target := path
			if target == "" {
				target = config.ConfigPath()
			}
			if _, err := os.Stat(target); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", target)
			}

			if path == "" {
				err = cfg.Save()
			} else {
				err = cfg.SaveTo(path)
			}
			if err != nil {
				return fmt.Errorf("write config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (backend %s)\n", target, cfg.Backend)
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "Output path (default ~/.ideadeck/config.json)")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}
