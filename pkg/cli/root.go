// Package cli implements the taskflow command line: the API server, the
// email worker and store administration.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"taskflow/internal/app"
	"taskflow/internal/config"
	internaldb "taskflow/internal/db"
)

var (
	version = "dev"
	commit  = "none"
)

// rootOptions is shared by every subcommand. cfg and logger are set in
// PersistentPreRunE.
type rootOptions struct {
	configPath string
	output     string
	cfg        *config.Config
	logger     *slog.Logger
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "taskflow",
		Short:         "Role-based task workflow service",
		Long:          "Task workflow API server with in-app and email notifications.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := validateOutputFormat(opts.output); err != nil {
				return err
			}
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			opts.cfg = cfg
			opts.logger = newLogger(cfg, cmd.ErrOrStderr())
			for _, w := range cfg.Warnings {
				opts.logger.Warn(w)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Config file (YAML, JSON or TOML); env vars prefixed "+config.EnvPrefix+"_ override it")
	rootCmd.PersistentFlags().StringVarP(&opts.output, "output", "o", "table", "Output format (table, json)")

	rootCmd.AddCommand(newServeCmd(opts))
	rootCmd.AddCommand(newWorkerCmd(opts))
	rootCmd.AddCommand(newMigrateCmd(opts))
	rootCmd.AddCommand(newUserCmd(opts))
	rootCmd.AddCommand(newRoleCmd(opts))
	rootCmd.AddCommand(newVersionCmd(opts))

	return rootCmd
}

// openStore opens the SQLite pools and applies pending migrations.
func openStore(opts *rootOptions) (*internaldb.Pools, error) {
	pools, err := internaldb.OpenPools(opts.cfg.DBPath, 4)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := internaldb.RunMigrations(pools.Write.DB); err != nil {
		_ = pools.Close()
		return nil, fmt.Errorf("migrate store: %w", err)
	}
	return pools, nil
}

// withApp opens the store, wires the application and hands both to fn.
func withApp(ctx context.Context, opts *rootOptions, fn func(a *app.App) error) error {
	pools, err := openStore(opts)
	if err != nil {
		return err
	}
	defer pools.Close() //nolint:errcheck

	a, err := app.New(ctx, app.Deps{Cfg: opts.cfg, Pools: pools, Logger: opts.logger})
	if err != nil {
		return err
	}
	return fn(a)
}

// newLogger returns a JSON logger in production and a text logger otherwise.
func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	hopts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(w, hopts))
	}
	return slog.New(slog.NewTextHandler(w, hopts))
}
