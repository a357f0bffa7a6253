package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"taskflow/internal/app"
)

func newWorkerCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run email delivery workers against the durable queue",
		Long: "Runs email workers without the HTTP API. Requires the sqlite queue backend, " +
			"since a memory queue cannot be shared between processes.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return withApp(ctx, opts, func(a *app.App) error {
				if !a.Durable() {
					return fmt.Errorf("worker requires queue.backend=sqlite, got %q", opts.cfg.Queue.Backend)
				}
				opts.logger.Info("email workers starting", "count", opts.cfg.Queue.Workers)
				return a.RunWorkers(ctx)
			})
		},
	}
}
