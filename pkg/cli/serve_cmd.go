package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"taskflow/internal/app"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	var runWorkers bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, push socket and maintenance scheduler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return withApp(ctx, opts, func(a *app.App) error {
				logger := opts.logger
				if err := app.SeedRoles(ctx, a.Services.Role, logger); err != nil {
					return err
				}

				g, gctx := errgroup.WithContext(ctx)
				srv := &http.Server{
					Addr:              opts.cfg.ListenAddr,
					Handler:           a.Router(gctx),
					ReadHeaderTimeout: 10 * time.Second,
					// Push sockets are hijacked and outlive Shutdown; they
					// end when this context does.
					BaseContext: func(net.Listener) context.Context { return gctx },
				}

				g.Go(func() error {
					logger.Info("HTTP API listening", "addr", opts.cfg.ListenAddr)
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						return err
					}
					return nil
				})
				g.Go(func() error {
					<-gctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
					defer cancel()
					return srv.Shutdown(shutdownCtx)
				})

				// A memory queue only exists in this process, so it must be
				// drained here.
				if runWorkers || !a.Durable() {
					g.Go(func() error { return a.RunWorkers(gctx) })
				}

				if err := a.Scheduler.Start(gctx, opts.cfg.Maintenance.RequeueSpec, opts.cfg.Maintenance.PurgeSpec); err != nil {
					stop()
					_ = g.Wait()
					return err
				}
				defer a.Scheduler.Stop()

				return g.Wait()
			})
		},
	}

	cmd.Flags().BoolVar(&runWorkers, "workers", true, "Run email workers in this process")
	return cmd
}
