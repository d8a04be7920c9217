package cli

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	kerrors "github.com/matzehuels/kitchen/pkg/errors"
	"github.com/matzehuels/kitchen/pkg/observability"
	"github.com/matzehuels/kitchen/pkg/reposync"
	"github.com/matzehuels/kitchen/pkg/server"
)

// serveCommand runs the HTTP dashboard together with the repository sync
// loop and the kitchen watcher.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		timeout time.Duration
		noSync  bool
		noWatch bool
		metrics bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard over HTTP",
		Long: `Serve the dashboard views and the node API over HTTP.

The kitchen repository is synced every repo.sync_period, and node or role
files changed on disk are picked up immediately.`,
		Example: `  kitchen serve
  kitchen serve --addr :9000 --no-sync`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}

			opts := server.Options{
				Addr:           cfg.Server.Addr,
				RequestTimeout: timeout,
				SyncdateFile:   cfg.Server.SyncdateFile,
			}
			if metrics {
				prom := observability.NewPrometheus(nil)
				prom.Install()
				defer observability.Reset()
				opts.Metrics = prom.Handler()
			}

			a, err := newApp(ctx, cfg, false, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.kitchen.Check(); err != nil {
				logger.Warn("kitchen not ready", "err", kerrors.UserMessage(err))
			}

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return server.New(a.dash, opts, logger).ListenAndServe(ctx)
			})
			if !noSync {
				syncer := reposync.New(cfg.Repo, cfg.Server.SyncdateFile, a.snaps, logger)
				g.Go(func() error {
					return ignoreCanceled(syncer.Run(ctx))
				})
			}
			if !noWatch {
				g.Go(func() error {
					return a.snaps.Watch(ctx, a.kitchen.WatchDirs())
				})
			}

			printInfo("Serving %s on %s", cfg.Repo.Name, cfg.Server.Addr)
			printDetail("Kitchen: %s", cfg.Repo.KitchenDir())
			return ignoreCanceled(g.Wait())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().DurationVar(&timeout, "request-timeout", server.DefaultRequestTimeout, "per-request timeout")
	cmd.Flags().BoolVar(&noSync, "no-sync", false, "do not sync the repository")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "do not watch the kitchen for changes")
	cmd.Flags().BoolVar(&metrics, "metrics", true, "expose Prometheus metrics at /metrics")

	return cmd
}

// ignoreCanceled treats shutdown by signal as a clean exit.
func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
