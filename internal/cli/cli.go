package cli

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/kitchen/pkg/buildinfo"
	"github.com/matzehuels/kitchen/pkg/cache"
	"github.com/matzehuels/kitchen/pkg/config"
	"github.com/matzehuels/kitchen/pkg/dashboard"
	"github.com/matzehuels/kitchen/pkg/nodemap"
	"github.com/matzehuels/kitchen/pkg/plugins"
	"github.com/matzehuels/kitchen/pkg/store"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "kitchen"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger     *log.Logger
	ConfigPath string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Kitchen is a dashboard for LittleChef kitchens",
		Long:         `Kitchen lists, groups and maps the nodes of a LittleChef kitchen. It serves the same views over HTTP and keeps the kitchen in sync with its git repository.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVarP(&c.ConfigPath, "config", "c", "", "config file (default "+config.DefaultFile+" when present)")

	root.AddCommand(c.nodesCommand())
	root.AddCommand(c.virtCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.envsCommand())
	root.AddCommand(c.rolesCommand())
	root.AddCommand(c.linksCommand())
	root.AddCommand(c.browseCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.syncCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Dashboard Factory
// =============================================================================

// app bundles everything a command needs to answer queries about the kitchen.
type app struct {
	cfg     *config.Config
	cache   cache.Cache
	kitchen *store.Kitchen
	snaps   *store.Snapshots
	dash    *dashboard.Dashboard
}

// loadConfig reads the configuration selected by --config.
func (c *CLI) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(c.ConfigPath)
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("loaded configuration", "file", c.ConfigPath, "kitchen", cfg.Repo.KitchenDir())
	return cfg, nil
}

// newApp wires a Dashboard from the configuration. noCache disables the
// artifact cache regardless of the configured backend.
func (c *CLI) newApp(ctx context.Context, noCache bool) (*app, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	return newApp(ctx, cfg, noCache, loggerFromContext(ctx))
}

func newApp(ctx context.Context, cfg *config.Config, noCache bool, logger *log.Logger) (*app, error) {
	renderer, err := nodemap.NewRenderer(cfg.Graph)
	if err != nil {
		return nil, err
	}
	artifacts, err := newCache(ctx, cfg.Cache, noCache)
	if err != nil {
		return nil, err
	}

	reg := plugins.NewRegistry(logger)
	if err := plugins.RegisterBuiltins(reg, cfg.Dashboard); err != nil {
		artifacts.Close()
		return nil, err
	}
	reg.Enable(cfg.Dashboard.Plugins)

	keyer := cache.NewScopedKeyer(nil, "repo:"+cfg.Repo.Name+":")
	mapper := nodemap.NewMapper(renderer, artifacts, keyer, logger)
	mapper.Options = nodemap.Options{
		ExcludeRolePrefix: cfg.Repo.ExcludeRolePrefix,
		Colors:            cfg.Dashboard.Colors,
		Cluster:           cfg.Graph.Cluster,
	}
	mapper.Format = cfg.Graph.Format
	mapper.Timeout = cfg.Graph.RenderTimeout.Duration
	mapper.TTL = cfg.Cache.TTL.Duration
	mapper.StaticDir = cfg.Dashboard.StaticDir

	kitchen := store.NewKitchen(cfg.Repo.KitchenDir(), logger)
	snaps := store.NewSnapshots(kitchen, logger)
	return &app{
		cfg:     cfg,
		cache:   artifacts,
		kitchen: kitchen,
		snaps:   snaps,
		dash:    dashboard.New(snaps, reg, mapper, cfg, logger),
	}, nil
}

// Close releases the artifact cache.
func (a *app) Close() error {
	return a.cache.Close()
}

func newCache(ctx context.Context, cfg config.Cache, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	c, err := cache.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return cache.NewInstrumented(c, "artifact"), nil
}
