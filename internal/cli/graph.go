package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/kitchen/pkg/config"
	"github.com/matzehuels/kitchen/pkg/dashboard"
	"github.com/matzehuels/kitchen/pkg/nodemap"
)

// graphCommand renders the node map of the selected guests.
func (c *CLI) graphCommand() *cobra.Command {
	var (
		flags   queryFlags
		format  string
		engine  string
		output  string
		dot     bool
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Render the node map",
		Long: `Render the node map of the guests in one environment.

Nodes are colored by role group and connected by the relationships their
attributes declare: client_roles draw an edge from each client, needs_roles
a dashed edge to each dependency.`,
		Example: `  kitchen graph
  kitchen graph --env staging --format png -o staging.png
  kitchen graph --dot | dot -Tpdf > map.pdf`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("engine") {
				cfg.Graph.Engine = engine
			}
			if format == "" {
				format = cfg.Graph.Format
			}
			a, err := newApp(ctx, cfg, noCache, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			q := flags.query(cmd, cfg.Repo)
			if q.Env == "" {
				printWarning("%s", dashboard.MsgSelectEnv)
				return nil
			}

			if dot {
				desc, err := a.dash.GraphDOT(ctx, q)
				if err != nil {
					return err
				}
				_, err = fmt.Fprint(cmd.OutOrStdout(), desc.DOT)
				return err
			}

			prog := newProgress(logger)
			art, err := a.dash.GraphImage(ctx, q, format)
			if err != nil {
				return err
			}
			prog.done("Rendered node map")

			if output == "-" {
				_, err = cmd.OutOrStdout().Write(art.Data)
				return err
			}
			if output == "" {
				output = nodemap.FileName(art.Format)
			}
			if err := os.WriteFile(output, art.Data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}

			printSuccess("Node map of %s", q.Env)
			printFile(output)
			printStats(art.Nodes, art.Edges, art.Cached)
			return nil
		},
	}

	flags.register(cmd, false)
	cmd.Flags().StringVar(&format, "format", "", "image format: svg, png (default from config)")
	cmd.Flags().StringVar(&engine, "engine", config.EngineGraphviz, "renderer: graphviz (in-process) or dot (external binary)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, - for stdout (default node_map.<format>)")
	cmd.Flags().BoolVar(&dot, "dot", false, "print the DOT source instead of rendering")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "render even when a cached image exists")

	_ = cmd.RegisterFlagCompletionFunc("format", cobra.FixedCompletions([]string{nodemap.FormatSVG, nodemap.FormatPNG}, cobra.ShellCompDirectiveNoFileComp))
	_ = cmd.RegisterFlagCompletionFunc("engine", cobra.FixedCompletions([]string{config.EngineGraphviz, config.EngineDot}, cobra.ShellCompDirectiveNoFileComp))

	return cmd
}
