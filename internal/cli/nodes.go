package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/kitchen/pkg/dashboard"
	"github.com/matzehuels/kitchen/pkg/inventory"
	"github.com/matzehuels/kitchen/pkg/node"
)

// nodesCommand lists the nodes matching the view filters.
func (c *CLI) nodesCommand() *cobra.Command {
	var (
		flags    queryFlags
		extended bool
		output   string
	)

	cmd := &cobra.Command{
		Use:   "nodes",
		Short: "List the nodes of the kitchen",
		Long: `List the nodes of the kitchen that match the given filters.

Without flags the configured default environment and virtualization role
apply, just like the dashboard's node list. Pass an empty value to drop a
filter, e.g. --env "".`,
		Example: `  kitchen nodes
  kitchen nodes --env staging --roles webserver,dbserver
  kitchen nodes --env "" --virt host -o yaml
  kitchen nodes --extended -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkOutput(output); err != nil {
				return err
			}
			a, err := c.newApp(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer a.Close()

			q := flags.query(cmd, a.cfg.Repo)
			if err := q.Validate(); err != nil {
				return err
			}
			all, err := a.dash.Nodes(cmd.Context(), extended)
			if err != nil {
				return err
			}
			nodes := a.dash.Plugins.InjectAll(inventory.FilterBy(all, q.Criteria()))

			if ok, err := writeDocument(cmd.OutOrStdout(), output, nodes); ok || err != nil {
				return err
			}
			if len(nodes) == 0 {
				printInfo("%s", dashboard.MsgNoNodes)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), nodeTable(nodes, a.cfg.Repo.ExcludeRolePrefix))
			printDetail("%s of %d", plural(len(nodes), "node"), len(all))
			return nil
		},
	}

	flags.register(cmd, true)
	cmd.Flags().BoolVar(&extended, "extended", false, "read the node data bag records, with guests merged")
	addOutputFlag(cmd, &output)

	return cmd
}

// nodeTable renders one row per node.
func nodeTable(nodes []node.Node, excludePrefix string) string {
	t := newTable("Name", "Env", "Roles", "Virt", "FQDN", "Links")
	for _, n := range nodes {
		t.Row(n.Name, n.Env(), orDash(strings.Join(displayRoles(n, excludePrefix), ", ")),
			orDash(n.VirtRole()), orDash(n.FQDN), linkTitles(n.Links))
	}
	return t.Render()
}

// displayRoles returns the node's roles without the excluded group.
func displayRoles(n node.Node, excludePrefix string) []string {
	var out []string
	for _, r := range n.Roles {
		if excludePrefix != "" && node.Prefix(r) == excludePrefix {
			continue
		}
		out = append(out, r)
	}
	return out
}

func linkTitles(links []node.ExternalLink) string {
	titles := make([]string, 0, len(links))
	for _, l := range links {
		titles = append(titles, orDash(l.Title))
	}
	return orDash(strings.Join(titles, ", "))
}
