package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/kitchen/pkg/dashboard"
	"github.com/matzehuels/kitchen/pkg/inventory"
	"github.com/matzehuels/kitchen/pkg/node"
)

// =============================================================================
// envs
// =============================================================================

func (c *CLI) envsCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "envs",
		Short: "List environments with their node counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkOutput(output); err != nil {
				return err
			}
			a, err := c.newApp(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer a.Close()

			data, err := a.dash.List(cmd.Context(), dashboard.Query{})
			if err != nil {
				return err
			}
			if ok, err := writeDocument(cmd.OutOrStdout(), output, data.Environments); ok || err != nil {
				return err
			}

			t := newTable("Environment", "Nodes")
			for _, e := range data.Environments {
				name := e.Name
				if name == a.cfg.Repo.DefaultEnv {
					name += " " + StyleDim.Render("(default)")
				}
				t.Row(name, strconv.Itoa(e.Count))
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			return nil
		},
	}
	addOutputFlag(cmd, &output)
	return cmd
}

// =============================================================================
// roles
// =============================================================================

// roleEntry is one role as printed by the roles command.
type roleEntry struct {
	Name        string `json:"name"`
	Group       string `json:"group"`
	Description string `json:"description,omitempty"`
	Nodes       int    `json:"nodes"`
}

func (c *CLI) rolesCommand() *cobra.Command {
	var (
		output string
		groups bool
	)

	cmd := &cobra.Command{
		Use:   "roles",
		Short: "List roles and how many nodes carry them",
		Example: `  kitchen roles
  kitchen roles --groups`,
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

			roles, err := a.dash.Roles(cmd.Context())
			if err != nil {
				return err
			}
			if groups {
				names := inventory.RoleGroups(roles, a.cfg.Repo.ExcludeRolePrefix)
				if ok, err := writeDocument(cmd.OutOrStdout(), output, names); ok || err != nil {
					return err
				}
				for _, g := range names {
					fmt.Fprintln(cmd.OutOrStdout(), g)
				}
				return nil
			}

			nodes, err := a.dash.Nodes(cmd.Context(), true)
			if err != nil {
				return err
			}
			entries := roleEntries(roles, nodes)
			if ok, err := writeDocument(cmd.OutOrStdout(), output, entries); ok || err != nil {
				return err
			}

			t := newTable("Role", "Group", "Nodes", "Description")
			for _, e := range entries {
				t.Row(e.Name, e.Group, strconv.Itoa(e.Nodes), orDash(e.Description))
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			return nil
		},
	}
	cmd.Flags().BoolVar(&groups, "groups", false, "list role groups only")
	addOutputFlag(cmd, &output)
	return cmd
}

func roleEntries(roles []node.Role, nodes []node.Node) []roleEntry {
	counts := make(map[string]int)
	for _, n := range nodes {
		for _, r := range n.Roles {
			counts[r]++
		}
	}
	entries := make([]roleEntry, 0, len(roles))
	for _, r := range roles {
		entries = append(entries, roleEntry{
			Name:        r.Name,
			Group:       r.Group(),
			Description: r.Description,
			Nodes:       counts[r.Name],
		})
	}
	return entries
}

// =============================================================================
// links
// =============================================================================

func (c *CLI) linksCommand() *cobra.Command {
	var (
		flags  queryFlags
		output string
	)

	cmd := &cobra.Command{
		Use:   "links",
		Short: "Show the relationships between guests",
		Long: `Show the relationships between the guests of one environment, as
declared by client_roles and needs_roles attributes.`,
		Example: `  kitchen links
  kitchen links --env staging -o json`,
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
			if q.Env == "" {
				printWarning("%s", dashboard.MsgSelectEnv)
				return nil
			}
			nodes, links, err := a.dash.Links(cmd.Context(), q)
			if err != nil {
				return err
			}
			if ok, err := writeDocument(cmd.OutOrStdout(), output, links); ok || err != nil {
				return err
			}

			rows := linkRows(nodes, links)
			if len(rows) == 0 {
				printInfo("No relationships between %s", plural(len(nodes), "node"))
				return nil
			}
			t := newTable("From", "To", "Attribute", "Kind")
			for _, r := range rows {
				t.Row(r...)
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			printDetail("%s between %s", plural(len(rows), "edge"), plural(len(nodes), "node"))
			printDetail("Linked: %s", strings.Join(links.Names(), ", "))
			return nil
		},
	}
	flags.register(cmd, false)
	addOutputFlag(cmd, &output)
	return cmd
}

// linkRows lists edges in node order, drawn the way the node map draws them:
// clients point at the node, the node points at what it needs.
func linkRows(nodes []node.Node, links inventory.LinkMap) [][]string {
	var rows [][]string
	for _, n := range nodes {
		l, ok := links[n.Name]
		if !ok {
			continue
		}
		for _, cl := range l.ClientNodes {
			rows = append(rows, []string{cl.Name, n.Name, cl.Attribute, "client"})
		}
		for _, nd := range l.NeedsNodes {
			rows = append(rows, []string{n.Name, nd.Name, nd.Attribute, "needs"})
		}
	}
	return rows
}
