package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/tree"
	"github.com/spf13/cobra"

	"github.com/matzehuels/kitchen/pkg/node"
)

var (
	styleTreeRoot  = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	styleTreeGuest = lipgloss.NewStyle().Foreground(colorWhite)
	styleTreeEnum  = lipgloss.NewStyle().Foreground(colorDim).MarginRight(1)
)

// virtCommand prints every host with its guests.
func (c *CLI) virtCommand() *cobra.Command {
	var (
		flags  queryFlags
		output string
	)

	cmd := &cobra.Command{
		Use:   "virt",
		Short: "Show virtualization hosts and their guests",
		Example: `  kitchen virt
  kitchen virt --env staging --roles webserver`,
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

			data, err := a.dash.Virt(cmd.Context(), flags.query(cmd, a.cfg.Repo))
			if err != nil {
				return err
			}
			if ok, err := writeDocument(cmd.OutOrStdout(), output, data); ok || err != nil {
				return err
			}
			printMessages(data.Messages)
			if len(data.Hosts) > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), hostTree(data.Hosts, data.ShowHostNames, a.cfg.Repo.ExcludeRolePrefix))
			}
			return nil
		},
	}

	flags.register(cmd, false)
	addOutputFlag(cmd, &output)

	return cmd
}

// hostTree renders hosts as roots and their guests as leaves.
func hostTree(hosts []node.Node, showNames bool, excludePrefix string) string {
	root := tree.New().
		Enumerator(tree.RoundedEnumerator).
		EnumeratorStyle(styleTreeEnum)
	for _, h := range hosts {
		title := h.Name
		if !showNames && h.FQDN != "" {
			title = h.FQDN
		}
		host := tree.Root(styleTreeRoot.Render(title) + " " + StyleDim.Render(plural(len(h.Guests()), "guest"))).
			Enumerator(tree.RoundedEnumerator).
			EnumeratorStyle(styleTreeEnum)
		for _, g := range h.Guests() {
			host.Child(guestLabel(g, excludePrefix))
		}
		root.Child(host)
	}
	return root.String()
}

func guestLabel(g node.Node, excludePrefix string) string {
	name := g.Name
	if name == "" {
		name = g.FQDN
	}
	label := styleTreeGuest.Render(name)
	if roles := displayRoles(g, excludePrefix); len(roles) > 0 {
		label += " " + StyleDim.Render(strings.Join(roles, ", "))
	}
	return label
}
