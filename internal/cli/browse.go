package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/kitchen/pkg/inventory"
	"github.com/matzehuels/kitchen/pkg/node"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
	envActiveStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorGreen).Underline(true)
	detailKeyStyle    = lipgloss.NewStyle().Foreground(colorGray).Width(10)
)

// allEnvs labels the unfiltered tab.
const allEnvs = "all"

// browseCommand starts the interactive node browser.
func (c *CLI) browseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Browse nodes interactively",
		Long: `Browse the nodes of the kitchen in the terminal.

tab / shift+tab cycle through environments, enter shows a node's details.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.newApp(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer a.Close()

			all, err := a.dash.Nodes(cmd.Context(), true)
			if err != nil {
				return err
			}
			m := newBrowseModel(a.dash.Plugins.InjectAll(all), a.cfg.Repo.DefaultEnv, a.cfg.Repo.ExcludeRolePrefix)
			_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
			return err
		},
	}
}

// =============================================================================
// browseModel - Interactive node browser
// =============================================================================

// browseModel is the bubbletea model of the node browser.
type browseModel struct {
	nodes         []node.Node
	envs          []string // allEnvs first, then every environment by name
	env           int
	visible       []node.Node
	links         inventory.LinkMap
	cursor        int
	offset        int
	height        int
	detail        bool
	excludePrefix string
}

func newBrowseModel(nodes []node.Node, defaultEnv, excludePrefix string) browseModel {
	m := browseModel{
		nodes:         nodes,
		envs:          []string{allEnvs},
		height:        15,
		excludePrefix: excludePrefix,
	}
	for _, e := range inventory.Environments(nodes) {
		m.envs = append(m.envs, e.Name)
		if e.Name == defaultEnv {
			m.env = len(m.envs) - 1
		}
	}
	m.selectEnv(m.env)
	return m
}

// selectEnv switches to the i-th environment tab and resets the cursor.
func (m *browseModel) selectEnv(i int) {
	m.env = (i + len(m.envs)) % len(m.envs)
	env := ""
	if m.env > 0 {
		env = m.envs[m.env]
	}
	m.visible = inventory.Filter(m.nodes, env, "", "")
	m.links = inventory.BuildLinks(m.visible)
	m.cursor, m.offset = 0, 0
	m.detail = false
}

func (m browseModel) Init() tea.Cmd {
	return nil
}

func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "esc":
			if !m.detail {
				return m, tea.Quit
			}
			m.detail = false
		case "tab", "right", "l":
			m.selectEnv(m.env + 1)
		case "shift+tab", "left", "h":
			m.selectEnv(m.env - 1)
		case "up", "k":
			if !m.detail && m.cursor > 0 {
				m.cursor--
				if m.cursor < m.offset {
					m.offset = m.cursor
				}
			}
		case "down", "j":
			if !m.detail && m.cursor < len(m.visible)-1 {
				m.cursor++
				if m.cursor >= m.offset+m.height {
					m.offset = m.cursor - m.height + 1
				}
			}
		case "enter":
			if len(m.visible) > 0 {
				m.detail = !m.detail
			}
		}
	case tea.WindowSizeMsg:
		m.height = max(msg.Height-8, 5)
	}
	return m, nil
}

func (m browseModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Kitchen"))
	b.WriteString("  ")
	for i, e := range m.envs {
		if i > 0 {
			b.WriteString(listDimStyle.Render(" · "))
		}
		if i == m.env {
			b.WriteString(envActiveStyle.Render(e))
		} else {
			b.WriteString(listDimStyle.Render(e))
		}
	}
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  tab env  ⏎ details  q quit"))
	b.WriteString("\n\n")

	if len(m.visible) == 0 {
		b.WriteString(listDimStyle.Render("  no nodes"))
		b.WriteString("\n")
		return b.String()
	}
	if m.detail {
		b.WriteString(m.detailView(m.visible[m.cursor]))
		return b.String()
	}

	end := min(m.offset+m.height, len(m.visible))
	for i := m.offset; i < end; i++ {
		n := m.visible[i]
		cursor := "  "
		if i == m.cursor {
			cursor = "▸ "
		}
		line := fmt.Sprintf("%s%-28s %-6s %s", cursor, n.Name, orDash(n.VirtRole()),
			listDimStyle.Render(strings.Join(displayRoles(n, m.excludePrefix), ", ")))
		if i == m.cursor {
			b.WriteString(listSelectedStyle.Render(line))
		} else {
			b.WriteString(listNormalStyle.Render(line))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.cursor+1, len(m.visible))))
	return b.String()
}

func (m browseModel) detailView(n node.Node) string {
	var b strings.Builder
	row := func(key, value string) {
		if value == "" {
			return
		}
		b.WriteString(detailKeyStyle.Render(key) + " " + StyleValue.Render(value) + "\n")
	}

	b.WriteString(listSelectedStyle.Render(n.Name))
	b.WriteString("\n\n")
	row("fqdn", n.FQDN)
	row("env", n.Env())
	row("roles", strings.Join(n.Roles, ", "))
	row("virt", n.VirtRole())
	row("tags", strings.Join(n.Tags, ", "))
	guests := make([]string, 0, len(n.Guests()))
	for _, g := range n.Guests() {
		guests = append(guests, g.FQDN)
	}
	row("guests", strings.Join(guests, ", "))
	if l, ok := m.links[n.Name]; ok {
		row("clients", joinLinkNames(l.ClientNodes))
		row("needs", joinLinkNames(l.NeedsNodes))
	}
	for _, l := range n.Links {
		b.WriteString(detailKeyStyle.Render(orDash(l.Title)) + " " + StyleLink.Render(l.URL) + "\n")
	}
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("esc back"))
	return b.String()
}

func joinLinkNames(links []inventory.Link) string {
	names := make([]string, 0, len(links))
	for _, l := range links {
		names = append(names, l.Name)
	}
	return strings.Join(names, ", ")
}
