package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"slices"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/kitchen/pkg/config"
	"github.com/matzehuels/kitchen/pkg/dashboard"
	"github.com/matzehuels/kitchen/pkg/errors"
)

// =============================================================================
// Query Flags
// =============================================================================

// queryFlags are the view filters shared by the inspection commands. They
// mirror the env, roles and virt URL parameters of the HTTP views.
type queryFlags struct {
	env   string
	roles string
	virt  string
}

func (f *queryFlags) register(cmd *cobra.Command, withVirt bool) {
	cmd.Flags().StringVar(&f.env, "env", "", "environment to show (default from config; empty shows all)")
	cmd.Flags().StringVar(&f.roles, "roles", "", "comma-separated role groups")
	if withVirt {
		cmd.Flags().StringVar(&f.virt, "virt", "", "comma-separated virtualization roles: host, guest (default from config)")
	}
}

// query builds the view query. Flags left unset take the configured
// defaults, exactly like missing URL parameters.
func (f *queryFlags) query(cmd *cobra.Command, repo config.Repo) dashboard.Query {
	v := url.Values{}
	if cmd.Flags().Changed("env") {
		v.Set("env", f.env)
	}
	if cmd.Flags().Changed("roles") {
		v.Set("roles", f.roles)
	}
	if cmd.Flags().Changed("virt") {
		v.Set("virt", f.virt)
	}
	return dashboard.ParseQuery(v, repo)
}

// =============================================================================
// Output Formats
// =============================================================================

const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

var outputFormats = []string{outputTable, outputJSON, outputYAML}

func addOutputFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, "output", "o", outputTable, "output format: table, json, yaml")
	_ = cmd.RegisterFlagCompletionFunc("output", cobra.FixedCompletions(outputFormats, cobra.ShellCompDirectiveNoFileComp))
}

func checkOutput(format string) error {
	if !slices.Contains(outputFormats, format) {
		return errors.New(errors.ErrCodeInvalidInput, "unknown output format %q", format)
	}
	return nil
}

// writeDocument writes v as JSON or YAML. It reports false for the table
// format, which each command renders itself.
func writeDocument(w io.Writer, format string, v any) (bool, error) {
	switch format {
	case outputJSON:
		return true, writeJSON(w, v)
	case outputYAML:
		return true, writeYAML(w, v)
	}
	return false, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeYAML goes through JSON so that custom JSON encodings, such as the
// ordered node attributes, carry over unchanged.
func writeYAML(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return err
	}
	blockStyle(&doc)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return err
	}
	return enc.Close()
}

// blockStyle drops the flow and quoting styles picked up from JSON input.
func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}

// =============================================================================
// Tables
// =============================================================================

var tableHeaderStyle = lipgloss.NewStyle().Foreground(colorGray).Bold(true)

// newTable returns the table style shared by all listing commands.
func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
}

// printMessages shows the notices attached to a view.
func printMessages(msgs []dashboard.Message) {
	for _, m := range msgs {
		if m.Level == dashboard.LevelError {
			printError("%s", m.Text)
			continue
		}
		printInfo("%s", m.Text)
	}
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
