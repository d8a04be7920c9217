package nodemap

import (
	"bytes"
	"fmt"
	"slices"
	"strings"

	"github.com/matzehuels/kitchen/pkg/inventory"
	"github.com/matzehuels/kitchen/pkg/node"
)

// DefaultFill colors nodes whose role group has no palette entry.
const DefaultFill = "lightyellow"

// Options configures DOT generation.
type Options struct {
	// ExcludeRolePrefix hides roles with this prefix from node labels.
	ExcludeRolePrefix string

	// Colors is the fill palette; role group i gets Colors[i % len(Colors)].
	Colors []string

	// Cluster draws one box around the nodes of each role group.
	Cluster bool
}

// Description is the DOT source of a node map.
type Description struct {
	DOT   string
	Nodes int
	Edges int
}

// Describe builds the node map for nodes. links must have been derived from
// the same nodes; edges to names not in nodes are skipped. groups is the
// sorted list of role groups used to pick colors.
//
// Client edges point from the client into the node it uses. Needs edges
// point from a node to what it needs and are dashed. Both are labeled with
// the attribute that declared them.
func Describe(nodes []node.Node, links inventory.LinkMap, groups []string, opts Options) Description {
	known := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		known[n.Name] = true
	}

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  node [shape=box, style=filled, fillcolor=" + DefaultFill + ", fontsize=8];\n")
	buf.WriteString("  edge [fontsize=7];\n")
	buf.WriteString("\n")

	if opts.Cluster {
		writeClusters(&buf, nodes, groups, opts)
	} else {
		for _, n := range nodes {
			writeNode(&buf, "  ", n, groups, opts)
		}
	}

	buf.WriteString("\n")
	edges := 0
	for _, n := range nodes {
		l, ok := links[n.Name]
		if !ok {
			continue
		}
		for _, c := range l.ClientNodes {
			if !known[c.Name] {
				continue
			}
			fmt.Fprintf(&buf, "  %s -> %s [label=%s];\n", quote(c.Name), quote(n.Name), quote(c.Attribute))
			edges++
		}
		for _, c := range l.NeedsNodes {
			if !known[c.Name] {
				continue
			}
			fmt.Fprintf(&buf, "  %s -> %s [label=%s, style=dashed];\n", quote(n.Name), quote(c.Name), quote(c.Attribute))
			edges++
		}
	}

	buf.WriteString("}\n")
	return Description{DOT: buf.String(), Nodes: len(nodes), Edges: edges}
}

func writeClusters(buf *bytes.Buffer, nodes []node.Node, groups []string, opts Options) {
	var order []string
	members := make(map[string][]node.Node)
	for _, n := range nodes {
		g := primaryGroup(n, opts.ExcludeRolePrefix)
		if _, seen := members[g]; !seen {
			order = append(order, g)
		}
		members[g] = append(members[g], n)
	}

	for _, g := range order {
		if g == "" {
			for _, n := range members[g] {
				writeNode(buf, "  ", n, groups, opts)
			}
			continue
		}
		fmt.Fprintf(buf, "  subgraph %s {\n", quote("cluster_"+g))
		fmt.Fprintf(buf, "    label=%s;\n", quote(g))
		buf.WriteString("    style=dashed;\n")
		for _, n := range members[g] {
			writeNode(buf, "    ", n, groups, opts)
		}
		buf.WriteString("  }\n")
	}
}

func writeNode(buf *bytes.Buffer, indent string, n node.Node, groups []string, opts Options) {
	attrs := []string{"label=" + quote(label(n, opts.ExcludeRolePrefix))}
	if fill := fillColor(primaryGroup(n, opts.ExcludeRolePrefix), groups, opts.Colors); fill != "" {
		attrs = append(attrs, "fillcolor="+quote(fill))
	}
	fmt.Fprintf(buf, "%s%s [%s];\n", indent, quote(n.Name), strings.Join(attrs, ", "))
}

// label is the node name followed by one line per displayed role.
func label(n node.Node, excludePrefix string) string {
	roles := n.Role
	if roles == nil {
		roles = n.Roles
	}
	lines := []string{n.Name}
	for _, r := range roles {
		if excludePrefix != "" && strings.HasPrefix(r, excludePrefix) {
			continue
		}
		lines = append(lines, r)
	}
	return strings.Join(lines, "\n")
}

// primaryGroup is the group of the node's first role outside the excluded
// prefix, or "" when there is none.
func primaryGroup(n node.Node, excludePrefix string) string {
	for _, r := range n.Roles {
		if g := node.Prefix(r); g != excludePrefix {
			return g
		}
	}
	return ""
}

func fillColor(group string, groups, colors []string) string {
	if group == "" || len(colors) == 0 {
		return ""
	}
	i := slices.Index(groups, group)
	if i < 0 {
		return ""
	}
	return colors[i%len(colors)]
}

// quote returns s as a DOT double-quoted string. Newlines become the \n
// escape, which Graphviz renders as a centered line break.
func quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
