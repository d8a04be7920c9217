package inventory

import (
	"slices"

	"github.com/matzehuels/kitchen/pkg/node"
)

// Link points at another node through one of the declaring node's attributes.
type Link struct {
	Name      string `json:"name"`
	Attribute string `json:"attribute"`
}

// Links holds the edges derived for one node.
//
// ClientNodes are nodes that use this node: edges are drawn from the client
// into this node. NeedsNodes are nodes this node depends on: edges are drawn
// from this node outward.
type Links struct {
	ClientNodes []Link `json:"client_nodes,omitempty"`
	NeedsNodes  []Link `json:"needs_nodes,omitempty"`
}

// IsEmpty reports whether l holds no edges.
func (l Links) IsEmpty() bool {
	return len(l.ClientNodes) == 0 && len(l.NeedsNodes) == 0
}

// LinkMap maps a node name to its derived links. Nodes without links are
// absent.
type LinkMap map[string]Links

// EdgeCount returns the total number of client and needs edges.
func (m LinkMap) EdgeCount() int {
	total := 0
	for _, l := range m {
		total += len(l.ClientNodes) + len(l.NeedsNodes)
	}
	return total
}

// Names returns the nodes that have links, sorted.
func (m LinkMap) Names() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// BuildLinks derives the link graph between nodes.
//
// For every node N and every object attribute A of N declaring client_roles,
// each other node M with a role in that list becomes a client of N through A.
// needs_roles works the same way and records M as needed by N. Role names are
// compared exactly. Entries follow attribute order, then node order, so the
// result is stable for a given input.
//
// This is quadratic in the number of nodes, which is fine for kitchens of a
// few hundred nodes rendered per request.
func BuildLinks(nodes []node.Node) LinkMap {
	out := make(LinkMap)
	for i, n := range nodes {
		var l Links
		for _, p := range n.LinkPoints() {
			l.ClientNodes = appendMatches(l.ClientNodes, nodes, i, p.ClientRoles, p.Attribute)
			l.NeedsNodes = appendMatches(l.NeedsNodes, nodes, i, p.NeedsRoles, p.Attribute)
		}
		if !l.IsEmpty() {
			out[n.Name] = l
		}
	}
	return out
}

// appendMatches appends a link to every node other than nodes[self] holding
// one of roles.
func appendMatches(dst []Link, nodes []node.Node, self int, roles []string, attr string) []Link {
	if len(roles) == 0 {
		return dst
	}
	for j, m := range nodes {
		if j == self {
			continue
		}
		if intersects(roles, m.Roles) {
			dst = append(dst, Link{Name: m.Name, Attribute: attr})
		}
	}
	return dst
}

func intersects(a, b []string) bool {
	for _, s := range a {
		if slices.Contains(b, s) {
			return true
		}
	}
	return false
}
