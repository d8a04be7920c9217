package inventory

import (
	"slices"
	"strings"

	"github.com/matzehuels/kitchen/pkg/node"
)

// Criteria selects nodes by environment, role group and virtualization role.
// Empty fields impose no constraint; non-empty fields are AND-combined.
type Criteria struct {
	Environment string   // exact chef_environment ("none" for nodes without one)
	Roles       []string // role-group prefixes, any of which must match
	VirtRoles   []string // subset of {"host", "guest"}
}

// ParseCriteria builds Criteria from the comma-separated values a request
// carries. Whitespace around items is ignored, as are empty items.
func ParseCriteria(env, roles, virtRoles string) Criteria {
	return Criteria{
		Environment: strings.TrimSpace(env),
		Roles:       splitList(roles),
		VirtRoles:   splitList(virtRoles),
	}
}

// IsEmpty reports whether c matches every node.
func (c Criteria) IsEmpty() bool {
	return c.Environment == "" && len(c.Roles) == 0 && len(c.VirtRoles) == 0
}

// Match reports whether n satisfies every constraint in c.
func (c Criteria) Match(n node.Node) bool {
	if c.Environment != "" && n.Env() != c.Environment {
		return false
	}
	if len(c.Roles) > 0 && !c.matchRoles(n) {
		return false
	}
	if len(c.VirtRoles) > 0 && !c.matchVirt(n) {
		return false
	}
	return true
}

func (c Criteria) matchRoles(n node.Node) bool {
	for _, group := range n.RoleGroups() {
		if slices.Contains(c.Roles, group) {
			return true
		}
	}
	return false
}

// matchVirt accepts a node whose role is listed, or whose role is undeclared
// while guests are requested.
func (c Criteria) matchVirt(n node.Node) bool {
	role := n.VirtRole()
	if role == "" {
		return slices.Contains(c.VirtRoles, node.VirtGuest)
	}
	return slices.Contains(c.VirtRoles, role)
}

// Filter returns the nodes matching env, roles and virtRoles, in input order.
// roles and virtRoles are comma-separated lists; see [ParseCriteria].
func Filter(nodes []node.Node, env, roles, virtRoles string) []node.Node {
	return FilterBy(nodes, ParseCriteria(env, roles, virtRoles))
}

// FilterBy returns the nodes matching c, in input order. The result is a new
// slice; the nodes themselves are not copied.
func FilterBy(nodes []node.Node, c Criteria) []node.Node {
	out := make([]node.Node, 0, len(nodes))
	for _, n := range nodes {
		if c.Match(n) {
			out = append(out, n)
		}
	}
	return out
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
