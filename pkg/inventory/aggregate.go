package inventory

import (
	"slices"

	"github.com/matzehuels/kitchen/pkg/node"
)

// EnvironmentCount is the number of nodes in one environment.
type EnvironmentCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Environments counts nodes per environment, sorted by name. Nodes without
// chef_environment are counted under "none".
func Environments(nodes []node.Node) []EnvironmentCount {
	counts := make(map[string]int)
	for _, n := range nodes {
		counts[n.Env()]++
	}
	return sortedCounts(counts, func(name string, count int) EnvironmentCount {
		return EnvironmentCount{Name: name, Count: count}
	})
}

// RoleGroups returns the sorted, distinct group prefixes of roles, leaving
// out excludePrefix. The excluded prefix is conventionally the one used for
// roles that encode an environment ("env_production").
func RoleGroups(roles []node.Role, excludePrefix string) []string {
	seen := make(map[string]bool)
	var groups []string
	for _, r := range roles {
		g := r.Group()
		if g == excludePrefix || seen[g] {
			continue
		}
		seen[g] = true
		groups = append(groups, g)
	}
	slices.Sort(groups)
	return groups
}

// TagCount is the number of nodes carrying one tag.
type TagCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Tags counts nodes per tag, sorted by tag name.
func Tags(nodes []node.Node) []TagCount {
	counts := make(map[string]int)
	for _, n := range nodes {
		for _, tag := range n.Tags {
			counts[tag]++
		}
	}
	return sortedCounts(counts, func(name string, count int) TagCount {
		return TagCount{Name: name, Count: count}
	})
}

// VirtRoles returns the virtualization roles a filter can select.
func VirtRoles() []string {
	return []string{node.VirtHost, node.VirtGuest}
}

func sortedCounts[T any](counts map[string]int, mk func(string, int) T) []T {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	slices.Sort(names)

	out := make([]T, 0, len(names))
	for _, name := range names {
		out = append(out, mk(name, counts[name]))
	}
	return out
}
