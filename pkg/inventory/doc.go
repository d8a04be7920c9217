// Package inventory implements the dashboard's view logic over a set of
// kitchen nodes: filtering, host/guest grouping, link derivation and summary
// aggregation.
//
// # Overview
//
// Every function in this package is a pure transformation. Inputs are never
// modified; where a result needs augmented nodes (a host carrying its merged
// guest records) the package works on clones. No function fails on missing
// optional fields: a node without roles simply matches no role filter, a node
// without virtualization data is treated as an undeclared guest.
//
// The typical request flow is:
//
//	envs := inventory.Environments(nodes)             // before filtering
//	groups := inventory.RoleGroups(roles, "env")
//	shown := inventory.Filter(nodes, "production", "webserver,dbserver", "")
//	links := inventory.BuildLinks(shown)
//
// and, for the virtualization view:
//
//	hosts := inventory.GroupByHost(inventory.Filter(nodes, env, "", ""), roles)
//
// # Filters
//
// Role filters match on role groups: the part of a role name before the first
// underscore. "webserver" matches nodes with role "webserver" and
// "webserver_v2". Virtualization filters accept "host" and "guest"; a node
// that declares no virtualization role counts as a guest.
//
// # Links
//
// Nodes declare relationships inside their attributes:
//
//	"mysql": {"client_roles": ["webserver"]}
//	"queue": {"needs_roles": ["dbserver"]}
//
// [BuildLinks] resolves these role names against the other nodes it is given
// and reports client and needs edges per node. Nodes outside the given set are
// never referenced, so links always stay within the current filter.
package inventory
