// Package node defines the records read from a LittleChef kitchen.
//
// # Overview
//
// A kitchen is a configuration-management repository whose nodes and roles
// are plain JSON files. Their schema is owned by Chef and only partially known
// here, so [Node] keeps a small set of recognized fields as typed values and
// carries everything else verbatim in an ordered attribute map:
//
//	n, err := node.Decode(data)
//	fmt.Println(n.Name, n.Env(), n.VirtRole())
//	for _, p := range n.LinkPoints() {
//	    fmt.Println(p.Attribute, p.ClientRoles, p.NeedsRoles)
//	}
//
// Attribute order is the key order of the source document. Link derivation
// iterates attributes in that order, which keeps derived graphs stable from
// one request to the next.
//
// # Immutability
//
// Nodes handed out by a store are shared snapshots. Code that needs to attach
// per-request data (merged guest records, plugin links) works on a [Node.Clone]
// and never writes through to the original.
//
// # Roles and groups
//
// Role names are conventionally "<group>_<descriptor>". [Prefix] returns the
// group part and is the single definition of that convention used by the
// filter, the aggregator and the graph renderer.
package node
