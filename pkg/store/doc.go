// Package store reads nodes and roles from a LittleChef kitchen.
//
// A kitchen is a directory with this layout:
//
//	nodes/<name>.json           one file per node
//	roles/<role>.json           one file per role
//	cookbooks/
//	data_bags/node/<item>.json  merged node data, built by `fix node_data_bag`
//
// [Kitchen] implements [Store] directly on the filesystem. [Snapshots] keeps
// a point-in-time copy of everything a dashboard request needs and reloads it
// only after the kitchen changed: on [Snapshots.Invalidate] (called after a
// repository sync) or on a filesystem event seen by [Snapshots.Watch].
//
// Every request sees one complete snapshot. A reload that races with a
// request never produces a mix of old and new nodes.
package store
