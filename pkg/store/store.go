package store

import (
	"context"

	"github.com/matzehuels/kitchen/pkg/node"
)

// Store provides kitchen data to the dashboard.
type Store interface {
	// FetchNodes returns every node, ordered by file name.
	FetchNodes(ctx context.Context) ([]node.Node, error)

	// FetchExtendedNodes returns the merged data bag record of each given
	// node, in the same order. The whole batch fails on the first missing
	// or unreadable record.
	FetchExtendedNodes(ctx context.Context, nodes []node.Node) ([]node.Node, error)

	// FetchRoles returns every role, ordered by file name.
	FetchRoles(ctx context.Context) ([]node.Role, error)

	// FetchNode returns a single node. ok is false when it does not exist.
	FetchNode(ctx context.Context, name string) (n node.Node, ok bool, err error)
}

// Kind selects a record directory for [Kitchen.Load].
type Kind string

// Record kinds.
const (
	KindNodes Kind = "nodes"
	KindRoles Kind = "roles"
)
