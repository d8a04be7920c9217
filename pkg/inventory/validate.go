package inventory

import (
	"github.com/matzehuels/kitchen/pkg/errors"
	"github.com/matzehuels/kitchen/pkg/node"
)

// Validate checks the invariants the rest of this package relies on: every
// node has a name and no name appears twice. A violation means the store
// produced a bad snapshot, so it is reported as an internal error.
func Validate(nodes []node.Node) error {
	seen := make(map[string]int, len(nodes))
	for i, n := range nodes {
		if n.Name == "" {
			return errors.New(errors.ErrCodeInternal, "node at position %d has no name", i)
		}
		if prev, dup := seen[n.Name]; dup {
			return errors.New(errors.ErrCodeInternal, "node %q appears at positions %d and %d", n.Name, prev, i)
		}
		seen[n.Name] = i
	}
	return nil
}
