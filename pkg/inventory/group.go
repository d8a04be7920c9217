package inventory

import (
	"github.com/matzehuels/kitchen/pkg/node"
)

// GroupByHost returns the virtualization hosts among nodes, each carrying
// only the guests that pass rolesFilter.
//
// A host's declared guest stubs are matched by fqdn against the guest nodes
// (nodes whose virtualization role is "guest" or undeclared) that satisfy
// rolesFilter. Matched stubs are merged with the guest record, guest fields
// winning; unmatched stubs are dropped. When rolesFilter is empty every host
// is returned, otherwise only hosts left with at least one guest.
//
// Hosts in the result are clones; nodes is left untouched.
func GroupByHost(nodes []node.Node, rolesFilter string) []node.Node {
	hosts := FilterBy(nodes, Criteria{VirtRoles: []string{node.VirtHost}})
	guestCriteria := Criteria{
		Roles:     splitList(rolesFilter),
		VirtRoles: []string{node.VirtGuest},
	}
	guests := FilterBy(nodes, guestCriteria)

	byFQDN := make(map[string]node.Node, len(guests))
	for _, g := range guests {
		if g.FQDN == "" {
			continue
		}
		if _, seen := byFQDN[g.FQDN]; !seen {
			byFQDN[g.FQDN] = g
		}
	}

	showAll := len(guestCriteria.Roles) == 0
	out := make([]node.Node, 0, len(hosts))
	for _, h := range hosts {
		stubs := h.Guests()
		kept := make([]node.Node, 0, len(stubs))
		for _, stub := range stubs {
			if stub.FQDN == "" {
				continue
			}
			if g, ok := byFQDN[stub.FQDN]; ok {
				kept = append(kept, node.Merge(stub, g))
			}
		}
		if !showAll && len(kept) == 0 {
			continue
		}

		host := h.Clone()
		host.Virtualization.Guests = kept
		out = append(out, host)
	}
	return out
}
