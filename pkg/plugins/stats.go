package plugins

import (
	"net/http"

	"github.com/matzehuels/kitchen/pkg/inventory"
	"github.com/matzehuels/kitchen/pkg/node"
)

// StatsData is the response of the stats view.
type StatsData struct {
	Nodes        int                          `json:"nodes"`
	Environments []inventory.EnvironmentCount `json:"environments"`
	VirtRoles    map[string]int               `json:"virt_roles"`
	Tags         []inventory.TagCount         `json:"tags"`
	Links        int                          `json:"links"`
}

// Stats summarizes the kitchen. The optional env query parameter restricts
// it to one environment.
type Stats struct{}

// Name implements View.
func (Stats) Name() string { return NameStats }

// Handle implements View.
func (Stats) Handle(r *http.Request, nodes []node.Node) (any, bool) {
	if env := r.URL.Query().Get("env"); env != "" {
		nodes = inventory.Filter(nodes, env, "", "")
	}

	virt := map[string]int{node.VirtHost: 0, node.VirtGuest: 0}
	for _, n := range nodes {
		if n.VirtRole() == node.VirtHost {
			virt[node.VirtHost]++
		} else {
			virt[node.VirtGuest]++
		}
	}

	return StatsData{
		Nodes:        len(nodes),
		Environments: inventory.Environments(nodes),
		VirtRoles:    virt,
		Tags:         inventory.Tags(nodes),
		Links:        inventory.BuildLinks(nodes).EdgeCount(),
	}, true
}
