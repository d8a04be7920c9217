package inventory

import (
	"testing"

	"github.com/matzehuels/kitchen/pkg/node"
)

func mustNodes(t *testing.T, docs ...string) []node.Node {
	t.Helper()
	nodes := make([]node.Node, 0, len(docs))
	for _, doc := range docs {
		n, err := node.Decode([]byte(doc))
		if err != nil {
			t.Fatalf("Decode(%s): %v", doc, err)
		}
		nodes = append(nodes, n)
	}
	return nodes
}

func names(nodes []node.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Name)
	}
	return out
}

// sampleKitchen mirrors a small LittleChef kitchen: two environments, a
// virtualization host with two declared guests, and a node without an
// environment or virtualization data.
func sampleKitchen(t *testing.T) []node.Node {
	return mustNodes(t,
		`{"name": "host1", "fqdn": "host1.example.com", "chef_environment": "production",
		  "roles": ["vmhost"],
		  "virtualization": {"role": "host", "system": "kvm",
		    "guests": [{"fqdn": "web1.example.com", "state": "running"},
		               {"fqdn": "db1.example.com"},
		               {"fqdn": "ghost.example.com"}]}}`,
		`{"name": "web1", "fqdn": "web1.example.com", "chef_environment": "production",
		  "roles": ["webserver_v2", "env_production"],
		  "virtualization": {"role": "guest"}}`,
		`{"name": "db1", "fqdn": "db1.example.com", "chef_environment": "production",
		  "roles": ["dbserver"],
		  "mysql": {"client_roles": ["webserver_v2"]}}`,
		`{"name": "stage1", "fqdn": "stage1.example.com", "chef_environment": "staging",
		  "roles": ["webserver"]}`,
		`{"name": "bare"}`,
	)
}
