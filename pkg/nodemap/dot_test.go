package nodemap

import (
	"strings"
	"testing"

	"github.com/matzehuels/kitchen/pkg/inventory"
	"github.com/matzehuels/kitchen/pkg/node"
)

func sampleNodes() []node.Node {
	return []node.Node{
		{Name: "db1", Roles: []string{"dbserver"}, Role: []string{"dbserver", "env_production"}},
		{Name: "web1", Roles: []string{"env_production", "webserver_v2"}, Role: []string{"webserver_v2"}},
		{Name: "lonely"},
	}
}

func sampleLinks() inventory.LinkMap {
	return inventory.LinkMap{
		"db1":  {ClientNodes: []inventory.Link{{Name: "web1", Attribute: "mysql"}}},
		"web1": {NeedsNodes: []inventory.Link{{Name: "db1", Attribute: "database"}, {Name: "elsewhere", Attribute: "cache"}}},
	}
}

func TestDescribe(t *testing.T) {
	opts := Options{ExcludeRolePrefix: "env", Colors: []string{"#FCD975", "#9ACEEB"}}
	desc := Describe(sampleNodes(), sampleLinks(), []string{"dbserver", "webserver"}, opts)

	if desc.Nodes != 3 || desc.Edges != 2 {
		t.Errorf("Nodes/Edges = %d/%d, want 3/2", desc.Nodes, desc.Edges)
	}

	wants := []string{
		`digraph G {`,
		`node [shape=box, style=filled, fillcolor=lightyellow, fontsize=8];`,
		`edge [fontsize=7];`,
		`"db1" [label="db1\ndbserver", fillcolor="#FCD975"];`,
		`"web1" [label="web1\nwebserver_v2", fillcolor="#9ACEEB"];`,
		`"lonely" [label="lonely"];`,
		`"web1" -> "db1" [label="mysql"];`,
		`"web1" -> "db1" [label="database", style=dashed];`,
	}
	for _, want := range wants {
		if !strings.Contains(desc.DOT, want) {
			t.Errorf("DOT missing %q\n%s", want, desc.DOT)
		}
	}
	if strings.Contains(desc.DOT, "elsewhere") {
		t.Errorf("DOT references node outside the input:\n%s", desc.DOT)
	}
	if strings.Contains(desc.DOT, "env_production") {
		t.Errorf("DOT shows excluded role:\n%s", desc.DOT)
	}
}

func TestDescribe_Clusters(t *testing.T) {
	nodes := append(sampleNodes(), node.Node{Name: "db2", Roles: []string{"dbserver_replica"}})
	desc := Describe(nodes, nil, []string{"dbserver", "webserver"}, Options{ExcludeRolePrefix: "env", Cluster: true})

	if got := strings.Count(desc.DOT, "subgraph"); got != 2 {
		t.Errorf("subgraphs = %d, want 2\n%s", got, desc.DOT)
	}
	db := strings.Index(desc.DOT, `subgraph "cluster_dbserver"`)
	end := strings.Index(desc.DOT[db:], "}")
	if db < 0 || !strings.Contains(desc.DOT[db:db+end], `"db2"`) {
		t.Errorf("db2 not clustered with dbserver:\n%s", desc.DOT)
	}
	if desc.Edges != 0 {
		t.Errorf("Edges = %d, want 0", desc.Edges)
	}
}

func TestDescribe_Empty(t *testing.T) {
	desc := Describe(nil, nil, nil, Options{})
	if !strings.HasPrefix(desc.DOT, "digraph G {") || !strings.HasSuffix(desc.DOT, "}\n") {
		t.Errorf("unexpected DOT for empty input:\n%s", desc.DOT)
	}
}

func TestLabel_FallsBackToRoles(t *testing.T) {
	n := node.Node{Name: "x", Roles: []string{"env_prod", "worker"}}
	if got := label(n, "env"); got != "x\nworker" {
		t.Errorf("label() = %q", got)
	}
}

func TestFillColor_Wraps(t *testing.T) {
	groups := []string{"a", "b", "c"}
	colors := []string{"red", "blue"}
	if got := fillColor("c", groups, colors); got != "red" {
		t.Errorf("fillColor(c) = %q, want red", got)
	}
	if got := fillColor("zzz", groups, colors); got != "" {
		t.Errorf("fillColor(unknown) = %q, want empty", got)
	}
}

func TestQuote(t *testing.T) {
	tests := map[string]string{
		"plain":      `"plain"`,
		`say "hi"`:   `"say \"hi\""`,
		"two\nlines": `"two\nlines"`,
		`back\slash`: `"back\\slash"`,
		"ünïcode":    `"ünïcode"`,
	}
	for in, want := range tests {
		if got := quote(in); got != want {
			t.Errorf("quote(%q) = %s, want %s", in, got, want)
		}
	}
}
