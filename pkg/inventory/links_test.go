package inventory

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestBuildLinks_ClientRoles(t *testing.T) {
	nodes := mustNodes(t,
		`{"name": "h1", "roles": ["dbserver"], "mysql": {"client_roles": ["webserver"]}}`,
		`{"name": "w1", "roles": ["webserver"]}`,
	)
	want := LinkMap{
		"h1": {ClientNodes: []Link{{Name: "w1", Attribute: "mysql"}}},
	}
	if diff := cmp.Diff(want, BuildLinks(nodes)); diff != "" {
		t.Errorf("BuildLinks() mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildLinks_NeedsRoles(t *testing.T) {
	nodes := mustNodes(t,
		`{"name": "app", "roles": ["app"], "queue": {"needs_roles": ["broker"]}, "cache": {"needs_roles": ["redis", "broker"]}}`,
		`{"name": "mq1", "roles": ["broker"]}`,
		`{"name": "mq2", "roles": ["broker", "redis"]}`,
	)
	want := LinkMap{
		"app": {NeedsNodes: []Link{
			{Name: "mq1", Attribute: "queue"},
			{Name: "mq2", Attribute: "queue"},
			{Name: "mq1", Attribute: "cache"},
			{Name: "mq2", Attribute: "cache"},
		}},
	}
	if diff := cmp.Diff(want, BuildLinks(nodes)); diff != "" {
		t.Errorf("BuildLinks() mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildLinks_ExcludesSelf(t *testing.T) {
	nodes := mustNodes(t,
		`{"name": "peer", "roles": ["cluster"], "gossip": {"client_roles": ["cluster"]}}`,
	)
	if got := BuildLinks(nodes); len(got) != 0 {
		t.Errorf("BuildLinks() = %v, want no links", got)
	}
}

func TestBuildLinks_MalformedListKeepsSibling(t *testing.T) {
	nodes := mustNodes(t,
		`{"name": "app", "roles": ["app"], "svc": {"client_roles": "web", "needs_roles": ["dbserver"]}}`,
		`{"name": "db", "roles": ["dbserver"]}`,
	)
	want := LinkMap{
		"app": {NeedsNodes: []Link{{Name: "db", Attribute: "svc"}}},
	}
	if diff := cmp.Diff(want, BuildLinks(nodes)); diff != "" {
		t.Errorf("BuildLinks() mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildLinks_NonStringEntriesSkipped(t *testing.T) {
	nodes := mustNodes(t,
		`{"name": "app", "roles": ["app"], "svc": {"needs_roles": ["dbserver", 1, null]}}`,
		`{"name": "db", "roles": ["dbserver"]}`,
	)
	want := LinkMap{
		"app": {NeedsNodes: []Link{{Name: "db", Attribute: "svc"}}},
	}
	if diff := cmp.Diff(want, BuildLinks(nodes)); diff != "" {
		t.Errorf("BuildLinks() mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildLinks_IgnoresMalformedDeclarations(t *testing.T) {
	nodes := mustNodes(t,
		`{"name": "a", "roles": ["x"], "scalar": "client_roles", "list": ["client_roles"], "bad": {"client_roles": "x"}}`,
		`{"name": "b", "roles": ["x"]}`,
	)
	if got := BuildLinks(nodes); len(got) != 0 {
		t.Errorf("BuildLinks() = %v, want no links", got)
	}
}

func TestBuildLinks_ScopedToInput(t *testing.T) {
	nodes := sampleKitchen(t)
	filtered := Filter(nodes, "staging", "", "")
	if got := BuildLinks(filtered); len(got) != 0 {
		t.Errorf("BuildLinks(staging) = %v, want no links", got)
	}

	all := BuildLinks(nodes)
	inInput := make(map[string]bool)
	for _, n := range nodes {
		inInput[n.Name] = true
	}
	for from, l := range all {
		if !inInput[from] {
			t.Errorf("link source %q not in input", from)
		}
		for _, link := range append(l.ClientNodes, l.NeedsNodes...) {
			if !inInput[link.Name] {
				t.Errorf("link target %q not in input", link.Name)
			}
		}
	}
	if all.EdgeCount() != 1 {
		t.Errorf("EdgeCount() = %d, want 1", all.EdgeCount())
	}
}

func TestLinkMap_Names(t *testing.T) {
	m := LinkMap{
		"web1": {ClientNodes: []Link{{Name: "lb1", Attribute: "apache2"}}},
		"db1":  {ClientNodes: []Link{{Name: "web1", Attribute: "mysql"}}},
		"lb1":  {NeedsNodes: []Link{{Name: "web1", Attribute: "haproxy"}}},
	}
	if diff := cmp.Diff([]string{"db1", "lb1", "web1"}, m.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
	if got := (LinkMap{}).Names(); len(got) != 0 {
		t.Errorf("Names() on empty map = %v", got)
	}
}

func TestBuildLinks_Deterministic(t *testing.T) {
	nodes := sampleKitchen(t)
	first := BuildLinks(nodes)
	for i := 0; i < 5; i++ {
		if diff := cmp.Diff(first, BuildLinks(nodes)); diff != "" {
			t.Fatalf("run %d differs (-first +got):\n%s", i, diff)
		}
	}
}
