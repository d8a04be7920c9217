package inventory

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFilter(t *testing.T) {
	nodes := sampleKitchen(t)

	tests := []struct {
		name  string
		env   string
		roles string
		virt  string
		want  []string
	}{
		{"no criteria", "", "", "", []string{"host1", "web1", "db1", "stage1", "bare"}},
		{"environment", "production", "", "", []string{"host1", "web1", "db1"}},
		{"missing environment", "none", "", "", []string{"bare"}},
		{"unknown environment", "qa", "", "", []string{}},
		{"role group prefix", "", "webserver", "", []string{"web1", "stage1"}},
		{"any of roles", "", "webserver,dbserver", "", []string{"web1", "db1", "stage1"}},
		{"roles with spaces", "", " webserver , dbserver ", "", []string{"web1", "db1", "stage1"}},
		{"full role name is not a group", "", "webserver_v2", "", []string{}},
		{"hosts", "", "", "host", []string{"host1"}},
		{"guests include undeclared", "", "", "guest", []string{"web1", "db1", "stage1", "bare"}},
		{"both virt roles", "", "", "host,guest", []string{"host1", "web1", "db1", "stage1", "bare"}},
		{"combined", "production", "webserver", "guest", []string{"web1"}},
		{"empty list items ignored", "", ",", "", []string{"host1", "web1", "db1", "stage1", "bare"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := names(Filter(nodes, tt.env, tt.roles, tt.virt))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Filter() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFilter_RoleGroupsKeepOrder(t *testing.T) {
	nodes := mustNodes(t,
		`{"name": "a", "roles": ["webserver_v1"]}`,
		`{"name": "b", "roles": ["dbserver"]}`,
		`{"name": "c", "roles": ["worker"]}`,
	)
	got := names(Filter(nodes, "", "webserver,dbserver", ""))
	if diff := cmp.Diff([]string{"a", "b"}, got); diff != "" {
		t.Errorf("Filter() mismatch (-want +got):\n%s", diff)
	}
}

func TestFilter_Idempotent(t *testing.T) {
	nodes := sampleKitchen(t)
	for _, env := range []string{"", "production", "staging", "none"} {
		once := Filter(nodes, env, "", "")
		twice := Filter(once, env, "", "")
		if diff := cmp.Diff(names(once), names(twice)); diff != "" {
			t.Errorf("env %q: second pass changed result (-once +twice):\n%s", env, diff)
		}
	}
}

func TestFilter_NodeWithoutRoles(t *testing.T) {
	nodes := mustNodes(t, `{"name": "x"}`)
	if got := Filter(nodes, "", "webserver", ""); len(got) != 0 {
		t.Errorf("node without roles matched role filter: %v", names(got))
	}
	if got := Filter(nodes, "", "", "host"); len(got) != 0 {
		t.Errorf("node without virtualization matched host filter: %v", names(got))
	}
}

func TestFilter_EmptyInput(t *testing.T) {
	got := Filter(nil, "production", "", "")
	if got == nil || len(got) != 0 {
		t.Errorf("Filter(nil) = %#v, want empty slice", got)
	}
}

func TestParseCriteria(t *testing.T) {
	c := ParseCriteria(" production ", "a, b,,", "guest")
	want := Criteria{Environment: "production", Roles: []string{"a", "b"}, VirtRoles: []string{"guest"}}
	if diff := cmp.Diff(want, c); diff != "" {
		t.Errorf("ParseCriteria() mismatch (-want +got):\n%s", diff)
	}
	if c.IsEmpty() {
		t.Error("IsEmpty() = true for populated criteria")
	}
	if !ParseCriteria("", " , ", "").IsEmpty() {
		t.Error("IsEmpty() = false for blank criteria")
	}
}
