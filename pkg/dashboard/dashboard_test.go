package dashboard

import (
	"context"
	"io"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/kitchen/pkg/config"
	"github.com/matzehuels/kitchen/pkg/errors"
	"github.com/matzehuels/kitchen/pkg/inventory"
	"github.com/matzehuels/kitchen/pkg/node"
	"github.com/matzehuels/kitchen/pkg/nodemap"
	"github.com/matzehuels/kitchen/pkg/plugins"
	"github.com/matzehuels/kitchen/pkg/store"
)

var kitchenFiles = map[string]string{
	"nodes/host1.json":  `{"name": "host1"}`,
	"nodes/web1.json":   `{"name": "web1"}`,
	"nodes/db1.json":    `{"name": "db1"}`,
	"nodes/stage1.json": `{"name": "stage1"}`,

	"data_bags/node/host1.json": `{"name": "host1", "fqdn": "host1.example.com", "chef_environment": "production",
		"roles": ["vmhost"], "recipes": ["kvm", "haproxy::app_lb"],
		"virtualization": {"role": "host", "guests": [{"fqdn": "web1.example.com"}, {"fqdn": "db1.example.com"}]}}`,
	"data_bags/node/web1.json": `{"name": "web1", "fqdn": "web1.example.com", "chef_environment": "production",
		"roles": ["webserver_v2", "env_production"], "virtualization": {"role": "guest"}}`,
	"data_bags/node/db1.json": `{"name": "db1", "fqdn": "db1.example.com", "chef_environment": "production",
		"roles": ["dbserver"], "tags": ["WIP"], "virtualization": {"role": "guest"},
		"mysql": {"client_roles": ["webserver_v2"]}}`,
	"data_bags/node/stage1.json": `{"name": "stage1", "fqdn": "stage1.example.com", "chef_environment": "staging",
		"roles": ["webserver"]}`,

	"roles/dbserver.json":       `{"name": "dbserver"}`,
	"roles/env_production.json": `{"name": "env_production"}`,
	"roles/vmhost.json":         `{"name": "vmhost"}`,
	"roles/webserver.json":      `{"name": "webserver"}`,
}

func writeKitchen(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for _, d := range []string{"nodes", "roles", "cookbooks", "data_bags/node"} {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, filepath.FromSlash(name)), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

// stubRenderer echoes the DOT source it is given.
type stubRenderer struct {
	err   error
	calls int
}

func (r *stubRenderer) Name() string { return "stub" }

func (r *stubRenderer) Render(ctx context.Context, dot, format string) ([]byte, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return []byte(dot), nil
}

func newTestDashboard(t *testing.T, r nodemap.Renderer, enable ...string) *Dashboard {
	t.Helper()
	logger := log.New(io.Discard)
	cfg := config.Default()
	cfg.Dashboard.StaticDir = t.TempDir()

	reg := plugins.NewRegistry(logger)
	if err := plugins.RegisterBuiltins(reg, cfg.Dashboard); err != nil {
		t.Fatal(err)
	}
	reg.Enable(enable)

	mapper := nodemap.NewMapper(r, nil, nil, logger)
	mapper.StaticDir = cfg.Dashboard.StaticDir

	snaps := store.NewSnapshots(store.NewKitchen(writeKitchen(t, kitchenFiles), logger), logger)
	return New(snaps, reg, mapper, cfg, logger)
}

func nodeNames(nodes []node.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Name)
	}
	return out
}

func defaultQuery() Query {
	return ParseQuery(url.Values{}, config.Default().Repo)
}

func TestParseQuery(t *testing.T) {
	repo := config.Default().Repo

	tests := []struct {
		raw  string
		want Query
	}{
		{"", Query{Env: "production", Virt: "guest"}},
		{"env=staging&roles=webserver", Query{Env: "staging", Roles: "webserver", Virt: "guest"}},
		{"env=&virt=", Query{}},
		{"virt=host,guest", Query{Env: "production", Virt: "host,guest"}},
	}
	for _, tt := range tests {
		v, _ := url.ParseQuery(tt.raw)
		if diff := cmp.Diff(tt.want, ParseQuery(v, repo)); diff != "" {
			t.Errorf("ParseQuery(%q) mismatch (-want +got):\n%s", tt.raw, diff)
		}
	}

	q := Query{Roles: "dbserver"}
	if got := ParseQuery(q.Values(), repo); got != q {
		t.Errorf("Values() round trip = %+v, want %+v", got, q)
	}
}

func TestList(t *testing.T) {
	d := newTestDashboard(t, &stubRenderer{})
	data, err := d.List(context.Background(), defaultQuery())
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}

	if diff := cmp.Diff([]string{"db1", "web1"}, nodeNames(data.Nodes)); diff != "" {
		t.Errorf("nodes mismatch (-want +got):\n%s", diff)
	}
	wantEnvs := []inventory.EnvironmentCount{{Name: "production", Count: 3}, {Name: "staging", Count: 1}}
	if diff := cmp.Diff(wantEnvs, data.Environments); diff != "" {
		t.Errorf("environments mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"dbserver", "vmhost", "webserver"}, data.RoleGroups); diff != "" {
		t.Errorf("role groups mismatch (-want +got):\n%s", diff)
	}
	if len(data.Tags) != 1 || data.Tags[0].Name != "WIP" {
		t.Errorf("tags = %+v", data.Tags)
	}
	if !data.ShowVirt || len(data.Messages) != 0 {
		t.Errorf("ShowVirt=%v Messages=%v", data.ShowVirt, data.Messages)
	}
}

func TestList_NoMatches(t *testing.T) {
	d := newTestDashboard(t, &stubRenderer{})
	data, err := d.List(context.Background(), Query{Env: "qa"})
	if err != nil {
		t.Fatal(err)
	}
	if len(data.Nodes) != 0 {
		t.Errorf("nodes = %v", nodeNames(data.Nodes))
	}
	want := []Message{{LevelInfo, MsgNoNodes}}
	if diff := cmp.Diff(want, data.Messages); diff != "" {
		t.Errorf("messages mismatch (-want +got):\n%s", diff)
	}
	if len(data.Environments) != 2 {
		t.Errorf("environments should not depend on the filter: %+v", data.Environments)
	}
}

func TestList_NoFilter(t *testing.T) {
	d := newTestDashboard(t, &stubRenderer{})
	data, err := d.List(context.Background(), Query{})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"db1", "host1", "stage1", "web1"}, nodeNames(data.Nodes)); diff != "" {
		t.Errorf("nodes mismatch (-want +got):\n%s", diff)
	}
}

func TestList_InvalidVirt(t *testing.T) {
	d := newTestDashboard(t, &stubRenderer{})
	_, err := d.List(context.Background(), Query{Virt: "container"})
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("err = %v, want INVALID_INPUT", err)
	}
}

func TestList_PluginLinks(t *testing.T) {
	d := newTestDashboard(t, &stubRenderer{}, plugins.NameMonitoring)
	data, err := d.List(context.Background(), Query{Env: "staging"})
	if err != nil {
		t.Fatal(err)
	}
	want := []node.ExternalLink{{
		URL:   "http://monitoring.mydomain.com/stage1.example.com",
		Title: "monitoring",
		Img:   "http://munin-monitoring.org/static/munin.png",
	}}
	if diff := cmp.Diff(want, data.Nodes[0].Links); diff != "" {
		t.Errorf("links mismatch (-want +got):\n%s", diff)
	}

	raw, err := d.Nodes(context.Background(), true)
	if err != nil {
		t.Fatal(err)
	}
	for _, n := range raw {
		if len(n.Links) != 0 {
			t.Errorf("plugin links leaked into the snapshot: %s", n.Name)
		}
	}
}

func TestList_RepositoryUnavailable(t *testing.T) {
	logger := log.New(io.Discard)
	snaps := store.NewSnapshots(store.NewKitchen(filepath.Join(t.TempDir(), "missing"), logger), logger)
	d := New(snaps, nil, nil, nil, logger)

	_, err := d.List(context.Background(), defaultQuery())
	if !errors.Is(err, errors.ErrCodeRepositoryUnavailable) {
		t.Fatalf("err = %v, want REPOSITORY_UNAVAILABLE", err)
	}
}

func TestVirt(t *testing.T) {
	d := newTestDashboard(t, &stubRenderer{}, plugins.NameHAProxy)
	ctx := context.Background()

	data, err := d.Virt(ctx, defaultQuery())
	if err != nil {
		t.Fatalf("Virt() error: %v", err)
	}
	if len(data.Hosts) != 1 || data.Hosts[0].Name != "host1" {
		t.Fatalf("hosts = %v", nodeNames(data.Hosts))
	}
	host := data.Hosts[0]
	if diff := cmp.Diff([]string{"web1", "db1"}, nodeNames(host.Guests())); diff != "" {
		t.Errorf("guests mismatch (-want +got):\n%s", diff)
	}
	if len(host.Links) != 1 || host.Links[0].URL != "http://host1.example.com:22002" {
		t.Errorf("host links = %+v", host.Links)
	}
	if data.Filter.Virt != "" {
		t.Errorf("virt filter should be ignored, got %q", data.Filter.Virt)
	}

	data, err = d.Virt(ctx, Query{Env: "production", Roles: "dbserver"})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"db1"}, nodeNames(data.Hosts[0].Guests())); diff != "" {
		t.Errorf("filtered guests mismatch (-want +got):\n%s", diff)
	}

	data, err = d.Virt(ctx, Query{Env: "staging"})
	if err != nil {
		t.Fatal(err)
	}
	if len(data.Hosts) != 0 || len(data.Messages) != 1 {
		t.Errorf("staging: hosts=%v messages=%v", nodeNames(data.Hosts), data.Messages)
	}
}

func TestVirt_Disabled(t *testing.T) {
	d := newTestDashboard(t, &stubRenderer{})
	d.Config.Dashboard.ShowVirtView = false
	if _, err := d.Virt(context.Background(), defaultQuery()); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("err = %v, want NOT_FOUND", err)
	}
}

func TestGraph(t *testing.T) {
	r := &stubRenderer{}
	d := newTestDashboard(t, r)

	data, err := d.Graph(context.Background(), Query{Env: "production", Virt: "host"}, "")
	if err != nil {
		t.Fatalf("Graph() error: %v", err)
	}
	if data.Filter.Virt != node.VirtGuest {
		t.Errorf("graph should force guests, filter = %+v", data.Filter)
	}
	if diff := cmp.Diff([]string{"db1", "web1"}, nodeNames(data.Nodes)); diff != "" {
		t.Errorf("nodes mismatch (-want +got):\n%s", diff)
	}
	if data.Edges != 1 || len(data.Links["db1"].ClientNodes) != 1 {
		t.Errorf("links = %+v", data.Links)
	}
	if want := filepath.Join(d.Config.Dashboard.StaticDir, "node_map.svg"); data.Image != want {
		t.Errorf("Image = %q, want %q", data.Image, want)
	}
	if _, err := os.Stat(data.Image); err != nil {
		t.Errorf("node map not published: %v", err)
	}
	if len(data.Messages) != 0 {
		t.Errorf("messages = %v", data.Messages)
	}
}

func TestGraph_NoEnvironment(t *testing.T) {
	r := &stubRenderer{}
	d := newTestDashboard(t, r)

	data, err := d.Graph(context.Background(), Query{}, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(data.Nodes) != 0 || data.Image != "" {
		t.Errorf("nodes=%v image=%q", nodeNames(data.Nodes), data.Image)
	}
	if diff := cmp.Diff([]Message{{LevelInfo, MsgSelectEnv}}, data.Messages); diff != "" {
		t.Errorf("messages mismatch (-want +got):\n%s", diff)
	}
	if r.calls != 0 {
		t.Errorf("renderer called %d times", r.calls)
	}
}

func TestGraph_RenderFailureIsAMessage(t *testing.T) {
	d := newTestDashboard(t, &stubRenderer{err: io.ErrUnexpectedEOF})
	data, err := d.Graph(context.Background(), Query{Env: "production"}, "")
	if err != nil {
		t.Fatalf("Graph() error: %v", err)
	}
	if len(data.Nodes) != 2 {
		t.Errorf("nodes should still be listed: %v", nodeNames(data.Nodes))
	}
	want := []Message{{LevelError, "Could not render the node map"}}
	if diff := cmp.Diff(want, data.Messages); diff != "" {
		t.Errorf("messages mismatch (-want +got):\n%s", diff)
	}
}

func TestGraph_BadFormat(t *testing.T) {
	d := newTestDashboard(t, &stubRenderer{})
	if _, err := d.Graph(context.Background(), Query{Env: "production"}, "gif"); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("err = %v, want INVALID_INPUT", err)
	}
}

func TestGraphImage(t *testing.T) {
	d := newTestDashboard(t, &stubRenderer{})
	d.Mapper.Timeout = time.Second

	art, err := d.GraphImage(context.Background(), Query{Env: "production"}, nodemap.FormatPNG)
	if err != nil {
		t.Fatal(err)
	}
	if art.Format != nodemap.FormatPNG || art.Nodes != 2 {
		t.Errorf("artifact = %s with %d nodes", art.Format, art.Nodes)
	}
	if _, err := os.Stat(filepath.Join(d.Config.Dashboard.StaticDir, "node_map.png")); !os.IsNotExist(err) {
		t.Error("GraphImage() published the image")
	}
}

func TestGraphDOTAndLinks(t *testing.T) {
	r := &stubRenderer{}
	d := newTestDashboard(t, r)
	ctx := context.Background()

	desc, err := d.GraphDOT(ctx, Query{Env: "production"})
	if err != nil {
		t.Fatal(err)
	}
	if desc.Nodes != 2 || desc.Edges != 1 || !strings.HasPrefix(desc.DOT, "digraph") {
		t.Errorf("GraphDOT() = %+v", desc)
	}

	nodes, links, err := d.Links(ctx, Query{Env: "production", Roles: "webserver"})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"web1"}, nodeNames(nodes)); diff != "" {
		t.Errorf("nodes mismatch (-want +got):\n%s", diff)
	}
	if links.EdgeCount() != 0 {
		t.Errorf("links outside the selection should be dropped: %+v", links)
	}

	if nodes, _, err := d.Links(ctx, Query{}); err != nil || len(nodes) != 0 {
		t.Errorf("Links() without env = %v, %v", nodeNames(nodes), err)
	}
	if r.calls != 0 {
		t.Errorf("renderer called %d times", r.calls)
	}
}

func TestNodeAndRoles(t *testing.T) {
	d := newTestDashboard(t, &stubRenderer{})
	ctx := context.Background()

	n, err := d.Node(ctx, "db1")
	if err != nil || n.FQDN != "db1.example.com" {
		t.Errorf("Node(db1) = %v, %v", n, err)
	}
	if _, err := d.Node(ctx, "nope"); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("Node(nope) err = %v", err)
	}
	if _, err := d.Node(ctx, "../etc"); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Node(../etc) err = %v", err)
	}

	plain, err := d.Nodes(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if plain[0].FQDN != "" {
		t.Errorf("plain nodes should not carry data bag fields: %+v", plain[0])
	}

	roles, err := d.Roles(ctx)
	if err != nil || len(roles) != 4 {
		t.Errorf("Roles() = %d roles, %v", len(roles), err)
	}
}

func TestPlugin(t *testing.T) {
	ctx := context.Background()
	req := httptest.NewRequest("GET", "/plugins/stats", nil)

	d := newTestDashboard(t, &stubRenderer{})
	if _, err := d.Plugin(ctx, req, plugins.NameStats); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("disabled plugin err = %v", err)
	}

	d = newTestDashboard(t, &stubRenderer{}, plugins.NameStats)
	data, err := d.Plugin(ctx, req, plugins.NameStats)
	if err != nil {
		t.Fatal(err)
	}
	if s := data.(plugins.StatsData); s.Nodes != 4 || s.Links != 1 {
		t.Errorf("stats = %+v", s)
	}
}
