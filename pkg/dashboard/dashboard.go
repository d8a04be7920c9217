package dashboard

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/kitchen/pkg/config"
	"github.com/matzehuels/kitchen/pkg/errors"
	"github.com/matzehuels/kitchen/pkg/inventory"
	"github.com/matzehuels/kitchen/pkg/node"
	"github.com/matzehuels/kitchen/pkg/nodemap"
	"github.com/matzehuels/kitchen/pkg/plugins"
	"github.com/matzehuels/kitchen/pkg/store"
)

// User-facing messages.
const (
	MsgNoNodes   = "There are no nodes that fit the supplied criteria."
	MsgSelectEnv = "Please select an environment"
)

// Message levels.
const (
	LevelInfo  = "info"
	LevelError = "error"
)

// Message is a notice shown alongside a view.
type Message struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

// Dashboard computes view data from the current kitchen snapshot.
//
// The Dashboard holds no per-request state; one instance serves concurrent
// requests.
type Dashboard struct {
	Snapshots *store.Snapshots
	Plugins   *plugins.Registry
	Mapper    *nodemap.Mapper
	Config    *config.Config
	Logger    *log.Logger
}

// New returns a Dashboard over snaps. A nil registry enables no plugins, a
// nil mapper renders in-process without caching, a nil config uses
// config.Default() and a nil logger uses log.Default().
func New(snaps *store.Snapshots, reg *plugins.Registry, mapper *nodemap.Mapper, cfg *config.Config, logger *log.Logger) *Dashboard {
	if logger == nil {
		logger = log.Default()
	}
	if cfg == nil {
		cfg = config.Default()
	}
	if reg == nil {
		reg = plugins.NewRegistry(logger)
	}
	if mapper == nil {
		mapper = nodemap.NewMapper(nodemap.GraphvizRenderer{}, nil, nil, logger)
	}
	return &Dashboard{
		Snapshots: snaps,
		Plugins:   reg,
		Mapper:    mapper,
		Config:    cfg,
		Logger:    logger,
	}
}

// snapshot loads the current snapshot and checks the node contract once.
func (d *Dashboard) snapshot(ctx context.Context) (*store.Snapshot, error) {
	snap, err := d.Snapshots.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if err := inventory.Validate(snap.Extended); err != nil {
		return nil, err
	}
	return snap, nil
}

// =============================================================================
// List view
// =============================================================================

// ListData backs the node list.
type ListData struct {
	Filter       Query                        `json:"filter"`
	Environments []inventory.EnvironmentCount `json:"environments"`
	RoleGroups   []string                     `json:"roles_groups"`
	VirtRoles    []string                     `json:"virt_roles"`
	Tags         []inventory.TagCount         `json:"tags"`
	Nodes        []node.Node                  `json:"nodes"`
	ShowVirt     bool                         `json:"show_virt"`
	Messages     []Message                    `json:"messages,omitempty"`
}

// List returns the nodes matching q. Environment counts cover all nodes so
// the user can switch to any of them.
func (d *Dashboard) List(ctx context.Context, q Query) (*ListData, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	snap, err := d.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	data := &ListData{
		Filter:       q,
		Environments: inventory.Environments(snap.Extended),
		RoleGroups:   inventory.RoleGroups(snap.Roles, d.Config.Repo.ExcludeRolePrefix),
		VirtRoles:    inventory.VirtRoles(),
		Tags:         inventory.Tags(snap.Extended),
		ShowVirt:     d.Config.Dashboard.ShowVirtView,
	}
	data.Nodes = d.Plugins.InjectAll(inventory.FilterBy(snap.Extended, q.Criteria()))
	if len(data.Nodes) == 0 {
		data.Messages = append(data.Messages, Message{LevelInfo, MsgNoNodes})
	}

	d.Logger.Debug("list view", "env", q.Env, "roles", q.Roles, "virt", q.Virt, "nodes", len(data.Nodes))
	return data, nil
}

// =============================================================================
// Virtualization view
// =============================================================================

// VirtData backs the host/guest view.
type VirtData struct {
	Filter        Query                        `json:"filter"`
	Environments  []inventory.EnvironmentCount `json:"environments"`
	RoleGroups    []string                     `json:"roles_groups"`
	Hosts         []node.Node                  `json:"hosts"`
	ShowHostNames bool                         `json:"show_host_names"`
	Messages      []Message                    `json:"messages,omitempty"`
}

// Virt returns the hosts of q.Env with their guests. q.Roles restricts the
// guests shown; q.Virt is ignored.
func (d *Dashboard) Virt(ctx context.Context, q Query) (*VirtData, error) {
	if !d.Config.Dashboard.ShowVirtView {
		return nil, errors.New(errors.ErrCodeNotFound, "The virtualization view is disabled")
	}
	snap, err := d.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	q.Virt = ""
	inEnv := inventory.FilterBy(snap.Extended, inventory.ParseCriteria(q.Env, "", ""))
	data := &VirtData{
		Filter:        q,
		Environments:  inventory.Environments(snap.Extended),
		RoleGroups:    inventory.RoleGroups(snap.Roles, d.Config.Repo.ExcludeRolePrefix),
		Hosts:         d.Plugins.InjectAll(inventory.GroupByHost(inEnv, q.Roles)),
		ShowHostNames: d.Config.Dashboard.ShowHostNames,
	}
	if len(data.Hosts) == 0 {
		data.Messages = append(data.Messages, Message{LevelInfo, MsgNoNodes})
	}
	return data, nil
}

// =============================================================================
// Graph view
// =============================================================================

// GraphData backs the node map view.
type GraphData struct {
	Filter       Query                        `json:"filter"`
	Environments []inventory.EnvironmentCount `json:"environments"`
	RoleGroups   []string                     `json:"roles_groups"`
	Nodes        []node.Node                  `json:"nodes"`
	Links        inventory.LinkMap            `json:"links"`
	Format       string                       `json:"format,omitempty"`
	Image        string                       `json:"image,omitempty"` // published file, empty when rendering failed
	Edges        int                          `json:"edges"`
	Messages     []Message                    `json:"messages,omitempty"`
}

// Graph renders the node map of the guests matching q and publishes it to
// the static directory. An empty environment selects nothing. A rendering
// failure is reported in the returned messages rather than as an error so
// the rest of the view can still be shown.
func (d *Dashboard) Graph(ctx context.Context, q Query, format string) (*GraphData, error) {
	q = q.forGraph()
	snap, err := d.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	data := &GraphData{
		Filter:       q,
		Environments: inventory.Environments(snap.Extended),
		RoleGroups:   inventory.RoleGroups(snap.Roles, d.Config.Repo.ExcludeRolePrefix),
		Nodes:        []node.Node{},
		Links:        inventory.LinkMap{},
	}
	if q.Env == "" {
		data.Messages = append(data.Messages, Message{LevelInfo, MsgSelectEnv})
		return data, nil
	}

	data.Nodes = inventory.FilterBy(snap.Extended, q.Criteria())
	data.Links = inventory.BuildLinks(data.Nodes)
	data.Edges = data.Links.EdgeCount()

	art, err := d.Mapper.RenderLinks(ctx, data.Nodes, data.Links, snap.Roles, format)
	if err == nil {
		data.Format = art.Format
		data.Image, err = d.Mapper.Publish(art)
	}
	if err != nil {
		if errors.Is(err, errors.ErrCodeInvalidInput) {
			return nil, err
		}
		d.Logger.Error("node map unavailable", "code", errors.GetCode(err), "err", err)
		data.Messages = append(data.Messages, Message{LevelError, errors.UserMessage(err)})
	}
	return data, nil
}

// GraphImage renders the node map for q without publishing it.
func (d *Dashboard) GraphImage(ctx context.Context, q Query, format string) (*nodemap.Artifact, error) {
	nodes, snap, err := d.graphNodes(ctx, q)
	if err != nil {
		return nil, err
	}
	return d.Mapper.Render(ctx, nodes, snap.Roles, format)
}

// GraphDOT returns the DOT source of the node map for q.
func (d *Dashboard) GraphDOT(ctx context.Context, q Query) (nodemap.Description, error) {
	nodes, snap, err := d.graphNodes(ctx, q)
	if err != nil {
		return nodemap.Description{}, err
	}
	return d.Mapper.Describe(nodes, snap.Roles), nil
}

// Links returns the guests matching q and the relationships between them.
func (d *Dashboard) Links(ctx context.Context, q Query) ([]node.Node, inventory.LinkMap, error) {
	nodes, _, err := d.graphNodes(ctx, q)
	if err != nil {
		return nil, nil, err
	}
	return nodes, inventory.BuildLinks(nodes), nil
}

// graphNodes selects the nodes drawn on the node map. An empty environment
// selects nothing.
func (d *Dashboard) graphNodes(ctx context.Context, q Query) ([]node.Node, *store.Snapshot, error) {
	q = q.forGraph()
	snap, err := d.snapshot(ctx)
	if err != nil {
		return nil, nil, err
	}
	if q.Env == "" {
		return nil, snap, nil
	}
	return inventory.FilterBy(snap.Extended, q.Criteria()), snap, nil
}

// =============================================================================
// Data API
// =============================================================================

// Nodes returns every node as written in the node files, or the merged data
// bag records when extended is set.
func (d *Dashboard) Nodes(ctx context.Context, extended bool) ([]node.Node, error) {
	snap, err := d.Snapshots.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if extended {
		return snap.Extended, nil
	}
	return snap.Nodes, nil
}

// Node returns the extended record of one node, decorated by plugins.
func (d *Dashboard) Node(ctx context.Context, name string) (node.Node, error) {
	if err := errors.ValidateNodeName(name); err != nil {
		return node.Node{}, err
	}
	snap, err := d.Snapshots.Snapshot(ctx)
	if err != nil {
		return node.Node{}, err
	}
	n, ok := snap.Node(name)
	if !ok {
		return node.Node{}, errors.New(errors.ErrCodeNotFound, "Node '%s' not found", name)
	}
	return d.Plugins.InjectAll([]node.Node{n})[0], nil
}

// Roles returns every role in the kitchen.
func (d *Dashboard) Roles(ctx context.Context) ([]node.Role, error) {
	snap, err := d.Snapshots.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Roles, nil
}

// Plugin answers a request for the enabled plugin view name.
func (d *Dashboard) Plugin(ctx context.Context, r *http.Request, name string) (any, error) {
	view, ok := d.Plugins.View(name)
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "Plugin '%s' is not enabled", name)
	}
	snap, err := d.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	data, ok := view.Handle(r, snap.Extended)
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "Plugin '%s' has nothing to show", name)
	}
	return data, nil
}

// LoadedAt returns when the current snapshot was read from disk.
func (d *Dashboard) LoadedAt(ctx context.Context) (time.Time, error) {
	snap, err := d.Snapshots.Snapshot(ctx)
	if err != nil {
		return time.Time{}, err
	}
	return snap.LoadedAt, nil
}
