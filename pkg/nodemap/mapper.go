package nodemap

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/kitchen/pkg/cache"
	"github.com/matzehuels/kitchen/pkg/errors"
	"github.com/matzehuels/kitchen/pkg/inventory"
	"github.com/matzehuels/kitchen/pkg/node"
)

// DefaultTimeout bounds a render when Mapper.Timeout is unset.
const DefaultTimeout = 10 * time.Second

// Mapper renders node maps with caching.
//
// The Mapper is stateless apart from its cache; one instance can serve
// concurrent requests.
type Mapper struct {
	Renderer  Renderer
	Cache     cache.Cache
	Keyer     cache.Keyer
	Logger    *log.Logger
	Options   Options
	Format    string
	Timeout   time.Duration
	TTL       time.Duration
	StaticDir string
}

// NewMapper returns a Mapper with defaults for unset dependencies: a nil
// cache disables caching and a nil keyer uses cache.DefaultKeyer.
func NewMapper(r Renderer, c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Mapper {
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Mapper{
		Renderer: r,
		Cache:    c,
		Keyer:    keyer,
		Logger:   logger,
		Format:   FormatSVG,
		Timeout:  DefaultTimeout,
	}
}

// Artifact is a rendered node map.
type Artifact struct {
	Data   []byte
	Format string
	DOT    string
	Nodes  int
	Edges  int
	Cached bool
}

// Describe builds the DOT source for nodes with the mapper's options.
func (m *Mapper) Describe(nodes []node.Node, roles []node.Role) Description {
	return m.DescribeLinks(nodes, inventory.BuildLinks(nodes), roles)
}

// DescribeLinks is Describe with links already derived from nodes.
func (m *Mapper) DescribeLinks(nodes []node.Node, links inventory.LinkMap, roles []node.Role) Description {
	groups := inventory.RoleGroups(roles, m.Options.ExcludeRolePrefix)
	return Describe(nodes, links, groups, m.Options)
}

// Render produces the node map of nodes in the given format, or in
// m.Format when format is empty.
func (m *Mapper) Render(ctx context.Context, nodes []node.Node, roles []node.Role, format string) (*Artifact, error) {
	return m.RenderLinks(ctx, nodes, inventory.BuildLinks(nodes), roles, format)
}

// RenderLinks is Render with links already derived from nodes.
func (m *Mapper) RenderLinks(ctx context.Context, nodes []node.Node, links inventory.LinkMap, roles []node.Role, format string) (*Artifact, error) {
	if format == "" {
		format = m.Format
	}
	desc := m.DescribeLinks(nodes, links, roles)
	art := &Artifact{Format: format, DOT: desc.DOT, Nodes: desc.Nodes, Edges: desc.Edges}

	key := m.Keyer.ArtifactKey(cache.Hash([]byte(desc.DOT)), cache.ArtifactKeyOpts{
		Format: format,
		Engine: m.Renderer.Name(),
	})
	if data, ok, err := m.Cache.Get(ctx, key); err != nil {
		m.Logger.Warn("artifact cache read failed", "err", err)
	} else if ok {
		m.Logger.Debug("node map cache hit", "format", format)
		art.Data, art.Cached = data, true
		return art, nil
	}

	timeout := m.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	start := time.Now()
	data, err := Render(ctx, m.Renderer, desc.DOT, format, timeout)
	if err != nil {
		return nil, err
	}
	m.Logger.Info("rendered node map",
		"engine", m.Renderer.Name(),
		"format", format,
		"nodes", desc.Nodes,
		"edges", desc.Edges,
		"duration", time.Since(start))

	if err := m.Cache.Set(ctx, key, data, m.TTL); err != nil {
		m.Logger.Warn("artifact cache write failed", "err", err)
	}
	art.Data = data
	return art, nil
}

// FileName returns the name the node map is published under.
func FileName(format string) string {
	return "node_map." + format
}

// Generate renders the node map and writes it to StaticDir. It returns
// (true, path) on success and (false, message) otherwise, where message can
// be shown to the user.
func (m *Mapper) Generate(ctx context.Context, nodes []node.Node, roles []node.Role) (bool, string) {
	art, err := m.Render(ctx, nodes, roles, "")
	if err != nil {
		m.Logger.Error("node map generation failed", "code", errors.GetCode(err), "err", err)
		return false, errors.UserMessage(err)
	}
	path, err := m.Publish(art)
	if err != nil {
		return false, errors.UserMessage(err)
	}
	return true, path
}

// Publish writes art to StaticDir under [FileName] and returns its path.
func (m *Mapper) Publish(art *Artifact) (string, error) {
	path := filepath.Join(m.StaticDir, FileName(art.Format))
	if err := writeFileAtomic(path, art.Data); err != nil {
		m.Logger.Error("cannot write node map", "path", path, "err", err)
		return "", errors.Wrap(errors.ErrCodeRenderFailure, err, "Could not save the node map")
	}
	return path, nil
}

func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".node_map-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
