package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/kitchen/pkg/errors"
	"github.com/matzehuels/kitchen/pkg/node"
	"github.com/matzehuels/kitchen/pkg/observability"
)

// appliances are the directories every kitchen must have.
var appliances = []string{"nodes", "roles", "cookbooks", "data_bags"}

// extendedWorkers bounds concurrent data bag reads.
const extendedWorkers = 8

// Kitchen reads a LittleChef kitchen from disk.
type Kitchen struct {
	dir    string
	logger *log.Logger
}

// NewKitchen returns a store for the kitchen at dir.
// If logger is nil, log.Default() is used.
func NewKitchen(dir string, logger *log.Logger) *Kitchen {
	if logger == nil {
		logger = log.Default()
	}
	return &Kitchen{dir: dir, logger: logger}
}

// Dir returns the kitchen directory.
func (k *Kitchen) Dir() string { return k.dir }

// NodeBagDir returns the directory of the "node" data bag.
func (k *Kitchen) NodeBagDir() string {
	return filepath.Join(k.dir, "data_bags", "node")
}

// WatchDirs returns the directories whose changes affect loaded data.
func (k *Kitchen) WatchDirs() []string {
	return []string{
		filepath.Join(k.dir, string(KindNodes)),
		filepath.Join(k.dir, string(KindRoles)),
		k.NodeBagDir(),
	}
}

// Check verifies that dir is a complete kitchen. Failures are
// REPOSITORY_UNAVAILABLE errors whose message can be shown to users as is.
func (k *Kitchen) Check() error {
	if !isDir(k.dir) {
		return errors.New(errors.ErrCodeRepositoryUnavailable, "Repo dir doesn't exist at '%s'", k.dir)
	}

	var missing []string
	for _, name := range appliances {
		if !isDir(filepath.Join(k.dir, name)) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return errors.New(errors.ErrCodeRepositoryUnavailable, "Couldn't find %s.", joinAnd(missing))
	}

	if !isDir(k.NodeBagDir()) {
		return errors.New(errors.ErrCodeRepositoryUnavailable, "The 'node' data bag has not yet been built")
	}
	return nil
}

// Document is one raw JSON file of a kitchen directory.
type Document struct {
	Name string // file name without .json
	Path string
	Data []byte
}

// Load reads every document of the given kind, ordered by file name.
//
// Asking for a kind the kitchen does not know is a programming error: it is
// logged and yields no documents rather than failing the request.
func (k *Kitchen) Load(ctx context.Context, kind Kind) ([]Document, error) {
	if err := k.Check(); err != nil {
		return nil, err
	}
	switch kind {
	case KindNodes, KindRoles:
	default:
		k.logger.Error("unsupported data type", "kind", kind, "code", errors.ErrCodeUnsupportedDataType)
		return nil, nil
	}

	dir := filepath.Join(k.dir, string(kind))
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRepositoryUnavailable, err, "cannot list %s", dir)
	}

	var docs []Document
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".json") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeDataCorrupt, err, "cannot read %s", path)
		}
		docs = append(docs, Document{
			Name: strings.TrimSuffix(name, ".json"),
			Path: path,
			Data: data,
		})
	}
	return docs, nil
}

// FetchNodes implements Store. A node file without a name takes its file
// name.
func (k *Kitchen) FetchNodes(ctx context.Context) (nodes []node.Node, err error) {
	start := time.Now()
	defer func() {
		observability.Store().OnLoad(ctx, string(KindNodes), len(nodes), time.Since(start), err)
	}()

	docs, err := k.Load(ctx, KindNodes)
	if err != nil {
		return nil, err
	}

	nodes = make([]node.Node, 0, len(docs))
	for _, doc := range docs {
		n, err := node.Decode(doc.Data)
		if err != nil {
			return nil, corrupt(KindNodes, doc.Path, err)
		}
		if n.Name == "" {
			n.Name = doc.Name
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// FetchRoles implements Store.
func (k *Kitchen) FetchRoles(ctx context.Context) (roles []node.Role, err error) {
	start := time.Now()
	defer func() {
		observability.Store().OnLoad(ctx, string(KindRoles), len(roles), time.Since(start), err)
	}()

	docs, err := k.Load(ctx, KindRoles)
	if err != nil {
		return nil, err
	}

	roles = make([]node.Role, 0, len(docs))
	for _, doc := range docs {
		r, err := node.DecodeRole(doc.Data)
		if err != nil {
			return nil, corrupt(KindRoles, doc.Path, err)
		}
		if r.Name == "" {
			r.Name = doc.Name
		}
		roles = append(roles, r)
	}
	return roles, nil
}

// FetchExtendedNodes implements Store. Data bag items are read concurrently;
// the first failure cancels the remaining reads.
func (k *Kitchen) FetchExtendedNodes(ctx context.Context, nodes []node.Node) (out []node.Node, err error) {
	start := time.Now()
	defer func() {
		observability.Store().OnLoad(ctx, "extended", len(out), time.Since(start), err)
	}()

	if err := k.Check(); err != nil {
		return nil, err
	}

	out = make([]node.Node, len(nodes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(extendedWorkers)
	for i, n := range nodes {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ext, err := k.readNodeBagItem(n.Name)
			if err != nil {
				return err
			}
			out[i] = ext
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (k *Kitchen) readNodeBagItem(name string) (node.Node, error) {
	item := node.DataBagItem(name)
	path := filepath.Join(k.NodeBagDir(), item)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return node.Node{}, errors.New(errors.ErrCodeDataCorrupt,
			"'node' data bag was not generated correctly: item 'data_bags/node/%s' is missing", item)
	}
	if err != nil {
		return node.Node{}, errors.Wrap(errors.ErrCodeDataCorrupt, err, "cannot read %s", path)
	}

	n, err := node.Decode(data)
	if err != nil {
		return node.Node{}, errors.Wrap(errors.ErrCodeDataCorrupt, err,
			"LittleChef found the following error in %q", path)
	}
	if n.Name == "" {
		n.Name = name
	}
	return n, nil
}

// FetchNode implements Store.
func (k *Kitchen) FetchNode(ctx context.Context, name string) (node.Node, bool, error) {
	if err := errors.ValidateNodeName(name); err != nil {
		return node.Node{}, false, err
	}
	if err := k.Check(); err != nil {
		return node.Node{}, false, err
	}

	path := filepath.Join(k.dir, string(KindNodes), name+".json")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return node.Node{}, false, nil
	}
	if err != nil {
		return node.Node{}, false, errors.Wrap(errors.ErrCodeDataCorrupt, err, "cannot read %s", path)
	}

	n, err := node.Decode(data)
	if err != nil {
		return node.Node{}, false, corrupt(KindNodes, path, err)
	}
	if n.Name == "" {
		n.Name = name
	}
	return n, true, nil
}

func corrupt(kind Kind, path string, err error) error {
	return errors.Wrap(errors.ErrCodeDataCorrupt, err,
		"Error while loading %s files. Possibly a JSON syntax error in %s", kind, filepath.Base(path))
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// joinAnd renders ["a", "b", "c"] as "a, b and c".
func joinAnd(items []string) string {
	if len(items) < 2 {
		return strings.Join(items, "")
	}
	return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
}

var _ Store = (*Kitchen)(nil)
