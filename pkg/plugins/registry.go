package plugins

import (
	"fmt"
	"net/http"
	"slices"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/kitchen/pkg/errors"
	"github.com/matzehuels/kitchen/pkg/node"
)

// Injector decorates a node. Inject receives a copy it may modify freely and
// returns the decorated node.
type Injector interface {
	Name() string
	Inject(n node.Node) node.Node
}

// View serves plugin data over HTTP. Handle returns false when it has
// nothing to say about the request, which is reported as not found.
type View interface {
	Name() string
	Handle(r *http.Request, nodes []node.Node) (any, bool)
}

// Registry holds the known plugins and the enabled subset.
// It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	injectors map[string]Injector
	views     map[string]View
	enabled   []string
	logger    *log.Logger
}

// NewRegistry returns an empty registry. A nil logger uses log.Default().
func NewRegistry(logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.Default()
	}
	return &Registry{
		injectors: make(map[string]Injector),
		views:     make(map[string]View),
		logger:    logger,
	}
}

// RegisterInjector makes an injector available for enabling.
func (r *Registry) RegisterInjector(p Injector) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.injectors[p.Name()]; dup {
		return errors.New(errors.ErrCodeInvalidInput, "plugin %q registered twice", p.Name())
	}
	r.injectors[p.Name()] = p
	return nil
}

// RegisterView makes a view available for enabling.
func (r *Registry) RegisterView(v View) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.views[v.Name()]; dup {
		return errors.New(errors.ErrCodeInvalidInput, "plugin view %q registered twice", v.Name())
	}
	r.views[v.Name()] = v
	return nil
}

// Enable replaces the enabled set with names, in order. Unknown names are
// logged and skipped. It returns the names that were enabled.
func (r *Registry) Enable(names []string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.enabled = r.enabled[:0]
	for _, name := range names {
		_, isInjector := r.injectors[name]
		_, isView := r.views[name]
		if !isInjector && !isView {
			r.logger.Error(fmt.Sprintf("Could not load plugin '%s'", name), "reason", "not registered")
			continue
		}
		if slices.Contains(r.enabled, name) {
			continue
		}
		r.enabled = append(r.enabled, name)
	}
	r.logger.Debug("plugins enabled", "plugins", r.enabled)
	return slices.Clone(r.enabled)
}

// Enabled returns the enabled plugin names in the order they run.
func (r *Registry) Enabled() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.enabled)
}

// Registered returns the names of all registered plugins, sorted.
func (r *Registry) Registered() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var names []string
	for name := range r.injectors {
		names = append(names, name)
	}
	for name := range r.views {
		if _, ok := r.injectors[name]; !ok {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// View returns the enabled view with the given name.
func (r *Registry) View(name string) (View, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !slices.Contains(r.enabled, name) {
		return nil, false
	}
	v, ok := r.views[name]
	return v, ok
}

// InjectAll runs the enabled injectors over copies of nodes and returns the
// decorated copies. The input is not modified.
func (r *Registry) InjectAll(nodes []node.Node) []node.Node {
	r.mu.RLock()
	active := make([]Injector, 0, len(r.enabled))
	for _, name := range r.enabled {
		if p, ok := r.injectors[name]; ok {
			active = append(active, p)
		}
	}
	r.mu.RUnlock()

	out := make([]node.Node, len(nodes))
	for i, n := range nodes {
		n = n.Clone()
		for _, p := range active {
			n = r.inject(p, n)
		}
		out[i] = n
	}
	return out
}

// inject runs one injector on a copy of n. On panic the error is logged and
// n is returned unchanged.
func (r *Registry) inject(p Injector, n node.Node) (out node.Node) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error(fmt.Sprintf("Plugin '%s' had an error", p.Name()), "node", n.Name, "err", rec)
			out = n
		}
	}()
	return p.Inject(n.Clone())
}
