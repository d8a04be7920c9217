package store

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/kitchen/pkg/node"
	"github.com/matzehuels/kitchen/pkg/observability"
)

// loadTimeout bounds a shared snapshot load.
const loadTimeout = time.Minute

// Snapshot is a consistent view of the kitchen at one point in time.
// Callers must treat it as read-only.
type Snapshot struct {
	Nodes    []node.Node // node files as written
	Extended []node.Node // merged data bag records, same order as Nodes
	Roles    []node.Role
	LoadedAt time.Time
}

// Node looks up a node by name in the extended records.
func (s *Snapshot) Node(name string) (node.Node, bool) {
	for _, n := range s.Extended {
		if n.Name == name {
			return n, true
		}
	}
	return node.Node{}, false
}

// Snapshots caches the kitchen snapshot of a Store.
//
// Concurrent callers that find no snapshot share one load. A failed load is
// not cached, so the next call retries.
type Snapshots struct {
	store  Store
	logger *log.Logger

	current    atomic.Pointer[Snapshot]
	generation atomic.Uint64
	loads      singleflight.Group
}

// NewSnapshots wraps s. If logger is nil, log.Default() is used.
func NewSnapshots(s Store, logger *log.Logger) *Snapshots {
	if logger == nil {
		logger = log.Default()
	}
	return &Snapshots{store: s, logger: logger}
}

// Store returns the wrapped store.
func (s *Snapshots) Store() Store { return s.store }

// Snapshot returns the current snapshot, loading it if needed.
func (s *Snapshots) Snapshot(ctx context.Context) (*Snapshot, error) {
	if snap := s.current.Load(); snap != nil {
		return snap, nil
	}

	// The shared load must outlive any single caller; each caller still
	// stops waiting when its own ctx is done.
	ch := s.loads.DoChan("snapshot", func() (any, error) {
		if snap := s.current.Load(); snap != nil {
			return snap, nil
		}
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()

		gen := s.generation.Load()
		snap, err := s.load(loadCtx)
		if err != nil {
			return nil, err
		}
		// An invalidation during the load means snap may already be stale:
		// hand it to this caller but do not keep it.
		if s.generation.Load() == gen {
			s.current.Store(snap)
		}
		return snap, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Snapshot), nil
	}
}

func (s *Snapshots) load(ctx context.Context) (*Snapshot, error) {
	start := time.Now()

	nodes, err := s.store.FetchNodes(ctx)
	if err != nil {
		return nil, err
	}
	extended, err := s.store.FetchExtendedNodes(ctx, nodes)
	if err != nil {
		return nil, err
	}
	roles, err := s.store.FetchRoles(ctx)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("loaded kitchen snapshot",
		"nodes", len(nodes),
		"roles", len(roles),
		"duration", time.Since(start))

	return &Snapshot{
		Nodes:    nodes,
		Extended: extended,
		Roles:    roles,
		LoadedAt: time.Now(),
	}, nil
}

// Invalidate drops the current snapshot; the next Snapshot call reloads.
func (s *Snapshots) Invalidate(ctx context.Context, reason string) {
	s.generation.Add(1)
	if s.current.Swap(nil) != nil {
		s.logger.Debug("kitchen snapshot invalidated", "reason", reason)
	}
	observability.Store().OnInvalidate(ctx, reason)
}

// Watch invalidates the snapshot whenever one of dirs changes, until ctx is
// done. Directories that do not exist are skipped with a warning.
func (s *Snapshots) Watch(ctx context.Context, dirs []string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	watched := 0
	for _, dir := range dirs {
		if err := w.Add(dir); err != nil {
			s.logger.Warn("cannot watch directory", "dir", dir, "err", err)
			continue
		}
		watched++
	}
	s.logger.Debug("watching kitchen", "dirs", watched)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
				continue
			}
			s.Invalidate(ctx, "fsnotify")
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("watch error", "err", err)
		}
	}
}
