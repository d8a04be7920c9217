// Package cache stores rendered node map artifacts.
//
// A node map only changes when the kitchen does, so the rendered SVG or PNG
// is cached under a hash of its DOT source. Three backends implement [Cache]:
//
//   - [NullCache]: caching disabled
//   - [FileCache]: one JSON entry file per key under a local directory
//   - [RedisCache]: shared cache for several dashboard instances
//
// Use [Open] to build the backend selected in the configuration, and a
// [Keyer] to derive keys.
package cache

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/matzehuels/kitchen/pkg/config"
	"github.com/matzehuels/kitchen/pkg/errors"
)

// Cache stores opaque byte values under string keys.
//
// Get reports a miss with ok=false and a nil error; errors are reserved for
// backend failures. A zero ttl in Set means the entry does not expire.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Clearer is implemented by caches that can drop every entry they own.
type Clearer interface {
	Clear(ctx context.Context) (int, error)
}

// DefaultDir returns the per-user cache directory: $XDG_CACHE_HOME/kitchen,
// or ~/.cache/kitchen when XDG_CACHE_HOME is unset.
func DefaultDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, "kitchen"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", "kitchen"), nil
}

// Open returns the backend selected by cfg.
func Open(ctx context.Context, cfg config.Cache) (Cache, error) {
	switch cfg.Backend {
	case config.CacheNone:
		return NewNullCache(), nil
	case config.CacheFile, "":
		dir := cfg.Dir
		if dir == "" {
			var err error
			if dir, err = DefaultDir(); err != nil {
				return nil, errors.Wrap(errors.ErrCodeInternal, err, "cannot locate cache directory")
			}
		}
		c, err := NewFileCache(dir)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "cannot create cache directory %s", dir)
		}
		return c, nil
	case config.CacheRedis:
		c, err := NewRedisCache(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "cannot connect to redis at %s", cfg.RedisAddr)
		}
		return c, nil
	default:
		return nil, errors.New(errors.ErrCodeInvalidInput, "unknown cache backend %q", cfg.Backend)
	}
}
