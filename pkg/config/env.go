package config

import (
	"strconv"
	"strings"

	"github.com/matzehuels/kitchen/pkg/errors"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "KITCHEN_"

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

type envBinding struct {
	name  string
	apply func(c *Config, v string) error
}

func str(get func(*Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*get(c) = v
		return nil
	}
}

func boolean(get func(*Config) *bool) func(*Config, string) error {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*get(c) = b
		return nil
	}
}

func duration(get func(*Config) *Duration) func(*Config, string) error {
	return func(c *Config, v string) error {
		return get(c).UnmarshalText([]byte(v))
	}
}

func list(get func(*Config) *[]string) func(*Config, string) error {
	return func(c *Config, v string) error {
		var out []string
		for _, item := range strings.Split(v, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
		*get(c) = out
		return nil
	}
}

var envBindings = []envBinding{
	{"REPO_NAME", str(func(c *Config) *string { return &c.Repo.Name })},
	{"REPO_URL", str(func(c *Config) *string { return &c.Repo.URL })},
	{"REPO_BASE_PATH", str(func(c *Config) *string { return &c.Repo.BasePath })},
	{"REPO_KITCHEN_SUBDIR", str(func(c *Config) *string { return &c.Repo.KitchenSubdir })},
	{"REPO_SYNC_PERIOD", duration(func(c *Config) *Duration { return &c.Repo.SyncPeriod })},
	{"REPO_DEFAULT_ENV", str(func(c *Config) *string { return &c.Repo.DefaultEnv })},
	{"REPO_DEFAULT_VIRT", str(func(c *Config) *string { return &c.Repo.DefaultVirt })},
	{"DASHBOARD_PLUGINS", list(func(c *Config) *[]string { return &c.Dashboard.Plugins })},
	{"DASHBOARD_STATIC_DIR", str(func(c *Config) *string { return &c.Dashboard.StaticDir })},
	{"DASHBOARD_SHOW_VIRT_VIEW", boolean(func(c *Config) *bool { return &c.Dashboard.ShowVirtView })},
	{"DASHBOARD_MONITORING_URL", str(func(c *Config) *string { return &c.Dashboard.MonitoringURL })},
	{"GRAPH_ENGINE", str(func(c *Config) *string { return &c.Graph.Engine })},
	{"GRAPH_FORMAT", str(func(c *Config) *string { return &c.Graph.Format })},
	{"GRAPH_RENDER_TIMEOUT", duration(func(c *Config) *Duration { return &c.Graph.RenderTimeout })},
	{"GRAPH_CLUSTER", boolean(func(c *Config) *bool { return &c.Graph.Cluster })},
	{"CACHE_BACKEND", str(func(c *Config) *string { return &c.Cache.Backend })},
	{"CACHE_DIR", str(func(c *Config) *string { return &c.Cache.Dir })},
	{"CACHE_REDIS_ADDR", str(func(c *Config) *string { return &c.Cache.RedisAddr })},
	{"CACHE_TTL", duration(func(c *Config) *Duration { return &c.Cache.TTL })},
	{"SERVER_ADDR", str(func(c *Config) *string { return &c.Server.Addr })},
	{"SERVER_SYNCDATE_FILE", str(func(c *Config) *string { return &c.Server.SyncdateFile })},
}

// ApplyEnv overrides cfg with KITCHEN_* variables found through lookup.
// Lists are comma separated; booleans use strconv.ParseBool syntax.
func ApplyEnv(cfg *Config, lookup LookupFunc) error {
	for _, b := range envBindings {
		name := EnvPrefix + b.name
		v, ok := lookup(name)
		if !ok {
			continue
		}
		if err := b.apply(cfg, v); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid value for %s", name)
		}
	}
	return nil
}

// EnvNames lists every supported environment variable.
func EnvNames() []string {
	names := make([]string, len(envBindings))
	for i, b := range envBindings {
		names[i] = EnvPrefix + b.name
	}
	return names
}
