// Package config loads the dashboard configuration.
//
// Configuration comes from three layers, later layers winning:
//
//  1. built-in defaults ([Default])
//  2. a TOML file, by default kitchen.toml in the working directory
//  3. KITCHEN_* environment variables ([ApplyEnv])
//
// CLI flags are applied by the caller on top of the result. [Config.Validate]
// must be called once all layers are in place; [Load] does this for layers
// one to three.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"

	"github.com/matzehuels/kitchen/pkg/errors"
)

// DefaultFile is the configuration file looked up when none is given.
const DefaultFile = "kitchen.toml"

// Graph engines.
const (
	EngineGraphviz = "graphviz" // in-process, goccy/go-graphviz
	EngineDot      = "dot"      // external dot binary
)

// Cache backends.
const (
	CacheNone  = "none"
	CacheFile  = "file"
	CacheRedis = "redis"
)

// Config is the complete dashboard configuration.
type Config struct {
	Repo      Repo      `toml:"repo"`
	Dashboard Dashboard `toml:"dashboard"`
	Graph     Graph     `toml:"graph"`
	Cache     Cache     `toml:"cache"`
	Server    Server    `toml:"server"`
}

// Repo describes the LittleChef kitchen and how it is kept in sync.
type Repo struct {
	Name              string   `toml:"name" validate:"required,excludesall=/\\"`
	URL               string   `toml:"url"`
	BasePath          string   `toml:"base_path" validate:"required"`
	KitchenSubdir     string   `toml:"kitchen_subdir"`
	SyncPeriod        Duration `toml:"sync_period"`
	ExcludeRolePrefix string   `toml:"exclude_role_prefix"`
	DefaultEnv        string   `toml:"default_env"`
	DefaultVirt       string   `toml:"default_virt" validate:"omitempty,oneof=host guest"`
	PostSyncCommand   []string `toml:"post_sync_command"`
}

// Dir returns the checkout directory of the repository.
func (r Repo) Dir() string {
	return filepath.Join(r.BasePath, r.Name)
}

// KitchenDir returns the directory holding nodes/, roles/ and friends.
func (r Repo) KitchenDir() string {
	return filepath.Join(r.Dir(), r.KitchenSubdir)
}

// Dashboard holds presentation settings.
type Dashboard struct {
	ShowVirtView  bool              `toml:"show_virt_view"`
	ShowHostNames bool              `toml:"show_host_names"`
	Colors        []string          `toml:"colors" validate:"min=1,dive,required"`
	TagClasses    map[string]string `toml:"tag_classes"`
	Plugins       []string          `toml:"plugins"`
	StaticDir     string            `toml:"static_dir" validate:"required"`
	MonitoringURL string            `toml:"monitoring_url" validate:"omitempty,url"`
	MonitoringImg string            `toml:"monitoring_img" validate:"omitempty,url"`
}

// TagClass returns the CSS class for a node tag, or "" for untagged styling.
func (d Dashboard) TagClass(tag string) string {
	return d.TagClasses[tag]
}

// Graph configures node map rendering.
type Graph struct {
	Engine        string   `toml:"engine" validate:"oneof=graphviz dot"`
	Format        string   `toml:"format" validate:"oneof=svg png"`
	RenderTimeout Duration `toml:"render_timeout"`
	Cluster       bool     `toml:"cluster"`
	DotBinary     string   `toml:"dot_binary"`
}

// Cache configures the rendered-artifact cache.
type Cache struct {
	Backend   string   `toml:"backend" validate:"oneof=none file redis"`
	Dir       string   `toml:"dir"`
	RedisAddr string   `toml:"redis_addr" validate:"required_if=Backend redis"`
	TTL       Duration `toml:"ttl"`
}

// Server configures the HTTP API.
type Server struct {
	Addr         string `toml:"addr" validate:"required"`
	SyncdateFile string `toml:"syncdate_file"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Repo: Repo{
			Name:              "testrepo",
			BasePath:          "dashboard",
			SyncPeriod:        Duration{2 * time.Minute},
			ExcludeRolePrefix: "env",
			DefaultEnv:        "production",
			DefaultVirt:       "guest",
		},
		Dashboard: Dashboard{
			ShowVirtView:  true,
			ShowHostNames: true,
			Colors:        []string{"#FCD975", "#9ACEEB", "/blues5/1", "#97CE8A", "#FFA764", "#FBC6FF"},
			TagClasses:    map[string]string{"WIP": "btn-danger", "dummy": "btn-danger"},
			StaticDir:     "static",
			MonitoringURL: "http://monitoring.mydomain.com",
			MonitoringImg: "http://munin-monitoring.org/static/munin.png",
		},
		Graph: Graph{
			Engine:        EngineGraphviz,
			Format:        "svg",
			RenderTimeout: Duration{10 * time.Second},
			DotBinary:     "dot",
		},
		Cache: Cache{
			Backend:   CacheFile,
			RedisAddr: "localhost:6379",
			TTL:       Duration{time.Hour},
		},
		Server: Server{
			Addr:         ":8080",
			SyncdateFile: filepath.Join(os.TempDir(), "kitchen-syncdate"),
		},
	}
}

// Load reads the configuration file at path over the defaults, applies
// environment overrides and validates the result.
//
// An empty path loads [DefaultFile] if it exists and the defaults otherwise.
// An explicit path that does not exist is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	if err := cfg.decodeFile(path, explicit); err != nil {
		return nil, err
	}
	if err := ApplyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes TOML data over the defaults and validates the result.
// Environment variables are not consulted.
func Parse(data string) (*Config, error) {
	cfg := Default()
	md, err := toml.Decode(data, cfg)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid configuration")
	}
	if err := checkUndecoded(md); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decodeFile(path string, explicit bool) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && !explicit {
			return nil
		}
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "cannot read config file %s", path)
	}
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid config file %s", path)
	}
	return checkUndecoded(md)
}

func checkUndecoded(md toml.MetaData) error {
	undecoded := md.Undecoded()
	if len(undecoded) == 0 {
		return nil
	}
	keys := make([]string, len(undecoded))
	for i, k := range undecoded {
		keys[i] = k.String()
	}
	return errors.New(errors.ErrCodeInvalidInput, "unknown configuration keys: %s", strings.Join(keys, ", "))
}

// ===== Validation =====

var validate = validator.New()

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}
	if c.Repo.SyncPeriod.Duration <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "repo.sync_period: must be positive")
	}
	if c.Graph.RenderTimeout.Duration <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "graph.render_timeout: must be positive")
	}
	if c.Graph.Engine == EngineDot && c.Graph.DotBinary == "" {
		return errors.New(errors.ErrCodeInvalidInput, "graph.dot_binary: required for the dot engine")
	}
	if c.Cache.TTL.Duration < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "cache.ttl: must not be negative")
	}
	return nil
}

// formatValidationError reports the first failed constraint using the TOML
// key path.
func formatValidationError(err error) error {
	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok || len(validationErrs) == 0 {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid configuration")
	}

	e := validationErrs[0]
	field := tomlPath(e.Namespace())
	switch e.Tag() {
	case "required", "required_if":
		return errors.New(errors.ErrCodeInvalidInput, "%s: field is required", field)
	case "oneof":
		return errors.New(errors.ErrCodeInvalidInput, "%s: must be one of [%s], got %q", field, e.Param(), fmt.Sprint(e.Value()))
	case "min":
		return errors.New(errors.ErrCodeInvalidInput, "%s: must have at least %s entries", field, e.Param())
	case "url":
		return errors.New(errors.ErrCodeInvalidInput, "%s: must be a URL", field)
	default:
		return errors.New(errors.ErrCodeInvalidInput, "%s: validation failed (%s)", field, e.Tag())
	}
}

// tomlPath turns "Config.Graph.RenderTimeout" into "graph.render_timeout".
func tomlPath(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		parts[i] = snake(p)
	}
	return strings.Join(parts, ".")
}

func snake(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		upper := r >= 'A' && r <= 'Z'
		if upper && i > 0 {
			prevLower := runes[i-1] >= 'a' && runes[i-1] <= 'z'
			nextLower := i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z'
			if prevLower || nextLower {
				b.WriteByte('_')
			}
		}
		if upper {
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
