// Package config loads the btgraph configuration file.
//
// The file is TOML and lives at $XDG_CONFIG_HOME/btgraph/config.toml
// (~/.config/btgraph/config.toml). A missing default file yields [Default];
// a file named explicitly must exist. Unknown keys are rejected so typos do
// not silently fall back to defaults.
//
//	catalog = "catalogs/game.toml"
//	author = "jane"
//	log_level = "info"
//
//	[cache]
//	backend = "redis"
//	redis_url = "redis://localhost:6379/0"
//
//	[store]
//	backend = "mongo"
//	mongo_uri = "mongodb://localhost:27017"
//
//	[layout]
//	h_spacing = 400
//
//	[server]
//	addr = ":8080"
//
// Secrets can be supplied through the environment instead of the file, see
// [ResolveSecret].
package config

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"

	"github.com/matzehuels/btgraph/pkg/errors"
	"github.com/matzehuels/btgraph/pkg/tree/layout"
)

const appName = "btgraph"

// Environment variables that override secrets in the file.
const (
	EnvMongoURI      = "BTGRAPH_MONGO_URI"
	EnvRedisPassword = "BTGRAPH_REDIS_PASSWORD"
)

// Config is the decoded configuration file.
type Config struct {
	// Catalog is the path of the type catalog. Empty means the builtin one.
	Catalog  string `toml:"catalog"`
	Author   string `toml:"author" validate:"max=128"`
	LogLevel string `toml:"log_level" validate:"oneof=debug info warn error"`

	Cache  CacheConfig  `toml:"cache"`
	Store  StoreConfig  `toml:"store"`
	Layout LayoutConfig `toml:"layout"`
	Server ServerConfig `toml:"server"`
}

// CacheConfig selects the migration and report cache.
type CacheConfig struct {
	Backend       string   `toml:"backend" validate:"oneof=file redis none"`
	Dir           string   `toml:"dir"`
	RedisURL      string   `toml:"redis_url" validate:"omitempty,url"`
	RedisAddr     string   `toml:"redis_addr" validate:"omitempty,hostname_port"`
	RedisPassword string   `toml:"redis_password"`
	RedisDB       int      `toml:"redis_db" validate:"min=0,max=15"`
	TTL           Duration `toml:"ttl" validate:"min=0"`
	// KeyPrefix namespaces keys when several deployments share one Redis.
	KeyPrefix string `toml:"key_prefix" validate:"max=64"`
}

// StoreConfig selects where documents are persisted.
type StoreConfig struct {
	Backend  string `toml:"backend" validate:"oneof=file mongo"`
	Dir      string `toml:"dir" validate:"required_if=Backend file"`
	MongoURI string `toml:"mongo_uri" validate:"required_if=Backend mongo"`
	Database string `toml:"database"`
}

// LayoutConfig holds layout spacing. Zero values use the layout defaults.
type LayoutConfig struct {
	StartX   float32 `toml:"start_x"`
	StartY   float32 `toml:"start_y"`
	HSpacing float32 `toml:"h_spacing" validate:"min=0"`
	VSpacing float32 `toml:"v_spacing" validate:"min=0"`
}

// Options converts the section to layout options.
func (l LayoutConfig) Options() layout.Options {
	return layout.Options{StartX: l.StartX, StartY: l.StartY, HSpacing: l.HSpacing, VSpacing: l.VSpacing}
}

// ServerConfig configures `btgraph serve`.
type ServerConfig struct {
	Addr            string   `toml:"addr" validate:"required"`
	ReadTimeout     Duration `toml:"read_timeout" validate:"min=0"`
	WriteTimeout    Duration `toml:"write_timeout" validate:"min=0"`
	ShutdownTimeout Duration `toml:"shutdown_timeout" validate:"min=0"`
	MaxBodyBytes    int64    `toml:"max_body_bytes" validate:"min=0"`
}

// Duration is a time.Duration written as a string ("30s", "24h").
type Duration time.Duration

// UnmarshalText parses a duration string.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText formats the duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the duration as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

var validate = validator.New(validator.WithRequiredStructEnabled())

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Author:   os.Getenv("USER"),
		LogLevel: "info",
		Cache: CacheConfig{
			Backend: "file",
			Dir:     CacheDir(),
		},
		Store: StoreConfig{
			Backend: "file",
			Dir:     DataDir(),
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     Duration(30 * time.Second),
			WriteTimeout:    Duration(30 * time.Second),
			ShutdownTimeout: Duration(10 * time.Second),
			MaxBodyBytes:    4 << 20,
		},
	}
}

// Load reads the configuration at path, or at [DefaultPath] when path is
// empty. Values absent from the file keep their defaults.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	cfg := Default()
	md, err := toml.DecodeFile(path, cfg)
	switch {
	case stderrors.Is(err, fs.ErrNotExist) && !explicit:
		// no file: defaults
	case stderrors.Is(err, fs.ErrNotExist):
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "config file not found: %s", path)
	case err != nil:
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", path)
	default:
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, errors.New(errors.ErrCodeInvalidConfig, "%s: unknown key %q", path, undecoded[0].String())
		}
	}

	if err := cfg.resolveSecrets(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if stderrors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return errors.New(errors.ErrCodeInvalidConfig, "%s fails %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "invalid config")
	}
	return nil
}

func (c *Config) resolveSecrets() error {
	uri, err := ResolveSecret(EnvMongoURI)
	if err != nil {
		return err
	}
	if uri != "" {
		c.Store.MongoURI = uri
	}
	pw, err := ResolveSecret(EnvRedisPassword)
	if err != nil {
		return err
	}
	if pw != "" {
		c.Cache.RedisPassword = pw
	}
	return nil
}

// ResolveSecret reads a secret using the *_FILE convention: if envName+"_FILE"
// is set the secret is read from that file, otherwise envName is used.
// It returns "" when neither is set.
func ResolveSecret(envName string) (string, error) {
	fileEnv := envName + "_FILE"
	if path := os.Getenv(fileEnv); path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read secret from %s=%s: %w", fileEnv, path, err)
		}
		return strings.TrimSpace(string(content)), nil
	}
	return os.Getenv(envName), nil
}

// =============================================================================
// Paths
// =============================================================================

// DefaultPath returns the config file path using XDG standard
// (~/.config/btgraph/config.toml).
func DefaultPath() string {
	return filepath.Join(xdgDir("XDG_CONFIG_HOME", ".config"), appName, "config.toml")
}

// CacheDir returns the cache directory using XDG standard (~/.cache/btgraph/).
func CacheDir() string {
	return filepath.Join(xdgDir("XDG_CACHE_HOME", ".cache"), appName)
}

// DataDir returns the document store directory using XDG standard
// (~/.local/share/btgraph/documents/).
func DataDir() string {
	return filepath.Join(xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share")), appName, "documents")
}

func xdgDir(env, fallback string) string {
	if dir := os.Getenv(env); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), fallback)
	}
	return filepath.Join(home, fallback)
}
