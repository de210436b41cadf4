package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/chris/railtl/internal/timeline"
)

// TokenEnv is consulted when the config file leaves the API token empty
const TokenEnv = "RAILWAY_API_TOKEN"

const (
	DefaultAPIURL      = "https://backboard.railway.app/graphql/v2"
	DefaultRefreshCron = "@every 15s"
	DefaultLogLevel    = "info"
	DefaultMetrics     = "127.0.0.1:9464"
)

// Config is the top-level application configuration.
type Config struct {
	// DBPath is the SQLite cache location. Empty means the XDG default.
	DBPath string `yaml:"db_path"`

	// Timezone is the IANA zone used for "today" and day-aligned columns.
	// Empty means the local zone.
	Timezone string `yaml:"timezone"`

	// DefaultZoom is the zoom level the TUI opens at (minute, 5m, 15m, hour, day, week, month).
	DefaultZoom string `yaml:"default_zoom"`

	// ProjectID selects the project that sync, watch and tui operate on.
	ProjectID string `yaml:"project_id"`

	// Environment is the environment name or id shown first. Empty means the
	// project's first environment.
	Environment string `yaml:"environment"`

	// RefreshCron is a cron spec for background sync.
	RefreshCron string `yaml:"refresh"`

	APIURL string `yaml:"api_url"`

	// Token authenticates against the platform API.
	Token string `yaml:"token,omitempty"`

	LogLevel string `yaml:"log_level"`

	// MetricsListen is the address watch serves /metrics on.
	MetricsListen string `yaml:"metrics_listen"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		DefaultZoom:   timeline.DefaultZoom.String(),
		RefreshCron:   DefaultRefreshCron,
		APIURL:        DefaultAPIURL,
		LogLevel:      DefaultLogLevel,
		MetricsListen: DefaultMetrics,
	}
}

// DefaultPath returns the config file location under XDG_CONFIG_HOME
func DefaultPath() (string, error) {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "railtl", "config.yaml"), nil
}

// Normalize fills in missing or invalid values with defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if _, err := timeline.ParseZoomLevel(c.DefaultZoom); err != nil {
		c.DefaultZoom = timeline.DefaultZoom.String()
	}
	if c.RefreshCron == "" {
		c.RefreshCron = DefaultRefreshCron
	}
	if c.APIURL == "" {
		c.APIURL = DefaultAPIURL
	}
	switch c.LogLevel {
	case "trace", "debug", "info", "warn", "error", "disabled":
	default:
		c.LogLevel = DefaultLogLevel
	}
	if c.MetricsListen == "" {
		c.MetricsListen = DefaultMetrics
	}
}

// Zoom returns the configured default zoom level
func (c *Config) Zoom() timeline.ZoomLevel {
	z, err := timeline.ParseZoomLevel(c.DefaultZoom)
	if err != nil {
		return timeline.DefaultZoom
	}
	return z
}

// Location resolves Timezone, falling back to the local zone
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// APIToken returns the configured token or the RAILWAY_API_TOKEN fallback
func (c *Config) APIToken() string {
	if c.Token != "" {
		return c.Token
	}
	return os.Getenv(TokenEnv)
}

// Load loads configuration from the given YAML path.
// A missing file is created with defaults (0600) and the defaults are returned.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg atomically via a temp file and rename, with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".railtl-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save delegates to the package-level Save
func (c *Config) Save(path string) error {
	return Save(path, c)
}
