// Package config handles loading and managing emailsearch configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/wesm/emailsearch/internal/fileutil"
	"github.com/wesm/emailsearch/internal/filter"
)

// DefaultServerURL is used when neither the config file nor the environment
// names a search service.
const DefaultServerURL = "http://localhost:8000"

// ServerConfig describes the remote search service.
type ServerConfig struct {
	URL            string  `toml:"url"`             // Base URL of the search API
	APIKey         string  `toml:"api_key"`         // Sent as X-API-Key when set
	AllowInsecure  bool    `toml:"allow_insecure"`  // Permit plain HTTP to non-local hosts
	TimeoutSeconds int     `toml:"timeout_seconds"` // Per-request timeout
	RateLimitQPS   float64 `toml:"rate_limit_qps"`  // Client-side request cap, 0 = unlimited
}

// SearchConfig holds the filters a new session starts with.
type SearchConfig struct {
	DefaultLimit int    `toml:"default_limit"`
	DefaultType  string `toml:"default_type"` // "All fields", "Subject" or "Body"
	Table        string `toml:"table"`        // Initial table id; empty = first listed
}

// ExportConfig holds CSV export settings.
type ExportConfig struct {
	Dir string `toml:"dir"` // Where downloads are written (default: current directory)
}

// LogConfig holds log file settings. The TUI always logs to a file because
// it owns the terminal.
type LogConfig struct {
	File       string `toml:"file"`        // default: <home>/logs/emailsearch.log
	Level      string `toml:"level"`       // debug, info, warn, error
	MaxSizeMB  int    `toml:"max_size_mb"` // rotate after this size
	MaxBackups int    `toml:"max_backups"` // rotated files to keep
}

// Config represents the emailsearch configuration.
type Config struct {
	Server ServerConfig `toml:"server"`
	Search SearchConfig `toml:"search"`
	Export ExportConfig `toml:"export"`
	Log    LogConfig    `toml:"log"`

	// Computed paths (not from config file)
	HomeDir    string `toml:"-"`
	configPath string
}

// DefaultHome returns the default emailsearch home directory.
// Respects EMAILSEARCH_HOME environment variable.
func DefaultHome() string {
	if h := os.Getenv("EMAILSEARCH_HOME"); h != "" {
		return expandPath(h)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".emailsearch"
	}
	return filepath.Join(home, ".emailsearch")
}

// Load reads the configuration from the specified file.
// If path is empty, uses <home>/config.toml. homeOverride, when set, takes
// precedence over EMAILSEARCH_HOME. EMAILSEARCH_API_URL, when set, overrides
// [server] url.
func Load(path, homeOverride string) (*Config, error) {
	homeDir := DefaultHome()
	if homeOverride != "" {
		homeDir = expandPath(homeOverride)
	}

	explicit := path != ""
	if path == "" {
		path = filepath.Join(homeDir, "config.toml")
	}
	path = expandPath(path)

	cfg := &Config{
		HomeDir:    homeDir,
		configPath: path,
		// Defaults
		Server: ServerConfig{
			URL:            DefaultServerURL,
			TimeoutSeconds: 30,
			RateLimitQPS:   5,
		},
		Search: SearchConfig{
			DefaultLimit: filter.DefaultLimit,
			DefaultType:  filter.SearchAllFields.String(),
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}

	// Config file is optional - use defaults if not present
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if explicit {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
	} else if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if u := strings.TrimSpace(os.Getenv("EMAILSEARCH_API_URL")); u != "" {
		cfg.Server.URL = u
	}

	// Expand ~ in paths
	cfg.Export.Dir = expandPath(cfg.Export.Dir)
	cfg.Log.File = expandPath(cfg.Log.File)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if _, ok := filter.ParseSearchType(c.Search.DefaultType); !ok {
		return fmt.Errorf("[search] default_type: unknown search type %q", c.Search.DefaultType)
	}
	if c.Server.TimeoutSeconds < 0 {
		return fmt.Errorf("[server] timeout_seconds must not be negative")
	}
	if c.Server.RateLimitQPS < 0 {
		return fmt.Errorf("[server] rate_limit_qps must not be negative")
	}
	return nil
}

// ConfigFilePath returns the path the configuration was (or would be)
// loaded from.
func (c *Config) ConfigFilePath() string {
	if c.configPath != "" {
		return c.configPath
	}
	return filepath.Join(c.HomeDir, "config.toml")
}

// EnsureHomeDir creates the home directory if it does not exist.
func (c *Config) EnsureHomeDir() error {
	return fileutil.SecureMkdirAll(c.HomeDir, 0700)
}

// Timeout returns the per-request timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Server.TimeoutSeconds) * time.Second
}

// LogFilePath returns the log file path.
func (c *Config) LogFilePath() string {
	if c.Log.File != "" {
		return c.Log.File
	}
	return filepath.Join(c.HomeDir, "logs", "emailsearch.log")
}

// ExportDir returns the directory CSV downloads are written to.
func (c *Config) ExportDir() string {
	if c.Export.Dir != "" {
		return c.Export.Dir
	}
	return "."
}

// InitialFilters returns the filters a new session starts with.
func (c *Config) InitialFilters() filter.Filters {
	f := filter.Default()
	f = filter.WithField(f, filter.Limit(c.Search.DefaultLimit))
	f = filter.WithField(f, filter.TypeName(c.Search.DefaultType))
	return f
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if path == "~" || strings.HasPrefix(path, "~/") || strings.HasPrefix(path, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
