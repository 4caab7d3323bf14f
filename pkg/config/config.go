// Package config loads ghstars settings from a TOML file and the environment.
//
// Keys follow the names the settings page has always used (cache_ttl_hours,
// inactive_threshold_days, gh_token, ...), so an exported settings file can be
// dropped in unchanged.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Backend names accepted in [store].backend.
const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config is the on-disk configuration.
type Config struct {
	CacheTTLHours         int    `toml:"cache_ttl_hours"`
	CacheTTLMinutes       int    `toml:"cache_ttl_minutes"` // superseded by cache_ttl_hours
	InactiveThresholdDays int    `toml:"inactive_threshold_days"`
	Token                 string `toml:"gh_token"`
	MaxCacheEntries       int    `toml:"max_cache_entries"` // 0 or less selects DefaultMaxEntries; eviction cannot be turned off
	DebugLogging          bool   `toml:"debug_logging"`

	Store  StoreConfig  `toml:"store"`
	Server ServerConfig `toml:"server"`
	GitHub GitHubConfig `toml:"github"`

	// Undecoded lists keys present in the file that no field consumed.
	Undecoded []string `toml:"-"`
}

// StoreConfig selects and sizes the cache backend.
type StoreConfig struct {
	Backend       string `toml:"backend"`
	Dir           string `toml:"dir"`
	MaxBytes      int64  `toml:"max_bytes"`
	MaxItems      int    `toml:"max_items"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
}

// ServerConfig configures `ghstars serve`.
type ServerConfig struct {
	Listen              string        `toml:"listen"`
	MaintenanceInterval time.Duration `toml:"maintenance_interval"`
}

// GitHubConfig configures the API client.
type GitHubConfig struct {
	BaseURL string `toml:"base_url"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		CacheTTLHours:         int(DefaultTTL / time.Hour),
		InactiveThresholdDays: int(DefaultInactiveThreshold / (24 * time.Hour)),
		MaxCacheEntries:       DefaultMaxEntries,
		Store: StoreConfig{
			Backend: BackendFile,
		},
		Server: ServerConfig{
			Listen:              "127.0.0.1:8787",
			MaintenanceInterval: time.Hour,
		},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/ghstars/config.toml or the platform equivalent.
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "ghstars", "config.toml"), nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "ghstars", "config.toml"), nil
}

// Load reads the configuration at path and applies environment overrides.
//
// An empty path selects DefaultPath, which may be absent. An explicit path
// must exist.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return nil, fmt.Errorf("failed to locate config file: %w", err)
		}
		path = p
	}

	cfg := Default()
	md, err := toml.DecodeFile(path, cfg)
	switch {
	case err == nil:
		for _, key := range md.Undecoded() {
			cfg.Undecoded = append(cfg.Undecoded, key.String())
		}
		// A file that only sets the legacy key should not be shadowed by the default.
		if md.IsDefined("cache_ttl_minutes") && !md.IsDefined("cache_ttl_hours") {
			cfg.CacheTTLHours = 0
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		c.Token = token
	}
}

// Validate checks the store and server sections.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "", BackendFile, BackendMemory:
	case BackendRedis:
		if c.Store.RedisAddr == "" {
			return errors.New("store.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.Store.MaxBytes < 0 {
		return errors.New("store.max_bytes must not be negative")
	}
	if c.Server.MaintenanceInterval < 0 {
		return errors.New("server.maintenance_interval must not be negative")
	}
	return nil
}

// Settings resolves the values the lookup engine consumes.
func (c *Config) Settings() Settings {
	s := Settings{
		TTL:               time.Duration(c.CacheTTLHours) * time.Hour,
		InactiveThreshold: time.Duration(c.InactiveThresholdDays) * 24 * time.Hour,
		Token:             c.Token,
		MaxEntries:        c.MaxCacheEntries,
	}
	if c.CacheTTLHours <= 0 && c.CacheTTLMinutes > 0 {
		// Round legacy minute values up to whole hours.
		s.TTL = time.Duration((c.CacheTTLMinutes+59)/60) * time.Hour
	}
	return s.Normalize()
}
