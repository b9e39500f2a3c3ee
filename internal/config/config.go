// Package config loads the etf configuration file.
//
// The file is TOML and every key is optional:
//
//	metadata  = "/data/etf/metadata-2025.json.zst"
//	log_level = "debug"
//
//	[aliases]
//	fuel = "1.A"
//
//	[cache]
//	disabled  = false
//	dir       = "/var/cache/etf"
//	redis_url = "redis://localhost:6379/0"
//	ttl       = "720h"
//
// A missing file yields [DefaultConfig]. Command-line flags override the
// loaded values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"

	"github.com/etftools/etf/pkg/errors"
)

// FileName is the name of the configuration file inside the config dir.
const FileName = "config.toml"

// Config is the complete etf configuration.
type Config struct {
	// Metadata is the metadata file used instead of the bundled one.
	Metadata string `toml:"metadata"`

	// LogLevel is one of debug, info, warn and error.
	LogLevel string `toml:"log_level"`

	// Aliases adds or overrides sector aliases; values are uids or codes.
	Aliases map[string]string `toml:"aliases"`

	Cache CacheConfig `toml:"cache"`
}

// CacheConfig configures the taxonomy snapshot cache.
type CacheConfig struct {
	Disabled bool     `toml:"disabled"`
	Dir      string   `toml:"dir"`       // empty selects the XDG cache dir
	RedisURL string   `toml:"redis_url"` // selects the Redis backend when set
	TTL      Duration `toml:"ttl"`
}

// Duration is a time.Duration written as a string such as "36h".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Aliases:  map[string]string{},
		Cache: CacheConfig{
			TTL: Duration{30 * 24 * time.Hour},
		},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/etf/config.toml, falling back to
// ~/.config/etf/config.toml.
func DefaultPath() (string, error) {
	if home := os.Getenv("XDG_CONFIG_HOME"); home != "" {
		return filepath.Join(home, "etf", FileName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "etf", FileName), nil
}

// Load reads the configuration at path, or at [DefaultPath] when path is
// empty. Keys missing from the file keep their default values. A missing
// default file is not an error; a missing explicit path is.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return DefaultConfig(), nil
		}
		path = p
	}

	cfg := DefaultConfig()
	md, err := toml.DecodeFile(path, cfg)
	if os.IsNotExist(err) {
		if explicit {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "config file %s", path)
		}
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, &ConfigError{Field: strings.Join(keys, ", "), Message: "unknown key"}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values that cannot be checked while decoding.
func (c *Config) Validate() error {
	if _, err := c.Level(); err != nil {
		return &ConfigError{Field: "log_level", Message: err.Error()}
	}
	if c.Cache.TTL.Duration < 0 {
		return &ConfigError{Field: "cache.ttl", Message: "must not be negative"}
	}
	return nil
}

// Level returns the parsed log level. An empty level is info.
func (c *Config) Level() (log.Level, error) {
	if c.LogLevel == "" {
		return log.InfoLevel, nil
	}
	return log.ParseLevel(c.LogLevel)
}

// ConfigError reports an invalid configuration value.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Message)
}
