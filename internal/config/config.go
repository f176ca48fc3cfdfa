// Package config loads the reader's settings from a YAML file with LEAF_*
// environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment overrides: LEAF_READER_PAGE_WORDS
// sets reader.page_words.
const EnvPrefix = "LEAF_"

// Config is the top-level configuration, corresponding to config.yaml.
type Config struct {
	Log       LogConfig       `yaml:"log" koanf:"log"`
	Reader    ReaderConfig    `yaml:"reader" koanf:"reader"`
	Bookmarks BookmarksConfig `yaml:"bookmarks" koanf:"bookmarks"`
	State     StateConfig     `yaml:"state" koanf:"state"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level  string `yaml:"level" koanf:"level"`
	Format string `yaml:"format" koanf:"format"`
}

// ReaderConfig controls layout and loading.
type ReaderConfig struct {
	PageWords int           `yaml:"page_words" koanf:"page_words"`
	LoadDelay time.Duration `yaml:"load_delay" koanf:"load_delay"`
}

// BookmarksConfig selects the bookmark backend: a server when URL is set,
// otherwise the SQLite database at DB.
type BookmarksConfig struct {
	URL string `yaml:"url" koanf:"url"`
	DB  string `yaml:"db" koanf:"db"`
}

// StateConfig sets where reading positions are kept.
type StateConfig struct {
	Dir string `yaml:"dir" koanf:"dir"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Log:    LogConfig{Level: "info", Format: "console"},
		Reader: ReaderConfig{PageWords: 250, LoadDelay: 100 * time.Millisecond},
	}
}

// DefaultPath returns XDG_CONFIG_HOME/leaf/config.yaml or
// ~/.config/leaf/config.yaml
func DefaultPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "leaf", "config.yaml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "leaf", "config.yaml")
}

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (LEAF_*). A missing file yields defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("accessing config %s: %w", path, err)
		}
	}

	// LEAF_LOG_LEVEL -> log.level, LEAF_READER_PAGE_WORDS -> reader.page_words
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	return cfg, nil
}

func envKey(s string) string {
	return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".", 1)
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var validLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "warning": true,
	"error": true, "disabled": true, "off": true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if !validLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log.level %q", c.Log.Level)
	}
	if c.Log.Format != "console" && c.Log.Format != "json" {
		return fmt.Errorf("invalid log.format %q: must be console or json", c.Log.Format)
	}
	if c.Reader.PageWords <= 0 {
		return fmt.Errorf("reader.page_words must be positive")
	}
	if c.Reader.LoadDelay < 0 {
		return fmt.Errorf("reader.load_delay must be non-negative")
	}
	if c.Bookmarks.URL != "" &&
		!strings.HasPrefix(c.Bookmarks.URL, "http://") && !strings.HasPrefix(c.Bookmarks.URL, "https://") {
		return fmt.Errorf("invalid bookmarks.url %q: must be http or https", c.Bookmarks.URL)
	}
	return nil
}
