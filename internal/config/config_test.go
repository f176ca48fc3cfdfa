package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Reader.PageWords != 250 {
		t.Errorf("expected default page_words 250, got %d", cfg.Reader.PageWords)
	}
	if cfg.Reader.LoadDelay != 100*time.Millisecond {
		t.Errorf("expected default load_delay 100ms, got %s", cfg.Reader.LoadDelay)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("expected default log level info, got %q", cfg.Log.Level)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	original := DefaultConfig()
	original.Log.Level = "debug"
	original.Reader.PageWords = 180
	original.Reader.LoadDelay = 250 * time.Millisecond
	original.Bookmarks.URL = "https://books.example.com"
	original.State.Dir = "/tmp/leaf-state"

	if err := original.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if *loaded != *original {
		t.Errorf("round trip: got %+v, want %+v", *loaded, *original)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err != nil {
		t.Fatalf("Load of missing file should not error: %v", err)
	}
	if *cfg != *DefaultConfig() {
		t.Errorf("expected defaults, got %+v", *cfg)
	}
}

func TestLoadPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	os.WriteFile(path, []byte("reader:\n  load_delay: 2s\n"), 0644)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Reader.LoadDelay != 2*time.Second {
		t.Errorf("load_delay: got %s, want 2s", cfg.Reader.LoadDelay)
	}
	if cfg.Reader.PageWords != 250 {
		t.Errorf("unset page_words should keep its default, got %d", cfg.Reader.PageWords)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("LEAF_READER_PAGE_WORDS", "99")
	t.Setenv("LEAF_LOG_LEVEL", "warn")
	t.Setenv("LEAF_BOOKMARKS_URL", "http://localhost:6060")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Reader.PageWords != 99 {
		t.Errorf("page_words: got %d, want 99", cfg.Reader.PageWords)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("log.level: got %q, want warn", cfg.Log.Level)
	}
	if cfg.Bookmarks.URL != "http://localhost:6060" {
		t.Errorf("bookmarks.url: got %q", cfg.Bookmarks.URL)
	}
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"LEAF_READER_PAGE_WORDS": "reader.page_words",
		"LEAF_LOG_FORMAT":        "log.format",
		"LEAF_STATE_DIR":         "state.dir",
	}
	for in, want := range tests {
		if got := envKey(in); got != want {
			t.Errorf("envKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"json format", func(c *Config) { c.Log.Format = "json" }, false},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, true},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, true},
		{"zero page words", func(c *Config) { c.Reader.PageWords = 0 }, true},
		{"negative delay", func(c *Config) { c.Reader.LoadDelay = -time.Second }, true},
		{"zero delay", func(c *Config) { c.Reader.LoadDelay = 0 }, false},
		{"bad bookmark url", func(c *Config) { c.Bookmarks.URL = "ftp://x" }, true},
		{"https bookmark url", func(c *Config) { c.Bookmarks.URL = "https://x" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
