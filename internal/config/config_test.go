package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OPENWEATHER_API_KEY", "")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != "8095" {
		t.Errorf("port = %q", cfg.Port)
	}
	if cfg.Search.Limit != 5 || cfg.Search.Debounce != 300*time.Millisecond {
		t.Errorf("search = %+v", cfg.Search)
	}
	if cfg.Cache.TTL != 15*time.Minute {
		t.Errorf("cache ttl = %s", cfg.Cache.TTL)
	}
	if diff := cmp.Diff([]string{"down", "ArrowDown", "ctrl+n"}, cfg.Keys.Next); diff != "" {
		t.Errorf("keys.next mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "citysearch.yaml")
	yaml := `
port: "9000"
openweather:
  api_key: from-file
  timeout: 3s
search:
  debounce: 150ms
keys:
  next: [j]
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("OPENWEATHER_API_KEY", "from-env")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != "9000" {
		t.Errorf("port = %q", cfg.Port)
	}
	if cfg.OpenWeather.APIKey != "from-env" {
		t.Errorf("env should win over file, got %q", cfg.OpenWeather.APIKey)
	}
	if cfg.OpenWeather.Timeout != 3*time.Second {
		t.Errorf("timeout = %s", cfg.OpenWeather.Timeout)
	}
	if cfg.Search.Debounce != 150*time.Millisecond {
		t.Errorf("debounce = %s", cfg.Search.Debounce)
	}
	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("redis addr = %q", cfg.Redis.Addr)
	}
	if diff := cmp.Diff([]string{"j"}, cfg.Keys.Next); diff != "" {
		t.Errorf("keys.next mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("SEARCH_LIMIT", "0")
	if _, err := Load(""); err == nil {
		t.Fatalf("expected an error for search.limit=0")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected an error for a missing config file")
	}
}
