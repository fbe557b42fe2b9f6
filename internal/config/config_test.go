package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestDefaultDBPath(t *testing.T) {
	t.Run("with XDG_CACHE_HOME", func(t *testing.T) {
		t.Setenv("XDG_CACHE_HOME", "/custom/cache")
		path := DefaultDBPath()

		expected := "/custom/cache/get/state.db"
		if path != expected {
			t.Errorf("DefaultDBPath() = %q, want %q", path, expected)
		}
	})

	t.Run("without XDG_CACHE_HOME", func(t *testing.T) {
		t.Setenv("XDG_CACHE_HOME", "")
		path := DefaultDBPath()

		if !strings.HasSuffix(path, filepath.Join(".cache", "get", "state.db")) {
			t.Errorf("DefaultDBPath() = %q, want suffix .cache/get/state.db", path)
		}
	})
}

func TestDefaultConfigPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	if got := DefaultConfigPath(); got != "/custom/config/get/config.toml" {
		t.Errorf("DefaultConfigPath() = %q, want %q", got, "/custom/config/get/config.toml")
	}
}

func TestDefaultDestination(t *testing.T) {
	path := DefaultDestination()
	if !strings.HasPrefix(path, "file://") || !strings.HasSuffix(path, "Manga") {
		t.Errorf("DefaultDestination() = %q, want file://.../Manga", path)
	}
}

// isolate points every lookup of Load at an empty temp dir.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	for _, key := range []string{
		"GET_WORKERS", "GET_MAX_ATTEMPTS", "GET_TIMEOUT", "GET_STATE_DB",
		"GET_LOG_LEVEL", "GET_LOG_FILE", "GET_LISTEN", "GET_MANGADEX_API",
		"GET_LANGUAGE", "GET_DESTINATION", "GET_SEARCH_URL",
		"GET_SEARCH_API_KEY", "GET_INDEX",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(LoadOptions{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Workers != runtime.NumCPU() {
		t.Errorf("Workers = %d, want %d", cfg.Workers, runtime.NumCPU())
	}
	if cfg.MaxAttempts != 0 {
		t.Errorf("MaxAttempts = %d, want 0", cfg.MaxAttempts)
	}
	if cfg.MangaDex.Language != "gb" {
		t.Errorf("Language = %q, want gb", cfg.MangaDex.Language)
	}
	if cfg.Podcasts.Poll.InitialDelay != 250*time.Millisecond {
		t.Errorf("Poll.InitialDelay = %s, want 250ms", cfg.Podcasts.Poll.InitialDelay)
	}
	if cfg.Podcasts.Poll.Ceiling != time.Minute {
		t.Errorf("Poll.Ceiling = %s, want 1m", cfg.Podcasts.Poll.Ceiling)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := isolate(t)

	file := filepath.Join(dir, "get.toml")
	content := `
workers = 3
timeout = "10s"

[mangadex]
language = "de"

[podcasts]
index = "shows"

[podcasts.poll]
initial_delay = "100ms"
factor = 3.0
ceiling = "5s"
`
	if err := os.WriteFile(file, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	envFile := filepath.Join(dir, "test.env")
	if err := os.WriteFile(envFile, []byte("GET_SEARCH_API_KEY=from-dotenv\nGET_INDEX=from-dotenv\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GET_WORKERS", "7")
	t.Setenv("GET_INDEX", "from-env")

	cfg, err := Load(LoadOptions{File: file, EnvFile: envFile})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Workers != 7 {
		t.Errorf("Workers = %d, want 7 (env wins over file)", cfg.Workers)
	}
	if cfg.Timeout != 10*time.Second {
		t.Errorf("Timeout = %s, want 10s", cfg.Timeout)
	}
	if cfg.MangaDex.Language != "de" {
		t.Errorf("Language = %q, want de", cfg.MangaDex.Language)
	}
	if cfg.MangaDex.API != "https://api.mangadex.org/v2/" {
		t.Errorf("API = %q, want default kept", cfg.MangaDex.API)
	}
	if cfg.Podcasts.Index != "from-env" {
		t.Errorf("Index = %q, want from-env (set variables win over dotenv)", cfg.Podcasts.Index)
	}
	if cfg.Podcasts.APIKey != "from-dotenv" {
		t.Errorf("APIKey = %q, want from-dotenv", cfg.Podcasts.APIKey)
	}
	if cfg.Podcasts.Poll.Factor != 3 || cfg.Podcasts.Poll.Ceiling != 5*time.Second {
		t.Errorf("Poll = %+v", cfg.Podcasts.Poll)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	isolate(t)
	if _, err := Load(LoadOptions{File: "/nonexistent/get.toml"}); err == nil {
		t.Error("Load() error = nil, want error for missing explicit file")
	}
}

func TestLoad_InvalidEnv(t *testing.T) {
	isolate(t)
	t.Setenv("GET_WORKERS", "many")
	if _, err := Load(LoadOptions{}); err == nil {
		t.Error("Load() error = nil, want error for GET_WORKERS=many")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"zero workers", func(c *Config) { c.Workers = 0 }},
		{"negative attempts", func(c *Config) { c.MaxAttempts = -1 }},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }},
		{"zero initial delay", func(c *Config) { c.Podcasts.Poll.InitialDelay = 0 }},
		{"shrinking factor", func(c *Config) { c.Podcasts.Poll.Factor = 0.5 }},
		{"zero ceiling", func(c *Config) { c.Podcasts.Poll.Ceiling = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() error = nil, want error")
			}
		})
	}
}
