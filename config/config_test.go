package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var envKeys = []string{
	"OPENAI_API_KEY", "API_BASE", "GPTBROWSE_MODEL", "GPTBROWSE_ENGINE",
	"GPTBROWSE_STRATEGY", "GPTBROWSE_BACKEND", "PROXY_URL", "APP_PORT",
	"SERPAPI_API_KEY", "GPTBROWSE_LOG_LEVEL",
}

// clearEnv blanks every override so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
}

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Search.Engine != "google" {
		t.Errorf("Search.Engine = %q, want google", cfg.Search.Engine)
	}
	if cfg.Extract.Strategy != "heuristic" {
		t.Errorf("Extract.Strategy = %q, want heuristic", cfg.Extract.Strategy)
	}
	if cfg.Fetch.Backend != BackendHTTP {
		t.Errorf("Fetch.Backend = %q, want http", cfg.Fetch.Backend)
	}
	if cfg.Fetch.Timeout != 30*time.Second {
		t.Errorf("Fetch.Timeout = %s, want 30s", cfg.Fetch.Timeout)
	}
	if cfg.Chat.Model != "gpt-4o" {
		t.Errorf("Chat.Model = %q, want gpt-4o", cfg.Chat.Model)
	}
	if cfg.Chat.MaxPayloadChars != 4000 {
		t.Errorf("Chat.MaxPayloadChars = %d, want 4000", cfg.Chat.MaxPayloadChars)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
	if err := cfg.RequireAPIKey(); err == nil {
		t.Error("expected missing API key error")
	}
}

func TestFileOverridesDefaults(t *testing.T) {
	clearEnv(t)
	path := writeTempConfig(t, `
fetch:
  timeout: 5s
  backend: chrome
search:
  engine: intranet
  engines:
    intranet:
      url_template: "https://intranet.example/find?q={query}"
      result_selector: li.hit
      title_selector: b
      link_selector: a
chat:
  model: gpt-4o-mini
  max_steps: 12
log:
  level: debug
  development: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Fetch.Timeout != 5*time.Second {
		t.Errorf("Fetch.Timeout = %s, want 5s", cfg.Fetch.Timeout)
	}
	if cfg.Fetch.Backend != BackendChrome {
		t.Errorf("Fetch.Backend = %q, want chrome", cfg.Fetch.Backend)
	}
	if cfg.Chat.Model != "gpt-4o-mini" || cfg.Chat.MaxSteps != 12 {
		t.Errorf("Chat = %+v", cfg.Chat)
	}
	if cfg.Chat.MaxPayloadChars != 4000 {
		t.Errorf("unset file keys should keep defaults, got %d", cfg.Chat.MaxPayloadChars)
	}
	if !cfg.Log.Development || cfg.Log.Level != "debug" {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if cfg.Search.Engines["intranet"].ResultSelector != "li.hit" {
		t.Errorf("custom engine not loaded: %+v", cfg.Search.Engines)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeTempConfig(t, `
search:
  engine: bing
chat:
  api_key: file-key
server:
  port: 9000
`)
	t.Setenv("OPENAI_API_KEY", "env-key")
	t.Setenv("GPTBROWSE_ENGINE", "duckduckgo")
	t.Setenv("APP_PORT", "7000")
	t.Setenv("API_BASE", "http://localhost:1234/v1")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Chat.APIKey != "env-key" {
		t.Errorf("Chat.APIKey = %q, want env-key", cfg.Chat.APIKey)
	}
	if cfg.Search.Engine != "duckduckgo" {
		t.Errorf("Search.Engine = %q, want duckduckgo", cfg.Search.Engine)
	}
	if cfg.Server.Port != 7000 {
		t.Errorf("Server.Port = %d, want 7000", cfg.Server.Port)
	}
	if cfg.Chat.BaseURL != "http://localhost:1234/v1" {
		t.Errorf("Chat.BaseURL = %q", cfg.Chat.BaseURL)
	}
	if err := cfg.RequireAPIKey(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing explicit config file")
	}
	if _, err := Load(writeTempConfig(t, "fetch: [unclosed")); err == nil {
		t.Error("expected error for malformed YAML")
	}

	t.Setenv("APP_PORT", "eighty")
	if _, err := Load(""); err == nil {
		t.Error("expected error for non-numeric APP_PORT")
	}
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"BadBackend", func(c *Config) { c.Fetch.Backend = "lynx" }, "fetch.backend"},
		{"ZeroTimeout", func(c *Config) { c.Fetch.Timeout = 0 }, "fetch.timeout"},
		{"BadStrategy", func(c *Config) { c.Extract.Strategy = "magic" }, "extract.strategy"},
		{"UnknownEngine", func(c *Config) { c.Search.Engine = "altavista" }, "unknown search engine"},
		{"SerpApiWithoutKey", func(c *Config) { c.Search.Engine = "serpapi" }, "SERPAPI_API_KEY"},
		{"ZeroPayload", func(c *Config) { c.Chat.MaxPayloadChars = 0 }, "max_payload_chars"},
		{"NegativeSteps", func(c *Config) { c.Chat.MaxSteps = -1 }, "max_steps"},
		{"BadPort", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"BadLogLevel", func(c *Config) { c.Log.Level = "chatty" }, "log.level"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaults()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected error containing %q", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("err = %v, want it to contain %q", err, tc.wantErr)
			}
		})
	}

	cfg := defaults()
	cfg.Search.Engine = "serpapi"
	cfg.Search.SerpApiAPIKey = "key"
	if err := cfg.Validate(); err != nil {
		t.Errorf("serpapi with key: unexpected error: %v", err)
	}
}

func TestFetcherConfig(t *testing.T) {
	cfg := defaults()
	cfg.Fetch.ProxyURL = "socks5://127.0.0.1:1080"

	fc := cfg.FetcherConfig()
	if fc.RequestTimeout != 30*time.Second || fc.ProxyURL != "socks5://127.0.0.1:1080" || fc.WaitVisible != "body" {
		t.Errorf("FetcherConfig = %+v", fc)
	}
}
