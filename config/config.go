package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"gptbrowse/crawler"
	"gptbrowse/search"
)

const (
	BackendHTTP   = "http"
	BackendChrome = "chrome"
)

// Config is the full application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Fetch   FetchConfig   `yaml:"fetch"`
	Search  SearchConfig  `yaml:"search"`
	Extract ExtractConfig `yaml:"extract"`
	Chat    ChatConfig    `yaml:"chat"`
	Log     LogConfig     `yaml:"log"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type FetchConfig struct {
	Backend     string        `yaml:"backend"`
	UserAgent   string        `yaml:"user_agent"`
	Timeout     time.Duration `yaml:"timeout"`
	ProxyURL    string        `yaml:"proxy_url"`
	WaitVisible string        `yaml:"wait_visible"`
}

type SearchConfig struct {
	Engine        string                   `yaml:"engine"`
	SerpApiAPIKey string                   `yaml:"serpapi_api_key"`
	Engines       map[string]search.Engine `yaml:"engines"`
}

type ExtractConfig struct {
	Strategy string `yaml:"strategy"`
}

type ChatConfig struct {
	APIKey          string `yaml:"api_key"`
	BaseURL         string `yaml:"base_url"`
	Model           string `yaml:"model"`
	MaxPayloadChars int    `yaml:"max_payload_chars"`
	MaxSteps        int    `yaml:"max_steps"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 8080,
		},
		Fetch: FetchConfig{
			Backend:     BackendHTTP,
			UserAgent:   crawler.DefaultUserAgent,
			Timeout:     30 * time.Second,
			WaitVisible: "body",
		},
		Search: SearchConfig{
			Engine: search.EngineGoogle,
		},
		Extract: ExtractConfig{
			Strategy: string(crawler.StrategyHeuristic),
		},
		Chat: ChatConfig{
			Model:           "gpt-4o",
			MaxPayloadChars: 4000,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration from defaults, then the YAML file at path,
// then environment variables. An empty path means DefaultPath, which may
// be absent; an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := defaults()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if err := applyFile(&cfg, path, explicit); err != nil {
		return nil, err
	}
	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// DefaultPath is $XDG_CONFIG_HOME/gptbrowse/config.yaml.
func DefaultPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".config")
		} else {
			dir = "."
		}
	}
	return filepath.Join(dir, "gptbrowse", "config.yaml")
}

func applyFile(cfg *Config, path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) error {
	setString(&cfg.Chat.APIKey, "OPENAI_API_KEY")
	setString(&cfg.Chat.BaseURL, "API_BASE")
	setString(&cfg.Chat.Model, "GPTBROWSE_MODEL")
	setString(&cfg.Search.Engine, "GPTBROWSE_ENGINE")
	setString(&cfg.Search.SerpApiAPIKey, "SERPAPI_API_KEY")
	setString(&cfg.Extract.Strategy, "GPTBROWSE_STRATEGY")
	setString(&cfg.Fetch.Backend, "GPTBROWSE_BACKEND")
	setString(&cfg.Fetch.ProxyURL, "PROXY_URL")
	setString(&cfg.Log.Level, "GPTBROWSE_LOG_LEVEL")

	if v := os.Getenv("APP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid APP_PORT %q: %w", v, err)
		}
		cfg.Server.Port = port
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate checks enumerations and limits. It does not require the model
// API key, since only the chat command needs it.
func (c *Config) Validate() error {
	switch c.Fetch.Backend {
	case BackendHTTP, BackendChrome:
	default:
		return fmt.Errorf("fetch.backend must be %q or %q, got %q", BackendHTTP, BackendChrome, c.Fetch.Backend)
	}
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("fetch.timeout must be positive, got %s", c.Fetch.Timeout)
	}
	if !crawler.Strategy(c.Extract.Strategy).Valid() {
		return fmt.Errorf("extract.strategy must be heuristic, readability or trafilatura, got %q", c.Extract.Strategy)
	}
	if c.Search.Engine == search.EngineSerpApi {
		if c.Search.SerpApiAPIKey == "" {
			return fmt.Errorf("search.engine serpapi requires SERPAPI_API_KEY")
		}
	} else if _, err := search.LookupEngine(c.Search.Engine, c.Search.Engines); err != nil {
		return err
	}
	if c.Chat.MaxPayloadChars <= 0 {
		return fmt.Errorf("chat.max_payload_chars must be positive, got %d", c.Chat.MaxPayloadChars)
	}
	if c.Chat.MaxSteps < 0 {
		return fmt.Errorf("chat.max_steps must not be negative, got %d", c.Chat.MaxSteps)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// RequireAPIKey fails when no model credential is configured.
func (c *Config) RequireAPIKey() error {
	if c.Chat.APIKey == "" {
		return fmt.Errorf("missing required config: model API key. Set OPENAI_API_KEY or chat.api_key")
	}
	return nil
}

// FetcherConfig maps the fetch section onto crawler settings.
func (c *Config) FetcherConfig() *crawler.FetcherConfig {
	return &crawler.FetcherConfig{
		UserAgent:      c.Fetch.UserAgent,
		RequestTimeout: c.Fetch.Timeout,
		ProxyURL:       c.Fetch.ProxyURL,
		WaitVisible:    c.Fetch.WaitVisible,
	}
}
