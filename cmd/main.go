package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"gptbrowse/browse"
	"gptbrowse/config"
	"gptbrowse/crawler"
	"gptbrowse/search"
)

var (
	configPath   string
	engineName   string
	strategyName string
	backendName  string
)

var rootCmd = &cobra.Command{
	Use:   "gptbrowse",
	Short: "Search the web and extract structured page data, alone or driven by a chat model",
	Long: `gptbrowse searches the web, extracts structured data from result pages and
lets a chat model browse through /search="query", /click=ID and /search_done
commands.

Examples:
  gptbrowse search "go generics tutorial"
  gptbrowse extract https://go.dev/doc/tutorial/generics
  gptbrowse read https://go.dev/blog/intro-generics
  gptbrowse repl
  gptbrowse chat
  gptbrowse serve`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $XDG_CONFIG_HOME/gptbrowse/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&engineName, "engine", "", "search engine: google, bing, duckduckgo, serpapi or a configured engine")
	rootCmd.PersistentFlags().StringVar(&strategyName, "strategy", "", "extraction strategy: heuristic, readability or trafilatura")
	rootCmd.PersistentFlags().StringVar(&backendName, "backend", "", "fetch backend: http or chrome")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", os.Getenv("NO_COLOR") != "", "disable colored output")

	rootCmd.AddCommand(replCmd, chatCmd, searchCmd, extractCmd, readCmd, serveCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}

// app holds the components every command is built from.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	fetcher   browse.PageFetcher
	extractor *crawler.Extractor
	browser   *browse.Browser
}

func newApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	applyFlagOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	fetcher := newFetcher(cfg, logger)
	engine, err := newSearchEngine(cfg, fetcher, logger)
	if err != nil {
		return nil, err
	}
	extractor := crawler.NewExtractor(crawler.Strategy(cfg.Extract.Strategy), logger)

	return &app{
		cfg:       cfg,
		logger:    logger,
		fetcher:   fetcher,
		extractor: extractor,
		browser:   browse.NewBrowser(engine, fetcher, extractor, logger),
	}, nil
}

func (a *app) close() {
	_ = a.logger.Sync()
}

func applyFlagOverrides(cfg *config.Config) {
	if engineName != "" {
		cfg.Search.Engine = engineName
	}
	if strategyName != "" {
		cfg.Extract.Strategy = strategyName
	}
	if backendName != "" {
		cfg.Fetch.Backend = backendName
	}
}

// newLogger writes to stderr so stdout carries only command output.
func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	zcfg := zap.NewProductionConfig()
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.ErrorOutputPaths = []string{"stderr"}

	return zcfg.Build()
}

func newFetcher(cfg *config.Config, logger *zap.Logger) browse.PageFetcher {
	if cfg.Fetch.Backend == config.BackendChrome {
		return crawler.NewChromeFetcher(cfg.FetcherConfig(), logger)
	}
	return crawler.NewFetcher(cfg.FetcherConfig(), logger)
}

func newSearchEngine(cfg *config.Config, fetcher search.PageFetcher, logger *zap.Logger) (search.SearchEngine, error) {
	if cfg.Search.Engine == search.EngineSerpApi {
		return search.NewSerpApiSearchEngine(cfg.Search.SerpApiAPIKey, cfg.Fetch.Timeout, logger), nil
	}
	engine, err := search.LookupEngine(cfg.Search.Engine, cfg.Search.Engines)
	if err != nil {
		return nil, err
	}
	return search.NewHTMLSearchEngine(engine, fetcher, logger), nil
}
