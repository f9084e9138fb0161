package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"go.uber.org/zap"

	"gptbrowse/crawler"
)

// SearchResult is one entry of a results page. ID is the position of the
// result block on the page, so ids may have gaps when blocks are skipped.
type SearchResult struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	Link  string `json:"link"`
}

// SearchEngine returns the result list for a query.
type SearchEngine interface {
	Search(ctx context.Context, query string) ([]SearchResult, error)
}

// Engine describes how to query a results page and where the results sit
// in its markup. URLTemplate holds a {query} placeholder.
type Engine struct {
	Name           string `yaml:"name"`
	URLTemplate    string `yaml:"url_template"`
	ResultSelector string `yaml:"result_selector"`
	TitleSelector  string `yaml:"title_selector"`
	LinkSelector   string `yaml:"link_selector"`
}

const (
	EngineGoogle     = "google"
	EngineBing       = "bing"
	EngineDuckDuckGo = "duckduckgo"
	EngineSerpApi    = "serpapi"
)

var Engines = map[string]Engine{
	EngineGoogle: {
		Name:           EngineGoogle,
		URLTemplate:    "https://www.google.com/search?q={query}",
		ResultSelector: "div.g",
		TitleSelector:  "h3",
		LinkSelector:   "a",
	},
	EngineBing: {
		Name:           EngineBing,
		URLTemplate:    "https://www.bing.com/search?q={query}",
		ResultSelector: "li.b_algo",
		TitleSelector:  "h2",
		LinkSelector:   "h2 a",
	},
	EngineDuckDuckGo: {
		Name:           EngineDuckDuckGo,
		URLTemplate:    "https://html.duckduckgo.com/html/?q={query}",
		ResultSelector: "div.result",
		TitleSelector:  "a.result__a",
		LinkSelector:   "a.result__a",
	},
}

// LookupEngine resolves name against custom engines first, then the
// built-in ones.
func LookupEngine(name string, custom map[string]Engine) (Engine, error) {
	if e, ok := custom[name]; ok {
		if e.Name == "" {
			e.Name = name
		}
		return e, e.Validate()
	}
	if e, ok := Engines[name]; ok {
		return e, nil
	}
	return Engine{}, fmt.Errorf("unknown search engine %q (known: %s)", name, strings.Join(EngineNames(custom), ", "))
}

// EngineNames lists built-in and custom engine names, sorted.
func EngineNames(custom map[string]Engine) []string {
	names := []string{EngineSerpApi}
	for name := range Engines {
		names = append(names, name)
	}
	for name := range custom {
		if _, ok := Engines[name]; !ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Validate checks for a {query} placeholder and all three selectors.
func (e Engine) Validate() error {
	switch {
	case !strings.Contains(e.URLTemplate, "{query}"):
		return fmt.Errorf("engine %q: url_template must contain {query}", e.Name)
	case e.ResultSelector == "", e.TitleSelector == "", e.LinkSelector == "":
		return fmt.Errorf("engine %q: result, title and link selectors are required", e.Name)
	}
	return nil
}

// QueryURL percent-encodes query into the template. Spaces become %20.
func (e Engine) QueryURL(query string) string {
	escaped := strings.ReplaceAll(url.QueryEscape(query), "+", "%20")
	return strings.ReplaceAll(e.URLTemplate, "{query}", escaped)
}

// PageFetcher downloads a results page.
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string, headers http.Header) ([]byte, error)
}

// HTMLSearchEngine scrapes an engine's results page.
type HTMLSearchEngine struct {
	engine  Engine
	fetcher PageFetcher
	logger  *zap.Logger
}

// NewHTMLSearchEngine scrapes engine result pages fetched through fetcher.
func NewHTMLSearchEngine(engine Engine, fetcher PageFetcher, logger *zap.Logger) *HTMLSearchEngine {
	return &HTMLSearchEngine{
		engine:  engine,
		fetcher: fetcher,
		logger:  logger,
	}
}

// Search fetches the engine results page for query and parses it.
func (s *HTMLSearchEngine) Search(ctx context.Context, query string) ([]SearchResult, error) {
	queryURL := s.engine.QueryURL(query)

	headers := http.Header{}
	headers.Set("Accept-Language", crawler.DefaultAcceptLanguage)

	body, err := s.fetcher.Fetch(ctx, queryURL, headers)
	if err != nil {
		return nil, fmt.Errorf("fetch results page: %w", err)
	}

	results, err := ParseResults(body, s.engine)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("parsed results page",
		zap.String("engine", s.engine.Name),
		zap.String("url", queryURL),
		zap.Int("results", len(results)))

	return results, nil
}
