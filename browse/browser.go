package browse

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"gptbrowse/crawler"
	"gptbrowse/search"
)

var ErrInvalidResultID = errors.New("invalid result ID")

// invalidResultIDMessage is the exact error text callers see for an
// out-of-range click.
const invalidResultIDMessage = "Invalid result ID"

// ErrorRecord is the JSON shape of a failed page.
type ErrorRecord struct {
	Error string `json:"error"`
}

// PageFetcher downloads raw HTML for a URL.
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string, headers http.Header) ([]byte, error)
}

// Browser runs searches and turns clicked results into page records. It
// holds no per-session state; callers keep the last result list.
type Browser struct {
	engine    search.SearchEngine
	fetcher   PageFetcher
	extractor *crawler.Extractor
	logger    *zap.Logger
}

// NewBrowser wires a search engine, a page fetcher and an extractor together.
func NewBrowser(engine search.SearchEngine, fetcher PageFetcher, extractor *crawler.Extractor, logger *zap.Logger) *Browser {
	return &Browser{
		engine:    engine,
		fetcher:   fetcher,
		extractor: extractor,
		logger:    logger,
	}
}

// Search never fails: provider errors are logged and yield an empty list.
func (b *Browser) Search(ctx context.Context, query string) []search.SearchResult {
	logger := LoggerFromContext(ctx, b.logger)

	results, err := b.engine.Search(ctx, query)
	if err != nil {
		logger.Error("search failed",
			zap.String("query", query),
			zap.Error(err))
		return []search.SearchResult{}
	}
	if len(results) == 0 {
		logger.Info("no results found", zap.String("query", query))
		return []search.SearchResult{}
	}

	logger.Info("search completed",
		zap.String("query", query),
		zap.Int("results", len(results)))
	return results
}

// Click extracts the page behind results[id].
func (b *Browser) Click(ctx context.Context, id int, results []search.SearchResult) (*crawler.Page, error) {
	if id < 0 || id >= len(results) {
		LoggerFromContext(ctx, b.logger).Warn("invalid result id",
			zap.Int("id", id),
			zap.Int("results", len(results)))
		return nil, ErrInvalidResultID
	}
	return b.Open(ctx, results[id].Link)
}

// Open fetches and extracts an arbitrary URL.
func (b *Browser) Open(ctx context.Context, rawURL string) (*crawler.Page, error) {
	logger := LoggerFromContext(ctx, b.logger)

	body, err := b.fetcher.Fetch(ctx, rawURL, nil)
	if err != nil {
		logger.Error("page fetch failed",
			zap.String("url", rawURL),
			zap.Error(err))
		return nil, err
	}

	page, err := b.extractor.Extract(body, rawURL)
	if err != nil {
		logger.Error("page extraction failed",
			zap.String("url", rawURL),
			zap.Error(err))
		return nil, fmt.Errorf("extract %s: %w", rawURL, err)
	}

	logger.Info("page extracted",
		zap.String("url", rawURL),
		zap.String("title", page.Title),
		zap.Int("word_count", page.WordCount))
	return page, nil
}

// PageRecord returns page, or the error record that stands in for it.
func PageRecord(page *crawler.Page, err error) any {
	switch {
	case errors.Is(err, ErrInvalidResultID):
		return ErrorRecord{Error: invalidResultIDMessage}
	case err != nil:
		return ErrorRecord{Error: err.Error()}
	case page == nil:
		return ErrorRecord{Error: "no page"}
	}
	return page
}

// Encode renders v as JSON without HTML escaping. indent selects the
// two-space human form; otherwise the output is compact.
func Encode(v any, indent bool) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// DecodeResults parses a JSON result list produced by Encode.
func DecodeResults(data []byte) ([]search.SearchResult, error) {
	results := []search.SearchResult{}
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("decode results: %w", err)
	}
	return results, nil
}
