package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// FetchError is returned for any failed page fetch: non-2xx status,
// timeout, DNS or connection failure.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Fetcher downloads raw HTML with a single GET.
type Fetcher struct {
	config *FetcherConfig
	logger *zap.Logger
}

// NewFetcher returns a Fetcher using config, or DefaultConfig when nil.
func NewFetcher(config *FetcherConfig, logger *zap.Logger) *Fetcher {
	if config == nil {
		config = DefaultConfig()
	}
	return &Fetcher{
		config: config,
		logger: logger,
	}
}

// Fetch issues one GET for rawURL with the browser user agent plus the
// given headers. Each call uses its own synchronous collector so nothing
// is shared between fetches.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, headers http.Header) ([]byte, error) {
	if _, err := ValidateURL(rawURL); err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}

	c := colly.NewCollector(
		colly.UserAgent(f.config.UserAgent),
		colly.AllowURLRevisit(),
		colly.StdlibContext(ctx),
	)
	// Error statuses reach OnResponse; the 2xx check below decides.
	c.ParseHTTPErrorResponse = true
	if f.config.RequestTimeout > 0 {
		c.SetRequestTimeout(f.config.RequestTimeout)
	}
	if f.config.ProxyURL != "" {
		if err := c.SetProxy(f.config.ProxyURL); err != nil {
			return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("set proxy: %w", err)}
		}
	}

	c.OnRequest(func(r *colly.Request) {
		for key, values := range headers {
			for _, v := range values {
				r.Headers.Add(key, v)
			}
		}
	})

	var (
		body   []byte
		status int
	)
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
		status = r.StatusCode
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
	})

	if err := c.Visit(rawURL); err != nil {
		f.logger.Warn("fetch failed",
			zap.String("url", rawURL),
			zap.Int("status_code", status),
			zap.Error(err))
		return nil, &FetchError{URL: rawURL, StatusCode: status, Err: err}
	}

	if status < 200 || status >= 300 {
		f.logger.Warn("fetch failed",
			zap.String("url", rawURL),
			zap.Int("status_code", status))
		return nil, &FetchError{URL: rawURL, StatusCode: status, Err: errors.New(http.StatusText(status))}
	}

	f.logger.Debug("fetched page",
		zap.String("url", rawURL),
		zap.Int("status_code", status),
		zap.Int("bytes", len(body)))

	return body, nil
}
