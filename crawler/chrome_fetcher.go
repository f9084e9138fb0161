package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// ChromeFetcher renders pages in headless Chrome and returns the DOM as
// HTML. Use it for results pages that only fill in through JavaScript.
type ChromeFetcher struct {
	config          *FetcherConfig
	logger          *zap.Logger
	ChromedpOptions []chromedp.ExecAllocatorOption
}

// NewChromeFetcher builds the headless allocator options from config.
func NewChromeFetcher(config *FetcherConfig, logger *zap.Logger) *ChromeFetcher {
	if config == nil {
		config = DefaultConfig()
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.Headless,
		chromedp.UserAgent(config.UserAgent),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("exclude-switches", "enable-automation"),
		chromedp.Flag("disable-extensions", ""),
	)
	if config.ProxyURL != "" {
		opts = append(opts, chromedp.ProxyServer(config.ProxyURL))
	}
	return &ChromeFetcher{
		config:          config,
		logger:          logger,
		ChromedpOptions: opts,
	}
}

// Fetch renders rawURL and returns the DOM once the wait selector is visible.
func (b *ChromeFetcher) Fetch(ctx context.Context, rawURL string, headers http.Header) ([]byte, error) {
	if _, err := ValidateURL(rawURL); err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, b.ChromedpOptions...)
	defer allocCancel()
	taskCtx, taskCancel := chromedp.NewContext(allocCtx)
	defer taskCancel()
	if b.config.RequestTimeout > 0 {
		var timeoutCancel context.CancelFunc
		taskCtx, timeoutCancel = context.WithTimeout(taskCtx, b.config.RequestTimeout)
		defer timeoutCancel()
	}

	extra := network.Headers{}
	for key, values := range headers {
		if len(values) > 0 {
			extra[key] = values[0]
		}
	}

	waitFor := b.config.WaitVisible
	if waitFor == "" {
		waitFor = "body"
	}

	b.logger.Info("navigating", zap.String("url", rawURL))

	if err := chromedp.Run(taskCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(extra),
	); err != nil {
		return nil, b.navigationError(rawURL, err)
	}

	resp, err := chromedp.RunResponse(taskCtx, chromedp.Navigate(rawURL))
	if err != nil {
		return nil, b.navigationError(rawURL, err)
	}
	if resp != nil && (resp.Status < 200 || resp.Status >= 300) {
		status := int(resp.Status)
		b.logger.Warn("fetch failed",
			zap.String("url", rawURL),
			zap.Int("status_code", status))
		return nil, &FetchError{URL: rawURL, StatusCode: status, Err: errors.New(http.StatusText(status))}
	}

	var domHTML string
	if err := chromedp.Run(taskCtx,
		chromedp.WaitVisible(waitFor),
		chromedp.OuterHTML("html", &domHTML),
	); err != nil {
		return nil, b.navigationError(rawURL, err)
	}

	b.logger.Debug("rendered page",
		zap.String("url", rawURL),
		zap.Int("dom_length", len(domHTML)))

	return []byte(domHTML), nil
}

func (b *ChromeFetcher) navigationError(rawURL string, err error) error {
	b.logger.Error("headless navigation failed",
		zap.String("url", rawURL),
		zap.Error(err))
	return &FetchError{URL: rawURL, Err: fmt.Errorf("navigation failed: %w", err)}
}
