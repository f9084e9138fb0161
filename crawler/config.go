package crawler

import (
	"time"
)

const (
	DefaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	DefaultAcceptLanguage = "en-US,en;q=0.9"
)

// FetcherConfig holds settings shared by both fetch backends.
type FetcherConfig struct {
	UserAgent      string
	RequestTimeout time.Duration
	ProxyURL       string
	// WaitVisible is the selector the headless backend waits for before
	// reading the DOM.
	WaitVisible string
}

// DefaultConfig returns a default fetcher configuration
func DefaultConfig() *FetcherConfig {
	return &FetcherConfig{
		UserAgent:      DefaultUserAgent,
		RequestTimeout: 30 * time.Second,
		WaitVisible:    "body",
	}
}
