package crawler

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
)

var allowedSchemes = []string{"http", "https"}

// ErrUnsupportedURL is wrapped by ValidateURL failures.
var ErrUnsupportedURL = errors.New("unsupported URL")

// ValidateURL rejects anything a fetcher cannot download: unparsable
// strings, relative links and non-HTTP schemes such as javascript: or mailto:.
func ValidateURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Join(ErrUnsupportedURL, err)
	}
	if !slices.Contains(allowedSchemes, u.Scheme) {
		return nil, fmt.Errorf("%w: scheme %q", ErrUnsupportedURL, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrUnsupportedURL)
	}
	return u, nil
}
