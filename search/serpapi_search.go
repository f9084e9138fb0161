package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

const serpApiURL = "https://serpapi.com/search"

// SerpApiSearchEngine queries the SerpAPI JSON endpoint.
type SerpApiSearchEngine struct {
	client *http.Client
	apiKey string
	logger *zap.Logger
	// BaseURL overrides the SerpAPI endpoint.
	BaseURL string
}

type serpApiResponse struct {
	OrganicResults []struct {
		Position int    `json:"position"`
		Title    string `json:"title"`
		Link     string `json:"link"`
		Snippet  string `json:"snippet"`
	} `json:"organic_results"`
	SearchMetadata struct {
		Status string `json:"status"`
	} `json:"search_metadata"`
	Error string `json:"error"`
}

// NewSerpApiSearchEngine returns a client whose requests give up after timeout.
func NewSerpApiSearchEngine(apiKey string, timeout time.Duration, logger *zap.Logger) *SerpApiSearchEngine {
	return &SerpApiSearchEngine{
		client:  &http.Client{Timeout: timeout},
		apiKey:  apiKey,
		logger:  logger,
		BaseURL: serpApiURL,
	}
}

// Search returns the first page of organic Google results. Ids are list
// positions.
func (s *SerpApiSearchEngine) Search(ctx context.Context, query string) ([]SearchResult, error) {
	params := url.Values{}
	params.Set("engine", "google")
	params.Set("q", query)
	params.Set("api_key", s.apiKey)
	params.Set("num", "10")

	apiURL := s.BaseURL + "?" + params.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var searchResp serpApiResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if searchResp.Error != "" {
		return nil, fmt.Errorf("API error: %s", searchResp.Error)
	}

	results := make([]SearchResult, 0, len(searchResp.OrganicResults))
	for i, item := range searchResp.OrganicResults {
		results = append(results, SearchResult{
			ID:    i,
			Title: item.Title,
			Link:  item.Link,
		})
	}

	s.logger.Debug("serpapi search",
		zap.String("query", query),
		zap.String("status", searchResp.SearchMetadata.Status),
		zap.Int("results", len(results)))

	return results, nil
}
