package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"gptbrowse/browse"
	"gptbrowse/crawler"
	"gptbrowse/search"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Browser is the subset of browse.Browser the handlers use.
type Browser interface {
	Search(ctx context.Context, query string) []search.SearchResult
	Click(ctx context.Context, id int, results []search.SearchResult) (*crawler.Page, error)
	Open(ctx context.Context, rawURL string) (*crawler.Page, error)
}

// ClickRequest carries the result list back, since the server keeps no
// state between requests.
type ClickRequest struct {
	ID      int                   `json:"id"`
	Results []search.SearchResult `json:"results"`
}

func (s *Server) sessionLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, id := browse.NewSessionContext(r.Context())
		s.logger.Debug("request",
			zap.String("session_id", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		s.writeJSON(w, http.StatusBadRequest, browse.ErrorRecord{Error: "missing query parameter q"})
		return
	}
	s.writeJSON(w, http.StatusOK, s.browser.Search(r.Context(), query))
}

func (s *Server) handleClick(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()

	var req ClickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, browse.ErrorRecord{Error: "invalid request body: " + err.Error()})
		return
	}

	page, err := s.browser.Click(r.Context(), req.ID, req.Results)
	s.writeJSON(w, pageStatus(err), browse.PageRecord(page, err))
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		s.writeJSON(w, http.StatusBadRequest, browse.ErrorRecord{Error: "missing query parameter url"})
		return
	}

	page, err := s.browser.Open(r.Context(), rawURL)
	s.writeJSON(w, pageStatus(err), browse.PageRecord(page, err))
}

func pageStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, browse.ErrInvalidResultID):
		return http.StatusBadRequest
	}
	return http.StatusBadGateway
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := browse.Encode(v, false)
	if err != nil {
		s.logger.Error("encode response", zap.Error(err))
		http.Error(w, `{"error":"encode failed"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}
