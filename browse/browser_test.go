package browse

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap"

	"gptbrowse/crawler"
	"gptbrowse/search"
)

type fakeEngine struct {
	results []search.SearchResult
	err     error
	queries []string
}

func (f *fakeEngine) Search(_ context.Context, query string) ([]search.SearchResult, error) {
	f.queries = append(f.queries, query)
	return f.results, f.err
}

type fakeFetcher struct {
	pages   map[string]string
	fetched []string
}

func (f *fakeFetcher) Fetch(_ context.Context, rawURL string, _ http.Header) ([]byte, error) {
	f.fetched = append(f.fetched, rawURL)
	page, ok := f.pages[rawURL]
	if !ok {
		return nil, &crawler.FetchError{URL: rawURL, StatusCode: http.StatusNotFound, Err: errors.New("Not Found")}
	}
	return []byte(page), nil
}

var testResults = []search.SearchResult{
	{ID: 0, Title: "Alpha", Link: "https://a.example"},
	{ID: 2, Title: "Gamma <b>", Link: "https://c.example/?q=1&r=2"},
}

const alphaPage = `<html><head><title>Alpha Page</title></head><body><main><p>Alpha paragraph with enough characters</p></main></body></html>`

func newTestBrowser(engine *fakeEngine, fetcher *fakeFetcher) *Browser {
	return NewBrowser(engine, fetcher, crawler.NewExtractor(crawler.StrategyHeuristic, zap.NewNop()), zap.NewNop())
}

func TestBrowser_Search(t *testing.T) {
	engine := &fakeEngine{results: testResults}
	b := newTestBrowser(engine, &fakeFetcher{})

	got := b.Search(context.Background(), "alpha")
	if !reflect.DeepEqual(got, testResults) {
		t.Errorf("results = %+v, want %+v", got, testResults)
	}
	if !reflect.DeepEqual(engine.queries, []string{"alpha"}) {
		t.Errorf("queries = %q", engine.queries)
	}
}

func TestBrowser_SearchFailureYieldsEmptyList(t *testing.T) {
	testCases := []struct {
		name   string
		engine *fakeEngine
	}{
		{"ProviderError", &fakeEngine{err: errors.New("connection refused")}},
		{"NoResults", &fakeEngine{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := newTestBrowser(tc.engine, &fakeFetcher{}).Search(context.Background(), "q")
			if got == nil || len(got) != 0 {
				t.Fatalf("results = %#v, want empty non-nil list", got)
			}
			data, err := Encode(got, false)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(data) != "[]" {
				t.Errorf("encoded = %s, want []", data)
			}
		})
	}
}

func TestBrowser_ClickInvalidID(t *testing.T) {
	fetcher := &fakeFetcher{}
	b := newTestBrowser(&fakeEngine{}, fetcher)

	for _, id := range []int{-1, 2, 100} {
		page, err := b.Click(context.Background(), id, testResults)
		if !errors.Is(err, ErrInvalidResultID) {
			t.Errorf("id %d: err = %v, want ErrInvalidResultID", id, err)
		}
		data, _ := Encode(PageRecord(page, err), false)
		if string(data) != `{"error":"Invalid result ID"}` {
			t.Errorf("id %d: record = %s", id, data)
		}
	}
	if len(fetcher.fetched) != 0 {
		t.Errorf("fetched %q, want no fetches", fetcher.fetched)
	}
}

func TestBrowser_Click(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{"https://a.example": alphaPage}}
	b := newTestBrowser(&fakeEngine{}, fetcher)

	page, err := b.Click(context.Background(), 0, testResults)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Title != "Alpha Page" {
		t.Errorf("title = %q", page.Title)
	}
	if page.URL != "https://a.example" {
		t.Errorf("url = %q", page.URL)
	}
	if !reflect.DeepEqual(page.Content, []string{"Alpha paragraph with enough characters"}) {
		t.Errorf("content = %q", page.Content)
	}
}

func TestBrowser_ClickFetchErrorRecord(t *testing.T) {
	b := newTestBrowser(&fakeEngine{}, &fakeFetcher{})

	page, err := b.Click(context.Background(), 1, testResults)
	var fetchErr *crawler.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("err = %v, want *crawler.FetchError", err)
	}

	record, ok := PageRecord(page, err).(ErrorRecord)
	if !ok {
		t.Fatalf("record type = %T, want ErrorRecord", PageRecord(page, err))
	}
	if !strings.Contains(record.Error, "404") {
		t.Errorf("error = %q, want status in message", record.Error)
	}
}

func TestEncode(t *testing.T) {
	compact, err := Encode(testResults, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `[{"id":0,"title":"Alpha","link":"https://a.example"},{"id":2,"title":"Gamma <b>","link":"https://c.example/?q=1&r=2"}]`
	if string(compact) != want {
		t.Errorf("compact = %s\nwant %s", compact, want)
	}

	indented, err := Encode(ErrorRecord{Error: "héllo"}, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(indented) != "{\n  \"error\": \"héllo\"\n}" {
		t.Errorf("indented = %q", indented)
	}
}

func TestDecodeResults_RoundTrip(t *testing.T) {
	for _, indent := range []bool{false, true} {
		data, err := Encode(testResults, indent)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got, err := DecodeResults(data)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !reflect.DeepEqual(got, testResults) {
			t.Errorf("indent=%v: round trip = %+v, want %+v", indent, got, testResults)
		}
	}

	if _, err := DecodeResults([]byte("{not json")); err == nil {
		t.Error("expected decode error")
	}
}

func TestLoggerFromContext(t *testing.T) {
	ctx, id := NewSessionContext(context.Background())
	if id == "" || SessionID(ctx) != id {
		t.Errorf("session id = %q, context has %q", id, SessionID(ctx))
	}
	if SessionID(context.Background()) != "" {
		t.Error("expected no session id on a bare context")
	}
	base := zap.NewNop()
	if LoggerFromContext(context.Background(), base) != base {
		t.Error("expected base logger without a session id")
	}
}
