package browse

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"

	"gptbrowse/search"
)

func runREPL(t *testing.T, b *Browser, input string) string {
	t.Helper()
	var out bytes.Buffer
	if err := NewREPL(b, strings.NewReader(input), &out, zap.NewNop()).Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return out.String()
}

func TestREPL_Messages(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  string
	}{
		{"ClickBeforeSearch", "/click=0\n", msgNoResults},
		{"MalformedSearch", "/search=golang\n", msgInvalidSearch},
		{"EmptySearch", "/search=\"\"\n", msgInvalidSearch},
		{"UnknownCommand", "hello\n", msgInvalidReplInput},
		{"Exit", "  /search_exit  \n/click=0\n", msgExiting},
		{"MalformedOpenLink", "/open_link=https://a.example\n", msgInvalidOpenLink},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out := runREPL(t, newTestBrowser(&fakeEngine{results: testResults}, &fakeFetcher{}), tc.input)
			if !strings.Contains(out, tc.want) {
				t.Errorf("output = %q, want it to contain %q", out, tc.want)
			}
		})
	}
}

func TestREPL_ExitStopsReading(t *testing.T) {
	out := runREPL(t, newTestBrowser(&fakeEngine{}, &fakeFetcher{}), "/search_exit\n/click=0\n")
	if strings.Contains(out, msgNoResults) {
		t.Errorf("commands after exit were processed: %q", out)
	}
	if strings.Count(out, replPrompt) != 1 {
		t.Errorf("prompt count = %d, want 1", strings.Count(out, replPrompt))
	}
}

func TestREPL_SearchThenClick(t *testing.T) {
	engine := &fakeEngine{results: testResults}
	fetcher := &fakeFetcher{pages: map[string]string{"https://a.example": alphaPage}}

	out := runREPL(t, newTestBrowser(engine, fetcher), strings.Join([]string{
		`/search="alpha beta"`,
		`/click=abc`,
		`/click=5`,
		`/click=0`,
	}, "\n"))

	if len(engine.queries) != 1 || engine.queries[0] != "alpha beta" {
		t.Errorf("queries = %q", engine.queries)
	}
	for _, want := range []string{
		`"title": "Alpha"`,
		`"title": "Gamma <b>"`,
		msgInvalidResultID,
		`"error": "Invalid result ID"`,
		`"title": "Alpha Page"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestREPL_ClickAfterEmptySearch(t *testing.T) {
	out := runREPL(t, newTestBrowser(&fakeEngine{results: []search.SearchResult{}}, &fakeFetcher{}), "/search=\"nothing\"\n/click=0\n")
	if strings.Contains(out, msgNoResults) {
		t.Errorf("an empty search still counts as a search: %q", out)
	}
	if !strings.Contains(out, `"error": "Invalid result ID"`) {
		t.Errorf("output = %q, want invalid id record", out)
	}
}

func TestREPL_OpenLink(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{"https://a.example": alphaPage}}
	out := runREPL(t, newTestBrowser(&fakeEngine{}, fetcher), "/open_link=\"https://a.example\"\n")
	if !strings.Contains(out, `"title": "Alpha Page"`) {
		t.Errorf("output = %q", out)
	}
}

func TestREPL_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	err := NewREPL(newTestBrowser(&fakeEngine{}, &fakeFetcher{}), strings.NewReader("/search_exit\n"), &out, zap.NewNop()).Run(ctx)
	if err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
