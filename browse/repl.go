package browse

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"gptbrowse/search"
)

const (
	replPrompt          = `Enter command (/search="query", /click=ID, or /search_exit): `
	msgInvalidSearch    = `Invalid search command. Use format: /search="query"`
	msgInvalidOpenLink  = `Invalid open_link command. Use format: /open_link="url"`
	msgNoResults        = `No search results available. Please perform a search first.`
	msgInvalidResultID  = `Invalid result ID. Please enter a number.`
	msgExiting          = `Exiting the program.`
	msgInvalidReplInput = `Invalid command. Use /search="query", /click=ID, or /search_exit`
	replExitCommand     = "/search_exit"
	replSearchPrefix    = "/search="
	replClickPrefix     = "/click="
	replOpenLinkPrefix  = "/open_link="
	replMaxLineBytes    = 1024 * 1024
)

var (
	replSearchPattern   = regexp.MustCompile(`^/search="([^"]+)"`)
	replOpenLinkPattern = regexp.MustCompile(`^/open_link="([^"]+)"`)
)

// REPL is the standalone line-oriented front end: it reads one command per
// line and prints JSON results until /search_exit or end of input.
type REPL struct {
	browser *Browser
	in      io.Reader
	out     io.Writer
	logger  *zap.Logger
}

// NewREPL reads commands from in and writes JSON and messages to out.
func NewREPL(browser *Browser, in io.Reader, out io.Writer, logger *zap.Logger) *REPL {
	return &REPL{
		browser: browser,
		in:      in,
		out:     out,
		logger:  logger,
	}
}

// Run processes commands until /search_exit, EOF or ctx is done.
func (r *REPL) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(r.in)
	scanner.Buffer(make([]byte, 0, 64*1024), replMaxLineBytes)

	var (
		lastResults []search.SearchResult
		searched    bool
	)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		fmt.Fprint(r.out, replPrompt)
		if !scanner.Scan() {
			fmt.Fprintln(r.out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch {
		case strings.HasPrefix(line, replSearchPrefix):
			m := replSearchPattern.FindStringSubmatch(line)
			if m == nil {
				fmt.Fprintln(r.out, msgInvalidSearch)
				continue
			}
			lastResults = r.browser.Search(ctx, m[1])
			searched = true
			r.printJSON(lastResults)

		case strings.HasPrefix(line, replClickPrefix):
			if !searched {
				fmt.Fprintln(r.out, msgNoResults)
				continue
			}
			id, err := strconv.Atoi(strings.SplitN(line, "=", 3)[1])
			if err != nil {
				fmt.Fprintln(r.out, msgInvalidResultID)
				continue
			}
			page, err := r.browser.Click(ctx, id, lastResults)
			r.printJSON(PageRecord(page, err))

		case strings.HasPrefix(line, replOpenLinkPrefix):
			m := replOpenLinkPattern.FindStringSubmatch(line)
			if m == nil {
				fmt.Fprintln(r.out, msgInvalidOpenLink)
				continue
			}
			page, err := r.browser.Open(ctx, m[1])
			r.printJSON(PageRecord(page, err))

		case line == replExitCommand:
			fmt.Fprintln(r.out, msgExiting)
			return nil

		default:
			fmt.Fprintln(r.out, msgInvalidReplInput)
		}
	}
}

func (r *REPL) printJSON(v any) {
	data, err := Encode(v, true)
	if err != nil {
		r.logger.Error("encode output", zap.Error(err))
		fmt.Fprintln(r.out, `{"error": "encode failed"}`)
		return
	}
	fmt.Fprintln(r.out, string(data))
}
