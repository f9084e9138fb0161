// Package chat runs the conversation loop in which a language model drives
// the browser through slash commands embedded in its replies.
package chat

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"gptbrowse/browse"
	"gptbrowse/command"
	"gptbrowse/crawler"
	"gptbrowse/search"
)

type State int

const (
	Idle State = iota
	Browsing
)

func (s State) String() string {
	if s == Browsing {
		return "browsing"
	}
	return "idle"
}

const (
	DefaultMaxPayloadChars = 4000

	truncatedSuffix = "... [truncated]"

	queryPrompt        = "Enter your query: "
	userPrompt         = "User: "
	exitCommand        = "exit"
	msgBrowsing        = "Browsing..."
	msgProcessing      = "AI is processing your request..."
	noticeNoResults    = "No search results available. Please perform a search first."
	noticeDone         = "Browsing completed. You can now summarize the information for the user."
	noticeInvalid      = `Invalid command. Use /search="query", /click=ID, or /search_done`
	maxInputLineBytes  = 1024 * 1024
	initialMessageSize = 16
)

// Browser performs the searches and clicks the model asks for.
type Browser interface {
	Search(ctx context.Context, query string) []search.SearchResult
	Click(ctx context.Context, id int, results []search.SearchResult) (*crawler.Page, error)
	Open(ctx context.Context, rawURL string) (*crawler.Page, error)
}

type SessionConfig struct {
	// MaxPayloadChars caps every system payload, in characters.
	MaxPayloadChars int
	// MaxSteps bounds model calls per session. Zero means unlimited.
	MaxSteps int
}

// Session owns one conversation transcript and its browsing state.
type Session struct {
	model   Model
	browser Browser
	input   *bufio.Scanner
	out     io.Writer
	config  SessionConfig
	logger  *zap.Logger

	messages    []Message
	state       State
	pagesViewed int
	lastResults []search.SearchResult
}

// NewSession creates an idle session with an empty history.
func NewSession(model Model, browser Browser, in io.Reader, out io.Writer, config SessionConfig, logger *zap.Logger) *Session {
	if config.MaxPayloadChars <= 0 {
		config.MaxPayloadChars = DefaultMaxPayloadChars
	}
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxInputLineBytes)

	return &Session{
		model:    model,
		browser:  browser,
		input:    scanner,
		out:      out,
		config:   config,
		logger:   logger,
		messages: make([]Message, 0, initialMessageSize),
	}
}

// Run asks for the opening query and then alternates model turns and
// commands until the human types exit, input ends, the model fails or the
// step limit is reached. Only context cancellation is returned as an error.
func (s *Session) Run(ctx context.Context) error {
	fmt.Fprint(s.out, queryPrompt)
	query, ok := s.readLine()
	if !ok {
		return ctx.Err()
	}

	s.messages = append(s.messages,
		Message{Role: RoleSystem, Content: SystemPrompt(s.config.MaxPayloadChars)},
		Message{Role: RoleUser, Content: query},
	)

	logger := browse.LoggerFromContext(ctx, s.logger)
	for step := 1; ; step++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.config.MaxSteps > 0 && step > s.config.MaxSteps {
			logger.Warn("step limit reached", zap.Int("max_steps", s.config.MaxSteps))
			return nil
		}

		cont, err := s.Step(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Error("failed to get AI response", zap.Error(err))
			return nil
		}

		last := s.messages[len(s.messages)-1]
		logger.Info("step completed",
			zap.Int("step", step),
			zap.String("state", s.state.String()),
			zap.Int("message_count", len(s.messages)),
			zap.Int("last_message_length", utf8.RuneCountInString(last.Content)))

		if !cont {
			return nil
		}
	}
}

// Step performs one model turn and applies the command in the reply. It
// reports false when the conversation should end.
func (s *Session) Step(ctx context.Context) (bool, error) {
	fmt.Fprint(s.out, "\nAI: ")
	reply, err := s.model.Stream(ctx, s.messages, s.out)
	fmt.Fprint(s.out, "\n\n")
	if err != nil {
		return false, err
	}
	if reply == "" {
		return false, fmt.Errorf("empty model reply")
	}

	cmd := command.Parse(reply)
	browse.LoggerFromContext(ctx, s.logger).Debug("model command",
		zap.String("kind", cmd.Kind.String()),
		zap.String("state", s.state.String()))

	switch {
	case cmd.Kind == command.Search:
		s.state = Browsing
		s.pagesViewed = 0
		fmt.Fprintln(s.out, msgBrowsing)
		s.lastResults = s.browser.Search(ctx, cmd.Query)
		s.appendAssistant(reply)
		s.appendPayload(s.lastResults)

	case cmd.Kind == command.Click && s.state == Browsing:
		s.appendAssistant(reply)
		if len(s.lastResults) == 0 {
			s.appendSystem(noticeNoResults)
			return true, nil
		}
		fmt.Fprintln(s.out, msgBrowsing)
		page, err := s.browser.Click(ctx, cmd.ResultID, s.lastResults)
		s.appendPayload(browse.PageRecord(page, err))
		s.pagesViewed++

	case cmd.Kind == command.OpenLink:
		s.state = Browsing
		fmt.Fprintln(s.out, msgBrowsing)
		page, err := s.browser.Open(ctx, cmd.URL)
		s.appendAssistant(reply)
		s.appendPayload(browse.PageRecord(page, err))
		s.pagesViewed++

	case cmd.Kind == command.SearchDone:
		s.state = Idle
		s.appendAssistant(reply)
		s.appendSystem(noticeDone)

	case s.state == Idle:
		fmt.Fprintln(s.out, msgProcessing)
		s.appendAssistant(reply)
		fmt.Fprint(s.out, userPrompt)
		line, ok := s.readLine()
		if !ok || strings.EqualFold(strings.TrimSpace(line), exitCommand) {
			return false, nil
		}
		s.appendUser(line)

	default:
		s.appendAssistant(reply)
		s.appendSystem(noticeInvalid)
	}

	return true, nil
}

// Messages returns the history including the system prompt.
func (s *Session) Messages() []Message {
	return s.messages
}

func (s *Session) State() State {
	return s.state
}

func (s *Session) PagesViewed() int {
	return s.pagesViewed
}

func (s *Session) appendAssistant(content string) {
	s.messages = append(s.messages, Message{Role: RoleAssistant, Content: content})
}

func (s *Session) appendUser(content string) {
	s.messages = append(s.messages, Message{Role: RoleUser, Content: content})
}

func (s *Session) appendSystem(content string) {
	s.messages = append(s.messages, Message{Role: RoleSystem, Content: content})
}

// appendPayload adds v as compact JSON, cut to the payload limit.
func (s *Session) appendPayload(v any) {
	data, err := browse.Encode(v, false)
	if err != nil {
		s.appendSystem(fmt.Sprintf("Error retrieving data: %v", err))
		return
	}
	s.appendSystem(Truncate(string(data), s.config.MaxPayloadChars))
}

func (s *Session) readLine() (string, bool) {
	if !s.input.Scan() {
		return "", false
	}
	return s.input.Text(), true
}

// Truncate cuts content to limit characters and marks the cut.
func Truncate(content string, limit int) string {
	if utf8.RuneCountInString(content) <= limit {
		return content
	}
	runes := []rune(content)
	return string(runes[:limit]) + truncatedSuffix
}
