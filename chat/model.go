package chat

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the conversation history.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Model produces the next assistant turn, writing text to w as it
// arrives. The returned string is the complete reply.
type Model interface {
	Stream(ctx context.Context, messages []Message, w io.Writer) (string, error)
}

type ModelConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// OpenAIModel talks to any OpenAI-compatible chat completions endpoint.
type OpenAIModel struct {
	llm    *openai.LLM
	model  string
	logger *zap.Logger
}

// NewOpenAIModel creates a client for an OpenAI-compatible endpoint.
func NewOpenAIModel(cfg ModelConfig, logger *zap.Logger) (*OpenAIModel, error) {
	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create openai client: %w", err)
	}

	return &OpenAIModel{
		llm:    llm,
		model:  cfg.Model,
		logger: logger,
	}, nil
}

// Stream sends messages and copies the reply to w as it arrives.
func (m *OpenAIModel) Stream(ctx context.Context, messages []Message, w io.Writer) (string, error) {
	content := make([]llms.MessageContent, 0, len(messages))
	for _, msg := range messages {
		content = append(content, llms.TextParts(messageType(msg.Role), msg.Content))
	}

	var full strings.Builder
	resp, err := m.llm.GenerateContent(ctx, content,
		llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
			full.Write(chunk)
			_, err := w.Write(chunk)
			return err
		}),
	)
	if err != nil {
		return "", fmt.Errorf("model call: %w", err)
	}

	// Some compatible servers ignore stream=true and answer in one piece.
	if full.Len() == 0 && resp != nil && len(resp.Choices) > 0 {
		text := resp.Choices[0].Content
		if _, err := io.WriteString(w, text); err != nil {
			return "", err
		}
		return text, nil
	}

	m.logger.Debug("model reply",
		zap.String("model", m.model),
		zap.Int("messages", len(messages)),
		zap.Int("reply_length", full.Len()))

	return full.String(), nil
}

func messageType(role Role) llms.ChatMessageType {
	switch role {
	case RoleSystem:
		return llms.ChatMessageTypeSystem
	case RoleAssistant:
		return llms.ChatMessageTypeAI
	}
	return llms.ChatMessageTypeHuman
}
