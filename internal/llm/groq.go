// ABOUTME: Groq completion client speaking the OpenAI-compatible API via langchaingo
// ABOUTME: Streams generated text as a channel of small fragments

package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/2389/groq-relay/internal/session"
)

// DefaultBaseURL is Groq's OpenAI-compatible endpoint.
const DefaultBaseURL = "https://api.groq.com/openai/v1"

// Chunk is one fragment of streamed completion output. A non-nil Err is
// terminal: the stream ends and no further text follows.
type Chunk struct {
	Text string
	Err  error
}

// Client produces streaming chat completions from Groq.
type Client struct {
	llm    *openai.LLM
	logger *slog.Logger
}

// New creates a Groq client. baseURL may be empty to use DefaultBaseURL.
func New(apiKey, baseURL string, logger *slog.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("groq api key is required")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}

	model, err := openai.New(
		openai.WithToken(apiKey),
		openai.WithBaseURL(baseURL),
	)
	if err != nil {
		return nil, fmt.Errorf("creating groq client: %w", err)
	}

	return &Client{
		llm:    model,
		logger: logger.With("component", "llm"),
	}, nil
}

// Complete sends the history to the model and returns a channel of text
// fragments. The channel closes after the final fragment, or after a single
// Chunk carrying the error when the upstream call fails.
func (c *Client) Complete(ctx context.Context, turns []session.Turn, model string) (<-chan Chunk, error) {
	if len(turns) == 0 {
		return nil, fmt.Errorf("empty history")
	}
	if model == "" {
		return nil, fmt.Errorf("model is required")
	}

	messages := make([]llms.MessageContent, 0, len(turns))
	for _, turn := range turns {
		messages = append(messages, llms.TextParts(chatMessageType(turn.Role), turn.Content))
	}

	out := make(chan Chunk)

	go func() {
		defer close(out)

		_, err := c.llm.GenerateContent(ctx, messages,
			llms.WithModel(model),
			llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
				if len(chunk) == 0 {
					return nil
				}
				select {
				case out <- Chunk{Text: string(chunk)}:
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			}),
		)
		if err != nil {
			c.logger.Error("completion failed", "model", model, "error", err)
			out <- Chunk{Err: err}
		}
	}()

	return out, nil
}

func chatMessageType(role session.Role) llms.ChatMessageType {
	switch role {
	case session.RoleSystem:
		return llms.ChatMessageTypeSystem
	case session.RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}
