// Package ai holds the assistant completion collaborator.
package ai

import (
	apperrors "arstate-chat/errors"

	"context"
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const systemPrompt = "You are Arstate Assistant, a helpful and friendly chatbot " +
	"integrated into Arstate Chats. Keep your responses concise and helpful."

// fallbackReply is streamed as a single fragment when the provider
// fails, so the session still reaches End cleanly instead of breaking
// the conversation.
const fallbackReply = "Sorry, I'm having trouble connecting to my brain right now. Please try again later."

// Client streams completions from any OpenAI-compatible endpoint.
type Client struct {
	llm llms.Model
	log *slog.Logger
}

// NewClient builds a streaming client. baseURL may be empty for the
// provider default.
func NewClient(log *slog.Logger, model, baseURL, apiKey string) (*Client, error) {
	opts := []openai.Option{
		openai.WithModel(model),
		openai.WithToken(apiKey),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("building assistant client: %w", err)
	}
	return &Client{llm: llm, log: log}, nil
}

// NewClientFromModel wraps an existing model, mainly for tests.
func NewClientFromModel(log *slog.Logger, model llms.Model) *Client {
	return &Client{llm: model, log: log}
}

// StreamCompletion streams the completion for prompt, invoking onChunk
// for every text fragment. On provider failure it emits the fallback
// reply as one final fragment and reports ErrAssistantUnavailable; the
// chunk sequence is complete either way.
func (c *Client) StreamCompletion(ctx context.Context, prompt string, onChunk func(text string)) error {
	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}
	_, err := c.llm.GenerateContent(ctx, content,
		llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
			if len(chunk) > 0 {
				onChunk(string(chunk))
			}
			return nil
		}),
	)
	if err != nil {
		c.log.Error("assistant completion failed", "error", err)
		onChunk(fallbackReply)
		return fmt.Errorf("%w: %v", apperrors.ErrAssistantUnavailable, err)
	}
	return nil
}
