// Package anthropic adapts the Anthropic Messages API to model.Provider.
package anthropic

import (
	"context"
	"fmt"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	ctxpkg "github.com/stupiduntilnot/notesassist/internal/context"
	modelpkg "github.com/stupiduntilnot/notesassist/internal/model"
)

// Client sends message lists with a fixed system instruction and max_tokens.
type Client struct {
	client    sdk.Client
	model     string
	system    string
	maxTokens int
	timeout   time.Duration
}

// NewClient creates an Anthropic provider. SDK retries are disabled.
func NewClient(apiKey, baseURL, model, system string, maxTokens int, timeout time.Duration) *Client {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &Client{
		client:    sdk.NewClient(opts...),
		model:     model,
		system:    system,
		maxTokens: maxTokens,
		timeout:   timeout,
	}
}

func (c *Client) Name() string { return "anthropic" }

// ChatCompletion sends the messages and joins the text blocks of the reply.
func (c *Client) ChatCompletion(ctx context.Context, messages []ctxpkg.Message) (modelpkg.CompletionResponse, error) {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: int64(c.maxTokens),
		Messages:  toParams(messages),
	}
	if strings.TrimSpace(c.system) != "" {
		params.System = []sdk.TextBlockParam{{Text: c.system}}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return modelpkg.CompletionResponse{}, fmt.Errorf("anthropic request failed: %w", err)
	}

	result := modelpkg.CompletionResponse{
		InputTokens:  int(resp.Usage.InputTokens),
		OutputTokens: int(resp.Usage.OutputTokens),
	}
	var parts []string
	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	content := strings.Join(parts, "\n")
	if strings.TrimSpace(content) == "" {
		return result, fmt.Errorf("anthropic: %w", modelpkg.ErrEmptyResponse)
	}
	result.Content = content
	return result, nil
}

func toParams(messages []ctxpkg.Message) []sdk.MessageParam {
	out := make([]sdk.MessageParam, 0, len(messages))
	for _, m := range messages {
		block := sdk.NewTextBlock(m.Content)
		if m.Role == "assistant" {
			out = append(out, sdk.NewAssistantMessage(block))
			continue
		}
		out = append(out, sdk.NewUserMessage(block))
	}
	return out
}
