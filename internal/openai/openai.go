package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	ctxpkg "github.com/stupiduntilnot/notesassist/internal/context"
	modelpkg "github.com/stupiduntilnot/notesassist/internal/model"
)

// Client sends chat completion requests with a fixed system instruction and
// completion-token bound.
type Client struct {
	client    sdk.Client
	model     string
	system    string
	maxTokens int
	timeout   time.Duration
}

// NewClient creates an OpenAI provider. SDK retries are disabled.
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

func (c *Client) Name() string { return "openai" }

// ChatCompletion sends the messages after a leading system message.
func (c *Client) ChatCompletion(ctx context.Context, messages []ctxpkg.Message) (modelpkg.CompletionResponse, error) {
	params := sdk.ChatCompletionNewParams{
		Model:    sdk.ChatModel(c.model),
		Messages: toParams(c.system, messages),
	}
	if c.maxTokens > 0 {
		params.MaxCompletionTokens = sdk.Int(int64(c.maxTokens))
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return modelpkg.CompletionResponse{}, fmt.Errorf("openai request failed: %w", err)
	}

	result := modelpkg.CompletionResponse{
		InputTokens:  int(resp.Usage.PromptTokens),
		OutputTokens: int(resp.Usage.CompletionTokens),
	}
	if len(resp.Choices) == 0 {
		return result, fmt.Errorf("openai: %w", modelpkg.ErrEmptyResponse)
	}
	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return result, fmt.Errorf("openai: %w", modelpkg.ErrEmptyResponse)
	}
	result.Content = content
	return result, nil
}

func toParams(system string, messages []ctxpkg.Message) []sdk.ChatCompletionMessageParamUnion {
	out := make([]sdk.ChatCompletionMessageParamUnion, 0, len(messages)+1)
	if strings.TrimSpace(system) != "" {
		out = append(out, sdk.SystemMessage(system))
	}
	for _, m := range messages {
		if m.Role == "assistant" {
			out = append(out, sdk.AssistantMessage(m.Content))
			continue
		}
		out = append(out, sdk.UserMessage(m.Content))
	}
	return out
}
