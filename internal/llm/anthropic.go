package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"
)

// AnthropicClient implements the Client interface using Claude.
// Claude has no forced-JSON response mode, so the answer is the concatenated
// text blocks with any markdown fencing stripped before validation.
type AnthropicClient struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicClient creates a Claude-backed company query client.
func NewAnthropicClient(apiKey, model string) *AnthropicClient {
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)
	return &AnthropicClient{
		client: &client,
		model:  model,
	}
}

func (a *AnthropicClient) ProviderName() string { return "anthropic" }
func (a *AnthropicClient) ModelName() string    { return a.model }

func (a *AnthropicClient) QueryCompany(ctx context.Context, req *QueryRequest) (*ProviderResponse, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(a.model),
		MaxTokens:   int64(req.Params.MaxTokens),
		Temperature: param.NewOpt(req.Params.Temperature),
	}

	// Anthropic takes the system prompt as a separate field, not a message.
	for _, m := range req.Messages {
		if m.Role == "system" {
			params.System = []anthropic.TextBlockParam{{Text: m.Content}}
			continue
		}
		params.Messages = append(params.Messages,
			anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
	}

	message, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic API call: %w", err)
	}

	var text strings.Builder
	for _, block := range message.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(tb.Text)
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("anthropic returned no text for %q", req.CompanyName)
	}

	return &ProviderResponse{
		RawPayload: json.RawMessage(stripFences(text.String())),
	}, nil
}

// stripFences removes a surrounding ```json ... ``` fence if present.
// Claude sometimes wraps JSON answers in markdown despite being told not to.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
