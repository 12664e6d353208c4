package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/TheDandyCodes/perplexity-company-scraper/internal/schema"
)

const defaultPerplexityURL = "https://api.perplexity.ai/chat/completions"

// PerplexityClient implements the Client interface against Perplexity's
// chat-completions endpoint. There is no official Go SDK, so this talks raw
// HTTP. Perplexity is the one provider that both enforces our JSON schema
// server-side (via response_format) and reports the money cost of each call.
type PerplexityClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewPerplexityClient creates a Perplexity-backed company query client.
// baseURL is overridable for tests; pass "" for the real endpoint.
func NewPerplexityClient(apiKey, model, baseURL string) *PerplexityClient {
	if baseURL == "" {
		baseURL = defaultPerplexityURL
	}
	return &PerplexityClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
		// No client-level timeout: the per-attempt deadline comes in on the
		// context, and two timeout knobs fighting each other helps nobody.
		httpClient: &http.Client{},
	}
}

func (p *PerplexityClient) ProviderName() string { return "perplexity" }
func (p *PerplexityClient) ModelName() string    { return p.model }

type pplxMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type pplxRequest struct {
	Model          string             `json:"model"`
	Temperature    float64            `json:"temperature"`
	MaxTokens      int                `json:"max_tokens"`
	Messages       []pplxMessage      `json:"messages"`
	ResponseFormat pplxResponseFormat `json:"response_format"`
}

type pplxResponseFormat struct {
	Type       string `json:"type"`
	JSONSchema struct {
		Schema json.RawMessage `json:"schema"`
	} `json:"json_schema"`
}

type pplxResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		Cost *struct {
			TotalCost float64 `json:"total_cost"`
		} `json:"cost"`
	} `json:"usage"`
}

func (p *PerplexityClient) QueryCompany(ctx context.Context, req *QueryRequest) (*ProviderResponse, error) {
	body := pplxRequest{
		Model:       p.model,
		Temperature: req.Params.Temperature,
		MaxTokens:   req.Params.MaxTokens,
	}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, pplxMessage{Role: m.Role, Content: m.Content})
	}
	// Ask the API to constrain the answer to the same schema we validate
	// against locally.
	body.ResponseFormat.Type = "json_schema"
	body.ResponseFormat.JSONSchema.Schema = json.RawMessage(schema.CompanyJSONSchema)

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling perplexity request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating perplexity request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("perplexity API call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1MB is plenty for a chat completion
	if err != nil {
		return nil, fmt.Errorf("reading perplexity response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("perplexity HTTP %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var parsed pplxResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("parsing perplexity response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("perplexity returned no choices for %q", req.CompanyName)
	}

	out := &ProviderResponse{
		RawPayload: json.RawMessage(parsed.Choices[0].Message.Content),
	}
	if parsed.Usage.Cost != nil {
		cost := parsed.Usage.Cost.TotalCost
		out.CostEstimate = &cost
	}
	return out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
