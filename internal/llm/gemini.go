package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"
)

// GeminiClient implements the Client interface using Google's Gemini API.
// ResponseMIMEType "application/json" makes the model answer with a bare JSON
// object, so the payload needs no fence stripping before validation.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates a Gemini-backed company query client.
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &GeminiClient{client: client, model: model}, nil
}

func (g *GeminiClient) ProviderName() string { return "gemini" }
func (g *GeminiClient) ModelName() string    { return g.model }

func (g *GeminiClient) QueryCompany(ctx context.Context, req *QueryRequest) (*ProviderResponse, error) {
	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(float32(req.Params.Temperature)),
		MaxOutputTokens:  int32(req.Params.MaxTokens),
		ResponseMIMEType: "application/json",
	}

	// Gemini separates the system instruction from the conversation turns.
	var contents []*genai.Content
	for _, m := range req.Messages {
		if m.Role == "system" {
			config.SystemInstruction = genai.NewContentFromText(m.Content, genai.RoleUser)
			continue
		}
		contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("gemini API call: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("gemini returned no content for %q", req.CompanyName)
	}

	return &ProviderResponse{RawPayload: json.RawMessage(text)}, nil
}
