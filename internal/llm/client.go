// Package llm provides a provider-agnostic interface for querying generative-AI
// APIs for structured company information. Each provider (Perplexity, Gemini,
// OpenAI, Anthropic) implements the same small interface, so the resolution
// chain can try them in any configured order.
package llm

import (
	"context"
	"encoding/json"
)

// Message is one prompt message in provider-neutral form. Each client
// translates it to its SDK's own message type.
type Message struct {
	Role    string // "system" or "user"
	Content string
}

// ModelParams carries the per-provider model configuration. The chain treats
// it as opaque — it is bound at construction time from config, never global.
type ModelParams struct {
	ModelName   string
	Temperature float64 // in [0,1]
	MaxTokens   int
}

// QueryRequest is one structured company query, built fresh for every handler
// attempt from the input record's company name plus the handler's prompt
// template. Not shared between attempts.
type QueryRequest struct {
	CompanyName string
	Messages    []Message
	Params      ModelParams
}

// ProviderResponse is the raw outcome of a successful provider call. Failures
// are reported through the error return of QueryCompany instead — Go's
// (value, error) pair replaces a success flag and error-detail field.
type ProviderResponse struct {
	// RawPayload is the provider's answer, expected to be a JSON object.
	// It goes straight to the schema validator, untouched.
	RawPayload json.RawMessage
	// CostEstimate is the money cost of the call when the provider reports
	// one (Perplexity does; the others leave it nil).
	CostEstimate *float64
}

// Client is the interface for generative-AI providers that can answer a
// structured company query.
//
// Go interface design tip: keep interfaces small. One query method plus two
// identity accessors — that's all the chain needs, and it makes fakes for
// tests trivial. Go proverb: "The bigger the interface, the weaker the
// abstraction."
type Client interface {
	QueryCompany(ctx context.Context, req *QueryRequest) (*ProviderResponse, error)
	ProviderName() string
	ModelName() string
}
