// Package chain implements the provider fallback resolution engine: an
// ordered sequence of handlers, each wrapping one generative-AI provider,
// terminated by a fallback handler that never fails. The first handler to
// produce a schema-valid answer wins; everything else is a hand-off to the
// next link.
package chain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/TheDandyCodes/perplexity-company-scraper/internal/llm"
	"github.com/TheDandyCodes/perplexity-company-scraper/internal/model"
	"github.com/TheDandyCodes/perplexity-company-scraper/internal/prompt"
	"github.com/TheDandyCodes/perplexity-company-scraper/internal/schema"
	"github.com/TheDandyCodes/perplexity-company-scraper/internal/storage"
)

// Handler is one link in the resolution chain.
//
// The error return IS the hand-off signal: a non-nil error means "I could not
// resolve this record, try the next handler". Handlers never panic their way
// out and never retry — one attempt per record, then pass or hand off.
type Handler interface {
	Name() string
	Attempt(ctx context.Context, rec model.InputRecord) (*model.ResolutionResult, error)
}

// HandlerConfig bundles everything a ProviderHandler is bound to at
// construction time. Prompt and model settings arrive here explicitly —
// never via global state.
type HandlerConfig struct {
	Params       llm.ModelParams
	Template     prompt.Template
	TargetColumn string
	// Timeout bounds each remote call. Zero means the caller's context is
	// the only deadline.
	Timeout time.Duration
	// Calls receives one telemetry row per remote call made. nil disables
	// recording.
	Calls  storage.CallRepository
	Logger *zap.Logger
}

// ProviderHandler resolves a record by querying one generative-AI provider
// and validating its answer. All provider-specific behavior lives behind the
// llm.Client; this logic is identical for every provider.
//
// Holds no per-call state, so one handler instance is safe to use from
// concurrent Resolve calls for distinct records.
type ProviderHandler struct {
	client llm.Client
	cfg    HandlerConfig
}

// NewProviderHandler binds a provider client to its prompt and model
// configuration.
func NewProviderHandler(client llm.Client, cfg HandlerConfig) *ProviderHandler {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &ProviderHandler{client: client, cfg: cfg}
}

// Name returns the provider name this handler is bound to.
func (h *ProviderHandler) Name() string { return h.client.ProviderName() }

// Attempt makes exactly one query against the bound provider. An empty or
// missing target-column value hands off immediately, without a network call.
func (h *ProviderHandler) Attempt(ctx context.Context, rec model.InputRecord) (*model.ResolutionResult, error) {
	company := strings.TrimSpace(rec.Value(h.cfg.TargetColumn))
	if company == "" {
		return nil, fmt.Errorf("row %d has no %q value to query", rec.RowIndex, h.cfg.TargetColumn)
	}

	req := &llm.QueryRequest{
		CompanyName: company,
		Messages:    h.cfg.Template.Render(company),
		Params:      h.cfg.Params,
	}

	callCtx := ctx
	if h.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, h.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := h.client.QueryCompany(callCtx, req)
	durationMs := time.Since(start).Milliseconds()

	if err != nil {
		// Transport fault, timeout, non-2xx, empty answer — all the same
		// outcome from the chain's point of view.
		h.recordCall(ctx, rec, company, nil, err, durationMs)
		return nil, fmt.Errorf("%s query for %q: %w", h.Name(), company, err)
	}

	record, err := schema.Validate(resp.RawPayload)
	if err != nil {
		h.recordCall(ctx, rec, company, resp, err, durationMs)
		return nil, fmt.Errorf("%s payload for %q: %w", h.Name(), company, err)
	}
	record.RequestCost = resp.CostEstimate

	h.recordCall(ctx, rec, company, resp, nil, durationMs)

	return &model.ResolutionResult{
		SourceHandler: h.Name(),
		Record:        *record,
		Original:      rec,
		Timestamp:     time.Now().UTC(),
	}, nil
}

func (h *ProviderHandler) recordCall(ctx context.Context, rec model.InputRecord, company string, resp *llm.ProviderResponse, callErr error, durationMs int64) {
	if h.cfg.Calls == nil {
		return
	}

	call := &model.ProviderCall{
		RowIndex:   rec.RowIndex,
		Company:    company,
		Provider:   h.client.ProviderName(),
		Model:      h.client.ModelName(),
		Success:    callErr == nil,
		DurationMs: &durationMs,
	}
	if resp != nil {
		call.Cost = resp.CostEstimate
	}
	if callErr != nil {
		msg := callErr.Error()
		call.ErrorMsg = &msg
	}

	if err := h.cfg.Calls.Create(ctx, call); err != nil {
		h.cfg.Logger.Error("recording provider call", zap.Error(err))
	}
}
