// Package service contains the outer enrichment loop: every input record goes
// through the resolution chain exactly once, sequentially, and every record
// comes back with exactly one result — the chain guarantees that, so this
// loop has no error path per record.
package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/TheDandyCodes/perplexity-company-scraper/internal/chain"
	"github.com/TheDandyCodes/perplexity-company-scraper/internal/model"
)

// RunStats summarizes one enrichment run.
type RunStats struct {
	Total     int
	ByHandler map[string]int
	Fallback  int
	// TotalCost sums the request_cost of the winning answers. The sqlite
	// call log additionally carries the cost of failed attempts.
	TotalCost float64
}

// Enricher drives records through the resolution chain.
type Enricher struct {
	chain  *chain.Chain
	logger *zap.Logger
}

// NewEnricher creates the outer-loop driver.
func NewEnricher(ch *chain.Chain, logger *zap.Logger) *Enricher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enricher{chain: ch, logger: logger}
}

// Run resolves all records in order. Cancelling the context stops the run
// between records; the results accumulated so far are returned alongside the
// context error so the caller can still persist partial output.
func (e *Enricher) Run(ctx context.Context, records []model.InputRecord) ([]model.ResolutionResult, *RunStats, error) {
	stats := &RunStats{ByHandler: make(map[string]int)}
	results := make([]model.ResolutionResult, 0, len(records))

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			e.logger.Warn("run cancelled", zap.Int("processed", len(results)), zap.Int("total", len(records)))
			return results, stats, err
		}

		result := e.chain.Resolve(ctx, rec)
		results = append(results, *result)

		stats.Total++
		stats.ByHandler[result.SourceHandler]++
		if result.SourceHandler == chain.FallbackName {
			stats.Fallback++
		}
		if result.Record.RequestCost != nil {
			stats.TotalCost += *result.Record.RequestCost
		}
	}

	e.logger.Info("enrichment run complete",
		zap.Int("records", stats.Total),
		zap.Int("fallback", stats.Fallback),
		zap.Float64("total_cost", stats.TotalCost),
	)

	return results, stats, nil
}
