package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/TheDandyCodes/perplexity-company-scraper/internal/model"
)

// CallRepository handles persistence of provider-call telemetry. Every attempt
// the chain makes against a provider lands here, successful or not, so a run
// can be audited for cost and failure patterns afterwards.
//
// Go interfaces are implicit — the chain depends on this interface, and tests
// satisfy it with an in-memory fake without importing anything from here.
type CallRepository interface {
	Create(ctx context.Context, call *model.ProviderCall) error
	Count(ctx context.Context) (int64, error)
	CountByProvider(ctx context.Context, provider string) (int64, error)
	TotalCost(ctx context.Context) (float64, error)
}

// sqliteCallRepository is the SQLite implementation of CallRepository.
// The struct is unexported — only the interface is public.
type sqliteCallRepository struct {
	db *sqlx.DB
}

// NewCallRepository creates a new SQLite-backed CallRepository.
func NewCallRepository(db *sqlx.DB) CallRepository {
	return &sqliteCallRepository{db: db}
}

func (r *sqliteCallRepository) Create(ctx context.Context, call *model.ProviderCall) error {
	// NamedExecContext uses the struct's `db:` tags to map fields to :named placeholders.
	result, err := r.db.NamedExecContext(ctx, `
		INSERT INTO provider_calls (row_index, company, provider, model, success, cost, duration_ms, error_message)
		VALUES (:row_index, :company, :provider, :model, :success, :cost, :duration_ms, :error_message)
	`, call)
	if err != nil {
		return fmt.Errorf("creating provider call record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting last insert id: %w", err)
	}
	call.ID = id
	return nil
}

func (r *sqliteCallRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM provider_calls")
	return count, err
}

func (r *sqliteCallRepository) CountByProvider(ctx context.Context, provider string) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM provider_calls WHERE provider = ?", provider)
	return count, err
}

// TotalCost sums the reported cost over all calls. Calls without a reported
// cost count as zero.
func (r *sqliteCallRepository) TotalCost(ctx context.Context) (float64, error) {
	var total float64
	err := r.db.GetContext(ctx, &total, "SELECT COALESCE(SUM(cost), 0) FROM provider_calls")
	return total, err
}

// RunTotals aggregates the call log for the end-of-run report. Unlike the
// winning-answer stats the service keeps, these numbers include failed
// attempts: every call made and every cent spent, per provider.
type RunTotals struct {
	Calls      int64
	ByProvider map[string]int64
	Cost       float64
}

// Totals gathers RunTotals for the given provider names.
func Totals(ctx context.Context, repo CallRepository, providers []string) (*RunTotals, error) {
	calls, err := repo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting provider calls: %w", err)
	}
	cost, err := repo.TotalCost(ctx)
	if err != nil {
		return nil, fmt.Errorf("summing call cost: %w", err)
	}

	byProvider := make(map[string]int64, len(providers))
	for _, name := range providers {
		n, err := repo.CountByProvider(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("counting %s calls: %w", name, err)
		}
		byProvider[name] = n
	}

	return &RunTotals{Calls: calls, ByProvider: byProvider, Cost: cost}, nil
}
