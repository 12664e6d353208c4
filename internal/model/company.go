// Package model defines the core data types for the enrichment pipeline.
// In Go, we use structs instead of classes. Struct tags (the `json:"..."` and
// `db:"..."` annotations) tell serialization libraries how to map fields.
package model

import "time"

// InputRecord is one row of the source CSV. It is created by the dataset
// reader and never mutated afterwards — handlers only read from it.
type InputRecord struct {
	// RowIndex is the zero-based position of the row in the input file.
	RowIndex int `json:"row_index"`
	// Columns preserves the original column order (maps don't).
	Columns []string `json:"columns"`
	// Values maps column name to the raw cell value.
	Values map[string]string `json:"values"`
}

// Value returns the raw cell value for a column, or "" if absent.
func (r InputRecord) Value(column string) string {
	return r.Values[column]
}

// HasColumn reports whether the record carries the given column at all.
func (r InputRecord) HasColumn(column string) bool {
	_, ok := r.Values[column]
	return ok
}

// StructuredCompanyRecord is the validated output entity for one company.
// Every field is a pointer: the providers are allowed to answer "unknown"
// with an explicit null, and we keep that distinction through serialization
// (a nil pointer marshals to JSON null, not a zero value).
type StructuredCompanyRecord struct {
	LegalName           *string  `json:"legal_name"`
	TaxID               *string  `json:"tax_id"`
	Phone               *string  `json:"phone"`
	Website             *string  `json:"website"`
	IndustryCode        *string  `json:"industry_code"`
	IndustryDescription *string  `json:"industry_description"`
	Sector              *string  `json:"sector"`
	EmployeeCountMin    *int64   `json:"employee_count_min"`
	EmployeeCountMax    *int64   `json:"employee_count_max"`
	RevenueMin          *float64 `json:"revenue_min"`
	RevenueMax          *float64 `json:"revenue_max"`
	Country             *string  `json:"country"`
	Region              *string  `json:"region"`
	City                *string  `json:"city"`
	Address             *string  `json:"address"`

	// RequestCost is what the provider charged for this answer, when the
	// provider reports it (currently only Perplexity does).
	RequestCost *float64 `json:"request_cost,omitempty"`

	// Error is set only by the fallback handler when every provider failed.
	Error *string `json:"error,omitempty"`
}

// ResolutionResult is the terminal outcome for one input record. Exactly one
// is produced per record — by the first provider handler that succeeds, or by
// the fallback handler when none do. Immutable once created.
type ResolutionResult struct {
	SourceHandler string                  `json:"source_handler"`
	Record        StructuredCompanyRecord `json:"record"`
	Original      InputRecord             `json:"original_data"`
	Timestamp     time.Time               `json:"timestamp"`
}

// ProviderCall tracks one attempt against one provider for cost monitoring.
// Each field has two tags:
//   - `db:"column_name"` — used by sqlx to scan database rows
//   - `json:"field_name"` — used for JSON serialization
type ProviderCall struct {
	ID         int64     `db:"id" json:"id"`
	RowIndex   int       `db:"row_index" json:"row_index"`
	Company    string    `db:"company" json:"company"`
	Provider   string    `db:"provider" json:"provider"`
	Model      string    `db:"model" json:"model"`
	Success    bool      `db:"success" json:"success"`
	Cost       *float64  `db:"cost" json:"cost,omitempty"`
	DurationMs *int64    `db:"duration_ms" json:"duration_ms,omitempty"`
	ErrorMsg   *string   `db:"error_message" json:"error_message,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
