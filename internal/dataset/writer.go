package dataset

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/TheDandyCodes/perplexity-company-scraper/internal/model"
)

// Output formats accepted by Write.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// Write serializes results to path in the requested format.
func Write(path, format string, results []model.ResolutionResult) error {
	switch format {
	case FormatJSON:
		return WriteJSON(path, results)
	case FormatCSV:
		return WriteCSV(path, results)
	default:
		return fmt.Errorf("unknown output format %q (want %s or %s)", format, FormatJSON, FormatCSV)
	}
}

// WriteJSON writes the results as a JSON array. The encoding is the plain
// struct marshaling of ResolutionResult, so parsing the file back yields
// the same values (timestamps are RFC 3339).
func WriteJSON(path string, results []model.ResolutionResult) error {
	if results == nil {
		results = []model.ResolutionResult{}
	}
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling results: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("writing results file: %w", err)
	}
	return nil
}

// recordColumns is the CSV column order for the structured fields, matching
// their JSON names so the two output formats stay interchangeable.
var recordColumns = []string{
	"legal_name", "tax_id", "phone", "website",
	"industry_code", "industry_description", "sector",
	"employee_count_min", "employee_count_max",
	"revenue_min", "revenue_max",
	"country", "region", "city", "address",
	"error",
}

// WriteCSV writes the results in tabular form: the original input columns
// first (the ranges already flattened to min/max), then the structured
// fields, then source_handler, request_cost and timestamp.
func WriteCSV(path string, results []model.ResolutionResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating results file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)

	var inputColumns []string
	if len(results) > 0 {
		inputColumns = results[0].Original.Columns
	}

	header := []string{"row_index"}
	header = append(header, inputColumns...)
	header = append(header, recordColumns...)
	header = append(header, "source_handler", "request_cost", "timestamp")
	if err := w.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, res := range results {
		row := []string{strconv.Itoa(res.Original.RowIndex)}
		for _, col := range inputColumns {
			row = append(row, res.Original.Value(col))
		}
		row = append(row, recordValues(&res.Record)...)
		row = append(row,
			res.SourceHandler,
			floatCell(res.Record.RequestCost),
			res.Timestamp.UTC().Format(time.RFC3339),
		)
		if err := w.Write(row); err != nil {
			return fmt.Errorf("writing row %d: %w", res.Original.RowIndex, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing results file: %w", err)
	}
	return nil
}

func recordValues(rec *model.StructuredCompanyRecord) []string {
	return []string{
		strCell(rec.LegalName), strCell(rec.TaxID), strCell(rec.Phone), strCell(rec.Website),
		strCell(rec.IndustryCode), strCell(rec.IndustryDescription), strCell(rec.Sector),
		intCell(rec.EmployeeCountMin), intCell(rec.EmployeeCountMax),
		floatCell(rec.RevenueMin), floatCell(rec.RevenueMax),
		strCell(rec.Country), strCell(rec.Region), strCell(rec.City), strCell(rec.Address),
		strCell(rec.Error),
	}
}

// Nil pointers become empty cells — CSV has no null.

func strCell(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func intCell(p *int64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatInt(*p, 10)
}

func floatCell(p *float64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatFloat(*p, 'g', -1, 64)
}
