package dataset

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/TheDandyCodes/perplexity-company-scraper/internal/model"
)

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.csv")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing temp csv: %v", err)
	}
	return path
}

func TestReadCSV(t *testing.T) {
	path := writeTempCSV(t, "company_name,country\nAcme Corp,US\n,ES\n")

	records, err := ReadCSV(path, "company_name")
	if err != nil {
		t.Fatalf("reading csv: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].RowIndex != 0 || records[1].RowIndex != 1 {
		t.Errorf("row indexes must be stable: %d, %d", records[0].RowIndex, records[1].RowIndex)
	}
	if got := records[0].Value("company_name"); got != "Acme Corp" {
		t.Errorf("expected Acme Corp, got %q", got)
	}
	// An empty cell is a readable record — the chain decides what to do with it.
	if got := records[1].Value("company_name"); got != "" {
		t.Errorf("expected empty company name, got %q", got)
	}
	if len(records[0].Columns) != 2 || records[0].Columns[0] != "company_name" {
		t.Errorf("column order lost: %v", records[0].Columns)
	}
}

func TestReadCSV_MissingTargetColumn(t *testing.T) {
	path := writeTempCSV(t, "name,country\nAcme Corp,US\n")

	_, err := ReadCSV(path, "company_name")
	if err == nil {
		t.Fatal("expected error for missing target column")
	}
	if !strings.Contains(err.Error(), "company_name") {
		t.Errorf("error must name the missing column, got: %v", err)
	}
}

func TestReadCSV_EmptyFile(t *testing.T) {
	path := writeTempCSV(t, "")
	if _, err := ReadCSV(path, "company_name"); err == nil {
		t.Fatal("expected error for empty input file")
	}
}

func sampleResult() model.ResolutionResult {
	legal := "Acme Corp"
	empMin, empMax := int64(50), int64(200)
	revMax := 5_000_000.0
	cost := 0.0042

	return model.ResolutionResult{
		SourceHandler: "perplexity",
		Record: model.StructuredCompanyRecord{
			LegalName:        &legal,
			EmployeeCountMin: &empMin,
			EmployeeCountMax: &empMax,
			RevenueMax:       &revMax,
			RequestCost:      &cost,
		},
		Original: model.InputRecord{
			RowIndex: 3,
			Columns:  []string{"company_name", "country"},
			Values:   map[string]string{"company_name": "acme", "country": "US"},
		},
		Timestamp: time.Date(2026, 8, 24, 10, 30, 0, 0, time.UTC),
	}
}

// Serialization must be idempotent: writing a result and parsing it back
// yields the same values.
func TestWriteJSON_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	want := sampleResult()

	if err := WriteJSON(path, []model.ResolutionResult{want}); err != nil {
		t.Fatalf("writing json: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}

	var got []model.ResolutionResult
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("parsing output: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 result, got %d", len(got))
	}

	res := got[0]
	if res.SourceHandler != want.SourceHandler {
		t.Errorf("source_handler changed: %s", res.SourceHandler)
	}
	if res.Record.LegalName == nil || *res.Record.LegalName != "Acme Corp" {
		t.Errorf("legal_name changed: %v", res.Record.LegalName)
	}
	if res.Record.TaxID != nil {
		t.Errorf("null field must stay null, got %v", *res.Record.TaxID)
	}
	if res.Record.EmployeeCountMin == nil || *res.Record.EmployeeCountMin != 50 {
		t.Errorf("employee_count_min changed: %v", res.Record.EmployeeCountMin)
	}
	if res.Record.RequestCost == nil || *res.Record.RequestCost != 0.0042 {
		t.Errorf("request_cost changed: %v", res.Record.RequestCost)
	}
	if res.Original.RowIndex != 3 || res.Original.Value("country") != "US" {
		t.Errorf("original data changed: %+v", res.Original)
	}
	if !res.Timestamp.Equal(want.Timestamp) {
		t.Errorf("timestamp changed: %v vs %v", res.Timestamp, want.Timestamp)
	}
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")

	if err := WriteCSV(path, []model.ResolutionResult{sampleResult()}); err != nil {
		t.Fatalf("writing csv: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening output: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("parsing output: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header + 1 row, got %d rows", len(rows))
	}

	header, row := rows[0], rows[1]
	cell := func(name string) string {
		t.Helper()
		for i, h := range header {
			if h == name {
				return row[i]
			}
		}
		t.Fatalf("column %q not in header %v", name, header)
		return ""
	}

	if cell("row_index") != "3" {
		t.Errorf("unexpected row_index: %q", cell("row_index"))
	}
	if cell("company_name") != "acme" {
		t.Errorf("original columns must be carried through, got %q", cell("company_name"))
	}
	if cell("legal_name") != "Acme Corp" {
		t.Errorf("unexpected legal_name: %q", cell("legal_name"))
	}
	if cell("employee_count_max") != "200" {
		t.Errorf("unexpected employee_count_max: %q", cell("employee_count_max"))
	}
	if cell("tax_id") != "" {
		t.Errorf("null fields must be empty cells, got %q", cell("tax_id"))
	}
	if cell("source_handler") != "perplexity" {
		t.Errorf("unexpected source_handler: %q", cell("source_handler"))
	}
	if cell("timestamp") != "2026-08-24T10:30:00Z" {
		t.Errorf("timestamp must be RFC 3339, got %q", cell("timestamp"))
	}
}

func TestWrite_UnknownFormat(t *testing.T) {
	err := Write(filepath.Join(t.TempDir(), "out.xml"), "xml", nil)
	if err == nil {
		t.Fatal("expected error for unknown format")
	}
}
