// Package dataset reads the input CSV and writes enrichment results.
// The stdlib encoding/csv and encoding/json are deliberate here: flat files,
// no framework needed.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/TheDandyCodes/perplexity-company-scraper/internal/model"
)

// ReadCSV loads every row of a CSV file into InputRecords. The target column
// must exist in the header — a missing column is a configuration error raised
// here, before any chain invocation. Empty values in the target column are
// NOT an error at read time; the chain hands those rows straight to the
// fallback.
func ReadCSV(path, targetColumn string) ([]model.InputRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening input file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)

	header, err := r.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("input file %s is empty", path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading header of %s: %w", path, err)
	}

	if !slices.Contains(header, targetColumn) {
		return nil, fmt.Errorf("input file %s has no %q column (columns: %v)", path, targetColumn, header)
	}

	var records []model.InputRecord
	for i := 0; ; i++ {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row %d of %s: %w", i, path, err)
		}

		values := make(map[string]string, len(header))
		for j, col := range header {
			if j < len(row) {
				values[col] = row[j]
			}
		}

		records = append(records, model.InputRecord{
			RowIndex: i,
			Columns:  header,
			Values:   values,
		})
	}

	return records, nil
}
