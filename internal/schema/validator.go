// Package schema validates raw provider payloads against the company schema.
// Validation collects every violation instead of stopping at the first one, so
// a failed payload produces a full diagnostic, not a guessing game.
package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/TheDandyCodes/perplexity-company-scraper/internal/model"
)

// CompanyJSONSchema is the JSON Schema every provider answer must conform to.
// It is exported because the Perplexity client also sends it as the
// `response_format` of the request — the contract we validate against is the
// same one we ask the model to honor.
//
// Every field is required but nullable: "I don't know" is an explicit null,
// never a missing key. additionalProperties stays open so newer provider
// output with extra fields keeps validating (we simply ignore the extras).
const CompanyJSONSchema = `{
	"type": "object",
	"properties": {
		"legal_name":           {"type": ["string", "null"]},
		"tax_id":               {"type": ["string", "null"]},
		"phone":                {"type": ["string", "null"]},
		"website":              {"type": ["string", "null"]},
		"industry_code":        {"type": ["string", "null"]},
		"industry_description": {"type": ["string", "null"]},
		"sector":               {"type": ["string", "null"]},
		"employee_count_min":   {"type": ["integer", "null"]},
		"employee_count_max":   {"type": ["integer", "null"]},
		"revenue_min":          {"type": ["number", "null"]},
		"revenue_max":          {"type": ["number", "null"]},
		"country":              {"type": ["string", "null"]},
		"region":               {"type": ["string", "null"]},
		"city":                 {"type": ["string", "null"]},
		"address":              {"type": ["string", "null"]}
	},
	"required": [
		"legal_name", "tax_id", "phone", "website",
		"industry_code", "industry_description", "sector",
		"employee_count_min", "employee_count_max",
		"revenue_min", "revenue_max",
		"country", "region", "city", "address"
	]
}`

// compiled once — the schema is a program constant, so a compile failure is a
// programming error, not a runtime condition.
var compiledSchema = func() *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(CompanyJSONSchema))
	if err != nil {
		panic(fmt.Sprintf("compiling company schema: %v", err))
	}
	return s
}()

// Violation describes one failed check on one field.
type Violation struct {
	Field   string
	Message string
}

// ValidationError carries every violation found in a payload. Callers match
// it with errors.As to inspect the full list.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = fmt.Sprintf("%s: %s", v.Field, v.Message)
	}
	return "invalid company payload: " + strings.Join(parts, "; ")
}

// Validate checks a raw provider payload against CompanyJSONSchema plus the
// range invariants, and decodes it into a StructuredCompanyRecord. On any
// violation it returns a *ValidationError enumerating all of them.
func Validate(raw json.RawMessage) (*model.StructuredCompanyRecord, error) {
	result, err := compiledSchema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		// The payload wasn't parseable JSON at all.
		return nil, &ValidationError{Violations: []Violation{
			{Field: "(document)", Message: fmt.Sprintf("not valid JSON: %v", err)},
		}}
	}

	var violations []Violation
	for _, resErr := range result.Errors() {
		violations = append(violations, Violation{
			Field:   resErr.Field(),
			Message: resErr.Description(),
		})
	}

	var rec model.StructuredCompanyRecord
	if len(violations) == 0 {
		if err := json.Unmarshal(raw, &rec); err != nil {
			violations = append(violations, Violation{
				Field:   "(document)",
				Message: fmt.Sprintf("decoding: %v", err),
			})
		}
	}

	// Cross-field invariants JSON Schema can't express: numeric ranges must
	// satisfy min <= max when both ends are present.
	if len(violations) == 0 {
		violations = append(violations, rangeViolations(&rec)...)
	}

	if len(violations) > 0 {
		return nil, &ValidationError{Violations: violations}
	}
	return &rec, nil
}

func rangeViolations(rec *model.StructuredCompanyRecord) []Violation {
	var violations []Violation
	if rec.EmployeeCountMin != nil && rec.EmployeeCountMax != nil &&
		*rec.EmployeeCountMin > *rec.EmployeeCountMax {
		violations = append(violations, Violation{
			Field: "employee_count_min",
			Message: fmt.Sprintf("range inverted: min %d > max %d",
				*rec.EmployeeCountMin, *rec.EmployeeCountMax),
		})
	}
	if rec.RevenueMin != nil && rec.RevenueMax != nil &&
		*rec.RevenueMin > *rec.RevenueMax {
		violations = append(violations, Violation{
			Field: "revenue_min",
			Message: fmt.Sprintf("range inverted: min %g > max %g",
				*rec.RevenueMin, *rec.RevenueMax),
		})
	}
	return violations
}
