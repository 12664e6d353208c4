// Package prompt loads per-provider prompt templates from a YAML file.
// Each template is a system + user message pair with a {company_name}
// placeholder; compiled-in defaults cover providers the file doesn't mention,
// so a missing prompts file is never fatal.
package prompt

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/TheDandyCodes/perplexity-company-scraper/internal/llm"
)

// Placeholder is the token replaced with the company name at render time.
const Placeholder = "{company_name}"

// Template is one provider's prompt pair.
type Template struct {
	System string `yaml:"system"`
	User   string `yaml:"user"`
}

// Render substitutes the company name into the template and returns the
// messages in provider-neutral form, system first.
func (t Template) Render(companyName string) []llm.Message {
	return []llm.Message{
		{Role: "system", Content: strings.ReplaceAll(t.System, Placeholder, companyName)},
		{Role: "user", Content: strings.ReplaceAll(t.User, Placeholder, companyName)},
	}
}

// Library holds the templates for all providers.
type Library struct {
	Providers map[string]Template `yaml:"providers"`
}

// defaultTemplate is used for any provider without an entry in the YAML file.
// The field list mirrors the company JSON schema exactly — the model is asked
// for precisely what the validator will accept.
var defaultTemplate = Template{
	System: "You are a company research assistant. You reply with a single JSON object " +
		"and nothing else: no prose, no markdown fences. Use null for any field you " +
		"cannot verify. Never invent values.",
	User: `Provide structured information about the company "` + Placeholder + `" as a JSON object with exactly these fields:
- legal_name: official registered company name
- tax_id: tax identification number
- phone: main phone number
- website: official website URL
- industry_code: standard industry classification code
- industry_description: description of that industry code
- sector: broad business sector
- employee_count_min, employee_count_max: employee head-count range (integers)
- revenue_min, revenue_max: annual revenue range in USD (numbers)
- country, region, city, address: headquarters location

Every field must be present. Use null where the information is not available.`,
}

// Defaults returns a library that serves the built-in template for every
// provider.
func Defaults() *Library {
	return &Library{Providers: map[string]Template{}}
}

// Load reads a prompt library from a YAML file. An empty path means
// defaults only.
func Load(path string) (*Library, error) {
	if path == "" {
		return Defaults(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading prompts file: %w", err)
	}

	var lib Library
	if err := yaml.Unmarshal(data, &lib); err != nil {
		return nil, fmt.Errorf("parsing prompts file %s: %w", path, err)
	}
	if lib.Providers == nil {
		lib.Providers = map[string]Template{}
	}
	return &lib, nil
}

// ForProvider returns the template for a provider, falling back to the
// built-in default. Partial overrides work: an entry may set just one of
// system/user and inherit the other half.
func (l *Library) ForProvider(name string) Template {
	t, ok := l.Providers[name]
	if !ok {
		return defaultTemplate
	}
	if t.System == "" {
		t.System = defaultTemplate.System
	}
	if t.User == "" {
		t.User = defaultTemplate.User
	}
	return t
}
