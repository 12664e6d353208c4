package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/TheDandyCodes/perplexity-company-scraper/internal/llm"
	"github.com/TheDandyCodes/perplexity-company-scraper/internal/model"
	"github.com/TheDandyCodes/perplexity-company-scraper/internal/prompt"
)

// fakeClient is a scripted llm.Client. It counts calls so tests can assert
// exactly how often the chain reached out.
type fakeClient struct {
	name    string
	payload string
	err     error
	calls   int
}

func (f *fakeClient) QueryCompany(_ context.Context, _ *llm.QueryRequest) (*llm.ProviderResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &llm.ProviderResponse{RawPayload: json.RawMessage(f.payload)}, nil
}

func (f *fakeClient) ProviderName() string { return f.name }
func (f *fakeClient) ModelName() string    { return f.name + "-model" }

// goodPayload is schema-valid; badPayload fails the range invariant.
const goodPayload = `{
	"legal_name": "Acme Corp", "tax_id": "X123", "phone": null, "website": "https://acme.test",
	"industry_code": "2599", "industry_description": "Fabricated metal products", "sector": "Manufacturing",
	"employee_count_min": 50, "employee_count_max": 200,
	"revenue_min": 1000000, "revenue_max": 5000000,
	"country": "US", "region": null, "city": "Springfield", "address": null
}`

const badPayload = `{
	"legal_name": "Acme Corp", "tax_id": "X123", "phone": null, "website": null,
	"industry_code": null, "industry_description": null, "sector": null,
	"employee_count_min": 100, "employee_count_max": 50,
	"revenue_min": null, "revenue_max": null,
	"country": null, "region": null, "city": null, "address": null
}`

const targetColumn = "company_name"

func testRecord(company string) model.InputRecord {
	return model.InputRecord{
		RowIndex: 7,
		Columns:  []string{targetColumn, "country"},
		Values:   map[string]string{targetColumn: company, "country": "US"},
	}
}

func testHandler(t *testing.T, client llm.Client) *ProviderHandler {
	t.Helper()
	return NewProviderHandler(client, HandlerConfig{
		Params: llm.ModelParams{ModelName: client.ModelName(), Temperature: 0.1, MaxTokens: 512},
		Template: prompt.Template{
			System: "answer with JSON",
			User:   "describe {company_name}",
		},
		TargetColumn: targetColumn,
	})
}

// testChain builds primary + secondary + fallback without rate limiting.
func testChain(t *testing.T, primary, secondary llm.Client) *Chain {
	t.Helper()
	return New([]Handler{
		testHandler(t, primary),
		testHandler(t, secondary),
		NewFallbackHandler(targetColumn, nil),
	}, 0, nil)
}

func TestResolve_FirstHandlerWins(t *testing.T) {
	primary := &fakeClient{name: "primary", payload: goodPayload}
	secondary := &fakeClient{name: "secondary", payload: goodPayload}
	c := testChain(t, primary, secondary)

	result := c.Resolve(context.Background(), testRecord("Acme Corp"))

	if result.SourceHandler != "primary" {
		t.Errorf("expected source_handler primary, got %s", result.SourceHandler)
	}
	if secondary.calls != 0 {
		t.Errorf("secondary must not be invoked after primary succeeds, got %d calls", secondary.calls)
	}
	if result.Record.LegalName == nil || *result.Record.LegalName != "Acme Corp" {
		t.Errorf("unexpected legal_name: %v", result.Record.LegalName)
	}
	if result.Original.RowIndex != 7 {
		t.Errorf("original record must travel with the result, got row %d", result.Original.RowIndex)
	}
}

func TestResolve_HandsOffOnSchemaViolation(t *testing.T) {
	primary := &fakeClient{name: "primary", payload: badPayload}
	secondary := &fakeClient{name: "secondary", payload: goodPayload}
	c := testChain(t, primary, secondary)

	result := c.Resolve(context.Background(), testRecord("Acme Corp"))

	if result.SourceHandler != "secondary" {
		t.Errorf("expected hand-off to secondary, got %s", result.SourceHandler)
	}
	if primary.calls != 1 {
		t.Errorf("primary must be invoked exactly once, got %d", primary.calls)
	}
}

func TestResolve_HandsOffOnTransportError(t *testing.T) {
	primary := &fakeClient{name: "primary", err: fmt.Errorf("connection refused")}
	secondary := &fakeClient{name: "secondary", payload: goodPayload}
	c := testChain(t, primary, secondary)

	result := c.Resolve(context.Background(), testRecord("Acme Corp"))

	if result.SourceHandler != "secondary" {
		t.Errorf("expected hand-off to secondary, got %s", result.SourceHandler)
	}
}

func TestResolve_AllProvidersFailYieldsFallback(t *testing.T) {
	primary := &fakeClient{name: "primary", err: fmt.Errorf("timeout")}
	secondary := &fakeClient{name: "secondary", err: fmt.Errorf("HTTP 500")}
	c := testChain(t, primary, secondary)

	result := c.Resolve(context.Background(), testRecord("Acme Corp"))

	if result.SourceHandler != FallbackName {
		t.Fatalf("expected fallback result, got %s", result.SourceHandler)
	}
	if result.Record.Error == nil {
		t.Error("fallback record must carry an error marker")
	}
	if result.Record.LegalName != nil {
		t.Error("fallback record fields must be null")
	}
	if primary.calls != 1 || secondary.calls != 1 {
		t.Errorf("each provider must be invoked exactly once, got %d and %d", primary.calls, secondary.calls)
	}
}

func TestResolve_EmptyTargetValueSkipsNetwork(t *testing.T) {
	primary := &fakeClient{name: "primary", payload: goodPayload}
	secondary := &fakeClient{name: "secondary", payload: goodPayload}
	c := testChain(t, primary, secondary)

	result := c.Resolve(context.Background(), testRecord("   "))

	if result.SourceHandler != FallbackName {
		t.Errorf("expected fallback for empty company name, got %s", result.SourceHandler)
	}
	if primary.calls != 0 || secondary.calls != 0 {
		t.Errorf("no provider may be called for an empty target value, got %d and %d",
			primary.calls, secondary.calls)
	}
}

func TestResolve_MissingTargetColumnSkipsNetwork(t *testing.T) {
	primary := &fakeClient{name: "primary", payload: goodPayload}
	c := New([]Handler{
		testHandler(t, primary),
		NewFallbackHandler(targetColumn, nil),
	}, 0, nil)

	rec := model.InputRecord{RowIndex: 0, Columns: []string{"other"}, Values: map[string]string{"other": "x"}}
	result := c.Resolve(context.Background(), rec)

	if result.SourceHandler != FallbackName {
		t.Errorf("expected fallback, got %s", result.SourceHandler)
	}
	if primary.calls != 0 {
		t.Errorf("expected no network call, got %d", primary.calls)
	}
}

func TestResolve_RequestCostPropagates(t *testing.T) {
	cost := 0.0042
	client := &costClient{fakeClient{name: "primary", payload: goodPayload}, cost}
	c := New([]Handler{testHandler(t, client), NewFallbackHandler(targetColumn, nil)}, 0, nil)

	result := c.Resolve(context.Background(), testRecord("Acme Corp"))

	if result.Record.RequestCost == nil || *result.Record.RequestCost != cost {
		t.Errorf("expected request_cost %g, got %v", cost, result.Record.RequestCost)
	}
}

// costClient decorates fakeClient with a reported cost estimate.
type costClient struct {
	fakeClient
	cost float64
}

func (c *costClient) QueryCompany(ctx context.Context, req *llm.QueryRequest) (*llm.ProviderResponse, error) {
	resp, err := c.fakeClient.QueryCompany(ctx, req)
	if err == nil {
		cost := c.cost
		resp.CostEstimate = &cost
	}
	return resp, err
}

func TestProviderHandler_BuildsRequestFromTemplate(t *testing.T) {
	var captured *llm.QueryRequest
	client := &capturingClient{name: "primary", payload: goodPayload, captured: &captured}

	h := testHandler(t, client)
	if _, err := h.Attempt(context.Background(), testRecord("Acme Corp")); err != nil {
		t.Fatalf("attempt failed: %v", err)
	}

	if captured == nil {
		t.Fatal("client never received a request")
	}
	if captured.CompanyName != "Acme Corp" {
		t.Errorf("expected company name Acme Corp, got %q", captured.CompanyName)
	}
	if len(captured.Messages) != 2 || captured.Messages[1].Content != "describe Acme Corp" {
		t.Errorf("placeholder not rendered: %+v", captured.Messages)
	}
	if captured.Params.MaxTokens != 512 {
		t.Errorf("model params must come from the handler config, got %+v", captured.Params)
	}
}

type capturingClient struct {
	name     string
	payload  string
	captured **llm.QueryRequest
}

func (c *capturingClient) QueryCompany(_ context.Context, req *llm.QueryRequest) (*llm.ProviderResponse, error) {
	*c.captured = req
	return &llm.ProviderResponse{RawPayload: json.RawMessage(c.payload)}, nil
}

func (c *capturingClient) ProviderName() string { return c.name }
func (c *capturingClient) ModelName() string    { return c.name + "-model" }
