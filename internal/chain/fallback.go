package chain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/TheDandyCodes/perplexity-company-scraper/internal/model"
)

// FallbackName is the source_handler value for records no provider resolved.
const FallbackName = "fallback"

// FallbackHandler is the terminal chain link. It never hands off: every
// record that reaches it gets a ResolutionResult whose fields are all null
// plus an explicit error marker, so the outer loop's contract stays "always
// a result, never an exception".
type FallbackHandler struct {
	targetColumn string
	logger       *zap.Logger
}

// NewFallbackHandler creates the terminal handler.
func NewFallbackHandler(targetColumn string, logger *zap.Logger) *FallbackHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FallbackHandler{targetColumn: targetColumn, logger: logger}
}

func (f *FallbackHandler) Name() string { return FallbackName }

// Attempt always succeeds. The returned error is always nil — the signature
// only matches the Handler interface.
func (f *FallbackHandler) Attempt(_ context.Context, rec model.InputRecord) (*model.ResolutionResult, error) {
	subject := strings.TrimSpace(rec.Value(f.targetColumn))
	if subject == "" {
		subject = fmt.Sprintf("row %d", rec.RowIndex)
	}
	marker := fmt.Sprintf("no provider could resolve %q", subject)

	f.logger.Warn("falling back", zap.Int("row", rec.RowIndex), zap.String("subject", subject))

	return &model.ResolutionResult{
		SourceHandler: FallbackName,
		Record:        model.StructuredCompanyRecord{Error: &marker},
		Original:      rec,
		Timestamp:     time.Now().UTC(),
	}, nil
}
