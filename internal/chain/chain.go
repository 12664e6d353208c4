package chain

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/TheDandyCodes/perplexity-company-scraper/internal/model"
)

// Chain is the ordered sequence of handlers plus the traversal protocol.
// Handlers are tried strictly in order, each at most once per record; the
// first non-hand-off result short-circuits the rest. Because the last link
// is always the fallback handler, Resolve terminates in at most chain-length
// steps with exactly one result.
type Chain struct {
	handlers []Handler
	limiter  *rate.Limiter // nil = no pacing
	logger   *zap.Logger
}

// New assembles a chain from an already-ordered handler list. Most callers
// want Build, which resolves provider names to handlers and appends the
// fallback; New is the escape hatch for hand-assembled chains (tests).
// ratePerMinute > 0 paces provider attempts; the terminal handler is never
// rate limited.
func New(handlers []Handler, ratePerMinute int, logger *zap.Logger) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	var limiter *rate.Limiter
	if ratePerMinute > 0 {
		// rate.Every converts the interval between calls into a rate.Limit.
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(ratePerMinute)), 1)
	}
	return &Chain{handlers: handlers, limiter: limiter, logger: logger}
}

// Len returns the number of links, the fallback included.
func (c *Chain) Len() int { return len(c.handlers) }

// Resolve runs one record through the chain and always returns a result.
// Per-attempt failures are logged and swallowed here — only configuration
// errors ever surface to the caller, and those happen at build time.
func (c *Chain) Resolve(ctx context.Context, rec model.InputRecord) *model.ResolutionResult {
	for i, h := range c.handlers {
		// Pace provider attempts only; the final link is the fallback and
		// makes no remote call.
		if c.limiter != nil && i < len(c.handlers)-1 {
			if err := c.limiter.Wait(ctx); err != nil {
				c.logger.Warn("rate limit wait interrupted, skipping handler",
					zap.Int("row", rec.RowIndex),
					zap.String("handler", h.Name()),
					zap.Error(err),
				)
				continue
			}
		}

		result, err := h.Attempt(ctx, rec)
		if err == nil {
			c.logger.Info("record resolved",
				zap.Int("row", rec.RowIndex),
				zap.String("handler", h.Name()),
			)
			return result
		}

		c.logger.Warn("handler failed, trying next",
			zap.Int("row", rec.RowIndex),
			zap.String("handler", h.Name()),
			zap.Error(err),
		)
	}

	// Unreachable for chains assembled by Build — the fallback never hands
	// off. Kept so a hand-assembled chain still honors the always-a-result
	// contract.
	marker := "resolution chain exhausted without a terminal handler"
	return &model.ResolutionResult{
		SourceHandler: FallbackName,
		Record:        model.StructuredCompanyRecord{Error: &marker},
		Original:      rec,
		Timestamp:     time.Now().UTC(),
	}
}
