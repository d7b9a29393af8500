package quote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/simaogato/papertrade-backend/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Compile-time interface checks.
var _ domain.QuoteProvider = (*Guard)(nil)

// Guard wraps a provider with a client-side rate limit and a per-lookup
// timeout, and folds every failure into the domain error set.
type Guard struct {
	next    domain.QuoteProvider
	limiter *rate.Limiter
	timeout time.Duration
	log     *zap.Logger
}

// NewGuard creates a Guard. A non-positive ratePerSecond disables throttling.
func NewGuard(next domain.QuoteProvider, ratePerSecond float64, burst int, timeout time.Duration, log *zap.Logger) *Guard {
	limit := rate.Inf
	if ratePerSecond > 0 {
		limit = rate.Limit(ratePerSecond)
	}
	if burst < 1 {
		burst = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Guard{
		next:    next,
		limiter: rate.NewLimiter(limit, burst),
		timeout: timeout,
		log:     log.Named("quotes"),
	}
}

func (g *Guard) Lookup(ctx context.Context, symbol string) (*domain.Quote, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	// Wait for rate limiter before making request
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter: %v", domain.ErrProviderUnavailable, err)
	}

	start := time.Now()
	q, err := g.next.Lookup(ctx, symbol)
	switch {
	case err == nil:
		g.log.Debug("quote", zap.String("symbol", q.Symbol), zap.Stringer("price", q.Price), zap.Duration("took", time.Since(start)))
		return q, nil
	case errors.Is(err, domain.ErrUnknownSymbol), errors.Is(err, domain.ErrProviderUnavailable):
		return nil, err
	default:
		g.log.Warn("quote lookup failed", zap.String("symbol", symbol), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
}
