// Package txretry runs ledger units of work, retrying store conflicts with
// exponential backoff.
package txretry

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/simaogato/papertrade-backend/internal/domain"
	"go.uber.org/zap"
)

// Policy bounds how often a conflicting unit is re-run.
type Policy struct {
	MaxRetries uint64
	BaseDelay  time.Duration
}

// DefaultPolicy retries three times starting at 25ms.
var DefaultPolicy = Policy{MaxRetries: 3, BaseDelay: 25 * time.Millisecond}

// Runner wraps a UnitOfWork with the retry policy.
type Runner struct {
	uow    domain.UnitOfWork
	policy Policy
	log    *zap.Logger
}

// New creates a Runner. A nil logger disables logging.
func New(uow domain.UnitOfWork, policy Policy, log *zap.Logger) *Runner {
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = DefaultPolicy.BaseDelay
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{uow: uow, policy: policy, log: log}
}

// Run executes fn atomically. Only errors wrapping domain.ErrStoreConflict are
// retried; once the budget is spent the last conflict is returned.
func (r *Runner) Run(ctx context.Context, op string, fn func(ctx context.Context, tx domain.LedgerTx) error) error {
	backoff := retry.WithMaxRetries(r.policy.MaxRetries, retry.NewExponential(r.policy.BaseDelay))

	attempt := 0
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := r.uow.Atomic(ctx, fn)
		if errors.Is(err, domain.ErrStoreConflict) {
			r.log.Warn("ledger conflict", zap.String("op", op), zap.Int("attempt", attempt), zap.Error(err))
			return retry.RetryableError(err)
		}
		return err
	})
}
