package portfolio

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/papertrade-backend/internal/domain"
	"github.com/simaogato/papertrade-backend/internal/usecase/txretry"
	"go.uber.org/zap"
)

// RefreshResult is the state of an account's holdings after a price refresh
type RefreshResult struct {
	Holdings []*domain.Holding
	// Failed lists symbols whose quote could not be fetched; their cached
	// price and total were left untouched
	Failed []string
	Stale  bool
}

// NetWorthResult represents the calculated net worth
type NetWorthResult struct {
	Cash          decimal.Decimal
	HoldingsValue decimal.Decimal
	Total         decimal.Decimal
	Holdings      []*domain.Holding
	Stale         bool
	FailedSymbols []string
}

// Discrepancy is a symbol whose holding disagrees with its transaction log
type Discrepancy struct {
	Symbol string
	Logged int64 // net shares according to the log
	Held   int64 // shares on the holding row
}

// PortfolioService values and maintains an account's positions
type PortfolioService struct {
	AccountRepo     domain.AccountRepository
	HoldingRepo     domain.HoldingRepository
	TransactionRepo domain.TransactionRepository
	Quotes          domain.QuoteProvider

	runner *txretry.Runner
	log    *zap.Logger
}

// NewPortfolioService creates a new PortfolioService instance
func NewPortfolioService(
	uow domain.UnitOfWork,
	accountRepo domain.AccountRepository,
	holdingRepo domain.HoldingRepository,
	transactionRepo domain.TransactionRepository,
	quotes domain.QuoteProvider,
	policy txretry.Policy,
	log *zap.Logger,
) *PortfolioService {
	if log == nil {
		log = zap.NewNop()
	}
	return &PortfolioService{
		AccountRepo:     accountRepo,
		HoldingRepo:     holdingRepo,
		TransactionRepo: transactionRepo,
		Quotes:          quotes,
		runner:          txretry.New(uow, policy, log),
		log:             log.Named("portfolio"),
	}
}

// Refresh re-prices every holding of the account.
// Logic:
//   - Quotes are fetched outside any lock, one per holding
//   - A symbol that fails to price keeps its previous cached values and is
//     reported in Failed; the rest of the refresh goes ahead
//   - Fresh prices are written in one atomic unit against the locked share
//     count, so a trade that lands in between is valued correctly
func (s *PortfolioService) Refresh(ctx context.Context, accountID uuid.UUID) (*RefreshResult, error) {
	holdings, err := s.HoldingRepo.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list holdings: %w", err)
	}

	prices := make(map[string]decimal.Decimal, len(holdings))
	var failed []string
	for _, h := range holdings {
		q, err := s.Quotes.Lookup(ctx, h.Symbol)
		if err == nil && (q == nil || !q.Price.IsPositive()) {
			err = fmt.Errorf("%w: no usable price", domain.ErrProviderUnavailable)
		}
		if err != nil {
			s.log.Warn("refresh skipped symbol", zap.Stringer("account_id", accountID), zap.String("symbol", h.Symbol), zap.Error(err))
			failed = append(failed, h.Symbol)
			continue
		}
		prices[h.Symbol] = domain.NormalizePrice(q.Price)
	}

	if len(prices) > 0 {
		err = s.runner.Run(ctx, "refresh", func(ctx context.Context, tx domain.LedgerTx) error {
			if _, err := tx.LockAccount(ctx, accountID); err != nil {
				return err
			}

			now := time.Now().UTC()
			for _, symbol := range sortedKeys(prices) {
				holding, err := tx.LockHolding(ctx, accountID, symbol)
				if errors.Is(err, domain.ErrNoSuchHolding) {
					// Sold since the listing above
					continue
				}
				if err != nil {
					return err
				}
				holding.Revalue(prices[symbol], now)
				if err := tx.UpdateHolding(ctx, holding); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to store refreshed prices: %w", err)
		}
	}

	refreshed, err := s.HoldingRepo.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list holdings: %w", err)
	}

	return &RefreshResult{
		Holdings: refreshed,
		Failed:   failed,
		Stale:    len(failed) > 0,
	}, nil
}

// NetWorth refreshes prices and returns cash plus the value of all holdings.
// When Stale is set the figure includes cached values for FailedSymbols.
func (s *PortfolioService) NetWorth(ctx context.Context, accountID uuid.UUID) (*NetWorthResult, error) {
	account, err := s.AccountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	refresh, err := s.Refresh(ctx, accountID)
	if err != nil {
		return nil, err
	}

	// Re-read cash: a trade may have committed while quotes were fetched
	account, err = s.AccountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	holdingsValue := domain.SumTotals(refresh.Holdings)

	return &NetWorthResult{
		Cash:          account.Cash,
		HoldingsValue: holdingsValue,
		Total:         account.Cash.Add(holdingsValue),
		Holdings:      refresh.Holdings,
		Stale:         refresh.Stale,
		FailedSymbols: refresh.Failed,
	}, nil
}

// PruneZeroHoldings removes holdings with no shares left and returns how many went
func (s *PortfolioService) PruneZeroHoldings(ctx context.Context, accountID uuid.UUID) (int64, error) {
	var removed int64
	err := s.runner.Run(ctx, "prune", func(ctx context.Context, tx domain.LedgerTx) error {
		if _, err := tx.LockAccount(ctx, accountID); err != nil {
			return err
		}
		n, err := tx.DeleteZeroHoldings(ctx, accountID)
		if err != nil {
			return err
		}
		removed = n
		return nil
	})
	if err != nil {
		return 0, err
	}

	if removed > 0 {
		s.log.Warn("pruned empty holdings", zap.Stringer("account_id", accountID), zap.Int64("removed", removed))
	}
	return removed, nil
}

// Overview is the portfolio page: drop empty rows, refresh prices and total everything up
func (s *PortfolioService) Overview(ctx context.Context, accountID uuid.UUID) (*NetWorthResult, error) {
	if _, err := s.PruneZeroHoldings(ctx, accountID); err != nil {
		return nil, err
	}
	return s.NetWorth(ctx, accountID)
}

// History returns the account's trades, oldest first
func (s *PortfolioService) History(ctx context.Context, accountID uuid.UUID) ([]*domain.Transaction, error) {
	if _, err := s.AccountRepo.GetByID(ctx, accountID); err != nil {
		return nil, err
	}

	txs, err := s.TransactionRepo.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txs, nil
}

// Reconcile replays the transaction log and compares it with the holdings.
// An empty result means the ledger is consistent.
func (s *PortfolioService) Reconcile(ctx context.Context, accountID uuid.UUID) ([]Discrepancy, error) {
	txs, err := s.History(ctx, accountID)
	if err != nil {
		return nil, err
	}
	holdings, err := s.HoldingRepo.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list holdings: %w", err)
	}

	logged := domain.FoldShares(txs)
	held := make(map[string]int64, len(holdings))
	for _, h := range holdings {
		held[h.Symbol] = h.Shares
	}

	symbols := make(map[string]struct{}, len(logged)+len(held))
	for symbol := range logged {
		symbols[symbol] = struct{}{}
	}
	for symbol := range held {
		symbols[symbol] = struct{}{}
	}

	var out []Discrepancy
	for symbol := range symbols {
		if logged[symbol] != held[symbol] {
			out = append(out, Discrepancy{Symbol: symbol, Logged: logged[symbol], Held: held[symbol]})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })

	if len(out) > 0 {
		s.log.Error("ledger out of balance", zap.Stringer("account_id", accountID), zap.Int("symbols", len(out)))
	}
	return out, nil
}

func sortedKeys(m map[string]decimal.Decimal) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
