package trade

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/papertrade-backend/internal/domain"
	"github.com/simaogato/papertrade-backend/internal/usecase/txretry"
	"go.uber.org/zap"
)

// BuyResult describes the ledger state after a purchase
type BuyResult struct {
	Holding     *domain.Holding
	Cash        decimal.Decimal
	Cost        decimal.Decimal
	Transaction *domain.Transaction
}

// SellResult describes the ledger state after a sale
type SellResult struct {
	Cash            decimal.Decimal
	Proceeds        decimal.Decimal
	RemainingShares int64
	Transaction     *domain.Transaction
}

// TradeService executes buys and sells against the ledger.
// Each trade fetches its price first, then moves cash, the holding and the
// transaction log together in one atomic unit.
type TradeService struct {
	HoldingRepo domain.HoldingRepository
	Quotes      domain.QuoteProvider
	Publisher   domain.TradePublisher

	runner *txretry.Runner
	log    *zap.Logger
}

// NewTradeService creates a new TradeService instance
func NewTradeService(
	uow domain.UnitOfWork,
	holdingRepo domain.HoldingRepository,
	quotes domain.QuoteProvider,
	publisher domain.TradePublisher,
	policy txretry.Policy,
	log *zap.Logger,
) *TradeService {
	if publisher == nil {
		publisher = domain.NopPublisher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &TradeService{
		HoldingRepo: holdingRepo,
		Quotes:      quotes,
		Publisher:   publisher,
		runner:      txretry.New(uow, policy, log),
		log:         log.Named("trade"),
	}
}

// Quote looks up the current price of a symbol
func (s *TradeService) Quote(ctx context.Context, symbol string) (*domain.Quote, error) {
	symbol = domain.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, domain.ErrUnknownSymbol
	}
	return s.lookup(ctx, symbol)
}

// ExecuteBuy purchases quantity shares of symbol for the account
func (s *TradeService) ExecuteBuy(ctx context.Context, accountID uuid.UUID, symbol string, quantity int64) (*BuyResult, error) {
	symbol = domain.NormalizeSymbol(symbol)
	reject := func(err error, required, available decimal.Decimal) error {
		return s.rejected(&domain.TradeError{
			Op: "buy", Symbol: symbol, Quantity: quantity,
			Required: required, Available: available, Err: err,
		})
	}

	if quantity <= 0 {
		return nil, reject(domain.ErrInvalidQuantity, decimal.Zero, decimal.Zero)
	}
	if symbol == "" {
		return nil, reject(domain.ErrUnknownSymbol, decimal.Zero, decimal.Zero)
	}

	// Price is fixed before any lock is taken
	quote, err := s.lookup(ctx, symbol)
	if err != nil {
		return nil, reject(err, decimal.Zero, decimal.Zero)
	}
	symbol = quote.Symbol
	cost := quote.Price.Mul(decimal.NewFromInt(quantity))

	var result BuyResult
	err = s.runner.Run(ctx, "buy", func(ctx context.Context, tx domain.LedgerTx) error {
		account, err := tx.LockAccount(ctx, accountID)
		if err != nil {
			return err
		}

		if account.Cash.LessThan(cost) {
			return reject(domain.ErrInsufficientFunds, cost, account.Cash)
		}

		now := time.Now().UTC()
		holding, err := tx.LockHolding(ctx, accountID, symbol)
		switch {
		case errors.Is(err, domain.ErrNoSuchHolding):
			holding = &domain.Holding{AccountID: accountID, Symbol: symbol, Name: quote.Name, Shares: quantity}
			holding.Revalue(quote.Price, now)
			err = tx.InsertHolding(ctx, holding)
		case err != nil:
			return err
		default:
			holding.Shares += quantity
			if quote.Name != "" {
				holding.Name = quote.Name
			}
			holding.Revalue(quote.Price, now)
			err = tx.UpdateHolding(ctx, holding)
		}
		if err != nil {
			return err
		}

		entry := domain.NewTransaction(accountID, symbol, quantity, quote.Price)
		if err := tx.AppendTransaction(ctx, entry); err != nil {
			return err
		}

		cash := account.Cash.Sub(cost)
		if err := tx.SetCash(ctx, accountID, cash); err != nil {
			return err
		}

		result = BuyResult{Holding: holding, Cash: cash, Cost: cost, Transaction: entry}
		return nil
	})
	if err != nil {
		return nil, s.failed("buy", accountID, err)
	}

	s.log.Info("buy executed",
		zap.Stringer("account_id", accountID),
		zap.String("symbol", symbol),
		zap.Int64("quantity", quantity),
		zap.Stringer("price", quote.Price),
		zap.Stringer("cash", result.Cash),
	)
	s.publish(ctx, result.Transaction)

	return &result, nil
}

// ExecuteSell sells quantity shares of symbol from the account's holding
func (s *TradeService) ExecuteSell(ctx context.Context, accountID uuid.UUID, symbol string, quantity int64) (*SellResult, error) {
	symbol = domain.NormalizeSymbol(symbol)
	reject := func(err error, held int64) error {
		return s.rejected(&domain.TradeError{
			Op: "sell", Symbol: symbol, Quantity: quantity,
			Required: decimal.NewFromInt(quantity), Available: decimal.NewFromInt(held), Err: err,
		})
	}

	if quantity <= 0 {
		return nil, reject(domain.ErrInvalidQuantity, 0)
	}

	// Report a missing or short position before spending a quote call on it.
	// The same checks are repeated under lock below.
	held, err := s.HoldingRepo.Get(ctx, accountID, symbol)
	if errors.Is(err, domain.ErrNoSuchHolding) {
		return nil, reject(domain.ErrNoSuchHolding, 0)
	}
	if err != nil {
		return nil, s.failed("sell", accountID, err)
	}
	if held.Shares < quantity {
		return nil, reject(domain.ErrInsufficientShares, held.Shares)
	}

	quote, err := s.lookup(ctx, symbol)
	if err != nil {
		return nil, reject(err, held.Shares)
	}
	proceeds := quote.Price.Mul(decimal.NewFromInt(quantity))

	var result SellResult
	err = s.runner.Run(ctx, "sell", func(ctx context.Context, tx domain.LedgerTx) error {
		account, err := tx.LockAccount(ctx, accountID)
		if err != nil {
			return err
		}

		holding, err := tx.LockHolding(ctx, accountID, symbol)
		if errors.Is(err, domain.ErrNoSuchHolding) {
			return reject(domain.ErrNoSuchHolding, 0)
		}
		if err != nil {
			return err
		}
		if holding.Shares < quantity {
			return reject(domain.ErrInsufficientShares, holding.Shares)
		}

		holding.Shares -= quantity
		if holding.Shares == 0 {
			err = tx.DeleteHolding(ctx, accountID, symbol)
		} else {
			holding.Revalue(quote.Price, time.Now().UTC())
			err = tx.UpdateHolding(ctx, holding)
		}
		if err != nil {
			return err
		}

		entry := domain.NewTransaction(accountID, symbol, -quantity, quote.Price)
		if err := tx.AppendTransaction(ctx, entry); err != nil {
			return err
		}

		cash := account.Cash.Add(proceeds)
		if err := tx.SetCash(ctx, accountID, cash); err != nil {
			return err
		}

		result = SellResult{Cash: cash, Proceeds: proceeds, RemainingShares: holding.Shares, Transaction: entry}
		return nil
	})
	if err != nil {
		return nil, s.failed("sell", accountID, err)
	}

	s.log.Info("sell executed",
		zap.Stringer("account_id", accountID),
		zap.String("symbol", symbol),
		zap.Int64("quantity", quantity),
		zap.Stringer("price", quote.Price),
		zap.Stringer("cash", result.Cash),
	)
	s.publish(ctx, result.Transaction)

	return &result, nil
}

// lookup fetches a quote and normalises anything the provider returns
// outside the documented error set into ErrProviderUnavailable.
func (s *TradeService) lookup(ctx context.Context, symbol string) (*domain.Quote, error) {
	quote, err := s.Quotes.Lookup(ctx, symbol)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownSymbol) || errors.Is(err, domain.ErrProviderUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}

	if quote == nil || !quote.Price.IsPositive() {
		return nil, fmt.Errorf("%w: no usable price for %s", domain.ErrProviderUnavailable, symbol)
	}

	q := *quote
	q.Symbol = domain.NormalizeSymbol(q.Symbol)
	if q.Symbol == "" {
		q.Symbol = symbol
	}
	q.Price = domain.NormalizePrice(q.Price)
	return &q, nil
}

func (s *TradeService) rejected(err *domain.TradeError) error {
	s.log.Info("trade rejected", zap.String("op", err.Op), zap.String("symbol", err.Symbol), zap.Error(err.Err))
	return err
}

func (s *TradeService) failed(op string, accountID uuid.UUID, err error) error {
	var tradeErr *domain.TradeError
	if errors.As(err, &tradeErr) || errors.Is(err, domain.ErrAccountNotFound) {
		return err
	}
	s.log.Error("trade failed", zap.String("op", op), zap.Stringer("account_id", accountID), zap.Error(err))
	return err
}

// publish announces a committed trade. The trade stands even if this fails.
func (s *TradeService) publish(ctx context.Context, tx *domain.Transaction) {
	if err := s.Publisher.PublishTrade(ctx, tx); err != nil {
		s.log.Warn("failed to publish trade event", zap.Stringer("transaction_id", tx.ID), zap.Error(err))
	}
}
