package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction is an immutable entry in an account's trade log.
// Delta is positive for buys and negative for sells.
type Transaction struct {
	ID         uuid.UUID
	AccountID  uuid.UUID
	Symbol     string
	Delta      int64
	Price      decimal.Decimal // execution price per share
	ExecutedAt time.Time
}

// NewTransaction creates a log entry stamped with the current time.
func NewTransaction(accountID uuid.UUID, symbol string, delta int64, price decimal.Decimal) *Transaction {
	return &Transaction{
		ID:         uuid.New(),
		AccountID:  accountID,
		Symbol:     symbol,
		Delta:      delta,
		Price:      price,
		ExecutedAt: time.Now().UTC(),
	}
}

// IsBuy reports whether the entry records a purchase.
func (t *Transaction) IsBuy() bool {
	return t.Delta > 0
}

// Amount is the absolute cash value moved by the trade.
func (t *Transaction) Amount() decimal.Decimal {
	return t.Price.Mul(decimal.NewFromInt(t.Delta)).Abs()
}

// Validate ensures the transaction adheres to domain rules
func (t *Transaction) Validate() error {
	if t.AccountID == uuid.Nil {
		return errors.New("transaction must belong to an account")
	}

	if t.Symbol == "" {
		return errors.New("transaction symbol cannot be empty")
	}

	if t.Delta == 0 {
		return errors.New("transaction delta cannot be zero")
	}

	if !t.Price.IsPositive() {
		return errors.New("transaction price must be positive")
	}

	return nil
}

// FoldShares replays a transaction log into net share counts per symbol.
// Symbols whose deltas cancel out are omitted.
func FoldShares(txs []*Transaction) map[string]int64 {
	shares := make(map[string]int64)
	for _, t := range txs {
		shares[t.Symbol] += t.Delta
	}
	for symbol, n := range shares {
		if n == 0 {
			delete(shares, symbol)
		}
	}
	return shares
}
