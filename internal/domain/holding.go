package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Holding is an account's position in one symbol.
// Price and Total are a cached valuation refreshed from quotes; they are
// advisory and never used to price a trade.
type Holding struct {
	AccountID uuid.UUID
	Symbol    string
	Name      string
	Shares    int64
	Price     decimal.Decimal // last known price per share
	Total     decimal.Decimal // Shares * Price at the time Price was set
	UpdatedAt time.Time
}

// Revalue sets the cached price and recomputes the total from the current share count.
func (h *Holding) Revalue(price decimal.Decimal, at time.Time) {
	h.Price = price
	h.Total = price.Mul(decimal.NewFromInt(h.Shares))
	h.UpdatedAt = at
}

// Validate ensures the holding adheres to domain rules
func (h *Holding) Validate() error {
	if h.AccountID == uuid.Nil {
		return errors.New("holding must belong to an account")
	}

	if h.Symbol == "" {
		return errors.New("holding symbol cannot be empty")
	}

	if h.Shares < 0 {
		return errors.New("holding shares cannot be negative")
	}

	if h.Price.IsNegative() {
		return errors.New("holding price cannot be negative")
	}

	return nil
}

// SumTotals adds up the cached totals of the given holdings.
func SumTotals(holdings []*Holding) decimal.Decimal {
	total := decimal.Zero
	for _, h := range holdings {
		total = total.Add(h.Total)
	}
	return total
}
