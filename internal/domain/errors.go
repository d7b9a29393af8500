package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Trade and valuation failures. Callers classify with errors.Is.
var (
	ErrUnknownSymbol       = errors.New("unknown symbol")
	ErrInvalidQuantity     = errors.New("quantity must be a positive whole number")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrInsufficientShares  = errors.New("insufficient shares")
	ErrNoSuchHolding       = errors.New("no such holding")
	ErrStoreConflict       = errors.New("ledger store conflict")
	ErrProviderUnavailable = errors.New("quote provider unavailable")
)

// Account failures.
var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidAccount     = errors.New("invalid account")
)

// TradeError carries the context of a rejected trade.
// It unwraps to one of the sentinel errors above.
type TradeError struct {
	Op        string // "buy" or "sell"
	Symbol    string
	Quantity  int64
	Required  decimal.Decimal // cost for buys, shares for sells
	Available decimal.Decimal // cash for buys, held shares for sells
	Err       error
}

func (e *TradeError) Error() string {
	switch {
	case errors.Is(e.Err, ErrInsufficientFunds):
		return fmt.Sprintf("%s %d %s: %v (required %s, available %s)",
			e.Op, e.Quantity, e.Symbol, e.Err, e.Required.StringFixed(2), e.Available.StringFixed(2))
	case errors.Is(e.Err, ErrInsufficientShares):
		return fmt.Sprintf("%s %d %s: %v (held %s)", e.Op, e.Quantity, e.Symbol, e.Err, e.Available.String())
	default:
		return fmt.Sprintf("%s %d %s: %v", e.Op, e.Quantity, e.Symbol, e.Err)
	}
}

func (e *TradeError) Unwrap() error {
	return e.Err
}
