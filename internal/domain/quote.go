package domain

import (
	"context"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// PricePrecision is the number of fractional digits kept for share prices.
const PricePrecision = 4

// Quote is a single price observation returned by a QuoteProvider.
type Quote struct {
	Symbol string
	Name   string
	Price  decimal.Decimal
}

// QuoteProvider resolves a symbol to its current price.
// Implementations return ErrUnknownSymbol when the symbol does not exist
// and ErrProviderUnavailable for any transport failure or timeout.
type QuoteProvider interface {
	Lookup(ctx context.Context, symbol string) (*Quote, error)
}

// NormalizeSymbol trims and upper-cases a ticker symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// NormalizePrice rounds a provider price to PricePrecision digits.
func NormalizePrice(price decimal.Decimal) decimal.Decimal {
	return price.Round(PricePrecision)
}

// ParseQuantity converts user input into a share count.
// Anything that is not a positive whole number yields ErrInvalidQuantity.
func ParseQuantity(s string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n <= 0 {
		return 0, ErrInvalidQuantity
	}
	return n, nil
}
