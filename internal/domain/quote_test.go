package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		input   string
		want    int64
		wantErr bool
	}{
		{input: "10", want: 10},
		{input: " 3 ", want: 3},
		{input: "0", wantErr: true},
		{input: "-5", wantErr: true},
		{input: "1.5", wantErr: true},
		{input: "ten", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseQuantity(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidQuantity)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "AAPL", NormalizeSymbol(" aapl "))
	assert.True(t, NormalizePrice(decimal.RequireFromString("150.123456")).Equal(decimal.RequireFromString("150.1235")))
}

func TestTradeError(t *testing.T) {
	err := &TradeError{
		Op:        "buy",
		Symbol:    "AAPL",
		Quantity:  1,
		Required:  decimal.NewFromInt(100),
		Available: decimal.NewFromInt(50),
		Err:       ErrInsufficientFunds,
	}

	assert.True(t, errors.Is(err, ErrInsufficientFunds))
	assert.Equal(t, "buy 1 AAPL: insufficient funds (required 100.00, available 50.00)", err.Error())

	var tradeErr *TradeError
	wrapped := errors.Join(errors.New("context"), err)
	assert.True(t, errors.As(wrapped, &tradeErr))
	assert.Equal(t, "AAPL", tradeErr.Symbol)
}
