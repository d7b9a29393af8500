package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultInitialCash is the cash balance granted to a newly registered account.
var DefaultInitialCash = decimal.RequireFromString("10000.00")

// Account represents a trading account in the domain layer
type Account struct {
	ID             uuid.UUID
	Username       string // unique, immutable after registration
	CredentialHash string
	KeywordHash    string // hashed recovery keyword used for password reset
	Cash           decimal.Decimal
	CreatedAt      time.Time
}

// NewAccount builds an account with a fresh ID and the given starting cash.
func NewAccount(username, credentialHash, keywordHash string, cash decimal.Decimal) *Account {
	return &Account{
		ID:             uuid.New(),
		Username:       strings.TrimSpace(username),
		CredentialHash: credentialHash,
		KeywordHash:    keywordHash,
		Cash:           cash,
		CreatedAt:      time.Now().UTC(),
	}
}

// Validate ensures the account adheres to domain rules
func (a *Account) Validate() error {
	if a.Username == "" {
		return errors.New("username cannot be empty")
	}

	if a.CredentialHash == "" {
		return errors.New("credential hash cannot be empty")
	}

	if a.KeywordHash == "" {
		return errors.New("recovery keyword cannot be empty")
	}

	// Cash can never go negative, not even transiently
	if a.Cash.IsNegative() {
		return errors.New("cash balance cannot be negative")
	}

	return nil
}
