package domain

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountRepository defines the interface for account persistence operations
type AccountRepository interface {
	// GetByID retrieves an account by its ID
	// Returns ErrAccountNotFound if it does not exist
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)

	// GetByUsername retrieves an account by its unique username
	GetByUsername(ctx context.Context, username string) (*Account, error)

	// Create persists a new account
	// Returns ErrUsernameTaken if the username is already registered
	Create(ctx context.Context, account *Account) error

	// UpdateCredential replaces the stored password hash
	UpdateCredential(ctx context.Context, id uuid.UUID, credentialHash string) error
}

// HoldingRepository defines read access to an account's positions
type HoldingRepository interface {
	// ListByAccount returns every holding of the account ordered by symbol
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*Holding, error)

	// Get returns a single holding or ErrNoSuchHolding
	Get(ctx context.Context, accountID uuid.UUID, symbol string) (*Holding, error)
}

// TransactionRepository defines read access to the trade log
type TransactionRepository interface {
	// ListByAccount returns the account's transactions ordered by execution time, oldest first
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*Transaction, error)
}

// LedgerTx is the set of writes available inside an atomic unit.
// Lock methods hold the row until the unit ends. Trades lock the account
// before any holding so concurrent units cannot deadlock.
type LedgerTx interface {
	LockAccount(ctx context.Context, accountID uuid.UUID) (*Account, error)
	LockHolding(ctx context.Context, accountID uuid.UUID, symbol string) (*Holding, error)
	SetCash(ctx context.Context, accountID uuid.UUID, cash decimal.Decimal) error
	InsertHolding(ctx context.Context, holding *Holding) error
	UpdateHolding(ctx context.Context, holding *Holding) error
	DeleteHolding(ctx context.Context, accountID uuid.UUID, symbol string) error
	DeleteZeroHoldings(ctx context.Context, accountID uuid.UUID) (int64, error)
	AppendTransaction(ctx context.Context, tx *Transaction) error
}

// UnitOfWork runs fn as a single all-or-nothing unit against the ledger.
// If fn returns an error every write it made is discarded. Lock waits and
// serialization failures surface as ErrStoreConflict.
type UnitOfWork interface {
	Atomic(ctx context.Context, fn func(ctx context.Context, tx LedgerTx) error) error
}
