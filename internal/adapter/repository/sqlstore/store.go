package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/simaogato/papertrade-backend/internal/domain"
)

// Dialect hides the differences between the SQL backends.
type Dialect interface {
	// Name identifies the backend in logs and errors
	Name() string

	// Rebind rewrites ? placeholders into the driver's bind syntax
	Rebind(query string) string

	// LockClause is appended to SELECTs whose rows must stay locked until the unit ends
	LockClause() string

	// Begin starts an atomic unit
	Begin(ctx context.Context, db *sql.DB) (*sql.Tx, error)

	// IsConflict reports lock timeouts, deadlocks and serialization failures
	IsConflict(err error) bool

	// IsUniqueViolation reports duplicate key errors
	IsUniqueViolation(err error) bool
}

// Compile-time interface checks.
var _ domain.UnitOfWork = (*Store)(nil)

// Store implements the ledger repositories on top of database/sql.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// New creates a store over an open database handle
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

// DB exposes the underlying handle for health checks and shutdown
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Accounts() domain.AccountRepository {
	return &accountRepository{store: s}
}

func (s *Store) Holdings() domain.HoldingRepository {
	return &holdingRepository{store: s}
}

func (s *Store) Transactions() domain.TransactionRepository {
	return &transactionRepository{store: s}
}

// Atomic runs fn inside a database transaction.
func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, tx domain.LedgerTx) error) error {
	dbTx, err := s.dialect.Begin(ctx, s.db)
	if err != nil {
		return s.wrap("failed to begin transaction", err)
	}
	defer dbTx.Rollback()

	if err := fn(ctx, &ledgerTx{store: s, tx: dbTx}); err != nil {
		return err
	}

	if err := dbTx.Commit(); err != nil {
		return s.wrap("failed to commit transaction", err)
	}

	return nil
}

// wrap annotates a driver error and tags it as a conflict when the backend says so.
func (s *Store) wrap(msg string, err error) error {
	if s.dialect.IsConflict(err) {
		return fmt.Errorf("%s: %w: %w", msg, domain.ErrStoreConflict, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func (s *Store) q(query string) string {
	return s.dialect.Rebind(query)
}

// Rebind converts ? placeholders to PostgreSQL style $1, $2, ...
func Rebind(query string) string {
	out := make([]byte, 0, len(query)+8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			out = append(out, fmt.Sprintf("$%d", n)...)
			continue
		}
		out = append(out, query[i])
	}
	return string(out)
}
