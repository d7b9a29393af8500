package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/simaogato/papertrade-backend/internal/adapter/repository/sqlstore"
)

// Compile-time interface checks.
var _ sqlstore.Dialect = Dialect{}

// SQLSTATE codes treated as a retryable store conflict.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
	codeUniqueViolation      = "23505"
)

// Dialect implements sqlstore.Dialect for PostgreSQL.
// Rows are locked with SELECT ... FOR UPDATE and every unit sets a local
// lock_timeout, so a blocked trade fails with 55P03 instead of waiting forever.
type Dialect struct {
	LockTimeout time.Duration
}

func (Dialect) Name() string               { return "postgres" }
func (Dialect) Rebind(query string) string { return sqlstore.Rebind(query) }
func (Dialect) LockClause() string         { return " FOR UPDATE" }

func (d Dialect) Begin(ctx context.Context, db *sql.DB) (*sql.Tx, error) {
	tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}

	if d.LockTimeout > 0 {
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", d.LockTimeout.Milliseconds())
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	return tx, nil
}

func (Dialect) IsConflict(err error) bool {
	switch sqlState(err) {
	case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable:
		return true
	}
	return false
}

func (Dialect) IsUniqueViolation(err error) bool {
	return sqlState(err) == codeUniqueViolation
}

func sqlState(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

func quoteIdent(name string) string {
	return pq.QuoteIdentifier(name)
}
