package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/papertrade-backend/internal/domain"
)

// ledgerTx implements domain.LedgerTx over a single *sql.Tx
type ledgerTx struct {
	store *Store
	tx    *sql.Tx
}

func (l *ledgerTx) exec(ctx context.Context, msg, query string, args ...any) (sql.Result, error) {
	res, err := l.tx.ExecContext(ctx, l.store.q(query), args...)
	if err != nil {
		return nil, l.store.wrap(msg, err)
	}
	return res, nil
}

func (l *ledgerTx) LockAccount(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	query := l.store.q(`SELECT ` + accountColumns + ` FROM accounts WHERE id = ?` + l.store.dialect.LockClause())

	account, err := scanAccount(l.tx.QueryRowContext(ctx, query, accountID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, l.store.wrap("failed to lock account", err)
	}

	return account, nil
}

func (l *ledgerTx) LockHolding(ctx context.Context, accountID uuid.UUID, symbol string) (*domain.Holding, error) {
	query := l.store.q(`SELECT ` + holdingColumns + ` FROM holdings WHERE account_id = ? AND symbol = ?` + l.store.dialect.LockClause())

	h, err := scanHolding(l.tx.QueryRowContext(ctx, query, accountID, symbol))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNoSuchHolding
	}
	if err != nil {
		return nil, l.store.wrap("failed to lock holding", err)
	}

	return h, nil
}

func (l *ledgerTx) SetCash(ctx context.Context, accountID uuid.UUID, cash decimal.Decimal) error {
	if cash.IsNegative() {
		return fmt.Errorf("refusing to store negative cash %s", cash)
	}

	res, err := l.exec(ctx, "failed to update cash", `UPDATE accounts SET cash = ? WHERE id = ?`, cash.String(), accountID)
	if err != nil {
		return err
	}
	return expectOne(res, domain.ErrAccountNotFound)
}

func (l *ledgerTx) InsertHolding(ctx context.Context, h *domain.Holding) error {
	if err := h.Validate(); err != nil {
		return err
	}

	_, err := l.exec(ctx, "failed to insert holding", `
		INSERT INTO holdings (account_id, symbol, name, shares, price, total, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, h.AccountID, h.Symbol, h.Name, h.Shares, h.Price.String(), h.Total.String(), h.UpdatedAt)
	return err
}

func (l *ledgerTx) UpdateHolding(ctx context.Context, h *domain.Holding) error {
	if err := h.Validate(); err != nil {
		return err
	}

	res, err := l.exec(ctx, "failed to update holding", `
		UPDATE holdings
		SET name = ?, shares = ?, price = ?, total = ?, updated_at = ?
		WHERE account_id = ? AND symbol = ?
	`, h.Name, h.Shares, h.Price.String(), h.Total.String(), h.UpdatedAt, h.AccountID, h.Symbol)
	if err != nil {
		return err
	}
	return expectOne(res, domain.ErrNoSuchHolding)
}

func (l *ledgerTx) DeleteHolding(ctx context.Context, accountID uuid.UUID, symbol string) error {
	res, err := l.exec(ctx, "failed to delete holding",
		`DELETE FROM holdings WHERE account_id = ? AND symbol = ?`, accountID, symbol)
	if err != nil {
		return err
	}
	return expectOne(res, domain.ErrNoSuchHolding)
}

func (l *ledgerTx) DeleteZeroHoldings(ctx context.Context, accountID uuid.UUID) (int64, error) {
	res, err := l.exec(ctx, "failed to prune holdings",
		`DELETE FROM holdings WHERE account_id = ? AND shares = 0`, accountID)
	if err != nil {
		return 0, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n, nil
}

func (l *ledgerTx) AppendTransaction(ctx context.Context, t *domain.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}

	_, err := l.exec(ctx, "failed to insert transaction", `
		INSERT INTO transactions (id, account_id, symbol, delta, price, executed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, t.ID, t.AccountID, t.Symbol, t.Delta, t.Price.String(), t.ExecutedAt)
	return err
}

func expectOne(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
