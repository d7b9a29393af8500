package sqlstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/papertrade-backend/internal/domain"
)

// transactionRepository implements domain.TransactionRepository
type transactionRepository struct {
	store *Store
}

func (r *transactionRepository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*domain.Transaction, error) {
	// seq breaks ties between entries stamped with the same instant
	query := r.store.q(`
		SELECT id, account_id, symbol, delta, price, executed_at
		FROM transactions
		WHERE account_id = ?
		ORDER BY executed_at, seq
	`)

	rows, err := r.store.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, r.store.wrap("failed to query transactions", err)
	}
	defer rows.Close()

	var txs []*domain.Transaction
	for rows.Next() {
		var tx domain.Transaction
		var priceStr string

		if err := rows.Scan(&tx.ID, &tx.AccountID, &tx.Symbol, &tx.Delta, &priceStr, &tx.ExecutedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}

		price, err := decimal.NewFromString(priceStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse transaction price: %w", err)
		}
		tx.Price = price
		tx.ExecutedAt = tx.ExecutedAt.UTC()

		txs = append(txs, &tx)
	}

	if err := rows.Err(); err != nil {
		return nil, r.store.wrap("error iterating transactions", err)
	}

	return txs, nil
}
