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

const holdingColumns = `account_id, symbol, name, shares, price, total, updated_at`

// holdingRepository implements domain.HoldingRepository
type holdingRepository struct {
	store *Store
}

func scanHolding(row rowScanner) (*domain.Holding, error) {
	var h domain.Holding
	var priceStr, totalStr string

	if err := row.Scan(&h.AccountID, &h.Symbol, &h.Name, &h.Shares, &priceStr, &totalStr, &h.UpdatedAt); err != nil {
		return nil, err
	}

	var err error
	if h.Price, err = decimal.NewFromString(priceStr); err != nil {
		return nil, fmt.Errorf("failed to parse holding price: %w", err)
	}
	if h.Total, err = decimal.NewFromString(totalStr); err != nil {
		return nil, fmt.Errorf("failed to parse holding total: %w", err)
	}
	h.UpdatedAt = h.UpdatedAt.UTC()

	return &h, nil
}

func (r *holdingRepository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*domain.Holding, error) {
	query := r.store.q(`SELECT ` + holdingColumns + ` FROM holdings WHERE account_id = ? ORDER BY symbol`)

	rows, err := r.store.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, r.store.wrap("failed to query holdings", err)
	}
	defer rows.Close()

	var holdings []*domain.Holding
	for rows.Next() {
		h, err := scanHolding(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		holdings = append(holdings, h)
	}

	if err := rows.Err(); err != nil {
		return nil, r.store.wrap("error iterating holdings", err)
	}

	return holdings, nil
}

func (r *holdingRepository) Get(ctx context.Context, accountID uuid.UUID, symbol string) (*domain.Holding, error) {
	query := r.store.q(`SELECT ` + holdingColumns + ` FROM holdings WHERE account_id = ? AND symbol = ?`)

	h, err := scanHolding(r.store.db.QueryRowContext(ctx, query, accountID, symbol))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNoSuchHolding
	}
	if err != nil {
		return nil, r.store.wrap("failed to get holding", err)
	}

	return h, nil
}
