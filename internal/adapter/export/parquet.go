// Package export writes an account's trade log to Parquet files.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"
	"github.com/shopspring/decimal"
	"github.com/simaogato/papertrade-backend/internal/domain"
)

// TransactionRecord is the Parquet schema for one trade.
// Price stays a decimal string so no precision is lost to float64.
type TransactionRecord struct {
	ID         string `parquet:"id"`
	AccountID  string `parquet:"account_id"`
	Symbol     string `parquet:"symbol"`
	Delta      int64  `parquet:"delta"`
	Price      string `parquet:"price"`
	ExecutedAt int64  `parquet:"executed_at,timestamp(millisecond)"` // Unix ms
}

// WriteTransactions writes txs to path, creating parent directories.
func WriteTransactions(path string, txs []*domain.Transaction) error {
	records := make([]TransactionRecord, 0, len(txs))
	for _, tx := range txs {
		records = append(records, TransactionRecord{
			ID:         tx.ID.String(),
			AccountID:  tx.AccountID.String(),
			Symbol:     tx.Symbol,
			Delta:      tx.Delta,
			Price:      tx.Price.String(),
			ExecutedAt: tx.ExecutedAt.UnixMilli(),
		})
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	if err := parquet.WriteFile(path, records); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// ReadTransactions loads a file written by WriteTransactions.
func ReadTransactions(path string) ([]*domain.Transaction, error) {
	records, err := parquet.ReadFile[TransactionRecord](path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	txs := make([]*domain.Transaction, 0, len(records))
	for i, r := range records {
		id, err := uuid.Parse(r.ID)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid id: %w", i, err)
		}
		accountID, err := uuid.Parse(r.AccountID)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid account id: %w", i, err)
		}
		price, err := decimal.NewFromString(r.Price)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid price: %w", i, err)
		}
		txs = append(txs, &domain.Transaction{
			ID:         id,
			AccountID:  accountID,
			Symbol:     r.Symbol,
			Delta:      r.Delta,
			Price:      price,
			ExecutedAt: time.UnixMilli(r.ExecutedAt).UTC(),
		})
	}
	return txs, nil
}
