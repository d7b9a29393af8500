package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/papertrade-backend/internal/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// AccountRecord is the schema of the accounts table.
type AccountRecord struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Username       string          `gorm:"type:text;not null;uniqueIndex"`
	CredentialHash string          `gorm:"type:text;not null"`
	KeywordHash    string          `gorm:"type:text;not null"`
	Cash           decimal.Decimal `gorm:"type:numeric(20,4);not null;check:chk_accounts_cash_non_negative,cash >= 0"`
	CreatedAt      time.Time       `gorm:"type:timestamptz;not null"`
}

func (AccountRecord) TableName() string { return "accounts" }

// HoldingRecord is the schema of the holdings table.
type HoldingRecord struct {
	AccountID uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Symbol    string          `gorm:"type:text;primaryKey"`
	Name      string          `gorm:"type:text;not null;default:''"`
	Shares    int64           `gorm:"type:bigint;not null;check:chk_holdings_shares_non_negative,shares >= 0"`
	Price     decimal.Decimal `gorm:"type:numeric(20,4);not null"`
	Total     decimal.Decimal `gorm:"type:numeric(20,4);not null"`
	UpdatedAt time.Time       `gorm:"type:timestamptz;not null"`

	Account AccountRecord `gorm:"foreignKey:AccountID;constraint:OnDelete:RESTRICT"`
}

func (HoldingRecord) TableName() string { return "holdings" }

// TransactionRecord is the schema of the append-only transactions table.
type TransactionRecord struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Seq        int64           `gorm:"type:bigserial;autoIncrement;not null;uniqueIndex"`
	AccountID  uuid.UUID       `gorm:"type:uuid;not null;index:idx_transactions_account_time,priority:1"`
	Symbol     string          `gorm:"type:text;not null"`
	Delta      int64           `gorm:"type:bigint;not null;check:chk_transactions_delta_non_zero,delta <> 0"`
	Price      decimal.Decimal `gorm:"type:numeric(20,4);not null"`
	ExecutedAt time.Time       `gorm:"type:timestamptz;not null;index:idx_transactions_account_time,priority:2"`

	Account AccountRecord `gorm:"foreignKey:AccountID;constraint:OnDelete:RESTRICT"`
}

func (TransactionRecord) TableName() string { return "transactions" }

// Migrate optionally creates the database, then brings the ledger tables up
// to date with gorm's AutoMigrate.
func Migrate(ctx context.Context, cfg config.PostgresConfig, createDB bool) error {
	if createDB {
		if err := CreateDatabase(ctx, cfg); err != nil {
			return fmt.Errorf("failed to create database: %w", err)
		}
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to retrieve raw DB: %w", err)
	}
	defer sqlDB.Close()

	if err := db.WithContext(ctx).AutoMigrate(&AccountRecord{}, &HoldingRecord{}, &TransactionRecord{}); err != nil {
		return fmt.Errorf("auto-migrate ledger tables: %w", err)
	}

	return nil
}
