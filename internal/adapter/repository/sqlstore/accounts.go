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

const accountColumns = `id, username, credential_hash, keyword_hash, cash, created_at`

// accountRepository implements domain.AccountRepository
type accountRepository struct {
	store *Store
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*domain.Account, error) {
	var account domain.Account
	var cashStr string

	if err := row.Scan(
		&account.ID,
		&account.Username,
		&account.CredentialHash,
		&account.KeywordHash,
		&cashStr,
		&account.CreatedAt,
	); err != nil {
		return nil, err
	}

	cash, err := decimal.NewFromString(cashStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse cash balance: %w", err)
	}
	account.Cash = cash
	account.CreatedAt = account.CreatedAt.UTC()

	return &account, nil
}

func (r *accountRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	query := r.store.q(`SELECT ` + accountColumns + ` FROM accounts WHERE id = ?`)

	account, err := scanAccount(r.store.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, r.store.wrap("failed to get account", err)
	}

	return account, nil
}

func (r *accountRepository) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	query := r.store.q(`SELECT ` + accountColumns + ` FROM accounts WHERE username = ?`)

	account, err := scanAccount(r.store.db.QueryRowContext(ctx, query, username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, r.store.wrap("failed to get account by username", err)
	}

	return account, nil
}

func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	if err := account.Validate(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidAccount, err)
	}

	query := r.store.q(`
		INSERT INTO accounts (id, username, credential_hash, keyword_hash, cash, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)

	_, err := r.store.db.ExecContext(ctx, query,
		account.ID,
		account.Username,
		account.CredentialHash,
		account.KeywordHash,
		account.Cash.String(),
		account.CreatedAt,
	)
	if err != nil {
		if r.store.dialect.IsUniqueViolation(err) {
			return domain.ErrUsernameTaken
		}
		return r.store.wrap("failed to insert account", err)
	}

	return nil
}

func (r *accountRepository) UpdateCredential(ctx context.Context, id uuid.UUID, credentialHash string) error {
	query := r.store.q(`UPDATE accounts SET credential_hash = ? WHERE id = ?`)

	res, err := r.store.db.ExecContext(ctx, query, credentialHash, id)
	if err != nil {
		return r.store.wrap("failed to update credential", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return domain.ErrAccountNotFound
	}

	return nil
}
