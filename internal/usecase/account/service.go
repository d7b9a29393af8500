package account

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/papertrade-backend/internal/domain"
	"go.uber.org/zap"
)

// AccountService handles registration and credential checks
type AccountService struct {
	AccountRepo domain.AccountRepository
	Hasher      domain.PasswordHasher
	InitialCash decimal.Decimal

	log *zap.Logger
}

// NewAccountService creates a new AccountService instance
func NewAccountService(
	accountRepo domain.AccountRepository,
	hasher domain.PasswordHasher,
	initialCash decimal.Decimal,
	log *zap.Logger,
) *AccountService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AccountService{
		AccountRepo: accountRepo,
		Hasher:      hasher,
		InitialCash: initialCash,
		log:         log.Named("account"),
	}
}

// Register creates an account funded with the initial cash balance.
// The password and recovery keyword are stored hashed.
func (s *AccountService) Register(ctx context.Context, username, password, keyword string) (*domain.Account, error) {
	username = strings.TrimSpace(username)
	switch {
	case username == "":
		return nil, fmt.Errorf("%w: username is required", domain.ErrInvalidAccount)
	case password == "":
		return nil, fmt.Errorf("%w: password is required", domain.ErrInvalidAccount)
	case strings.TrimSpace(keyword) == "":
		return nil, fmt.Errorf("%w: recovery keyword is required", domain.ErrInvalidAccount)
	}

	credentialHash, err := s.Hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	keywordHash, err := s.Hasher.Hash(keyword)
	if err != nil {
		return nil, err
	}

	account := domain.NewAccount(username, credentialHash, keywordHash, s.InitialCash)
	if err := account.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidAccount, err)
	}

	if err := s.AccountRepo.Create(ctx, account); err != nil {
		return nil, err
	}

	s.log.Info("account registered", zap.Stringer("account_id", account.ID), zap.String("username", account.Username))
	return account, nil
}

// Authenticate returns the account when the password matches.
// Unknown usernames and wrong passwords both yield ErrInvalidCredentials.
func (s *AccountService) Authenticate(ctx context.Context, username, password string) (*domain.Account, error) {
	account, err := s.AccountRepo.GetByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, domain.ErrAccountNotFound) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := s.Hasher.Compare(account.CredentialHash, password); err != nil {
		return nil, err
	}
	return account, nil
}

// ResetPassword replaces the password of the account whose recovery keyword matches
func (s *AccountService) ResetPassword(ctx context.Context, username, keyword, newPassword string) error {
	if newPassword == "" {
		return fmt.Errorf("%w: new password is required", domain.ErrInvalidAccount)
	}

	account, err := s.AccountRepo.GetByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, domain.ErrAccountNotFound) {
		return domain.ErrInvalidCredentials
	}
	if err != nil {
		return err
	}

	if err := s.Hasher.Compare(account.KeywordHash, keyword); err != nil {
		s.log.Warn("password reset refused", zap.Stringer("account_id", account.ID))
		return err
	}

	hash, err := s.Hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.AccountRepo.UpdateCredential(ctx, account.ID, hash); err != nil {
		return err
	}

	s.log.Info("password reset", zap.Stringer("account_id", account.ID))
	return nil
}

// Get returns the account by ID
func (s *AccountService) Get(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	return s.AccountRepo.GetByID(ctx, id)
}

// GetByUsername returns the account registered under username
func (s *AccountService) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return s.AccountRepo.GetByUsername(ctx, strings.TrimSpace(username))
}
