package account

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/papertrade-backend/internal/adapter/auth"
	"github.com/simaogato/papertrade-backend/internal/adapter/repository/sqlite"
	"github.com/simaogato/papertrade-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// MockAccountRepository is a mock implementation of AccountRepository for testing
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountRepository) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	return m.Called(ctx, account).Error(0)
}

func (m *MockAccountRepository) UpdateCredential(ctx context.Context, id uuid.UUID, credentialHash string) error {
	return m.Called(ctx, id, credentialHash).Error(0)
}

// plainHasher prefixes secrets so tests can read what was stored
type plainHasher struct{}

func (plainHasher) Hash(secret string) (string, error) { return "h:" + secret, nil }

func (plainHasher) Compare(hash, secret string) error {
	if hash != "h:"+secret {
		return domain.ErrInvalidCredentials
	}
	return nil
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	repo := new(MockAccountRepository)
	svc := NewAccountService(repo, plainHasher{}, decimal.RequireFromString("10000.00"), nil)

	repo.On("Create", ctx, mock.MatchedBy(func(a *domain.Account) bool {
		return a.Username == "alice" && a.CredentialHash == "h:pw" && a.KeywordHash == "h:kw" && a.Cash.Equal(decimal.NewFromInt(10000))
	})).Return(nil)

	account, err := svc.Register(ctx, "  alice ", "pw", "kw")

	require.NoError(t, err)
	assert.Equal(t, "alice", account.Username)
	assert.NotEqual(t, uuid.Nil, account.ID)
	repo.AssertExpectations(t)
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
		keyword  string
	}{
		{name: "missing username", username: " ", password: "pw", keyword: "kw"},
		{name: "missing password", username: "alice", password: "", keyword: "kw"},
		{name: "missing keyword", username: "alice", password: "pw", keyword: "  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockAccountRepository)
			svc := NewAccountService(repo, plainHasher{}, decimal.Zero, nil)

			_, err := svc.Register(context.Background(), tt.username, tt.password, tt.keyword)

			assert.ErrorIs(t, err, domain.ErrInvalidAccount)
			repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestRegister_UsernameTaken(t *testing.T) {
	ctx := context.Background()
	repo := new(MockAccountRepository)
	svc := NewAccountService(repo, plainHasher{}, decimal.Zero, nil)

	repo.On("Create", ctx, mock.Anything).Return(domain.ErrUsernameTaken)

	_, err := svc.Register(ctx, "alice", "pw", "kw")
	assert.ErrorIs(t, err, domain.ErrUsernameTaken)
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	stored := &domain.Account{ID: uuid.New(), Username: "alice", CredentialHash: "h:pw"}

	tests := []struct {
		name     string
		setup    func(repo *MockAccountRepository)
		password string
		wantErr  error
	}{
		{
			name:     "correct password",
			setup:    func(repo *MockAccountRepository) { repo.On("GetByUsername", ctx, "alice").Return(stored, nil) },
			password: "pw",
		},
		{
			name:     "wrong password",
			setup:    func(repo *MockAccountRepository) { repo.On("GetByUsername", ctx, "alice").Return(stored, nil) },
			password: "nope",
			wantErr:  domain.ErrInvalidCredentials,
		},
		{
			name: "unknown user",
			setup: func(repo *MockAccountRepository) {
				repo.On("GetByUsername", ctx, "alice").Return(nil, domain.ErrAccountNotFound)
			},
			password: "pw",
			wantErr:  domain.ErrInvalidCredentials,
		},
		{
			name: "store failure",
			setup: func(repo *MockAccountRepository) {
				repo.On("GetByUsername", ctx, "alice").Return(nil, errors.New("connection refused"))
			},
			password: "pw",
			wantErr:  errors.New("connection refused"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockAccountRepository)
			tt.setup(repo)
			svc := NewAccountService(repo, plainHasher{}, decimal.Zero, nil)

			account, err := svc.Authenticate(ctx, "alice", tt.password)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, stored.ID, account.ID)
		})
	}
}

func TestResetPassword(t *testing.T) {
	ctx := context.Background()
	stored := &domain.Account{ID: uuid.New(), Username: "alice", CredentialHash: "h:old", KeywordHash: "h:blue"}

	t.Run("matching keyword", func(t *testing.T) {
		repo := new(MockAccountRepository)
		repo.On("GetByUsername", ctx, "alice").Return(stored, nil)
		repo.On("UpdateCredential", ctx, stored.ID, "h:new").Return(nil)
		svc := NewAccountService(repo, plainHasher{}, decimal.Zero, nil)

		require.NoError(t, svc.ResetPassword(ctx, "alice", "blue", "new"))
		repo.AssertExpectations(t)
	})

	t.Run("wrong keyword", func(t *testing.T) {
		repo := new(MockAccountRepository)
		repo.On("GetByUsername", ctx, "alice").Return(stored, nil)
		svc := NewAccountService(repo, plainHasher{}, decimal.Zero, nil)

		err := svc.ResetPassword(ctx, "alice", "red", "new")
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
		repo.AssertNotCalled(t, "UpdateCredential", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("empty new password", func(t *testing.T) {
		svc := NewAccountService(new(MockAccountRepository), plainHasher{}, decimal.Zero, nil)

		err := svc.ResetPassword(ctx, "alice", "blue", "")
		assert.ErrorIs(t, err, domain.ErrInvalidAccount)
	})
}

func TestAccountLifecycle_SQLite(t *testing.T) {
	ctx := context.Background()
	store, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "ledger.db"), time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { store.DB().Close() })

	svc := NewAccountService(store.Accounts(), auth.NewBcryptHasher(bcrypt.MinCost), domain.DefaultInitialCash, nil)

	registered, err := svc.Register(ctx, "alice", "s3cret", "blue")
	require.NoError(t, err)
	assert.True(t, registered.Cash.Equal(decimal.NewFromInt(10000)))

	_, err = svc.Register(ctx, "alice", "other", "red")
	assert.ErrorIs(t, err, domain.ErrUsernameTaken)

	_, err = svc.Authenticate(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	require.NoError(t, svc.ResetPassword(ctx, "alice", "blue", "n3w"))

	_, err = svc.Authenticate(ctx, "alice", "s3cret")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	account, err := svc.Authenticate(ctx, "alice", "n3w")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, account.ID)
}
