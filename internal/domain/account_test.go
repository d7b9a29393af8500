package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestAccount_Validate(t *testing.T) {
	tests := []struct {
		name    string
		account Account
		wantErr bool
		errMsg  string
	}{
		{
			name: "Valid account should pass",
			account: Account{
				ID:             uuid.New(),
				Username:       "alice",
				CredentialHash: "hash",
				KeywordHash:    "keyword",
				Cash:           decimal.NewFromInt(10000),
			},
			wantErr: false,
		},
		{
			name: "Zero cash should pass",
			account: Account{
				ID:             uuid.New(),
				Username:       "alice",
				CredentialHash: "hash",
				KeywordHash:    "keyword",
				Cash:           decimal.Zero,
			},
			wantErr: false,
		},
		{
			name: "Empty username should fail",
			account: Account{
				ID:             uuid.New(),
				CredentialHash: "hash",
				KeywordHash:    "keyword",
				Cash:           decimal.Zero,
			},
			wantErr: true,
			errMsg:  "username cannot be empty",
		},
		{
			name: "Missing credential should fail",
			account: Account{
				ID:          uuid.New(),
				Username:    "alice",
				KeywordHash: "keyword",
			},
			wantErr: true,
			errMsg:  "credential hash cannot be empty",
		},
		{
			name: "Missing keyword should fail",
			account: Account{
				ID:             uuid.New(),
				Username:       "alice",
				CredentialHash: "hash",
			},
			wantErr: true,
			errMsg:  "recovery keyword cannot be empty",
		},
		{
			name: "Negative cash should fail",
			account: Account{
				ID:             uuid.New(),
				Username:       "alice",
				CredentialHash: "hash",
				KeywordHash:    "keyword",
				Cash:           decimal.NewFromInt(-1),
			},
			wantErr: true,
			errMsg:  "cash balance cannot be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.account.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewAccount_TrimsUsername(t *testing.T) {
	account := NewAccount("  bob ", "hash", "kw", DefaultInitialCash)

	assert.Equal(t, "bob", account.Username)
	assert.NotEqual(t, uuid.Nil, account.ID)
	assert.True(t, account.Cash.Equal(decimal.RequireFromString("10000")))
	assert.False(t, account.CreatedAt.IsZero())
}
