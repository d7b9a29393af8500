package txretry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/simaogato/papertrade-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockUnitOfWork is a mock implementation of UnitOfWork for testing
type MockUnitOfWork struct {
	mock.Mock
}

func (m *MockUnitOfWork) Atomic(ctx context.Context, fn func(ctx context.Context, tx domain.LedgerTx) error) error {
	args := m.Called(ctx, fn)
	return args.Error(0)
}

var noop = func(context.Context, domain.LedgerTx) error { return nil }

func TestRun_SucceedsFirstTime(t *testing.T) {
	uow := new(MockUnitOfWork)
	uow.On("Atomic", mock.Anything, mock.Anything).Return(nil).Once()

	err := New(uow, Policy{MaxRetries: 3, BaseDelay: time.Millisecond}, nil).Run(context.Background(), "buy", noop)

	assert.NoError(t, err)
	uow.AssertNumberOfCalls(t, "Atomic", 1)
}

func TestRun_RetriesConflictThenSucceeds(t *testing.T) {
	uow := new(MockUnitOfWork)
	conflict := fmt.Errorf("failed to lock account: %w", domain.ErrStoreConflict)
	uow.On("Atomic", mock.Anything, mock.Anything).Return(conflict).Twice()
	uow.On("Atomic", mock.Anything, mock.Anything).Return(nil).Once()

	err := New(uow, Policy{MaxRetries: 3, BaseDelay: time.Millisecond}, nil).Run(context.Background(), "buy", noop)

	assert.NoError(t, err)
	uow.AssertNumberOfCalls(t, "Atomic", 3)
}

func TestRun_GivesUpAfterBudget(t *testing.T) {
	uow := new(MockUnitOfWork)
	uow.On("Atomic", mock.Anything, mock.Anything).Return(domain.ErrStoreConflict)

	err := New(uow, Policy{MaxRetries: 2, BaseDelay: time.Millisecond}, nil).Run(context.Background(), "sell", noop)

	assert.ErrorIs(t, err, domain.ErrStoreConflict)
	uow.AssertNumberOfCalls(t, "Atomic", 3)
}

func TestRun_DoesNotRetryDomainErrors(t *testing.T) {
	uow := new(MockUnitOfWork)
	uow.On("Atomic", mock.Anything, mock.Anything).Return(domain.ErrInsufficientFunds)

	err := New(uow, DefaultPolicy, nil).Run(context.Background(), "buy", noop)

	assert.True(t, errors.Is(err, domain.ErrInsufficientFunds))
	uow.AssertNumberOfCalls(t, "Atomic", 1)
}
