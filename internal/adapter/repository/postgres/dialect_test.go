package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestDialect_IsConflict(t *testing.T) {
	d := Dialect{}

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "serialization failure", err: &pq.Error{Code: "40001"}, want: true},
		{name: "deadlock", err: &pq.Error{Code: "40P01"}, want: true},
		{name: "lock timeout", err: fmt.Errorf("lock account: %w", &pq.Error{Code: "55P03"}), want: true},
		{name: "unique violation", err: &pq.Error{Code: "23505"}, want: false},
		{name: "plain error", err: errors.New("boom"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, d.IsConflict(tt.err))
		})
	}
}

func TestDialect_IsUniqueViolation(t *testing.T) {
	d := Dialect{}

	assert.True(t, d.IsUniqueViolation(&pq.Error{Code: "23505"}))
	assert.False(t, d.IsUniqueViolation(&pq.Error{Code: "40001"}))
}

func TestDialect_Rebind(t *testing.T) {
	d := Dialect{}

	assert.Equal(t, "SELECT id FROM accounts WHERE id = $1 FOR UPDATE",
		d.Rebind("SELECT id FROM accounts WHERE id = ?"+d.LockClause()))
}
