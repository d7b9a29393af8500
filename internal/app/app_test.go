package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/papertrade-backend/internal/config"
	"github.com/simaogato/papertrade-backend/internal/domain"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	quotes := filepath.Join(dir, "quotes.yaml")
	require.NoError(t, os.WriteFile(quotes, []byte("quotes:\n  AAPL: {name: Apple Inc., price: \"150.00\"}\n"), 0o600))

	cfgFile := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte(`
store:
  driver: sqlite
  sqlite_path: `+filepath.Join(dir, "ledger.db")+`
quotes:
  provider: static
  static_file: `+quotes+`
accounts:
  initial_cash: "2500.00"
  bcrypt_cost: 4
`), 0o600))

	cfg, err := config.Load(cfgFile)
	require.NoError(t, err)
	return cfg
}

func TestNew_SQLiteStack(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	require.NoError(t, Migrate(ctx, cfg))

	a, err := New(ctx, cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	assert.IsType(t, domain.NopPublisher{}, a.Publisher)

	acc, err := a.Accounts.Register(ctx, "alice", "pw", "kw")
	require.NoError(t, err)
	assert.True(t, acc.Cash.Equal(decimal.NewFromInt(2500)))

	_, err = a.Trades.ExecuteBuy(ctx, acc.ID, "AAPL", 10)
	require.NoError(t, err)

	worth, err := a.Portfolio.NetWorth(ctx, acc.ID)
	require.NoError(t, err)
	assert.True(t, worth.Total.Equal(decimal.NewFromInt(2500)))
	assert.True(t, worth.Cash.Equal(decimal.NewFromInt(1000)))

	_, err = a.Trades.ExecuteBuy(ctx, acc.ID, "MSFT", 1)
	assert.ErrorIs(t, err, domain.ErrUnknownSymbol)
}

func TestNewQuoteProvider_RequiresCredentials(t *testing.T) {
	_, err := newQuoteProvider(config.QuotesConfig{Provider: "alpaca"}, nil)
	assert.Error(t, err)

	_, err = newQuoteProvider(config.QuotesConfig{Provider: "iex"}, nil)
	assert.Error(t, err)

	_, err = newQuoteProvider(config.QuotesConfig{Provider: "static", StaticFile: "/does/not/exist.yaml"}, nil)
	assert.Error(t, err)
}
