package quote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"
	"github.com/simaogato/papertrade-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticProvider(t *testing.T) {
	ctx := context.Background()
	p := NewStaticProvider(domain.Quote{Symbol: "aapl", Name: "Apple Inc.", Price: decimal.RequireFromString("150")})

	q, err := p.Lookup(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", q.Symbol)
	assert.Equal(t, "Apple Inc.", q.Name)

	_, err = p.Lookup(ctx, "ZZZZ")
	assert.ErrorIs(t, err, domain.ErrUnknownSymbol)

	p.SetUnavailable("aapl", true)
	_, err = p.Lookup(ctx, "AAPL")
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)

	p.SetUnavailable("AAPL", false)
	_, err = p.Lookup(ctx, "AAPL")
	assert.NoError(t, err)
}

func TestLoadStaticProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quotes.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
quotes:
  AAPL: {name: Apple Inc., price: "150.00"}
  msft:
    name: Microsoft Corporation
    price: "410.25"
`), 0o600))

	p, err := LoadStaticProvider(path)
	require.NoError(t, err)

	q, err := p.Lookup(context.Background(), "MSFT")
	require.NoError(t, err)
	assert.True(t, q.Price.Equal(decimal.RequireFromString("410.25")))

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("quotes:\n  AAPL: {price: abc}\n"), 0o600))
	_, err = LoadStaticProvider(bad)
	assert.Error(t, err)
}

type providerFunc func(ctx context.Context, symbol string) (*domain.Quote, error)

func (f providerFunc) Lookup(ctx context.Context, symbol string) (*domain.Quote, error) {
	return f(ctx, symbol)
}

func TestGuard_MapsErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr error
	}{
		{name: "unknown passes through", err: fmt.Errorf("x: %w", domain.ErrUnknownSymbol), wantErr: domain.ErrUnknownSymbol},
		{name: "unavailable passes through", err: domain.ErrProviderUnavailable, wantErr: domain.ErrProviderUnavailable},
		{name: "anything else is unavailable", err: errors.New("connection reset"), wantErr: domain.ErrProviderUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGuard(providerFunc(func(context.Context, string) (*domain.Quote, error) {
				return nil, tt.err
			}), 0, 1, time.Second, nil)

			_, err := g.Lookup(context.Background(), "AAPL")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestGuard_TimesOutSlowProvider(t *testing.T) {
	slow := providerFunc(func(ctx context.Context, symbol string) (*domain.Quote, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	g := NewGuard(slow, 0, 1, 20*time.Millisecond, nil)

	start := time.Now()
	_, err := g.Lookup(context.Background(), "AAPL")

	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
	assert.Less(t, time.Since(start), time.Second)
}

func TestGuard_RateLimitHonoursDeadline(t *testing.T) {
	ok := providerFunc(func(context.Context, string) (*domain.Quote, error) {
		return &domain.Quote{Symbol: "AAPL", Price: decimal.NewFromInt(1)}, nil
	})
	// One token per minute: the second lookup cannot get a token before its timeout
	g := NewGuard(ok, 1.0/60, 1, 50*time.Millisecond, nil)

	_, err := g.Lookup(context.Background(), "AAPL")
	require.NoError(t, err)

	_, err = g.Lookup(context.Background(), "AAPL")
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
}

func TestIEXProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.URL.Query().Get("token"))
		switch r.URL.Path {
		case "/stock/AAPL/quote":
			fmt.Fprint(w, `{"symbol":"AAPL","companyName":"Apple Inc.","latestPrice":150.123456}`)
		case "/stock/DOWN/quote":
			w.WriteHeader(http.StatusServiceUnavailable)
		case "/stock/BAD/quote":
			fmt.Fprint(w, `{"symbol":"BAD",`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	p := NewIEXProvider(srv.URL+"/", "secret", srv.Client())
	ctx := context.Background()

	q, err := p.Lookup(ctx, "aapl")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", q.Symbol)
	assert.Equal(t, "Apple Inc.", q.Name)
	assert.True(t, q.Price.Equal(decimal.RequireFromString("150.1235")))

	_, err = p.Lookup(ctx, "ZZZZ")
	assert.ErrorIs(t, err, domain.ErrUnknownSymbol)

	_, err = p.Lookup(ctx, "DOWN")
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)

	_, err = p.Lookup(ctx, "BAD")
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
}

type fakeAssets map[string]*alpaca.Asset

func (f fakeAssets) GetAsset(symbol string) (*alpaca.Asset, error) {
	if symbol == "FAIL" {
		return nil, errors.New("dial tcp: timeout")
	}
	a, ok := f[symbol]
	if !ok {
		return nil, &alpaca.APIError{StatusCode: http.StatusNotFound, Code: alpacaAssetNotFound, Message: "asset not found"}
	}
	return a, nil
}

type fakeTrades struct {
	price float64
	delay time.Duration
}

func (f fakeTrades) GetLatestTrade(symbol string, _ marketdata.GetLatestTradeRequest) (*marketdata.Trade, error) {
	time.Sleep(f.delay)
	return &marketdata.Trade{Price: f.price}, nil
}

func TestAlpacaProvider(t *testing.T) {
	assets := fakeAssets{
		"AAPL": {Symbol: "AAPL", Name: "Apple Inc. Common Stock"},
		"FAIL": nil,
	}
	p := &AlpacaProvider{assets: assets, trades: fakeTrades{price: 187.42}, feed: "iex"}
	ctx := context.Background()

	q, err := p.Lookup(ctx, "aapl")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", q.Symbol)
	assert.Equal(t, "Apple Inc. Common Stock", q.Name)
	assert.True(t, q.Price.Equal(decimal.RequireFromString("187.42")))

	_, err = p.Lookup(ctx, "ZZZZ")
	assert.ErrorIs(t, err, domain.ErrUnknownSymbol)

	_, err = p.Lookup(ctx, "FAIL")
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
}

func TestAlpacaProvider_ContextCancel(t *testing.T) {
	p := &AlpacaProvider{
		assets: fakeAssets{"AAPL": {Symbol: "AAPL"}},
		trades: fakeTrades{price: 1, delay: 200 * time.Millisecond},
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := p.Lookup(ctx, "AAPL")
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
}
