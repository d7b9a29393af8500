package quote

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"
	"github.com/simaogato/papertrade-backend/internal/domain"
)

// Compile-time interface checks.
var _ domain.QuoteProvider = (*AlpacaProvider)(nil)

// alpacaAssetNotFound is the API error code Alpaca returns for unknown assets.
const alpacaAssetNotFound = 40410000

type assetGetter interface {
	GetAsset(symbol string) (*alpaca.Asset, error)
}

type latestTradeGetter interface {
	GetLatestTrade(symbol string, req marketdata.GetLatestTradeRequest) (*marketdata.Trade, error)
}

// AlpacaProvider resolves symbols through Alpaca: the trading API supplies the
// company name and confirms the asset exists, the market-data API supplies the
// last trade price.
type AlpacaProvider struct {
	assets assetGetter
	trades latestTradeGetter
	feed   string
}

// NewAlpacaProvider creates a provider from API credentials. Empty URLs use
// the client defaults.
func NewAlpacaProvider(apiKey, apiSecret, baseURL, dataURL, feed string) *AlpacaProvider {
	dataOpts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		dataOpts.BaseURL = dataURL
	}

	return &AlpacaProvider{
		assets: alpaca.NewClient(alpaca.ClientOpts{
			APIKey:    apiKey,
			APISecret: apiSecret,
			BaseURL:   baseURL,
		}),
		trades: marketdata.NewClient(dataOpts),
		feed:   feed,
	}
}

type alpacaResult struct {
	quote *domain.Quote
	err   error
}

// Lookup honours ctx even though the Alpaca clients do not accept one.
func (p *AlpacaProvider) Lookup(ctx context.Context, symbol string) (*domain.Quote, error) {
	symbol = domain.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, domain.ErrUnknownSymbol
	}

	ch := make(chan alpacaResult, 1)
	go func() {
		q, err := p.fetch(symbol)
		ch <- alpacaResult{quote: q, err: err}
	}()

	select {
	case r := <-ch:
		return r.quote, r.err
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrProviderUnavailable, symbol, ctx.Err())
	}
}

func (p *AlpacaProvider) fetch(symbol string) (*domain.Quote, error) {
	asset, err := p.assets.GetAsset(symbol)
	if err != nil {
		var apiErr *alpaca.APIError
		if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusNotFound || apiErr.Code == alpacaAssetNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrUnknownSymbol, symbol)
		}
		return nil, fmt.Errorf("%w: GetAsset %s: %v", domain.ErrProviderUnavailable, symbol, err)
	}
	if asset == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownSymbol, symbol)
	}

	trade, err := p.trades.GetLatestTrade(symbol, marketdata.GetLatestTradeRequest{Feed: marketdata.Feed(p.feed)})
	if err != nil {
		return nil, fmt.Errorf("%w: GetLatestTrade %s: %v", domain.ErrProviderUnavailable, symbol, err)
	}
	if trade == nil || trade.Price <= 0 {
		return nil, fmt.Errorf("%w: no recent trade for %s", domain.ErrProviderUnavailable, symbol)
	}

	return &domain.Quote{
		Symbol: domain.NormalizeSymbol(asset.Symbol),
		Name:   asset.Name,
		Price:  domain.NormalizePrice(decimal.NewFromFloat(trade.Price)),
	}, nil
}
