package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/simaogato/papertrade-backend/internal/domain"
)

// Compile-time interface checks.
var _ domain.QuoteProvider = (*IEXProvider)(nil)

// IEXProvider fetches quotes from an IEX Cloud compatible REST endpoint:
// GET {baseURL}/stock/{symbol}/quote?token=...
type IEXProvider struct {
	baseURL string
	token   string
	client  *http.Client
}

type iexQuote struct {
	Symbol      string          `json:"symbol"`
	CompanyName string          `json:"companyName"`
	LatestPrice decimal.Decimal `json:"latestPrice"`
}

// NewIEXProvider creates a provider. A nil client uses http.DefaultClient.
func NewIEXProvider(baseURL, token string, client *http.Client) *IEXProvider {
	if client == nil {
		client = http.DefaultClient
	}
	return &IEXProvider{baseURL: strings.TrimRight(baseURL, "/"), token: token, client: client}
}

func (p *IEXProvider) Lookup(ctx context.Context, symbol string) (*domain.Quote, error) {
	symbol = domain.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, domain.ErrUnknownSymbol
	}

	u := fmt.Sprintf("%s/stock/%s/quote?token=%s", p.baseURL, url.PathEscape(symbol), url.QueryEscape(p.token))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownSymbol, symbol)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: status %d for %s", domain.ErrProviderUnavailable, resp.StatusCode, symbol)
	}

	var body iexQuote
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decoding quote for %s: %v", domain.ErrProviderUnavailable, symbol, err)
	}

	if !body.LatestPrice.IsPositive() {
		return nil, fmt.Errorf("%w: no price for %s", domain.ErrProviderUnavailable, symbol)
	}

	if body.Symbol == "" {
		body.Symbol = symbol
	}

	return &domain.Quote{
		Symbol: domain.NormalizeSymbol(body.Symbol),
		Name:   body.CompanyName,
		Price:  domain.NormalizePrice(body.LatestPrice),
	}, nil
}
