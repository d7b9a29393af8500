package quote

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/simaogato/papertrade-backend/internal/domain"
	"gopkg.in/yaml.v3"
)

// Compile-time interface checks.
var _ domain.QuoteProvider = (*StaticProvider)(nil)

// StaticProvider serves quotes from an in-memory table. It backs local
// development, demos and tests.
type StaticProvider struct {
	mu          sync.RWMutex
	quotes      map[string]domain.Quote
	unavailable map[string]bool
}

// staticFile is the YAML layout of a quote table:
//
//	quotes:
//	  AAPL: {name: Apple Inc., price: "150.00"}
type staticFile struct {
	Quotes map[string]struct {
		Name  string `yaml:"name"`
		Price string `yaml:"price"`
	} `yaml:"quotes"`
}

// NewStaticProvider creates a provider holding the given quotes.
func NewStaticProvider(quotes ...domain.Quote) *StaticProvider {
	p := &StaticProvider{
		quotes:      make(map[string]domain.Quote),
		unavailable: make(map[string]bool),
	}
	for _, q := range quotes {
		p.Set(q)
	}
	return p
}

// LoadStaticProvider reads a YAML quote table from path.
func LoadStaticProvider(path string) (*StaticProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading quote table: %w", err)
	}

	var f staticFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing quote table: %w", err)
	}

	p := NewStaticProvider()
	for symbol, entry := range f.Quotes {
		price, err := decimal.NewFromString(entry.Price)
		if err != nil {
			return nil, fmt.Errorf("quote table: invalid price for %s: %w", symbol, err)
		}
		p.Set(domain.Quote{Symbol: symbol, Name: entry.Name, Price: price})
	}
	return p, nil
}

// Set adds or replaces the quote for q.Symbol.
func (p *StaticProvider) Set(q domain.Quote) {
	p.mu.Lock()
	defer p.mu.Unlock()
	q.Symbol = domain.NormalizeSymbol(q.Symbol)
	p.quotes[q.Symbol] = q
}

// SetUnavailable makes lookups of symbol fail with ErrProviderUnavailable.
func (p *StaticProvider) SetUnavailable(symbol string, unavailable bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.unavailable[domain.NormalizeSymbol(symbol)] = unavailable
}

func (p *StaticProvider) Lookup(ctx context.Context, symbol string) (*domain.Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}

	symbol = domain.NormalizeSymbol(symbol)

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.unavailable[symbol] {
		return nil, fmt.Errorf("%w: %s", domain.ErrProviderUnavailable, symbol)
	}
	q, ok := p.quotes[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownSymbol, symbol)
	}
	return &q, nil
}
