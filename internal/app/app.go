// Package app assembles the ledger store, quote provider, event publisher
// and services described by a config.Config.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/simaogato/papertrade-backend/internal/adapter/auth"
	"github.com/simaogato/papertrade-backend/internal/adapter/events"
	"github.com/simaogato/papertrade-backend/internal/adapter/quote"
	"github.com/simaogato/papertrade-backend/internal/adapter/repository/postgres"
	"github.com/simaogato/papertrade-backend/internal/adapter/repository/sqlite"
	"github.com/simaogato/papertrade-backend/internal/adapter/repository/sqlstore"
	"github.com/simaogato/papertrade-backend/internal/config"
	"github.com/simaogato/papertrade-backend/internal/domain"
	"github.com/simaogato/papertrade-backend/internal/usecase/account"
	"github.com/simaogato/papertrade-backend/internal/usecase/portfolio"
	"github.com/simaogato/papertrade-backend/internal/usecase/trade"
	"github.com/simaogato/papertrade-backend/internal/usecase/txretry"
)

// App holds the wired services. Close releases everything New opened.
type App struct {
	Config *config.Config
	Log    *zap.Logger

	Store     *sqlstore.Store
	Quotes    domain.QuoteProvider
	Publisher domain.TradePublisher

	Accounts  *account.AccountService
	Trades    *trade.TradeService
	Portfolio *portfolio.PortfolioService

	closers []func() error
}

// New connects the configured backends and builds the services.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	a := &App{Config: cfg, Log: log}

	if err := a.openStore(ctx); err != nil {
		return nil, err
	}

	quotes, err := newQuoteProvider(cfg.Quotes, log)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Quotes = quotes

	if err := a.openPublisher(); err != nil {
		a.Close()
		return nil, err
	}

	cash, err := cfg.Accounts.Cash()
	if err != nil {
		a.Close()
		return nil, err
	}

	policy := txretry.Policy{
		MaxRetries: uint64(cfg.Store.MaxRetries),
		BaseDelay:  cfg.Store.RetryBaseDelay,
	}

	a.Accounts = account.NewAccountService(a.Store.Accounts(), auth.NewBcryptHasher(cfg.Accounts.BcryptCost), cash, log)
	a.Trades = trade.NewTradeService(a.Store, a.Store.Holdings(), a.Quotes, a.Publisher, policy, log)
	a.Portfolio = portfolio.NewPortfolioService(a.Store, a.Store.Accounts(), a.Store.Holdings(), a.Store.Transactions(), a.Quotes, policy, log)

	return a, nil
}

// Migrate creates the ledger schema on Postgres. SQLite databases are
// migrated when they are opened.
func Migrate(ctx context.Context, cfg *config.Config) error {
	if cfg.Store.Driver != "postgres" {
		return nil
	}
	if err := resolveSecrets(ctx, &cfg.Postgres); err != nil {
		return err
	}
	return postgres.Migrate(ctx, cfg.Postgres, true)
}

// Close shuts down the publisher and the database, newest first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) openStore(ctx context.Context) error {
	cfg := a.Config

	switch cfg.Store.Driver {
	case "postgres":
		if err := resolveSecrets(ctx, &cfg.Postgres); err != nil {
			return err
		}
		store, err := postgres.Open(ctx, cfg.Postgres, cfg.Store.LockTimeout)
		if err != nil {
			return err
		}
		a.Store = store
	case "sqlite":
		store, err := sqlite.Open(ctx, cfg.Store.SQLitePath, cfg.Store.LockTimeout)
		if err != nil {
			return err
		}
		a.Store = store
	default:
		return fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}

	a.closers = append(a.closers, a.Store.DB().Close)
	a.Log.Info("ledger store ready", zap.String("driver", cfg.Store.Driver))
	return nil
}

func (a *App) openPublisher() error {
	kc := a.Config.Kafka
	if kc.Brokers == "" {
		a.Publisher = domain.NopPublisher{}
		return nil
	}

	p, err := events.NewKafkaPublisher(kc.Brokers, kc.Topic, kc.DeliveryTimeout, a.Log)
	if err != nil {
		return err
	}
	a.Publisher = p
	a.closers = append(a.closers, func() error {
		p.Close()
		return nil
	})
	a.Log.Info("trade events enabled", zap.String("topic", kc.Topic))
	return nil
}

func newQuoteProvider(qc config.QuotesConfig, log *zap.Logger) (domain.QuoteProvider, error) {
	if log == nil {
		log = zap.NewNop()
	}
	var provider domain.QuoteProvider

	switch qc.Provider {
	case "alpaca":
		if qc.Alpaca.APIKey == "" || qc.Alpaca.APISecret == "" {
			return nil, errors.New("quotes.alpaca.api_key and api_secret are required")
		}
		provider = quote.NewAlpacaProvider(qc.Alpaca.APIKey, qc.Alpaca.APISecret, qc.Alpaca.BaseURL, qc.Alpaca.DataURL, qc.Alpaca.Feed)
	case "iex":
		if qc.IEX.Token == "" {
			return nil, errors.New("quotes.iex.token is required")
		}
		provider = quote.NewIEXProvider(qc.IEX.BaseURL, qc.IEX.Token, nil)
	case "static":
		if qc.StaticFile == "" {
			log.Warn("static quote provider has no quote table; every symbol is unknown")
			provider = quote.NewStaticProvider()
			break
		}
		static, err := quote.LoadStaticProvider(qc.StaticFile)
		if err != nil {
			return nil, err
		}
		provider = static
	default:
		return nil, fmt.Errorf("unsupported quote provider %q", qc.Provider)
	}

	return quote.NewGuard(provider, qc.RatePerSecond, qc.Burst, qc.Timeout, log), nil
}

func resolveSecrets(ctx context.Context, pc *config.PostgresConfig) error {
	if pc.PasswordSSMParam == "" {
		return nil
	}
	reader, err := config.NewSSMReader(ctx)
	if err != nil {
		return err
	}
	return pc.ResolveSecrets(ctx, reader)
}
