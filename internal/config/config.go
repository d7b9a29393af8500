package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. PAPERTRADE_STORE_DRIVER.
const EnvPrefix = "PAPERTRADE"

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Store    StoreConfig    `mapstructure:"store"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Quotes   QuotesConfig   `mapstructure:"quotes"`
	Accounts AccountsConfig `mapstructure:"accounts"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
}

type ServerConfig struct {
	GRPCAddr string `mapstructure:"grpc_addr"`
	APIToken string `mapstructure:"api_token"`
}

// LogConfig defines the logger configuration options.
type LogConfig struct {
	Level       string `mapstructure:"level"`       // log level: "debug", "info", "warn", "error"
	Format      string `mapstructure:"format"`      // log format: "json" or "console"
	OutputFile  string `mapstructure:"output_file"` // file path to store logs (optional)
	Environment string `mapstructure:"environment"` // environment: "dev" or "prod"
}

// StoreConfig selects the ledger backend and its conflict policy.
type StoreConfig struct {
	Driver         string        `mapstructure:"driver"` // "postgres" or "sqlite"
	SQLitePath     string        `mapstructure:"sqlite_path"`
	LockTimeout    time.Duration `mapstructure:"lock_timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay"`
}

type QuotesConfig struct {
	Provider      string        `mapstructure:"provider"` // "alpaca", "iex" or "static"
	Timeout       time.Duration `mapstructure:"timeout"`
	RatePerSecond float64       `mapstructure:"rate_per_second"`
	Burst         int           `mapstructure:"burst"`
	Alpaca        AlpacaConfig  `mapstructure:"alpaca"`
	IEX           IEXConfig     `mapstructure:"iex"`
	StaticFile    string        `mapstructure:"static_file"`
}

type AlpacaConfig struct {
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
	BaseURL   string `mapstructure:"base_url"`
	DataURL   string `mapstructure:"data_url"`
	Feed      string `mapstructure:"feed"`
}

type IEXConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Token   string `mapstructure:"token"`
}

type AccountsConfig struct {
	InitialCash string `mapstructure:"initial_cash"`
	BcryptCost  int    `mapstructure:"bcrypt_cost"`
}

// KafkaConfig enables the trade event feed when Brokers is set.
type KafkaConfig struct {
	Brokers         string        `mapstructure:"brokers"`
	Topic           string        `mapstructure:"topic"`
	DeliveryTimeout time.Duration `mapstructure:"delivery_timeout"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.grpc_addr", ":8080")
	v.SetDefault("server.api_token", "dev-token")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.environment", "dev")

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "papertrade.db")
	v.SetDefault("store.lock_timeout", 2*time.Second)
	v.SetDefault("store.max_retries", 3)
	v.SetDefault("store.retry_base_delay", 25*time.Millisecond)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.dbname", "papertrade")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.max_open_conns", 10)
	v.SetDefault("postgres.max_idle_conns", 5)
	v.SetDefault("postgres.conn_max_lifetime", 30*time.Minute)

	v.SetDefault("quotes.provider", "static")
	v.SetDefault("quotes.timeout", 5*time.Second)
	v.SetDefault("quotes.rate_per_second", 5.0)
	v.SetDefault("quotes.burst", 5)
	v.SetDefault("quotes.alpaca.feed", "iex")
	v.SetDefault("quotes.iex.base_url", "https://cloud.iexapis.com/stable")

	v.SetDefault("accounts.initial_cash", "10000.00")
	v.SetDefault("accounts.bcrypt_cost", 10)

	v.SetDefault("kafka.topic", "papertrade.trades")
	v.SetDefault("kafka.delivery_timeout", 5*time.Second)
}

// Load reads configuration from the YAML file at path (optional) and
// overrides it with PAPERTRADE_* environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// Support environment variables with dot notation (e.g., PAPERTRADE_STORE_DRIVER)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects settings the application cannot start with.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported store driver %q", c.Store.Driver)
	}

	switch c.Quotes.Provider {
	case "alpaca", "iex", "static":
	default:
		return fmt.Errorf("unsupported quote provider %q", c.Quotes.Provider)
	}

	if c.Store.MaxRetries < 0 {
		return errors.New("store.max_retries cannot be negative")
	}

	if _, err := c.Accounts.Cash(); err != nil {
		return err
	}

	return nil
}

// Cash parses the configured starting balance.
func (c AccountsConfig) Cash() (decimal.Decimal, error) {
	cash, err := decimal.NewFromString(c.InitialCash)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid accounts.initial_cash %q: %w", c.InitialCash, err)
	}
	if cash.IsNegative() {
		return decimal.Zero, errors.New("accounts.initial_cash cannot be negative")
	}
	return cash, nil
}
