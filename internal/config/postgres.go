package config

import (
	"context"
	"fmt"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// PostgresConfig defines the configuration for connecting to a PostgreSQL database.
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	TimeZone string `mapstructure:"timezone"`

	// PasswordSSMParam names an SSM parameter holding the password in prod.
	PasswordSSMParam string `mapstructure:"password_ssm_param"`

	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN renders a lib/pq keyword/value connection string.
func (cfg *PostgresConfig) DSN() string {
	return cfg.dsnFor(cfg.DBName)
}

// MaintenanceDSN points at the server's default database, used to create ours.
func (cfg *PostgresConfig) MaintenanceDSN() string {
	return cfg.dsnFor("postgres")
}

func (cfg *PostgresConfig) dsnFor(dbname string) string {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, dbname, cfg.SSLMode,
	)

	if cfg.TimeZone != "" {
		dsn += fmt.Sprintf(" TimeZone=%s", cfg.TimeZone)
	}

	return dsn
}

// ParameterReader fetches a single parameter value. It is satisfied by an
// SSM-backed reader in production and by fakes in tests.
type ParameterReader interface {
	GetParameter(ctx context.Context, name string, decrypt bool) (string, error)
}

// ResolveSecrets fills the Postgres password from the parameter store when
// PasswordSSMParam is configured.
func (cfg *PostgresConfig) ResolveSecrets(ctx context.Context, reader ParameterReader) error {
	if cfg.PasswordSSMParam == "" {
		return nil
	}

	password, err := reader.GetParameter(ctx, cfg.PasswordSSMParam, true)
	if err != nil {
		return fmt.Errorf("failed to resolve postgres password: %w", err)
	}
	cfg.Password = password
	return nil
}

// SSMReader reads parameters from AWS Systems Manager Parameter Store.
type SSMReader struct {
	client *ssm.Client
}

// NewSSMReader loads the default AWS credential chain.
func NewSSMReader(ctx context.Context) (*SSMReader, error) {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cfg, err := awsconfig.LoadDefaultConfig(ctxWithTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	return &SSMReader{client: ssm.NewFromConfig(cfg)}, nil
}

func (r *SSMReader) GetParameter(ctx context.Context, name string, decrypt bool) (string, error) {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	result, err := r.client.GetParameter(ctxWithTimeout, &ssm.GetParameterInput{
		Name:           &name,
		WithDecryption: &decrypt,
	})
	if err != nil {
		return "", fmt.Errorf("get parameter %s: %w", name, err)
	}

	if result.Parameter == nil || result.Parameter.Value == nil {
		return "", fmt.Errorf("parameter %s has no value", name)
	}

	return *result.Parameter.Value, nil
}
