package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "development"
	AppEnvProd = "production"
)

type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Paystack PaystackConfig
	Checkout CheckoutConfig
	Flags    FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if _, err := cfg.Checkout.TaxRateDecimal(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env      string `envconfig:"AVENUE_APP_ENV" default:"development"`
	Port     string `envconfig:"AVENUE_APP_PORT" default:"8080"`
	LogLevel string `envconfig:"AVENUE_LOG_LEVEL" default:"info"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"AVENUE_DB_DSN"`

	Host     string `envconfig:"AVENUE_DB_HOST"`
	Port     int    `envconfig:"AVENUE_DB_PORT" default:"5432"`
	User     string `envconfig:"AVENUE_DB_USER"`
	Password string `envconfig:"AVENUE_DB_PASSWORD"`
	Name     string `envconfig:"AVENUE_DB_NAME"`
	SSLMode  string `envconfig:"AVENUE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"AVENUE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"AVENUE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"AVENUE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"AVENUE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if d.Host == "" || d.User == "" || d.Name == "" {
		return fmt.Errorf("either AVENUE_DB_DSN or AVENUE_DB_HOST/USER/NAME must be set")
	}
	userInfo := url.User(d.User)
	if d.Password != "" {
		userInfo = url.UserPassword(d.User, d.Password)
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     userInfo,
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     d.Name,
		RawQuery: url.Values{"sslmode": []string{d.SSLMode}}.Encode(),
	}
	d.DSN = u.String()
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"AVENUE_REDIS_URL" required:"true"`
	PoolSize     int           `envconfig:"AVENUE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"AVENUE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"AVENUE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"AVENUE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"AVENUE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig describes the tokens minted by the external identity provider.
// The API only verifies; it never issues tokens.
type JWTConfig struct {
	Secret string `envconfig:"AVENUE_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"AVENUE_JWT_ISSUER" required:"true"`
}

type PaystackConfig struct {
	SecretKey      string        `envconfig:"AVENUE_PAYSTACK_SECRET_KEY" required:"true"`
	BaseURL        string        `envconfig:"AVENUE_PAYSTACK_BASE_URL" default:"https://api.paystack.co"`
	WebhookTimeout time.Duration `envconfig:"AVENUE_PAYSTACK_WEBHOOK_TIMEOUT" default:"10s"`
	IdempotencyTTL time.Duration `envconfig:"AVENUE_PAYSTACK_IDEMPOTENCY_TTL" default:"720h"`
}

// CheckoutConfig hoists the pricing constants that were previously scattered
// across the storefront components.
type CheckoutConfig struct {
	TaxRate         string        `envconfig:"AVENUE_CHECKOUT_TAX_RATE" default:"0.16"`
	Currency        string        `envconfig:"AVENUE_CHECKOUT_CURRENCY" default:"KES"`
	OrderIDPrefix   string        `envconfig:"AVENUE_CHECKOUT_ORDER_ID_PREFIX" default:"AF"`
	PollMaxAttempts int           `envconfig:"AVENUE_CHECKOUT_POLL_MAX_ATTEMPTS" default:"15"`
	PollInterval    time.Duration `envconfig:"AVENUE_CHECKOUT_POLL_INTERVAL" default:"2s"`
}

// TaxRateDecimal parses the configured tax rate.
func (c CheckoutConfig) TaxRateDecimal() (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(strings.TrimSpace(c.TaxRate))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid tax rate %q: %w", c.TaxRate, err)
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.Zero, fmt.Errorf("tax rate %q out of range [0,1]", c.TaxRate)
	}
	return rate, nil
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"AVENUE_AUTO_MIGRATE" default:"false"`
}
