package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const (
	EnvPrefix = "storefront"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App         AppConfig
	Gateway     GatewayConfig
	CartSync    CartSyncConfig
	Checkout    CheckoutConfig
	Payment     PaymentConfig
	Redis       RedisConfig
	Idempotency IdempotencyConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Payment.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string `envconfig:"STOREFRONT_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`

	ExtraCORSOrigins []string `envconfig:"STOREFRONT_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// GatewayConfig points at the remote commerce backend.
type GatewayConfig struct {
	BaseURL     string        `envconfig:"STOREFRONT_GATEWAY_BASE_URL" required:"true"`
	CallTimeout time.Duration `envconfig:"STOREFRONT_GATEWAY_CALL_TIMEOUT" default:"10s"`
}

// CartSyncConfig bounds the poll-until-seen verification loop.
type CartSyncConfig struct {
	MaxAttempts int           `envconfig:"STOREFRONT_CARTSYNC_MAX_ATTEMPTS" default:"3"`
	BaseDelay   time.Duration `envconfig:"STOREFRONT_CARTSYNC_BASE_DELAY" default:"800ms"`
}

type CheckoutConfig struct {
	ShippingFeeVND int64 `envconfig:"STOREFRONT_CHECKOUT_SHIPPING_FEE" default:"30000"`
}

// ShippingFee returns the flat shipping fee as a decimal amount.
func (c CheckoutConfig) ShippingFee() decimal.Decimal {
	return decimal.NewFromInt(c.ShippingFeeVND)
}

// PaymentConfig drives the payment session timers. The window matches the
// QR validity period advertised by the backend.
type PaymentConfig struct {
	Window       time.Duration `envconfig:"STOREFRONT_PAYMENT_WINDOW" default:"600s"`
	PollInterval time.Duration `envconfig:"STOREFRONT_PAYMENT_POLL_INTERVAL" default:"3s"`
	ProbeTimeout time.Duration `envconfig:"STOREFRONT_PAYMENT_PROBE_TIMEOUT" default:"5s"`
}

func (p PaymentConfig) validate() error {
	if p.Window <= 0 {
		return fmt.Errorf("payment window must be positive, got %s", p.Window)
	}
	if p.PollInterval <= 0 {
		return fmt.Errorf("payment poll interval must be positive, got %s", p.PollInterval)
	}
	if p.PollInterval >= p.Window {
		return fmt.Errorf("poll interval %s must be shorter than the payment window %s", p.PollInterval, p.Window)
	}
	return nil
}

// RedisConfig is optional; when no URL or address is set the idempotency
// middleware is disabled.
type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a redis endpoint is configured.
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}

type IdempotencyConfig struct {
	TTL time.Duration `envconfig:"STOREFRONT_IDEMPOTENCY_TTL" default:"168h"`
}
