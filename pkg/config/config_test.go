package config

import (
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestLoad_Success(t *testing.T) {
	setMinimalEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.App.Env != "prod" {
		t.Fatalf("expected App.Env to be prod, got %q", cfg.App.Env)
	}
	if !cfg.App.IsProd() {
		t.Fatal("expected IsProd to be true")
	}
	if cfg.Gateway.BaseURL != "https://commerce.example.com/api" {
		t.Fatalf("unexpected gateway base url %q", cfg.Gateway.BaseURL)
	}
	if cfg.CartSync.MaxAttempts != 3 {
		t.Fatalf("expected default max attempts 3, got %d", cfg.CartSync.MaxAttempts)
	}
	if cfg.CartSync.BaseDelay != 800*time.Millisecond {
		t.Fatalf("expected default base delay 800ms, got %v", cfg.CartSync.BaseDelay)
	}
	if cfg.Payment.Window != 600*time.Second {
		t.Fatalf("expected default payment window 600s, got %v", cfg.Payment.Window)
	}
	if !cfg.Checkout.ShippingFee().Equal(decimal.NewFromInt(30000)) {
		t.Fatalf("expected default shipping fee 30000, got %s", cfg.Checkout.ShippingFee())
	}
	if cfg.Redis.Enabled() {
		t.Fatal("redis should be disabled without URL or address")
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	setMinimalEnv(t)
	if err := os.Unsetenv("STOREFRONT_GATEWAY_BASE_URL"); err != nil {
		t.Fatalf("failed to unset gateway base url: %v", err)
	}

	if _, err := Load(); err == nil {
		t.Fatal("expected missing required env to return an error")
	}
}

func TestLoad_RejectsPollIntervalBeyondWindow(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv("STOREFRONT_PAYMENT_WINDOW", "5s")
	t.Setenv("STOREFRONT_PAYMENT_POLL_INTERVAL", "10s")

	if _, err := Load(); err == nil {
		t.Fatal("expected poll interval longer than the window to fail validation")
	}
}

func setMinimalEnv(t *testing.T) {
	t.Helper()

	t.Setenv("STOREFRONT_APP_ENV", "prod")
	t.Setenv("STOREFRONT_APP_PORT", "8081")
	t.Setenv("STOREFRONT_GATEWAY_BASE_URL", "https://commerce.example.com/api")
	t.Setenv("STOREFRONT_REDIS_URL", "")
	t.Setenv("STOREFRONT_REDIS_ADDR", "")
}
