package controllers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/multierr"

	"github.com/HuuNghia-2123110281/storefront-checkout/api/responses"
	"github.com/HuuNghia-2123110281/storefront-checkout/pkg/config"
	pkgerrors "github.com/HuuNghia-2123110281/storefront-checkout/pkg/errors"
	"github.com/HuuNghia-2123110281/storefront-checkout/pkg/logger"
)

const readinessTimeout = 5 * time.Second

const envHeader = "X-Storefront-Env"

// Pinger is anything the readiness probe can ask for a heartbeat.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady probes the commerce backend and, when configured, redis.
// Probe failures are combined so a single check reports everything down.
func HealthReady(cfg *config.Config, logg *logger.Logger, backend, cache Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		var errs []error
		if backend != nil {
			if err := backend.Ping(ctx); err != nil {
				errs = append(errs, fmt.Errorf("commerce backend: %w", err))
			}
		}
		if cache != nil {
			if err := cache.Ping(ctx); err != nil {
				errs = append(errs, fmt.Errorf("redis: %w", err))
			}
		}

		if combined := multierr.Combine(errs...); combined != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeTransport, combined, "dependencies not ready"))
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
