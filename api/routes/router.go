package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/HuuNghia-2123110281/storefront-checkout/api/controllers"
	"github.com/HuuNghia-2123110281/storefront-checkout/api/middleware"
	checkoutsvc "github.com/HuuNghia-2123110281/storefront-checkout/internal/checkout"
	paymentsvc "github.com/HuuNghia-2123110281/storefront-checkout/internal/payment"
	"github.com/HuuNghia-2123110281/storefront-checkout/pkg/config"
	"github.com/HuuNghia-2123110281/storefront-checkout/pkg/logger"
	pkgredis "github.com/HuuNghia-2123110281/storefront-checkout/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	backendPinger controllers.Pinger,
	cachePinger controllers.Pinger,
	idempotencyStore pkgredis.IdempotencyStore,
	checkoutService *checkoutsvc.Service,
	paymentRegistry *paymentsvc.Registry,
	promRegistry *prometheus.Registry,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.ExtraCORSOrigins...),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, backendPinger, cachePinger))
	})

	if promRegistry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(
			middleware.BearerPassthrough(logg, true),
			middleware.Idempotency(idempotencyStore, cfg.Idempotency, logg),
		)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(checkoutService, logg))
			r.Delete("/", controllers.CartClear(checkoutService, logg))
			r.Post("/items", controllers.CartAddItem(checkoutService, logg))
			r.Put("/items/{lineID}", controllers.CartUpdateItem(checkoutService, logg))
			r.Delete("/items/{lineID}", controllers.CartRemoveItem(checkoutService, logg))
		})

		r.Post("/checkout", controllers.Checkout(checkoutService, logg))

		r.Route("/payment/sessions/{sessionID}", func(r chi.Router) {
			r.Get("/", controllers.PaymentSessionStatus(paymentRegistry, logg))
			r.Post("/check", controllers.PaymentSessionCheck(paymentRegistry, logg))
			r.Post("/confirm", controllers.PaymentSessionConfirm(paymentRegistry, logg))
			r.Delete("/", controllers.PaymentSessionCancel(paymentRegistry, logg))
		})
	})

	return r
}
