package middleware

import (
	"net/http"
	"strings"

	"github.com/HuuNghia-2123110281/storefront-checkout/api/responses"
	"github.com/HuuNghia-2123110281/storefront-checkout/internal/gateway"
	pkgerrors "github.com/HuuNghia-2123110281/storefront-checkout/pkg/errors"
	"github.com/HuuNghia-2123110281/storefront-checkout/pkg/logger"
)

// BearerPassthrough lifts the caller's bearer token off the Authorization
// header and onto the context so the gateway can forward it. The token is
// never validated or stored here; the commerce backend owns authentication
// and answers 401 itself.
func BearerPassthrough(logg *logger.Logger, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r.Header.Get("Authorization"))
			if token == "" {
				if required {
					responses.WriteError(r.Context(), logg, w,
						pkgerrors.New(pkgerrors.CodeUnauthorized, "bearer token required"))
					return
				}
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(gateway.WithToken(r.Context(), token)))
		})
	}
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
