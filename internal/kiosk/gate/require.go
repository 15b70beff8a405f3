package gate

import (
	"net/http"

	"github.com/storelink/kioskd/internal/kiosk/domain"
	"github.com/storelink/kioskd/pkg/httpx"
)

// RequireAccount rejects requests that did not pass the account gate.
func RequireAccount() httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := AccountFromContext(r.Context()); !ok {
				writeBearerError(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole rejects requests whose account principal does not hold one of
// the listed roles. It implies RequireAccount.
func RequireRole(roles ...domain.AccountRole) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := AccountFromContext(r.Context())
			if !ok {
				writeBearerError(w)
				return
			}
			for _, role := range roles {
				if principal.Account.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			httpx.WriteError(w, http.StatusForbidden, "forbidden", "insufficient role")
		})
	}
}

// RequireDevice rejects requests that did not pass the device gate.
func RequireDevice() httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := DeviceFromContext(r.Context()); !ok {
				writeBearerError(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RFC 6750 style challenge for missing or rejected credentials.
func writeBearerError(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
	httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "valid credentials required")
}
