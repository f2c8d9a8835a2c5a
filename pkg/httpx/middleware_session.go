package httpx

import (
	"context"
	"net/http"

	"github.com/certtrack/certtrack/pkg/slogx"
)

// UnauthorizedMessage is the only body a rejected session ever sees.
const UnauthorizedMessage = "Not authorized"

// SessionResolver turns a raw cookie value into a principal and its user
// id. An empty token is passed through so the resolver owns the "missing"
// case too.
type SessionResolver[T any] func(ctx context.Context, token string) (T, string, error)

// SessionAuth reads the named cookie, resolves it and injects the principal
// into the request context. Errors for which rejected returns true become a
// 401 with a fixed body and the reason is only logged; any other error is a
// server failure.
func SessionAuth[T any](cookieName string, resolve SessionResolver[T], rejected func(error) bool) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			var raw string
			if c, err := r.Cookie(cookieName); err == nil {
				raw = c.Value
			}

			principal, userID, err := resolve(ctx, raw)
			if err != nil {
				if rejected != nil && !rejected(err) {
					log.Error("session resolve failed", "error", err)
					WriteError(w, http.StatusInternalServerError, "Server error")
					return
				}
				log.Warn("session rejected", "reason", err.Error())
				WriteError(w, http.StatusUnauthorized, UnauthorizedMessage)
				return
			}

			// Inject into context for downstream handlers.
			ctx = contextWithPrincipal(ctx, userID, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
