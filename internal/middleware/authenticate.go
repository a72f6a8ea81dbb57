package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"portal-booking/internal/auth"
	"portal-booking/internal/transport"
)

type claimsKey struct{}
type tokenKey struct{}

// Authenticate accepts anonymous requests. A bearer token, when present, must
// be valid; its claims and raw value are stored in the request context.
func Authenticate(manager *auth.Manager, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.BearerToken(r.Header.Get("Authorization"))
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), tokenKey{}, token)
			if manager != nil {
				claims, err := manager.Parse(token)
				if err != nil {
					log.Warn("authenticate: invalid token", slog.String("error", err.Error()))
					transport.WriteError(w, http.StatusUnauthorized, "invalid token", nil)
					return
				}
				ctx = context.WithValue(ctx, claimsKey{}, claims)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func ClaimsFromContext(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey{}).(*auth.Claims)
	return claims
}

func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}
