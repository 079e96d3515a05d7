package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aiox-platform/mentionbot/internal/api"
)

type contextKey string

const OperatorClaimsKey contextKey = "operator_claims"

// Middleware rejects requests without a valid operator bearer token.
func Middleware(tm *TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				api.HandleError(w, api.ErrUnauthorized)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				api.HandleError(w, api.ErrUnauthorized)
				return
			}

			claims, err := tm.Validate(parts[1])
			if err != nil {
				slog.Debug("auth: rejected operator token", "error", err)
				api.HandleError(w, api.ErrInvalidToken)
				return
			}

			ctx := context.WithValue(r.Context(), OperatorClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetOperatorClaims(ctx context.Context) *OperatorClaims {
	claims, _ := ctx.Value(OperatorClaimsKey).(*OperatorClaims)
	return claims
}
