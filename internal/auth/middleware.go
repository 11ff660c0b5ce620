package auth

import (
	"context"
	"net/http"
	"strings"
)

// contextKey is an unexported type for context keys in this package.
// A package-private key type means no other package can read or shadow the
// identity value we store in the request context.
type contextKey string

const identityKey contextKey = "identity"

// TokenCookie is the name of the HttpOnly cookie carrying the JWT for
// browser flows (set after OAuth login, cleared on logout).
const TokenCookie = "token"

// RequireAuth enforces authentication on protected routes.
//
// The token is looked for in two places, in order:
//  1. "Authorization: Bearer <jwt>" header — what the SPA sends on API calls
//  2. the HttpOnly TokenCookie — set by the OAuth callback, survives reloads
//
// On success the owner identity (the token's subject, an email) lands in the
// request context; on failure the chain stops with 401.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := extractIdentity(r, tokens)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				http.Error(w, `{"error":"unauthorized","message":"valid authentication required"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext retrieves the authenticated owner identity from the
// request context. Returns ("", false) for anonymous requests.
func IdentityFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(identityKey).(string)
	return id, ok && id != ""
}

// extractIdentity reads and validates the JWT from the header or the cookie.
func extractIdentity(r *http.Request, tokens *TokenService) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		if raw, ok := strings.CutPrefix(header, "Bearer "); ok {
			return tokens.Validate(raw)
		}
	}

	cookie, err := r.Cookie(TokenCookie)
	if err != nil {
		return "", err
	}
	return tokens.Validate(cookie.Value)
}
