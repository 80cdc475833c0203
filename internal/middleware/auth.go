package middleware

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/scanbill/internal/auth"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// AdminKey is the context key marking a request as admin-authorized.
	AdminKey contextKey = "admin"
	// TokenKey is the context key for the validated bearer token.
	TokenKey contextKey = "token"
)

// IsAdmin reports whether the request carried a valid admin token.
func IsAdmin(ctx context.Context) bool {
	ok, _ := ctx.Value(AdminKey).(bool)
	return ok
}

// GetToken returns the validated bearer token, or "" if none.
func GetToken(ctx context.Context) string {
	token, _ := ctx.Value(TokenKey).(string)
	return token
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", auth.ErrMissingToken
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", auth.ErrInvalidToken
	}
	return parts[1], nil
}

func authorize(ctx context.Context, tokens *auth.TokenManager, header string) (context.Context, error) {
	tokenString, err := BearerToken(header)
	if err != nil {
		return ctx, err
	}
	if _, err := tokens.Validate(tokenString); err != nil {
		return ctx, err
	}
	ctx = context.WithValue(ctx, AdminKey, true)
	ctx = context.WithValue(ctx, TokenKey, tokenString)
	return ctx, nil
}

// RequireAdmin returns an interceptor that validates the admin bearer token
// on every procedure except those listed in public.
func RequireAdmin(tokens *auth.TokenManager, public ...string) connect.UnaryInterceptorFunc {
	open := make(map[string]bool, len(public))
	for _, p := range public {
		open[p] = true
	}

	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if open[req.Spec().Procedure] {
				return next(ctx, req)
			}

			ctx, err := authorize(ctx, tokens, req.Header().Get("Authorization"))
			if err != nil {
				return nil, connect.NewError(connect.CodeUnauthenticated, err)
			}
			return next(ctx, req)
		}
	}
}

// RequireAdminHTTP is RequireAdmin for plain HTTP handlers such as downloads.
func RequireAdminHTTP(tokens *auth.TokenManager, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, err := authorize(r.Context(), tokens, r.Header.Get("Authorization"))
		if err != nil {
			w.Header().Set("WWW-Authenticate", "Bearer")
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
