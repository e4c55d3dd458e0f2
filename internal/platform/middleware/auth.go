package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

// TokenValidator resolves a bearer API token to the user it belongs to.
type TokenValidator interface {
	ResolveToken(ctx context.Context, token string) (int64, error)
}

// AdminValidator authenticates superadmin credentials (HTTP basic) and admin
// access tokens (JWT bearer).
type AdminValidator interface {
	AuthenticateAdmin(ctx context.Context, username, password string) error
	ValidateAccessToken(tokenString string) (string, error)
}

type contextKeyUserID struct{}
type contextKeyAdmin struct{}

// WithUserID returns a context carrying the authenticated user ID.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, contextKeyUserID{}, userID)
}

// GetUserID retrieves the authenticated user ID from the context. Zero means
// no authenticated user.
func GetUserID(ctx context.Context) int64 {
	id, ok := ctx.Value(contextKeyUserID{}).(int64)
	if !ok {
		return 0
	}
	return id
}

// GetAdminUsername retrieves the authenticated superadmin username.
func GetAdminUsername(ctx context.Context) string {
	name, ok := ctx.Value(contextKeyAdmin{}).(string)
	if !ok {
		return ""
	}
	return name
}

func unauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}

// RequireToken guards the CFDI endpoints with bearer API token auth. The
// resolved user ID lands in the request context for history attribution.
func RequireToken(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", GetRequestID(ctx),
					"path", r.URL.Path,
				)
				unauthorized(w, "Could not validate credentials")
				return
			}

			userID, err := validator.ResolveToken(ctx, token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"request_id", GetRequestID(ctx),
					"error", err,
				)
				unauthorized(w, "Could not validate credentials")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(ctx, userID)))
		})
	}
}

// RequireAdmin guards the admin endpoints. Superadmins authenticate with HTTP
// basic credentials; the admin UI uses short-lived JWT bearer tokens issued by
// the login endpoint.
func RequireAdmin(validator AdminValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if username, password, ok := r.BasicAuth(); ok {
				if err := validator.AuthenticateAdmin(ctx, username, password); err != nil {
					logger.WarnContext(ctx, "admin basic auth rejected",
						"request_id", GetRequestID(ctx),
						"username", username,
					)
					unauthorized(w, "Invalid credentials")
					return
				}
				ctx = context.WithValue(ctx, contextKeyAdmin{}, username)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok && token != "" {
				username, err := validator.ValidateAccessToken(token)
				if err != nil {
					logger.WarnContext(ctx, "admin access token rejected",
						"request_id", GetRequestID(ctx),
						"error", err,
					)
					unauthorized(w, "Invalid or expired token")
					return
				}
				ctx = context.WithValue(ctx, contextKeyAdmin{}, username)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			unauthorized(w, "Not authenticated")
		})
	}
}
