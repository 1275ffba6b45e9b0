package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/devlens/devlens/internal/adapter/auth"
)

type contextKey string

const (
	tenantKey  contextKey = "tenant"
	sessionKey contextKey = "session"
)

// CorrelationIDHeader carries the request correlation ID end to end.
const CorrelationIDHeader = "X-Correlation-ID"

// TenantFrom returns the authenticated tenant, or "".
func TenantFrom(ctx context.Context) string {
	tenant, _ := ctx.Value(tenantKey).(string)
	return tenant
}

// SessionFrom returns the session claims when the caller authenticated with
// a session token rather than an API key.
func SessionFrom(ctx context.Context) *auth.SessionClaims {
	claims, _ := ctx.Value(sessionKey).(*auth.SessionClaims)
	return claims
}

// correlationMiddleware ensures every request/response carries a
// correlation ID.
func correlationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cid := r.Header.Get(CorrelationIDHeader)
		if cid == "" {
			cid = uuid.NewString()
		}
		w.Header().Set(CorrelationIDHeader, cid)
		next.ServeHTTP(w, r)
	})
}

func loggingMiddleware(logger *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.WithFields(logrus.Fields{
				"method":         r.Method,
				"path":           r.URL.Path,
				"remote":         r.RemoteAddr,
				"duration":       time.Since(start).String(),
				"correlation_id": w.Header().Get(CorrelationIDHeader),
			}).Info("request completed")
		})
	}
}

func recoveryMiddleware(logger *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.WithFields(logrus.Fields{
						"path":  r.URL.Path,
						"panic": err,
					}).Error("panic recovered")
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func corsMiddleware(origins []string) func(http.Handler) http.Handler {
	allowed := strings.Join(origins, ", ")
	if allowed == "" {
		allowed = "*"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", allowed)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// TenantAuth authenticates report callers: a Bearer session token or a
// service API key, either of which binds the request to one tenant.
type TenantAuth struct {
	jwt     *auth.JWTService
	apiKeys *auth.APIKeyStore
}

// NewTenantAuth creates the authentication middleware.
func NewTenantAuth(jwt *auth.JWTService, apiKeys *auth.APIKeyStore) *TenantAuth {
	return &TenantAuth{jwt: jwt, apiKeys: apiKeys}
}

// Middleware rejects requests that carry neither a valid session token nor
// a valid API key.
func (a *TenantAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if header := r.Header.Get("Authorization"); header != "" {
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
				writeUnauthorized(w, "invalid authorization header format")
				return
			}
			claims, err := a.jwt.ValidateToken(parts[1])
			if err != nil {
				writeUnauthorized(w, "invalid or expired token")
				return
			}
			ctx := context.WithValue(r.Context(), tenantKey, claims.Tenant)
			ctx = context.WithValue(ctx, sessionKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		if key := r.Header.Get("X-API-Key"); key != "" {
			tenant, err := a.apiKeys.Verify(r.Context(), key)
			if err != nil {
				writeUnauthorized(w, "invalid API key")
				return
			}
			ctx := context.WithValue(r.Context(), tenantKey, tenant)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		writeUnauthorized(w, "authorization required")
	})
}
