package handlers

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"readquest/internal/logger"
	"readquest/internal/security"
	"readquest/internal/service"
)

// Middleware holds dependencies for middleware functions
type Middleware struct {
	tokens     *security.TokenVerifier
	serviceKey *security.ServiceKeyVerifier
	roles      *service.RoleService
	limiter    *security.RateLimiter
	proxies    security.TrustedProxies
}

// NewMiddleware creates a new middleware instance. A nil limiter disables
// rate limiting; forwarding headers are ignored unless the peer is in proxies.
func NewMiddleware(tokens *security.TokenVerifier, serviceKey *security.ServiceKeyVerifier, roles *service.RoleService, limiter *security.RateLimiter, proxies security.TrustedProxies) *Middleware {
	return &Middleware{
		tokens:     tokens,
		serviceKey: serviceKey,
		roles:      roles,
		limiter:    limiter,
		proxies:    proxies,
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(p []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(p)
	r.bytes += n
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer, which the
// websocket upgrade needs for Hijack.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// RequestLogger logs one line per request
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(recorder, r)
		if recorder.status == 0 {
			recorder.status = http.StatusOK
		}
		logger.Info("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", recorder.status,
			"bytes", recorder.bytes,
			"duration", time.Since(start),
		)
	})
}

// OptionalAuth attaches the caller's identity when a bearer token is present.
// A token that fails verification is rejected rather than treated as anonymous.
func (m *Middleware) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}
		id, err := m.authenticate(header)
		if err != nil {
			WriteError(w, http.StatusUnauthorized, CodeUnauthorized, "Authentication failed")
			return
		}
		next.ServeHTTP(w, r.WithContext(security.WithIdentity(r.Context(), id)))
	})
}

func (m *Middleware) authenticate(header string) (*security.Identity, error) {
	token, err := security.BearerToken(header)
	if err != nil {
		return nil, err
	}
	return m.tokens.Verify(token)
}

// RequireAuth rejects anonymous callers. It expects OptionalAuth to run first.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if security.IdentityFrom(r.Context()) == nil {
			WriteError(w, http.StatusUnauthorized, CodeUnauthorized, "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// isAdmin accepts either an admin claim on the token or a user_roles row
func (m *Middleware) isAdmin(ctx context.Context, id *security.Identity) (bool, error) {
	if id == nil {
		return false, nil
	}
	if id.IsAdmin() {
		return true, nil
	}
	if m.roles == nil {
		return false, nil
	}
	return m.roles.IsAdmin(ctx, id.UserID)
}

// RequireAdmin allows admins only
func (m *Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := security.IdentityFrom(r.Context())
		if id == nil {
			WriteError(w, http.StatusUnauthorized, CodeUnauthorized, "Authentication required")
			return
		}
		ok, err := m.isAdmin(r.Context(), id)
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		if !ok {
			WriteError(w, http.StatusForbidden, CodeForbidden, "Not allowed")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ServiceKeyOrAdmin lets batch jobs in with X-Service-Key and otherwise
// falls back to the admin check.
func (m *Middleware) ServiceKeyOrAdmin(next http.Handler) http.Handler {
	admin := m.RequireAdmin(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(security.ServiceKeyHeader)
		if key == "" {
			admin.ServeHTTP(w, r)
			return
		}
		if m.serviceKey == nil || !m.serviceKey.Verify(key) {
			WriteError(w, http.StatusUnauthorized, CodeUnauthorized, "Invalid service key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RateLimit enforces the named endpoint's quota per client IP. Store
// failures let the request through.
func (m *Middleware) RateLimit(endpoint string) func(http.Handler) http.Handler {
	limit, ok := security.Limits[endpoint]
	if !ok {
		panic("handlers: no rate limit configured for " + endpoint)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			ip := security.GetClientIP(r, m.proxies)
			decision, err := m.limiter.Allow(r.Context(), ip, endpoint, limit)
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					logger.Warn("Rate limit check failed, allowing request", "endpoint", endpoint, "error", err)
				}
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit.Requests))
			if !decision.Allowed {
				retry := int(math.Ceil(decision.RetryAfter.Seconds()))
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				w.Header().Set("X-RateLimit-Remaining", "0")
				logger.Info("Rate limit exceeded", "endpoint", endpoint, "client_ip", ip)
				WriteError(w, http.StatusTooManyRequests, CodeRateLimited, "Too many requests, try again later")
				return
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
			next.ServeHTTP(w, r)
		})
	}
}
