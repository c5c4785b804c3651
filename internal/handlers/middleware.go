package handlers

import (
	"context"
	"net/http"
	"net/netip"
	"time"

	"github.com/sirupsen/logrus"

	"intan/internal/security"
	"intan/internal/service"
)

type contextKey string

const sessionContextKey contextKey = "session"

// requestSession is the per-request view of the session cookie
type requestSession struct {
	session   *service.Session
	tokenID   string
	expiresAt time.Time
}

// Middleware holds dependencies for middleware functions
type Middleware struct {
	tokens         *security.TokenManager
	csrf           *security.CSRFGenerator
	limiter        *security.RateLimiter
	trustedProxies []netip.Prefix
	logger         logrus.FieldLogger
}

// NewMiddleware creates a new middleware instance. Forwarding headers are
// only honored for requests arriving from trustedProxies.
func NewMiddleware(tokens *security.TokenManager, csrf *security.CSRFGenerator, limiter *security.RateLimiter, trustedProxies []netip.Prefix, logger logrus.FieldLogger) *Middleware {
	return &Middleware{
		tokens:         tokens,
		csrf:           csrf,
		limiter:        limiter,
		trustedProxies: trustedProxies,
		logger:         logger,
	}
}

// WithSession builds a transport-scoped session from the session cookie.
// A missing or invalid cookie yields a logged-out session; an invalid one is also cleared.
func (m *Middleware) WithSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rs := &requestSession{session: service.NewSession("")}

		if cookie, err := r.Cookie(security.SessionCookieName); err == nil && cookie.Value != "" {
			claims, err := m.tokens.Parse(cookie.Value)
			if err != nil {
				m.logger.WithError(err).Debug("Discarding invalid session cookie")
				http.SetCookie(w, security.CreateDeleteCookie(r))
			} else {
				rs = &requestSession{
					session:   service.NewSession(claims.Subject),
					tokenID:   claims.ID,
					expiresAt: claims.ExpiresAt.Time,
				}
			}
		}

		ctx := context.WithValue(r.Context(), sessionContextKey, rs)
		next(w, r.WithContext(ctx))
	}
}

// RequireUser rejects requests without a logged-in session
func (m *Middleware) RequireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !sessionFromContext(r.Context()).session.IsLoggedIn() {
			respondJSON(w, http.StatusUnauthorized, errorResponse{Error: ErrUnauthorized})
			return
		}
		next(w, r)
	}
}

// CSRFProtect requires a valid X-CSRF-Token header on state-changing requests from a logged-in session
func (m *Middleware) CSRFProtect(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next(w, r)
			return
		}

		rs := sessionFromContext(r.Context())
		if rs.session.IsLoggedIn() && !m.csrf.ValidateToken(rs.tokenID, r.Header.Get(security.CSRFHeaderName)) {
			respondJSON(w, http.StatusForbidden, errorResponse{Error: ErrForbiddenCSRF})
			return
		}
		next(w, r)
	}
}

// RateLimit limits requests per client IP
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := security.ClientIP(r, m.trustedProxies)
		if !m.limiter.Allow(ip) {
			m.logger.WithField("ip", ip).Warn("Rate limit exceeded")
			w.Header().Set("Retry-After", "60")
			respondJSON(w, http.StatusTooManyRequests, errorResponse{Error: ErrTooManyRequests})
			return
		}
		next(w, r)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Logging middleware logs HTTP requests
func Logging(logger logrus.FieldLogger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		entry := logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start),
		})
		if rec.status >= http.StatusInternalServerError {
			entry.Error("request completed")
		} else {
			entry.Info("request completed")
		}
	})
}

func sessionFromContext(ctx context.Context) *requestSession {
	rs, ok := ctx.Value(sessionContextKey).(*requestSession)
	if !ok {
		return &requestSession{session: service.NewSession("")}
	}
	return rs
}
