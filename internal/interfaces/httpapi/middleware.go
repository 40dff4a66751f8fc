package httpapi

import (
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fplhq/minileague/internal/domain/session"
	"github.com/fplhq/minileague/internal/platform/logging"
	"github.com/fplhq/minileague/internal/usecase"
)

const (
	accessCookieName  = "ml_access"
	refreshCookieName = "ml_refresh"
)

// CookieConfig controls the session cookies issued by the API.
type CookieConfig struct {
	Domain string
	Secure bool
	MaxAge time.Duration
}

func (c CookieConfig) maxAgeSeconds() int {
	if c.MaxAge <= 0 {
		return int((90 * 24 * time.Hour).Seconds())
	}
	return int(c.MaxAge.Seconds())
}

func (c CookieConfig) build(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   c.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func setSessionCookies(w http.ResponseWriter, cfg CookieConfig, tokens session.Tokens) {
	maxAge := cfg.maxAgeSeconds()
	http.SetCookie(w, cfg.build(accessCookieName, tokens.AccessToken, maxAge))
	http.SetCookie(w, cfg.build(refreshCookieName, tokens.RefreshToken, maxAge))
}

func clearSessionCookies(w http.ResponseWriter, cfg CookieConfig) {
	http.SetCookie(w, cfg.build(accessCookieName, "", -1))
	http.SetCookie(w, cfg.build(refreshCookieName, "", -1))
}

func cookieValue(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// WithSession resolves the caller's session from cookies on every request.
// A refresh rotates both cookies in the response; an invalid refresh token
// clears them so the browser stops replaying it.
func WithSession(sessions *usecase.SessionService, cfg CookieConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res := sessions.Resolve(r.Context(), cookieValue(r, accessCookieName), cookieValue(r, refreshCookieName))
			switch {
			case res.Rotated:
				setSessionCookies(w, cfg, res.Tokens)
			case res.State == session.StateRefreshInvalid:
				clearSessionCookies(w, cfg)
			}
			next.ServeHTTP(w, r.WithContext(withSession(r.Context(), res)))
		})
	}
}

// RequireSession rejects requests without an authenticated session.
func RequireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, ok := sessionFromContext(r.Context())
		if !ok || !res.Authenticated() {
			writeError(r.Context(), w, usecase.ErrUnauthorized)
			return
		}
		next(w, r)
	}
}

// RequireInternalJobToken guards internal job endpoints with a shared token.
func RequireInternalJobToken(expectedToken string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if expectedToken == "" {
			writeError(r.Context(), w, usecase.ErrUnauthorized)
			return
		}
		token := strings.TrimSpace(r.Header.Get("X-Internal-Job-Token"))
		if token == "" || token != expectedToken {
			writeError(r.Context(), w, usecase.ErrUnauthorized)
			return
		}
		next(w, r)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// RequestLogging logs one line per request with method, path, status and
// duration. Health probes are skipped.
func RequestLogging(logger *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !shouldTraceRequest(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)
			logger.InfoContext(r.Context(), "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", recorder.status,
				"client_ip", resolveClientIP(r),
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

func shouldTraceRequest(path string) bool {
	switch strings.TrimSpace(path) {
	case "/healthz", "/health", "/livez", "/readyz":
		return false
	}
	return true
}

// RequestTracing wraps the mux with otelhttp server spans. Health checks are
// filtered out to keep the trace backend quiet.
func RequestTracing(next http.Handler) http.Handler {
	return otelhttp.NewHandler(next, "httpapi",
		otelhttp.WithFilter(func(r *http.Request) bool {
			return shouldTraceRequest(r.URL.Path)
		}),
	)
}

// CORS handles cross-origin requests for the dashboard frontend. An empty
// allowlist disables CORS entirely; "*" reflects any origin.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	allowAll := false
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		origin = strings.TrimSpace(origin)
		if origin == "*" {
			allowAll = true
			continue
		}
		if origin != "" {
			allowed[origin] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" {
				_, ok := allowed[origin]
				if allowAll || ok {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Credentials", "true")
					w.Header().Set("Vary", "Origin")
					w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
					w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Internal-Job-Token")
				}
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
