package middlewares

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth"

	"github.com/Joss220r/competencia-Desarrollo/httpx"
	"github.com/Joss220r/competencia-Desarrollo/log"
	"github.com/Joss220r/competencia-Desarrollo/metrics"
)

// DiagRole is the role a bearer token must carry to reach diagnostic endpoints.
const DiagRole = "diagnostico"

// CORS answers preflight requests and tags every response for origin.
func CORS(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := w.Header()
			header.Set("Access-Control-Allow-Origin", origin)
			if origin != "*" {
				header.Add("Vary", "Origin")
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				header.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
				header.Set("Access-Control-Max-Age", "600")
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Logger logs one line per request once it has been served.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := httpx.NewResponseRecorder(w)

		next.ServeHTTP(rec, r)

		entry := log.WithFields(log.Fields{
			"request_id": middleware.GetReqID(r.Context()),
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     rec.Status(),
			"bytes":      rec.BytesWritten(),
			"duration":   time.Since(start).String(),
		})
		if rec.Status() >= http.StatusInternalServerError {
			entry.Warn("request")
		} else {
			entry.Info("request")
		}
	})
}

// Metrics counts requests by route pattern, so ids in the path do not
// explode the label set.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := httpx.NewResponseRecorder(w)

		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		metrics.ObserveRequest(route, r.Method, strconv.Itoa(rec.Status()))
	})
}

// DiagAuth requires an HS256 bearer token signed with secret and carrying the
// diagnostic role. An empty secret leaves the endpoints open.
func DiagAuth(secret string) func(http.Handler) http.Handler {
	if secret == "" {
		return func(next http.Handler) http.Handler { return next }
	}
	tokenAuth := jwtauth.New("HS256", []byte(secret), nil)
	return chi.Chain(jwtauth.Verifier(tokenAuth), jwtauth.Authenticator, diagRole).Handler
}

func diagRole(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, claims, err := jwtauth.FromContext(r.Context())
		if err != nil {
			httpx.LogStatus(w, r, http.StatusUnauthorized, log.DebugLevel, "diagnostics.token")
			return
		}

		allowed := false
		if rolesClaim, ok := claims["roles"].(string); ok {
			for _, role := range strings.Split(rolesClaim, ",") {
				if strings.TrimSpace(role) == DiagRole {
					allowed = true
					break
				}
			}
		}

		if !allowed {
			httpx.LogStatus(w, r, http.StatusForbidden, log.DebugLevel, "diagnostics.role")
			return
		}

		next.ServeHTTP(w, r)
	})
}
