package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hilthontt/roomsync/internal/infrastructure/json"
	"github.com/hilthontt/roomsync/internal/infrastructure/logging"
	"github.com/hilthontt/roomsync/internal/infrastructure/metrics"
)

func (app *Application) rateLimiterMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := app.ratelimiter.GetSourceKey(r)
		allowed := app.ratelimiter.Allow(key)

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(app.ratelimiter.GetMaxBurst()))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(app.ratelimiter.Remaining(key)))

		if !allowed {
			app.logger.Warn(logging.RequestResponse, logging.RateLimiting, "request rate limited", map[logging.ExtraKey]any{
				logging.ClientIp: key,
				logging.Path:     r.URL.Path,
			})
			json.WriteRateLimitError(w, 1)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (app *Application) cors() func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   app.config.HTTP.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   app.config.HTTP.AllowedHeaders,
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After", "X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	})
}

func (app *Application) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			app.logger.Info(logging.RequestResponse, logging.Api, "request completed", map[logging.ExtraKey]any{
				logging.Method:     r.Method,
				logging.Path:       r.URL.Path,
				logging.StatusCode: ww.Status(),
				logging.BodySize:   ww.BytesWritten(),
				logging.Latency:    time.Since(start).String(),
				logging.RequestID:  middleware.GetReqID(r.Context()),
				logging.ClientIp:   r.RemoteAddr,
			})
		}()

		next.ServeHTTP(ww, r)
	})
}

// metrics labels requests by route pattern so ids in paths do not explode
// label cardinality.
func (app *Application) metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		path := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}
