// @title           roomsync API
// @version         1.0
// @description     Chat history and realtime room synchronization.
// @BasePath        /api
package api

import (
	"expvar"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hilthontt/roomsync/internal/infrastructure/configs"
	"github.com/hilthontt/roomsync/internal/infrastructure/logging"
	"github.com/hilthontt/roomsync/internal/infrastructure/ratelimiter"
	healthHandler "github.com/hilthontt/roomsync/internal/presentation/handler/health"
	messagesHandler "github.com/hilthontt/roomsync/internal/presentation/handler/messages"
	realtimeHandler "github.com/hilthontt/roomsync/internal/presentation/handler/realtime"
	roomsHandler "github.com/hilthontt/roomsync/internal/presentation/handler/rooms"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	_ "github.com/hilthontt/roomsync/docs"
)

type Application struct {
	config          configs.Config
	healthHandler   *healthHandler.Handler
	messagesHandler *messagesHandler.Handler
	roomsHandler    *roomsHandler.Handler
	realtimeHandler *realtimeHandler.Handler
	logger          logging.Logger
	ratelimiter     ratelimiter.Limiter
}

func NewApplication(
	config configs.Config,
	healthHandler *healthHandler.Handler,
	messagesHandler *messagesHandler.Handler,
	roomsHandler *roomsHandler.Handler,
	realtimeHandler *realtimeHandler.Handler,
	logger logging.Logger,
	ratelimiter ratelimiter.Limiter,
) *Application {
	return &Application{
		config:          config,
		healthHandler:   healthHandler,
		messagesHandler: messagesHandler,
		roomsHandler:    roomsHandler,
		realtimeHandler: realtimeHandler,
		logger:          logger,
		ratelimiter:     ratelimiter,
	}
}

func (app *Application) Mount() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(app.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(app.metrics)
	r.Use(app.cors())

	r.Handle("/metrics", promhttp.Handler())
	r.Handle("/debug/vars", expvar.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	r.Get("/healthz", app.healthHandler.GetHealth)
	r.Get("/ready", app.healthHandler.GetReady)
	r.Get("/live", app.healthHandler.GetHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", app.healthHandler.GetHealth)
		r.Get("/healthz", app.healthHandler.GetHealth)
		r.Get("/ready", app.healthHandler.GetReady)
		r.Get("/live", app.healthHandler.GetHealth)

		// hijacked connections must not run under the request timeout
		r.With(app.rateLimiterMiddleware).Get("/ws", app.realtimeHandler.ConnectHandler)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))
			r.Use(app.rateLimiterMiddleware)

			r.Route("/chats/{chatId}/messages", func(r chi.Router) {
				r.Get("/", app.messagesHandler.GetMessagesHandler)
				r.Post("/", app.messagesHandler.CreateMessageHandler)
			})

			r.Get("/rooms", app.roomsHandler.GetStatsHandler)
			r.Get("/rooms/{roomId}", app.roomsHandler.GetRoomHandler)
		})
	})

	return otelhttp.NewHandler(r, app.config.Tracing.ServiceName,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

// Server builds the HTTP server. The caller starts it and owns its shutdown.
func (app *Application) Server(handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         app.config.Addr(),
		Handler:      handler,
		WriteTimeout: app.config.HTTP.WriteTimeout,
		ReadTimeout:  app.config.HTTP.ReadTimeout,
		IdleTimeout:  time.Minute,
	}
}
