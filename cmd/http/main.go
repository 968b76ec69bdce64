package main

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/hilthontt/roomsync/internal/infrastructure/configs"
	"github.com/hilthontt/roomsync/internal/infrastructure/events"
	"github.com/hilthontt/roomsync/internal/infrastructure/logging"
	"github.com/hilthontt/roomsync/internal/infrastructure/ratelimiter"
	"github.com/hilthontt/roomsync/internal/infrastructure/tracing"
	"github.com/hilthontt/roomsync/internal/infrastructure/ws"
	"github.com/hilthontt/roomsync/internal/presentation/api"
	healthHandler "github.com/hilthontt/roomsync/internal/presentation/handler/health"
	messagesHandler "github.com/hilthontt/roomsync/internal/presentation/handler/messages"
	realtimeHandler "github.com/hilthontt/roomsync/internal/presentation/handler/realtime"
	roomsHandler "github.com/hilthontt/roomsync/internal/presentation/handler/rooms"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := configs.Load(configs.DetermineConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(logging.NewConfig(cfg.Logger))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}

	shutdownTracer, err := tracing.InitTracer(cfg.Tracing)
	if err != nil {
		logger.Fatal(logging.General, logging.Startup, "failed to init tracer", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}

	ctx, cancel := context.WithCancel(context.Background())

	deps, err := connectDependencies(ctx, cfg, logger)
	if err != nil {
		logger.Fatal(logging.General, logging.Startup, "failed to connect dependencies", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}

	store, err := newMessageStore(ctx, cfg, deps, logger)
	if err != nil {
		logger.Fatal(logging.Store, logging.Startup, "failed to create message store", map[logging.ExtraKey]any{
			logging.Driver:       cfg.MessageStore.Driver,
			logging.ErrorMessage: err.Error(),
		})
	}

	var limiterCache ratelimiter.GetterSetter
	if cfg.RateLimiter.Backend == "redis" {
		limiterCache = ratelimiter.NewRedis(deps.redis, cfg.Redis.KeyPrefix+":ratelimit")
	} else {
		limiterCache = ratelimiter.NewInMemoryContext(ctx, time.Minute)
	}
	limiter := ratelimiter.New(ratelimiter.Options{
		MaxRatePerSecond: cfg.RateLimiter.MaxRatePerSecond,
		MaxBurst:         cfg.RateLimiter.MaxBurst,
		Cache:            limiterCache,
		CacheTTL:         cfg.RateLimiter.CacheTTL,
		SourceHeaderKey:  cfg.RateLimiter.SourceHeaderKey,
	})

	publisher := events.NewNopPublisher()
	var async *events.AsyncPublisher
	if deps.rabbit != nil {
		async = events.NewAsyncPublisher(events.NewRoomPublisher(deps.rabbit), cfg.Realtime.SendBuffer*16, logger)
		publisher = async

		consumer := events.NewRoomConsumer(deps.rabbit, deps.audit, logger)
		go func() {
			if err := consumer.Listen(ctx); err != nil && ctx.Err() == nil {
				logger.Error(logging.RabbitMQ, logging.Consume, "room event consumer stopped", map[logging.ExtraKey]any{
					logging.ErrorMessage: err.Error(),
				})
			}
		}()
	}

	hub := ws.NewHub(ws.HubConfig{
		Peer: ws.PeerConfig{
			SendBuffer:      cfg.Realtime.SendBuffer,
			MaxMessageBytes: cfg.Realtime.MaxMessageBytes,
			PingPeriod:      cfg.Realtime.PingPeriod,
			PongWait:        cfg.Realtime.PongWait,
			WriteWait:       cfg.Realtime.WriteWait,
		},
		Session: ws.SessionConfig{
			RoomIDMaxLength:    cfg.Realtime.RoomIDMaxLength,
			MaxEventsPerSecond: cfg.Realtime.MaxEventsPerSecond,
			Burst:              cfg.Realtime.Burst,
		},
	}, ws.HubDeps{
		Publisher: publisher,
		Logger:    logger,
	})
	go hub.Run(ctx)

	health := healthHandler.NewHandler(deps.checks())
	app := api.NewApplication(
		*cfg,
		health,
		messagesHandler.NewHandler(store, logger),
		roomsHandler.NewHandler(hub.Registry()),
		realtimeHandler.NewHandler(hub, cfg.HTTP.AllowedOrigins, logger),
		logger,
		limiter,
	)

	expvar.Publish("goroutines", expvar.Func(func() any {
		return runtime.NumGoroutine()
	}))
	expvar.Publish("rooms", expvar.Func(func() any {
		return hub.Registry().Stats()
	}))

	srv := app.Server(app.Mount())
	go func() {
		logger.Info(logging.General, logging.Startup, "server listening", map[logging.ExtraKey]any{
			logging.HostIp: srv.Addr,
			logging.Driver: cfg.MessageStore.Driver,
		})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(logging.General, logging.Startup, "server failed", map[logging.ExtraKey]any{
				logging.ErrorMessage: err.Error(),
			})
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.HTTP.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"http": func(ctx context.Context) error {
				health.SetHealthy(false)
				if err := srv.Shutdown(ctx); err != nil {
					return err
				}
				// hijacked websocket connections are closed by the hub
				cancel()
				return nil
			},
			"backends": func(ctx context.Context) error {
				select {
				case <-hub.Done():
				case <-ctx.Done():
					return ctx.Err()
				}
				if async != nil {
					// queued room events reach the broker before it closes
					if err := async.Close(ctx); err != nil {
						return err
					}
				}
				_ = limiterCache.Close()
				return deps.close(ctx)
			},
			"tracer": func(ctx context.Context) error {
				return shutdownTracer(ctx)
			},
		},
	)

	exitCode := <-wait
	logger.Info(logging.General, logging.Shutdown, "server stopped", map[logging.ExtraKey]any{
		logging.StatusCode: exitCode,
	})
	_ = logger.Sync()
	os.Exit(exitCode)
}
