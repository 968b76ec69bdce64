package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/hilthontt/roomsync/internal/domain"
	"github.com/hilthontt/roomsync/internal/infrastructure/configs"
	"github.com/hilthontt/roomsync/internal/infrastructure/logging"
	"github.com/hilthontt/roomsync/internal/infrastructure/messaging"
	"github.com/hilthontt/roomsync/internal/persistence/db"
	"github.com/hilthontt/roomsync/internal/persistence/repository"
	healthHandler "github.com/hilthontt/roomsync/internal/presentation/handler/health"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"gorm.io/gorm"
)

// dependencies holds the backing services the configuration asks for.
// Unused ones stay nil.
type dependencies struct {
	redis    *redis.Client
	mongo    *mongo.Client
	database *mongo.Database
	postgres *gorm.DB
	rabbit   *messaging.RabbitMQ
	audit    domain.RoomAuditRepository
}

func connectDependencies(ctx context.Context, cfg *configs.Config, logger logging.Logger) (*dependencies, error) {
	deps := &dependencies{}
	driver := cfg.MessageStore.Driver

	if driver == configs.DriverRedis || cfg.RateLimiter.Backend == "redis" {
		client, err := db.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		deps.redis = client
		logger.Info(logging.Redis, logging.Startup, "connected to redis", nil)
	}

	// room audit logs live in mongo whenever the broker is enabled
	if driver == configs.DriverMongo || driver == configs.DriverMongoEmbedded || cfg.RabbitMQ.Enabled {
		client, err := db.NewMongoClient(ctx, db.NewMongoConfig(cfg.Mongo))
		if err != nil {
			deps.close(ctx)
			return nil, err
		}
		deps.mongo = client
		deps.database = client.Database(cfg.Mongo.Database)
		logger.Info(logging.MongoDB, logging.Startup, "connected to mongodb", nil)
	}

	if driver == configs.DriverPostgres {
		gdb, err := db.NewPostgres(cfg.Postgres)
		if err != nil {
			deps.close(ctx)
			return nil, err
		}
		deps.postgres = gdb
		logger.Info(logging.Postgres, logging.Startup, "connected to postgres", nil)
	}

	if cfg.RabbitMQ.Enabled {
		rabbit, err := messaging.NewRabbitMQ(cfg.RabbitMQ.URI)
		if err != nil {
			deps.close(ctx)
			return nil, err
		}
		deps.rabbit = rabbit

		deps.audit = repository.NewRoomAuditLogRepository(deps.database, cfg.Mongo.AuditTTL)
		if err := deps.audit.EnsureIndexes(ctx); err != nil {
			deps.close(ctx)
			return nil, fmt.Errorf("failed to create audit log indexes: %w", err)
		}
		logger.Info(logging.RabbitMQ, logging.Startup, "connected to rabbitmq", nil)
	}

	return deps, nil
}

func newMessageStore(ctx context.Context, cfg *configs.Config, deps *dependencies, logger logging.Logger) (domain.MessageStore, error) {
	maxPage := cfg.MessageStore.MaxPageSize

	var store domain.MessageStore
	switch cfg.MessageStore.Driver {
	case configs.DriverMemory:
		store = repository.NewCollectionMemoryStore(maxPage)
	case configs.DriverMemoryEmbedded:
		store = repository.NewEmbeddedMemoryStore(cfg.MessageStore.Capacity, maxPage)
	case configs.DriverRedis:
		store = repository.NewRedisStore(deps.redis, cfg.Redis.KeyPrefix, maxPage)
	case configs.DriverMongo:
		collection := repository.NewMongoCollectionStore(deps.database, maxPage)
		if err := collection.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("failed to create message indexes: %w", err)
		}
		store = collection
	case configs.DriverMongoEmbedded:
		store = repository.NewMongoEmbeddedStore(deps.database, maxPage)
	case configs.DriverPostgres:
		if err := repository.MigrateMessages(deps.postgres); err != nil {
			return nil, fmt.Errorf("failed to migrate messages: %w", err)
		}
		logger.Info(logging.Postgres, logging.Migration, "messages table migrated", nil)
		store = repository.NewGormStore(deps.postgres, maxPage)
	default:
		return nil, fmt.Errorf("unsupported message store driver %q", cfg.MessageStore.Driver)
	}

	return repository.NewInstrumentedStore(store, cfg.MessageStore.Driver), nil
}

// checks backs the readiness endpoint.
func (d *dependencies) checks() map[string]healthHandler.Check {
	checks := make(map[string]healthHandler.Check)
	if d.redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return d.redis.Ping(ctx).Err()
		}
	}
	if d.mongo != nil {
		checks["mongodb"] = func(ctx context.Context) error {
			return d.mongo.Ping(ctx, readpref.Primary())
		}
	}
	if d.postgres != nil {
		checks["postgres"] = func(ctx context.Context) error {
			sqlDB, err := d.postgres.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}
	}
	if d.rabbit != nil {
		checks["rabbitmq"] = func(context.Context) error {
			if d.rabbit.IsClosed() {
				return errors.New("connection closed")
			}
			return nil
		}
	}
	return checks
}

func (d *dependencies) close(ctx context.Context) error {
	var errs []error
	if d.rabbit != nil {
		d.rabbit.Close()
	}
	if d.mongo != nil {
		errs = append(errs, db.DisconnectMongo(ctx, d.mongo))
	}
	if d.postgres != nil {
		errs = append(errs, db.ClosePostgres(d.postgres))
	}
	if d.redis != nil {
		errs = append(errs, d.redis.Close())
	}
	return errors.Join(errs...)
}
