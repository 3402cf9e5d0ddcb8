package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go-attendance/internal/attendance"
	"go-attendance/internal/config"
	"go-attendance/internal/messaging/kafka"
	"go-attendance/internal/shared/connection"
	"go-attendance/internal/shared/dbtx"
	"go-attendance/internal/student"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// stores is what a storage driver hands to the module wiring.
type stores struct {
	runner       dbtx.Runner
	students     student.Repository
	attendance   attendance.Repository
	outbox       kafka.OutboxRepository
	closeBackend func()
}

// BuildApp connects the configured backends and mounts every module on router.
// The returned cleanup releases the connections.
func BuildApp(router *gin.Engine, cfg config.Config) (func(), error) {
	logger := zap.L().Named("app")

	st, err := openStores(cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("store connection established", zap.String("driver", cfg.StoreDriver))

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb, err = connection.ConnectRedisWithRetry(cfg.RedisAddr, cfg.DB.MaxRetries)
		if err != nil {
			st.closeBackend()
			return nil, err
		}
		logger.Info("redis connection established")
	} else {
		logger.Info("REDIS_ADDR not set, running without cache and idempotency")
	}

	registerModules(router, cfg, st, rdb)

	cleanup := func() {
		if rdb != nil {
			_ = rdb.Close()
		}
		st.closeBackend()
	}
	return cleanup, nil
}

func openStores(cfg config.Config) (stores, error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		client, db, err := connection.ConnectMongoWithRetry(cfg.Mongo.URI, cfg.Mongo.Database, cfg.DB.MaxRetries)
		if err != nil {
			return stores{}, err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := student.EnsureMongoIndexes(ctx, db); err != nil {
			_ = client.Disconnect(ctx)
			return stores{}, fmt.Errorf("ensure student indexes: %w", err)
		}
		if err := attendance.EnsureMongoIndexes(ctx, db); err != nil {
			_ = client.Disconnect(ctx)
			return stores{}, fmt.Errorf("ensure attendance indexes: %w", err)
		}

		return stores{
			runner:     dbtx.Direct(),
			students:   student.NewMongoRepository(db),
			attendance: attendance.NewMongoRepository(db),
			closeBackend: func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = client.Disconnect(ctx)
			},
		}, nil

	default:
		gormDB, err := connection.ConnectGORMWithRetry(
			cfg.DB.Host,
			cfg.DB.User,
			cfg.DB.Password,
			cfg.DB.Name,
			cfg.DB.Port,
			cfg.DB.SSLMode,
			cfg.DB.MaxRetries,
		)
		if err != nil {
			return stores{}, err
		}

		sqlDB, err := gormDB.DB()
		if err != nil {
			return stores{}, err
		}

		if err := Migrate(gormDB); err != nil {
			_ = sqlDB.Close()
			return stores{}, err
		}

		return stores{
			runner:       dbtx.NewSQLRunner(sqlDB),
			students:     student.NewRepository(gormDB),
			attendance:   attendance.NewRepository(gormDB),
			outbox:       kafka.NewOutboxRepository(sqlDB),
			closeBackend: closeSQL(sqlDB),
		}, nil
	}
}

func closeSQL(db *sql.DB) func() {
	return func() { _ = db.Close() }
}
