package database

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-practice/internal/config"
	"github.com/stemsi/exstem-practice/internal/metrics"
	"github.com/stemsi/exstem-practice/internal/store"
)

// Backends holds the connections opened for the configured drivers.
type Backends struct {
	// KV is the record store, wrapped with retries.
	KV store.KV
	// Redis is set when either the store or the export queue uses Redis.
	Redis *redis.Client

	closers []func()
}

// Open connects the record store selected by STORE_DRIVER, and Redis when
// the export queue needs it.
func Open(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Backends, error) {
	b := &Backends{}

	if cfg.StoreDriver == "redis" || cfg.QueueDriver == "redis" {
		rdb, err := NewRedisClient(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		b.Redis = rdb
		b.closers = append(b.closers, func() { rdb.Close() })
	}

	var kv store.KV
	switch cfg.StoreDriver {
	case "memory":
		log.Warn().Msg("Using in-memory store, records are lost on restart")
		kv = store.NewMemory()

	case "redis":
		kv = store.NewRedis(b.Redis)

	case "postgres":
		pool, err := NewPostgresPool(ctx, cfg, log)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.closers = append(b.closers, pool.Close)
		kv = store.NewPostgres(pool)

	case "sqlite":
		db, err := NewSQLite(ctx, cfg, log)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.closers = append(b.closers, func() { db.Close() })
		kv = store.NewSQLite(db)

	case "mongo":
		db, err := NewMongoDatabase(ctx, cfg, log)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.closers = append(b.closers, func() { _ = db.Client().Disconnect(context.Background()) })
		kv = store.NewMongo(db)

	default:
		b.Close()
		return nil, fmt.Errorf("unknown STORE_DRIVER %q (want memory, redis, postgres, sqlite or mongo)", cfg.StoreDriver)
	}

	retrying := store.NewRetrying(kv, cfg.StoreRetryAttempts, cfg.StoreRetryBackoff, log)
	retrying.OnRetry = func(op string) { metrics.StoreRetries.WithLabelValues(op).Inc() }
	b.KV = retrying

	log.Info().Str("driver", cfg.StoreDriver).Int("retry_attempts", cfg.StoreRetryAttempts).Msg("Record store ready")
	return b, nil
}

// Close releases connections in reverse order of opening.
func (b *Backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
	b.closers = nil
}
