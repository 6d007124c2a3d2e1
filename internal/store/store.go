package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrNotFound = errors.New("key not found")

// Store is durable key-value storage. Implementations must survive process
// restarts except for the memory backend, which exists for tests and local runs.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
	BackendSQLite = "sqlite"
)

type Options struct {
	Backend string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTTL      time.Duration

	MongoURI string
	MongoDB  string

	SQLitePath string
}

// Open connects to the configured backend and verifies it with a ping.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case BackendMemory, "":
		return NewMemoryStore(), nil
	case BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
			DB:       opts.RedisDB,
		})
		s := NewRedisStore(client, opts.RedisTTL)
		if err := s.Ping(ctx); err != nil {
			client.Close()
			return nil, err
		}
		return s, nil
	case BackendMongo:
		db, err := ConnectMongoDB(ctx, opts.MongoURI, opts.MongoDB)
		if err != nil {
			return nil, err
		}
		s := NewMongoStore(db)
		if err := s.CreateIndexes(ctx); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil
	case BackendSQLite:
		return NewSQLiteStore(ctx, opts.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
}
