package disabled

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"           // postgres driver
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
)

// Backend types accepted by Open
const (
	TypeFile     = "file"
	TypeRedis    = "redis"
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
)

// Options selects and configures a backend
type Options struct {
	Type        string // file, redis, sqlite or postgres
	Path        string // file path for file, database path for sqlite
	RedisURL    string
	RedisKey    string
	DatabaseURL string // postgres connection string
}

// Open connects to the configured backend
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Type {
	case "", TypeFile:
		if opts.Path == "" {
			return nil, fmt.Errorf("disabled store path is required for %s backend", TypeFile)
		}
		return NewFileStore(opts.Path), nil

	case TypeRedis:
		redisOpts, err := redis.ParseURL(opts.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		client := redis.NewClient(redisOpts)
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return NewRedisStore(client, opts.RedisKey), nil

	case TypeSQLite:
		if opts.Path == "" {
			return nil, fmt.Errorf("disabled store path is required for %s backend", TypeSQLite)
		}
		return openSQL(ctx, DriverSQLite, opts.Path)

	case TypePostgres:
		if opts.DatabaseURL == "" {
			return nil, fmt.Errorf("database url is required for %s backend", TypePostgres)
		}
		return openSQL(ctx, DriverPostgres, opts.DatabaseURL)

	default:
		return nil, fmt.Errorf("unknown disabled store type: %s", opts.Type)
	}
}

func openSQL(ctx context.Context, driver, dsn string) (Store, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store, err := NewSQLStore(ctx, db, driver)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}
