package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ministrylearn/ministrylearn/pkg/tokenstore"
	redisstore "github.com/ministrylearn/ministrylearn/pkg/tokenstore/drivers/redis"
	"github.com/ministrylearn/ministrylearn/pkg/tokenstore/drivers/sqlite"
	"github.com/redis/go-redis/v9"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// openStore builds the token store selected by cfg. The returned closer
// releases any connection the store holds.
func openStore(ctx context.Context, cfg Config) (tokenstore.Store, io.Closer, error) {
	switch cfg.TokenStore {
	case StoreMemory:
		return tokenstore.NewMemory(), nopCloser{}, nil

	case StoreFile:
		if err := os.MkdirAll(filepath.Dir(cfg.TokenFile), 0o700); err != nil {
			return nil, nil, fmt.Errorf("create token directory: %w", err)
		}
		var opts []tokenstore.FileOption
		if cfg.TokenPassphrase != "" {
			opts = append(opts, tokenstore.WithPassphrase(cfg.TokenPassphrase))
		}
		return tokenstore.NewFile(cfg.TokenFile, opts...), nopCloser{}, nil

	case StoreSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.DatabaseFile), 0o700); err != nil {
			return nil, nil, fmt.Errorf("create database directory: %w", err)
		}
		db, err := sqlite.NewStore(sqlite.DSN(cfg.DatabaseFile))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		if err := db.ApplyMigrations(); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("failed to apply database migrations: %w", err)
		}
		return db, db, nil

	case StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		return redisstore.NewStore(client, cfg.RedisPrefix, redisstore.WithRefreshTTL(cfg.RedisRefreshTTL)), client, nil

	default:
		return nil, nil, fmt.Errorf("unknown token store %q", cfg.TokenStore)
	}
}
