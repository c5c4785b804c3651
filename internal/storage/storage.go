// Package storage provides the string-keyed key-value medium that learner
// profiles and progress are persisted in.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"intan/internal/config"
	"intan/internal/database"
)

// ErrUnavailable is returned by every operation when no storage medium is present
var ErrUnavailable = errors.New("storage unavailable")

// Storage is a string-keyed key-value store
type Storage interface {
	// Get returns the value for key; ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error

	// Keys lists every stored key starting with prefix, sorted.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Close releases the underlying medium.
	Close() error
}

// Open builds the storage backend selected by cfg.StorageType
func Open(ctx context.Context, cfg *config.Config) (Storage, error) {
	switch strings.ToLower(cfg.StorageType) {
	case "memory":
		return NewMemoryStorage(), nil
	case "unavailable", "none":
		return Unavailable{}, nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		return NewRedisStorage(client), nil
	}

	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		return nil, err
	}
	if _, err := db.RunMigrations(ctx, cfg.MigrationsPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return NewSQLStorage(db), nil
}
