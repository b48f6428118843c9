// Package kv provides durable key-value backends for the contest store.
// Every backend stores plain string values under string keys and treats
// removing a missing key as a no-op.
package kv

import (
	"context"
	"errors"
	"fmt"

	"contest-store/internal/platform/config"
)

// Storage is a durable string key-value store that must be closed after use.
type Storage interface {
	GetItem(ctx context.Context, key string) (string, bool, error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
	Close() error
}

// Driver names accepted by Open.
const (
	DriverBolt   = "bolt"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// ErrUnknownDriver is returned by Open for an unsupported driver name.
var ErrUnknownDriver = errors.New("unknown storage driver")

// Open returns the backend selected by cfg.Driver.
func Open(ctx context.Context, cfg config.Store) (Storage, error) {
	switch cfg.Driver {
	case DriverBolt, "":
		return NewBoltStorage(cfg.Path)
	case DriverSQLite:
		return NewSQLiteStorage(ctx, cfg.Path)
	case DriverRedis:
		return NewRedisStorage(ctx, cfg.RedisAddr, cfg.RedisDB)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}
