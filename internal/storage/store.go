// Package storage persists the client-side key/value fields the onboarding flow leaves behind
// for later pages (user id, role, approval and profile flags, login time).
package storage

import (
	"context"
	"errors"
	"fmt"
)

// Store is a namespaced string key/value store. A namespace plays the role of one browser
// profile's local storage.
type Store interface {
	Set(ctx context.Context, key, value string) error
	// SetMany stores every pair or none of them.
	SetMany(ctx context.Context, values map[string]string) error
	// Get returns ok false when key is not set.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Delete(ctx context.Context, key string) error
	All(ctx context.Context) (map[string]string, error)
}

// Driver names accepted by Open.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// ErrUnknownDriver is returned by Open for an unsupported driver name.
var ErrUnknownDriver = errors.New("storage: unknown driver")

// Options selects and configures a backend.
type Options struct {
	Driver      string
	Namespace   string
	DatabaseURL string
	RedisAddr   string
}

// Open returns the Store for opts.Driver and a close func releasing its connections.
func Open(ctx context.Context, opts Options) (Store, func() error, error) {
	switch opts.Driver {
	case "", DriverMemory:
		return NewMemoryStore(), func() error { return nil }, nil
	case DriverPostgres:
		s, err := OpenPostgresStore(ctx, opts.DatabaseURL, opts.Namespace)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case DriverRedis:
		s, err := NewRedisStore(ctx, opts.RedisAddr, opts.Namespace)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownDriver, opts.Driver)
	}
}
