// Package cache provides a generic key/value caching interface with
// in-memory and Redis-backed implementations, plus a matrix-specific
// wrapper used by the distance service.
package cache

import (
	"context"
	"errors"
	"time"

	"dispatch/pkg/config"
)

// Backend types for cache implementations.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Standard errors returned by cache operations.
var (
	ErrKeyNotFound = errors.New("key not found")
	ErrCacheClosed = errors.New("cache is closed")
)

// Cache defines the common operations every backend implements.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)

	GetWithTTL(ctx context.Context, key string) (value []byte, ttl time.Duration, err error)

	MGet(ctx context.Context, keys []string) (map[string][]byte, error)
	MSet(ctx context.Context, entries map[string][]byte, ttl time.Duration) error
	MDelete(ctx context.Context, keys []string) (int64, error)

	Keys(ctx context.Context, pattern string) ([]string, error)
	DeleteByPattern(ctx context.Context, pattern string) (int64, error)

	Stats(ctx context.Context) (*Stats, error)
	Clear(ctx context.Context) error
	Close() error
}

// Stats reports a cache backend's current state.
type Stats struct {
	TotalKeys    int64
	Hits         int64
	Misses       int64
	HitRate      float64
	MemoryBytes  int64
	KeysByPrefix map[string]int64
	Backend      string
}

// Options configures a Cache backend.
type Options struct {
	Backend    string
	DefaultTTL time.Duration

	MaxEntries      int
	MaxMemoryBytes  int64
	CleanupInterval time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPoolSize int
}

// DefaultOptions returns sensible defaults for a memory-backed cache.
func DefaultOptions() *Options {
	return &Options{
		Backend:         BackendMemory,
		DefaultTTL:      24 * time.Hour,
		MaxEntries:      100000,
		MaxMemoryBytes:  256 * 1024 * 1024,
		CleanupInterval: time.Minute,
		RedisAddr:       "localhost:6379",
		RedisDB:         0,
		RedisPoolSize:   10,
	}
}

// FromConfig builds Options from a CacheConfig.
func FromConfig(cfg config.CacheConfig) *Options {
	return &Options{
		Backend:       cfg.Driver,
		DefaultTTL:    cfg.DefaultTTL,
		MaxEntries:    cfg.MaxEntries,
		RedisAddr:     cfg.Address(),
		RedisPassword: cfg.Password,
		RedisDB:       cfg.DB,
		RedisPoolSize: 10,
	}
}

// New constructs a Cache for the backend named in opts.
func New(opts *Options) (Cache, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	switch opts.Backend {
	case BackendRedis:
		return NewRedisCache(opts)
	case BackendMemory, "":
		return NewMemoryCache(opts), nil
	default:
		return NewMemoryCache(opts), nil
	}
}

// MustNew constructs a Cache or panics.
func MustNew(opts *Options) Cache {
	c, err := New(opts)
	if err != nil {
		panic(err)
	}
	return c
}
