// Package cache stores encoded scoring results keyed by a digest of their
// inputs.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	gocache "github.com/patrickmn/go-cache"
	"github.com/pkg/errors"

	"github.com/samyak-umathe/L-THackthon/pkg/config"
)

// KeyPrefix namespaces every key in shared backends.
const KeyPrefix = "gridsense:"

// Store is a byte cache.
type Store interface {
	// Get returns the value and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

// New builds the backend selected in cfg.
func New(ctx context.Context, cfg config.CacheConfig) (Store, error) {
	switch cfg.Backend {
	case config.CacheNone, "":
		return Nop{}, nil
	case config.CacheMemory:
		return NewMemory(cfg.TTL), nil
	case config.CacheRedis:
		return NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.TTL)
	default:
		return nil, errors.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// Key digests parts into a stable cache key. Each part is JSON encoded, so
// maps contribute in sorted key order.
func Key(kind string, parts ...any) (string, error) {
	h := sha256.New()
	h.Write([]byte(kind))
	for _, p := range parts {
		b, err := json.Marshal(p)
		if err != nil {
			return "", errors.Wrap(err, "failed to encode cache key part")
		}
		h.Write([]byte{0})
		h.Write(b)
	}
	return KeyPrefix + kind + ":" + hex.EncodeToString(h.Sum(nil)), nil
}

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (Nop) Set(context.Context, string, []byte) error         { return nil }
func (Nop) Close() error                                      { return nil }

// Memory is an in-process store with per-entry expiry.
type Memory struct {
	c *gocache.Cache
}

// NewMemory creates a store whose entries live for ttl. A zero ttl keeps
// entries until the process exits.
func NewMemory(ttl time.Duration) *Memory {
	exp := ttl
	if exp <= 0 {
		exp = gocache.NoExpiration
	}
	cleanup := 2 * ttl
	if cleanup <= 0 {
		cleanup = time.Hour
	}
	return &Memory{c: gocache.New(exp, cleanup)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	return v.([]byte), true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.c.SetDefault(key, value)
	return nil
}

// Len returns the number of unexpired entries.
func (m *Memory) Len() int {
	return m.c.ItemCount()
}

func (m *Memory) Close() error {
	m.c.Flush()
	return nil
}

// Redis stores entries in a Redis server.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects to addr and pings it.
func NewRedis(ctx context.Context, addr, password string, db int, ttl time.Duration) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrapf(err, "failed to connect to redis at %s", addr)
	}
	return &Redis{client: client, ttl: ttl}, nil
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "redis get")
	}
	return b, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	return errors.Wrap(r.client.Set(ctx, key, value, r.ttl).Err(), "redis set")
}

func (r *Redis) Close() error {
	return r.client.Close()
}
