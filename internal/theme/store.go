package theme

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/luizfelipeneves/dcortex-dashboard/internal/db"
)

// Store persists small string preferences.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: map[string]string{}}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *MemoryStore) Close() error { return nil }

// SQLStore keeps preferences in the dashboard_settings table (SQLite or Postgres).
type SQLStore struct {
	db  *db.DB
	now func() time.Time
}

func NewSQLStore(ctx context.Context, d *db.DB) (*SQLStore, error) {
	if err := d.EnsureSettingsSchema(ctx); err != nil {
		return nil, err
	}
	return &SQLStore{db: d, now: time.Now}, nil
}

func (s *SQLStore) Get(ctx context.Context, key string) (string, bool, error) {
	return s.db.GetSetting(ctx, key)
}

func (s *SQLStore) Set(ctx context.Context, key, value string) error {
	return s.db.PutSetting(ctx, key, value, s.now())
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, s.prefix+key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	return s.client.Set(ctx, s.prefix+key, value, 0).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

const redisKeyPrefix = "dcortex:dashboard:"

// OpenStore picks the backend from the DSN scheme:
//
//	"" or "memory"               in-process map
//	sqlite:<path>                SQLite file (modernc.org/sqlite)
//	postgres://, postgresql://   Postgres (lib/pq)
//	redis://, rediss://          Redis
func OpenStore(ctx context.Context, dsn string) (Store, error) {
	raw := strings.TrimSpace(dsn)
	lower := strings.ToLower(raw)

	switch {
	case raw == "" || lower == "memory":
		return NewMemoryStore(), nil
	case strings.HasPrefix(lower, "sqlite:"):
		path := strings.TrimPrefix(raw[len("sqlite:"):], "//")
		if path == "" {
			return nil, fmt.Errorf("sqlite theme store needs a path")
		}
		d, err := db.Open(ctx, db.SQLite, path, 1)
		if err != nil {
			return nil, fmt.Errorf("open sqlite theme store: %w", err)
		}
		return newSQLStoreOrClose(ctx, d)
	case strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://"):
		d, err := db.Open(ctx, db.Postgres, raw, 2)
		if err != nil {
			return nil, fmt.Errorf("open postgres theme store: %w", err)
		}
		return newSQLStoreOrClose(ctx, d)
	case strings.HasPrefix(lower, "redis://") || strings.HasPrefix(lower, "rediss://"):
		opts, err := redis.ParseURL(raw)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("ping redis theme store: %w", err)
		}
		return NewRedisStore(client, redisKeyPrefix), nil
	}

	return nil, fmt.Errorf("unsupported theme store %q", dsn)
}

func newSQLStoreOrClose(ctx context.Context, d *db.DB) (Store, error) {
	s, err := NewSQLStore(ctx, d)
	if err != nil {
		_ = d.Close()
		return nil, err
	}
	return s, nil
}
