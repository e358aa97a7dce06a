package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/storefront/internal/persist"
)

// DefaultPrefix namespaces storefront projections inside a shared Redis.
const DefaultPrefix = "storefront:"

// Storage implements persist.Storage using Redis string keys.
type Storage struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	slow   slowOpConfig
}

// Option configures a Storage.
type Option func(*Storage)

// WithTTL expires every saved projection after ttl. Zero keeps keys forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *Storage) { s.ttl = ttl }
}

// WithKeyPrefix replaces DefaultPrefix.
func WithKeyPrefix(prefix string) Option {
	return func(s *Storage) { s.prefix = prefix }
}

// WithSlowOpLogging logs a warning for any command slower than threshold.
// A zero threshold disables it.
func WithSlowOpLogging(threshold time.Duration, l *slog.Logger) Option {
	return func(s *Storage) { s.slow = slowOpConfig{threshold: threshold, logger: l} }
}

// NewStorage creates a new Redis-backed projection storage.
func NewStorage(client *redis.Client, opts ...Option) *Storage {
	s := &Storage{
		client: client,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load retrieves the raw projection stored under key. With a TTL set the
// read also renews the expiry, so a session restore keeps every projection
// of the session alive and not only the ones written since.
func (s *Storage) Load(ctx context.Context, key string) (data []byte, err error) {
	command := "GET"
	if s.ttl > 0 {
		command = "GETEX"
	}
	ctx, end := s.trace(ctx, command, key)
	defer func() { end(err) }()

	if s.ttl > 0 {
		data, err = s.client.GetEx(ctx, s.prefix+key, s.ttl).Bytes()
	} else {
		data, err = s.client.Get(ctx, s.prefix+key).Bytes()
	}
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, persist.NotFound(key)
		}
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, nil
}

// Save writes the projection with the configured TTL. Every save refreshes
// the expiry so active sessions never lose state.
func (s *Storage) Save(ctx context.Context, key string, data []byte) (err error) {
	ctx, end := s.trace(ctx, "SET", key)
	defer func() { end(err) }()

	if err := s.client.Set(ctx, s.prefix+key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete removes the projection stored under key.
func (s *Storage) Delete(ctx context.Context, key string) (err error) {
	ctx, end := s.trace(ctx, "DEL", key)
	defer func() { end(err) }()

	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// Ping reports whether Redis is reachable. Used by the readiness probe.
func (s *Storage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
