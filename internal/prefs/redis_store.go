// Package prefs persists the small whitelisted slice of client state that
// survives restarts: authentication and language preference. Editing state
// is never stored here.
package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	KeyAuth     = "auth"
	KeyLanguage = "language"
)

var (
	ErrNotPersisted = errors.New("key is not persisted")
	ErrInvalidValue = errors.New("value must be valid JSON")
)

var persisted = map[string]bool{
	KeyAuth:     true,
	KeyLanguage: true,
}

// Persisted reports whether key belongs to the stored whitelist.
func Persisted(key string) bool {
	return persisted[key]
}

// Keys returns the whitelist in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(persisted))
	for key := range persisted {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// RedisStore keeps one entry per subject and key, each with its own TTL.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore connects to redisURL and verifies the connection.
func NewRedisStore(redisURL string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisStoreWithClient(client, ttl), nil
}

// NewRedisStoreWithClient creates a store from an existing Redis client
func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 90 * 24 * time.Hour
	}
	return &RedisStore{
		client: client,
		prefix: "prefs:",
		ttl:    ttl,
	}
}

func (s *RedisStore) key(subject, key string) string {
	return s.prefix + subject + ":" + key
}

// Get returns every stored whitelisted value for subject. Missing keys are
// omitted.
func (s *RedisStore) Get(ctx context.Context, subject string) (map[string]json.RawMessage, error) {
	keys := Keys()
	redisKeys := make([]string, len(keys))
	for i, key := range keys {
		redisKeys[i] = s.key(subject, key)
	}

	values, err := s.client.MGet(ctx, redisKeys...).Result()
	if err != nil {
		return nil, fmt.Errorf("read prefs: %w", err)
	}

	out := make(map[string]json.RawMessage, len(keys))
	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			continue
		}
		out[keys[i]] = json.RawMessage(raw)
	}
	return out, nil
}

// Set stores value under key, refreshing its TTL.
func (s *RedisStore) Set(ctx context.Context, subject, key string, value json.RawMessage) error {
	if !Persisted(key) {
		return fmt.Errorf("%w: %s", ErrNotPersisted, key)
	}
	if !json.Valid(value) {
		return ErrInvalidValue
	}
	if err := s.client.Set(ctx, s.key(subject, key), []byte(value), s.ttl).Err(); err != nil {
		return fmt.Errorf("save pref %s: %w", key, err)
	}
	return nil
}

// Delete removes key for subject. Deleting an absent key is not an error.
func (s *RedisStore) Delete(ctx context.Context, subject, key string) error {
	if !Persisted(key) {
		return fmt.Errorf("%w: %s", ErrNotPersisted, key)
	}
	if err := s.client.Del(ctx, s.key(subject, key)).Err(); err != nil {
		return fmt.Errorf("delete pref %s: %w", key, err)
	}
	return nil
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks if Redis is reachable
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
