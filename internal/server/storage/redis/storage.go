// Package redis implements storage.Store on a Redis server.
package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	goredis "github.com/go-redis/redis/v8"

	"github.com/iudanet/nautilus/internal/server/storage"
)

// scanBatch is the COUNT hint passed to SCAN
const scanBatch = 200

// Options configures the Redis connection
type Options struct {
	Addr     string
	Password string
	// Namespace is prepended to every key, e.g. "nautilus:"
	Namespace string
	DB        int
}

// Storage represents Redis storage implementation
type Storage struct {
	rdb       *goredis.Client
	namespace string
}

// New connects to Redis and checks the connection with PING
func New(ctx context.Context, opts Options) (*Storage, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", opts.Addr, err)
	}

	return &Storage{rdb: rdb, namespace: opts.Namespace}, nil
}

// Close closes the client
func (s *Storage) Close() error {
	return s.rdb.Close()
}

// Get returns the value stored under key
func (s *Storage) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.rdb.Get(ctx, s.namespace+key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get %q: %w", key, err)
	}
	return value, nil
}

// Put creates or replaces key
func (s *Storage) Put(ctx context.Context, key string, value []byte) error {
	if err := s.rdb.Set(ctx, s.namespace+key, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to put %q: %w", key, err)
	}
	return nil
}

// PutIfAbsent maps onto SETNX
func (s *Storage) PutIfAbsent(ctx context.Context, key string, value []byte) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, s.namespace+key, value, 0).Result()
	if err != nil {
		return false, fmt.Errorf("failed to put %q: %w", key, err)
	}
	return ok, nil
}

// Delete removes key
func (s *Storage) Delete(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, s.namespace+key).Err(); err != nil {
		return fmt.Errorf("failed to delete %q: %w", key, err)
	}
	return nil
}

// Keys walks the keyspace with SCAN; the result is sorted
func (s *Storage) Keys(ctx context.Context, prefix string) ([]string, error) {
	pattern := escapeGlob(s.namespace+prefix) + "*"

	seen := make(map[string]struct{})
	iter := s.rdb.Scan(ctx, 0, pattern, scanBatch).Iterator()
	for iter.Next(ctx) {
		// SCAN может вернуть один и тот же ключ несколько раз
		seen[strings.TrimPrefix(iter.Val(), s.namespace)] = struct{}{}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan keys: %w", err)
	}

	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	return keys, nil
}

// escapeGlob экранирует спецсимволы шаблона MATCH
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
