// Package rediscache backs the report cache with Redis.
package rediscache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/devlens/devlens/internal/ports"
)

// RedisCacheStore implements CacheStore on a shared Redis client.
type RedisCacheStore struct {
	client *redis.Client
	logger *logrus.Logger
}

// NewRedisCacheStore connects to Redis and verifies the connection before
// returning the store.
func NewRedisCacheStore(redisURL string, logger *logrus.Logger) (*RedisCacheStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisCacheStore{client: client, logger: logger}, nil
}

// Get returns the cached payload, mapping an absent key to ErrCacheMiss.
func (s *RedisCacheStore) Get(ctx context.Context, key string) ([]byte, error) {
	payload, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, ports.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache key: %w", err)
	}
	return payload, nil
}

// Put stores the payload under key for ttl.
func (s *RedisCacheStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache key: %w", err)
	}
	s.logger.WithFields(logrus.Fields{"key": key, "ttl": ttl}).Debug("cached report payload")
	return nil
}

// Close releases the underlying client.
func (s *RedisCacheStore) Close() error {
	return s.client.Close()
}
