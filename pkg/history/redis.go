package history

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/clustersweep-io/clustersweep/pkg/types"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "notifications:cluster:"

// RedisStore keeps notification history in Redis: one set per cluster
// holding the severities already sent, expired via key TTL.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection with a ping.
func NewRedisStore(ctx context.Context, cfg types.RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	return &RedisStore{client: client}, nil
}

func redisKey(namespace, name string) string {
	return redisKeyPrefix + namespace + ":" + name
}

// HasBeenNotified reports whether the severity is in the cluster's set.
func (s *RedisStore) HasBeenNotified(ctx context.Context, namespace, name string, severity types.Severity) (bool, error) {
	member, err := s.client.SIsMember(ctx, redisKey(namespace, name), string(severity)).Result()
	if err != nil {
		return false, fmt.Errorf("redis SISMEMBER failed: %w", err)
	}
	return member, nil
}

// MarkNotified adds the severity and rearms the key TTL.
func (s *RedisStore) MarkNotified(ctx context.Context, namespace, name string, severity types.Severity, ttl time.Duration) error {
	key := redisKey(namespace, name)

	if err := s.client.SAdd(ctx, key, string(severity)).Err(); err != nil {
		return fmt.Errorf("redis SADD failed: %w", err)
	}
	if err := s.client.Expire(ctx, key, ttl).Err(); err != nil {
		return fmt.Errorf("redis EXPIRE failed: %w", err)
	}
	return nil
}

// ClearHistory deletes the cluster's entire record.
func (s *RedisStore) ClearHistory(ctx context.Context, namespace, name string) error {
	if err := s.client.Del(ctx, redisKey(namespace, name)).Err(); err != nil {
		return fmt.Errorf("redis DEL failed: %w", err)
	}
	return nil
}

// AllNotified scans for every cluster key with stored history.
func (s *RedisStore) AllNotified(ctx context.Context) ([]Key, error) {
	var keys []Key

	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		rest := strings.TrimPrefix(iter.Val(), redisKeyPrefix)
		parts := strings.SplitN(rest, ":", 2)
		if len(parts) != 2 {
			continue
		}
		keys = append(keys, Key{Namespace: parts[0], Name: parts[1]})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis SCAN failed: %w", err)
	}

	return keys, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
