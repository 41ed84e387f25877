package cache

import (
	"context"
	"fmt"
	"karaoke-api-go/logcolors"
	"time"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

const (
	redisKeyPrefix = "karaoke:"
	redisTimeout   = 2 * time.Second
)

// RedisStore is a Store shared between replicas. Keys are namespaced so Clear
// never touches data owned by other applications on the same server.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore connects to addr and verifies the connection with PING
func NewRedisStore(addr, password string, db int) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}

	log.Infof("%s Redis cache connected at %s (db %d)", logcolors.LogCacheInit, addr, db)
	return &RedisStore{rdb: rdb}, nil
}

func (s *RedisStore) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), redisTimeout)
}

// Get returns the value for key; errors are logged and reported as a miss
func (s *RedisStore) Get(key string) (string, bool) {
	ctx, cancel := s.ctx()
	defer cancel()

	value, err := s.rdb.Get(ctx, redisKeyPrefix+key).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		log.Warnf("%s Redis GET %s failed: %v", logcolors.LogCache, key, err)
		return "", false
	}
	return value, true
}

// Set stores value with the given ttl; ttl <= 0 never expires
func (s *RedisStore) Set(key, value string, ttl time.Duration) error {
	ctx, cancel := s.ctx()
	defer cancel()

	if ttl < 0 {
		ttl = 0
	}
	return s.rdb.Set(ctx, redisKeyPrefix+key, value, ttl).Err()
}

// Delete removes key
func (s *RedisStore) Delete(key string) error {
	ctx, cancel := s.ctx()
	defer cancel()
	return s.rdb.Del(ctx, redisKeyPrefix+key).Err()
}

// Clear removes every key under the service's prefix
func (s *RedisStore) Clear() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	iter := s.rdb.Scan(ctx, 0, redisKeyPrefix+"*", 500).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 500 {
			if err := s.rdb.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return s.rdb.Del(ctx, batch...).Err()
	}
	return nil
}

// Stats counts keys under the prefix. Size is not tracked for Redis and reported as 0.
func (s *RedisStore) Stats() (numKeys int, sizeInKB int) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	iter := s.rdb.Scan(ctx, 0, redisKeyPrefix+"*", 500).Iterator()
	for iter.Next(ctx) {
		numKeys++
	}
	if err := iter.Err(); err != nil {
		log.Warnf("%s Redis SCAN failed: %v", logcolors.LogCache, err)
	}
	return numKeys, 0
}

// Close closes the client
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
