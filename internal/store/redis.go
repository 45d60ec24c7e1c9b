package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hpungsan/lcsync/internal/errors"
	"github.com/hpungsan/lcsync/internal/record"
)

// DefaultRedisKeyPrefix is used when RedisConfig.KeyPrefix is empty.
const DefaultRedisKeyPrefix = "lcsync:snapshot:"

// RedisStore implements SnapshotStore using Redis.
// Each snapshot is one JSON value under prefix+username.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// RedisConfig contains configuration options for Redis.
type RedisConfig struct {
	// Addr is the Redis server address (e.g., "localhost:6379")
	Addr string

	// Password is the Redis password (empty for no auth)
	Password string

	// DB is the Redis database number (0-15)
	DB int

	// KeyPrefix is prepended to all keys (default: "lcsync:snapshot:")
	KeyPrefix string
}

// NewRedis creates a snapshot store from an existing client.
func NewRedis(client *redis.Client, keyPrefix string) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = DefaultRedisKeyPrefix
	}
	return &RedisStore{client: client, prefix: keyPrefix}
}

// NewRedisFromConfig connects to Redis and verifies the connection.
func NewRedisFromConfig(cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: failed to connect: %w", err)
	}

	return NewRedis(client, cfg.KeyPrefix), nil
}

// Save stores the snapshot as JSON, overwriting any previous value.
func (s *RedisStore) Save(ctx context.Context, snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return errors.NewInternal(fmt.Errorf("redis: failed to encode snapshot: %w", err))
	}
	if err := s.client.Set(ctx, s.prefix+snap.Username, data, 0).Err(); err != nil {
		return errors.NewInternal(fmt.Errorf("redis: failed to set key: %w", err))
	}
	return nil
}

// Load reads and decodes the snapshot for username.
func (s *RedisStore) Load(ctx context.Context, username string) (*Snapshot, error) {
	data, err := s.client.Get(ctx, s.prefix+username).Bytes()
	if err == redis.Nil {
		return nil, errors.NewNotFound(username)
	}
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("redis: failed to get key: %w", err))
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, errors.NewDecode(err)
	}
	if snap.Records == nil {
		snap.Records = []record.Record{}
	}
	return &snap, nil
}

// Delete removes the snapshot key.
func (s *RedisStore) Delete(ctx context.Context, username string) error {
	if err := s.client.Del(ctx, s.prefix+username).Err(); err != nil {
		return errors.NewInternal(fmt.Errorf("redis: failed to delete key: %w", err))
	}
	return nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
