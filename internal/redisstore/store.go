package redisstore

import (
	"OrderFlow/bot/flow"
	"OrderFlow/internal/config"
	"OrderFlow/internal/lib/sl"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient is the subset of go-redis client methods used by SnapshotStore.
type RedisClient interface {
	Ping(ctx context.Context) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Close() error
}

// SnapshotStore keeps flow snapshots as JSON values that Redis expires by itself.
type SnapshotStore struct {
	client RedisClient
	prefix string
	ttl    time.Duration
	log    *slog.Logger
}

// New connects to Redis and verifies the connection with PING.
func New(ctx context.Context, conf *config.Config, logger *slog.Logger) (*SnapshotStore, error) {
	opts := &redis.Options{
		Addr: conf.Redis.Addr,
		DB:   conf.Redis.DB,
	}
	if conf.Redis.Password != "" {
		opts.Password = conf.Redis.Password
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", conf.Redis.Addr, err)
	}
	return NewWithClient(client, conf.Redis.KeyPrefix, conf.Session.SnapshotTTL, logger), nil
}

func NewWithClient(client RedisClient, prefix string, ttl time.Duration, logger *slog.Logger) *SnapshotStore {
	return &SnapshotStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		log:    logger.With(sl.Module("redis snapshots")),
	}
}

func (s *SnapshotStore) Save(ctx context.Context, snapshot *flow.Snapshot) error {
	snapshot.SavedAt = time.Now()
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return s.client.Set(ctx, s.key(snapshot.UserID), data, s.ttl).Err()
}

func (s *SnapshotStore) Load(ctx context.Context, userID string) (*flow.Snapshot, error) {
	data, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var snapshot flow.Snapshot
	if err = json.Unmarshal(data, &snapshot); err != nil {
		// a value we cannot read is dropped so the user starts over
		s.log.With(sl.Err(err), slog.String("user_id", userID)).Warn("corrupt snapshot")
		return nil, s.Delete(ctx, userID)
	}
	return &snapshot, nil
}

func (s *SnapshotStore) Delete(ctx context.Context, userID string) error {
	return s.client.Del(ctx, s.key(userID)).Err()
}

func (s *SnapshotStore) Close() error {
	return s.client.Close()
}

func (s *SnapshotStore) key(userID string) string {
	return s.prefix + userID
}
