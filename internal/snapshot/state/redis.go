package state

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmehra/oddsradar/internal/snapshot"
)

type redisStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisStore builds a redis-backed baseline store so diffing state
// survives restarts and can be shared across replicas.
func NewRedisStore(addr, password string, db int, ttl time.Duration, prefix string) (PreviousSnapshotStore, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis addr is required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if prefix == "" {
		prefix = "prev_snapshot"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &redisStore{client: client, ttl: ttl, prefix: prefix}, nil
}

func (r *redisStore) key(eventID string) string {
	return fmt.Sprintf("%s:%s", r.prefix, eventID)
}

func (r *redisStore) Get(ctx context.Context, eventID string) (*snapshot.Snapshot, bool, error) {
	raw, err := r.client.Get(ctx, r.key(eventID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var snap snapshot.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, false, err
	}
	return &snap, true, nil
}

func (r *redisStore) Set(ctx context.Context, snap snapshot.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key(snap.EventID), payload, r.ttl).Err()
}

func (r *redisStore) Close() error {
	return r.client.Close()
}
