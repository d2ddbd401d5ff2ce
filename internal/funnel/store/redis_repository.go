package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSnapshotRepository stores session snapshots as JSON under
// "<prefix><sid>" with a sliding TTL.
type RedisSnapshotRepository struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisSnapshotRepository creates the repository. An empty prefix defaults
// to "funnel:session:"; a non-positive ttl keeps snapshots until deleted.
func NewRedisSnapshotRepository(client *redis.Client, prefix string, ttl time.Duration) *RedisSnapshotRepository {
	if prefix == "" {
		prefix = "funnel:session:"
	}
	if ttl < 0 {
		ttl = 0
	}
	return &RedisSnapshotRepository{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisSnapshotRepository) key(sid string) string {
	return r.prefix + sid
}

func (r *RedisSnapshotRepository) Save(ctx context.Context, sid string, snap Snapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key(sid), b, r.ttl).Err()
}

func (r *RedisSnapshotRepository) Load(ctx context.Context, sid string) (*Snapshot, error) {
	b, err := r.client.Get(ctx, r.key(sid)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (r *RedisSnapshotRepository) Delete(ctx context.Context, sid string) error {
	return r.client.Del(ctx, r.key(sid)).Err()
}
