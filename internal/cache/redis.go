package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-amm-desk/internal/constants"
	"github.com/aman-zulfiqar/solana-amm-desk/internal/models"
	"github.com/aman-zulfiqar/solana-amm-desk/internal/storage"
)

// RedisConfig holds configuration for the Redis snapshot cache
type RedisConfig struct {
	Addr   string
	DB     int
	TTL    time.Duration
	Logger *logrus.Logger
}

// RedisCache keeps the latest snapshot per pool and fans snapshots out over pub/sub
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

var _ storage.SnapshotCache = (*RedisCache)(nil)

// NewRedisCache connects to Redis and verifies the connection
func NewRedisCache(ctx context.Context, cfg RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr: cfg.Addr,
		DB:   cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	c, err := NewRedisCacheFromClient(client, cfg.Logger)
	if err != nil {
		return nil, err
	}
	if cfg.TTL > 0 {
		c.ttl = cfg.TTL
	}

	c.logger.WithField("addr", cfg.Addr).Info("connected to redis")
	return c, nil
}

// NewRedisCacheFromClient wraps an existing client
func NewRedisCacheFromClient(client *redis.Client, logger *logrus.Logger) (*RedisCache, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &RedisCache{
		client: client,
		ttl:    constants.SnapshotTTL,
		logger: logger,
	}, nil
}

func snapshotKey(pool string) string {
	return constants.RedisKeySnapshotPrefix + pool
}

// PutSnapshot replaces the cached snapshot for snap.Pool
func (r *RedisCache) PutSnapshot(ctx context.Context, snap *models.PoolSnapshot) error {
	if snap == nil || snap.Pool == "" {
		return fmt.Errorf("snapshot must name a pool")
	}

	b, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, snapshotKey(snap.Pool), b, r.ttl)
	pipe.SAdd(ctx, constants.RedisKeySnapshotIndex, snap.Pool)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("put snapshot: %w", err)
	}
	return nil
}

// GetSnapshot returns the latest snapshot of a pool
func (r *RedisCache) GetSnapshot(ctx context.Context, pool string) (*models.PoolSnapshot, error) {
	val, err := r.client.Get(ctx, snapshotKey(pool)).Result()
	if err == redis.Nil {
		return nil, fmt.Errorf("pool %s: %w", pool, storage.ErrSnapshotNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}

	var snap models.PoolSnapshot
	if err := json.Unmarshal([]byte(val), &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// ListSnapshots returns the latest snapshot of every cached pool.
// Expired entries are pruned from the index.
func (r *RedisCache) ListSnapshots(ctx context.Context) ([]*models.PoolSnapshot, error) {
	pools, err := r.client.SMembers(ctx, constants.RedisKeySnapshotIndex).Result()
	if err != nil {
		return nil, fmt.Errorf("list snapshot index: %w", err)
	}
	if len(pools) == 0 {
		return []*models.PoolSnapshot{}, nil
	}

	keys := make([]string, len(pools))
	for i, p := range pools {
		keys[i] = snapshotKey(p)
	}

	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("mget snapshots: %w", err)
	}

	out := make([]*models.PoolSnapshot, 0, len(vals))
	var stale []interface{}
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			stale = append(stale, pools[i])
			continue
		}
		var snap models.PoolSnapshot
		if err := json.Unmarshal([]byte(s), &snap); err != nil {
			r.logger.WithError(err).WithField("pool", pools[i]).Warn("skipping corrupt snapshot")
			continue
		}
		out = append(out, &snap)
	}

	if len(stale) > 0 {
		if err := r.client.SRem(ctx, constants.RedisKeySnapshotIndex, stale...).Err(); err != nil {
			r.logger.WithError(err).Warn("failed to prune snapshot index")
		}
	}

	return out, nil
}

// PublishSnapshot publishes a snapshot to the live channel
func (r *RedisCache) PublishSnapshot(ctx context.Context, snap *models.PoolSnapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := r.client.Publish(ctx, constants.PubSubChannelSnapshots, b).Err(); err != nil {
		return fmt.Errorf("publish snapshot: %w", err)
	}
	return nil
}

// SubscribeSnapshots streams published snapshots until ctx is done.
// The returned channel is closed when the subscription ends.
func (r *RedisCache) SubscribeSnapshots(ctx context.Context) (<-chan *models.PoolSnapshot, error) {
	pubsub := r.client.Subscribe(ctx, constants.PubSubChannelSnapshots)
	// Wait for the subscription to be confirmed before handing out the channel
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", constants.PubSubChannelSnapshots, err)
	}

	r.logger.WithField("channel", constants.PubSubChannelSnapshots).Debug("subscribed")

	out := make(chan *models.PoolSnapshot, 16)
	go func() {
		defer close(out)
		defer pubsub.Close()

		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var snap models.PoolSnapshot
				if err := json.Unmarshal([]byte(msg.Payload), &snap); err != nil {
					r.logger.WithError(err).Warn("error unmarshaling snapshot")
					continue
				}
				select {
				case out <- &snap:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// Ping checks if Redis is reachable
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (r *RedisCache) Close() error {
	return r.client.Close()
}
