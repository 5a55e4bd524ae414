package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces report keys. The version segment changes
// whenever the cached report layout does.
const DefaultRedisPrefix = "skillhalflife:report:v1:"

// RedisOptions configures a RedisStore.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int

	// TTL is the report lifetime (default 15m).
	TTL time.Duration

	// Prefix is prepended to every key (default DefaultRedisPrefix).
	Prefix string
}

// RedisStore shares cached reports between analyst replicas. Reports are
// stored as JSON strings and expire through Redis key TTLs.
type RedisStore struct {
	client    *redis.Client
	ttl       time.Duration
	prefix    string
	closeOnce sync.Once
	closeErr  error
}

// NewRedisStore connects to Redis and verifies the connection with PING.
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	if opts.Addr == "" {
		return nil, errors.New("redis address cannot be empty")
	}
	if opts.DB < 0 {
		return nil, fmt.Errorf("redis database must be >= 0, got %d", opts.DB)
	}
	if opts.TTL <= 0 {
		opts.TTL = 15 * time.Minute
	}
	if opts.Prefix == "" {
		opts.Prefix = DefaultRedisPrefix
	}

	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		MaxRetries:   2,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", opts.Addr, err)
	}

	return &RedisStore{client: client, ttl: opts.TTL, prefix: opts.Prefix}, nil
}

func (r *RedisStore) key(id string) string {
	return r.prefix + id
}

func (r *RedisStore) Put(ctx context.Context, s Snapshot) error {
	if err := checkKey(s.Key); err != nil {
		return err
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode report %s: %w", s.Key, err)
	}
	if err := r.client.Set(ctx, r.key(s.Key), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("cache report %s: %w", s.Key, err)
	}
	return nil
}

// GetLatest returns the cached report for key. An entry that no longer
// decodes is deleted and reported as a miss.
func (r *RedisStore) GetLatest(ctx context.Context, key string) (Snapshot, bool, error) {
	if err := checkKey(key); err != nil {
		return Snapshot{}, false, err
	}

	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("read report %s: %w", key, err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		if delErr := r.client.Del(ctx, r.key(key)).Err(); delErr != nil {
			return Snapshot{}, false, fmt.Errorf("drop undecodable report %s: %w", key, delErr)
		}
		return Snapshot{}, false, nil
	}
	return snapshot, true, nil
}

func (r *RedisStore) Invalidate(ctx context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("invalidate report %s: %w", key, err)
	}
	return nil
}

// TTL returns the remaining lifetime of key, or zero when it is not cached.
func (r *RedisStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	d, err := r.client.TTL(ctx, r.key(key)).Result()
	if err != nil {
		return 0, fmt.Errorf("ttl of report %s: %w", key, err)
	}
	if d < 0 {
		return 0, nil
	}
	return d, nil
}

func (r *RedisStore) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close releases the client. Later calls return the first result.
func (r *RedisStore) Close() error {
	r.closeOnce.Do(func() {
		r.closeErr = r.client.Close()
	})
	return r.closeErr
}
