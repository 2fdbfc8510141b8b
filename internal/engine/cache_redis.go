package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "yt:"

// RedisTier is a SecondTier backed by Redis.
type RedisTier struct {
	rdb *redis.Client
}

// NewRedisTier connects to redisURL and verifies the server answers.
func NewRedisTier(ctx context.Context, redisURL string) (*RedisTier, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("cache: invalid redis URL: %w", err)
	}
	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("cache: redis unreachable: %w", err)
	}
	slog.Info("cache: L2 redis connected", slog.String("addr", opts.Addr))
	return &RedisTier{rdb: rdb}, nil
}

// Get reads the value and its PTTL in one round trip.
func (t *RedisTier) Get(ctx context.Context, key string) ([]byte, time.Duration, bool, error) {
	var (
		get  *redis.StringCmd
		pttl *redis.DurationCmd
	)
	_, err := t.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		get = pipe.Get(ctx, redisKeyPrefix+key)
		pttl = pipe.PTTL(ctx, redisKeyPrefix+key)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, 0, false, err
	}
	data, err := get.Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, 0, false, nil
	}
	if err != nil {
		return nil, 0, false, err
	}
	// PTTL is negative for a key without expiry or one that just vanished.
	return data, max(pttl.Val(), 0), true, nil
}

func (t *RedisTier) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return t.rdb.Set(ctx, redisKeyPrefix+key, value, ttl).Err()
}

func (t *RedisTier) Delete(ctx context.Context, key string) error {
	return t.rdb.Del(ctx, redisKeyPrefix+key).Err()
}

// Clear removes only keys written by this cache.
func (t *RedisTier) Clear(ctx context.Context) error {
	iter := t.rdb.Scan(ctx, 0, redisKeyPrefix+"*", 200).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 200 {
			if err := t.rdb.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return t.rdb.Del(ctx, batch...).Err()
	}
	return nil
}

func (t *RedisTier) Close() error { return t.rdb.Close() }
