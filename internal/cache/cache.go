package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Dashboard caches rollups per user. A nil *Dashboard is a valid, disabled cache.
type Dashboard struct {
	rdb *redis.Client
	ttl time.Duration
}

var Default *Dashboard

// Connect dials Redis; an empty addr disables caching.
func Connect(ctx context.Context, addr, password string, db int, ttl time.Duration) (*Dashboard, error) {
	if addr == "" {
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return New(rdb, ttl), nil
}

func New(rdb *redis.Client, ttl time.Duration) *Dashboard {
	return &Dashboard{rdb: rdb, ttl: ttl}
}

func userPrefix(userID string) string {
	return "sijuk:dashboard:" + userID + ":"
}

// Key builds a cache key for one rollup of one user.
func Key(userID, name string) string {
	return userPrefix(userID) + name
}

// Get loads key into dst. It reports false on miss, on a disabled cache and
// on Redis errors (which are logged, never returned).
func (d *Dashboard) Get(ctx context.Context, key string, dst any) bool {
	if d == nil {
		return false
	}
	raw, err := d.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			zap.L().Warn("dashboard cache get", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		zap.L().Warn("dashboard cache decode", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (d *Dashboard) Set(ctx context.Context, key string, v any) {
	if d == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := d.rdb.Set(ctx, key, raw, d.ttl).Err(); err != nil {
		zap.L().Warn("dashboard cache set", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate drops every cached rollup of the user.
func (d *Dashboard) Invalidate(ctx context.Context, userID string) {
	if d == nil {
		return
	}
	iter := d.rdb.Scan(ctx, 0, userPrefix(userID)+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		zap.L().Warn("dashboard cache scan", zap.String("user_id", userID), zap.Error(err))
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := d.rdb.Del(ctx, keys...).Err(); err != nil {
		zap.L().Warn("dashboard cache invalidate", zap.String("user_id", userID), zap.Error(err))
	}
}

// InvalidateUser clears the default cache; handlers call it after writes.
func InvalidateUser(ctx context.Context, userID string) {
	Default.Invalidate(ctx, userID)
}
