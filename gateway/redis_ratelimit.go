// Copyright 2025 CortexAI
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/ekonugroho98/cortex-ai/shared/logger"
)

// RedisLimiter is a distributed sliding-window limiter on a redis
// sorted set per key. Redis failures fail open through the in-memory
// fallback: a degraded limiter must not take the gateway down with it.
type RedisLimiter struct {
	client   *redis.Client
	limit    int
	window   time.Duration
	fallback *MemoryLimiter
	log      *logger.Logger
}

var _ Limiter = (*RedisLimiter)(nil)

// NewRedisLimiter connects to redis and builds the limiter. The URL
// uses the redis:// scheme.
func NewRedisLimiter(redisURL string, limit int) (*RedisLimiter, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return newRedisLimiterWithClient(client, limit), nil
}

func newRedisLimiterWithClient(client *redis.Client, limit int) *RedisLimiter {
	return &RedisLimiter{
		client:   client,
		limit:    limit,
		window:   rateWindow,
		fallback: NewMemoryLimiter(limit),
		log:      logger.New("ratelimit"),
	}
}

// Allow prunes the window, counts, and records in one pipeline. When
// the key is over its limit the just-recorded member is removed so a
// rejected request does not consume budget.
func (l *RedisLimiter) Allow(ctx context.Context, key string) bool {
	now := time.Now()
	redisKey := "ratelimit:" + key
	member := fmt.Sprintf("%d", now.UnixNano())

	pipe := l.client.Pipeline()
	minScore := now.Add(-l.window).UnixNano()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", fmt.Sprintf("%d", minScore))
	card := pipe.ZCard(ctx, redisKey)
	pipe.ZAdd(ctx, redisKey, &redis.Z{
		Score:  float64(now.UnixNano()),
		Member: member,
	})
	pipe.Expire(ctx, redisKey, 2*l.window)

	if _, err := pipe.Exec(ctx); err != nil {
		l.log.Warn("", "", "redis rate limit check failed, using in-memory fallback", map[string]interface{}{"error": err.Error()})
		return l.fallback.Allow(ctx, key)
	}

	if card.Val() >= int64(l.limit) {
		if err := l.client.ZRem(ctx, redisKey, member).Err(); err != nil {
			l.log.Warn("", "", "redis rate limit rollback failed", map[string]interface{}{"error": err.Error()})
		}
		return false
	}
	return true
}

// Status reports usage in the current window.
func (l *RedisLimiter) Status(ctx context.Context, key string) (int, time.Time) {
	now := time.Now()
	redisKey := "ratelimit:" + key
	minScore := now.Add(-l.window).UnixNano()

	count, err := l.client.ZCount(ctx, redisKey, fmt.Sprintf("%d", minScore), "+inf").Result()
	if err != nil {
		return l.fallback.Status(ctx, key)
	}

	oldest, err := l.client.ZRangeByScoreWithScores(ctx, redisKey, &redis.ZRangeBy{
		Min:   fmt.Sprintf("%d", minScore),
		Max:   "+inf",
		Count: 1,
	}).Result()
	resetAt := now
	if err == nil && len(oldest) > 0 {
		resetAt = time.Unix(0, int64(oldest[0].Score)).Add(l.window)
	}
	return int(count), resetAt
}

// Close releases the redis connection.
func (l *RedisLimiter) Close() error {
	return l.client.Close()
}
