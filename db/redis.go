// db/redis.go
package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/authz/logging"
	pdp_model "github.com/dev-mohitbeniwal/authz/pdp/model"
)

var RedisClient *redis.Client

func InitRedis() error {
	RedisClient = redis.NewClient(&redis.Options{
		Addr:     viper.GetString("redis.addr"),
		Password: viper.GetString("redis.password"),
		DB:       viper.GetInt("redis.db"),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := RedisClient.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Successfully connected to Redis")
	return nil
}

func CloseRedis() {
	if RedisClient != nil {
		if err := RedisClient.Close(); err != nil {
			logger.Error("Error closing Redis connection", zap.Error(err))
		}
	}
}

// RateLimiter is a sliding-window limiter over a sorted set per key.
type RateLimiter struct {
	client redis.Cmdable
	now    func() time.Time
}

func NewRateLimiter(client redis.Cmdable) *RateLimiter {
	return &RateLimiter{client: client, now: time.Now}
}

// Allow records one hit for key and reports whether it is within limit.
func (l *RateLimiter) Allow(ctx context.Context, key string, limit int, per time.Duration) (bool, error) {
	now := l.now().UnixNano()
	key = fmt.Sprintf("ratelimit:%s", key)

	pipe := l.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", now-per.Nanoseconds()))
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now), Member: now})
	card := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, per)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to execute rate limit commands: %w", err)
	}

	count := card.Val()
	allowed := count <= int64(limit)
	logger.Debug("Rate limit check",
		zap.String("key", key),
		zap.Int64("count", count),
		zap.Int("limit", limit),
		zap.Bool("allowed", allowed))
	return allowed, nil
}

// PublishInvalidation broadcasts an invalidation event to every instance
// subscribed to channel.
func PublishInvalidation(ctx context.Context, client redis.Cmdable, channel string, ev pdp_model.InvalidationEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal invalidation event: %w", err)
	}
	if err := client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish invalidation event: %w", err)
	}
	return nil
}

// SubscribeInvalidations delivers events from channel to handle until ctx
// is done. Undecodable messages are logged and skipped.
func SubscribeInvalidations(ctx context.Context, client *redis.Client, channel string, handle func(context.Context, pdp_model.InvalidationEvent)) {
	sub := client.Subscribe(ctx, channel)
	defer sub.Close()

	logger.Info("Subscribed to invalidation channel", zap.String("channel", channel))
	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			var ev pdp_model.InvalidationEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				logger.Warn("Dropping malformed invalidation message",
					zap.String("channel", channel), zap.Error(err))
				continue
			}
			handle(ctx, ev)
		}
	}
}
