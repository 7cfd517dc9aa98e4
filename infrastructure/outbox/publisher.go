package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ddd-users/pkg/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Publisher interface {
	Publish(ctx context.Context, eventType, payload string) error
}

type LoggingPublisher struct{}

func (LoggingPublisher) Publish(ctx context.Context, eventType, payload string) error {
	logger.FromContext(ctx).Info("Outbox event published",
		zap.String("event_type", eventType),
		zap.String("payload", payload),
	)
	return nil
}

// RedisPublisher publishes every message on one pub/sub channel.
type RedisPublisher struct {
	rdb     redis.UniversalClient
	channel string
}

type redisMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func NewRedisPublisher(rdb redis.UniversalClient, channel string) *RedisPublisher {
	if channel == "" {
		channel = "users.events"
	}
	return &RedisPublisher{rdb: rdb, channel: channel}
}

// DialRedis connects and pings addr.
func DialRedis(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func (p *RedisPublisher) Publish(ctx context.Context, eventType, payload string) error {
	raw, err := json.Marshal(redisMessage{Type: eventType, Payload: json.RawMessage(payload)})
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, p.channel, raw).Err()
}
