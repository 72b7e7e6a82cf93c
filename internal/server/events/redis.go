package events

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisPublisher struct {
	client  *redis.Client
	channel string
}

func newRedisPublisher(cfg RedisConfig, timeout time.Duration) (*redisPublisher, error) {
	if cfg.Addr == "" || cfg.Channel == "" {
		return nil, fmt.Errorf("redis addr and channel are required")
	}

	rc := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
		PoolSize:     4,
	})

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("redis connect error: %w", err)
	}

	return &redisPublisher{client: rc, channel: cfg.Channel}, nil
}

func (p *redisPublisher) Publish(ctx context.Context, e Event) error {
	data, err := e.Encode()
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, p.channel, data).Err()
}

func (p *redisPublisher) Close() error {
	return p.client.Close()
}
