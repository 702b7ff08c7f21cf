package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"facecap/internal/capture"
)

// redisPublishTimeout bounds a single PUBLISH round trip.
const redisPublishTimeout = time.Second

// RedisPublisher republishes poses on a Redis pub/sub channel. Only the most
// recent unsent pose is kept, so a slow Redis drops poses instead of
// stalling the consumer loop.
type RedisPublisher struct {
	client  *redis.Client
	channel string
	logger  *slog.Logger

	latest chan capture.Pose
}

// NewRedisPublisher connects to Redis and verifies the connection.
func NewRedisPublisher(ctx context.Context, cfg RedisConfig, logger *slog.Logger) (*RedisPublisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr: cfg.Addr,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisPublisher{
		client:  client,
		channel: cfg.Channel,
		logger:  logger,
		latest:  make(chan capture.Pose, 1),
	}, nil
}

// ObservePose implements capture.PoseObserver.
func (p *RedisPublisher) ObservePose(pose capture.Pose) {
	offerLatest(p.latest, pose)
}

// Run publishes poses until ctx is canceled, then closes the client.
func (p *RedisPublisher) Run(ctx context.Context) error {
	defer p.client.Close()

	p.logger.Info("redis publisher started", "channel", p.channel)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("redis publisher stopping")
			return nil

		case pose := <-p.latest:
			if err := p.publish(ctx, pose); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				p.logger.Warn("redis publish failed", "channel", p.channel, "error", err)
			}
		}
	}
}

func (p *RedisPublisher) publish(ctx context.Context, pose capture.Pose) error {
	msg, err := json.Marshal(newPosePayload(pose))
	if err != nil {
		return fmt.Errorf("marshal pose: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, redisPublishTimeout)
	defer cancel()
	return p.client.Publish(pubCtx, p.channel, msg).Err()
}
