package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Publisher delivers quest events to whoever notifies users.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type redisPublishClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisPublisher publishes events as JSON on a Redis pub/sub channel.
type RedisPublisher struct {
	client  redisPublishClient
	channel string
}

// NewRedisPublisher creates a Redis-backed publisher.
func NewRedisPublisher(client redisPublishClient, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel}
}

func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	if p == nil || p.client == nil {
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event.Type, err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s event: %w", event.Type, err)
	}
	return nil
}

// NopPublisher drops events. Used when Redis is not configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

// PublishAsync sends event in the background. Delivery is best effort:
// failures are logged and never reach the caller.
func PublishAsync(p Publisher, event Event) {
	if p == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := p.Publish(ctx, event); err != nil {
			log.Warn().Err(err).
				Str("type", string(event.Type)).
				Str("quest_id", event.QuestID.String()).
				Msg("quest event not delivered")
		}
	}()
}
