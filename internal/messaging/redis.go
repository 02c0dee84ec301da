package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/Lllllllleong/mediaflow/internal/models"
)

// RedisStreamPublisher appends each request to a Redis stream. Consumer groups
// on the stream give the worker at-least-once delivery.
type RedisStreamPublisher struct {
	client redis.UniversalClient
	stream string
}

func NewRedisStreamPublisher(client redis.UniversalClient, stream string) (*RedisStreamPublisher, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if stream == "" {
		return nil, fmt.Errorf("REDIS_STREAM must be set")
	}
	return &RedisStreamPublisher{client: client, stream: stream}, nil
}

func (p *RedisStreamPublisher) Publish(ctx context.Context, subject string, msg models.ProcessRequest) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal processing request: %w", err)
	}
	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{
			"subject":     subject,
			"contentType": "application/json",
			"body":        string(body),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to append to stream %s: %w", p.stream, err)
	}
	return nil
}
