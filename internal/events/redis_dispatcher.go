package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Publisher is the part of the go-redis client used for fan-out.
type Publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

type redisDispatcher struct {
	local   Dispatcher
	client  Publisher
	channel string
}

// NewRedisDispatcher runs local subscribers through local and then publishes the event
// as JSON on channel.
func NewRedisDispatcher(local Dispatcher, client Publisher, channel string) Dispatcher {
	return &redisDispatcher{local: local, client: client, channel: channel}
}

func (d *redisDispatcher) Publish(ctx context.Context, event Event) error {
	localErr := d.local.Publish(ctx, event)

	body, err := json.Marshal(event)
	if err != nil {
		return errors.Join(localErr, fmt.Errorf("encode event %s: %w", event.Type, err))
	}
	if err := d.client.Publish(ctx, d.channel, body).Err(); err != nil {
		return errors.Join(localErr, fmt.Errorf("publish event %s: %w", event.Type, err))
	}
	return localErr
}

func (d *redisDispatcher) Subscribe(eventType EventType, handler EventHandler) {
	d.local.Subscribe(eventType, handler)
}
