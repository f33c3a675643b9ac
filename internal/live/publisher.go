package live

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Publisher sends events to every dashboard instance through Redis.
type Publisher struct {
	client  *redis.Client
	channel string
}

// NewPublisher constructs a Publisher. A nil client makes Publish a no-op.
func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client, channel: Channel}
}

// Publish sends ev.
func (p *Publisher) Publish(ctx context.Context, ev Event) error {
	if p == nil || p.client == nil {
		return nil
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := p.client.Publish(ctx, p.channel, raw).Err(); err != nil {
		return fmt.Errorf("live: publish: %w", err)
	}
	return nil
}

// Relay forwards events from Redis to hub until ctx is done.
func Relay(ctx context.Context, client *redis.Client, hub *Hub) error {
	pubsub := client.Subscribe(ctx, Channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("live: subscribe: %w", err)
	}
	go func() {
		defer func() { _ = pubsub.Close() }()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					continue
				}
				hub.Broadcast(ev)
			}
		}
	}()
	return nil
}
