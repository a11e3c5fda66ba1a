package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// RedisBroker fans events out through a Redis channel so every instance's
// registered clients see them. Client registrations stay local.
type RedisBroker struct {
	*Registry
	client  *redis.Client
	channel string
	logger  *slog.Logger

	pubsub *redis.PubSub
	done   chan struct{}
}

// NewRedisBroker connects to redisURL (redis://host:port/db) and starts
// relaying messages from channel into the local registry.
func NewRedisBroker(ctx context.Context, redisURL, channel string, queueSize int, logger *slog.Logger) (*RedisBroker, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	b := &RedisBroker{
		Registry: NewRegistry(queueSize),
		client:   client,
		channel:  channel,
		logger:   logger,
		done:     make(chan struct{}),
	}

	b.pubsub = client.Subscribe(ctx, channel)
	// Wait for the subscription to be confirmed before publishing can race it.
	if _, err := b.pubsub.Receive(ctx); err != nil {
		b.pubsub.Close()
		client.Close()
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}
	go b.relay()
	return b, nil
}

func (b *RedisBroker) relay() {
	defer close(b.done)
	for msg := range b.pubsub.Channel() {
		b.handleMessage(msg.Payload)
	}
}

func (b *RedisBroker) handleMessage(payload string) {
	ev, err := decodeEvent(payload)
	if err != nil {
		b.logger.Warn("dropping malformed event", "channel", b.channel, "error", err)
		return
	}
	b.deliver(ev)
}

// Publish sends ev to the channel. Local clients receive it through the
// subscription like every other instance.
func (b *RedisBroker) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Close stops the relay and closes the Redis connection.
func (b *RedisBroker) Close() error {
	err := b.pubsub.Close()
	<-b.done
	if cerr := b.client.Close(); err == nil {
		err = cerr
	}
	return err
}

func decodeEvent(payload string) (Event, error) {
	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return Event{}, err
	}
	if ev.Type == "" {
		return Event{}, fmt.Errorf("event without type")
	}
	return ev, nil
}
