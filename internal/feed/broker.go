package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	v1 "github.com/PaulBabatuyi/marketchat/api/messaging/v1"
)

// Broker publishes events to every server instance's hub.
type Broker interface {
	Publish(ctx context.Context, topic string, ev *v1.Event) error
}

// LocalBroker delivers straight into a single process's hub.
type LocalBroker struct {
	hub *Hub
}

func NewLocalBroker(hub *Hub) *LocalBroker {
	return &LocalBroker{hub: hub}
}

// Publish delivers ev locally. A topic without subscribers is not an error.
func (b *LocalBroker) Publish(_ context.Context, topic string, ev *v1.Event) error {
	if err := b.hub.Publish(topic, ev); err != nil && !errors.Is(err, ErrNoSubscribers) {
		return err
	}
	return nil
}

const channelPrefix = "marketchat:feed:"

// RedisBroker fans events out through Redis pub/sub so that a stream attached
// to any instance receives events published by any other. Run relays the
// channel into the local hub; an instance receives its own publishes the same
// way.
type RedisBroker struct {
	client *redis.Client
	hub    *Hub
	log    zerolog.Logger
}

// NewRedisBroker connects to redisURL and checks the connection.
func NewRedisBroker(ctx context.Context, redisURL string, hub *Hub, log zerolog.Logger) (*RedisBroker, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisBroker{client: client, hub: hub, log: log}, nil
}

// Publish sends ev on the Redis channel of topic.
func (b *RedisBroker) Publish(ctx context.Context, topic string, ev *v1.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, channelPrefix+topic, payload).Err()
}

// Run relays Redis events into the local hub until ctx is cancelled.
func (b *RedisBroker) Run(ctx context.Context) error {
	pubsub := b.client.PSubscribe(ctx, channelPrefix+"*")
	defer pubsub.Close()

	// wait for the subscription to be confirmed before relaying
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe redis feed: %w", err)
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			b.relay(msg.Channel, msg.Payload)
		}
	}
}

func (b *RedisBroker) relay(channel, payload string) {
	var ev v1.Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		b.log.Warn().Err(err).Str("channel", channel).Msg("dropping malformed feed event")
		return
	}
	topic := strings.TrimPrefix(channel, channelPrefix)
	if err := b.hub.Publish(topic, &ev); err != nil && !errors.Is(err, ErrNoSubscribers) {
		b.log.Debug().Err(err).Str("topic", topic).Msg("feed delivery failed")
	}
}

// Close closes the Redis connection.
func (b *RedisBroker) Close() error {
	return b.client.Close()
}
