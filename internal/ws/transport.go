package ws

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisPubSubChannel = "chat:events"

// Transport carries published events between instances
type Transport interface {
	Publish(ctx context.Context, payload []byte) error
	// Subscribe returns once the subscription is confirmed
	Subscribe(ctx context.Context) (Stream, error)
}

// Stream is one live transport subscription
type Stream interface {
	// Receive blocks for the next payload. Any error ends the stream.
	Receive(ctx context.Context) ([]byte, error)
	Close() error
}

type redisTransport struct {
	client *redis.Client
}

// NewRedisTransport fans events out through redis pub/sub
func NewRedisTransport(client *redis.Client) Transport {
	return &redisTransport{client: client}
}

func (t *redisTransport) Publish(ctx context.Context, payload []byte) error {
	return t.client.Publish(ctx, redisPubSubChannel, payload).Err()
}

func (t *redisTransport) Subscribe(ctx context.Context) (Stream, error) {
	ps := t.client.Subscribe(ctx, redisPubSubChannel)
	// the first reply confirms the subscription or reports the dial error
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close() //nolint:errcheck
		return nil, fmt.Errorf("subscribe %s: %w", redisPubSubChannel, err)
	}
	return &redisStream{ps: ps}, nil
}

type redisStream struct {
	ps *redis.PubSub
}

func (s *redisStream) Receive(ctx context.Context) ([]byte, error) {
	msg, err := s.ps.ReceiveMessage(ctx)
	if err != nil {
		return nil, err
	}
	return []byte(msg.Payload), nil
}

func (s *redisStream) Close() error {
	return s.ps.Close()
}
