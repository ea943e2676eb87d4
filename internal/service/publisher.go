package service

import (
	"context"
	"time"

	"github.com/courtside/courtside-chat/internal/domain"
)

// EventPublisher hands realtime events to the distributor
type EventPublisher interface {
	Publish(ctx context.Context, ev domain.Event) error
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, domain.Event) error { return nil }

// clock returns the current time in the precision the store keeps
func clock() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
