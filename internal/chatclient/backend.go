package chatclient

import (
	"context"

	"github.com/courtside/courtside-chat/internal/domain"
	"github.com/courtside/courtside-chat/internal/service"
	"github.com/courtside/courtside-chat/internal/ws"
)

// Unsubscriber cancels a live subscription
type Unsubscriber interface {
	Unsubscribe()
}

// Backend is the server surface a Session talks to
type Backend interface {
	FetchPage(ctx context.Context, ref domain.ChannelRef, userID string, query domain.PageQuery) (*domain.Page, error)
	Send(ctx context.Context, ref domain.ChannelRef, userID string, in service.SendInput) (*domain.MessageView, error)
	MarkRead(ctx context.Context, conversationID uint64, userID string) error
	Subscribe(ref domain.ChannelRef, handler func(domain.Event)) (Unsubscriber, error)
}

// LocalBackend serves sessions in-process from the services and the hub
type LocalBackend struct {
	Messages  service.MessageService
	Directory service.DirectoryService
	Hub       *ws.Hub
}

// NewLocalBackend creates a new LocalBackend
func NewLocalBackend(messages service.MessageService, directory service.DirectoryService, hub *ws.Hub) *LocalBackend {
	return &LocalBackend{Messages: messages, Directory: directory, Hub: hub}
}

func (b *LocalBackend) FetchPage(ctx context.Context, ref domain.ChannelRef, userID string, query domain.PageQuery) (*domain.Page, error) {
	return b.Messages.FetchPage(ctx, ref, userID, query)
}

func (b *LocalBackend) Send(ctx context.Context, ref domain.ChannelRef, userID string, in service.SendInput) (*domain.MessageView, error) {
	return b.Messages.Send(ctx, ref, userID, in)
}

func (b *LocalBackend) MarkRead(ctx context.Context, conversationID uint64, userID string) error {
	return b.Directory.MarkRead(ctx, conversationID, userID)
}

func (b *LocalBackend) Subscribe(ref domain.ChannelRef, handler func(domain.Event)) (Unsubscriber, error) {
	sub, err := b.Hub.Subscribe(ref, handler)
	if err != nil {
		return nil, err
	}
	return sub, nil
}
