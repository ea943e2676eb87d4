package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/courtside/courtside-chat/internal/common"
	"github.com/courtside/courtside-chat/internal/domain"
	"github.com/courtside/courtside-chat/internal/repository"
	"gorm.io/gorm"
)

// AccessGate decides whether a user may read or write a channel.
// Both methods return nil when allowed, common.ErrNotFound for a missing
// channel and common.ErrAccessDenied otherwise.
type AccessGate interface {
	CanRead(ctx context.Context, ref domain.ChannelRef, userID string) error
	CanWrite(ctx context.Context, ref domain.ChannelRef, userID string) error
}

type accessGate struct {
	convRepo    repository.ConversationRepository
	memberships MembershipProvider
}

// NewAccessGate creates a new AccessGate
func NewAccessGate(convRepo repository.ConversationRepository, memberships MembershipProvider) AccessGate {
	return &accessGate{convRepo: convRepo, memberships: memberships}
}

func (g *accessGate) CanRead(ctx context.Context, ref domain.ChannelRef, userID string) error {
	return g.check(ctx, ref, userID, false)
}

func (g *accessGate) CanWrite(ctx context.Context, ref domain.ChannelRef, userID string) error {
	return g.check(ctx, ref, userID, true)
}

func (g *accessGate) check(ctx context.Context, ref domain.ChannelRef, userID string, write bool) error {
	if userID == "" {
		return common.ErrUnauthorized
	}

	switch ref.Kind {
	case domain.ChannelDirect:
		conv, err := g.convRepo.FindByID(ctx, ref.ID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: conversation %d", common.ErrNotFound, ref.ID)
		}
		if err != nil {
			return err
		}
		// group/public state never applies to direct conversations
		if !conv.HasParticipant(userID) {
			return fmt.Errorf("%w: not a participant of %s", common.ErrAccessDenied, ref)
		}
		return nil

	case domain.ChannelGroup:
		group, err := g.memberships.GetGroup(ctx, ref.ID)
		if err != nil {
			return err
		}
		if group.CreatorID == userID {
			return nil
		}
		m, err := g.memberships.GetMembership(ctx, ref.ID, userID)
		if err != nil {
			return err
		}
		if m.IsActive() {
			return nil
		}
		if !write && group.IsPublic {
			return nil
		}
		if write {
			return fmt.Errorf("%w: %s requires active membership to post", common.ErrAccessDenied, ref)
		}
		return fmt.Errorf("%w: %s is private", common.ErrAccessDenied, ref)
	}

	return fmt.Errorf("%w: unknown channel kind %q", common.ErrValidation, ref.Kind)
}
