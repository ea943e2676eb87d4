package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/courtside/courtside-chat/internal/common"
	"github.com/courtside/courtside-chat/internal/domain"
	"github.com/courtside/courtside-chat/internal/repository"
	"github.com/courtside/courtside-chat/pkg/cache"
	pkglogger "github.com/courtside/courtside-chat/pkg/logger"
	"gorm.io/gorm"
)

// MembershipProvider looks up groups and memberships owned by the group service
type MembershipProvider interface {
	GetGroup(ctx context.Context, groupID uint64) (*domain.Group, error)
	GetMembership(ctx context.Context, groupID uint64, userID string) (domain.Membership, error)
	Invalidate(ctx context.Context, groupID uint64, userID string)
}

type membershipProvider struct {
	repo  repository.GroupRepository
	cache cache.Service
}

// NewMembershipProvider creates a MembershipProvider reading through the cache.
// A nil cache or one without redis reads the repository every time.
func NewMembershipProvider(repo repository.GroupRepository, c cache.Service) MembershipProvider {
	if c == nil {
		c = cache.NewService(nil)
	}
	return &membershipProvider{repo: repo, cache: c}
}

func groupKey(groupID uint64) string {
	return fmt.Sprintf("chat:group:%d", groupID)
}

func (p *membershipProvider) GetGroup(ctx context.Context, groupID uint64) (*domain.Group, error) {
	var cached domain.Group
	if err := p.cache.Get(ctx, groupKey(groupID), &cached); err == nil {
		return &cached, nil
	}

	group, err := p.repo.FindGroup(ctx, groupID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: group %d", common.ErrNotFound, groupID)
	}
	if err != nil {
		return nil, err
	}
	if err := p.cache.Set(ctx, groupKey(groupID), group, cache.TTLMembership); err != nil {
		pkglogger.GetLogger().Warn().Err(err).Uint64("group_id", groupID).Msg("group cache write failed")
	}
	return group, nil
}

func (p *membershipProvider) GetMembership(ctx context.Context, groupID uint64, userID string) (domain.Membership, error) {
	var cached domain.Membership
	if err := p.cache.GetMembership(ctx, groupID, userID, &cached); err == nil {
		return cached, nil
	}

	m, err := p.repo.FindMembership(ctx, groupID, userID)
	if err != nil {
		return domain.NoMembership, err
	}
	if err := p.cache.SetMembership(ctx, groupID, userID, m); err != nil {
		pkglogger.GetLogger().Warn().Err(err).Uint64("group_id", groupID).Str("user_id", userID).Msg("membership cache write failed")
	}
	return m, nil
}

// Invalidate drops the cached membership so the next gate check sees the change
func (p *membershipProvider) Invalidate(ctx context.Context, groupID uint64, userID string) {
	if err := p.cache.InvalidateMembership(ctx, groupID, userID); err != nil {
		pkglogger.GetLogger().Warn().Err(err).Uint64("group_id", groupID).Str("user_id", userID).Msg("membership cache invalidate failed")
	}
}
