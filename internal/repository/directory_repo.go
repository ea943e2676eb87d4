package repository

import (
	"context"
	"errors"

	"github.com/courtside/courtside-chat/internal/domain"
	"gorm.io/gorm"
)

// ProfileRepository reads user profiles owned by the profile service
type ProfileRepository interface {
	FindByUserIDs(ctx context.Context, userIDs []string) ([]*domain.Profile, error)
}

type profileRepository struct {
	db *gorm.DB
}

// NewProfileRepository creates a new ProfileRepository
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

// FindByUserIDs loads all requested profiles in one query
func (r *profileRepository) FindByUserIDs(ctx context.Context, userIDs []string) ([]*domain.Profile, error) {
	var profiles []*domain.Profile
	if len(userIDs) == 0 {
		return profiles, nil
	}
	err := r.db.WithContext(ctx).Where("user_id IN ?", userIDs).Find(&profiles).Error
	return profiles, err
}

// GroupRepository reads groups and memberships owned by the group service
type GroupRepository interface {
	FindGroup(ctx context.Context, groupID uint64) (*domain.Group, error)
	FindMembership(ctx context.Context, groupID uint64, userID string) (domain.Membership, error)
}

type groupRepository struct {
	db *gorm.DB
}

// NewGroupRepository creates a new GroupRepository
func NewGroupRepository(db *gorm.DB) GroupRepository {
	return &groupRepository{db: db}
}

// FindGroup finds a group by ID
func (r *groupRepository) FindGroup(ctx context.Context, groupID uint64) (*domain.Group, error) {
	var group domain.Group
	if err := r.db.WithContext(ctx).Where("id = ?", groupID).First(&group).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

// FindMembership returns the user's membership, or NoMembership when absent
func (r *groupRepository) FindMembership(ctx context.Context, groupID uint64, userID string) (domain.Membership, error) {
	var member domain.GroupMember
	err := r.db.WithContext(ctx).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Take(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.NoMembership, nil
	}
	if err != nil {
		return domain.NoMembership, err
	}
	return domain.Membership{Status: member.Status, Role: member.Role}, nil
}
