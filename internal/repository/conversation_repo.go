package repository

import (
	"context"
	"errors"
	"time"

	"github.com/courtside/courtside-chat/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ConversationRepository conversation and read-state data access interface
type ConversationRepository interface {
	FindByID(ctx context.Context, id uint64) (*domain.Conversation, error)
	FindByPair(ctx context.Context, a, b string) (*domain.Conversation, error)
	CreateIfAbsent(ctx context.Context, conv *domain.Conversation) (*domain.Conversation, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.Conversation, error)
	GetReadState(ctx context.Context, ref domain.ChannelRef, userID string) (*domain.ReadState, error)
	UpsertReadState(ctx context.Context, state *domain.ReadState) error
}

type conversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository creates a new ConversationRepository
func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

// FindByID finds a conversation by ID
func (r *conversationRepository) FindByID(ctx context.Context, id uint64) (*domain.Conversation, error) {
	var conv domain.Conversation
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&conv).Error; err != nil {
		return nil, err
	}
	return &conv, nil
}

// FindByPair finds the conversation of an unordered user pair
func (r *conversationRepository) FindByPair(ctx context.Context, a, b string) (*domain.Conversation, error) {
	low, high := domain.SortedPair(a, b)
	var conv domain.Conversation
	err := r.db.WithContext(ctx).
		Where("user_low = ? AND user_high = ?", low, high).
		First(&conv).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// CreateIfAbsent inserts the conversation unless the pair already exists and
// returns the stored row either way. The unique pair index arbitrates races.
func (r *conversationRepository) CreateIfAbsent(ctx context.Context, conv *domain.Conversation) (*domain.Conversation, error) {
	conv.UserLow, conv.UserHigh = domain.SortedPair(conv.UserLow, conv.UserHigh)

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(conv).Error
	if err != nil {
		return nil, err
	}
	return r.FindByPair(ctx, conv.UserLow, conv.UserHigh)
}

// ListByUser returns every conversation the user participates in
func (r *conversationRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Conversation, error) {
	var convs []*domain.Conversation
	err := r.db.WithContext(ctx).
		Where("user_low = ? OR user_high = ?", userID, userID).
		Order("id DESC").
		Find(&convs).Error
	return convs, err
}

// GetReadState returns the read watermark, or nil when the user never read the channel
func (r *conversationRepository) GetReadState(ctx context.Context, ref domain.ChannelRef, userID string) (*domain.ReadState, error) {
	var state domain.ReadState
	err := r.db.WithContext(ctx).
		Where("channel_type = ? AND channel_id = ? AND user_id = ?", ref.Kind, ref.ID, userID).
		Take(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// UpsertReadState sets the read watermark
func (r *conversationRepository) UpsertReadState(ctx context.Context, state *domain.ReadState) error {
	if state.LastReadAt.IsZero() {
		state.LastReadAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "channel_type"}, {Name: "channel_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_read_at", "last_read_message_id"}),
		}).
		Create(state).Error
}
