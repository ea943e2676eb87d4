package repository

import (
	"context"
	"time"

	"github.com/courtside/courtside-chat/internal/domain"
	"gorm.io/gorm"
)

// MessageRepository message data access interface
type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	FindByID(ctx context.Context, id uint64) (*domain.Message, error)
	FindPage(ctx context.Context, ref domain.ChannelRef, query domain.PageQuery) ([]*domain.Message, error)
	UpdateContent(ctx context.Context, id uint64, content string, editedAt time.Time) error
	LatestByChannels(ctx context.Context, kind domain.ChannelKind, channelIDs []uint64) (map[uint64]*domain.Message, error)
	CountUnread(ctx context.Context, channelIDs []uint64, userID string) (map[uint64]int64, error)
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new MessageRepository
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

// Create appends a message. ID is assigned by the database.
func (r *messageRepository) Create(ctx context.Context, msg *domain.Message) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

// FindByID finds a message by ID
func (r *messageRepository) FindByID(ctx context.Context, id uint64) (*domain.Message, error) {
	var msg domain.Message
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&msg).Error
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// FindPage returns up to PageSize messages of the channel older than the cursor,
// in ascending (created_at, id) order.
func (r *messageRepository) FindPage(ctx context.Context, ref domain.ChannelRef, query domain.PageQuery) ([]*domain.Message, error) {
	var messages []*domain.Message

	q := r.db.WithContext(ctx).
		Where("channel_type = ? AND channel_id = ?", ref.Kind, ref.ID)
	if query.Before != nil {
		before := query.Before.UTC()
		if query.BeforeID > 0 {
			q = q.Where("(created_at < ? OR (created_at = ? AND id < ?))", before, before, query.BeforeID)
		} else {
			q = q.Where("created_at < ?", before)
		}
	}

	err := q.Order("created_at DESC").Order("id DESC").
		Limit(query.PageSize).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	// newest-first from the query, ascending for callers
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// UpdateContent replaces content and marks the message edited
func (r *messageRepository) UpdateContent(ctx context.Context, id uint64, content string, editedAt time.Time) error {
	result := r.db.WithContext(ctx).Model(&domain.Message{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"content":   content,
			"is_edited": true,
			"edited_at": editedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// LatestByChannels returns the most recent message of each channel that has one
func (r *messageRepository) LatestByChannels(ctx context.Context, kind domain.ChannelKind, channelIDs []uint64) (map[uint64]*domain.Message, error) {
	result := make(map[uint64]*domain.Message, len(channelIDs))
	if len(channelIDs) == 0 {
		return result, nil
	}

	// ids grow with insertion order, so MAX(id) is the newest row per channel
	latestIDs := r.db.Model(&domain.Message{}).
		Select("MAX(id)").
		Where("channel_type = ? AND channel_id IN ?", kind, channelIDs).
		Group("channel_id")

	var messages []*domain.Message
	if err := r.db.WithContext(ctx).Where("id IN (?)", latestIDs).Find(&messages).Error; err != nil {
		return nil, err
	}
	for _, m := range messages {
		result[m.ChannelID] = m
	}
	return result, nil
}

type unreadRow struct {
	ChannelID uint64
	Unread    int64
}

// CountUnread counts, per direct conversation, messages from the other participant
// committed after userID's read watermark
func (r *messageRepository) CountUnread(ctx context.Context, channelIDs []uint64, userID string) (map[uint64]int64, error) {
	result := make(map[uint64]int64, len(channelIDs))
	if len(channelIDs) == 0 {
		return result, nil
	}

	var rows []unreadRow
	err := r.db.WithContext(ctx).
		Table("chat_messages AS m").
		Select("m.channel_id AS channel_id, COUNT(*) AS unread").
		Joins("LEFT JOIN chat_read_states AS rs ON rs.channel_type = m.channel_type AND rs.channel_id = m.channel_id AND rs.user_id = ?", userID).
		Where("m.channel_type = ? AND m.channel_id IN ? AND m.sender_id <> ?", domain.ChannelDirect, channelIDs, userID).
		Where("(rs.user_id IS NULL OR m.id > rs.last_read_message_id)").
		Group("m.channel_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.ChannelID] = row.Unread
	}
	return result, nil
}
