package domain

import "time"

// Conversation is a direct channel between exactly two users (chat_conversations table).
// The pair is stored sorted so (UserLow, UserHigh) is unique per unordered pair.
type Conversation struct {
	CreatedAt time.Time `gorm:"column:created_at;precision:6;not null" json:"created_at"`
	UserLow   string    `gorm:"column:user_low;type:varchar(64);not null;uniqueIndex:idx_chat_conversations_pair,priority:1" json:"user_a"`
	UserHigh  string    `gorm:"column:user_high;type:varchar(64);not null;uniqueIndex:idx_chat_conversations_pair,priority:2;index" json:"user_b"`
	ID        uint64    `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
}

func (Conversation) TableName() string {
	return "chat_conversations"
}

// SortedPair orders two user ids the way conversations store them
func SortedPair(a, b string) (string, string) {
	if a <= b {
		return a, b
	}
	return b, a
}

// HasParticipant reports whether userID is one of the two participants
func (c *Conversation) HasParticipant(userID string) bool {
	return userID != "" && (c.UserLow == userID || c.UserHigh == userID)
}

// Other returns the participant that is not userID
func (c *Conversation) Other(userID string) string {
	if c.UserLow == userID {
		return c.UserHigh
	}
	return c.UserLow
}

// Channel returns the channel ref of the conversation
func (c *Conversation) Channel() ChannelRef {
	return DirectChannel(c.ID)
}

// ReadState is the last-read watermark of one user in one channel (chat_read_states table)
type ReadState struct {
	LastReadAt  time.Time   `gorm:"column:last_read_at;precision:6;not null" json:"last_read_at"`
	ChannelType ChannelKind `gorm:"column:channel_type;type:varchar(8);primaryKey" json:"channel_type"`
	UserID      string      `gorm:"column:user_id;type:varchar(64);primaryKey" json:"user_id"`
	ChannelID   uint64      `gorm:"column:channel_id;primaryKey;autoIncrement:false" json:"channel_id"`

	// LastReadMessageID is the newest message id of the channel when it was read.
	// Unread counting compares ids so equal or skewed timestamps cannot hide a message.
	LastReadMessageID uint64 `gorm:"column:last_read_message_id;not null;default:0" json:"last_read_message_id"`
}

func (ReadState) TableName() string {
	return "chat_read_states"
}

// CreateConversationRequest represents a get-or-create conversation request
type CreateConversationRequest struct {
	OtherUserID string `json:"other_user_id" binding:"required" validate:"required,max=64"`
}

// ConversationResponse is the wire form of a conversation seen by one participant
type ConversationResponse struct {
	CreatedAt   time.Time  `json:"created_at"`
	LastReadAt  *time.Time `json:"last_read_at"`
	OtherUserID string     `json:"other_user_id"`
	ID          uint64     `json:"id"`
}

// ConversationSummary is one row of a user's conversation list
type ConversationSummary struct {
	LastActivityAt time.Time      `json:"last_activity_at"`
	LastMessage    *MessageView   `json:"last_message"`
	OtherUser      *SenderProfile `json:"other_user,omitempty"`
	OtherUserID    string         `json:"other_user_id"`
	ID             uint64         `json:"id"`
	UnreadCount    int64          `json:"unread_count"`
}
