package domain

import "time"

// Message is one immutable chat record (chat_messages table).
// Direct and group messages share the table and are told apart by ChannelType.
type Message struct {
	CreatedAt   time.Time   `gorm:"column:created_at;precision:6;not null;index:idx_chat_messages_channel,priority:3" json:"created_at"`
	EditedAt    *time.Time  `gorm:"column:edited_at;precision:6" json:"edited_at,omitempty"`
	ChannelType ChannelKind `gorm:"column:channel_type;type:varchar(8);not null;index:idx_chat_messages_channel,priority:1" json:"channel_type"`
	SenderID    string      `gorm:"column:sender_id;type:varchar(64);not null;index" json:"sender_id"`
	Content     string      `gorm:"column:content;type:text;not null" json:"content"`
	ImageURL    string      `gorm:"column:image_url;type:varchar(500)" json:"image_url,omitempty"`
	ClientID    string      `gorm:"column:client_id;type:varchar(64)" json:"client_id,omitempty"`
	ID          uint64      `gorm:"column:id;primaryKey;autoIncrement;index:idx_chat_messages_channel,priority:4" json:"id"`
	ChannelID   uint64      `gorm:"column:channel_id;not null;index:idx_chat_messages_channel,priority:2" json:"channel_id"`
	IsEdited    bool        `gorm:"column:is_edited;not null;default:false" json:"is_edited"`
}

func (Message) TableName() string {
	return "chat_messages"
}

// Channel returns the channel the message belongs to
func (m *Message) Channel() ChannelRef {
	return ChannelRef{Kind: m.ChannelType, ID: m.ChannelID}
}

// SenderProfile is the minimal profile joined onto every returned message
type SenderProfile struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// MessageView is the wire record of a message
type MessageView struct {
	CreatedAt   time.Time      `json:"created_at"`
	EditedAt    *time.Time     `json:"edited_at,omitempty"`
	Sender      *SenderProfile `json:"sender,omitempty"`
	ChannelType ChannelKind    `json:"channel_type"`
	SenderID    string         `json:"sender_id"`
	Content     string         `json:"content"`
	ImageURL    string         `json:"image_url,omitempty"`
	ClientID    string         `json:"client_id,omitempty"`
	ID          uint64         `json:"id"`
	ChannelID   uint64         `json:"channel_id"`
	IsEdited    bool           `json:"is_edited"`
}

// ToView converts Message to its wire record without a sender profile
func (m *Message) ToView() *MessageView {
	return &MessageView{
		ID:          m.ID,
		ChannelType: m.ChannelType,
		ChannelID:   m.ChannelID,
		SenderID:    m.SenderID,
		Content:     m.Content,
		ImageURL:    m.ImageURL,
		ClientID:    m.ClientID,
		CreatedAt:   m.CreatedAt,
		IsEdited:    m.IsEdited,
		EditedAt:    m.EditedAt,
	}
}

// Channel returns the channel the view belongs to
func (v *MessageView) Channel() ChannelRef {
	return ChannelRef{Kind: v.ChannelType, ID: v.ChannelID}
}

// Before reports whether v sorts before o in (created_at, id) order
func (v *MessageView) Before(o *MessageView) bool {
	if !v.CreatedAt.Equal(o.CreatedAt) {
		return v.CreatedAt.Before(o.CreatedAt)
	}
	return v.ID < o.ID
}

// SendMessageRequest represents a send message request
type SendMessageRequest struct {
	Content  string `json:"content" validate:"max=8000"`
	ImageURL string `json:"image_url" validate:"omitempty,url,max=500"`
	ClientID string `json:"client_id" validate:"omitempty,max=64"`
}

// EditMessageRequest represents an edit message request
type EditMessageRequest struct {
	Content string `json:"content" validate:"max=8000"`
}

// PageQuery selects a slice of channel history.
// A zero Before returns the newest page. BeforeID, when set, makes the
// cursor the compound (Before, BeforeID) instead of the timestamp alone.
type PageQuery struct {
	Before   *time.Time
	BeforeID uint64
	PageSize int
}

// Page is a bounded slice of history in ascending (created_at, id) order
type Page struct {
	Messages []*MessageView `json:"messages"`
	HasMore  bool           `json:"has_more"`
}

// Oldest returns the first message of the page, or nil when empty
func (p *Page) Oldest() *MessageView {
	if p == nil || len(p.Messages) == 0 {
		return nil
	}
	return p.Messages[0]
}
