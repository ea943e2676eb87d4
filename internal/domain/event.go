package domain

import "time"

// EventType names a realtime event
type EventType string

const (
	EventMessage         EventType = "message"
	EventMessageEdited   EventType = "message_edited"
	EventMembership      EventType = "membership"
	EventResync          EventType = "resync"
	EventLiveUnavailable EventType = "live_unavailable"
)

// Event is delivered to channel subscribers
type Event struct {
	Message    *MessageView      `json:"message,omitempty"`
	Membership *MembershipChange `json:"membership,omitempty"`
	Type       EventType         `json:"type"`
	Channel    ChannelRef        `json:"channel"`
}

// MessageID returns the id of the carried message, or 0
func (e *Event) MessageID() uint64 {
	if e.Message == nil {
		return 0
	}
	return e.Message.ID
}

// MembershipChange is a membership or role transition in a group channel
type MembershipChange struct {
	ChangedAt time.Time        `json:"changed_at"`
	UserID    string           `json:"user_id" validate:"required,max=64"`
	Status    MembershipStatus `json:"status" validate:"required,oneof=active pending none"`
	Role      MemberRole       `json:"role" validate:"required,oneof=admin moderator member none"`
}
