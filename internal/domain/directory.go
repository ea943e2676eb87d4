package domain

import "time"

// Profile is a user's public profile. Owned by the profile service; read-only here.
type Profile struct {
	UserID      string `gorm:"column:user_id;type:varchar(64);primaryKey" json:"user_id"`
	DisplayName string `gorm:"column:display_name;type:varchar(100)" json:"name"`
	AvatarURL   string `gorm:"column:avatar_url;type:varchar(500)" json:"avatar,omitempty"`
}

func (Profile) TableName() string {
	return "profiles"
}

// ToSender converts Profile to the minimal sender profile
func (p *Profile) ToSender() *SenderProfile {
	return &SenderProfile{Name: p.DisplayName, Avatar: p.AvatarURL}
}

// Group is a squad. Owned by the group service; read-only here.
type Group struct {
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	Name      string    `gorm:"column:name;type:varchar(100)" json:"name"`
	CreatorID string    `gorm:"column:creator_id;type:varchar(64)" json:"creator_id"`
	ID        uint64    `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	IsPublic  bool      `gorm:"column:is_public" json:"is_public"`
}

func (Group) TableName() string {
	return "groups"
}

// MembershipStatus of a user in a group
type MembershipStatus string

const (
	MembershipActive  MembershipStatus = "active"
	MembershipPending MembershipStatus = "pending"
	MembershipNone    MembershipStatus = "none"
)

// MemberRole tier of a user in a group
type MemberRole string

const (
	RoleAdmin     MemberRole = "admin"
	RoleModerator MemberRole = "moderator"
	RoleMember    MemberRole = "member"
	RoleNone      MemberRole = "none"
)

// GroupMember is one membership row. Owned by the group service; read-only here.
type GroupMember struct {
	UpdatedAt time.Time        `gorm:"column:updated_at" json:"updated_at"`
	UserID    string           `gorm:"column:user_id;type:varchar(64);primaryKey" json:"user_id"`
	Status    MembershipStatus `gorm:"column:status;type:varchar(16);not null" json:"status"`
	Role      MemberRole       `gorm:"column:role;type:varchar(16);not null" json:"role"`
	GroupID   uint64           `gorm:"column:group_id;primaryKey;autoIncrement:false" json:"group_id"`
}

func (GroupMember) TableName() string {
	return "group_members"
}

// Membership is the capability answer consulted by the access gate
type Membership struct {
	Status MembershipStatus `json:"status"`
	Role   MemberRole       `json:"role"`
}

// NoMembership is returned for users without a membership row
var NoMembership = Membership{Status: MembershipNone, Role: RoleNone}

// IsActive reports whether the membership allows posting
func (m Membership) IsActive() bool {
	return m.Status == MembershipActive
}
