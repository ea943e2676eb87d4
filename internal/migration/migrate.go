package migration

import (
	"time"

	"github.com/courtside/courtside-chat/internal/domain"
	"gorm.io/gorm"
)

// Run executes AutoMigrate for the chat tables.
// This is safe to run multiple times (AutoMigrate is idempotent).
func Run(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Conversation{},
		&domain.Message{},
		&domain.ReadState{},
	)
}

// RunDirectory creates the profile and group tables owned by other services,
// for local development and tests, and seeds demo data if they are empty.
func RunDirectory(db *gorm.DB) error {
	if err := db.AutoMigrate(&domain.Profile{}, &domain.Group{}, &domain.GroupMember{}); err != nil {
		return err
	}

	var count int64
	db.Model(&domain.Profile{}).Count(&count)
	if count == 0 {
		return seedDirectory(db)
	}
	return nil
}

func seedDirectory(db *gorm.DB) error {
	now := time.Now().UTC()

	profiles := []domain.Profile{
		{UserID: "demo-ana", DisplayName: "Ana", AvatarURL: "https://cdn.courtside.dev/avatars/ana.png"},
		{UserID: "demo-ben", DisplayName: "Ben"},
		{UserID: "demo-cho", DisplayName: "Cho"},
	}
	groups := []domain.Group{
		{ID: 1, Name: "Sunrise Dinkers", CreatorID: "demo-ana", IsPublic: true, CreatedAt: now},
		{ID: 2, Name: "Friday Ladder", CreatorID: "demo-ben", IsPublic: false, CreatedAt: now},
	}
	members := []domain.GroupMember{
		{GroupID: 1, UserID: "demo-ana", Status: domain.MembershipActive, Role: domain.RoleAdmin, UpdatedAt: now},
		{GroupID: 1, UserID: "demo-ben", Status: domain.MembershipActive, Role: domain.RoleMember, UpdatedAt: now},
		{GroupID: 1, UserID: "demo-cho", Status: domain.MembershipPending, Role: domain.RoleMember, UpdatedAt: now},
		{GroupID: 2, UserID: "demo-ben", Status: domain.MembershipActive, Role: domain.RoleAdmin, UpdatedAt: now},
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&profiles).Error; err != nil {
			return err
		}
		if err := tx.Create(&groups).Error; err != nil {
			return err
		}
		return tx.Create(&members).Error
	})
}
