package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/courtside/courtside-chat/internal/domain"
	"github.com/courtside/courtside-chat/internal/migration"
	"github.com/courtside/courtside-chat/internal/repository"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var epoch = time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

// stepClock advances one second per reading
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Events() []domain.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.Event(nil), p.events...)
}

type fixture struct {
	db        *gorm.DB
	convRepo  repository.ConversationRepository
	msgRepo   repository.MessageRepository
	directory DirectoryService
	messages  MessageService
	pub       *recordingPublisher
	clock     *stepClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, migration.Run(db))
	require.NoError(t, db.AutoMigrate(&domain.Profile{}, &domain.Group{}, &domain.GroupMember{}))
	require.NoError(t, db.Create([]*domain.Profile{
		{UserID: "ana", DisplayName: "Ana", AvatarURL: "https://cdn.courtside.dev/ana.png"},
		{UserID: "ben", DisplayName: "Ben"},
		{UserID: "cho", DisplayName: "Cho"},
	}).Error)

	f := &fixture{
		db:       db,
		convRepo: repository.NewConversationRepository(db),
		msgRepo:  repository.NewMessageRepository(db),
		pub:      &recordingPublisher{},
		clock:    &stepClock{t: epoch},
	}
	profiles := NewProfileProvider(repository.NewProfileRepository(db), nil)
	memberships := NewMembershipProvider(repository.NewGroupRepository(db), nil)
	gate := NewAccessGate(f.convRepo, memberships)

	dir := NewDirectoryService(f.convRepo, f.msgRepo, profiles).(*directoryService)
	dir.now = f.clock.Now
	f.directory = dir

	msgs := NewMessageService(f.msgRepo, gate, profiles, memberships, f.pub, DefaultMessageOptions()).(*messageService)
	msgs.now = f.clock.Now
	f.messages = msgs
	return f
}

func (f *fixture) conversation(t *testing.T, a, b string) domain.ChannelRef {
	t.Helper()
	conv, err := f.directory.GetOrCreateConversation(context.Background(), a, b)
	require.NoError(t, err)
	return domain.DirectChannel(conv.ID)
}

func (f *fixture) group(t *testing.T, id uint64, creator string, public bool, members ...domain.GroupMember) domain.ChannelRef {
	t.Helper()
	require.NoError(t, f.db.Create(&domain.Group{ID: id, Name: "Squad", CreatorID: creator, IsPublic: public, CreatedAt: epoch}).Error)
	for i := range members {
		members[i].GroupID = id
		require.NoError(t, f.db.Create(&members[i]).Error)
	}
	return domain.GroupChannel(id)
}
