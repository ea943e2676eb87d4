package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/courtside/courtside-chat/internal/common"
	"github.com/courtside/courtside-chat/internal/domain"
	"github.com/courtside/courtside-chat/internal/metrics"
	"github.com/courtside/courtside-chat/internal/repository"
	pkglogger "github.com/courtside/courtside-chat/pkg/logger"
	"gorm.io/gorm"
)

// SendInput is an outgoing message
type SendInput struct {
	Content  string
	ImageURL string
	// ClientID is the sender's provisional id, echoed back on the stored record
	ClientID string
}

// MessageOptions bounds pagination and content
type MessageOptions struct {
	DefaultPageSize  int
	MaxPageSize      int
	MaxContentLength int
	ImageHosts       []string
}

// DefaultMessageOptions returns the stock limits
func DefaultMessageOptions() MessageOptions {
	return MessageOptions{DefaultPageSize: 50, MaxPageSize: 100, MaxContentLength: 2000}
}

// MessageService business logic for channel history and sending
type MessageService interface {
	Send(ctx context.Context, ref domain.ChannelRef, senderID string, in SendInput) (*domain.MessageView, error)
	FetchPage(ctx context.Context, ref domain.ChannelRef, userID string, query domain.PageQuery) (*domain.Page, error)
	Edit(ctx context.Context, messageID uint64, editorID, content string) (*domain.MessageView, error)
	NotifyMembershipChange(ctx context.Context, groupID uint64, change domain.MembershipChange) error
}

type messageService struct {
	repo        repository.MessageRepository
	gate        AccessGate
	profiles    ProfileProvider
	memberships MembershipProvider
	publisher   EventPublisher
	opts        MessageOptions
	locks       *channelLocks
	now         func() time.Time
}

// NewMessageService creates a new MessageService. publisher may be nil.
func NewMessageService(
	repo repository.MessageRepository,
	gate AccessGate,
	profiles ProfileProvider,
	memberships MembershipProvider,
	publisher EventPublisher,
	opts MessageOptions,
) MessageService {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	def := DefaultMessageOptions()
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = def.DefaultPageSize
	}
	if opts.MaxPageSize < opts.DefaultPageSize {
		opts.MaxPageSize = opts.DefaultPageSize
	}
	return &messageService{
		repo:        repo,
		gate:        gate,
		profiles:    profiles,
		memberships: memberships,
		publisher:   publisher,
		opts:        opts,
		locks:       newChannelLocks(),
		now:         clock,
	}
}

// Send validates, persists and publishes one message
func (s *messageService) Send(ctx context.Context, ref domain.ChannelRef, senderID string, in SendInput) (*domain.MessageView, error) {
	content, err := common.NormalizeContent(in.Content, s.opts.MaxContentLength)
	if err != nil {
		return nil, err
	}
	if err := common.ValidateImageRef(in.ImageURL, s.opts.ImageHosts); err != nil {
		return nil, err
	}
	if err := s.gate.CanWrite(ctx, ref, senderID); err != nil {
		return nil, err
	}

	key := ref.Key()
	lock := s.locks.lock(key)
	defer s.locks.unlock(key, lock)

	msg := &domain.Message{
		ChannelType: ref.Kind,
		ChannelID:   ref.ID,
		SenderID:    senderID,
		Content:     content,
		ImageURL:    in.ImageURL,
		ClientID:    in.ClientID,
		CreatedAt:   lock.stamp(s.now()),
	}
	if err := s.repo.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("%w: store message: %v", common.ErrTransport, err)
	}
	metrics.MessagesSent.WithLabelValues(string(ref.Kind)).Inc()

	view := msg.ToView()
	s.enrich(ctx, []*domain.MessageView{view})
	s.publish(ctx, domain.Event{Type: domain.EventMessage, Channel: ref, Message: view})
	return view, nil
}

// FetchPage returns up to PageSize messages strictly older than the cursor, ascending
func (s *messageService) FetchPage(ctx context.Context, ref domain.ChannelRef, userID string, query domain.PageQuery) (*domain.Page, error) {
	if err := s.gate.CanRead(ctx, ref, userID); err != nil {
		return nil, err
	}

	switch {
	case query.PageSize <= 0:
		query.PageSize = s.opts.DefaultPageSize
	case query.PageSize > s.opts.MaxPageSize:
		query.PageSize = s.opts.MaxPageSize
	}
	if query.Before == nil {
		query.BeforeID = 0
	}

	msgs, err := s.repo.FindPage(ctx, ref, query)
	if err != nil {
		return nil, fmt.Errorf("%w: load page: %v", common.ErrTransport, err)
	}

	views := make([]*domain.MessageView, len(msgs))
	for i, m := range msgs {
		views[i] = m.ToView()
	}
	s.enrich(ctx, views)

	return &domain.Page{
		Messages: views,
		HasMore:  len(views) == query.PageSize,
	}, nil
}

// Edit replaces the content of a direct message owned by editorID
func (s *messageService) Edit(ctx context.Context, messageID uint64, editorID, content string) (*domain.MessageView, error) {
	msg, err := s.repo.FindByID(ctx, messageID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: message %d", common.ErrNotFound, messageID)
	}
	if err != nil {
		return nil, err
	}
	if msg.SenderID != editorID {
		return nil, fmt.Errorf("%w: message %d belongs to another user", common.ErrForbidden, messageID)
	}
	if msg.ChannelType != domain.ChannelDirect {
		return nil, fmt.Errorf("%w: group messages cannot be edited", common.ErrForbidden)
	}
	content, err = common.NormalizeContent(content, s.opts.MaxContentLength)
	if err != nil {
		return nil, err
	}
	// the editor may have lost access to the conversation since sending
	if err := s.gate.CanWrite(ctx, msg.Channel(), editorID); err != nil {
		return nil, err
	}

	editedAt := s.now()
	if err := s.repo.UpdateContent(ctx, messageID, content, editedAt); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: message %d", common.ErrNotFound, messageID)
		}
		return nil, fmt.Errorf("%w: update message: %v", common.ErrTransport, err)
	}
	msg.Content = content
	msg.IsEdited = true
	msg.EditedAt = &editedAt

	view := msg.ToView()
	s.enrich(ctx, []*domain.MessageView{view})
	s.publish(ctx, domain.Event{Type: domain.EventMessageEdited, Channel: msg.Channel(), Message: view})
	return view, nil
}

// NotifyMembershipChange forwards a membership or role change to the group's subscribers
func (s *messageService) NotifyMembershipChange(ctx context.Context, groupID uint64, change domain.MembershipChange) error {
	if change.UserID == "" {
		return fmt.Errorf("%w: user_id is required", common.ErrValidation)
	}
	if _, err := s.memberships.GetGroup(ctx, groupID); err != nil {
		return err
	}
	s.memberships.Invalidate(ctx, groupID, change.UserID)

	if change.ChangedAt.IsZero() {
		change.ChangedAt = s.now()
	}
	ref := domain.GroupChannel(groupID)
	if err := s.publisher.Publish(ctx, domain.Event{Type: domain.EventMembership, Channel: ref, Membership: &change}); err != nil {
		return fmt.Errorf("%w: publish membership: %v", common.ErrTransport, err)
	}
	return nil
}

// enrich joins sender profiles onto views with one batched lookup.
// A failed lookup leaves the views without profiles.
func (s *messageService) enrich(ctx context.Context, views []*domain.MessageView) {
	if len(views) == 0 || s.profiles == nil {
		return
	}
	ids := make([]string, len(views))
	for i, v := range views {
		ids[i] = v.SenderID
	}
	profiles, err := s.profiles.GetProfiles(ctx, ids)
	if err != nil {
		pkglogger.GetLogger().Warn().Err(err).Int("senders", len(ids)).Msg("profile enrichment failed")
		return
	}
	for _, v := range views {
		v.Sender = profiles[v.SenderID]
	}
}

// publish hands the event to the distributor. The message is already stored,
// so a failure here is logged and left to subscriber reconciliation.
func (s *messageService) publish(ctx context.Context, ev domain.Event) {
	if err := s.publisher.Publish(ctx, ev); err != nil {
		log := pkglogger.WithChannel(ev.Channel.Key())
		log.Warn().Err(err).
			Uint64("message_id", ev.MessageID()).
			Str("event", string(ev.Type)).
			Msg("realtime publish failed")
	}
}
