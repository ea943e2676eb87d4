package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/courtside/courtside-chat/internal/common"
	"github.com/courtside/courtside-chat/internal/domain"
	"github.com/courtside/courtside-chat/internal/repository"
	"gorm.io/gorm"
)

// DirectoryService resolves direct conversations and tracks read state
type DirectoryService interface {
	GetOrCreateConversation(ctx context.Context, selfID, otherID string) (*domain.ConversationResponse, error)
	GetConversation(ctx context.Context, conversationID uint64, selfID string) (*domain.Conversation, error)
	ListConversations(ctx context.Context, selfID string) ([]*domain.ConversationSummary, error)
	MarkRead(ctx context.Context, conversationID uint64, selfID string) error
}

type directoryService struct {
	convRepo repository.ConversationRepository
	msgRepo  repository.MessageRepository
	profiles ProfileProvider
	now      func() time.Time
}

// NewDirectoryService creates a new DirectoryService
func NewDirectoryService(convRepo repository.ConversationRepository, msgRepo repository.MessageRepository, profiles ProfileProvider) DirectoryService {
	return &directoryService{
		convRepo: convRepo,
		msgRepo:  msgRepo,
		profiles: profiles,
		now:      clock,
	}
}

// GetOrCreateConversation returns the conversation of the pair, creating it on first contact
func (s *directoryService) GetOrCreateConversation(ctx context.Context, selfID, otherID string) (*domain.ConversationResponse, error) {
	selfID = strings.TrimSpace(selfID)
	otherID = strings.TrimSpace(otherID)
	if selfID == "" || otherID == "" {
		return nil, fmt.Errorf("%w: both participants are required", common.ErrValidation)
	}
	if selfID == otherID {
		return nil, fmt.Errorf("%w: cannot start a conversation with yourself", common.ErrValidation)
	}

	conv, err := s.convRepo.FindByPair(ctx, selfID, otherID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		conv, err = s.convRepo.CreateIfAbsent(ctx, &domain.Conversation{
			UserLow:   selfID,
			UserHigh:  otherID,
			CreatedAt: s.now(),
		})
	}
	if err != nil {
		return nil, err
	}

	resp := &domain.ConversationResponse{
		ID:          conv.ID,
		OtherUserID: conv.Other(selfID),
		CreatedAt:   conv.CreatedAt,
	}
	state, err := s.convRepo.GetReadState(ctx, conv.Channel(), selfID)
	if err != nil {
		return nil, err
	}
	if state != nil {
		resp.LastReadAt = &state.LastReadAt
	}
	return resp, nil
}

// GetConversation returns the conversation if selfID participates in it
func (s *directoryService) GetConversation(ctx context.Context, conversationID uint64, selfID string) (*domain.Conversation, error) {
	conv, err := s.convRepo.FindByID(ctx, conversationID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: conversation %d", common.ErrNotFound, conversationID)
	}
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(selfID) {
		return nil, fmt.Errorf("%w: not a participant of conversation %d", common.ErrAccessDenied, conversationID)
	}
	return conv, nil
}

// ListConversations returns the user's conversations, most recently active first
func (s *directoryService) ListConversations(ctx context.Context, selfID string) ([]*domain.ConversationSummary, error) {
	convs, err := s.convRepo.ListByUser(ctx, selfID)
	if err != nil {
		return nil, err
	}
	if len(convs) == 0 {
		return []*domain.ConversationSummary{}, nil
	}

	ids := make([]uint64, len(convs))
	others := make([]string, len(convs))
	for i, c := range convs {
		ids[i] = c.ID
		others[i] = c.Other(selfID)
	}

	latest, err := s.msgRepo.LatestByChannels(ctx, domain.ChannelDirect, ids)
	if err != nil {
		return nil, err
	}
	unread, err := s.msgRepo.CountUnread(ctx, ids, selfID)
	if err != nil {
		return nil, err
	}

	senders := append([]string(nil), others...)
	for _, m := range latest {
		senders = append(senders, m.SenderID)
	}
	profiles, err := s.profiles.GetProfiles(ctx, senders)
	if err != nil {
		return nil, err
	}

	summaries := make([]*domain.ConversationSummary, len(convs))
	for i, c := range convs {
		sum := &domain.ConversationSummary{
			ID:             c.ID,
			OtherUserID:    others[i],
			OtherUser:      profiles[others[i]],
			UnreadCount:    unread[c.ID],
			LastActivityAt: c.CreatedAt,
		}
		if m, ok := latest[c.ID]; ok {
			view := m.ToView()
			view.Sender = profiles[m.SenderID]
			sum.LastMessage = view
			sum.LastActivityAt = m.CreatedAt
		}
		summaries[i] = sum
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		a, b := summaries[i], summaries[j]
		if !a.LastActivityAt.Equal(b.LastActivityAt) {
			return a.LastActivityAt.After(b.LastActivityAt)
		}
		return a.ID > b.ID
	})
	return summaries, nil
}

// MarkRead moves the user's read watermark of the conversation to its newest message
func (s *directoryService) MarkRead(ctx context.Context, conversationID uint64, selfID string) error {
	conv, err := s.GetConversation(ctx, conversationID, selfID)
	if err != nil {
		return err
	}
	ref := conv.Channel()
	latest, err := s.msgRepo.LatestByChannels(ctx, ref.Kind, []uint64{ref.ID})
	if err != nil {
		return err
	}

	state := &domain.ReadState{
		ChannelType: ref.Kind,
		ChannelID:   ref.ID,
		UserID:      selfID,
		LastReadAt:  s.now(),
	}
	// never behind a message that was already visible when the user read
	if m := latest[ref.ID]; m != nil {
		state.LastReadMessageID = m.ID
		if m.CreatedAt.After(state.LastReadAt) {
			state.LastReadAt = m.CreatedAt.UTC()
		}
	}
	return s.convRepo.UpsertReadState(ctx, state)
}
