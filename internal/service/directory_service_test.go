package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/courtside/courtside-chat/internal/common"
	"github.com/courtside/courtside-chat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateConversation_ConcurrentBothSides(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make([]uint64, 10)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			self, other := "ana", "ben"
			if i%2 == 1 {
				self, other = other, self
			}
			conv, err := f.directory.GetOrCreateConversation(ctx, self, other)
			if assert.NoError(t, err) {
				ids[i] = conv.ID
				assert.Equal(t, other, conv.OtherUserID)
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	var count int64
	require.NoError(t, f.db.Model(&domain.Conversation{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestGetOrCreateConversation_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.directory.GetOrCreateConversation(ctx, "ana", "ana")
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = f.directory.GetOrCreateConversation(ctx, "ana", "  ")
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestGetOrCreateConversation_ReturnsReadWatermark(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ref := f.conversation(t, "ana", "ben")

	conv, err := f.directory.GetOrCreateConversation(ctx, "ana", "ben")
	require.NoError(t, err)
	assert.Nil(t, conv.LastReadAt)

	require.NoError(t, f.directory.MarkRead(ctx, ref.ID, "ana"))
	conv, err = f.directory.GetOrCreateConversation(ctx, "ben", "ana")
	require.NoError(t, err)
	assert.Nil(t, conv.LastReadAt, "ben never read")

	conv, err = f.directory.GetOrCreateConversation(ctx, "ana", "ben")
	require.NoError(t, err)
	assert.NotNil(t, conv.LastReadAt)
}

func TestUnreadCount_ResetByMarkRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ref := f.conversation(t, "ana", "ben")

	unreadFor := func(user string) int64 {
		t.Helper()
		list, err := f.directory.ListConversations(ctx, user)
		require.NoError(t, err)
		require.Len(t, list, 1)
		return list[0].UnreadCount
	}

	for i := 0; i < 2; i++ {
		_, err := f.messages.Send(ctx, ref, "ben", SendInput{Content: "ready?"})
		require.NoError(t, err)
	}
	_, err := f.messages.Send(ctx, ref, "ana", SendInput{Content: "on my way"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), unreadFor("ana"))
	assert.Equal(t, int64(1), unreadFor("ben"))

	require.NoError(t, f.directory.MarkRead(ctx, ref.ID, "ana"))
	assert.Equal(t, int64(0), unreadFor("ana"))

	for want := int64(1); want <= 3; want++ {
		_, err := f.messages.Send(ctx, ref, "ben", SendInput{Content: "court 3"})
		require.NoError(t, err)
		assert.Equal(t, want, unreadFor("ana"))
	}

	require.NoError(t, f.directory.MarkRead(ctx, ref.ID, "ana"))
	assert.Equal(t, int64(0), unreadFor("ana"))
}

func TestUnreadCount_WatermarkIgnoresClockSkew(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ref := f.conversation(t, "ana", "ben")

	unreadFor := func(user string) int64 {
		t.Helper()
		list, err := f.directory.ListConversations(ctx, user)
		require.NoError(t, err)
		require.Len(t, list, 1)
		return list[0].UnreadCount
	}

	// another instance with a fast clock stamped this message an hour ahead
	require.NoError(t, f.msgRepo.Create(ctx, &domain.Message{
		ChannelType: ref.Kind,
		ChannelID:   ref.ID,
		SenderID:    "ben",
		Content:     "from the future",
		CreatedAt:   epoch.Add(time.Hour),
	}))
	require.NoError(t, f.directory.MarkRead(ctx, ref.ID, "ana"))
	assert.Equal(t, int64(0), unreadFor("ana"))

	// sends after the read share or trail that timestamp and still count
	for want := int64(1); want <= 2; want++ {
		_, err := f.messages.Send(ctx, ref, "ben", SendInput{Content: "court 3"})
		require.NoError(t, err)
		assert.Equal(t, want, unreadFor("ana"))
	}
}

func TestUnreadCount_SameInstantSendAfterRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ref := f.conversation(t, "ana", "ben")

	frozen := epoch.Add(time.Minute)
	f.directory.(*directoryService).now = func() time.Time { return frozen }
	f.messages.(*messageService).now = func() time.Time { return frozen }

	_, err := f.messages.Send(ctx, ref, "ben", SendInput{Content: "ready?"})
	require.NoError(t, err)
	require.NoError(t, f.directory.MarkRead(ctx, ref.ID, "ana"))
	_, err = f.messages.Send(ctx, ref, "ben", SendInput{Content: "serving"})
	require.NoError(t, err)

	list, err := f.directory.ListConversations(ctx, "ana")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(1), list[0].UnreadCount)
}

func TestListConversations_OrderedByActivity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	withBen := f.conversation(t, "ana", "ben")
	withCho := f.conversation(t, "ana", "cho")

	list, err := f.directory.ListConversations(ctx, "ana")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, withCho.ID, list[0].ID, "newer empty conversation first")
	assert.Nil(t, list[0].LastMessage)

	_, err = f.messages.Send(ctx, withBen, "ben", SendInput{Content: "doubles at 6?"})
	require.NoError(t, err)

	list, err = f.directory.ListConversations(ctx, "ana")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, withBen.ID, list[0].ID)
	assert.Equal(t, "ben", list[0].OtherUserID)
	require.NotNil(t, list[0].OtherUser)
	assert.Equal(t, "Ben", list[0].OtherUser.Name)
	require.NotNil(t, list[0].LastMessage)
	assert.Equal(t, "doubles at 6?", list[0].LastMessage.Content)
	assert.Equal(t, list[0].LastMessage.CreatedAt, list[0].LastActivityAt)

	empty, err := f.directory.ListConversations(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMarkRead_RequiresParticipant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ref := f.conversation(t, "ana", "ben")

	assert.ErrorIs(t, f.directory.MarkRead(ctx, ref.ID, "cho"), common.ErrAccessDenied)
	assert.ErrorIs(t, f.directory.MarkRead(ctx, 9999, "ana"), common.ErrNotFound)
}
