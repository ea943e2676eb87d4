package chatclient

import (
	"context"
	"fmt"
	"testing"

	"github.com/courtside/courtside-chat/internal/common"
	"github.com/courtside/courtside-chat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSession(t *testing.T, b *fakeBackend, user string, opts Options) *Session {
	t.Helper()
	s := NewSession(b, user, domain.DirectChannel(1), opts)
	require.NoError(t, s.Open(context.Background()))
	t.Cleanup(s.Close)
	return s
}

func ids(entries []Entry) []uint64 {
	out := make([]uint64, 0, len(entries))
	for _, e := range entries {
		if e.Message != nil && !e.Pending {
			out = append(out, e.Message.ID)
		}
	}
	return out
}

func assertDistinctAscending(t *testing.T, entries []Entry) {
	t.Helper()
	seen := map[uint64]bool{}
	for i, e := range entries {
		require.False(t, e.Pending, "entry %d still pending", i)
		require.False(t, seen[e.Message.ID], "duplicate id %d", e.Message.ID)
		seen[e.Message.ID] = true
		if i > 0 {
			require.True(t, entries[i-1].Message.Before(e.Message), "not ascending at %d", i)
		}
	}
}

func TestSession_SendWithEchoShowsEachMessageOnce(t *testing.T) {
	for _, echoFirst := range []bool{true, false} {
		t.Run(fmt.Sprintf("echoFirst=%v", echoFirst), func(t *testing.T) {
			b := newFakeBackend()
			b.echoFirst = echoFirst
			s := openSession(t, b, "ana", Options{})
			ctx := context.Background()

			const n = 25
			for i := 0; i < n; i++ {
				m, err := s.Send(ctx, fmt.Sprintf("rally %d", i), "")
				require.NoError(t, err)
				if !echoFirst {
					b.deliver(domain.Event{Type: domain.EventMessage, Channel: s.Channel(), Message: m})
				}
			}

			entries := s.Messages()
			require.Len(t, entries, n)
			assertDistinctAscending(t, entries)
		})
	}
}

func TestSession_PendingEntryVisibleUntilAck(t *testing.T) {
	b := newFakeBackend()
	var s *Session
	var pendingSeen bool
	s = openSession(t, b, "ana", Options{OnChange: func() {
		if s == nil {
			return
		}
		for _, e := range s.Messages() {
			if e.Pending {
				pendingSeen = true
				assert.Equal(t, "on my way", e.Message.Content)
				assert.NotEmpty(t, e.LocalID)
			}
		}
	}})

	m, err := s.Send(context.Background(), "on my way", "")
	require.NoError(t, err)
	assert.True(t, pendingSeen)
	assert.Equal(t, []uint64{m.ID}, ids(s.Messages()))
}

func TestSession_SendFailureRestoresDraft(t *testing.T) {
	b := newFakeBackend()
	s := openSession(t, b, "ana", Options{})
	b.sendErr = fmt.Errorf("%w: not a member", common.ErrAccessDenied)

	s.SetDraft("gg")
	_, err := s.Send(context.Background(), "gg", "")
	assert.ErrorIs(t, err, common.ErrAccessDenied)
	assert.Empty(t, s.Messages())
	assert.Equal(t, "gg", s.Draft())
}

func TestSession_GapIsReconciledOnResync(t *testing.T) {
	b := newFakeBackend()
	s := openSession(t, b, "ana", Options{PageSize: 3})

	for i := 1; i <= 5; i++ {
		b.post("ben", fmt.Sprintf("msg %d", i))
	}
	require.Equal(t, []uint64{1, 2, 3, 4, 5}, ids(s.Messages()))

	// connection drops after message 5
	b.setLive(false)
	b.post("ben", "msg 6")
	b.post("ben", "msg 7")
	require.Len(t, s.Messages(), 5)

	// transport comes back
	b.setLive(true)
	b.deliver(domain.Event{Type: domain.EventResync, Channel: s.Channel()})
	assert.Equal(t, []uint64{1, 2, 3, 4, 5, 6, 7}, ids(s.Messages()))

	// a late duplicate of 7 changes nothing
	b.deliver(domain.Event{Type: domain.EventMessage, Channel: s.Channel(), Message: b.msgs[6]})
	assert.Equal(t, []uint64{1, 2, 3, 4, 5, 6, 7}, ids(s.Messages()))
}

func TestSession_ResyncWalksBackAcrossLongGap(t *testing.T) {
	b := newFakeBackend()
	s := openSession(t, b, "ana", Options{PageSize: 2})
	b.post("ben", "before the drop")

	b.setLive(false)
	for i := 0; i < 7; i++ {
		b.post("ben", "during the drop")
	}
	b.setLive(true)
	b.deliver(domain.Event{Type: domain.EventResync, Channel: s.Channel()})

	entries := s.Messages()
	require.Len(t, entries, 8)
	assertDistinctAscending(t, entries)
}

func TestSession_LoadOlderWalksWholeHistory(t *testing.T) {
	b := newFakeBackend()
	for i := 0; i < 120; i++ {
		b.store("ben", "old", "")
	}
	s := openSession(t, b, "ana", Options{PageSize: 50})
	require.Len(t, s.Messages(), 50)
	assert.True(t, s.HasMore())

	ctx := context.Background()
	for s.HasMore() {
		_, err := s.LoadOlder(ctx)
		require.NoError(t, err)
	}
	entries := s.Messages()
	require.Len(t, entries, 120)
	assertDistinctAscending(t, entries)
}

func TestSession_StaleOlderPageIsDiscarded(t *testing.T) {
	b := newFakeBackend()
	for i := 0; i < 60; i++ {
		b.store("ben", "old", "")
	}
	gate := make(chan struct{})
	b.fetchGate = gate
	b.fetchEntered = make(chan struct{}, 1)
	s := openSession(t, b, "ana", Options{PageSize: 50})

	errc := make(chan error, 1)
	go func() {
		_, err := s.LoadOlder(context.Background())
		errc <- err
	}()
	<-b.fetchEntered

	// navigate away and back while the older page is in flight
	s.Close()
	require.NoError(t, s.Open(context.Background()))
	close(gate)

	assert.ErrorIs(t, <-errc, common.ErrStalePage)
	assert.Len(t, s.Messages(), 50)
}

func TestSession_CloseDuringOpenLeavesSessionClosed(t *testing.T) {
	b := newFakeBackend()
	b.store("ben", "hello", "")
	gate := make(chan struct{})
	b.latestGate = gate
	b.fetchEntered = make(chan struct{}, 1)
	s := NewSession(b, "ana", domain.DirectChannel(1), Options{})

	errc := make(chan error, 1)
	go func() { errc <- s.Open(context.Background()) }()
	<-b.fetchEntered

	// the user leaves before the first page arrives
	s.Close()
	close(gate)

	assert.ErrorIs(t, <-errc, common.ErrStalePage)
	assert.False(t, s.IsOpen())
	assert.False(t, b.subscribed())
	assert.Zero(t, b.reads())
	assert.Empty(t, s.Messages())

	// a later Open still works
	b.latestGate = nil
	require.NoError(t, s.Open(context.Background()))
	t.Cleanup(s.Close)
	assert.True(t, s.IsOpen())
	assert.Equal(t, 1, b.reads())
}

func TestSession_EditAppliedInPlace(t *testing.T) {
	b := newFakeBackend()
	s := openSession(t, b, "ana", Options{})
	first := b.post("ben", "3pm")
	b.post("ben", "court 2")

	edited := *first
	edited.Content = "4pm"
	edited.IsEdited = true
	b.deliver(domain.Event{Type: domain.EventMessageEdited, Channel: s.Channel(), Message: &edited})

	entries := s.Messages()
	require.Len(t, entries, 2)
	assert.Equal(t, "4pm", entries[0].Message.Content)
	assert.True(t, entries[0].Message.IsEdited)
}

func TestSession_MarksReadOnOpenAndIncoming(t *testing.T) {
	b := newFakeBackend()
	s := openSession(t, b, "ana", Options{})
	assert.Equal(t, 1, b.reads())

	b.post("ben", "you up?")
	assert.Equal(t, 2, b.reads())

	_, err := s.Send(context.Background(), "yes", "")
	require.NoError(t, err)
	assert.Equal(t, 2, b.reads(), "own messages do not mark read")
}

func TestSession_GroupSessionForwardsMembership(t *testing.T) {
	b := newFakeBackend()
	var changes []domain.MembershipChange
	s := NewSession(b, "ana", domain.GroupChannel(4), Options{
		OnMembership: func(c domain.MembershipChange) { changes = append(changes, c) },
	})
	require.NoError(t, s.Open(context.Background()))
	defer s.Close()

	b.deliver(domain.Event{
		Type:       domain.EventMembership,
		Channel:    domain.GroupChannel(4),
		Membership: &domain.MembershipChange{UserID: "ben", Status: domain.MembershipActive, Role: domain.RoleModerator},
	})
	require.Len(t, changes, 1)
	assert.Equal(t, domain.RoleModerator, changes[0].Role)
	assert.Zero(t, b.reads(), "group channels keep no read state")
}

func TestSession_LiveUnavailableFallsBackToRefresh(t *testing.T) {
	b := newFakeBackend()
	s := openSession(t, b, "ana", Options{})

	b.setLive(false)
	b.deliver(domain.Event{Type: domain.EventLiveUnavailable, Channel: s.Channel()})
	assert.True(t, s.LiveUnavailable())

	b.post("ben", "anyone?")
	assert.Empty(t, s.Messages())

	require.NoError(t, s.Refresh(context.Background()))
	assert.Len(t, s.Messages(), 1)

	b.setLive(true)
	b.deliver(domain.Event{Type: domain.EventResync, Channel: s.Channel()})
	assert.False(t, s.LiveUnavailable())
}

func TestSession_CloseIsIdempotentAndStopsEvents(t *testing.T) {
	b := newFakeBackend()
	s := NewSession(b, "ana", domain.DirectChannel(1), Options{})
	require.NoError(t, s.Open(context.Background()))
	handler := b.handler

	s.Close()
	s.Close()
	assert.Equal(t, 1, b.unsubscribe)
	assert.False(t, s.IsOpen())

	// a late event from the old subscription is ignored
	handler(domain.Event{Type: domain.EventMessage, Channel: s.Channel(), Message: &domain.MessageView{ID: 99, SenderID: "ben"}})
	assert.Empty(t, s.Messages())

	_, err := s.Send(context.Background(), "hi", "")
	assert.ErrorIs(t, err, common.ErrChannelClosed)
	_, err = s.LoadOlder(context.Background())
	assert.ErrorIs(t, err, common.ErrChannelClosed)
}
