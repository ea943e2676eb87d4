package chatclient

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/courtside/courtside-chat/internal/domain"
	"github.com/courtside/courtside-chat/internal/service"
)

var epoch = time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

// fakeBackend is an in-memory channel whose live delivery the test drives
type fakeBackend struct {
	mu      sync.Mutex
	msgs    []*domain.MessageView
	nextID  uint64
	clock   time.Time
	handler func(domain.Event)
	live    bool

	// echoFirst delivers the live echo of a send before Send returns
	echoFirst    bool
	sendErr      error
	// fetchGate, when set, blocks FetchPage calls with a Before cursor
	fetchGate    chan struct{}
	fetchEntered chan struct{}
	// latestGate, when set, blocks FetchPage calls for the latest page
	latestGate chan struct{}

	markReads   int
	unsubscribe int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{clock: epoch, live: true}
}

func (b *fakeBackend) store(sender, content, clientID string) *domain.MessageView {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.clock = b.clock.Add(time.Second)
	m := &domain.MessageView{
		ID:          b.nextID,
		ChannelType: domain.ChannelDirect,
		ChannelID:   1,
		SenderID:    sender,
		Content:     content,
		ClientID:    clientID,
		CreatedAt:   b.clock,
	}
	b.msgs = append(b.msgs, m)
	return m
}

// post stores a message from another user and delivers it live if the link is up
func (b *fakeBackend) post(sender, content string) *domain.MessageView {
	m := b.store(sender, content, "")
	b.deliver(domain.Event{Type: domain.EventMessage, Channel: domain.DirectChannel(1), Message: m})
	return m
}

func (b *fakeBackend) deliver(ev domain.Event) {
	b.mu.Lock()
	h, live := b.handler, b.live
	b.mu.Unlock()
	if h != nil && (live || ev.Type == domain.EventResync || ev.Type == domain.EventLiveUnavailable) {
		h(ev)
	}
}

func (b *fakeBackend) setLive(v bool) {
	b.mu.Lock()
	b.live = v
	b.mu.Unlock()
}

func (b *fakeBackend) FetchPage(_ context.Context, _ domain.ChannelRef, _ string, q domain.PageQuery) (*domain.Page, error) {
	if q.Before != nil && b.fetchGate != nil {
		if b.fetchEntered != nil {
			b.fetchEntered <- struct{}{}
		}
		<-b.fetchGate
	}
	if q.Before == nil && b.latestGate != nil {
		if b.fetchEntered != nil {
			b.fetchEntered <- struct{}{}
		}
		<-b.latestGate
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	var older []*domain.MessageView
	for _, m := range b.msgs {
		if q.Before != nil {
			at := *q.Before
			if m.CreatedAt.After(at) || (m.CreatedAt.Equal(at) && (q.BeforeID == 0 || m.ID >= q.BeforeID)) {
				continue
			}
		}
		older = append(older, m)
	}
	sort.Slice(older, func(i, j int) bool { return older[i].Before(older[j]) })
	if len(older) > q.PageSize {
		older = older[len(older)-q.PageSize:]
	}
	return &domain.Page{Messages: older, HasMore: len(older) == q.PageSize}, nil
}

func (b *fakeBackend) Send(_ context.Context, ref domain.ChannelRef, userID string, in service.SendInput) (*domain.MessageView, error) {
	if b.sendErr != nil {
		return nil, b.sendErr
	}
	m := b.store(userID, in.Content, in.ClientID)
	if b.echoFirst {
		b.deliver(domain.Event{Type: domain.EventMessage, Channel: ref, Message: m})
	}
	return m, nil
}

func (b *fakeBackend) MarkRead(context.Context, uint64, string) error {
	b.mu.Lock()
	b.markReads++
	b.mu.Unlock()
	return nil
}

func (b *fakeBackend) Subscribe(_ domain.ChannelRef, handler func(domain.Event)) (Unsubscriber, error) {
	b.mu.Lock()
	b.handler = handler
	b.mu.Unlock()
	return unsubscribeFunc(func() {
		b.mu.Lock()
		b.unsubscribe++
		b.handler = nil
		b.mu.Unlock()
	}), nil
}

func (b *fakeBackend) subscribed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.handler != nil
}

func (b *fakeBackend) reads() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.markReads
}

type unsubscribeFunc func()

func (f unsubscribeFunc) Unsubscribe() { f() }
