package chatclient

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/courtside/courtside-chat/internal/common"
	"github.com/courtside/courtside-chat/internal/domain"
	"github.com/courtside/courtside-chat/internal/service"
	pkglogger "github.com/courtside/courtside-chat/pkg/logger"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	defaultPageSize = 50
	// reconcileMaxPages bounds how far back a resync walks to close a gap
	reconcileMaxPages = 10
	reconcileTimeout  = 15 * time.Second
)

// Entry is one row of the session view
type Entry struct {
	Message *domain.MessageView
	// LocalID is the provisional id of an outgoing message
	LocalID string
	Pending bool
}

// Options configures a Session
type Options struct {
	PageSize int
	// OnChange is called after every change of the view, outside the session lock
	OnChange func()
	// OnMembership receives membership and role changes of group channels
	OnMembership func(domain.MembershipChange)
}

// Session is one user's open view of one channel. Each session tracks its
// own window, cursor and dedupe state, so several sessions of the same user
// can be open on the same channel.
type Session struct {
	backend Backend
	userID  string
	ref     domain.ChannelRef
	opts    Options

	mu      sync.Mutex
	win     *window
	pending []*Entry
	sub     Unsubscriber
	open    bool
	// generation changes on every Open and Close; results of calls started
	// under another generation are discarded
	generation      uint64
	hasMore         bool
	liveUnavailable bool
	draft           string
	now             func() time.Time
}

// NewSession creates a closed session for userID on ref
func NewSession(backend Backend, userID string, ref domain.ChannelRef, opts Options) *Session {
	if opts.PageSize <= 0 {
		opts.PageSize = defaultPageSize
	}
	return &Session{
		backend: backend,
		userID:  userID,
		ref:     ref,
		opts:    opts,
		win:     newWindow(),
		now:     time.Now,
	}
}

// Channel returns the channel of the session
func (s *Session) Channel() domain.ChannelRef { return s.ref }

// Open loads the latest page, subscribes and marks a direct conversation read.
// A rejected read leaves the session closed.
func (s *Session) Open(ctx context.Context) error {
	s.mu.Lock()
	if s.open {
		s.mu.Unlock()
		return nil
	}
	s.generation++
	gen := s.generation
	s.win.reset()
	s.pending = nil
	s.liveUnavailable = false
	s.mu.Unlock()

	page, err := s.backend.FetchPage(ctx, s.ref, s.userID, domain.PageQuery{PageSize: s.opts.PageSize})
	if err != nil {
		return err
	}
	if !s.current(gen) {
		return common.ErrStalePage
	}

	sub, err := s.backend.Subscribe(s.ref, func(ev domain.Event) { s.handle(gen, ev) })
	if err != nil {
		return fmt.Errorf("%w: subscribe %s: %v", common.ErrTransport, s.ref, err)
	}

	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		sub.Unsubscribe()
		return common.ErrStalePage
	}
	s.open = true
	s.sub = sub
	s.win.merge(page.Messages)
	s.hasMore = page.HasMore
	s.mu.Unlock()

	// messages committed between the first page and the subscription
	if err := s.reconcile(ctx, gen); err != nil {
		s.logger().Warn().Err(err).Msg("post-subscribe reconcile failed")
	}
	s.markRead(ctx)
	s.changed()
	return nil
}

// Close unsubscribes and drops the view. Safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	sub := s.sub
	s.sub = nil
	// also invalidates an Open still waiting on its first page
	s.generation++
	s.open = false
	s.pending = nil
	s.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
}

func (s *Session) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation == gen
}

// IsOpen reports whether the session is open
func (s *Session) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// Messages returns the view: confirmed messages in (created_at, id) order
// followed by pending outgoing messages in send order
func (s *Session) Messages() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, 0, s.win.len()+len(s.pending))
	for _, m := range s.win.snapshot() {
		out = append(out, Entry{Message: m})
	}
	for _, p := range s.pending {
		out = append(out, *p)
	}
	return out
}

// HasMore reports whether older history may exist
func (s *Session) HasMore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasMore
}

// LiveUnavailable reports whether live delivery gave up; use Refresh meanwhile
func (s *Session) LiveUnavailable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.liveUnavailable
}

// Draft returns the unsent input, restored after a failed send
func (s *Session) Draft() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// SetDraft stores the user's current input
func (s *Session) SetDraft(text string) {
	s.mu.Lock()
	s.draft = text
	s.mu.Unlock()
}

// LoadOlder fetches the page before the oldest loaded message and merges it.
// It returns common.ErrStalePage when the session was closed or reopened
// while the page was in flight; the late page is discarded.
func (s *Session) LoadOlder(ctx context.Context) (int, error) {
	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		return 0, common.ErrChannelClosed
	}
	gen := s.generation
	query := domain.PageQuery{PageSize: s.opts.PageSize}
	if oldest := s.win.oldest(); oldest != nil {
		before := oldest.CreatedAt
		query.Before = &before
		query.BeforeID = oldest.ID
	}
	s.mu.Unlock()

	page, err := s.backend.FetchPage(ctx, s.ref, s.userID, query)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	if !s.open || s.generation != gen {
		s.mu.Unlock()
		return 0, common.ErrStalePage
	}
	added := s.win.merge(page.Messages)
	s.hasMore = page.HasMore
	s.mu.Unlock()

	s.changed()
	return added, nil
}

// Send optimistically shows content, stores it and swaps the provisional
// entry for the stored record. On failure the entry is removed, the draft is
// restored and the error returned; nothing is retried.
func (s *Session) Send(ctx context.Context, content, imageURL string) (*domain.MessageView, error) {
	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		return nil, common.ErrChannelClosed
	}
	gen := s.generation
	entry := &Entry{
		LocalID: uuid.NewString(),
		Pending: true,
		Message: &domain.MessageView{
			ChannelType: s.ref.Kind,
			ChannelID:   s.ref.ID,
			SenderID:    s.userID,
			Content:     content,
			ImageURL:    imageURL,
			CreatedAt:   s.now().UTC(),
		},
	}
	entry.Message.ClientID = entry.LocalID
	s.pending = append(s.pending, entry)
	s.draft = ""
	s.mu.Unlock()
	s.changed()

	view, err := s.backend.Send(ctx, s.ref, s.userID, service.SendInput{
		Content:  content,
		ImageURL: imageURL,
		ClientID: entry.LocalID,
	})

	s.mu.Lock()
	s.removePending(entry.LocalID)
	if err != nil {
		if s.draft == "" {
			s.draft = content
		}
		s.mu.Unlock()
		s.changed()
		return nil, err
	}
	if s.open && s.generation == gen {
		// the echo may have arrived first; insert dedupes by id
		s.win.insert(view)
	}
	s.mu.Unlock()

	s.changed()
	return view, nil
}

// Refresh reconciles the view with the latest page. Used as the manual
// fallback while live updates are unavailable.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		return common.ErrChannelClosed
	}
	gen := s.generation
	s.mu.Unlock()

	if err := s.reconcile(ctx, gen); err != nil {
		return err
	}
	s.markRead(ctx)
	s.changed()
	return nil
}

// reconcile fetches the latest page and keeps walking back until it overlaps
// the loaded tail, so messages missed while live delivery was down appear
// exactly once.
func (s *Session) reconcile(ctx context.Context, gen uint64) error {
	query := domain.PageQuery{PageSize: s.opts.PageSize}

	for i := 0; i < reconcileMaxPages; i++ {
		page, err := s.backend.FetchPage(ctx, s.ref, s.userID, query)
		if err != nil {
			return err
		}

		s.mu.Lock()
		if !s.open || s.generation != gen {
			s.mu.Unlock()
			return common.ErrStalePage
		}
		overlap := false
		for _, m := range page.Messages {
			if s.win.has(m.ID) {
				overlap = true
				break
			}
		}
		empty := s.win.len() == 0
		s.win.merge(page.Messages)
		s.mu.Unlock()

		oldest := page.Oldest()
		if overlap || empty || !page.HasMore || oldest == nil {
			return nil
		}
		before := oldest.CreatedAt
		query.Before = &before
		query.BeforeID = oldest.ID
	}
	return nil
}

// handle applies one live event. gen pins the event to the Open it was subscribed under.
func (s *Session) handle(gen uint64, ev domain.Event) {
	s.mu.Lock()
	if !s.open || s.generation != gen {
		s.mu.Unlock()
		return
	}

	markRead := false
	switch ev.Type {
	case domain.EventMessage:
		if ev.Message == nil {
			s.mu.Unlock()
			return
		}
		if ev.Message.SenderID == s.userID && ev.Message.ClientID != "" {
			s.removePending(ev.Message.ClientID)
		}
		added := s.win.insert(ev.Message)
		markRead = added && s.ref.Kind == domain.ChannelDirect && ev.Message.SenderID != s.userID
		s.mu.Unlock()

	case domain.EventMessageEdited:
		if ev.Message != nil {
			s.win.replace(ev.Message)
		}
		s.mu.Unlock()

	case domain.EventMembership:
		s.mu.Unlock()
		if ev.Membership != nil && s.opts.OnMembership != nil {
			s.opts.OnMembership(*ev.Membership)
		}

	case domain.EventResync:
		s.liveUnavailable = false
		s.mu.Unlock()
		ctx, cancel := context.WithTimeout(context.Background(), reconcileTimeout)
		defer cancel()
		if err := s.reconcile(ctx, gen); err != nil {
			s.logger().Warn().Err(err).Msg("resync reconcile failed")
		}
		markRead = s.ref.Kind == domain.ChannelDirect

	case domain.EventLiveUnavailable:
		s.liveUnavailable = true
		s.mu.Unlock()

	default:
		s.mu.Unlock()
		return
	}

	if markRead {
		ctx, cancel := context.WithTimeout(context.Background(), reconcileTimeout)
		s.markRead(ctx)
		cancel()
	}
	s.changed()
}

// markRead is a no-op for group channels, which keep no read state
func (s *Session) markRead(ctx context.Context) {
	if s.ref.Kind != domain.ChannelDirect {
		return
	}
	if err := s.backend.MarkRead(ctx, s.ref.ID, s.userID); err != nil {
		s.logger().Warn().Err(err).Msg("mark read failed")
	}
}

// removePending drops a provisional entry. Caller holds s.mu.
func (s *Session) removePending(localID string) {
	for i, p := range s.pending {
		if p.LocalID == localID {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return
		}
	}
}

func (s *Session) changed() {
	if s.opts.OnChange != nil {
		s.opts.OnChange()
	}
}

func (s *Session) logger() *zerolog.Logger {
	l := pkglogger.WithChannel(s.ref.Key()).With().Str("user_id", s.userID).Logger()
	return &l
}
