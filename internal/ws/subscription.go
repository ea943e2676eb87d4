package ws

import (
	"sync"
	"sync/atomic"

	"github.com/courtside/courtside-chat/internal/domain"
	"github.com/courtside/courtside-chat/internal/metrics"
)

// Handler receives the events of one subscription, one at a time, in publish order
type Handler func(ev domain.Event)

// Subscription is one open channel. Events are queued per subscription and
// handed to the handler by a dedicated goroutine.
type Subscription struct {
	hub     *Hub
	ref     domain.ChannelRef
	handler Handler

	queue chan domain.Event
	// kick wakes the drain loop after an overflow on an empty queue
	kick     chan struct{}
	overflow atomic.Bool

	seen *recentIDs

	done chan struct{}
	once sync.Once
}

func newSubscription(h *Hub, ref domain.ChannelRef, handler Handler, buffer int) *Subscription {
	return &Subscription{
		hub:     h,
		ref:     ref,
		handler: handler,
		queue:   make(chan domain.Event, buffer),
		kick:    make(chan struct{}, 1),
		seen:    newRecentIDs(recentIDCapacity),
		done:    make(chan struct{}),
	}
}

// Channel returns the subscribed channel
func (s *Subscription) Channel() domain.ChannelRef {
	return s.ref
}

// Done is closed once the subscription has been cancelled
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Unsubscribe stops delivery. Safe to call more than once and from inside the handler.
// A handler call already in progress is allowed to finish.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		close(s.done)
		s.hub.remove(s)
	})
}

func (s *Subscription) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// enqueue is called from the hub loop and never blocks. A full queue marks
// the subscription so the drain loop emits a resync instead of the lost events.
func (s *Subscription) enqueue(ev domain.Event) {
	if s.closed() {
		return
	}
	select {
	case s.queue <- ev:
	default:
		s.overflow.Store(true)
		metrics.RealtimeOverflow.Inc()
		select {
		case s.kick <- struct{}{}:
		default:
		}
	}
}

func (s *Subscription) drain() {
	for {
		select {
		case <-s.done:
			return
		case <-s.hub.ctx.Done():
			s.Unsubscribe()
			return
		case ev := <-s.queue:
			s.dispatch(ev)
		case <-s.kick:
		}

		if len(s.queue) == 0 && s.overflow.CompareAndSwap(true, false) {
			s.dispatch(domain.Event{Type: domain.EventResync, Channel: s.ref})
		}
	}
}

func (s *Subscription) dispatch(ev domain.Event) {
	if s.closed() {
		return
	}
	if ev.Type == domain.EventMessage && !s.seen.add(ev.MessageID()) {
		return
	}
	metrics.RealtimeDeliveries.WithLabelValues(string(ev.Type)).Inc()
	s.handler(ev)
}

const recentIDCapacity = 512

// recentIDs remembers the last N message ids delivered to one subscription
type recentIDs struct {
	ring []uint64
	set  map[uint64]struct{}
	next int
}

func newRecentIDs(capacity int) *recentIDs {
	return &recentIDs{
		ring: make([]uint64, 0, capacity),
		set:  make(map[uint64]struct{}, capacity),
	}
}

// add records id and reports whether it was new
func (r *recentIDs) add(id uint64) bool {
	if id == 0 {
		return true
	}
	if _, ok := r.set[id]; ok {
		return false
	}
	if len(r.ring) < cap(r.ring) {
		r.ring = append(r.ring, id)
	} else {
		delete(r.set, r.ring[r.next])
		r.ring[r.next] = id
		r.next = (r.next + 1) % len(r.ring)
	}
	r.set[id] = struct{}{}
	return true
}
