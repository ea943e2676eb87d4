package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/courtside/courtside-chat/internal/common"
	"github.com/courtside/courtside-chat/internal/domain"
	"github.com/courtside/courtside-chat/internal/metrics"
	pkglogger "github.com/courtside/courtside-chat/pkg/logger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Options tunes the hub
type Options struct {
	// SubscriberBuffer is the queue length of each subscription
	SubscriberBuffer int
	// ResubscribeMaxElapsed bounds one round of transport retries before
	// subscribers are told live updates are unavailable
	ResubscribeMaxElapsed time.Duration
	// InitialInterval of the resubscribe backoff
	InitialInterval time.Duration
	// PublishRetries is how often a failed transport publish is retried
	// before the channel is queued for a resync broadcast
	PublishRetries uint64
	// PublishInterval is the pause between publish retries
	PublishInterval time.Duration
}

// DefaultOptions returns the stock hub options
func DefaultOptions() Options {
	return Options{
		SubscriberBuffer:      64,
		ResubscribeMaxElapsed: 30 * time.Second,
		InitialInterval:       250 * time.Millisecond,
		PublishRetries:        2,
		PublishInterval:       50 * time.Millisecond,
	}
}

// Hub fans published events out to channel subscriptions on this instance and,
// through the transport, to every other instance.
type Hub struct {
	// Subscriptions grouped by channel key
	topics map[string]map[*Subscription]struct{}

	register   chan *Subscription
	unregister chan *Subscription
	broadcast  chan domain.Event
	// control events go to every subscription regardless of channel
	control chan domain.EventType

	mu         sync.RWMutex
	transport  Transport
	instanceID string
	opts       Options
	live       atomic.Bool

	// channels whose events never reached the transport; other instances
	// are sent a resync for each once publishing works again
	missedMu sync.Mutex
	missed   map[string]domain.ChannelRef
	flushing bool

	ctx    context.Context
	cancel context.CancelFunc
}

type envelope struct {
	Origin string       `json:"origin"`
	Event  domain.Event `json:"event"`
}

// NewHub creates a new Hub. A nil redis client keeps the hub single-instance.
func NewHub(redisClient *redis.Client, opts Options) *Hub {
	var t Transport
	if redisClient != nil {
		t = NewRedisTransport(redisClient)
	}
	return NewHubWithTransport(t, opts)
}

// NewHubWithTransport creates a Hub over an arbitrary transport (nil for none)
func NewHubWithTransport(t Transport, opts Options) *Hub {
	def := DefaultOptions()
	if opts.SubscriberBuffer <= 0 {
		opts.SubscriberBuffer = def.SubscriberBuffer
	}
	if opts.ResubscribeMaxElapsed <= 0 {
		opts.ResubscribeMaxElapsed = def.ResubscribeMaxElapsed
	}
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = def.InitialInterval
	}
	if opts.PublishRetries == 0 {
		opts.PublishRetries = def.PublishRetries
	}
	if opts.PublishInterval <= 0 {
		opts.PublishInterval = def.PublishInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		topics:     make(map[string]map[*Subscription]struct{}),
		register:   make(chan *Subscription),
		unregister: make(chan *Subscription),
		broadcast:  make(chan domain.Event, 256),
		control:    make(chan domain.EventType, 8),
		transport:  t,
		instanceID: uuid.NewString(),
		opts:       opts,
		missed:     make(map[string]domain.ChannelRef),
		ctx:        ctx,
		cancel:     cancel,
	}
	h.live.Store(true)
	return h
}

// Live reports whether cross-instance delivery is currently working
func (h *Hub) Live() bool {
	return h.live.Load()
}

// SubscriberCount returns the number of local subscriptions on ref
func (h *Hub) SubscriberCount(ref domain.ChannelRef) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[ref.Key()])
}

// Run starts the hub's main loop and blocks until Stop
func (h *Hub) Run() {
	// Start transport subscriber if configured
	if h.transport != nil {
		go h.runTransport()
	}

	for {
		select {
		case sub := <-h.register:
			key := sub.ref.Key()
			h.mu.Lock()
			if h.topics[key] == nil {
				h.topics[key] = make(map[*Subscription]struct{})
			}
			h.topics[key][sub] = struct{}{}
			h.mu.Unlock()
			metrics.RealtimeSubscriptions.Inc()
			if !h.Live() {
				sub.enqueue(domain.Event{Type: domain.EventLiveUnavailable, Channel: sub.ref})
			}

		case sub := <-h.unregister:
			key := sub.ref.Key()
			h.mu.Lock()
			if subs, ok := h.topics[key]; ok {
				if _, ok := subs[sub]; ok {
					delete(subs, sub)
					metrics.RealtimeSubscriptions.Dec()
					if len(subs) == 0 {
						delete(h.topics, key)
					}
				}
			}
			h.mu.Unlock()

		case ev := <-h.broadcast:
			h.mu.RLock()
			for sub := range h.topics[ev.Channel.Key()] {
				sub.enqueue(ev)
			}
			h.mu.RUnlock()

		case t := <-h.control:
			h.mu.RLock()
			for _, subs := range h.topics {
				for sub := range subs {
					sub.enqueue(domain.Event{Type: t, Channel: sub.ref})
				}
			}
			h.mu.RUnlock()

		case <-h.ctx.Done():
			return
		}
	}
}

// Subscribe opens a subscription on ref. handler is called from the
// subscription's own goroutine until Unsubscribe.
func (h *Hub) Subscribe(ref domain.ChannelRef, handler Handler) (*Subscription, error) {
	if !ref.Kind.Valid() {
		return nil, fmt.Errorf("%w: invalid channel %q", common.ErrValidation, ref.Kind)
	}
	if handler == nil {
		return nil, fmt.Errorf("%w: handler is required", common.ErrValidation)
	}

	sub := newSubscription(h, ref, handler, h.opts.SubscriberBuffer)
	select {
	case h.register <- sub:
	case <-h.ctx.Done():
		return nil, fmt.Errorf("%w: hub stopped", common.ErrTransport)
	}
	go sub.drain()

	log := pkglogger.WithChannel(ref.Key())
	log.Debug().Msg("subscribed")
	return sub, nil
}

func (h *Hub) remove(sub *Subscription) {
	select {
	case h.unregister <- sub:
	case <-h.ctx.Done():
	}
	log := pkglogger.WithChannel(sub.ref.Key())
	log.Debug().Msg("unsubscribed")
}

// Publish delivers ev to local subscribers and forwards it to other instances.
// Membership events are only carried on group channels. When forwarding fails
// after retries the error is returned and the channel is queued for a resync
// broadcast, so remote subscribers reconcile once the transport is back.
func (h *Hub) Publish(ctx context.Context, ev domain.Event) error {
	if ev.Type == domain.EventMembership && ev.Channel.Kind != domain.ChannelGroup {
		return fmt.Errorf("%w: membership events need a group channel", common.ErrValidation)
	}

	select {
	case h.broadcast <- ev:
	case <-ctx.Done():
		return ctx.Err()
	case <-h.ctx.Done():
		return fmt.Errorf("%w: hub stopped", common.ErrTransport)
	}

	if h.transport == nil {
		return nil
	}
	retry := backoff.WithMaxRetries(backoff.NewConstantBackOff(h.opts.PublishInterval), h.opts.PublishRetries)
	if err := h.forward(ctx, ev, backoff.WithContext(retry, ctx)); err != nil {
		metrics.RealtimePublishFailures.Inc()
		h.markMissed(ev.Channel)
		return fmt.Errorf("%w: %v", common.ErrTransport, err)
	}
	return nil
}

// forward hands ev to the transport, retrying per b
func (h *Hub) forward(ctx context.Context, ev domain.Event, b backoff.BackOff) error {
	data, err := json.Marshal(&envelope{Origin: h.instanceID, Event: ev})
	if err != nil {
		return backoff.Permanent(err)
	}
	return backoff.Retry(func() error {
		return h.transport.Publish(ctx, data)
	}, b)
}

func (h *Hub) markMissed(ref domain.ChannelRef) {
	h.missedMu.Lock()
	h.missed[ref.Key()] = ref
	start := !h.flushing
	h.flushing = true
	h.missedMu.Unlock()

	if start {
		go h.flushMissed()
	}
}

// flushMissed publishes a resync for every missed channel, backing off until
// the transport accepts them or the hub stops
func (h *Hub) flushMissed() {
	log := pkglogger.GetLogger()
	for {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = h.opts.InitialInterval
		b.MaxInterval = h.opts.ResubscribeMaxElapsed / 4
		b.MaxElapsedTime = 0

		err := backoff.Retry(h.publishResyncs, backoff.WithContext(b, h.ctx))

		h.missedMu.Lock()
		if err != nil || len(h.missed) == 0 {
			h.flushing = false
			h.missedMu.Unlock()
			return
		}
		h.missedMu.Unlock()
		log.Debug().Msg("more channels missed while flushing, continuing")
	}
}

func (h *Hub) publishResyncs() error {
	h.missedMu.Lock()
	pending := h.missed
	h.missed = make(map[string]domain.ChannelRef)
	h.missedMu.Unlock()

	for key, ref := range pending {
		if err := h.forward(h.ctx, domain.Event{Type: domain.EventResync, Channel: ref}, &backoff.StopBackOff{}); err != nil {
			h.missedMu.Lock()
			for k, r := range pending {
				if _, ok := h.missed[k]; !ok {
					h.missed[k] = r
				}
			}
			h.missedMu.Unlock()
			return err
		}
		delete(pending, key)
		log := pkglogger.WithChannel(key)
		log.Info().Msg("sent resync for events the transport missed")
	}
	return nil
}

// runTransport keeps one transport subscription alive. After a drop it
// resubscribes with exponential backoff and tells every subscriber to
// resync; when a whole backoff round fails subscribers are told live updates
// are unavailable and retrying continues.
func (h *Hub) runTransport() {
	log := pkglogger.GetLogger()
	recovering := false

	for h.ctx.Err() == nil {
		stream, err := h.resubscribe()
		if err != nil {
			if h.ctx.Err() != nil {
				return
			}
			if h.live.CompareAndSwap(true, false) {
				log.Error().Err(err).Msg("live updates unavailable, still retrying")
				h.emit(domain.EventLiveUnavailable)
			}
			recovering = true
			continue
		}

		h.live.Store(true)
		if recovering {
			log.Info().Msg("realtime transport recovered")
			h.emit(domain.EventResync)
		}

		err = h.consume(stream)
		stream.Close() //nolint:errcheck
		if h.ctx.Err() != nil {
			return
		}
		log.Warn().Err(err).Msg("realtime transport dropped, resubscribing")
		recovering = true
	}
}

func (h *Hub) resubscribe() (Stream, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = h.opts.InitialInterval
	b.MaxInterval = h.opts.ResubscribeMaxElapsed / 4
	b.MaxElapsedTime = h.opts.ResubscribeMaxElapsed

	var stream Stream
	op := func() error {
		s, err := h.transport.Subscribe(h.ctx)
		if err != nil {
			metrics.RealtimeResubscribe.WithLabelValues("error").Inc()
			log := pkglogger.GetLogger()
			log.Warn().Err(err).Msg("realtime resubscribe failed")
			return err
		}
		metrics.RealtimeResubscribe.WithLabelValues("ok").Inc()
		stream = s
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(b, h.ctx)); err != nil {
		return nil, err
	}
	return stream, nil
}

// consume forwards remote events until the stream fails
func (h *Hub) consume(stream Stream) error {
	for {
		payload, err := stream.Receive(h.ctx)
		if err != nil {
			return err
		}
		var env envelope
		if err := json.Unmarshal(payload, &env); err != nil {
			log := pkglogger.GetLogger()
			log.Warn().Err(err).Msg("dropping malformed realtime payload")
			continue
		}
		// our own publishes were already delivered locally
		if env.Origin == h.instanceID {
			continue
		}
		select {
		case h.broadcast <- env.Event:
		case <-h.ctx.Done():
			return h.ctx.Err()
		}
	}
}

func (h *Hub) emit(t domain.EventType) {
	select {
	case h.control <- t:
	case <-h.ctx.Done():
	}
}

// Stop gracefully shuts down the hub
func (h *Hub) Stop() {
	h.cancel()
}

// IsStopped reports whether Stop was called
func (h *Hub) IsStopped() bool {
	return errors.Is(h.ctx.Err(), context.Canceled)
}
