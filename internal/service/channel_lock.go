package service

import (
	"sync"
	"time"
)

// channelLocks serializes sends per channel so store commit order equals
// publish order. Entries are dropped once no sender holds them.
type channelLocks struct {
	mu      sync.Mutex
	entries map[string]*channelLock
}

type channelLock struct {
	mu   sync.Mutex
	refs int
	// last created_at handed out while the entry is live
	last time.Time
}

func newChannelLocks() *channelLocks {
	return &channelLocks{entries: make(map[string]*channelLock)}
}

func (l *channelLocks) lock(key string) *channelLock {
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &channelLock{}
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return e
}

func (l *channelLocks) unlock(key string, e *channelLock) {
	e.mu.Unlock()

	l.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
	l.mu.Unlock()
}

// stamp returns now, clamped so it never goes below the previous stamp
func (e *channelLock) stamp(now time.Time) time.Time {
	if now.Before(e.last) {
		now = e.last
	}
	e.last = now
	return now
}
