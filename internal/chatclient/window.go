package chatclient

import (
	"sort"

	"github.com/courtside/courtside-chat/internal/domain"
)

// window is the loaded history of a channel, kept as a set sorted by
// (created_at, id). Pages and live events merge by union, never by position.
type window struct {
	items []*domain.MessageView
	ids   map[uint64]struct{}
}

func newWindow() *window {
	return &window{ids: make(map[uint64]struct{})}
}

func (w *window) len() int { return len(w.items) }

func (w *window) has(id uint64) bool {
	_, ok := w.ids[id]
	return ok
}

// insert adds m unless its id is already present and reports whether it was added
func (w *window) insert(m *domain.MessageView) bool {
	if m == nil || w.has(m.ID) {
		return false
	}
	i := sort.Search(len(w.items), func(i int) bool { return m.Before(w.items[i]) })
	w.items = append(w.items, nil)
	copy(w.items[i+1:], w.items[i:])
	w.items[i] = m
	w.ids[m.ID] = struct{}{}
	return true
}

// merge inserts every message of a page and returns how many were new
func (w *window) merge(msgs []*domain.MessageView) int {
	added := 0
	for _, m := range msgs {
		if w.insert(m) {
			added++
		}
	}
	return added
}

// replace swaps the stored record with the same id, keeping its position
func (w *window) replace(m *domain.MessageView) bool {
	if m == nil || !w.has(m.ID) {
		return false
	}
	for i, cur := range w.items {
		if cur.ID == m.ID {
			w.items[i] = m
			return true
		}
	}
	return false
}

func (w *window) oldest() *domain.MessageView {
	if len(w.items) == 0 {
		return nil
	}
	return w.items[0]
}

func (w *window) snapshot() []*domain.MessageView {
	return append([]*domain.MessageView(nil), w.items...)
}

func (w *window) reset() {
	w.items = nil
	w.ids = make(map[uint64]struct{})
}
