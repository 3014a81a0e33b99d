package store

import (
	"context"
	"sync"

	"github.com/idilsaglam/todoflow/internal/model"
)

// Hub stamps snapshots with sequence numbers and fans them out. Backends
// call Publish while holding their own write lock so that Seq order matches
// the order in which the data was read.
type Hub struct {
	mu     sync.Mutex
	seq    uint64
	last   *Snapshot
	subs   map[chan Snapshot]struct{}
	closed bool
	done   chan struct{} // closed by Close
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan Snapshot]struct{}), done: make(chan struct{})}
}

// Publish records items (or err) as the newest snapshot.
func (h *Hub) Publish(items []model.Item, err error) Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq++
	s := Snapshot{Seq: h.seq, Err: err}
	if err == nil {
		s.Items = cloneItems(items)
	}
	if h.closed {
		return s
	}
	h.last = &s
	for ch := range h.subs {
		offer(ch, s)
	}
	return s
}

// Subscribe replays the latest snapshot, if any, and follows new ones until
// ctx is done or the hub is closed.
func (h *Hub) Subscribe(ctx context.Context) <-chan Snapshot {
	ch := make(chan Snapshot, 1)
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch
	}
	if h.last != nil {
		ch <- *h.last
	}
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-h.done:
			return
		}
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
	}()
	return ch
}

// Close ends every subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	close(h.done)
	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
}

func offer(ch chan Snapshot, s Snapshot) {
	select {
	case ch <- s:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	ch <- s
}

func cloneItems(items []model.Item) []model.Item {
	out := make([]model.Item, len(items))
	copy(out, items)
	return out
}
