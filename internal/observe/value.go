// Package observe provides a read-many, write-one observable that always
// holds a current value. Subscribers see the latest value; intermediate
// values are dropped when a subscriber falls behind.
package observe

import "sync"

// Value holds the current T and fans it out to subscribers.
type Value[T any] struct {
	mu     sync.Mutex
	cur    T
	subs   map[chan T]struct{}
	closed bool
}

func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{cur: initial, subs: make(map[chan T]struct{})}
}

// Get returns the current value.
func (v *Value[T]) Get() T {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.cur
}

// Set replaces the current value and notifies subscribers. Set after Close
// is ignored.
func (v *Value[T]) Set(x T) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.cur = x
	for ch := range v.subs {
		offer(ch, x)
	}
}

// Subscribe returns a channel that immediately carries the current value and
// then every later one (conflated). The cancel func unsubscribes and closes
// the channel; it is safe to call more than once.
func (v *Value[T]) Subscribe() (<-chan T, func()) {
	ch := make(chan T, 1)
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		close(ch)
		return ch, func() {}
	}
	ch <- v.cur
	v.subs[ch] = struct{}{}
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			v.mu.Lock()
			defer v.mu.Unlock()
			if _, ok := v.subs[ch]; ok {
				delete(v.subs, ch)
				close(ch)
			}
		})
	}
}

// Close closes every subscriber channel and freezes the value.
func (v *Value[T]) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.closed = true
	for ch := range v.subs {
		close(ch)
	}
	v.subs = nil
}

// offer replaces whatever is buffered in ch with x. Callers hold the lock,
// so nobody else sends on ch concurrently.
func offer[T any](ch chan T, x T) {
	select {
	case ch <- x:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	ch <- x
}
