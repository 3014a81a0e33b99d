// Package memstore keeps todo items in memory. It backs the "memory"
// backend, serves as the state layer of jsonstore and doubles as the
// store used by tests.
package memstore

import (
	"context"
	"slices"
	"sync"

	"github.com/idilsaglam/todoflow/internal/model"
	"github.com/idilsaglam/todoflow/internal/store"
)

// CommitFunc persists the full item list after a mutation. A non-nil error
// rolls the mutation back.
type CommitFunc func(items []model.Item) error

// Option configures a Store.
type Option func(*Store)

// WithCommit installs a persistence hook.
func WithCommit(fn CommitFunc) Option {
	return func(s *Store) { s.commit = fn }
}

// Store is safe for concurrent use. Items are kept in insertion order and
// sorted newest-first only when published.
type Store struct {
	mu     sync.Mutex
	items  []model.Item
	commit CommitFunc
	hub    *store.Hub
	closed bool
}

var (
	_ store.Store     = (*Store)(nil)
	_ store.Refresher = (*Store)(nil)
)

// New returns a store seeded with items (in insertion order).
func New(items []model.Item, opts ...Option) *Store {
	s := &Store{
		items: slices.Clone(items),
		hub:   store.NewHub(),
	}
	for _, o := range opts {
		o(s)
	}
	s.hub.Publish(s.sorted(), nil)
	return s
}

func (s *Store) Create(_ context.Context, item model.Item) error {
	return s.mutate(func(items []model.Item) []model.Item {
		if i := indexOf(items, item.ID); i >= 0 {
			items[i] = item
			return items
		}
		return append(items, item)
	})
}

func (s *Store) Update(_ context.Context, item model.Item) error {
	return s.mutate(func(items []model.Item) []model.Item {
		if i := indexOf(items, item.ID); i >= 0 {
			items[i] = item
		}
		return items
	})
}

func (s *Store) DeleteByID(_ context.Context, id string) error {
	return s.mutate(func(items []model.Item) []model.Item {
		return slices.DeleteFunc(items, func(it model.Item) bool { return it.ID == id })
	})
}

func (s *Store) ToggleCompleted(_ context.Context, id string) error {
	return s.mutate(func(items []model.Item) []model.Item {
		if i := indexOf(items, id); i >= 0 {
			items[i].Completed = !items[i].Completed
		}
		return items
	})
}

func (s *Store) GetByID(_ context.Context, id string) (model.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return model.Item{}, store.ErrClosed
	}
	if i := indexOf(s.items, id); i >= 0 {
		return s.items[i], nil
	}
	return model.Item{}, store.ErrNotFound
}

func (s *Store) ObserveAll(ctx context.Context) <-chan store.Snapshot {
	return s.hub.Subscribe(ctx)
}

// Items returns a newest-first copy of the current contents.
func (s *Store) Items() []model.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sorted()
}

// Reload swaps the whole contents for what load returns, without calling
// the commit hook. load runs under the store lock; changed=false keeps the
// current contents and an error is published as a read failure.
func (s *Store) Reload(load func() (items []model.Item, changed bool, err error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	items, changed, err := load()
	if err != nil {
		s.hub.Publish(nil, err)
		return
	}
	if !changed {
		return
	}
	s.items = slices.Clone(items)
	s.hub.Publish(s.sorted(), nil)
}

// Refresh republishes the current contents.
func (s *Store) Refresh(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return store.ErrClosed
	}
	s.hub.Publish(s.sorted(), nil)
	return nil
}

// Fail publishes a read failure to every observer. The stored items are
// untouched; the next successful change publishes them again.
func (s *Store) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.hub.Publish(nil, err)
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.hub.Close()
	return nil
}

// mutate applies fn to a copy, commits it and publishes the result.
func (s *Store) mutate(fn func([]model.Item) []model.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return store.ErrClosed
	}
	next := fn(slices.Clone(s.items))
	if s.commit != nil {
		if err := s.commit(next); err != nil {
			return err
		}
	}
	s.items = next
	s.hub.Publish(s.sorted(), nil)
	return nil
}

func (s *Store) sorted() []model.Item {
	out := slices.Clone(s.items)
	store.SortNewestFirst(out)
	return out
}

func indexOf(items []model.Item, id string) int {
	return slices.IndexFunc(items, func(it model.Item) bool { return it.ID == id })
}
