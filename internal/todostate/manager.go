// Package todostate owns the canonical to-do list of one screen. It derives
// an observable ViewState from the store's change stream and the selected
// filter, and exposes the commands presentation code may call.
//
// A Manager expects a single caller issuing commands; the store stream is
// consumed on its own goroutine.
package todostate

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/idilsaglam/todoflow/internal/model"
	"github.com/idilsaglam/todoflow/internal/observe"
	"github.com/idilsaglam/todoflow/internal/store"
	"github.com/idilsaglam/todoflow/internal/viewstate"
)

// ErrClosed is returned by GetTodoByID after Close.
var ErrClosed = errors.New("todostate: manager closed")

// LoadFailedMessage accompanies Error states caused by the store stream.
const LoadFailedMessage = "Unable to load the to-do list."

var errStreamEnded = errors.New("todostate: store stream ended")

// Options tune a Manager. The zero value is usable.
type Options struct {
	Logger *log.Logger
	Now    func() time.Time
	// OnCommandError sees failed store writes. Writes are fire-and-forget:
	// their failures never change the ViewState.
	OnCommandError func(op string, err error)
}

// Manager is the Todo State Manager.
type Manager struct {
	store          store.Store
	log            *log.Logger
	now            func() time.Time
	onCommandError func(op string, err error)

	state  *observe.Value[ViewState]
	filter *observe.Value[model.Filter]
	queue  *commandQueue

	mu       sync.Mutex
	current  model.Filter
	latest   []model.Item
	observed bool // latest holds a real emission
	failed   bool // last emission was an error
	lastSeq  uint64
	hasSeq   bool
	closed   bool

	subCancel context.CancelFunc
	subDone   chan struct{}
	closeOnce sync.Once
}

// New subscribes to st and starts in Loading.
func New(st store.Store, opts Options) *Manager {
	m := &Manager{
		store:          st,
		log:            opts.Logger,
		now:            opts.Now,
		onCommandError: opts.OnCommandError,
		state:          observe.NewValue(viewstate.Loading[[]model.Item]()),
		filter:         observe.NewValue(model.FilterAll),
	}
	if m.log == nil {
		m.log = log.New(io.Discard)
	}
	if m.now == nil {
		m.now = time.Now
	}
	m.queue = newCommandQueue(m.exec)

	ctx, cancel := context.WithCancel(context.Background())
	m.subCancel = cancel
	m.subDone = make(chan struct{})
	go m.collect(ctx, st.ObserveAll(ctx), m.subDone)
	return m
}

// State returns the current ViewState.
func (m *Manager) State() ViewState { return m.state.Get() }

// SubscribeState follows ViewState changes, starting with the current one.
func (m *Manager) SubscribeState() (<-chan ViewState, func()) { return m.state.Subscribe() }

// Filter returns the selected filter.
func (m *Manager) Filter() model.Filter { return m.filter.Get() }

func (m *Manager) SubscribeFilter() (<-chan model.Filter, func()) { return m.filter.Subscribe() }

// Stats counts the latest observed list, ignoring the filter.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return statsOf(m.latest)
}

// SetFilter re-derives from the last observed list without touching the
// store. While nothing has been observed (Loading) or the stream is failing
// (Error) only the filter changes.
func (m *Manager) SetFilter(f model.Filter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.current = f
	m.filter.Set(f)
	if m.observed && !m.failed {
		m.state.Set(Derive(m.latest, m.current))
	}
}

// AddTodo queues creation of a new pending item and returns its id. A blank
// title is ignored and yields "".
func (m *Manager) AddTodo(title, description string, priority model.Priority) string {
	if !model.ValidTitle(title) {
		m.log.Debug("ignoring todo with blank title")
		return ""
	}
	if priority != "" && !priority.Valid() {
		m.log.Warn("unknown priority, using NORMAL", "priority", priority)
	}
	item := model.NewItem(title, description, priority, m.now())
	ok := m.enqueue("add", func(ctx context.Context) error {
		return m.store.Create(ctx, item)
	})
	if !ok {
		return ""
	}
	return item.ID
}

// UpdateTodo overwrites every field of item.ID. An unknown id is a no-op and
// an unknown priority is stored as NORMAL.
func (m *Manager) UpdateTodo(item model.Item) {
	if item.Priority != "" && !item.Priority.Valid() {
		m.log.Warn("unknown priority, using NORMAL", "id", item.ID, "priority", item.Priority)
	}
	item.Priority = item.Priority.OrDefault()
	m.enqueue("update", func(ctx context.Context) error {
		return m.store.Update(ctx, item)
	})
}

func (m *Manager) DeleteTodo(id string) {
	m.enqueue("delete", func(ctx context.Context) error {
		return m.store.DeleteByID(ctx, id)
	})
}

// ToggleComplete flips Completed at the store in one atomic step.
func (m *Manager) ToggleComplete(id string) {
	m.enqueue("toggle", func(ctx context.Context) error {
		return m.store.ToggleCompleted(ctx, id)
	})
}

// RestoreTodo puts back a deleted item with its original id and timestamp.
func (m *Manager) RestoreTodo(item model.Item) {
	item.Priority = item.Priority.OrDefault()
	m.enqueue("restore", func(ctx context.Context) error {
		return m.store.Create(ctx, item)
	})
}

// Retry asks the store to re-read after a failed emission. Stores that
// cannot refresh are left alone; the state stays Error until the next
// successful emission either way.
func (m *Manager) Retry() {
	r, ok := m.store.(store.Refresher)
	if !ok {
		m.log.Debug("store cannot refresh; waiting for next change")
		return
	}
	m.enqueue("refresh", r.Refresh)
}

// GetTodoByID looks id up directly in the store, after every command queued
// before it. found is false for an unknown id; err is reserved for real
// failures.
func (m *Manager) GetTodoByID(ctx context.Context, id string) (item model.Item, found bool, err error) {
	type result struct {
		item model.Item
		err  error
	}
	res := make(chan result, 1)
	ok := m.queue.push(command{op: "get", run: func() error {
		it, err := m.store.GetByID(ctx, id)
		res <- result{it, err}
		return nil
	}})
	if !ok {
		return model.Item{}, false, ErrClosed
	}
	select {
	case r := <-res:
		if errors.Is(r.err, store.ErrNotFound) {
			return model.Item{}, false, nil
		}
		if r.err != nil {
			return model.Item{}, false, r.err
		}
		return r.item, true, nil
	case <-ctx.Done():
		return model.Item{}, false, ctx.Err()
	}
}

// Wait blocks until every command issued so far has reached the store.
func (m *Manager) Wait() { m.queue.wait() }

// Close cancels the store subscription, lets queued commands finish and
// closes all subscriptions. No state changes happen afterwards.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		m.closed = true
		m.mu.Unlock()

		m.subCancel()
		<-m.subDone
		m.queue.close()
		m.state.Close()
		m.filter.Close()
	})
	return nil
}

func (m *Manager) enqueue(op string, run func(context.Context) error) bool {
	ok := m.queue.push(command{op: op, run: func() error {
		return run(context.Background())
	}})
	if !ok {
		m.log.Warn("command after close ignored", "op", op)
	}
	return ok
}

func (m *Manager) exec(c command) {
	if err := c.run(); err != nil {
		m.log.Error("store write failed", "op", c.op, "err", err)
		if m.onCommandError != nil {
			m.onCommandError(c.op, err)
		}
	}
}

func (m *Manager) collect(ctx context.Context, snaps <-chan store.Snapshot, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-snaps:
			if !ok {
				if ctx.Err() == nil {
					m.fail(errStreamEnded)
				}
				return
			}
			m.apply(s)
		}
	}
}

// apply drops snapshots older than the last one applied.
func (m *Manager) apply(s store.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	if m.hasSeq && s.Seq <= m.lastSeq {
		m.log.Debug("discarding stale snapshot", "seq", s.Seq, "last", m.lastSeq)
		return
	}
	m.lastSeq, m.hasSeq = s.Seq, true
	if s.Err != nil {
		m.failLocked(s.Err)
		return
	}
	m.failed = false
	m.latest = s.Items
	m.observed = true
	m.log.Debug("applied snapshot", "seq", s.Seq, "items", len(s.Items))
	m.state.Set(Derive(m.latest, m.current))
}

func (m *Manager) fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.failLocked(err)
}

func (m *Manager) failLocked(err error) {
	m.failed = true
	m.log.Error("observing todos failed", "err", err)
	m.state.Set(viewstate.Failure[[]model.Item](err, LoadFailedMessage))
}
