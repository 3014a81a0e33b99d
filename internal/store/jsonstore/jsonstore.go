package jsonstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/idilsaglam/todoflow/internal/model"
	"github.com/idilsaglam/todoflow/internal/store/memstore"
)

// JSON-backed storage. Single file, human-readable, portable.
// The whole list is rewritten after every change; fine for a local
// single-user tool.

const DefaultFileName = "todos.json"

// record also accepts legacy {"title","done"} entries.
type record struct {
	model.Item
	Done *bool `json:"done,omitempty"`
}

// Load reads items from path in insertion order. A missing file is an empty
// list. Legacy entries without id get one, timestamped in file order.
func Load(path string) ([]model.Item, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []model.Item{}, nil
		}
		return nil, fmt.Errorf("read file: %w", err)
	}
	return decode(b)
}

func decode(b []byte) ([]model.Item, error) {
	if len(bytes.TrimSpace(b)) == 0 {
		return []model.Item{}, nil
	}
	var recs []record
	if err := json.Unmarshal(b, &recs); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}
	base := time.Now().UnixMilli()
	items := make([]model.Item, 0, len(recs))
	for i, r := range recs {
		it := r.Item
		if r.Done != nil {
			it.Completed = *r.Done
		}
		if it.ID == "" {
			it.ID = uuid.NewString()
		}
		if it.CreatedAt == 0 {
			it.CreatedAt = base - int64(len(recs)-i)
		}
		it.Priority = it.Priority.OrDefault()
		items = append(items, it)
	}
	return items, nil
}

func encode(items []model.Item) ([]byte, error) {
	b, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("json marshal: %w", err)
	}
	return b, nil
}

// Save writes items to path.
func Save(path string, items []model.Item) error {
	b, err := encode(items)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

// Store is a memstore.Store that rewrites the file on every change and,
// when watching, reloads it after external edits.
type Store struct {
	*memstore.Store

	path string

	mu          sync.Mutex
	lastWritten []byte

	watcher   *fsnotify.Watcher
	stop      chan struct{}
	watchDone chan struct{}
	closeOnce sync.Once
}

// Option configures Open.
type Option func(*openConfig)

type openConfig struct {
	watch bool
}

// WithWatch reloads the file when another process changes it.
func WithWatch() Option {
	return func(c *openConfig) { c.watch = true }
}

// Open loads path (creating nothing until the first write).
func Open(path string, opts ...Option) (*Store, error) {
	var cfg openConfig
	for _, o := range opts {
		o(&cfg)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}
	items, err := Load(abs)
	if err != nil {
		return nil, err
	}

	s := &Store{path: abs}
	s.Store = memstore.New(items, memstore.WithCommit(s.commit))

	if cfg.watch {
		if err := s.startWatch(); err != nil {
			s.Store.Close()
			return nil, err
		}
	}
	return s, nil
}

// Path is the absolute file location.
func (s *Store) Path() string { return s.path }

func (s *Store) commit(items []model.Item) error {
	b, err := encode(items)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.WriteFile(s.path, b, 0o644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	s.lastWritten = b
	return nil
}

func (s *Store) startWatch() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	// editors often replace the file, so watch the directory
	if err := w.Add(filepath.Dir(s.path)); err != nil {
		w.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(s.path), err)
	}
	s.watcher = w
	s.stop = make(chan struct{})
	s.watchDone = make(chan struct{})
	go s.watchLoop()
	return nil
}

func (s *Store) watchLoop() {
	defer close(s.watchDone)
	for {
		select {
		case <-s.stop:
			return
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != s.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			s.reload()
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.Store.Fail(fmt.Errorf("watch %s: %w", s.path, err))
		}
	}
}

// reload ignores contents identical to our own last write. The file is
// read under the store lock so it never sees one of our writes half done.
func (s *Store) reload() {
	s.Store.Reload(func() ([]model.Item, bool, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		b, err := os.ReadFile(s.path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, false, nil
			}
			return nil, false, fmt.Errorf("read file: %w", err)
		}
		if bytes.Equal(b, s.lastWritten) {
			return nil, false, nil
		}
		items, err := decode(b)
		if err != nil {
			return nil, false, err
		}
		s.lastWritten = b
		return items, true, nil
	})
}

// Close stops watching and closes the underlying store.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		if s.watcher != nil {
			close(s.stop)
			s.watcher.Close()
			<-s.watchDone
		}
	})
	return s.Store.Close()
}
