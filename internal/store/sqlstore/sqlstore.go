// Package sqlstore persists todo items in a single SQLite table.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/idilsaglam/todoflow/internal/model"
	"github.com/idilsaglam/todoflow/internal/store"
)

// SchemaVersion is written to PRAGMA user_version.
const SchemaVersion = 1

// Options configures the SQLite store.
type Options struct {
	QueryTimeout      time.Duration // Timeout for the refresh query run after writes
	PragmaJournalMode string        // WAL keeps readers off the writer's back
	PragmaSyncMode    string
	MaxConnections    int
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		QueryTimeout:      30 * time.Second,
		PragmaJournalMode: "WAL",
		PragmaSyncMode:    "NORMAL",
		MaxConnections:    4,
	}
}

// Store implements store.Store on SQLite. Writes and the snapshot query
// that follows them run under mu, so snapshot sequence numbers follow the
// order in which the table was read.
type Store struct {
	db      *sql.DB
	path    string
	options Options
	hub     *store.Hub

	mu     sync.Mutex
	closed bool
}

var (
	_ store.Store     = (*Store)(nil)
	_ store.Refresher = (*Store)(nil)
)

// Open creates (or opens) the database at path and publishes the initial
// snapshot. Use ":memory:" for a throwaway database private to the Store.
func Open(path string, options Options) (*Store, error) {
	if options.MaxConnections == 0 {
		options = DefaultOptions()
	}
	dsn := fmt.Sprintf("%s?_journal_mode=%s&_sync=%s&_timeout=5000",
		path, options.PragmaJournalMode, options.PragmaSyncMode)
	if path == ":memory:" {
		// shared cache so pooled connections see one database, named per
		// Store so that two Opens never share it
		dsn = fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
		options.MaxConnections = 1
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(options.MaxConnections)
	db.SetMaxIdleConns(options.MaxConnections)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db, path: path, options: options, hub: store.NewHub()}

	ctx, cancel := context.WithTimeout(context.Background(), options.QueryTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	s.mu.Lock()
	err = s.refresh(ctx)
	s.mu.Unlock()
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	var version int
	if err := s.db.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version > SchemaVersion {
		return fmt.Errorf("schema version %d is newer than supported %d", version, SchemaVersion)
	}
	schema := `
	CREATE TABLE IF NOT EXISTS todos (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		completed INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		priority TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_todos_created ON todos(created_at);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create todos table: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`PRAGMA user_version = %d`, SchemaVersion)); err != nil {
		return fmt.Errorf("write schema version: %w", err)
	}
	return nil
}

func (s *Store) Create(ctx context.Context, item model.Item) error {
	return s.write(ctx, `
		INSERT OR REPLACE INTO todos (id, title, description, completed, created_at, priority)
		VALUES (?, ?, ?, ?, ?, ?)`,
		item.ID, item.Title, item.Description, item.Completed, item.CreatedAt, string(item.Priority.OrDefault()))
}

func (s *Store) Update(ctx context.Context, item model.Item) error {
	return s.write(ctx, `
		UPDATE todos SET title = ?, description = ?, completed = ?, created_at = ?, priority = ?
		WHERE id = ?`,
		item.Title, item.Description, item.Completed, item.CreatedAt, string(item.Priority.OrDefault()), item.ID)
}

func (s *Store) DeleteByID(ctx context.Context, id string) error {
	return s.write(ctx, `DELETE FROM todos WHERE id = ?`, id)
}

func (s *Store) ToggleCompleted(ctx context.Context, id string) error {
	return s.write(ctx, `UPDATE todos SET completed = NOT completed WHERE id = ?`, id)
}

func (s *Store) GetByID(ctx context.Context, id string) (model.Item, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return model.Item{}, store.ErrClosed
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, description, completed, created_at, priority
		FROM todos WHERE id = ?`, id)
	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Item{}, store.ErrNotFound
	}
	if err != nil {
		return model.Item{}, fmt.Errorf("get todo %s: %w", id, err)
	}
	return it, nil
}

func (s *Store) ObserveAll(ctx context.Context) <-chan store.Snapshot {
	return s.hub.Subscribe(ctx)
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.hub.Close()
	return s.db.Close()
}

// write runs one statement and republishes the table when it changed
// something. A failed refresh is published as a read error; the write
// itself still succeeded.
func (s *Store) write(ctx context.Context, query string, args ...any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return store.ErrClosed
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("exec: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil
	}
	rctx, cancel := context.WithTimeout(context.Background(), s.options.QueryTimeout)
	defer cancel()
	_ = s.refresh(rctx) // published to observers as a read failure
	return nil
}

// Refresh re-reads the table and publishes it, or the read error.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return store.ErrClosed
	}
	return s.refresh(ctx)
}

// refresh publishes the full table. Callers hold mu.
func (s *Store) refresh(ctx context.Context) error {
	items, err := s.list(ctx)
	if err != nil {
		s.hub.Publish(nil, err)
		return err
	}
	s.hub.Publish(items, nil)
	return nil
}

func (s *Store) list(ctx context.Context) ([]model.Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, completed, created_at, priority
		FROM todos ORDER BY created_at DESC, rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	defer rows.Close()

	items := []model.Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan todo: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate todos: %w", err)
	}
	return items, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(sc scanner) (model.Item, error) {
	var (
		it       model.Item
		priority string
	)
	if err := sc.Scan(&it.ID, &it.Title, &it.Description, &it.Completed, &it.CreatedAt, &priority); err != nil {
		return model.Item{}, err
	}
	p, err := model.ParsePriority(priority)
	if err != nil {
		return model.Item{}, err
	}
	it.Priority = p
	return it, nil
}
