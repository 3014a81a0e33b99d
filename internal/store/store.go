// Package store defines the persistence contract for todo items and the
// change hub every backend uses to publish ordered snapshots.
package store

import (
	"context"
	"errors"
	"slices"

	"github.com/idilsaglam/todoflow/internal/model"
)

var (
	// ErrNotFound is returned by GetByID for an unknown id.
	ErrNotFound = errors.New("store: item not found")
	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("store: closed")
)

// Store owns persisted items. Update, DeleteByID and ToggleCompleted on an
// absent id succeed without doing anything.
type Store interface {
	// Create inserts item, replacing any record with the same id.
	Create(ctx context.Context, item model.Item) error
	// Update overwrites every field of the record with item.ID.
	Update(ctx context.Context, item model.Item) error
	// DeleteByID removes every record matching id.
	DeleteByID(ctx context.Context, id string) error
	// ToggleCompleted flips Completed atomically.
	ToggleCompleted(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (model.Item, error)
	// ObserveAll delivers the current snapshot at once and a new one after
	// every change. The channel closes when ctx ends or the store closes.
	ObserveAll(ctx context.Context) <-chan Snapshot
	Close() error
}

// Snapshot is one emission of ObserveAll. Seq increases strictly with every
// publication of a store; Err set means the read failed and Items is nil.
type Snapshot struct {
	Seq   uint64
	Items []model.Item
	Err   error
}

// SortNewestFirst orders items by CreatedAt descending, keeping insertion
// order for equal timestamps.
func SortNewestFirst(items []model.Item) {
	slices.SortStableFunc(items, func(a, b model.Item) int {
		switch {
		case a.CreatedAt > b.CreatedAt:
			return -1
		case a.CreatedAt < b.CreatedAt:
			return 1
		}
		return 0
	})
}

// Refresher is implemented by stores that can re-read and republish their
// contents on demand, e.g. after a failed read.
type Refresher interface {
	Refresh(ctx context.Context) error
}
