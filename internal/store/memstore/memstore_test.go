package memstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idilsaglam/todoflow/internal/model"
	"github.com/idilsaglam/todoflow/internal/store"
)

func item(id string, created int64) model.Item {
	return model.Item{ID: id, Title: "t-" + id, CreatedAt: created, Priority: model.PriorityNormal}
}

func next(t *testing.T, ch <-chan store.Snapshot) store.Snapshot {
	t.Helper()
	select {
	case s, ok := <-ch:
		require.True(t, ok, "observe channel closed")
		return s
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return store.Snapshot{}
}

func ids(items []model.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()

	t.Run("new store emits empty snapshot", func(t *testing.T) {
		s := New(nil)
		defer s.Close()
		snap := next(t, s.ObserveAll(ctx))
		assert.Empty(t, snap.Items)
		assert.NoError(t, snap.Err)
	})

	t.Run("create then get", func(t *testing.T) {
		s := New(nil)
		defer s.Close()
		require.NoError(t, s.Create(ctx, item("a", 1)))

		got, err := s.GetByID(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "t-a", got.Title)

		_, err = s.GetByID(ctx, "missing")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("create with existing id replaces", func(t *testing.T) {
		s := New([]model.Item{item("a", 1)})
		defer s.Close()
		replaced := item("a", 1)
		replaced.Title = "new"
		require.NoError(t, s.Create(ctx, replaced))
		assert.Len(t, s.Items(), 1)
		assert.Equal(t, "new", s.Items()[0].Title)
	})

	t.Run("update and delete of absent id are no-ops", func(t *testing.T) {
		s := New([]model.Item{item("a", 1)})
		defer s.Close()
		require.NoError(t, s.Update(ctx, item("zzz", 3)))
		require.NoError(t, s.DeleteByID(ctx, "zzz"))
		require.NoError(t, s.ToggleCompleted(ctx, "zzz"))
		assert.Equal(t, []string{"a"}, ids(s.Items()))
	})

	t.Run("toggle twice restores flag", func(t *testing.T) {
		s := New([]model.Item{item("a", 1)})
		defer s.Close()
		require.NoError(t, s.ToggleCompleted(ctx, "a"))
		got, _ := s.GetByID(ctx, "a")
		assert.True(t, got.Completed)
		require.NoError(t, s.ToggleCompleted(ctx, "a"))
		got, _ = s.GetByID(ctx, "a")
		assert.False(t, got.Completed)
	})

	t.Run("concurrent toggles do not lose updates", func(t *testing.T) {
		s := New([]model.Item{item("a", 1)})
		defer s.Close()
		var wg sync.WaitGroup
		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = s.ToggleCompleted(ctx, "a")
			}()
		}
		wg.Wait()
		got, _ := s.GetByID(ctx, "a")
		assert.False(t, got.Completed)
	})

	t.Run("observe orders newest first and numbers snapshots", func(t *testing.T) {
		s := New(nil)
		defer s.Close()
		ch := s.ObserveAll(ctx)
		first := next(t, ch)

		require.NoError(t, s.Create(ctx, item("old", 1)))
		require.NoError(t, s.Create(ctx, item("tie1", 5)))
		require.NoError(t, s.Create(ctx, item("new", 9)))
		require.NoError(t, s.Create(ctx, item("tie2", 5)))

		snap := next(t, ch)
		assert.Greater(t, snap.Seq, first.Seq)
		assert.Equal(t, []string{"new", "tie1", "tie2", "old"}, ids(snap.Items))
	})

	t.Run("fail publishes error then recovers", func(t *testing.T) {
		s := New([]model.Item{item("a", 1)})
		defer s.Close()
		ch := s.ObserveAll(ctx)
		next(t, ch)

		boom := errors.New("io")
		s.Fail(boom)
		snap := next(t, ch)
		assert.ErrorIs(t, snap.Err, boom)

		require.NoError(t, s.Create(ctx, item("b", 2)))
		snap = next(t, ch)
		assert.NoError(t, snap.Err)
		assert.Equal(t, []string{"b", "a"}, ids(snap.Items))
	})

	t.Run("commit failure rolls back", func(t *testing.T) {
		boom := errors.New("disk full")
		s := New(nil, WithCommit(func([]model.Item) error { return boom }))
		defer s.Close()
		err := s.Create(ctx, item("a", 1))
		assert.ErrorIs(t, err, boom)
		assert.Empty(t, s.Items())
	})

	t.Run("closed store rejects calls and ends observers", func(t *testing.T) {
		s := New(nil)
		ch := s.ObserveAll(ctx)
		next(t, ch)
		require.NoError(t, s.Close())
		require.NoError(t, s.Close())

		_, ok := <-ch
		assert.False(t, ok)
		assert.ErrorIs(t, s.Create(ctx, item("a", 1)), store.ErrClosed)
		_, err := s.GetByID(ctx, "a")
		assert.ErrorIs(t, err, store.ErrClosed)
	})
}

func TestReload(t *testing.T) {
	ctx := context.Background()
	s := New([]model.Item{item("a", 1)})
	defer s.Close()
	ch := s.ObserveAll(ctx)
	first := next(t, ch)

	s.Reload(func() ([]model.Item, bool, error) { return nil, false, nil })
	select {
	case snap := <-ch:
		t.Fatalf("unexpected snapshot %d", snap.Seq)
	default:
	}

	s.Reload(func() ([]model.Item, bool, error) {
		return []model.Item{item("x", 7), item("y", 8)}, true, nil
	})
	snap := next(t, ch)
	assert.Greater(t, snap.Seq, first.Seq)
	assert.Equal(t, []string{"y", "x"}, ids(snap.Items))

	boom := errors.New("bad file")
	s.Reload(func() ([]model.Item, bool, error) { return nil, false, boom })
	assert.ErrorIs(t, next(t, ch).Err, boom)
	assert.Len(t, s.Items(), 2)
}
