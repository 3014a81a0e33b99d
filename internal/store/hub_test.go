package store

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idilsaglam/todoflow/internal/model"
)

func TestHubReplaysLatestAndNumbers(t *testing.T) {
	h := NewHub()
	h.Publish([]model.Item{{ID: "a"}}, nil)
	h.Publish([]model.Item{{ID: "b"}}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := h.Subscribe(ctx)

	s := <-ch
	assert.Equal(t, uint64(2), s.Seq)
	require.Len(t, s.Items, 1)
	assert.Equal(t, "b", s.Items[0].ID)

	boom := errors.New("boom")
	h.Publish(nil, boom)
	s = <-ch
	assert.Equal(t, uint64(3), s.Seq)
	assert.ErrorIs(t, s.Err, boom)
	assert.Nil(t, s.Items)
}

func TestHubConflatesSlowSubscribers(t *testing.T) {
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := h.Subscribe(ctx)

	for i := 0; i < 5; i++ {
		h.Publish(nil, nil)
	}
	s := <-ch
	assert.Equal(t, uint64(5), s.Seq)
}

func TestHubClosesOnCancelAndClose(t *testing.T) {
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	ch := h.Subscribe(ctx)
	cancel()
	for range ch {
	}

	other := h.Subscribe(context.Background())
	h.Close()
	_, ok := <-other
	assert.False(t, ok)

	late := h.Subscribe(context.Background())
	_, ok = <-late
	assert.False(t, ok)
}

func TestHubCloseReleasesSubscribers(t *testing.T) {
	before := runtime.NumGoroutine()
	h := NewHub()
	for i := 0; i < 20; i++ {
		h.Subscribe(context.Background())
	}
	h.Close()
	assert.Eventually(t, func() bool { return runtime.NumGoroutine() <= before },
		2*time.Second, 5*time.Millisecond)
}

func TestPublishCopiesItems(t *testing.T) {
	h := NewHub()
	items := []model.Item{{ID: "a", Title: "x"}}
	s := h.Publish(items, nil)
	items[0].Title = "mutated"
	assert.Equal(t, "x", s.Items[0].Title)
}

func TestSortNewestFirstIsStable(t *testing.T) {
	items := []model.Item{
		{ID: "old", CreatedAt: 1},
		{ID: "tie1", CreatedAt: 5},
		{ID: "new", CreatedAt: 9},
		{ID: "tie2", CreatedAt: 5},
	}
	SortNewestFirst(items)
	var ids []string
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	assert.Equal(t, []string{"new", "tie1", "tie2", "old"}, ids)
}
