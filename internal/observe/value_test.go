package observe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribeReceivesCurrentValue(t *testing.T) {
	v := NewValue(1)
	ch, cancel := v.Subscribe()
	defer cancel()

	assert.Equal(t, 1, <-ch)
	v.Set(2)
	assert.Equal(t, 2, <-ch)
	assert.Equal(t, 2, v.Get())
}

func TestSlowSubscriberIsConflated(t *testing.T) {
	v := NewValue("a")
	ch, cancel := v.Subscribe()
	defer cancel()

	v.Set("b")
	v.Set("c")
	v.Set("d")

	assert.Equal(t, "d", <-ch)
	select {
	case x := <-ch:
		t.Fatalf("unexpected extra value %q", x)
	default:
	}
}

func TestCancelClosesChannel(t *testing.T) {
	v := NewValue(0)
	ch, cancel := v.Subscribe()
	<-ch
	cancel()
	cancel()

	_, ok := <-ch
	assert.False(t, ok)
	v.Set(5) // no panic on send to removed subscriber
	assert.Equal(t, 5, v.Get())
}

func TestCloseFreezesValue(t *testing.T) {
	v := NewValue(0)
	ch, cancel := v.Subscribe()
	<-ch

	v.Close()
	_, ok := <-ch
	require.False(t, ok)
	cancel()

	v.Set(9)
	assert.Equal(t, 0, v.Get())

	late, _ := v.Subscribe()
	_, ok = <-late
	assert.False(t, ok)
}
