package statex

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		require.True(t, ok, "channel closed")
		return v
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for value")
	}
	var zero T
	return zero
}

func TestValue_GetSet(t *testing.T) {
	v := New(1)
	assert.Equal(t, 1, v.Get())
	v.Set(2)
	assert.Equal(t, 2, v.Get())
}

func TestValue_SubscribeYieldsCurrentThenUpdates(t *testing.T) {
	v := New("idle")
	ch, cancel := v.Subscribe()
	defer cancel()

	assert.Equal(t, "idle", recv(t, ch))

	v.Set("loading")
	assert.Equal(t, "loading", recv(t, ch))
}

func TestValue_SlowSubscriberSeesLatest(t *testing.T) {
	v := New(0)
	ch, cancel := v.Subscribe()
	defer cancel()

	for i := 1; i <= 10; i++ {
		v.Set(i)
	}
	assert.Equal(t, 10, recv(t, ch))
}

func TestValue_CancelClosesChannel(t *testing.T) {
	v := New(0)
	ch, cancel := v.Subscribe()
	<-ch
	cancel()
	cancel()

	_, ok := <-ch
	assert.False(t, ok)

	v.Set(1)
}

func TestValue_CloseDetachesAndIgnoresSet(t *testing.T) {
	v := New(0)
	ch, cancel := v.Subscribe()
	defer cancel()
	<-ch

	v.Close()
	_, ok := <-ch
	assert.False(t, ok)

	v.Set(5)
	assert.Equal(t, 0, v.Get())

	late, lateCancel := v.Subscribe()
	defer lateCancel()
	_, ok = <-late
	assert.False(t, ok)
}
