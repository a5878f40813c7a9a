package notify

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flushed[T any](t *testing.T, f *Fanout[T]) {
	t.Helper()
	select {
	case <-f.Flushed():
	case <-time.After(2 * time.Second):
		t.Fatal("delivery did not finish")
	}
}

func TestDeliversInPushOrder(t *testing.T) {
	var f Fanout[int]
	var got []int
	f.Subscribe(func(v int) { got = append(got, v) })

	for i := 0; i < 100; i++ {
		f.Push(i)
	}
	flushed(t, &f)
	require.Len(t, got, 100)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	var f Fanout[string]
	var a, b []string
	unsub := f.Subscribe(func(v string) { a = append(a, v) })
	f.Subscribe(func(v string) { b = append(b, v) })

	f.Push("one")
	flushed(t, &f)
	unsub()
	f.Push("two")
	flushed(t, &f)

	assert.Equal(t, []string{"one"}, a)
	assert.Equal(t, []string{"one", "two"}, b)
}

func TestSubscriberMayPushAndLock(t *testing.T) {
	var f Fanout[int]
	var mu sync.Mutex
	var got []int
	f.Subscribe(func(v int) {
		mu.Lock()
		got = append(got, v)
		mu.Unlock()
		if v < 3 {
			f.Push(v + 1)
		}
	})

	mu.Lock()
	f.Push(0)
	mu.Unlock()

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 4
	}, 2*time.Second, 5*time.Millisecond)
	mu.Lock()
	assert.Equal(t, []int{0, 1, 2, 3}, got)
	mu.Unlock()
}

func TestFlushedWithNothingPending(t *testing.T) {
	var f Fanout[int]
	select {
	case <-f.Flushed():
	default:
		t.Fatal("empty fanout should be flushed")
	}
}
