// Package notify delivers state changes to subscribers off the caller's
// goroutine.
package notify

import "sync"

// Fanout hands each pushed value to every subscriber in push order.  One
// goroutine at a time does the delivery and it holds no lock while a
// subscriber runs, so subscribers may call back into whatever pushed.
// The zero value is ready to use.
type Fanout[T any] struct {
	mu        sync.Mutex
	subs      []entry[T]
	nextID    int
	pending   []T
	draining  bool
	pushed    uint64
	delivered uint64
	waiters   []waiter
}

type entry[T any] struct {
	id int
	fn func(T)
}

type waiter struct {
	at uint64
	ch chan struct{}
}

// Subscribe adds fn.  It sees values delivered after it was added.  The
// returned func removes it.
func (f *Fanout[T]) Subscribe(fn func(T)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	f.subs = append(f.subs, entry[T]{id: id, fn: fn})
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		for i, e := range f.subs {
			if e.id == id {
				f.subs = append(f.subs[:i:i], f.subs[i+1:]...)
				return
			}
		}
	}
}

// Push queues v and returns without waiting for delivery.
func (f *Fanout[T]) Push(v T) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = append(f.pending, v)
	f.pushed++
	if f.draining {
		return
	}
	f.draining = true
	go f.drain()
}

// Flushed returns a channel that is closed once every value pushed before
// the call has been delivered.
func (f *Fanout[T]) Flushed() <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	if f.delivered >= f.pushed {
		close(ch)
		return ch
	}
	f.waiters = append(f.waiters, waiter{at: f.pushed, ch: ch})
	return ch
}

func (f *Fanout[T]) drain() {
	for {
		f.mu.Lock()
		if len(f.pending) == 0 {
			f.draining = false
			f.mu.Unlock()
			return
		}
		v := f.pending[0]
		var zero T
		f.pending[0] = zero
		f.pending = f.pending[1:]
		subs := make([]func(T), len(f.subs))
		for i, e := range f.subs {
			subs[i] = e.fn
		}
		f.mu.Unlock()

		for _, fn := range subs {
			fn(v)
		}

		f.mu.Lock()
		f.delivered++
		kept := f.waiters[:0]
		for _, w := range f.waiters {
			if w.at <= f.delivered {
				close(w.ch)
				continue
			}
			kept = append(kept, w)
		}
		f.waiters = kept
		f.mu.Unlock()
	}
}
