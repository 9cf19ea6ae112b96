// Package asynchook moves hook delivery off the caller's goroutine.
//
// usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{EvictionRunEvery: 10})
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	cl, _ := redistruct.New(redistruct.Options{Client: rdb, Hooks: hooks})
//
// Events are dropped when the queue is full. Close the Client before the
// Hooks so the eviction loops stop emitting first.
package asynchook

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/redistruct"
)

type Hooks struct {
	inner   redistruct.Hooks
	q       chan func()
	wg      sync.WaitGroup
	mu      sync.RWMutex // guards closed vs. send on q
	closed  bool
	once    sync.Once
	dropped atomic.Uint64
}

var _ redistruct.Hooks = (*Hooks)(nil)

func New(inner redistruct.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers. Later events are dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		close(h.q)
		h.mu.Unlock()
		h.wg.Wait()
	})
}

// Dropped reports how many events were discarded on a full or closed queue.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default:
		h.dropped.Add(1)
	}
}

func (h *Hooks) EvictionRun(name string, removed int, next time.Duration) {
	h.try(func() { h.inner.EvictionRun(name, removed, next) })
}
func (h *Hooks) EvictionError(name string, err error) {
	h.try(func() { h.inner.EvictionError(name, err) })
}
func (h *Hooks) ScriptError(name, op string, err error) {
	h.try(func() { h.inner.ScriptError(name, op, err) })
}
func (h *Hooks) DecodeError(name string, err error) {
	h.try(func() { h.inner.DecodeError(name, err) })
}
