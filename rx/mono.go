// Package rx provides Mono, a cold producer of at most one value.
//
// A Mono does no work until it is subscribed (Subscribe) or blocked on
// (Block, Sync). Every subscription runs the underlying operation again.
// A Mono terminates exactly once: with a value followed by completion, with
// completion alone (empty), or with an error.
package rx

import (
	"context"
	"sync"
	"sync/atomic"
)

// Mono is a lazy, cold producer of zero or one T. The zero Mono is empty.
type Mono[T any] struct {
	run func(ctx context.Context) (T, bool, error)
}

// New wraps fn. fn reports ok=false to complete without a value.
func New[T any](fn func(ctx context.Context) (v T, ok bool, err error)) Mono[T] {
	return Mono[T]{run: fn}
}

// FromFunc wraps an operation that always produces a value on success.
func FromFunc[T any](fn func(ctx context.Context) (T, error)) Mono[T] {
	return Mono[T]{run: func(ctx context.Context) (T, bool, error) {
		v, err := fn(ctx)
		if err != nil {
			var zero T
			return zero, false, err
		}
		return v, true, nil
	}}
}

func Just[T any](v T) Mono[T] {
	return Mono[T]{run: func(context.Context) (T, bool, error) { return v, true, nil }}
}

func Empty[T any]() Mono[T] { return Mono[T]{} }

func Error[T any](err error) Mono[T] {
	return Mono[T]{run: func(context.Context) (T, bool, error) {
		var zero T
		return zero, false, err
	}}
}

// Map transforms the value of m. Empty and error terminations pass through.
func Map[T, R any](m Mono[T], f func(T) (R, error)) Mono[R] {
	return Mono[R]{run: func(ctx context.Context) (R, bool, error) {
		var zero R
		v, ok, err := m.Block(ctx)
		if err != nil || !ok {
			return zero, false, err
		}
		r, err := f(v)
		if err != nil {
			return zero, false, err
		}
		return r, true, nil
	}}
}

// Block runs the operation on the calling goroutine.
func (m Mono[T]) Block(ctx context.Context) (T, bool, error) {
	if m.run == nil {
		var zero T
		return zero, false, nil
	}
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, false, err
	}
	return m.run(ctx)
}

// Sync blocks on m and returns its value. An empty Mono yields the zero T
// and a nil error; use Block to tell the two apart.
func Sync[T any](ctx context.Context, m Mono[T]) (T, error) {
	v, _, err := m.Block(ctx)
	return v, err
}

// Subscriber receives the terminal signals of one subscription.
// Nil callbacks are skipped.
type Subscriber[T any] struct {
	OnNext     func(T)
	OnError    func(error)
	OnComplete func()
}

const (
	subActive int32 = iota
	subDelivering
	subCanceled
)

// Subscription is the handle of a running Subscribe.
type Subscription struct {
	cancel   context.CancelFunc
	state    atomic.Int32
	done     chan struct{}
	doneOnce sync.Once
}

// Cancel drops the pending reply and closes Done at once, even if the
// operation has not returned yet. No signal is delivered after a successful
// Cancel. Once delivery has started Cancel is a no-op.
func (s *Subscription) Cancel() {
	if s.state.CompareAndSwap(subActive, subCanceled) {
		s.cancel()
		s.finish()
	}
}

func (s *Subscription) finish() { s.doneOnce.Do(func() { close(s.done) }) }

// Done is closed when the subscription terminates or is canceled.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Canceled reports whether Cancel won against delivery.
func (s *Subscription) Canceled() bool { return s.state.Load() == subCanceled }

// Subscribe starts the operation on its own goroutine.
func (m Mono[T]) Subscribe(ctx context.Context, sub Subscriber[T]) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	s := &Subscription{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer s.finish()
		defer cancel()

		v, ok, err := m.Block(ctx)
		if !s.state.CompareAndSwap(subActive, subDelivering) {
			return
		}
		if err != nil {
			if sub.OnError != nil {
				sub.OnError(err)
			}
			return
		}
		if ok && sub.OnNext != nil {
			sub.OnNext(v)
		}
		if sub.OnComplete != nil {
			sub.OnComplete()
		}
	}()
	return s
}
