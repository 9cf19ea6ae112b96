package redistruct

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	c "github.com/unkn0wn-root/redistruct/codec"
	"github.com/unkn0wn-root/redistruct/rx"
)

// BlockingDeque is a server-side list with blocking takes at both ends.
// Timed polls complete empty when the timeout elapses; that is not an error.
// Redis blocks in whole seconds, so positive timeouts below 1s wait 1s.
// Canceling a waiting take stops it within a second; an element that arrives
// in that window may be taken and dropped.
type BlockingDeque[V any] struct {
	name  string
	codec c.Codec[V]
	rdb   goredis.UniversalClient
	hooks Hooks
}

func (d *BlockingDeque[V]) Name() string { return d.name }

// PutFirst inserts v at the head. The Mono completes empty.
func (d *BlockingDeque[V]) PutFirst(v V) rx.Mono[struct{}] {
	return d.push(v, true)
}

// PutLast inserts v at the tail. The Mono completes empty.
func (d *BlockingDeque[V]) PutLast(v V) rx.Mono[struct{}] {
	return d.push(v, false)
}

// OfferFirst is PutFirst reporting true on success.
func (d *BlockingDeque[V]) OfferFirst(v V) rx.Mono[bool] {
	return offer(d.push(v, true))
}

func (d *BlockingDeque[V]) OfferLast(v V) rx.Mono[bool] {
	return offer(d.push(v, false))
}

// PollFirst removes the head without waiting; empty when the deque is empty.
func (d *BlockingDeque[V]) PollFirst() rx.Mono[V] {
	return d.pop(func(ctx context.Context) ([]byte, error) {
		return d.rdb.LPop(ctx, d.name).Bytes()
	})
}

func (d *BlockingDeque[V]) PollLast() rx.Mono[V] {
	return d.pop(func(ctx context.Context) ([]byte, error) {
		return d.rdb.RPop(ctx, d.name).Bytes()
	})
}

func (d *BlockingDeque[V]) PeekFirst() rx.Mono[V] {
	return d.pop(func(ctx context.Context) ([]byte, error) {
		return d.rdb.LIndex(ctx, d.name, 0).Bytes()
	})
}

func (d *BlockingDeque[V]) PeekLast() rx.Mono[V] {
	return d.pop(func(ctx context.Context) ([]byte, error) {
		return d.rdb.LIndex(ctx, d.name, -1).Bytes()
	})
}

// TakeFirst waits as long as needed for a head element.
func (d *BlockingDeque[V]) TakeFirst() rx.Mono[V] {
	return d.blockingPop(0, true, nil)
}

func (d *BlockingDeque[V]) TakeLast() rx.Mono[V] {
	return d.blockingPop(0, false, nil)
}

// PollFirstTimeout waits up to timeout for a head element.
// timeout <= 0 behaves like PollFirst.
func (d *BlockingDeque[V]) PollFirstTimeout(timeout time.Duration) rx.Mono[V] {
	if timeout <= 0 {
		return d.PollFirst()
	}
	return d.blockingPop(timeout, true, nil)
}

func (d *BlockingDeque[V]) PollLastTimeout(timeout time.Duration) rx.Mono[V] {
	if timeout <= 0 {
		return d.PollLast()
	}
	return d.blockingPop(timeout, false, nil)
}

// PollFirstFromAny takes the head of the first non-empty queue among this
// deque and names, checked in that order, waiting up to timeout
// (0 waits forever). All queues must hold values written with the same codec.
func (d *BlockingDeque[V]) PollFirstFromAny(timeout time.Duration, names ...string) rx.Mono[V] {
	return d.blockingPop(timeout, true, names)
}

func (d *BlockingDeque[V]) PollLastFromAny(timeout time.Duration, names ...string) rx.Mono[V] {
	return d.blockingPop(timeout, false, names)
}

func (d *BlockingDeque[V]) Size() rx.Mono[int64] {
	return rx.FromFunc(func(ctx context.Context) (int64, error) {
		return d.rdb.LLen(ctx, d.name).Result()
	})
}

func (d *BlockingDeque[V]) Delete() rx.Mono[bool] {
	return rx.FromFunc(func(ctx context.Context) (bool, error) {
		n, err := d.rdb.Del(ctx, d.name).Result()
		return n > 0, err
	})
}

func (d *BlockingDeque[V]) push(v V, head bool) rx.Mono[struct{}] {
	return rx.New(func(ctx context.Context) (struct{}, bool, error) {
		b, err := d.codec.Encode(v)
		if err != nil {
			return struct{}{}, false, &CodecError{Name: d.name, Op: "encode", Err: err}
		}
		if head {
			err = d.rdb.LPush(ctx, d.name, b).Err()
		} else {
			err = d.rdb.RPush(ctx, d.name, b).Err()
		}
		return struct{}{}, false, err
	})
}

func offer(put rx.Mono[struct{}]) rx.Mono[bool] {
	return rx.FromFunc(func(ctx context.Context) (bool, error) {
		_, _, err := put.Block(ctx)
		return err == nil, err
	})
}

// blockSlice bounds one server-side wait. go-redis does not abort a blocked
// read on ctx cancel, so long waits are split and ctx is checked between
// slices; a canceled take releases its connection within one slice.
const blockSlice = time.Second

func (d *BlockingDeque[V]) blockingPop(timeout time.Duration, head bool, others []string) rx.Mono[V] {
	keys := append([]string{d.name}, others...)
	return d.pop(func(ctx context.Context) ([]byte, error) {
		var deadline time.Time
		if timeout > 0 {
			deadline = time.Now().Add(timeout)
		}
		for {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			wait := blockSlice
			if !deadline.IsZero() {
				left := time.Until(deadline)
				if left < 10*time.Millisecond {
					return nil, goredis.Nil
				}
				wait = min(wait, left)
			}
			var res []string
			var err error
			if head {
				res, err = d.rdb.BLPop(ctx, wait, keys...).Result()
			} else {
				res, err = d.rdb.BRPop(ctx, wait, keys...).Result()
			}
			if errors.Is(err, goredis.Nil) {
				continue
			}
			if err != nil {
				return nil, err
			}
			if len(res) != 2 {
				return nil, ErrProtocol
			}
			return []byte(res[1]), nil
		}
	})
}

// pop decodes what fetch returns; redis.Nil completes the Mono empty.
func (d *BlockingDeque[V]) pop(fetch func(ctx context.Context) ([]byte, error)) rx.Mono[V] {
	return rx.New(func(ctx context.Context) (V, bool, error) {
		var zero V
		b, err := fetch(ctx)
		if errors.Is(err, goredis.Nil) {
			return zero, false, nil
		}
		if err != nil {
			return zero, false, err
		}
		v, err := d.codec.Decode(b)
		if err != nil {
			d.hooks.DecodeError(d.name, err)
			return zero, false, &CodecError{Name: d.name, Op: "decode", Err: err}
		}
		return v, true, nil
	})
}
