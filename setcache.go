package redistruct

import (
	"context"
	"iter"
	"time"

	goredis "github.com/redis/go-redis/v9"

	c "github.com/unkn0wn-root/redistruct/codec"
	"github.com/unkn0wn-root/redistruct/internal/reply"
	"github.com/unkn0wn-root/redistruct/rx"
)

// SetCache is a server-side set whose members may each expire on their own.
// A member is live while its expiration is in the future (by server clock);
// expired members are invisible to every read even before they are purged.
//
// The handle holds no mutable state and is safe to share. All operations
// return cold Monos: nothing is sent until the Mono is subscribed.
type SetCache[V any] struct {
	name      string
	codec     c.Codec[V]
	rdb       goredis.UniversalClient
	log       Logger
	hooks     Hooks
	scanCount int64
	evict     *evictionScheduler // nil when disabled
}

func (s *SetCache[V]) Name() string { return s.name }

// Add inserts v without expiration. Returns 1 if v was not live before, else 0.
// A live member keeps its current expiration.
func (s *SetCache[V]) Add(v V) rx.Mono[int64] {
	return rx.FromFunc(func(ctx context.Context) (int64, error) {
		b, err := s.encode(v)
		if err != nil {
			return 0, err
		}
		return s.added(s.evalInt(ctx, "add", addScript, int64(0), b))
	})
}

// AddTTL inserts v expiring after ttl (ttl <= 0 means never). It reports false
// and leaves the expiration untouched if v is already live.
func (s *SetCache[V]) AddTTL(v V, ttl time.Duration) rx.Mono[bool] {
	return rx.FromFunc(func(ctx context.Context) (bool, error) {
		b, err := s.encode(v)
		if err != nil {
			return false, err
		}
		n, err := s.added(s.evalInt(ctx, "add", addScript, ttlMillis(ttl), b))
		return n == 1, err
	})
}

// AddAll inserts vs without expiration and returns how many became live.
func (s *SetCache[V]) AddAll(vs []V) rx.Mono[int64] {
	return rx.FromFunc(func(ctx context.Context) (int64, error) {
		if len(vs) == 0 {
			return 0, nil
		}
		args, err := s.encodeAll(vs, 1)
		if err != nil {
			return 0, err
		}
		args[0] = int64(0)
		return s.added(s.evalInt(ctx, "add_all", addScript, args...))
	})
}

// Remove reports whether a live v was removed.
func (s *SetCache[V]) Remove(v V) rx.Mono[bool] {
	return rx.FromFunc(func(ctx context.Context) (bool, error) {
		b, err := s.encode(v)
		if err != nil {
			return false, err
		}
		n, err := s.evalInt(ctx, "remove", removeScript, b)
		return n > 0, err
	})
}

// RemoveAll reports whether at least one live member of vs was removed.
func (s *SetCache[V]) RemoveAll(vs []V) rx.Mono[bool] {
	return rx.FromFunc(func(ctx context.Context) (bool, error) {
		if len(vs) == 0 {
			return false, nil
		}
		args, err := s.encodeAll(vs, 0)
		if err != nil {
			return false, err
		}
		n, err := s.evalInt(ctx, "remove_all", removeScript, args...)
		return n > 0, err
	})
}

func (s *SetCache[V]) Contains(v V) rx.Mono[bool] {
	return rx.FromFunc(func(ctx context.Context) (bool, error) {
		b, err := s.encode(v)
		if err != nil {
			return false, err
		}
		return s.evalBool(ctx, "contains", containsAllScript, b)
	})
}

// ContainsAll is true for an empty vs.
func (s *SetCache[V]) ContainsAll(vs []V) rx.Mono[bool] {
	return rx.FromFunc(func(ctx context.Context) (bool, error) {
		if len(vs) == 0 {
			return true, nil
		}
		args, err := s.encodeAll(vs, 0)
		if err != nil {
			return false, err
		}
		return s.evalBool(ctx, "contains_all", containsAllScript, args...)
	})
}

// Size counts live members only.
func (s *SetCache[V]) Size() rx.Mono[int64] {
	return rx.FromFunc(func(ctx context.Context) (int64, error) {
		return s.evalInt(ctx, "size", sizeScript)
	})
}

func (s *SetCache[V]) IsEmpty() rx.Mono[bool] {
	return rx.Map(s.Size(), func(n int64) (bool, error) { return n == 0, nil })
}

// RetainAll removes every live member not in vs; an empty vs clears the set.
// Reports whether a live member was removed.
func (s *SetCache[V]) RetainAll(vs []V) rx.Mono[bool] {
	return rx.FromFunc(func(ctx context.Context) (bool, error) {
		args, err := s.encodeAll(vs, 0)
		if err != nil {
			return false, err
		}
		return s.evalBool(ctx, "retain_all", retainScript, args...)
	})
}

// Iterator walks live members chunk by chunk with a server-side cursor.
// Order is unspecified. Members added or removed during the walk may or may
// not be seen; a member is never yielded twice in one walk. Breaking out of
// the range loop abandons the cursor. The first error ends the walk.
func (s *SetCache[V]) Iterator(ctx context.Context) iter.Seq2[V, error] {
	return func(yield func(V, error) bool) {
		var zero V
		seen := make(map[string]struct{})
		cursor := "0"
		for {
			next, members, err := s.scan(ctx, cursor)
			if err != nil {
				yield(zero, err)
				return
			}
			for _, m := range members {
				if _, dup := seen[m]; dup {
					continue
				}
				seen[m] = struct{}{}
				v, err := s.decode([]byte(m))
				if err != nil {
					yield(zero, err)
					return
				}
				if !yield(v, nil) {
					return
				}
			}
			if next == "0" {
				return
			}
			cursor = next
		}
	}
}

// ReadAll collects every live member.
func (s *SetCache[V]) ReadAll() rx.Mono[[]V] {
	return rx.FromFunc(func(ctx context.Context) ([]V, error) {
		var out []V
		for v, err := range s.Iterator(ctx) {
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	})
}

// Expire makes the whole set disappear after ttl, whatever the member TTLs.
func (s *SetCache[V]) Expire(ttl time.Duration) rx.Mono[bool] {
	return rx.FromFunc(func(ctx context.Context) (bool, error) {
		return s.rdb.PExpire(ctx, s.name, ttl).Result()
	})
}

// ExpireAt makes the whole set disappear at t.
func (s *SetCache[V]) ExpireAt(t time.Time) rx.Mono[bool] {
	return rx.FromFunc(func(ctx context.Context) (bool, error) {
		return s.rdb.PExpireAt(ctx, s.name, t).Result()
	})
}

// ClearExpire cancels a pending Expire/ExpireAt.
func (s *SetCache[V]) ClearExpire() rx.Mono[bool] {
	return rx.FromFunc(func(ctx context.Context) (bool, error) {
		return s.rdb.Persist(ctx, s.name).Result()
	})
}

// RemainTimeToLive returns the time left before the whole set expires.
// -1 means no expiration is set and -2 that the set does not exist.
func (s *SetCache[V]) RemainTimeToLive() rx.Mono[time.Duration] {
	return rx.FromFunc(func(ctx context.Context) (time.Duration, error) {
		return s.rdb.PTTL(ctx, s.name).Result()
	})
}

// Delete drops the set with all its members.
func (s *SetCache[V]) Delete() rx.Mono[bool] {
	return rx.FromFunc(func(ctx context.Context) (bool, error) {
		n, err := s.rdb.Del(ctx, s.name).Result()
		return n > 0, err
	})
}

func (s *SetCache[V]) IsExists() rx.Mono[bool] {
	return rx.FromFunc(func(ctx context.Context) (bool, error) {
		n, err := s.rdb.Exists(ctx, s.name).Result()
		return n > 0, err
	})
}

// added keeps eviction running for a set that just gained members.
func (s *SetCache[V]) added(n int64, err error) (int64, error) {
	if err == nil && n > 0 && s.evict != nil {
		s.evict.schedule(s.name)
	}
	return n, err
}

func (s *SetCache[V]) scan(ctx context.Context, cursor string) (string, []string, error) {
	res, err := s.eval(ctx, "scan", scanScript, cursor, s.scanCount).Result()
	if err != nil {
		return "", nil, err
	}
	return reply.ScanChunk(res)
}

func (s *SetCache[V]) eval(ctx context.Context, op string, script *goredis.Script, args ...any) *goredis.Cmd {
	cmd := script.Run(ctx, s.rdb, []string{s.name}, args...)
	if err := cmd.Err(); err != nil && ctx.Err() == nil {
		s.hooks.ScriptError(s.name, op, err)
		s.log.Warn("script failed", Fields{"name": s.name, "op": op, "err": err})
	}
	return cmd
}

func (s *SetCache[V]) evalInt(ctx context.Context, op string, script *goredis.Script, args ...any) (int64, error) {
	res, err := s.eval(ctx, op, script, args...).Result()
	if err != nil {
		return 0, err
	}
	return reply.Int64(res)
}

func (s *SetCache[V]) evalBool(ctx context.Context, op string, script *goredis.Script, args ...any) (bool, error) {
	res, err := s.eval(ctx, op, script, args...).Result()
	if err != nil {
		return false, err
	}
	return reply.Bool(res)
}

func (s *SetCache[V]) encode(v V) ([]byte, error) {
	b, err := s.codec.Encode(v)
	if err != nil {
		return nil, &CodecError{Name: s.name, Op: "encode", Err: err}
	}
	return b, nil
}

// encodeAll encodes vs into script args, leaving skip leading slots free.
func (s *SetCache[V]) encodeAll(vs []V, skip int) ([]any, error) {
	args := make([]any, skip, skip+len(vs))
	for _, v := range vs {
		b, err := s.encode(v)
		if err != nil {
			return nil, err
		}
		args = append(args, b)
	}
	return args, nil
}

func (s *SetCache[V]) decode(b []byte) (V, error) {
	v, err := s.codec.Decode(b)
	if err != nil {
		s.hooks.DecodeError(s.name, err)
		return v, &CodecError{Name: s.name, Op: "decode", Err: err}
	}
	return v, nil
}

// ttlMillis rounds sub-millisecond positive TTLs up so they never mean "eternal".
func ttlMillis(ttl time.Duration) int64 {
	if ttl <= 0 {
		return 0
	}
	if ms := ttl.Milliseconds(); ms > 0 {
		return ms
	}
	return 1
}
