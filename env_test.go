package redistruct

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/redistruct/rx"
)

// testEnv runs a miniredis whose clock only moves when the test says so.
// Member expiry follows TIME; key-level TTLs need FastForward, so advance
// does both.
type testEnv struct {
	mr  *miniredis.Miniredis
	rdb *goredis.Client
	cl  *Client
	now time.Time
}

func newTestEnv(t *testing.T, optsOpt func(*Options)) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	env := &testEnv{
		mr:  mr,
		now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	mr.SetTime(env.now)
	env.rdb = goredis.NewClient(&goredis.Options{Addr: mr.Addr()})

	opts := Options{Client: env.rdb, CloseClient: true, DisableEviction: true}
	if optsOpt != nil {
		optsOpt(&opts)
	}
	cl, err := New(opts)
	require.NoError(t, err)
	env.cl = cl
	t.Cleanup(func() { _ = cl.Close(context.Background()) })
	return env
}

func (e *testEnv) advance(d time.Duration) {
	e.now = e.now.Add(d)
	e.mr.SetTime(e.now)
	e.mr.FastForward(d)
}

func newSet[V any](t *testing.T, env *testEnv, name string) *SetCache[V] {
	t.Helper()
	s, err := GetSetCache[V](env.cl, name)
	require.NoError(t, err)
	return s
}

func await[T any](t *testing.T, m rx.Mono[T]) T {
	t.Helper()
	v, err := rx.Sync(context.Background(), m)
	require.NoError(t, err)
	return v
}

func members[V any](t *testing.T, s *SetCache[V]) []V {
	t.Helper()
	return await(t, s.ReadAll())
}

type hookEvent struct {
	kind string
	name string
	op   string
	n    int
	err  error
}

type recordingHooks struct {
	mu     sync.Mutex
	events []hookEvent
}

func (h *recordingHooks) add(e hookEvent) {
	h.mu.Lock()
	h.events = append(h.events, e)
	h.mu.Unlock()
}

func (h *recordingHooks) EvictionRun(name string, removed int, _ time.Duration) {
	h.add(hookEvent{kind: "eviction_run", name: name, n: removed})
}
func (h *recordingHooks) EvictionError(name string, err error) {
	h.add(hookEvent{kind: "eviction_error", name: name, err: err})
}
func (h *recordingHooks) ScriptError(name, op string, err error) {
	h.add(hookEvent{kind: "script_error", name: name, op: op, err: err})
}
func (h *recordingHooks) DecodeError(name string, err error) {
	h.add(hookEvent{kind: "decode_error", name: name, err: err})
}

func (h *recordingHooks) byKind(kind string) []hookEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []hookEvent
	for _, e := range h.events {
		if e.kind == kind {
			out = append(out, e)
		}
	}
	return out
}
