package redistruct

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextDelay(t *testing.T) {
	e := newEvictionScheduler(evictionConfig{
		log:       NopLogger{},
		hooks:     NopHooks{},
		minDelay:  time.Second,
		maxDelay:  2 * time.Hour,
		keysLimit: 300,
	})

	cases := []struct {
		name    string
		cur     time.Duration
		removed int
		want    time.Duration
	}{
		{"idle grows by half", 2 * time.Second, 0, 3 * time.Second},
		{"partial run keeps delay", 4 * time.Second, 10, 4 * time.Second},
		{"full run halves", 4 * time.Second, 300, 2 * time.Second},
		{"halving clamps to min", time.Second, 300, time.Second},
		{"growth clamps to max", 100 * time.Minute, 0, 2 * time.Hour},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, e.nextDelay(tc.cur, tc.removed))
		})
	}
}

func TestEvictionSchedulerMaxBelowMin(t *testing.T) {
	e := newEvictionScheduler(evictionConfig{minDelay: time.Minute, maxDelay: time.Second})
	assert.Equal(t, time.Minute, e.maxDelay)
}

func TestRunOnceRespectsLimit(t *testing.T) {
	env := newTestEnv(t, nil)
	s := newSet[int](t, env, "evict")
	for i := 0; i < 5; i++ {
		await(t, s.AddTTL(i, time.Second))
	}
	await(t, s.Add(100))
	env.advance(time.Second)

	e := newEvictionScheduler(evictionConfig{
		rdb:       env.rdb,
		log:       NopLogger{},
		hooks:     NopHooks{},
		minDelay:  time.Second,
		maxDelay:  time.Minute,
		keysLimit: 3,
	})

	for _, want := range []int{3, 2, 0} {
		n, gone, err := e.runOnce("evict")
		require.NoError(t, err)
		assert.False(t, gone)
		assert.Equal(t, want, n)
	}

	card, err := env.rdb.ZCard(context.Background(), "evict").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), card, "eternal member survives")
}

func TestRunOnceMissingKey(t *testing.T) {
	env := newTestEnv(t, nil)
	e := newEvictionScheduler(evictionConfig{rdb: env.rdb, keysLimit: 10})
	n, gone, err := e.runOnce("nope")
	require.NoError(t, err)
	assert.True(t, gone)
	assert.Zero(t, n)
}

// Expired members are physically removed without any client call touching them.
func TestEvictionLoopPurges(t *testing.T) {
	hooks := &recordingHooks{}
	env := newTestEnv(t, func(o *Options) {
		o.DisableEviction = false
		o.Hooks = hooks
		o.EvictionMinDelay = 10 * time.Millisecond
		o.EvictionMaxDelay = 50 * time.Millisecond
	})
	s := newSet[string](t, env, "simple")
	await(t, s.AddTTL("123", 5*time.Second))
	await(t, s.Add("keep"))

	env.advance(11 * time.Second)

	require.Eventually(t, func() bool {
		n, err := env.rdb.ZCard(context.Background(), "simple").Result()
		return err == nil && n == 1
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, int64(1), await(t, s.Size()))
	require.Eventually(t, func() bool {
		for _, ev := range hooks.byKind("eviction_run") {
			if ev.name == "simple" && ev.n == 1 {
				return true
			}
		}
		return false
	}, 5*time.Second, 10*time.Millisecond)
}

func TestEvictionScheduledOncePerName(t *testing.T) {
	env := newTestEnv(t, func(o *Options) {
		o.DisableEviction = false
		o.EvictionMinDelay = time.Hour
	})
	newSet[int](t, env, "a")
	newSet[int](t, env, "a")
	newSet[int](t, env, "b")

	n := 0
	env.cl.evict.tasks.Range(func(string, uint64) bool { n++; return true })
	assert.Equal(t, 2, n)
}

func TestEvictionAfterCloseDoesNotStart(t *testing.T) {
	env := newTestEnv(t, func(o *Options) { o.DisableEviction = false })
	require.NoError(t, env.cl.Close(context.Background()))
	require.NoError(t, env.cl.Close(context.Background()))

	// schedule after close records the name but never starts a loop
	env.cl.evict.schedule("late")
	env.cl.evict.wg.Wait()
}

func activeTask(env *testEnv, name string) bool {
	_, ok := env.cl.evict.tasks.Load(name)
	return ok
}

// Deleted or never-written sets do not keep a loop polling Redis.
func TestEvictionLoopRetiresAndRestarts(t *testing.T) {
	env := newTestEnv(t, func(o *Options) {
		o.DisableEviction = false
		o.EvictionMinDelay = 10 * time.Millisecond
		o.EvictionMaxDelay = 20 * time.Millisecond
	})

	s := newSet[string](t, env, "throwaway")
	require.Eventually(t, func() bool { return !activeTask(env, "throwaway") }, 5*time.Second, 10*time.Millisecond,
		"loop for a set that was never written should stop")

	await(t, s.AddTTL("a", time.Second))
	await(t, s.Add("b"))
	assert.True(t, activeTask(env, "throwaway"), "add restarts the loop")

	env.advance(2 * time.Second)
	require.Eventually(t, func() bool {
		n, err := env.rdb.ZCard(context.Background(), "throwaway").Result()
		return err == nil && n == 1
	}, 5*time.Second, 10*time.Millisecond)

	assert.True(t, await(t, s.Delete()))
	require.Eventually(t, func() bool { return !activeTask(env, "throwaway") }, 5*time.Second, 10*time.Millisecond,
		"loop should stop after Delete")
}

func TestRetireSkipsTouchedName(t *testing.T) {
	e := newEvictionScheduler(evictionConfig{log: NopLogger{}, minDelay: time.Hour, maxDelay: time.Hour})
	t.Cleanup(e.close)

	e.schedule("s")
	touched, ok := e.tasks.Load("s")
	require.True(t, ok)

	e.schedule("s") // a write between the run and the retire
	assert.False(t, e.retire("s", touched))
	_, ok = e.tasks.Load("s")
	assert.True(t, ok)

	now, _ := e.tasks.Load("s")
	assert.True(t, e.retire("s", now))
	_, ok = e.tasks.Load("s")
	assert.False(t, ok)
}
