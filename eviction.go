package redistruct

import (
	"context"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/redistruct/internal/reply"
)

const evictionRunTimeout = 10 * time.Second

type evictionConfig struct {
	rdb       goredis.UniversalClient
	log       Logger
	hooks     Hooks
	minDelay  time.Duration
	maxDelay  time.Duration
	keysLimit int
}

// evictionScheduler purges expired set members in the background, one loop
// per set name. Reads never depend on it; it only bounds memory on the server.
// A run that hits keysLimit halves the delay, an idle run grows it by half.
// A loop that finds its set gone stops; the next write to the set starts a
// new one.
type evictionScheduler struct {
	evictionConfig

	// name -> touch count, bumped by every schedule call. A loop only
	// retires if nobody touched its name since the run that saw the set gone.
	tasks *xsync.MapOf[string, uint64]

	mu        sync.Mutex // guards closed vs. wg.Add
	closed    bool
	stopCh    chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

func newEvictionScheduler(cfg evictionConfig) *evictionScheduler {
	if cfg.maxDelay < cfg.minDelay {
		cfg.maxDelay = cfg.minDelay
	}
	return &evictionScheduler{
		evictionConfig: cfg,
		tasks:          xsync.NewMapOf[string, uint64](),
		stopCh:         make(chan struct{}),
	}
}

// schedule starts the loop for name unless one is already running.
// Callers invoke it after writing to the set.
func (e *evictionScheduler) schedule(name string) {
	started := false
	e.tasks.Compute(name, func(touched uint64, loaded bool) (uint64, bool) {
		started = !loaded
		return touched + 1, false
	})
	if !started {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.wg.Add(1)
	go e.loop(name)
	e.log.Debug("eviction scheduled", Fields{"name": name})
}

func (e *evictionScheduler) loop(name string) {
	defer e.wg.Done()
	delay := e.minDelay
	timer := time.NewTimer(delay)
	defer timer.Stop()
	for {
		select {
		case <-timer.C:
			touched, _ := e.tasks.Load(name)
			removed, gone, err := e.runOnce(name)
			if err != nil {
				e.hooks.EvictionError(name, err)
				e.log.Warn("eviction run failed", Fields{"name": name, "err": err})
				removed = 0
			}
			if gone && e.retire(name, touched) {
				e.log.Debug("eviction stopped, set is gone", Fields{"name": name})
				return
			}
			delay = e.nextDelay(delay, removed)
			if err == nil {
				e.hooks.EvictionRun(name, removed, delay)
				if removed > 0 {
					e.log.Debug("evicted expired members", Fields{"name": name, "removed": removed, "next": delay})
				}
			}
			timer.Reset(delay)
		case <-e.stopCh:
			return
		}
	}
}

// retire drops name from the registry unless it was touched after touched
// was read.
func (e *evictionScheduler) retire(name string, touched uint64) bool {
	retired := false
	e.tasks.Compute(name, func(cur uint64, loaded bool) (uint64, bool) {
		if loaded && cur == touched {
			retired = true
			return cur, true
		}
		return cur, false
	})
	return retired
}

// runOnce reports gone when the set key does not exist.
func (e *evictionScheduler) runOnce(name string) (removed int, gone bool, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), evictionRunTimeout)
	defer cancel()
	res, err := evictScript.Run(ctx, e.rdb, []string{name}, e.keysLimit).Result()
	if err != nil {
		return 0, false, err
	}
	n, err := reply.Int64(res)
	if err != nil {
		return 0, false, err
	}
	if n < 0 {
		return 0, true, nil
	}
	return int(n), false, nil
}

func (e *evictionScheduler) nextDelay(cur time.Duration, removed int) time.Duration {
	switch {
	case removed >= e.keysLimit:
		cur /= 2
	case removed == 0:
		cur += cur / 2
	}
	if cur < e.minDelay {
		cur = e.minDelay
	}
	if cur > e.maxDelay {
		cur = e.maxDelay
	}
	return cur
}

func (e *evictionScheduler) close() {
	e.closeOnce.Do(func() {
		e.mu.Lock()
		e.closed = true
		close(e.stopCh)
		e.mu.Unlock()
		e.wg.Wait()
	})
}
