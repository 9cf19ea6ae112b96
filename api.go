package redistruct

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	c "github.com/unkn0wn-root/redistruct/codec"
)

const (
	defaultScanCount         = 10
	defaultEvictionMinDelay  = time.Second
	defaultEvictionMaxDelay  = 2 * time.Hour
	defaultEvictionKeysLimit = 300
)

// Options configure a Client. Only Client is required; others have sensible defaults.
type Options struct {
	// Required
	Client      goredis.UniversalClient
	CloseClient bool // set true only if this Client exclusively owns the redis client

	Logger    Logger // if nil, NopLogger is used
	Hooks     Hooks  // if nil, NopHooks is used
	ScanCount int64  // members per iteration chunk; 0 => 10

	// Eviction runs one goroutine per live set name, each polling Redis at
	// EvictionMinDelay..EvictionMaxDelay. A loop stops once its set is gone
	// and restarts on the next add.
	DisableEviction   bool          // default false => expired set members are purged in background
	EvictionMinDelay  time.Duration // 0 => 1s
	EvictionMaxDelay  time.Duration // 0 => 2h
	EvictionKeysLimit int           // members removed per run; 0 => 300
}

// Client is the factory for collection handles. All handles created from one
// Client share its connection pool, logger and hooks. Safe for concurrent use.
type Client struct {
	rdb         goredis.UniversalClient
	closeClient bool
	log         Logger
	hooks       Hooks
	scanCount   int64
	evict       *evictionScheduler // nil when disabled
}

func New(opts Options) (*Client, error) {
	if opts.Client == nil {
		return nil, ErrNilClient
	}
	cl := &Client{
		rdb:         opts.Client,
		closeClient: opts.CloseClient,
	}
	cl.log = coalesce[Logger](opts.Logger, NopLogger{})
	cl.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	cl.scanCount = coalesce(opts.ScanCount, int64(defaultScanCount))

	if !opts.DisableEviction {
		cl.evict = newEvictionScheduler(evictionConfig{
			rdb:       cl.rdb,
			log:       cl.log,
			hooks:     cl.hooks,
			minDelay:  coalesce(opts.EvictionMinDelay, defaultEvictionMinDelay),
			maxDelay:  coalesce(opts.EvictionMaxDelay, defaultEvictionMaxDelay),
			keysLimit: coalesce(opts.EvictionKeysLimit, defaultEvictionKeysLimit),
		})
	}
	return cl, nil
}

// Close stops background eviction and releases the redis client when owned.
// Safe to call multiple times.
func (cl *Client) Close(context.Context) error {
	if cl.evict != nil {
		cl.evict.close()
	}
	if cl.closeClient {
		if err := cl.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}

// GetSetCache returns a handle to the set cache called name using the JSON codec.
func GetSetCache[V any](cl *Client, name string) (*SetCache[V], error) {
	return GetSetCacheWithCodec[V](cl, name, c.JSON[V]{})
}

// GetSetCacheWithCodec returns a handle to the set cache called name.
// Two handles with the same name refer to the same set; their codecs must agree.
func GetSetCacheWithCodec[V any](cl *Client, name string, cd c.Codec[V]) (*SetCache[V], error) {
	if err := cl.checkHandle(name, cd == nil); err != nil {
		return nil, err
	}
	s := &SetCache[V]{
		name:      name,
		codec:     cd,
		rdb:       cl.rdb,
		log:       cl.log,
		hooks:     cl.hooks,
		scanCount: cl.scanCount,
		evict:     cl.evict,
	}
	if cl.evict != nil {
		cl.evict.schedule(name)
	}
	cl.log.Debug("set cache handle created", Fields{"name": name})
	return s, nil
}

// GetBlockingDeque returns a handle to the deque called name using the JSON codec.
func GetBlockingDeque[V any](cl *Client, name string) (*BlockingDeque[V], error) {
	return GetBlockingDequeWithCodec[V](cl, name, c.JSON[V]{})
}

func GetBlockingDequeWithCodec[V any](cl *Client, name string, cd c.Codec[V]) (*BlockingDeque[V], error) {
	if err := cl.checkHandle(name, cd == nil); err != nil {
		return nil, err
	}
	return &BlockingDeque[V]{
		name:  name,
		codec: cd,
		rdb:   cl.rdb,
		hooks: cl.hooks,
	}, nil
}

func (cl *Client) checkHandle(name string, nilCodec bool) error {
	if name == "" {
		return ErrEmptyName
	}
	if nilCodec {
		return ErrNilCodec
	}
	return nil
}
