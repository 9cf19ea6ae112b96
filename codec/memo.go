package codec

import (
	"errors"

	rc "github.com/dgraph-io/ristretto"
)

// Memo caches Decode results by payload bytes in a ristretto cache, so
// iterating a large set does not decode the same member over and over.
// Decoded values are shared between callers: use only with immutable V
// (strings, numbers, value structs without pointers/maps/slices).
type Memo[V any] struct {
	inner Codec[V]
	c     *rc.Cache
}

type MemoConfig struct {
	NumCounters int64 // ~10x the expected number of distinct members
	MaxCost     int64 // total payload bytes kept
	BufferItems int64 // 0 => 64
}

func NewMemo[V any](inner Codec[V], cfg MemoConfig) (*Memo[V], error) {
	if inner == nil {
		return nil, errors.New("codec: memo needs an inner codec")
	}
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 {
		return nil, errors.New("codec: invalid memo config")
	}
	if cfg.BufferItems <= 0 {
		cfg.BufferItems = 64
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
	})
	if err != nil {
		return nil, err
	}
	return &Memo[V]{inner: inner, c: c}, nil
}

func (m *Memo[V]) Encode(v V) ([]byte, error) { return m.inner.Encode(v) }

func (m *Memo[V]) Decode(b []byte) (V, error) {
	k := string(b)
	if hit, ok := m.c.Get(k); ok {
		if v, ok := hit.(V); ok {
			return v, nil
		}
		m.c.Del(k)
	}
	v, err := m.inner.Decode(b)
	if err != nil {
		return v, err
	}
	m.c.Set(k, v, int64(len(b))+1)
	return v, nil
}

// Wait blocks until pending cache writes are applied.
func (m *Memo[V]) Wait() { m.c.Wait() }

func (m *Memo[V]) Close() { m.c.Close() }
