// Package sloghooks logs redistruct hook events through log/slog.
package sloghooks

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/redistruct"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	EvictionRunEvery uint64
	DecodeErrorEvery uint64
	// Log eviction runs that removed nothing. Off by default.
	LogIdleEvictions bool
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	evictionCtr atomic.Uint64
	decodeCtr   atomic.Uint64
}

var _ redistruct.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) EvictionRun(name string, removed int, next time.Duration) {
	if h.l == nil || (removed == 0 && !h.opts.LogIdleEvictions) {
		return
	}
	if !sample(h.opts.EvictionRunEvery, &h.evictionCtr) {
		return
	}
	h.l.Debug("redistruct.eviction_run",
		"name", name,
		"removed", removed,
		"next", next)
}

func (h *Hooks) EvictionError(name string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("redistruct.eviction_error",
		"name", name,
		"err", err)
}

func (h *Hooks) ScriptError(name, op string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("redistruct.script_error",
		"name", name,
		"op", op,
		"err", err)
}

func (h *Hooks) DecodeError(name string, err error) {
	if h.l == nil || !sample(h.opts.DecodeErrorEvery, &h.decodeCtr) {
		return
	}
	h.l.Error("redistruct.decode_error",
		"name", name,
		"err", err)
}
