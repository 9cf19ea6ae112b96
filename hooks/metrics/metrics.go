// Package metrics counts redistruct hook events with VictoriaMetrics/metrics.
//
// Counters live in their own *metrics.Set; register it with
// metrics.RegisterSet to expose them next to the process metrics.
package metrics

import (
	"fmt"
	"strings"
	"time"

	"github.com/VictoriaMetrics/metrics"

	"github.com/unkn0wn-root/redistruct"
)

type Hooks struct {
	set *metrics.Set
}

var _ redistruct.Hooks = (*Hooks)(nil)

func New() *Hooks {
	return &Hooks{set: metrics.NewSet()}
}

// Set exposes the underlying metric set.
func (h *Hooks) Set() *metrics.Set { return h.set }

func (h *Hooks) EvictionRun(name string, removed int, next time.Duration) {
	n := label(name)
	h.set.GetOrCreateCounter(fmt.Sprintf(`redistruct_eviction_runs_total{name="%s"}`, n)).Inc()
	h.set.GetOrCreateCounter(fmt.Sprintf(`redistruct_evicted_members_total{name="%s"}`, n)).Add(removed)
	h.set.GetOrCreateFloatCounter(fmt.Sprintf(`redistruct_eviction_delay_seconds_total{name="%s"}`, n)).Add(next.Seconds())
}

func (h *Hooks) EvictionError(name string, _ error) {
	h.set.GetOrCreateCounter(fmt.Sprintf(`redistruct_eviction_errors_total{name="%s"}`, label(name))).Inc()
}

func (h *Hooks) ScriptError(name, op string, _ error) {
	h.set.GetOrCreateCounter(fmt.Sprintf(`redistruct_script_errors_total{name="%s",op="%s"}`, label(name), label(op))).Inc()
}

func (h *Hooks) DecodeError(name string, _ error) {
	h.set.GetOrCreateCounter(fmt.Sprintf(`redistruct_decode_errors_total{name="%s"}`, label(name))).Inc()
}

// Prometheus text format escapes only backslash, double quote and newline
// inside label values.
var labelEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

func label(v string) string { return labelEscaper.Replace(v) }
