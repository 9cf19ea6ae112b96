package redistruct

import "time"

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
type Hooks interface {
	// The eviction scheduler removed expired members of name.
	// next is the delay until the following run.
	EvictionRun(name string, removed int, next time.Duration)

	// An eviction run for name failed.
	EvictionError(name string, err error)

	// A server-side script for op on name failed (server or transport error).
	ScriptError(name, op string, err error)

	// A member read from name could not be decoded by the handle's codec.
	DecodeError(name string, err error)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) EvictionRun(string, int, time.Duration) {}
func (NopHooks) EvictionError(string, error)            {}
func (NopHooks) ScriptError(string, string, error)      {}
func (NopHooks) DecodeError(string, error)              {}
