package redistruct

import (
	"errors"
	"fmt"

	"github.com/unkn0wn-root/redistruct/internal/reply"
)

var (
	ErrNilClient = errors.New("redistruct: nil redis client")
	ErrEmptyName = errors.New("redistruct: empty object name")
	ErrNilCodec  = errors.New("redistruct: nil codec")

	// ErrProtocol reports a reply whose shape does not match the command.
	ErrProtocol = reply.ErrMalformed
)

// CodecError reports a failed Encode or Decode for a value of one handle.
// It never poisons the handle; only the operation that hit it fails.
type CodecError struct {
	Name string // object name
	Op   string // "encode" or "decode"
	Err  error
}

func (e *CodecError) Error() string {
	return fmt.Sprintf("redistruct: %s %q: %v", e.Op, e.Name, e.Err)
}

func (e *CodecError) Unwrap() error { return e.Err }
