package protocol

import (
	"errors"
	"fmt"
)

// ProtocolError marks a malformed frame: wrong opcode, wrong array arity,
// wrong element type, or a length field that cannot be trusted. This class
// of error gets one ERROR reply followed by closing the connection — the
// peer is speaking a dialect we don't, and the connection state can no
// longer be trusted.
type ProtocolError struct {
	Op  Type
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol: %s: %v", e.Op, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

func newProtocolError(op Type, err error) *ProtocolError {
	return &ProtocolError{Op: op, Err: err}
}

// ErrUnknownType names a header type nibble that doesn't match any opcode
// in the taxonomy. Nothing in this module returns it: the index and table
// servers answer an opcode they don't serve with an ERROR frame and close
// the connection.
var ErrUnknownType = errors.New("unknown opcode")

// IsProtocolError reports whether err (or something it wraps) is a
// ProtocolError, i.e. whether the connection should be closed after the
// error reply is sent.
func IsProtocolError(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}
