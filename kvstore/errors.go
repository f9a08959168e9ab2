package kvstore

import "fmt"

// Code is the key-value collaborator's result-code taxonomy (§6/§7 of the
// wire contract): SUCCESS, KEY_NOT_FOUND, or SYSTEM. Handlers in
// tableserver map these directly onto OP_RESULT/GET_RESULT/ERROR codes.
type Code uint32

const (
	CodeSuccess     Code = 0
	CodeKeyNotFound Code = 1
	CodeSystem      Code = 2
)

func (c Code) String() string {
	switch c {
	case CodeSuccess:
		return "SUCCESS"
	case CodeKeyNotFound:
		return "KEY_NOT_FOUND"
	case CodeSystem:
		return "SYSTEM"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint32(c))
	}
}

// Error is the collaborator's error return: a Code plus a human-readable
// detail, the same shape the wire's OP_RESULT carries.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string { return fmt.Sprintf("kvstore: %s: %s", e.Code, e.Message) }

func newError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ErrKeyNotFound is returned by Get/Del when the key is absent, or by Get
// when the stored value is nil (treated identically to absent per §6).
func ErrKeyNotFound(key []byte) *Error {
	return newError(CodeKeyNotFound, "key %q not found", key)
}

// ErrSystem wraps an underlying I/O or allocation failure.
func ErrSystem(err error) *Error {
	return newError(CodeSystem, "%v", err)
}
