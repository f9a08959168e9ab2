package vectorindex

import "fmt"

// Code is the vector-index collaborator's result-code taxonomy (§6/§7):
// SUCCESS, DUPLICATE, NOT_FOUND, INVALID_DIMS, or SYSTEM. The indexserver
// state machine maps these directly onto INSERT_RESULT/DELETE_RESULT/ERROR
// codes on the wire.
type Code uint32

const (
	CodeSuccess     Code = 0
	CodeDuplicate   Code = 1
	CodeNotFound    Code = 2
	CodeInvalidDims Code = 3
	CodeSystem      Code = 4
)

func (c Code) String() string {
	switch c {
	case CodeSuccess:
		return "SUCCESS"
	case CodeDuplicate:
		return "DUPLICATE"
	case CodeNotFound:
		return "NOT_FOUND"
	case CodeInvalidDims:
		return "INVALID_DIMS"
	case CodeSystem:
		return "SYSTEM"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint32(c))
	}
}

// Error is the collaborator's error return.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string { return fmt.Sprintf("vectorindex: %s: %s", e.Code, e.Message) }

func newError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func ErrDuplicate(id uint64) *Error {
	return newError(CodeDuplicate, "id %d already present", id)
}

func ErrNotFound(id uint64) *Error {
	return newError(CodeNotFound, "id %d not found", id)
}

func ErrInvalidDims(got, want int) *Error {
	return newError(CodeInvalidDims, "vector has %d dimensions, index expects %d", got, want)
}

func ErrSystem(err error) *Error {
	return newError(CodeSystem, "%v", err)
}
