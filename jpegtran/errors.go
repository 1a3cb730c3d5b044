package jpegtran

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes engine failures
type ErrorKind int

const (
	// KindMalformed means the input is not a readable baseline JPEG
	KindMalformed ErrorKind = iota + 1
	// KindTransform means the requested crop or drop cannot be satisfied
	KindTransform
	// KindAlignment means an offset is not a multiple of the MCU size
	KindAlignment
	// KindBounds means the patch does not fit inside the target
	KindBounds
)

func (k ErrorKind) String() string {
	switch k {
	case KindMalformed:
		return "MalformedImage"
	case KindTransform:
		return "Transform"
	case KindAlignment:
		return "Alignment"
	case KindBounds:
		return "Bounds"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Sentinels for errors.Is. Every *Error matches the sentinel of its kind.
var (
	ErrMalformed = errors.New("malformed image")
	ErrTransform = errors.New("transform failed")
	ErrAlignment = errors.New("offset not aligned to MCU")
	ErrBounds    = errors.New("patch out of bounds")
)

func (k ErrorKind) sentinel() error {
	switch k {
	case KindMalformed:
		return ErrMalformed
	case KindTransform:
		return ErrTransform
	case KindAlignment:
		return ErrAlignment
	case KindBounds:
		return ErrBounds
	}
	return nil
}

// Error is returned by every engine operation
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is reports whether target is the sentinel for e's kind
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// NewError creates a new Error
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// AsError checks if an error is an *Error and returns it
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of the first *Error in err's chain, or 0
func KindOf(err error) ErrorKind {
	if e, ok := AsError(err); ok {
		return e.Kind
	}
	return 0
}
