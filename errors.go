package bplist

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	// ErrFormat matches every *FormatError.
	ErrFormat = errors.New("bplist: invalid format")
	// ErrLimitExceeded matches every *LimitExceededError.
	ErrLimitExceeded = errors.New("bplist: limit exceeded")
	// ErrCyclicReference matches every *CyclicReferenceError.
	ErrCyclicReference = errors.New("bplist: cyclic reference")
)

// FormatError reports a structurally invalid binary property list.
// Offset is the byte offset the problem was found at, or -1 when the
// problem is not tied to a position.
type FormatError struct {
	Offset int64
	Reason string
}

func (e *FormatError) Error() string {
	if e.Offset < 0 {
		return "bplist: invalid format: " + e.Reason
	}
	return fmt.Sprintf("bplist: invalid format at offset %#x: %s", e.Offset, e.Reason)
}

func (e *FormatError) Is(target error) bool { return target == ErrFormat }

// LimitExceededError reports a declared count or size above a configured ceiling.
type LimitExceededError struct {
	Limit string
	Value uint64
	Max   uint64
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("bplist: %s %d exceeds limit %d", e.Limit, e.Value, e.Max)
}

func (e *LimitExceededError) Is(target error) bool { return target == ErrLimitExceeded }

// CyclicReferenceError reports an object that (transitively) contains itself.
type CyclicReferenceError struct {
	Index uint64
}

func (e *CyclicReferenceError) Error() string {
	return fmt.Sprintf("bplist: object %d references itself", e.Index)
}

func (e *CyclicReferenceError) Is(target error) bool { return target == ErrCyclicReference }

// UnmarshalTypeError describes a Value that cannot be stored in a Go value
// of a specific type.
type UnmarshalTypeError struct {
	Kind Kind
	Type reflect.Type
	Path string
}

func (e *UnmarshalTypeError) Error() string {
	if e.Path != "" {
		return "bplist: cannot unmarshal " + e.Kind.String() + " into " + e.Path + " of type " + e.Type.String()
	}
	return "bplist: cannot unmarshal " + e.Kind.String() + " into Go value of type " + e.Type.String()
}

// InvalidUnmarshalError is returned for a nil or non-pointer Unmarshal target.
type InvalidUnmarshalError struct {
	Type reflect.Type
}

func (e *InvalidUnmarshalError) Error() string {
	if e.Type == nil {
		return "bplist: Unmarshal(nil)"
	}
	if e.Type.Kind() != reflect.Ptr {
		return "bplist: Unmarshal(non-pointer " + e.Type.String() + ")"
	}
	return "bplist: Unmarshal(nil " + e.Type.String() + ")"
}

func formatError(off uint64, format string, args ...interface{}) *FormatError {
	return &FormatError{Offset: int64(off), Reason: fmt.Sprintf(format, args...)}
}
