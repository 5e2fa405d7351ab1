package cache

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a StoreError.
type ErrorKind int

const (
	WriteFailed ErrorKind = iota + 1
	Corrupt
)

func (k ErrorKind) String() string {
	switch k {
	case WriteFailed:
		return "write failed"
	case Corrupt:
		return "corrupt"
	default:
		return "unknown"
	}
}

var (
	ErrWriteFailed = errors.New("store write failed")
	ErrCorrupt     = errors.New("store slot corrupt")
)

// StoreError reports a persistence failure for the slot at Path.
type StoreError struct {
	Kind ErrorKind
	Path string
	Err  error
}

func (e *StoreError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("store %s: %s", e.Path, e.Kind)
	}
	return fmt.Sprintf("store %s: %s: %v", e.Path, e.Kind, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Is matches the package sentinels by kind.
func (e *StoreError) Is(target error) bool {
	switch target {
	case ErrWriteFailed:
		return e.Kind == WriteFailed
	case ErrCorrupt:
		return e.Kind == Corrupt
	}
	return false
}
