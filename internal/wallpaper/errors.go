package wallpaper

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an ApplyError.
type ErrorKind int

const (
	WriteFailed ErrorKind = iota + 1
	OSRejected
)

func (k ErrorKind) String() string {
	switch k {
	case WriteFailed:
		return "write failed"
	case OSRejected:
		return "rejected by OS"
	default:
		return "unknown"
	}
}

var (
	ErrWriteFailed = errors.New("wallpaper: write failed")
	ErrOSRejected  = errors.New("wallpaper: rejected by OS")
)

// ApplyError reports the protocol step that stopped an apply.
type ApplyError struct {
	Kind ErrorKind
	Step string
	Path string
	Err  error
}

func (e *ApplyError) Error() string {
	msg := fmt.Sprintf("wallpaper %s: %s", e.Step, e.Kind)
	if e.Path != "" {
		msg += " (" + e.Path + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ApplyError) Unwrap() error { return e.Err }

func (e *ApplyError) Is(target error) bool {
	switch target {
	case ErrWriteFailed:
		return e.Kind == WriteFailed
	case ErrOSRejected:
		return e.Kind == OSRejected
	}
	return false
}
