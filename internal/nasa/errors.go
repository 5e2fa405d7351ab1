package nasa

import (
	"context"
	"errors"
	"net"
)

// ErrorKind classifies a FetchError.
type ErrorKind int

const (
	Network ErrorKind = iota + 1
	InvalidResponse
	Other
)

func (k ErrorKind) String() string {
	switch k {
	case Network:
		return "network"
	case InvalidResponse:
		return "invalid response"
	case Other:
		return "other"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is matching against a FetchError's kind.
var (
	ErrNetwork         = errors.New("apod fetch: network")
	ErrInvalidResponse = errors.New("apod fetch: invalid response")
	ErrOther           = errors.New("apod fetch: other")
)

// FetchError is returned by FetchLatestMetadata.
type FetchError struct {
	Kind   ErrorKind
	Detail string
	Err    error
}

func (e *FetchError) Error() string {
	msg := "apod fetch: " + e.Kind.String()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Is(target error) bool {
	switch target {
	case ErrNetwork:
		return e.Kind == Network
	case ErrInvalidResponse:
		return e.Kind == InvalidResponse
	case ErrOther:
		return e.Kind == Other
	}
	return false
}

func networkError(detail string, err error) *FetchError {
	return &FetchError{Kind: Network, Detail: detail, Err: err}
}

func invalidResponse(detail string, err error) *FetchError {
	return &FetchError{Kind: InvalidResponse, Detail: detail, Err: err}
}

func otherError(detail string, err error) *FetchError {
	return &FetchError{Kind: Other, Detail: detail, Err: err}
}

// classifyTransport maps an http.Client error to a FetchError.
func classifyTransport(err error) *FetchError {
	var netErr net.Error
	switch {
	case errors.Is(err, context.Canceled):
		return otherError("request cancelled", err)
	case errors.Is(err, context.DeadlineExceeded):
		return networkError("timeout", err)
	case errors.As(err, &netErr):
		if netErr.Timeout() {
			return networkError("timeout", err)
		}
		return networkError("", err)
	default:
		return networkError("", err)
	}
}
