package pipeline

import (
	"fmt"

	"github.com/five82/apodesk/internal/apod"
)

// Phase is the controller's activity.
type Phase int

const (
	Idle Phase = iota
	Fetching
	Applying
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Fetching:
		return "fetching"
	case Applying:
		return "applying"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// State is a value snapshot of the controller. Current is nil when no record
// is cached; records are immutable so the pointer may be shared.
type State struct {
	Phase      Phase
	Current    *apod.Record
	Generation uint64
}

// HasRecord reports whether a current record is available.
func (s State) HasRecord() bool {
	return s.Current != nil && !s.Current.IsZero()
}

// Busy reports whether a fetch or apply is in flight.
func (s State) Busy() bool {
	return s.Phase != Idle
}

// Input drives Transition.
type Input interface {
	input()
}

// RefreshRequested asks for a new fetch.
type RefreshRequested struct{}

// FetchCompleted reports the end of the fetch tagged Gen. Exactly one of Err,
// Incomplete or Record describes the result; SaveErr is set when persisting
// Record failed.
type FetchCompleted struct {
	Gen        uint64
	Record     apod.Record
	Err        error
	Incomplete bool
	SaveErr    error
}

// ApplyRequested asks for the current record to become the wallpaper.
type ApplyRequested struct{}

// ApplyCompleted reports the end of the apply tagged Gen.
type ApplyCompleted struct {
	Gen uint64
	Err error
}

// CacheReplaced carries a record another process wrote to the store.
type CacheReplaced struct {
	Record apod.Record
}

func (RefreshRequested) input() {}
func (FetchCompleted) input()   {}
func (ApplyRequested) input()   {}
func (ApplyCompleted) input()   {}
func (CacheReplaced) input()    {}

// EventKind names an observable transition.
type EventKind int

const (
	EventNone EventKind = iota
	EventLoaded
	EventRefreshStarted
	EventRefreshSucceeded
	EventRefreshFailed
	EventRefreshIncomplete
	EventApplyStarted
	EventApplySucceeded
	EventApplyFailed
	EventCacheReplaced
)

var eventNames = map[EventKind]string{
	EventNone:              "none",
	EventLoaded:            "loaded",
	EventRefreshStarted:    "refresh_started",
	EventRefreshSucceeded:  "refresh_succeeded",
	EventRefreshFailed:     "refresh_failed",
	EventRefreshIncomplete: "refresh_incomplete",
	EventApplyStarted:      "apply_started",
	EventApplySucceeded:    "apply_succeeded",
	EventApplyFailed:       "apply_failed",
	EventCacheReplaced:     "cache_replaced",
}

func (k EventKind) String() string {
	if name, ok := eventNames[k]; ok {
		return name
	}
	return fmt.Sprintf("event(%d)", int(k))
}

// Terminal reports whether the event ends a refresh or apply.
func (k EventKind) Terminal() bool {
	switch k {
	case EventRefreshSucceeded, EventRefreshFailed, EventRefreshIncomplete, EventApplySucceeded, EventApplyFailed:
		return true
	}
	return false
}

// Event is emitted to observers after every accepted input.
type Event struct {
	Kind    EventKind
	State   State
	Gen     uint64
	Err     error
	SaveErr error
}
