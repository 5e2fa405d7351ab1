package state

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/five82/apodesk/internal/nasa"
	"github.com/five82/apodesk/internal/pipeline"
)

const maxNotices = 20

// Notice is one line of pipeline history shown to the user.
type Notice struct {
	At    time.Time
	Kind  pipeline.EventKind
	Text  string
	Error bool
}

// Snapshot represents the latest pipeline view available to the UI.
type Snapshot struct {
	Pipeline            pipeline.State
	LastEvent           pipeline.EventKind
	LastError           error
	SaveError           error
	LastUpdated         time.Time
	LastRefresh         time.Time
	LastApplied         time.Time
	ConsecutiveFailures int // refreshes that failed in a row
	networkFailures     int
	Notices             []Notice // newest last
}

// IsOffline returns true when the last two refreshes failed on the network.
func (s Snapshot) IsOffline() bool {
	return s.networkFailures >= 2
}

// Store accumulates pipeline events for readers on other goroutines.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// Update folds ev into the snapshot. Failures keep the previous record and
// are recorded for visibility.
func (s *Store) Update(ev pipeline.Event) {
	if ev.Kind == pipeline.EventNone {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	snap := &s.snapshot
	snap.Pipeline = ev.State
	snap.LastEvent = ev.Kind
	snap.LastUpdated = now

	switch ev.Kind {
	case pipeline.EventRefreshStarted, pipeline.EventApplyStarted:
		snap.LastError = nil
	case pipeline.EventRefreshSucceeded:
		snap.LastError = nil
		snap.SaveError = ev.SaveErr
		snap.LastRefresh = now
		snap.ConsecutiveFailures = 0
		snap.networkFailures = 0
	case pipeline.EventRefreshFailed:
		snap.LastError = ev.Err
		snap.ConsecutiveFailures++
		if errors.Is(ev.Err, nasa.ErrNetwork) {
			snap.networkFailures++
		} else {
			snap.networkFailures = 0
		}
	case pipeline.EventRefreshIncomplete:
		snap.LastError = nil
		snap.ConsecutiveFailures++
		snap.networkFailures = 0
	case pipeline.EventApplySucceeded:
		snap.LastError = nil
		snap.LastApplied = now
	case pipeline.EventApplyFailed:
		snap.LastError = ev.Err
	}

	if text, isErr := describe(ev); text != "" {
		snap.Notices = append(snap.Notices, Notice{At: now, Kind: ev.Kind, Text: text, Error: isErr})
		if len(snap.Notices) > maxNotices {
			snap.Notices = append([]Notice(nil), snap.Notices[len(snap.Notices)-maxNotices:]...)
		}
	}
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Notices = cloneNotices(s.snapshot.Notices)
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}

func describe(ev pipeline.Event) (string, bool) {
	title := ""
	if ev.State.Current != nil {
		title = ev.State.Current.Title
	}
	switch ev.Kind {
	case pipeline.EventLoaded:
		if title == "" {
			return "No cached picture", false
		}
		return "Loaded cached picture: " + title, false
	case pipeline.EventRefreshStarted:
		return "Fetching today's picture", false
	case pipeline.EventRefreshSucceeded:
		if ev.SaveErr != nil {
			return "Fetched " + title + " (not saved: " + ev.SaveErr.Error() + ")", true
		}
		return "Fetched " + title, false
	case pipeline.EventRefreshFailed:
		return "Refresh failed: " + errText(ev.Err), true
	case pipeline.EventRefreshIncomplete:
		return "Picture metadata found but the image could not be downloaded", true
	case pipeline.EventApplyStarted:
		return "Setting desktop background", false
	case pipeline.EventApplySucceeded:
		return "Desktop background set to " + title, false
	case pipeline.EventApplyFailed:
		return "Could not set background: " + errText(ev.Err), true
	case pipeline.EventCacheReplaced:
		return "Picture updated by another apodesk process: " + title, false
	}
	return "", false
}

func errText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

func cloneNotices(items []Notice) []Notice {
	if len(items) == 0 {
		return nil
	}
	dup := make([]Notice, len(items))
	copy(dup, items)
	return dup
}
