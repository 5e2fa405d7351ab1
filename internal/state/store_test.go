package state

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/five82/apodesk/internal/apod"
	"github.com/five82/apodesk/internal/nasa"
	"github.com/five82/apodesk/internal/pipeline"
)

func record(title string) *apod.Record {
	r := apod.NewRecord(apod.Metadata{Title: title}, []byte("img"), time.Now())
	return &r
}

func TestStore_UpdateAndSnapshotClone(t *testing.T) {
	var s Store

	before := time.Now()
	s.Update(pipeline.Event{Kind: pipeline.EventLoaded, State: pipeline.State{Current: record("Nebula")}})
	s.Update(pipeline.Event{Kind: pipeline.EventRefreshStarted, State: pipeline.State{Phase: pipeline.Fetching, Generation: 1}, Gen: 1})

	snap := s.Snapshot()
	if snap.Pipeline.Phase != pipeline.Fetching {
		t.Fatalf("phase = %v, want fetching", snap.Pipeline.Phase)
	}
	if snap.LastEvent != pipeline.EventRefreshStarted {
		t.Fatalf("LastEvent = %v", snap.LastEvent)
	}
	if snap.LastUpdated.Before(before) {
		t.Fatalf("LastUpdated = %v, want >= %v", snap.LastUpdated, before)
	}
	if len(snap.Notices) != 2 || !strings.Contains(snap.Notices[0].Text, "Nebula") {
		t.Fatalf("notices = %#v", snap.Notices)
	}

	// Returned snapshot should be independent of the stored one.
	snap.Notices[0].Text = "changed"
	if s.Snapshot().Notices[0].Text == "changed" {
		t.Fatal("Snapshot should clone notices")
	}
}

func TestStore_FailureKeepsRecordAndClonesError(t *testing.T) {
	var s Store
	cur := record("Nebula")
	s.Update(pipeline.Event{Kind: pipeline.EventLoaded, State: pipeline.State{Current: cur}})

	origErr := &nasa.FetchError{Kind: nasa.Other, Detail: "status 403"}
	s.Update(pipeline.Event{Kind: pipeline.EventRefreshFailed, State: pipeline.State{Current: cur, Generation: 1}, Gen: 1, Err: origErr})

	snap := s.Snapshot()
	if snap.Pipeline.Current == nil || snap.Pipeline.Current.Title != "Nebula" {
		t.Fatalf("record lost on failure: %#v", snap.Pipeline.Current)
	}
	if snap.LastError == nil || !strings.Contains(snap.LastError.Error(), "status 403") {
		t.Fatalf("LastError = %v", snap.LastError)
	}
	if !errors.Is(snap.LastError, nasa.ErrOther) {
		t.Fatal("cloned error should still match its kind")
	}
	if reflect.ValueOf(snap.LastError).Pointer() == reflect.ValueOf(origErr).Pointer() {
		t.Fatal("Snapshot should clone error instance")
	}
	last := snap.Notices[len(snap.Notices)-1]
	if !last.Error || !strings.HasPrefix(last.Text, "Refresh failed") {
		t.Fatalf("last notice = %#v", last)
	}
}

func TestStore_ConsecutiveFailures(t *testing.T) {
	var s Store
	netErr := &nasa.FetchError{Kind: nasa.Network, Detail: "timeout"}

	if snap := s.Snapshot(); snap.ConsecutiveFailures != 0 || snap.IsOffline() {
		t.Fatalf("fresh store: failures=%d offline=%v", snap.ConsecutiveFailures, snap.IsOffline())
	}

	s.Update(pipeline.Event{Kind: pipeline.EventRefreshFailed, Err: netErr})
	if snap := s.Snapshot(); snap.ConsecutiveFailures != 1 || snap.IsOffline() {
		t.Fatalf("after 1 failure: failures=%d offline=%v", snap.ConsecutiveFailures, snap.IsOffline())
	}

	s.Update(pipeline.Event{Kind: pipeline.EventRefreshFailed, Err: netErr})
	if snap := s.Snapshot(); snap.ConsecutiveFailures != 2 || !snap.IsOffline() {
		t.Fatalf("after 2 failures: failures=%d offline=%v", snap.ConsecutiveFailures, snap.IsOffline())
	}

	s.Update(pipeline.Event{Kind: pipeline.EventRefreshIncomplete})
	if snap := s.Snapshot(); snap.ConsecutiveFailures != 3 || snap.IsOffline() {
		t.Fatalf("incomplete refresh: failures=%d offline=%v", snap.ConsecutiveFailures, snap.IsOffline())
	}

	s.Update(pipeline.Event{Kind: pipeline.EventRefreshSucceeded, State: pipeline.State{Current: record("ok")}})
	snap := s.Snapshot()
	if snap.ConsecutiveFailures != 0 || snap.IsOffline() || snap.LastError != nil {
		t.Fatalf("after success: failures=%d offline=%v err=%v", snap.ConsecutiveFailures, snap.IsOffline(), snap.LastError)
	}
	if snap.LastRefresh.IsZero() {
		t.Fatal("LastRefresh not set")
	}
}

func TestStore_SaveErrorAndApply(t *testing.T) {
	var s Store
	cur := record("Nebula")

	s.Update(pipeline.Event{Kind: pipeline.EventRefreshSucceeded, State: pipeline.State{Current: cur}, SaveErr: errors.New("disk full")})
	snap := s.Snapshot()
	if snap.SaveError == nil || snap.LastError != nil {
		t.Fatalf("SaveError=%v LastError=%v", snap.SaveError, snap.LastError)
	}

	s.Update(pipeline.Event{Kind: pipeline.EventApplyFailed, State: pipeline.State{Current: cur}, Err: errors.New("rejected")})
	if snap := s.Snapshot(); snap.LastError == nil || !snap.LastApplied.IsZero() {
		t.Fatalf("apply failure: err=%v applied=%v", snap.LastError, snap.LastApplied)
	}

	s.Update(pipeline.Event{Kind: pipeline.EventApplySucceeded, State: pipeline.State{Current: cur}})
	if snap := s.Snapshot(); snap.LastError != nil || snap.LastApplied.IsZero() {
		t.Fatalf("apply success: err=%v applied=%v", snap.LastError, snap.LastApplied)
	}
}

func TestStore_NoticesCapped(t *testing.T) {
	var s Store
	for i := 0; i < maxNotices+5; i++ {
		s.Update(pipeline.Event{Kind: pipeline.EventRefreshFailed, Err: fmt.Errorf("attempt %d", i)})
	}
	snap := s.Snapshot()
	if len(snap.Notices) != maxNotices {
		t.Fatalf("notices = %d, want %d", len(snap.Notices), maxNotices)
	}
	if !strings.HasSuffix(snap.Notices[len(snap.Notices)-1].Text, fmt.Sprintf("attempt %d", maxNotices+4)) {
		t.Fatalf("newest notice = %q", snap.Notices[len(snap.Notices)-1].Text)
	}
}

func TestStore_IgnoresNone(t *testing.T) {
	var s Store
	s.Update(pipeline.Event{Kind: pipeline.EventNone})
	if snap := s.Snapshot(); !snap.LastUpdated.IsZero() || len(snap.Notices) != 0 {
		t.Fatalf("EventNone changed the snapshot: %#v", snap)
	}
}
