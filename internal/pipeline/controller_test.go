package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/apodesk/internal/apod"
	"github.com/five82/apodesk/internal/cache"
	"github.com/five82/apodesk/internal/nasa"
	"github.com/five82/apodesk/internal/wallpaper"
)

var fixedNow = time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)

type memStore struct {
	mu    sync.Mutex
	rec   apod.Record
	ok    bool
	saves int
	err   error
}

func (s *memStore) Save(r apod.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.err != nil {
		return s.err
	}
	s.rec, s.ok = r, true
	return nil
}

func (s *memStore) Load() (apod.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec, s.ok
}

func (s *memStore) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

type fakeFetcher struct {
	meta      apod.Metadata
	metaErr   error
	image     []byte
	gate      chan struct{}
	calls     atomic.Int32
	downloads atomic.Int32
}

func (f *fakeFetcher) FetchLatestMetadata(ctx context.Context) (apod.Metadata, error) {
	f.calls.Add(1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return apod.Metadata{}, ctx.Err()
		}
	}
	return f.meta, f.metaErr
}

func (f *fakeFetcher) DownloadImage(_ context.Context, _ string) ([]byte, bool) {
	f.downloads.Add(1)
	if f.image == nil {
		return nil, false
	}
	return f.image, true
}

type fakeApplier struct {
	err   error
	calls atomic.Int32
}

func (a *fakeApplier) Apply(context.Context, apod.Record) error {
	a.calls.Add(1)
	return a.err
}

func newController(t *testing.T, store Store, fetcher Fetcher, applier Applier, opts ...Option) *Controller {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	c := New(context.Background(), store, fetcher, applier, opts...)
	t.Cleanup(c.Close)
	return c
}

func subscribe(t *testing.T, c *Controller) <-chan Event {
	t.Helper()
	ch := make(chan Event, 64)
	t.Cleanup(c.Subscribe(func(e Event) { ch <- e }))
	return ch
}

func waitFor(t *testing.T, ch <-chan Event, kind EventKind) Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case e := <-ch:
			if e.Kind == kind {
				return e
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s", kind)
			return Event{}
		}
	}
}

func image100() []byte {
	return bytes.Repeat([]byte{0xAB}, 100)
}

func TestNewPublishesLoaded(t *testing.T) {
	cached := sampleRecord("cached")
	events := make(chan Event, 4)
	c := newController(t, &memStore{rec: cached, ok: true}, &fakeFetcher{}, &fakeApplier{},
		WithObserver(func(e Event) { events <- e }))

	ev := waitFor(t, events, EventLoaded)
	require.True(t, ev.State.HasRecord())
	assert.True(t, cached.Equal(*ev.State.Current))
	assert.Equal(t, Idle, c.Snapshot().Phase)
}

func TestNewWithEmptyStore(t *testing.T) {
	c := newController(t, &memStore{}, &fakeFetcher{}, &fakeApplier{})
	s := c.Snapshot()
	assert.Equal(t, Idle, s.Phase)
	assert.False(t, s.HasRecord())
	assert.False(t, c.RequestApply(), "apply needs a record")
}

func TestRefreshSingleFlight(t *testing.T) {
	fetcher := &fakeFetcher{
		meta:  apod.Metadata{Title: "Nebula", ImageURL: "http://x/img.png"},
		image: image100(),
		gate:  make(chan struct{}),
	}
	c := newController(t, &memStore{}, fetcher, &fakeApplier{})
	events := subscribe(t, c)

	assert.True(t, c.RequestRefresh())
	assert.False(t, c.RequestRefresh())
	assert.False(t, c.RequestApply())
	assert.Equal(t, Fetching, c.Snapshot().Phase)

	close(fetcher.gate)
	waitFor(t, events, EventRefreshSucceeded)

	assert.Equal(t, int32(1), fetcher.calls.Load())
	assert.Equal(t, Idle, c.Snapshot().Phase)
}

func TestStartReturnsEventGeneration(t *testing.T) {
	fetcher := &fakeFetcher{meta: apod.Metadata{Title: "t", ImageURL: "u"}, image: image100()}
	c := newController(t, &memStore{}, fetcher, &fakeApplier{})
	events := subscribe(t, c)

	gen, ok := c.StartRefresh()
	require.True(t, ok)
	done := waitFor(t, events, EventRefreshSucceeded)
	assert.Equal(t, gen, done.Gen)

	next, ok := c.StartApply()
	require.True(t, ok)
	assert.Greater(t, next, gen)
	applied := waitFor(t, events, EventApplySucceeded)
	assert.Equal(t, next, applied.Gen)
}

func TestStaleCompletionDiscarded(t *testing.T) {
	prev := sampleRecord("prev")
	fetcher := &fakeFetcher{meta: apod.Metadata{Title: "t", ImageURL: "u"}, image: image100(), gate: make(chan struct{})}
	c := newController(t, &memStore{rec: prev, ok: true}, fetcher, &fakeApplier{})
	events := subscribe(t, c)

	require.True(t, c.RequestRefresh())
	before := c.Snapshot()

	ev, accepted := c.handle(FetchCompleted{Gen: before.Generation - 1, Record: sampleRecord("stale")})
	assert.False(t, accepted)
	assert.Equal(t, EventNone, ev.Kind)
	assert.Equal(t, before, c.Snapshot())

	close(fetcher.gate)
	done := waitFor(t, events, EventRefreshSucceeded)
	assert.Equal(t, before.Generation, done.Gen)
	assert.Equal(t, "t", c.Snapshot().Current.Title)
}

func TestRefreshFailureKeepsPrevious(t *testing.T) {
	prev := sampleRecord("prev")
	store := &memStore{rec: prev, ok: true}
	fetchErr := &nasa.FetchError{Kind: nasa.Network, Detail: "connection refused"}
	c := newController(t, store, &fakeFetcher{metaErr: fetchErr}, &fakeApplier{})
	events := subscribe(t, c)

	require.True(t, c.RequestRefresh())
	ev := waitFor(t, events, EventRefreshFailed)

	assert.ErrorIs(t, ev.Err, nasa.ErrNetwork)
	assert.True(t, prev.Equal(*c.Snapshot().Current))
	assert.Equal(t, 0, store.saveCount())
	assert.True(t, c.RequestRefresh(), "a failed refresh can be retried explicitly")
}

func TestSaveFailureDoesNotRevert(t *testing.T) {
	store := &memStore{err: &cache.StoreError{Kind: cache.WriteFailed, Err: errors.New("disk full")}}
	fetcher := &fakeFetcher{meta: apod.Metadata{Title: "Nebula", ImageURL: "u"}, image: image100()}
	c := newController(t, store, fetcher, &fakeApplier{})
	events := subscribe(t, c)

	require.True(t, c.RequestRefresh())
	ev := waitFor(t, events, EventRefreshSucceeded)

	assert.ErrorIs(t, ev.SaveErr, cache.ErrWriteFailed)
	assert.NoError(t, ev.Err)
	assert.Equal(t, "Nebula", c.Snapshot().Current.Title)
	assert.Equal(t, 1, store.saveCount())
}

func TestApplyOrderingFailureAtWrite(t *testing.T) {
	// A cached record without image bytes makes WriteImage fail.
	broken := apod.NewRecord(apod.Metadata{Title: "no pixels"}, nil, fixedNow)
	var setCalls atomic.Int32
	setter := wallpaper.SetterFunc(func(context.Context, string) error {
		setCalls.Add(1)
		return nil
	})
	applier := wallpaper.New(t.TempDir(), wallpaper.WithSetter(setter))
	c := newController(t, &memStore{rec: broken, ok: true}, &fakeFetcher{}, applier)
	events := subscribe(t, c)

	require.True(t, c.RequestApply())
	ev := waitFor(t, events, EventApplyFailed)

	assert.ErrorIs(t, ev.Err, wallpaper.ErrWriteFailed)
	assert.Equal(t, int32(0), setCalls.Load())
	assert.True(t, broken.Equal(*c.Snapshot().Current))
	assert.Equal(t, Idle, c.Snapshot().Phase)
}

func TestObserverMayCallBack(t *testing.T) {
	fetcher := &fakeFetcher{meta: apod.Metadata{Title: "Nebula", ImageURL: "u"}, image: image100()}
	applier := &fakeApplier{}
	c := newController(t, &memStore{}, fetcher, applier)

	var kinds []EventKind
	var mu sync.Mutex
	done := make(chan struct{})
	unsubscribe := c.Subscribe(func(e Event) {
		if e.Kind == EventLoaded {
			return
		}
		mu.Lock()
		kinds = append(kinds, e.Kind)
		mu.Unlock()
		switch e.Kind {
		case EventRefreshSucceeded:
			assert.True(t, c.RequestApply())
		case EventApplySucceeded:
			close(done)
		}
	})
	defer unsubscribe()

	require.True(t, c.RequestRefresh())
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("apply never completed")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []EventKind{EventRefreshStarted, EventRefreshSucceeded, EventApplyStarted, EventApplySucceeded}, kinds)
	assert.Equal(t, int32(1), applier.calls.Load())
}

func TestReplaceFromCache(t *testing.T) {
	fetcher := &fakeFetcher{meta: apod.Metadata{Title: "t", ImageURL: "u"}, image: image100(), gate: make(chan struct{})}
	c := newController(t, &memStore{}, fetcher, &fakeApplier{})
	events := subscribe(t, c)

	other := sampleRecord("from daemon")
	assert.True(t, c.ReplaceFromCache(other))
	ev := waitFor(t, events, EventCacheReplaced)
	assert.Equal(t, "from daemon", ev.State.Current.Title)
	assert.False(t, c.ReplaceFromCache(other), "same record again is ignored")

	require.True(t, c.RequestRefresh())
	assert.False(t, c.ReplaceFromCache(sampleRecord("late")), "ignored while fetching")
	close(fetcher.gate)
	waitFor(t, events, EventRefreshSucceeded)
}

func TestCloseRejectsRequestsAndCancelsWorkers(t *testing.T) {
	fetcher := &fakeFetcher{meta: apod.Metadata{Title: "t", ImageURL: "u"}, image: image100(), gate: make(chan struct{})}
	c := New(context.Background(), &memStore{}, fetcher, &fakeApplier{})
	var got []EventKind
	var mu sync.Mutex
	c.Subscribe(func(e Event) {
		mu.Lock()
		got = append(got, e.Kind)
		mu.Unlock()
	})

	require.True(t, c.RequestRefresh())
	c.Close()
	c.Close()

	assert.False(t, c.RequestRefresh())
	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, got)
	assert.Equal(t, EventRefreshFailed, got[len(got)-1], "cancelled fetch reports failure before Close returns")
}

func TestScenarioRefreshIntoEmptyCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "apod.bin")
	store := cache.New(path)
	fetcher := &fakeFetcher{
		meta:  apod.Metadata{Title: "Nebula", ImageURL: "http://x/img.png"},
		image: image100(),
	}
	c := newController(t, store, fetcher, &fakeApplier{})
	events := subscribe(t, c)
	require.False(t, c.Snapshot().HasRecord())

	require.True(t, c.RequestRefresh())
	waitFor(t, events, EventRefreshSucceeded)

	s := c.Snapshot()
	require.Equal(t, Idle, s.Phase)
	require.NotNil(t, s.Current)
	assert.Equal(t, "Nebula", s.Current.Title)
	assert.Equal(t, image100(), s.Current.ImageBytes())
	assert.True(t, s.Current.FetchedAt.Equal(fixedNow))

	loaded, ok := cache.New(path).Load()
	require.True(t, ok)
	assert.True(t, s.Current.Equal(loaded))
}

func TestScenarioImageDownloadFails(t *testing.T) {
	prev := sampleRecord("prev")
	store := &memStore{rec: prev, ok: true}
	fetcher := &fakeFetcher{meta: apod.Metadata{Title: "Nebula", ImageURL: "http://x/img.png"}}
	c := newController(t, store, fetcher, &fakeApplier{})
	events := subscribe(t, c)
	before := c.Snapshot()

	require.True(t, c.RequestRefresh())
	ev := waitFor(t, events, EventRefreshIncomplete)

	assert.NoError(t, ev.Err)
	after := c.Snapshot()
	assert.Equal(t, Idle, after.Phase)
	assert.Same(t, before.Current, after.Current)
	assert.Equal(t, 0, store.saveCount())
	assert.Equal(t, int32(1), fetcher.downloads.Load())
}

func TestScenarioImageDownloadFailsWithEmptyCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "apod.bin")
	fetcher := &fakeFetcher{meta: apod.Metadata{Title: "Nebula", ImageURL: "http://x/img.png"}}
	c := newController(t, cache.New(path), fetcher, &fakeApplier{})
	events := subscribe(t, c)

	require.True(t, c.RequestRefresh())
	waitFor(t, events, EventRefreshIncomplete)

	assert.False(t, c.Snapshot().HasRecord())
	_, err := os.Stat(path)
	assert.True(t, errors.Is(err, os.ErrNotExist), "no store write")
}

func TestScenarioApplyRejectedByOS(t *testing.T) {
	cached := apod.NewRecord(apod.Metadata{Title: "Nebula"}, image100(), fixedNow)
	stage := filepath.Join(t.TempDir(), "wallpaper")
	setter := wallpaper.SetterFunc(func(context.Context, string) error {
		return errors.New("unsupported picture format")
	})
	applier := wallpaper.New(stage, wallpaper.WithSetter(setter))
	c := newController(t, &memStore{rec: cached, ok: true}, &fakeFetcher{}, applier)
	events := subscribe(t, c)

	require.True(t, c.RequestApply())
	ev := waitFor(t, events, EventApplyFailed)

	assert.ErrorIs(t, ev.Err, wallpaper.ErrOSRejected)
	assert.True(t, cached.Equal(*c.Snapshot().Current))

	require.NoError(t, applier.Clear())
	entries, err := os.ReadDir(stage)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
