package pipeline

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/five82/apodesk/internal/apod"
	"github.com/five82/apodesk/internal/metrics"
)

const (
	defaultFetchTimeout = 2 * time.Minute
	defaultApplyTimeout = time.Minute
)

// Store is the single-slot persistence the controller loads from on start and
// saves to after a successful fetch.
type Store interface {
	Save(r apod.Record) error
	Load() (apod.Record, bool)
}

// Fetcher retrieves the latest metadata and its image.
type Fetcher interface {
	FetchLatestMetadata(ctx context.Context) (apod.Metadata, error)
	DownloadImage(ctx context.Context, imageURL string) ([]byte, bool)
}

// Applier makes a record's image the desktop background.
type Applier interface {
	Apply(ctx context.Context, r apod.Record) error
}

// Controller owns the pipeline state. Requests never block; fetches and
// applies run on worker goroutines and feed their results back through
// Transition.
type Controller struct {
	store   Store
	fetcher Fetcher
	applier Applier

	now          func() time.Time
	fetchTimeout time.Duration
	applyTimeout time.Duration
	log          zerolog.Logger
	metrics      metrics.Recorder

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	state  State
	closed bool

	queue      *eventQueue
	dispatched chan struct{}

	subMu   sync.Mutex
	subs    map[int]func(Event)
	nextSub int

	closeOnce sync.Once
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock sets the time source used for FetchedAt.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// WithFetchTimeout bounds metadata fetch plus image download.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.fetchTimeout = d
		}
	}
}

// WithApplyTimeout bounds one run of the apply protocol.
func WithApplyTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.applyTimeout = d
		}
	}
}

// WithLogger sets the controller's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Controller) { c.log = log }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(r metrics.Recorder) Option {
	return func(c *Controller) {
		if r != nil {
			c.metrics = r
		}
	}
}

// WithObserver subscribes fn before the initial Loaded event is published.
func WithObserver(fn func(Event)) Option {
	return func(c *Controller) {
		if fn != nil {
			c.addSubscriber(fn)
		}
	}
}

// New loads the current record from store and starts the event dispatcher.
// Workers run under contexts derived from ctx.
func New(ctx context.Context, store Store, fetcher Fetcher, applier Applier, opts ...Option) *Controller {
	c := &Controller{
		store:        store,
		fetcher:      fetcher,
		applier:      applier,
		now:          time.Now,
		fetchTimeout: defaultFetchTimeout,
		applyTimeout: defaultApplyTimeout,
		log:          zerolog.Nop(),
		metrics:      metrics.NoopRecorder{},
		queue:        newEventQueue(),
		dispatched:   make(chan struct{}),
		subs:         make(map[int]func(Event)),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.ctx, c.cancel = context.WithCancel(ctx)

	if rec, ok := store.Load(); ok {
		c.state.Current = &rec
		c.log.Info().Str("title", rec.Title).Time("fetched_at", rec.FetchedAt).Msg("loaded cached record")
	} else {
		c.log.Info().Msg("no cached record")
	}
	c.queue.push(Event{Kind: EventLoaded, State: c.state})

	go c.dispatch()
	return c
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// RequestRefresh starts a fetch when the controller is idle. It reports
// whether the request was accepted; a request while busy is dropped.
func (c *Controller) RequestRefresh() bool {
	_, ok := c.StartRefresh()
	return ok
}

// StartRefresh is RequestRefresh that also returns the generation of the
// accepted fetch. Its terminal event carries the same generation.
func (c *Controller) StartRefresh() (uint64, bool) {
	ev, ok := c.handle(RefreshRequested{})
	return ev.Gen, ok
}

// RequestApply starts applying the current record when the controller is
// idle and a record exists. It reports whether the request was accepted.
func (c *Controller) RequestApply() bool {
	_, ok := c.StartApply()
	return ok
}

// StartApply is RequestApply that also returns the accepted generation.
func (c *Controller) StartApply() (uint64, bool) {
	ev, ok := c.handle(ApplyRequested{})
	return ev.Gen, ok
}

// ReplaceFromCache adopts a record written to the store by another process.
// It is ignored while a fetch or apply is in flight.
func (c *Controller) ReplaceFromCache(r apod.Record) bool {
	_, ok := c.handle(CacheReplaced{Record: r})
	return ok
}

// Subscribe registers fn for every later event. Observers run in event order
// on one goroutine, outside the state lock. The returned func unsubscribes.
func (c *Controller) Subscribe(fn func(Event)) (unsubscribe func()) {
	id := c.addSubscriber(fn)
	var once sync.Once
	return func() {
		once.Do(func() {
			c.subMu.Lock()
			delete(c.subs, id)
			c.subMu.Unlock()
		})
	}
}

// Close cancels in-flight work, delivers pending events and stops the
// dispatcher. Later requests are rejected. It must not be called from an
// observer.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()

		c.cancel()
		c.wg.Wait()
		c.queue.close()
		<-c.dispatched
	})
}

func (c *Controller) addSubscriber(fn func(Event)) int {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	return id
}

func (c *Controller) handle(in Input) (Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		switch in.(type) {
		case RefreshRequested, ApplyRequested:
			return Event{Kind: EventNone, State: c.state}, false
		}
	}

	next, ev := Transition(c.state, in)
	if ev.Kind == EventNone {
		c.log.Debug().Str("phase", c.state.Phase.String()).Uint64("generation", c.state.Generation).
			Str("input", inputName(in)).Msg("input ignored")
		return ev, false
	}
	c.state = next
	c.record(ev)
	c.queue.push(ev)

	switch ev.Kind {
	case EventRefreshStarted:
		c.spawn(func() { c.runRefresh(ev.Gen) })
	case EventApplyStarted:
		c.spawn(func() { c.runApply(ev.Gen, *next.Current) })
	}
	return ev, true
}

// spawn must be called with mu held.
func (c *Controller) spawn(fn func()) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		fn()
	}()
}

func (c *Controller) runRefresh(gen uint64) {
	ctx, cancel := context.WithTimeout(c.ctx, c.fetchTimeout)
	defer cancel()

	started := time.Now()
	result := FetchCompleted{Gen: gen}
	meta, err := c.fetcher.FetchLatestMetadata(ctx)
	if err != nil {
		result.Err = err
	} else if image, ok := c.fetcher.DownloadImage(ctx, meta.ImageURL); !ok || len(image) == 0 {
		result.Incomplete = true
		c.log.Warn().Uint64("generation", gen).Str("image_url", meta.ImageURL).Msg("image download failed")
	} else {
		result.Record = apod.NewRecord(meta, image, c.now())
		if c.current(Fetching, gen) {
			if err := c.store.Save(result.Record); err != nil {
				result.SaveErr = err
				c.metrics.IncStoreSaveFailure()
				c.log.Error().Err(err).Str("title", meta.Title).Msg("failed to save record")
			}
		}
	}
	c.metrics.ObserveFetchDuration(time.Since(started))
	c.handle(result)
}

func (c *Controller) runApply(gen uint64, rec apod.Record) {
	ctx, cancel := context.WithTimeout(c.ctx, c.applyTimeout)
	defer cancel()

	err := c.applier.Apply(ctx, rec)
	c.handle(ApplyCompleted{Gen: gen, Err: err})
}

func (c *Controller) current(phase Phase, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Phase == phase && c.state.Generation == gen
}

// record logs and counts an accepted event. Called with mu held.
func (c *Controller) record(ev Event) {
	log := c.log.With().Str("event", ev.Kind.String()).Uint64("generation", ev.Gen).Logger()
	switch ev.Kind {
	case EventRefreshStarted, EventApplyStarted:
		log.Debug().Msg("operation started")
	case EventRefreshSucceeded:
		c.metrics.IncRefresh(metrics.OutcomeSuccess)
		c.metrics.SetLastRefresh(ev.State.Current.FetchedAt)
		log.Info().Str("title", ev.State.Current.Title).Int("bytes", ev.State.Current.ImageSize()).Msg("refresh succeeded")
	case EventRefreshFailed:
		c.metrics.IncRefresh(metrics.OutcomeFailure)
		log.Warn().Err(ev.Err).Msg("refresh failed")
	case EventRefreshIncomplete:
		c.metrics.IncRefresh(metrics.OutcomeIncomplete)
		log.Warn().Msg("refresh incomplete: image unavailable")
	case EventApplySucceeded:
		c.metrics.IncApply(metrics.OutcomeSuccess)
		log.Info().Str("title", ev.State.Current.Title).Msg("wallpaper applied")
	case EventApplyFailed:
		c.metrics.IncApply(metrics.OutcomeFailure)
		log.Warn().Err(ev.Err).Msg("apply failed")
	case EventCacheReplaced:
		log.Info().Str("title", ev.State.Current.Title).Msg("record replaced from cache")
	}
}

func (c *Controller) dispatch() {
	defer close(c.dispatched)
	for {
		ev, ok := c.queue.pop()
		if !ok {
			return
		}
		for _, fn := range c.subscribers() {
			fn(ev)
		}
	}
}

func (c *Controller) subscribers() []func(Event) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	ids := make([]int, 0, len(c.subs))
	for id := range c.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]func(Event), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, c.subs[id])
	}
	return fns
}

func inputName(in Input) string {
	switch in.(type) {
	case RefreshRequested:
		return "refresh_requested"
	case FetchCompleted:
		return "fetch_completed"
	case ApplyRequested:
		return "apply_requested"
	case ApplyCompleted:
		return "apply_completed"
	case CacheReplaced:
		return "cache_replaced"
	}
	return "unknown"
}
