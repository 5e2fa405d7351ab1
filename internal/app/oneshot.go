package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/five82/apodesk/internal/apod"
	"github.com/five82/apodesk/internal/pipeline"
)

var (
	// ErrIncomplete reports metadata that was fetched without a usable image.
	ErrIncomplete = errors.New("picture metadata found but the image could not be downloaded")
	// ErrNoRecord reports an empty cache slot.
	ErrNoRecord = errors.New("no cached picture; run apodesk refresh first")
	// ErrBusy reports a request dropped because another operation is running.
	ErrBusy = errors.New("another refresh or apply is in progress")
)

// Requester starts a pipeline operation and returns its generation and
// whether it was accepted.
type Requester func() (uint64, bool)

// eventSource is the part of the controller RunOnce needs.
type eventSource interface {
	Snapshot() pipeline.State
	Subscribe(fn func(pipeline.Event)) (unsubscribe func())
}

// RunOnce issues request and blocks until the operation it started ends.
// Terminal events of other generations are skipped. The returned error is the
// failure carried by the terminal event.
func RunOnce(ctx context.Context, ctrl eventSource, request Requester) (pipeline.Event, error) {
	events := make(chan pipeline.Event, 16)
	unsubscribe := ctrl.Subscribe(func(ev pipeline.Event) {
		if !ev.Kind.Terminal() {
			return
		}
		select {
		case events <- ev:
		case <-ctx.Done():
		}
	})
	defer unsubscribe()

	gen, ok := request()
	if !ok {
		return pipeline.Event{Kind: pipeline.EventNone, State: ctrl.Snapshot()}, ErrBusy
	}

	for {
		select {
		case <-ctx.Done():
			return pipeline.Event{}, ctx.Err()
		case ev := <-events:
			if ev.Gen != gen {
				continue
			}
			return ev, eventError(ev)
		}
	}
}

func eventError(ev pipeline.Event) error {
	switch ev.Kind {
	case pipeline.EventRefreshFailed:
		return fmt.Errorf("refresh: %w", ev.Err)
	case pipeline.EventRefreshIncomplete:
		return ErrIncomplete
	case pipeline.EventApplyFailed:
		return fmt.Errorf("apply: %w", ev.Err)
	}
	return nil
}

// Refresh fetches today's picture once and optionally applies it.
func Refresh(ctx context.Context, opts Options, apply bool) (pipeline.Event, error) {
	env, err := NewEnv(opts, true)
	if err != nil {
		return pipeline.Event{}, err
	}
	defer func() { _ = env.Close() }()

	ctrl := env.Controller(ctx)
	defer ctrl.Close()

	ev, err := RunOnce(ctx, ctrl, ctrl.StartRefresh)
	if err != nil || !apply {
		return ev, err
	}
	return RunOnce(ctx, ctrl, ctrl.StartApply)
}

// Apply sets the cached picture as the desktop background.
func Apply(ctx context.Context, opts Options) (pipeline.Event, error) {
	env, err := NewEnv(opts, true)
	if err != nil {
		return pipeline.Event{}, err
	}
	defer func() { _ = env.Close() }()

	ctrl := env.Controller(ctx)
	defer ctrl.Close()

	if !ctrl.Snapshot().HasRecord() {
		return pipeline.Event{}, ErrNoRecord
	}
	return RunOnce(ctx, ctrl, ctrl.StartApply)
}

// Show returns the cached record.
func Show(opts Options) (apod.Record, error) {
	env, err := NewEnv(opts, true)
	if err != nil {
		return apod.Record{}, err
	}
	defer func() { _ = env.Close() }()

	rec, ok := env.Cache.Load()
	if !ok {
		return apod.Record{}, ErrNoRecord
	}
	return rec, nil
}

// Clear empties the staging directory and, when removeCache is set, deletes
// the cached record too.
func Clear(opts Options, removeCache bool) error {
	env, err := NewEnv(opts, true)
	if err != nil {
		return err
	}
	defer func() { _ = env.Close() }()

	if err := env.Applier.Clear(); err != nil {
		return fmt.Errorf("clear staging dir: %w", err)
	}
	env.Log.Info().Str("dir", env.Applier.Dir()).Msg("staging dir cleared")
	if !removeCache {
		return nil
	}
	if err := env.Cache.Remove(); err != nil {
		return fmt.Errorf("remove cache: %w", err)
	}
	env.Log.Info().Str("path", env.Cache.Path()).Msg("cached picture removed")
	return nil
}
