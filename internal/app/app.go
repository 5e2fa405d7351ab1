package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/five82/apodesk/internal/apod"
	"github.com/five82/apodesk/internal/pipeline"
	"github.com/five82/apodesk/internal/prefs"
	"github.com/five82/apodesk/internal/state"
	"github.com/five82/apodesk/internal/ui"
)

// Run boots the apodesk TUI until the user quits or the context is cancelled.
func Run(ctx context.Context, opts Options) error {
	env, err := NewEnv(opts, false)
	if err != nil {
		return err
	}
	defer func() { _ = env.Close() }()

	userPrefs := prefs.Load(opts.PrefsPath)
	store := &state.Store{}

	ctrl := env.Controller(ctx, pipeline.WithObserver(store.Update))
	defer ctrl.Close()

	// Pick up pictures written by the daemon or another TUI.
	if err := os.MkdirAll(filepath.Dir(env.Cache.Path()), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	if err := env.Cache.Watch(ctx, func(r apod.Record) { ctrl.ReplaceFromCache(r) }); err != nil {
		env.Log.Warn().Err(err).Msg("cache watcher unavailable")
	}

	if !ctrl.Snapshot().HasRecord() {
		ctrl.RequestRefresh()
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	cfg := env.Config
	return ui.Run(ui.Options{
		Context:     ctx,
		Controller:  ctrl,
		Store:       store,
		Config:      &cfg,
		ThemeName:   userPrefs.Theme,
		HidePreview: userPrefs.HidePreview,
		PrefsPath:   prefsPath,
	})
}
