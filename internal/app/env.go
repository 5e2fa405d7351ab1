package app

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/five82/apodesk/internal/cache"
	"github.com/five82/apodesk/internal/config"
	"github.com/five82/apodesk/internal/logging"
	"github.com/five82/apodesk/internal/nasa"
	"github.com/five82/apodesk/internal/pipeline"
	"github.com/five82/apodesk/internal/wallpaper"
)

// Options configure every apodesk entry point.
type Options struct {
	ConfigPath string
	PrefsPath  string    // empty uses default ~/.config/apodesk/prefs.toml
	LogLevel   string    // overrides log_level when set
	LogWriter  io.Writer // console log destination; nil means stderr
}

var _ pipeline.Fetcher = (*nasa.Client)(nil)

// Env holds the components built from one configuration.
type Env struct {
	Config  config.Config
	Log     zerolog.Logger
	Cache   *cache.File
	Applier *wallpaper.Applier
	Client  *nasa.Client

	closer io.Closer
}

// NewEnv loads configuration and builds the store, fetch client and applier.
// Console selects human-readable stderr logging; otherwise JSON lines go to
// the configured log directory.
func NewEnv(opts Options, console bool) (*Env, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	level := cfg.LogLevel
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	log, closer, err := logging.New(logging.Options{
		Level:   level,
		Console: console,
		Writer:  opts.LogWriter,
		Dir:     cfg.LogDir,
	})
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	client, err := nasa.NewClient(cfg.APIURL, cfg.APIKey,
		nasa.WithTimeout(cfg.RequestTimeout),
		nasa.WithHD(cfg.HD),
	)
	if err != nil {
		_ = closer.Close()
		return nil, fmt.Errorf("init apod client: %w", err)
	}

	applierOpts := []wallpaper.Option{
		wallpaper.WithCaption(cfg.Caption),
		wallpaper.WithLogger(log.With().Str("component", "wallpaper").Logger()),
	}
	if cfg.WallpaperCommand != "" {
		setter, err := wallpaper.NewCommandSetter(cfg.WallpaperCommand)
		if err != nil {
			_ = closer.Close()
			return nil, fmt.Errorf("wallpaper_command: %w", err)
		}
		applierOpts = append(applierOpts, wallpaper.WithSetter(setter))
	}

	return &Env{
		Config:  cfg,
		Log:     log,
		Cache:   cache.New(cfg.CachePath, cache.WithLogger(log.With().Str("component", "cache").Logger())),
		Applier: wallpaper.New(cfg.StageDir, applierOpts...),
		Client:  client,
		closer:  closer,
	}, nil
}

// Controller starts a pipeline controller over the env's components.
func (e *Env) Controller(ctx context.Context, opts ...pipeline.Option) *pipeline.Controller {
	base := []pipeline.Option{
		pipeline.WithLogger(e.Log.With().Str("component", "pipeline").Logger()),
	}
	return pipeline.New(ctx, e.Cache, e.Client, e.Applier, append(base, opts...)...)
}

// Close releases the log file, if one was opened.
func (e *Env) Close() error {
	if e == nil || e.closer == nil {
		return nil
	}
	return e.closer.Close()
}
