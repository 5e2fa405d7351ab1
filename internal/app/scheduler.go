package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/five82/apodesk/internal/config"
	"github.com/five82/apodesk/internal/metrics"
	"github.com/five82/apodesk/internal/pipeline"
)

const (
	defaultRetryBase = time.Minute
	maxBackoff       = 30 * time.Minute
	maxAttempts      = 5
	shutdownTimeout  = 5 * time.Second
)

// calculateBackoff returns the wait before the next retry: base doubled for
// every failure so far, capped at maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	backoff := base
	for i := 0; i < failures; i++ {
		backoff *= 2
		if backoff >= maxBackoff {
			return maxBackoff
		}
	}
	return backoff
}

// controller is the part of pipeline.Controller the daemon drives.
type controller interface {
	eventSource
	StartRefresh() (uint64, bool)
	StartApply() (uint64, bool)
}

// daemon refreshes on a daily schedule and retries failures with backoff.
type daemon struct {
	ctrl      controller
	log       zerolog.Logger
	autoApply bool
	retryBase time.Duration
}

func (d *daemon) refreshWithRetry(ctx context.Context) {
	for attempt := 1; ; attempt++ {
		ev, err := RunOnce(ctx, d.ctrl, d.ctrl.StartRefresh)
		if err == nil {
			if ev.SaveErr != nil {
				d.log.Warn().Err(ev.SaveErr).Msg("picture fetched but not cached")
			}
			if d.autoApply {
				d.apply(ctx)
			}
			return
		}
		if errors.Is(err, ErrBusy) {
			d.log.Info().Msg("refresh skipped: another operation is running")
			return
		}
		if ctx.Err() != nil {
			return
		}
		if attempt >= maxAttempts {
			d.log.Error().Err(err).Int("attempts", attempt).Msg("refresh failed, giving up until next scheduled run")
			return
		}
		wait := calculateBackoff(attempt-1, d.retryBase)
		d.log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", wait).Msg("refresh failed")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (d *daemon) apply(ctx context.Context) {
	if _, err := RunOnce(ctx, d.ctrl, d.ctrl.StartApply); err != nil {
		d.log.Error().Err(err).Msg("auto apply failed")
	}
}

// RunDaemon refreshes once a day at refresh_at until ctx is cancelled. When
// metrics_addr is set, Prometheus metrics are served there.
func RunDaemon(ctx context.Context, opts Options) error {
	env, err := NewEnv(opts, true)
	if err != nil {
		return err
	}
	defer func() { _ = env.Close() }()

	hour, minute, err := config.ParseClock(env.Config.RefreshAt)
	if err != nil {
		return fmt.Errorf("refresh_at: %w", err)
	}

	reg := prometheus.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(reg)

	ctrl := env.Controller(ctx, pipeline.WithMetrics(recorder))
	defer ctrl.Close()

	d := &daemon{
		ctrl:      ctrl,
		log:       env.Log.With().Str("component", "daemon").Logger(),
		autoApply: env.Config.AutoApply,
		retryBase: defaultRetryBase,
	}

	var server *http.Server
	if addr := env.Config.MetricsAddr; addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.HTTPHandler(reg))
		server = &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				d.log.Error().Err(err).Str("addr", addr).Msg("metrics server failed")
			}
		}()
		d.log.Info().Str("addr", addr).Msg("serving metrics")
	}

	s, err := gocron.NewScheduler(gocron.WithLocation(time.Local))
	if err != nil {
		return fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	job, err := s.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(uint(hour), uint(minute), 0))),
		gocron.NewTask(d.refreshWithRetry, ctx),
		gocron.WithName("daily-refresh"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return fmt.Errorf("failed to create refresh job: %w", err)
	}
	s.Start()

	next, _ := job.NextRun()
	d.log.Info().Str("refresh_at", env.Config.RefreshAt).Time("next_run", next).Bool("auto_apply", d.autoApply).
		Msg("daemon started")

	if !ctrl.Snapshot().HasRecord() {
		go d.refreshWithRetry(ctx)
	}

	<-ctx.Done()
	d.log.Info().Msg("daemon stopping")

	if err := s.Shutdown(); err != nil {
		d.log.Warn().Err(err).Msg("scheduler shutdown")
	}
	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			d.log.Warn().Err(err).Msg("metrics server shutdown")
		}
	}
	return nil
}
