// Package app provides the orchestration layer for apodesk.
//
// # Overview
//
// This package is the composition root. NewEnv loads configuration and builds
// the cache slot, the APOD client and the wallpaper applier; every entry point
// starts from an Env and drives a pipeline.Controller over it.
//
// # Entry Points
//
//   - Run: the interactive TUI. Logs go to <log_dir>/apodesk.log because the
//     terminal belongs to Bubble Tea.
//   - Refresh, Apply, Show, Clear: one-shot commands. They log to stderr and
//     return the failure carried by the terminal pipeline event.
//   - RunDaemon: a gocron job refreshes once a day at refresh_at and retries
//     failures with exponential backoff.
//
// # Data Flow
//
//	┌──────────────┐
//	│   Run()      │
//	└──────┬───────┘
//	       │
//	       ├─────> NewEnv()              config, logging, cache, client, applier
//	       ├─────> Controller()          pipeline with state.Store observer
//	       ├─────> cache.Watch()         adopt records written by the daemon
//	       ├─────> RequestRefresh()      only when nothing is cached
//	       └─────> ui.Run()              TUI (blocks)
//
//	Daemon:
//	┌─────────────────────────────────────────┐
//	│ gocron DailyJob(refresh_at)             │
//	│  └─> refreshWithRetry()                 │
//	│       ├─> RunOnce(StartRefresh)         │
//	│       ├─> backoff 1m, 2m, 4m ... 30m    │
//	│       └─> RunOnce(StartApply)           │
//	│           (auto_apply only)             │
//	└─────────────────────────────────────────┘
//
// # Retry Behavior
//
// The controller never retries on its own. The daemon makes up to five
// attempts per scheduled run, waiting calculateBackoff between them, then
// gives up until the next day. A refresh that finds the controller busy is
// skipped rather than retried.
//
// # Error Handling
//
// Fatal errors (returned):
//   - Configuration file unreadable or invalid
//   - Invalid log level or wallpaper_command
//   - A one-shot refresh or apply that ends in failure
//
// Recoverable errors (logged):
//   - Cache save failures after a successful fetch
//   - Cache watcher setup failures in the TUI
//   - Daemon refresh failures, which are retried
package app
