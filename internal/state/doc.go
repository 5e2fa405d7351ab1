// Package state keeps the UI's view of the refresh pipeline.
//
// # Overview
//
// A Store subscribes to pipeline events and folds them into a Snapshot: the
// latest pipeline state, the last error, failure counters and a short list of
// human-readable notices. The UI reads snapshots on its own tick.
//
//	Producer (pipeline dispatcher):    Consumer (UI):
//	┌──────────────────┐             ┌──────────────────┐
//	│ Event            │             │                  │
//	│   ↓              │             │                  │
//	│ store.Update(ev) │────────────→│ store.Snapshot() │
//	│                  │  (RWMutex)  │   ↓              │
//	│                  │             │ render           │
//	└──────────────────┘             └──────────────────┘
//
// # Update Semantics
//
// Failures never clear the current record; they set LastError and bump
// ConsecutiveFailures. A successful refresh resets both. IsOffline reports two
// network failures in a row so the UI can say so instead of repeating the raw
// error.
//
// # Copying
//
// Snapshot returns notices as a fresh slice and wraps LastError so callers
// cannot mutate what the store holds. Records are immutable and shared.
//
// The zero Store is ready to use.
package state
