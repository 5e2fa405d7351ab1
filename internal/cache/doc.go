// Package cache persists the most recent APOD record in a single slot on disk.
//
// # Slot Format
//
// The slot is a small length-prefixed binary container so the file stays
// stable across releases and can be inspected with a hex dump:
//
//	"APOD" | version u8
//	fetched_at | title | date | explanation | image_url | copyright | image   (u32 len + bytes each)
//	crc32 u32 (IEEE, over everything above)
//
// All integers are little-endian. fetched_at holds time.Time.MarshalBinary
// output, so the zero time and dates outside the int64 nanosecond range
// survive a round trip.
//
// # Durability
//
// Save writes to a temporary file in the slot's directory, syncs it and
// renames it over the slot. A failed Save leaves the previous slot in place.
// Load treats a missing or malformed slot as "no cached record"; corruption is
// logged, never returned.
//
// # Watching
//
// Watch observes the slot's directory with fsnotify so a running UI can pick
// up a record written by the daemon process.
package cache
