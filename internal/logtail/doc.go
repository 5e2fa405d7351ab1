// Package logtail reads the tail of apodesk's JSON log for display.
//
// Read keeps a ring buffer of the last N lines so large files are scanned
// once without holding them in memory. Parse turns a zerolog JSON line into
// an Entry the UI can colour by level; Format renders it in the same compact
// shape as zerolog's console writer.
package logtail
