package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/five82/apodesk/internal/apod"
)

// File is the single-slot store backed by one file on disk.
type File struct {
	path string
	log  zerolog.Logger
}

// Option configures a File.
type Option func(*File)

// WithLogger sets the logger used for corruption and watcher diagnostics.
func WithLogger(log zerolog.Logger) Option {
	return func(f *File) { f.log = log }
}

// New returns a store for the slot at path. Nothing is touched on disk until
// Save is called.
func New(path string, opts ...Option) *File {
	f := &File{path: filepath.Clean(path), log: zerolog.Nop()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Path returns the slot location.
func (f *File) Path() string {
	return f.path
}

// Save atomically replaces the slot with r. Readers observe either the
// previous slot or the new one, never a partial write.
func (f *File) Save(r apod.Record) error {
	data, err := Encode(r)
	if err != nil {
		return &StoreError{Kind: WriteFailed, Path: f.path, Err: err}
	}
	if err := writeAtomic(f.path, data); err != nil {
		return &StoreError{Kind: WriteFailed, Path: f.path, Err: err}
	}
	return nil
}

// Load returns the saved record. A missing, unreadable or corrupt slot is
// reported as absent.
func (f *File) Load() (apod.Record, bool) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			f.log.Warn().Err(err).Str("path", f.path).Msg("cache slot unreadable")
		}
		return apod.Record{}, false
	}
	r, err := Decode(data)
	if err != nil {
		corrupt := &StoreError{Kind: Corrupt, Path: f.path, Err: err}
		f.log.Warn().Err(corrupt).Msg("ignoring cache slot")
		return apod.Record{}, false
	}
	return r, true
}

// Remove deletes the slot. A missing slot is not an error.
func (f *File) Remove() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove cache slot: %w", err)
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	committed = true
	return nil
}
