package wallpaper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/five82/apodesk/internal/apod"
)

const filePrefix = "apod-"

// Applier stages a record's image in a dedicated directory and hands it to
// the operating system as the desktop background.
type Applier struct {
	dir     string
	setter  Setter
	caption bool
	log     zerolog.Logger
	newName func(ext string) string
}

// Option configures an Applier.
type Option func(*Applier)

// WithSetter replaces the platform wallpaper facility.
func WithSetter(s Setter) Option {
	return func(a *Applier) {
		if s != nil {
			a.setter = s
		}
	}
}

// WithCaption draws the record title onto the staged image.
func WithCaption(enabled bool) Option {
	return func(a *Applier) { a.caption = enabled }
}

// WithLogger sets the applier's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(a *Applier) { a.log = log }
}

// New returns an Applier staging images under dir.
func New(dir string, opts ...Option) *Applier {
	a := &Applier{
		dir:    filepath.Clean(dir),
		setter: SystemSetter(),
		log:    zerolog.Nop(),
		newName: func(ext string) string {
			// A fresh name per apply; some desktops cache the picture by path.
			return filePrefix + uuid.NewString() + "." + ext
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Dir returns the staging directory.
func (a *Applier) Dir() string {
	return a.dir
}

// Prepare ensures the staging directory exists.
func (a *Applier) Prepare() error {
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}
	return nil
}

// Clear removes the files a previous apply staged. Subdirectories and files
// without the apod- prefix are left alone. A missing or empty directory is not
// an error.
func (a *Applier) Clear() error {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("list staging dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), filePrefix) {
			continue
		}
		if err := os.Remove(filepath.Join(a.dir, entry.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// WriteImage writes the record's image to a new file in the staging
// directory and returns its path.
func (a *Applier) WriteImage(r apod.Record) (string, error) {
	data := r.ImageBytes()
	if len(data) == 0 {
		return "", &ApplyError{Kind: WriteFailed, Step: "write", Err: errors.New("record has no image")}
	}
	format, _ := apod.DetectFormat(bytes.NewReader(data))
	ext := apod.Extension(format)

	if a.caption {
		captioned, err := drawCaption(data, r.Title)
		if err != nil {
			a.log.Warn().Err(err).Str("title", r.Title).Msg("caption skipped")
		} else {
			data, ext = captioned, "png"
		}
	}

	path := filepath.Join(a.dir, a.newName(ext))
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", &ApplyError{Kind: WriteFailed, Step: "write", Path: path, Err: err}
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return "", &ApplyError{Kind: WriteFailed, Step: "write", Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return "", &ApplyError{Kind: WriteFailed, Step: "write", Path: path, Err: err}
	}
	return path, nil
}

// SetAsBackground asks the OS to show the file at path.
func (a *Applier) SetAsBackground(ctx context.Context, path string) error {
	if err := a.setter.SetWallpaper(ctx, path); err != nil {
		return &ApplyError{Kind: OSRejected, Step: "set", Path: path, Err: err}
	}
	return nil
}

// Apply runs prepare, clear, write and set in order. The first failing step
// stops the protocol and is returned as an *ApplyError. A file written before
// an OS rejection stays behind until the next Clear.
func (a *Applier) Apply(ctx context.Context, r apod.Record) error {
	if err := a.Prepare(); err != nil {
		return &ApplyError{Kind: WriteFailed, Step: "prepare", Path: a.dir, Err: err}
	}
	if err := a.Clear(); err != nil {
		return &ApplyError{Kind: WriteFailed, Step: "clear", Path: a.dir, Err: err}
	}
	path, err := a.WriteImage(r)
	if err != nil {
		return err
	}
	if err := a.SetAsBackground(ctx, path); err != nil {
		return err
	}
	a.log.Info().Str("title", r.Title).Str("path", path).Msg("desktop background updated")
	return nil
}
