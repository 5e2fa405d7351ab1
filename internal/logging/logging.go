// Package logging builds the zerolog loggers used across apodesk.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// FileName is the JSON log written by the TUI inside the log directory.
const FileName = "apodesk.log"

// Options select where and how verbosely to log.
type Options struct {
	Level string
	// Console writes human-readable lines to Writer (stderr when nil).
	// Otherwise JSON lines are appended to Dir/apodesk.log.
	Console bool
	Writer  io.Writer
	Dir     string
}

// ParseLevel maps a config or flag value onto a zerolog level. Empty means info.
func ParseLevel(s string) (zerolog.Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "":
		return zerolog.InfoLevel, nil
	case "warning":
		return zerolog.WarnLevel, nil
	}
	lvl, err := zerolog.ParseLevel(s)
	if err != nil {
		return zerolog.InfoLevel, fmt.Errorf("invalid log level %q", s)
	}
	return lvl, nil
}

// New returns a logger and a closer for any file it opened.
func New(opts Options) (zerolog.Logger, io.Closer, error) {
	lvl, err := ParseLevel(opts.Level)
	if err != nil {
		return zerolog.Nop(), nopCloser{}, err
	}

	if opts.Console {
		w := opts.Writer
		if w == nil {
			w = os.Stderr
		}
		cw := zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
		return zerolog.New(cw).Level(lvl).With().Timestamp().Logger(), nopCloser{}, nil
	}

	if strings.TrimSpace(opts.Dir) == "" {
		return zerolog.Nop(), nopCloser{}, fmt.Errorf("log directory is empty")
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return zerolog.Nop(), nopCloser{}, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(Path(opts.Dir), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return zerolog.Nop(), nopCloser{}, fmt.Errorf("open log file: %w", err)
	}
	return zerolog.New(f).Level(lvl).With().Timestamp().Logger(), f, nil
}

// Path returns the JSON log file inside dir.
func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
