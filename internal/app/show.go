package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/five82/apodesk/internal/apod"
)

// Output formats accepted by WriteRecord.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// RecordView is the printable form of a cached record. Image bytes are
// summarized, never printed.
type RecordView struct {
	Title       string    `json:"title" yaml:"title"`
	Date        string    `json:"date,omitempty" yaml:"date,omitempty"`
	Copyright   string    `json:"copyright,omitempty" yaml:"copyright,omitempty"`
	ImageURL    string    `json:"image_url,omitempty" yaml:"image_url,omitempty"`
	ImageFormat string    `json:"image_format" yaml:"image_format"`
	ImageBytes  int       `json:"image_bytes" yaml:"image_bytes"`
	FetchedAt   time.Time `json:"fetched_at" yaml:"fetched_at"`
	Explanation string    `json:"explanation,omitempty" yaml:"explanation,omitempty"`
}

// NewRecordView summarizes r for printing.
func NewRecordView(r apod.Record) RecordView {
	format, _ := apod.DetectFormat(bytes.NewReader(r.ImageBytes()))
	if format == "" {
		format = "unknown"
	}
	return RecordView{
		Title:       r.Title,
		Date:        r.Date,
		Copyright:   r.Copyright,
		ImageURL:    r.ImageURL,
		ImageFormat: format,
		ImageBytes:  r.ImageSize(),
		FetchedAt:   r.FetchedAt,
		Explanation: r.Explanation,
	}
}

// WriteRecord prints r to w in the given format.
func WriteRecord(w io.Writer, r apod.Record, format string) error {
	view := NewRecordView(r)
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatText:
		return writeText(w, view)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(view); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func writeText(w io.Writer, v RecordView) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", v.Title)
	if v.Date != "" {
		fmt.Fprintf(&b, "Date:       %s\n", v.Date)
	}
	if v.Copyright != "" {
		fmt.Fprintf(&b, "Copyright:  %s\n", v.Copyright)
	}
	fmt.Fprintf(&b, "Image:      %s, %d bytes\n", v.ImageFormat, v.ImageBytes)
	if v.ImageURL != "" {
		fmt.Fprintf(&b, "Source:     %s\n", v.ImageURL)
	}
	fmt.Fprintf(&b, "Fetched:    %s\n", v.FetchedAt.Local().Format("2006-01-02 15:04:05"))
	if v.Explanation != "" {
		fmt.Fprintf(&b, "\n%s\n", v.Explanation)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
