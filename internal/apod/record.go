// Package apod defines the Astronomy Picture of the Day record that flows
// through the refresh, cache and apply pipeline.
package apod

import (
	"bytes"
	"time"
)

const formattedDateLayout = "January 2, 2006 at 3:04:05 PM MST"

// Metadata is the remote description of the current picture.
type Metadata struct {
	Title       string
	ImageURL    string
	HDURL       string
	Explanation string
	Date        string
	Copyright   string
	MediaType   string
}

// Record is one fetched picture. Construct it with NewRecord; the zero value
// is the empty record.
type Record struct {
	Title       string
	FetchedAt   time.Time
	Explanation string
	Date        string
	ImageURL    string
	Copyright   string

	image []byte
}

// NewRecord builds a Record from metadata and image bytes. The image is
// copied so later changes to the caller's slice are not visible.
func NewRecord(meta Metadata, image []byte, fetchedAt time.Time) Record {
	return Record{
		Title:       meta.Title,
		FetchedAt:   fetchedAt,
		Explanation: meta.Explanation,
		Date:        meta.Date,
		ImageURL:    meta.ImageURL,
		Copyright:   meta.Copyright,
		image:       bytes.Clone(image),
	}
}

// ImageBytes returns a copy of the raw image.
func (r Record) ImageBytes() []byte {
	return bytes.Clone(r.image)
}

// ImageSize returns the length of the raw image in bytes.
func (r Record) ImageSize() int {
	return len(r.image)
}

// IsZero reports whether r holds no picture.
func (r Record) IsZero() bool {
	return r.Title == "" && len(r.image) == 0 && r.FetchedAt.IsZero()
}

// Equal reports whether every field of r matches other.
func (r Record) Equal(other Record) bool {
	return r.Title == other.Title &&
		r.FetchedAt.Equal(other.FetchedAt) &&
		r.Explanation == other.Explanation &&
		r.Date == other.Date &&
		r.ImageURL == other.ImageURL &&
		r.Copyright == other.Copyright &&
		bytes.Equal(r.image, other.image)
}

// FormattedDate renders FetchedAt in local time using a long date and time.
func (r Record) FormattedDate() string {
	if r.FetchedAt.IsZero() {
		return ""
	}
	return r.FetchedAt.In(time.Local).Format(formattedDateLayout)
}
