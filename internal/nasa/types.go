package nasa

import (
	"strings"

	"github.com/five82/apodesk/internal/apod"
)

// apodResponse mirrors the payload returned by the APOD endpoint.
type apodResponse struct {
	Title          string `json:"title"`
	Date           string `json:"date"`
	Explanation    string `json:"explanation"`
	URL            string `json:"url"`
	HDURL          string `json:"hdurl"`
	MediaType      string `json:"media_type"`
	Copyright      string `json:"copyright"`
	ServiceVersion string `json:"service_version"`
}

// apiErrorResponse covers both error shapes the API gateway and the APOD
// service return.
type apiErrorResponse struct {
	Msg   string `json:"msg"`
	Code  int    `json:"code"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (r apiErrorResponse) message() string {
	if msg := strings.TrimSpace(r.Error.Message); msg != "" {
		return msg
	}
	return strings.TrimSpace(r.Msg)
}

func (r apodResponse) metadata() apod.Metadata {
	return apod.Metadata{
		Title:       strings.TrimSpace(r.Title),
		ImageURL:    strings.TrimSpace(r.URL),
		HDURL:       strings.TrimSpace(r.HDURL),
		Explanation: strings.TrimSpace(r.Explanation),
		Date:        strings.TrimSpace(r.Date),
		Copyright:   strings.TrimSpace(r.Copyright),
		MediaType:   strings.TrimSpace(r.MediaType),
	}
}
