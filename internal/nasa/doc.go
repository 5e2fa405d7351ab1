// Package nasa provides an HTTP client for NASA's Astronomy Picture of the Day API.
//
// # Overview
//
// The client performs two operations:
//
//   - FetchLatestMetadata: GET <api_url>?api_key=...; returns title and image URL
//   - DownloadImage: GET <image url>; returns the raw bytes if they decode as an image
//
// # Error Handling
//
// FetchLatestMetadata always fails with *FetchError, whose Kind is one of:
//
//   - Network: connection refused, DNS failure, timeout, HTTP 5xx
//   - InvalidResponse: malformed JSON, missing title or url, non-image media
//   - Other: any remaining HTTP status (bad key, rate limit) or cancellation
//
// Callers match kinds with errors.Is(err, nasa.ErrNetwork) and friends.
//
// DownloadImage deliberately has no error path: a picture that cannot be
// fetched or decoded yields (nil, false) and the caller treats the refresh
// as incomplete.
//
// # Image Formats
//
// JPEG, PNG and GIF come from the standard library; BMP, TIFF and WebP are
// registered from golang.org/x/image. Only the header is decoded to validate
// a download.
//
// # Retries
//
// None. The refresh controller never retries; the daemon owns its own backoff.
package nasa
