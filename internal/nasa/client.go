package nasa

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/five82/apodesk/internal/apod"
)

// Client talks to the NASA APOD HTTP API.
type Client struct {
	endpoint  *url.URL
	apiKey    string
	http      *http.Client
	userAgent string
	preferHD  bool
	timeout   time.Duration
	ownHTTP   bool
}

const (
	DefaultEndpoint  = "https://api.nasa.gov/planetary/apod"
	DefaultAPIKey    = "DEMO_KEY"
	defaultUserAgent = "apodesk/0.1"
	requestTimeout   = 30 * time.Second
	maxMetadataBytes = 1 << 20
	maxImageBytes    = 64 << 20
)

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. The client is used as
// given; WithTimeout does not change it.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
			c.ownHTTP = false
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua = strings.TrimSpace(ua); ua != "" {
			c.userAgent = ua
		}
	}
}

// WithHD makes FetchLatestMetadata report the high resolution image URL when
// the API provides one.
func WithHD(enabled bool) Option {
	return func(c *Client) { c.preferHD = enabled }
}

// NewClient builds a Client for the APOD endpoint. An empty endpoint uses the
// public NASA API and an empty key uses DEMO_KEY.
func NewClient(endpoint, apiKey string, opts ...Option) (*Client, error) {
	base, err := parseEndpoint(endpoint)
	if err != nil {
		return nil, err
	}
	key := strings.TrimSpace(apiKey)
	if key == "" {
		key = DefaultAPIKey
	}
	c := &Client{
		endpoint:  base,
		apiKey:    key,
		http:      &http.Client{},
		userAgent: defaultUserAgent,
		timeout:   requestTimeout,
		ownHTTP:   true,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.ownHTTP {
		c.http.Timeout = c.timeout
	}
	return c, nil
}

// FetchLatestMetadata retrieves today's title and image URL. Errors are
// always *FetchError.
func (c *Client) FetchLatestMetadata(ctx context.Context) (apod.Metadata, error) {
	if c == nil {
		return apod.Metadata{}, otherError("client is nil", nil)
	}
	reqURL := *c.endpoint
	values := reqURL.Query()
	values.Set("api_key", c.apiKey)
	values.Set("thumbs", "false")
	reqURL.RawQuery = values.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return apod.Metadata{}, otherError("create request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return apod.Metadata{}, classifyTransport(err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxMetadataBytes+1))
	if err != nil {
		return apod.Metadata{}, classifyTransport(err)
	}
	if len(body) > maxMetadataBytes {
		return apod.Metadata{}, invalidResponse("response too large", nil)
	}

	if resp.StatusCode >= 400 {
		return apod.Metadata{}, statusError(resp.StatusCode, body)
	}

	var payload apodResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return apod.Metadata{}, invalidResponse("decode response", err)
	}
	meta := payload.metadata()
	if meta.Title == "" {
		return apod.Metadata{}, invalidResponse("missing title", nil)
	}
	if meta.MediaType != "" && meta.MediaType != "image" {
		return apod.Metadata{}, invalidResponse(fmt.Sprintf("media type %q is not an image", meta.MediaType), nil)
	}
	if c.preferHD && meta.HDURL != "" {
		meta.ImageURL = meta.HDURL
	}
	if meta.ImageURL == "" {
		return apod.Metadata{}, invalidResponse("missing image url", nil)
	}
	if _, err := url.Parse(meta.ImageURL); err != nil {
		return apod.Metadata{}, invalidResponse("image url", err)
	}
	return meta, nil
}

// DownloadImage fetches imageURL and returns its bytes when they decode as a
// raster image. Any failure yields false.
func (c *Client) DownloadImage(ctx context.Context, imageURL string) ([]byte, bool) {
	if c == nil || strings.TrimSpace(imageURL) == "" {
		return nil, false
	}
	target, err := c.endpoint.Parse(strings.TrimSpace(imageURL))
	if err != nil {
		return nil, false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, false
	}
	req.Header.Set("Accept", "image/*")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, false
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, false
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil || len(data) == 0 || len(data) > maxImageBytes {
		return nil, false
	}
	if _, err := apod.DetectFormat(bytes.NewReader(data)); err != nil {
		return nil, false
	}
	return data, true
}

func statusError(status int, body []byte) *FetchError {
	var apiErr apiErrorResponse
	detail := fmt.Sprintf("status %d", status)
	if err := json.Unmarshal(body, &apiErr); err == nil {
		if msg := apiErr.message(); msg != "" {
			detail += ": " + msg
		}
	}
	if status >= 500 {
		return networkError(detail, nil)
	}
	return otherError(detail, nil)
}

func parseEndpoint(endpoint string) (*url.URL, error) {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		trimmed = DefaultEndpoint
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api_url %q: %w", endpoint, err)
	}
	if u.Host == "" {
		return nil, errors.New("api_url has no host")
	}
	u.Fragment = ""
	return u, nil
}
