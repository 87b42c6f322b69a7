// Package fetch provides the shared HTTP GET helper used by the crawler,
// the sitemap resolver, and the ingestion pipeline's media downloads.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultMaxBodyBytes caps response bodies when no limit is configured.
const DefaultMaxBodyBytes = 10 * 1024 * 1024

// Config controls Client behavior.
type Config struct {
	Timeout      time.Duration
	UserAgent    string
	MaxBodyBytes int64
}

// Client wraps http.Client with redirect-following GETs, a body size cap,
// and content-type inspection.
type Client struct {
	http      *http.Client
	userAgent string
	maxBytes  int64
}

// Response is the outcome of one GET. URL holds the final URL after
// redirects, which link resolution must use as its base.
type Response struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
}

// IsHTML reports whether the response declared an HTML content type.
func (r Response) IsHTML() bool {
	mediaType := r.ContentType
	if idx := strings.Index(mediaType, ";"); idx >= 0 {
		mediaType = mediaType[:idx]
	}
	mediaType = strings.TrimSpace(strings.ToLower(mediaType))
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

// OK reports whether the response carried a 2xx status.
func (r Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// NewClient constructs a Client. Redirects are followed transparently by the
// underlying http.Client.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return &Client{
		http:      &http.Client{Timeout: cfg.Timeout},
		userAgent: cfg.UserAgent,
		maxBytes:  cfg.MaxBodyBytes,
	}
}

// Get fetches the URL and returns status, content type, and body. A non-2xx
// status is not an error; callers decide how to treat it.
func (c *Client) Get(ctx context.Context, rawURL string) (Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Response{}, fmt.Errorf("build request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("get %s: %w", rawURL, err)
	}
	defer resp.Body.Close() //nolint:errcheck // read side only

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes))
	if err != nil {
		return Response{}, fmt.Errorf("read body of %s: %w", rawURL, err)
	}

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	return Response{
		URL:         finalURL,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}
