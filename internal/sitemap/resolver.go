// Package sitemap resolves URLs from sitemap and sitemap-index documents,
// recursing through nested indexes with cycle protection.
package sitemap

import (
	"context"
	"encoding/xml"
	"strings"

	"go.uber.org/zap"

	"github.com/LeoVertizBP/content-scan-engine/internal/fetch"
	"github.com/LeoVertizBP/content-scan-engine/internal/metrics"
)

// Fetcher fetches a URL. Satisfied by *fetch.Client.
type Fetcher interface {
	Get(ctx context.Context, rawURL string) (fetch.Response, error)
}

// Resolver discovers page URLs from sitemaps. Traversal state is call-scoped,
// so concurrent resolutions of different sitemaps are safe.
type Resolver struct {
	client Fetcher
	logger *zap.Logger
}

// New constructs a Resolver.
func New(client Fetcher, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{client: client, logger: logger}
}

// urlSet is the root element of a standard sitemap document.
type urlSet struct {
	XMLName xml.Name   `xml:"urlset"`
	URLs    []urlEntry `xml:"url"`
}

// urlEntry is a single <url> entry inside a <urlset>.
type urlEntry struct {
	Loc string `xml:"loc"`
}

// sitemapIndex is the root element of a sitemap index document.
type sitemapIndex struct {
	XMLName  xml.Name       `xml:"sitemapindex"`
	Sitemaps []sitemapEntry `xml:"sitemap"`
}

// sitemapEntry is a single <sitemap> entry inside a <sitemapindex>.
type sitemapEntry struct {
	Loc string `xml:"loc"`
}

// resolveState accumulates URLs for one resolution call.
type resolveState struct {
	visited map[string]struct{}
	seen    map[string]struct{}
	urls    []string
}

func (s *resolveState) full(maxURLs int) bool {
	return maxURLs > 0 && len(s.urls) >= maxURLs
}

func (s *resolveState) add(loc string, maxURLs int) {
	if s.full(maxURLs) {
		return
	}
	if _, dup := s.seen[loc]; dup {
		return
	}
	s.seen[loc] = struct{}{}
	s.urls = append(s.urls, loc)
}

// ParseSitemap fetches the sitemap at rawURL and returns the page URLs it
// (transitively) contains, deduplicated and capped at maxURLs when set.
// Fetch and parse failures are absorbed: the offending subtree contributes
// nothing, and URLs already collected from siblings are kept. A maxURLs of
// zero means unlimited.
func (r *Resolver) ParseSitemap(ctx context.Context, rawURL string, maxURLs int) []string {
	state := &resolveState{
		visited: make(map[string]struct{}),
		seen:    make(map[string]struct{}),
	}
	r.resolve(ctx, rawURL, maxURLs, state)
	return append([]string(nil), state.urls...)
}

func (r *Resolver) resolve(ctx context.Context, rawURL string, maxURLs int, state *resolveState) {
	if ctx.Err() != nil {
		return
	}
	if _, done := state.visited[rawURL]; done {
		r.logger.Info("skipping already visited sitemap", zap.String("url", rawURL))
		return
	}
	state.visited[rawURL] = struct{}{}

	resp, err := r.client.Get(ctx, rawURL)
	if err != nil {
		metrics.ObserveSitemapFetch("error")
		r.logger.Error("sitemap fetch failed", zap.String("url", rawURL), zap.Error(err))
		return
	}
	if !resp.OK() {
		metrics.ObserveSitemapFetch("http_error")
		r.logger.Error("sitemap fetch returned non-2xx",
			zap.String("url", rawURL),
			zap.Int("status_code", resp.StatusCode),
		)
		return
	}
	metrics.ObserveSitemapFetch("ok")

	var set urlSet
	if err := xml.Unmarshal(resp.Body, &set); err == nil {
		for _, entry := range set.URLs {
			if state.full(maxURLs) {
				return
			}
			if loc := strings.TrimSpace(entry.Loc); loc != "" {
				state.add(loc, maxURLs)
			}
		}
		return
	}

	var index sitemapIndex
	if err := xml.Unmarshal(resp.Body, &index); err == nil {
		for _, child := range index.Sitemaps {
			// Stop before issuing further fetches once the cap is reached.
			if state.full(maxURLs) {
				return
			}
			loc := strings.TrimSpace(child.Loc)
			if loc == "" {
				continue
			}
			r.resolve(ctx, loc, maxURLs, state)
		}
		return
	}

	r.logger.Warn("document matches neither urlset nor sitemapindex", zap.String("url", rawURL))
}
