// Package webcrawl implements the bounded breadth-first website crawler used
// for generic websites that have no scraping-provider integration.
package webcrawl

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/LeoVertizBP/content-scan-engine/internal/fetch"
	"github.com/LeoVertizBP/content-scan-engine/internal/metrics"
)

// Fetcher fetches a URL. Satisfied by *fetch.Client.
type Fetcher interface {
	Get(ctx context.Context, rawURL string) (fetch.Response, error)
}

// Crawler performs same-origin BFS traversal. All traversal state is
// call-scoped, so concurrent crawls of different start URLs are safe.
type Crawler struct {
	client Fetcher
	logger *zap.Logger
}

// New constructs a Crawler.
func New(client Fetcher, logger *zap.Logger) *Crawler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Crawler{client: client, logger: logger}
}

// frontierEntry is one pending fetch in BFS order.
type frontierEntry struct {
	url   string
	depth int
}

// crawlState holds the frontier and discovered set for one invocation.
type crawlState struct {
	frontier   []frontierEntry
	discovered map[string]struct{}
	order      []string
}

func (s *crawlState) record(key string) {
	s.discovered[key] = struct{}{}
	s.order = append(s.order, key)
}

// Crawl traverses the site breadth-first from startURL and returns every
// discovered same-origin URL, deduplicated, capped at maxPages when set.
// URLs beyond the depth or page cap still count as discovered but are never
// fetched. A maxPages or maxDepth of zero means unlimited.
//
// An unparsable start URL fails fast with no fetches issued. Per-page fetch
// failures are logged and skipped; they never abort the crawl.
func (c *Crawler) Crawl(ctx context.Context, startURL string, maxPages, maxDepth int) ([]string, error) {
	origin, seed, err := parseStart(startURL)
	if err != nil {
		return nil, err
	}

	state := &crawlState{discovered: make(map[string]struct{})}
	state.record(seed)
	state.frontier = append(state.frontier, frontierEntry{url: seed, depth: 0})

	for len(state.frontier) > 0 {
		if ctx.Err() != nil {
			break
		}
		if maxPages > 0 && len(state.order) >= maxPages {
			break
		}

		entry := state.frontier[0]
		state.frontier = state.frontier[1:]

		resp, err := c.client.Get(ctx, entry.url)
		if err != nil {
			metrics.ObserveCrawlFetch("error")
			c.logger.Warn("page fetch failed",
				zap.String("url", entry.url),
				zap.Int("depth", entry.depth),
				zap.Error(err),
			)
			continue
		}
		if !resp.OK() {
			metrics.ObserveCrawlFetch("http_error")
			c.logger.Warn("page fetch returned non-2xx",
				zap.String("url", entry.url),
				zap.Int("status_code", resp.StatusCode),
			)
			continue
		}
		metrics.ObserveCrawlFetch("ok")
		if !resp.IsHTML() {
			c.logger.Debug("skipping link extraction for non-HTML response",
				zap.String("url", entry.url),
				zap.String("content_type", resp.ContentType),
			)
			continue
		}

		c.collectLinks(state, entry, resp, origin, maxPages, maxDepth)
	}

	return append([]string(nil), state.order...), nil
}

// collectLinks extracts anchors from one HTML page and records every new
// same-origin target, enqueueing those still inside the depth and page caps.
func (c *Crawler) collectLinks(
	state *crawlState,
	entry frontierEntry,
	resp fetch.Response,
	origin *url.URL,
	maxPages, maxDepth int,
) {
	base, err := url.Parse(resp.URL)
	if err != nil {
		base, err = url.Parse(entry.url)
		if err != nil {
			return
		}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		c.logger.Warn("html parse failed", zap.String("url", entry.url), zap.Error(err))
		return
	}

	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, ok := sel.Attr("href")
		if !ok {
			return true
		}
		target, ok := resolveLink(base, origin, href)
		if !ok {
			return true
		}
		if _, seen := state.discovered[target]; seen {
			return true
		}
		if maxPages > 0 && len(state.order) >= maxPages {
			return false
		}
		state.record(target)

		withinDepth := maxDepth <= 0 || entry.depth+1 <= maxDepth
		underPageCap := maxPages <= 0 || len(state.order) < maxPages
		if withinDepth && underPageCap {
			state.frontier = append(state.frontier, frontierEntry{url: target, depth: entry.depth + 1})
		}
		return true
	})
}

// resolveLink resolves href against base, strips fragments, and filters out
// non-http(s) schemes and cross-origin targets.
func resolveLink(base, origin *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", false
	}
	u, err := base.Parse(href)
	if err != nil {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	u.Fragment = ""
	if !sameOrigin(u, origin) {
		return "", false
	}
	return u.String(), true
}

// sameOrigin compares scheme and host:port.
func sameOrigin(u, origin *url.URL) bool {
	return u.Scheme == origin.Scheme && strings.EqualFold(u.Host, origin.Host)
}

// parseStart validates the start URL and returns its origin plus the
// fragment-stripped seed form.
func parseStart(startURL string) (*url.URL, string, error) {
	u, err := url.Parse(strings.TrimSpace(startURL))
	if err != nil {
		return nil, "", fmt.Errorf("parse start url %q: %w", startURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, "", fmt.Errorf("start url %q must be http or https", startURL)
	}
	if u.Host == "" {
		return nil, "", fmt.Errorf("start url %q has no host", startURL)
	}
	u.Fragment = ""
	return u, u.String(), nil
}
