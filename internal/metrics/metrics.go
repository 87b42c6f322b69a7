// Package metrics exposes Prometheus collectors for the scan engine.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	scanJobsTotal              *prometheus.CounterVec
	scanRunsTotal              *prometheus.CounterVec
	scanRunsPolledTotal        *prometheus.CounterVec
	scanItemsIngestedTotal     *prometheus.CounterVec
	scanMediaUploadsTotal      *prometheus.CounterVec
	crawlerFetchesTotal        *prometheus.CounterVec
	sitemapFetchesTotal        *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		scanJobsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scan_jobs_total",
				Help: "Total number of scan jobs, labeled by terminal-or-start status.",
			},
			[]string{"status"},
		)

		scanRunsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scan_runs_total",
				Help: "Total number of scan job runs reaching a status, labeled by status.",
			},
			[]string{"status"},
		)

		scanRunsPolledTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scan_runs_polled_total",
				Help: "Total provider status polls, labeled by provider outcome.",
			},
			[]string{"outcome"},
		)

		scanItemsIngestedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scan_items_ingested_total",
				Help: "Total result items processed by the ingestion pipeline, labeled by platform and outcome.",
			},
			[]string{"platform", "outcome"},
		)

		scanMediaUploadsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scan_media_uploads_total",
				Help: "Total media asset uploads attempted during ingestion, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		crawlerFetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_fetches_total",
				Help: "Total page fetches issued by the BFS crawler, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		sitemapFetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitemap_fetches_total",
				Help: "Total sitemap document fetches, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveJob increments the job counter for the given status.
func ObserveJob(status string) {
	if scanJobsTotal == nil {
		return
	}
	scanJobsTotal.WithLabelValues(status).Inc()
}

// ObserveRun increments the run counter for the given status.
func ObserveRun(status string) {
	if scanRunsTotal == nil {
		return
	}
	scanRunsTotal.WithLabelValues(status).Inc()
}

// ObservePoll records one provider status poll outcome.
func ObservePoll(outcome string) {
	if scanRunsPolledTotal == nil {
		return
	}
	scanRunsPolledTotal.WithLabelValues(outcome).Inc()
}

// ObserveItem records one ingestion pipeline outcome for a platform.
func ObserveItem(platform, outcome string) {
	if scanItemsIngestedTotal == nil {
		return
	}
	scanItemsIngestedTotal.WithLabelValues(platform, outcome).Inc()
}

// ObserveMediaUpload records one media upload attempt.
func ObserveMediaUpload(outcome string) {
	if scanMediaUploadsTotal == nil {
		return
	}
	scanMediaUploadsTotal.WithLabelValues(outcome).Inc()
}

// ObserveCrawlFetch records one crawler page fetch outcome.
func ObserveCrawlFetch(outcome string) {
	if crawlerFetchesTotal == nil {
		return
	}
	crawlerFetchesTotal.WithLabelValues(outcome).Inc()
}

// ObserveSitemapFetch records one sitemap document fetch outcome.
func ObserveSitemapFetch(outcome string) {
	if sitemapFetchesTotal == nil {
		return
	}
	sitemapFetchesTotal.WithLabelValues(outcome).Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
