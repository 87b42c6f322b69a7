// Package api exposes the HTTP interface for the scan engine.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/LeoVertizBP/content-scan-engine/internal/config"
	"github.com/LeoVertizBP/content-scan-engine/internal/metrics"
	"github.com/LeoVertizBP/content-scan-engine/internal/orchestrator"
	"github.com/LeoVertizBP/content-scan-engine/internal/scan"
	"github.com/LeoVertizBP/content-scan-engine/internal/sitemap"
	"github.com/LeoVertizBP/content-scan-engine/internal/webcrawl"
)

// Server wires HTTP handlers to the orchestrator, stores, and crawlers.
type Server struct {
	router   chi.Router
	orch     *orchestrator.Orchestrator
	jobs     scan.JobStore
	crawler  *webcrawl.Crawler
	resolver *sitemap.Resolver
	cfg      config.Config
	logger   *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	orch *orchestrator.Orchestrator,
	jobs scan.JobStore,
	crawler *webcrawl.Crawler,
	resolver *sitemap.Resolver,
	cfg config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		orch:     orch,
		jobs:     jobs,
		crawler:  crawler,
		resolver: resolver,
		cfg:      cfg,
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metricsMiddleware)
	r.Use(timeoutMiddleware(60 * time.Second))
	if cfg.Auth.Enabled {
		r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
	}

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/scans", func(r chi.Router) {
			r.Post("/", s.startScan)
			r.Get("/{scan_id}", s.getScan)
		})
		r.Post("/crawl", s.crawl)
		r.Post("/sitemap", s.resolveSitemap)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type startScanRequest struct {
	Channels   []channelRequest `json:"channels"`
	Selections map[string]int   `json:"selections"`
}

type channelRequest struct {
	ChannelID string `json:"channel_id"`
	Platform  string `json:"platform"`
	URL       string `json:"url"`
}

func (s *Server) startScan(w http.ResponseWriter, r *http.Request) {
	var req startScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	targets := make([]scan.ChannelTarget, 0, len(req.Channels))
	for _, ch := range req.Channels {
		targets = append(targets, scan.ChannelTarget{
			ChannelID: ch.ChannelID,
			Platform:  scan.Platform(ch.Platform),
			URL:       ch.URL,
		})
	}
	selections := make(scan.PlatformSelections, len(req.Selections))
	for platform, limit := range req.Selections {
		selections[scan.Platform(platform)] = limit
	}

	job, err := s.orch.StartScan(r.Context(), targets, selections)
	if err != nil {
		if errors.Is(err, orchestrator.ErrNoTargets) {
			s.writeError(w, http.StatusBadRequest, "at least one channel required")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]any{"job": job})
}

func (s *Server) getScan(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "scan_id")
	job, err := s.jobs.GetJob(r.Context(), jobID)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "scan not found")
		return
	}
	runs, err := s.jobs.ListRunsByJob(r.Context(), jobID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to fetch runs")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"job": job, "runs": runs})
}

type crawlRequest struct {
	URL      string `json:"url"`
	MaxPages int    `json:"max_pages"`
	MaxDepth int    `json:"max_depth"`
}

func (s *Server) crawl(w http.ResponseWriter, r *http.Request) {
	var req crawlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		s.writeError(w, http.StatusBadRequest, "url required")
		return
	}
	if req.MaxPages == 0 {
		req.MaxPages = s.cfg.Crawler.MaxPagesDefault
	}
	if req.MaxDepth == 0 {
		req.MaxDepth = s.cfg.Crawler.MaxDepthDefault
	}

	urls, err := s.crawler.Crawl(r.Context(), req.URL, req.MaxPages, req.MaxDepth)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"urls": urls, "count": len(urls)})
}

type sitemapRequest struct {
	URL     string `json:"url"`
	MaxURLs int    `json:"max_urls"`
}

func (s *Server) resolveSitemap(w http.ResponseWriter, r *http.Request) {
	var req sitemapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		s.writeError(w, http.StatusBadRequest, "url required")
		return
	}
	if req.MaxURLs == 0 {
		req.MaxURLs = s.cfg.Crawler.MaxSitemapURLs
	}

	urls := s.resolver.ParseSitemap(r.Context(), req.URL, req.MaxURLs)
	s.writeJSON(w, http.StatusOK, map[string]any{"urls": urls, "count": len(urls)})
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec))
				s.writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unknown"
		}
		metrics.ObserveHTTPRequest(r.Method, route, ww.status, time.Since(start))
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

func apiKeyMiddleware(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				key = r.URL.Query().Get("api_key")
			}
			if key != expected {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

type requestIDKey struct{}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
