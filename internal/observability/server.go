// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cordex Contributors

// Package observability provides HTTP endpoints for metrics and health checks.
package observability

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReadinessChecker returns whether the service is ready to accept connections.
type ReadinessChecker func() bool

// Metrics contains the Prometheus metrics emitted by a pipeline run.
type Metrics struct {
	SentencesProcessed *prometheus.CounterVec
	SentencesDropped   *prometheus.CounterVec
	MatchesFound       *prometheus.CounterVec
	BackendBatchLatency *prometheus.HistogramVec
	BackendRetries     *prometheus.CounterVec
	FilesCommitted     prometheus.Counter
}

// NewMetrics creates and registers the cordex pipeline metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SentencesProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cordex_sentences_processed_total",
				Help: "Total number of sentences successfully matched against the structure library",
			},
			[]string{"file"},
		),
		SentencesDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cordex_sentences_dropped_total",
				Help: "Total number of sentences dropped due to per-sentence parse errors",
			},
			[]string{"file", "reason"},
		),
		MatchesFound: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cordex_matches_total",
				Help: "Total number of structure matches recorded, by structure id",
			},
			[]string{"structure_id"},
		),
		BackendBatchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "cordex_lookup_batch_latency_seconds",
				Help: "Latency of a single lookup-backend batch call",
			},
			[]string{"endpoint"},
		),
		BackendRetries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cordex_lookup_batch_bisections_total",
				Help: "Total number of bisect-and-retry rounds against the lookup backend",
			},
			[]string{"endpoint"},
		),
		FilesCommitted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cordex_files_committed_total",
				Help: "Total number of input corpus files committed to the store",
			},
		),
	}

	reg.MustRegister(m.SentencesProcessed)
	reg.MustRegister(m.SentencesDropped)
	reg.MustRegister(m.MatchesFound)
	reg.MustRegister(m.BackendBatchLatency)
	reg.MustRegister(m.BackendRetries)
	reg.MustRegister(m.FilesCommitted)

	return m
}

// Server provides HTTP endpoints for observability (metrics and health probes).
type Server struct {
	addr       string
	listener   net.Listener
	httpServer *http.Server
	registry   *prometheus.Registry
	metrics    *Metrics
	isReady    ReadinessChecker
	running    atomic.Bool
}

// NewServer creates a new observability server.
func NewServer(addr string, readinessChecker ReadinessChecker) *Server {
	// Create a new registry to avoid polluting the global one
	registry := prometheus.NewRegistry()

	// Register standard Go metrics
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Register custom metrics
	metrics := NewMetrics(registry)

	s := &Server{
		addr:     addr,
		registry: registry,
		metrics:  metrics,
		isReady:  readinessChecker,
	}

	return s
}

// Metrics returns the pipeline metrics for recording application events.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Start begins serving observability endpoints.
func (s *Server) Start() error {
	if !s.running.CompareAndSwap(false, true) {
		return fmt.Errorf("observability server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = listener

	mux := http.NewServeMux()

	// Prometheus metrics endpoint
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))

	// Kubernetes-style health probes
	mux.HandleFunc("/healthz/liveness", s.handleLiveness)
	mux.HandleFunc("/healthz/readiness", s.handleReadiness)

	s.httpServer = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if serveErr := s.httpServer.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			slog.Error("observability server error", "error", serveErr)
		}
	}()

	slog.Info("observability server started", "addr", listener.Addr().String())
	return nil
}

// Stop gracefully shuts down the observability server.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.Load() {
		return nil
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown observability server: %w", err)
		}
	}

	s.running.Store(false)
	slog.Info("observability server stopped")
	return nil
}

// Addr returns the address the server is listening on.
// Returns empty string if not running.
func (s *Server) Addr() string {
	if s.running.Load() && s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

// handleLiveness returns 200 if the process is running.
// This is a simple check that the process is alive.
func (s *Server) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

// handleReadiness returns 200 if the service is ready to accept connections,
// or 503 if not ready.
func (s *Server) handleReadiness(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	if s.isReady == nil || s.isReady() {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
		return
	}

	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("not ready\n"))
}
