// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package server exposes the catalog runs, statistics and search over HTTP.
// Run results are always answered with 200: a failed run is data, not a
// transport error.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/poiesic/catalogsync"
	"github.com/poiesic/catalogsync/core"
	"github.com/poiesic/catalogsync/ingestion"
	"github.com/poiesic/catalogsync/reembed"
	"github.com/poiesic/catalogsync/transform"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

// Service is the part of catalogsync.Catalog the handlers call.
type Service interface {
	RunFullSync(ctx context.Context, endpoint string, force bool) *catalogsync.FullSyncResult
	RunTransformAndLoad(ctx context.Context, endpoint string, includeInvalid bool, policy transform.DuplicatePolicy) *ingestion.Result
	RunEmbeddingSync(ctx context.Context, force bool, batchSize int) *reembed.SyncResult
	RunDeletionSync(ctx context.Context) *reembed.DeletionResult
	RunIncremental(ctx context.Context, endpoint string) *catalogsync.IncrementalResult
	RunForProducts(ctx context.Context, skus []string, force bool) *reembed.SyncResult
	RunSingleProduct(ctx context.Context, endpoint, sku string) *catalogsync.SingleProductResult
	HealthCheck(ctx context.Context) *catalogsync.HealthReport
	Stats(ctx context.Context) (*catalogsync.StatsReport, error)
	CollectionInfo(ctx context.Context) (*core.IndexInfo, error)
	Search(ctx context.Context, text string, limit int, filter *core.SearchFilter) ([]*core.SearchResult, error)
}

var _ Service = (*catalogsync.Catalog)(nil)

// Config holds the listener settings.
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server serves the HTTP surface of a Service.
type Server struct {
	service Service
	config  Config
	handler http.Handler
	logger  *slog.Logger
}

// New creates a server. Routes are registered at once; call Run to listen.
func New(service Service, config Config) *Server {
	s := &Server{
		service: service,
		config:  config,
		logger:  slog.Default().With("component", "http-server"),
	}
	s.handler = s.routes()
	return s
}

// Handler returns the request router.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /stats", s.handleStats)
	mux.HandleFunc("GET /collection", s.handleCollection)
	mux.HandleFunc("POST /pipelines/full-sync", s.handleFullSync)
	mux.HandleFunc("POST /pipelines/transform-and-load", s.handleTransformAndLoad)
	mux.HandleFunc("POST /pipelines/embedding-sync", s.handleEmbeddingSync)
	mux.HandleFunc("POST /pipelines/deletion-sync", s.handleDeletionSync)
	mux.HandleFunc("POST /pipelines/incremental", s.handleIncremental)
	mux.HandleFunc("POST /products/sync", s.handleSyncProducts)
	mux.HandleFunc("POST /products/{sku}/sync", s.handleSyncProduct)
	mux.HandleFunc("POST /search", s.handleSearch)
	return s.logRequests(mux)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request", "method", r.Method, "path", r.URL.Path,
			"status", rec.status, "duration", time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Run listens on the configured address until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}
	return s.Serve(ctx, listener)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	srv := &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("listening", "addr", listener.Addr().String())
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
