// Package server implements the HTTP API: live status queries and query history.
package server

import (
	"net/http"

	"github.com/cespare/xxhash/v2"
	"github.com/woozymasta/mcstatus/internal/config"
	"github.com/woozymasta/mcstatus/internal/game"
	"github.com/woozymasta/mcstatus/internal/history"
	"github.com/woozymasta/mcstatus/internal/storage"
)

const (
	recordWorkers = 4
	queueSize     = 1000
)

// New creates a new Server. store and rec may be nil to disable history reads and recording.
func New(store *storage.Repository, rec *history.Recorder, cfg *config.Config) *Server {
	hosts := make(map[uint64]struct{})
	for _, host := range cfg.Server.AllowedHosts {
		hosts[xxhash.Sum64String(host)] = struct{}{}
	}

	return &Server{
		storage:        store,
		recorder:       rec,
		query:          game.QueryServer,
		allowedHosts:   hosts,
		authToken:      cfg.Server.AuthToken,
		queryOptions:   cfg.Query,
		hardLimitCount: cfg.RateLimit.HardLimitCount,
		hardLimitWin:   cfg.RateLimit.HardLimitWin,
		trustProxy:     cfg.Server.TrustProxy,

		queue: make(chan recordJob, queueSize),
	}
}

// StartWorkers starts the background history recording workers.
func (s *Server) StartWorkers() {
	for i := 0; i < recordWorkers; i++ {
		s.wg.Add(1)
		go s.worker()
	}
}

// StopWorkers closes the record queue and waits until it is drained.
func (s *Server) StopWorkers() {
	close(s.queue)
	s.wg.Wait()
}

// Run configures the HTTP routes and returns the main handler.
func (s *Server) Run() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /api/status", s.RateLimitMiddleware(http.HandlerFunc(s.handleStatus)))
	mux.Handle("GET /api/version", http.HandlerFunc(s.handleVersion))
	mux.Handle("GET /api/servers", AdminAuthMiddleware(s.authToken, http.HandlerFunc(s.handleServers)))
	mux.Handle("GET /api/server", AdminAuthMiddleware(s.authToken, http.HandlerFunc(s.handleGetServer)))
	mux.Handle("DELETE /api/server", AdminAuthMiddleware(s.authToken, http.HandlerFunc(s.handleDeleteServer)))

	return s.LoggingMiddleware(mux)
}

func (s *Server) hostAllowed(host string) bool {
	if len(s.allowedHosts) == 0 {
		return true
	}

	_, ok := s.allowedHosts[xxhash.Sum64String(host)]
	return ok
}
