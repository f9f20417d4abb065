package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/mcstatus/internal/config"
	"github.com/woozymasta/mcstatus/internal/game"
	"github.com/woozymasta/mcstatus/internal/history"
	"github.com/woozymasta/mcstatus/internal/protocol"
)

// handleStatus performs a live status query and returns it without the favicon.
// Query params: ?host=mc.example.org&port=25565&ping=1
// Omitted params take the CLI defaults.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	target, err := config.ParseTarget(config.Args{
		Port: q.Get("port"),
		Host: q.Get("host"),
		Ping: q.Get("ping"),
	})
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	if !s.hostAllowed(target.Host) {
		log.Debug().
			Str("ip", GetRealIP(r, s.trustProxy)).
			Str("host", target.Host).
			Msg("Host not allowed")

		respondError(w, http.StatusForbidden, errors.New("host not allowed"))
		return
	}

	st, err := s.query(r.Context(), target.Host, target.Port, target.Ping, s.queryOptions)
	if history.Interrupted(r.Context(), err) {
		log.Debug().
			Err(err).
			Str("ip", GetRealIP(r, s.trustProxy)).
			Str("host", target.Host).
			Msg("Status query interrupted by client")

		respondError(w, http.StatusServiceUnavailable, err)
		return
	}

	s.enqueue(recordJob{Host: target.Host, Port: target.Port, Kind: s.queryOptions.Kind, Status: st})
	if err != nil {
		log.Debug().
			Err(err).
			Str("host", target.Host).
			Int("port", target.Port).
			Msg("Status query failed")

		respondError(w, queryErrorStatus(err), err)
		return
	}

	respondJSON(w, http.StatusOK, st.Stripped())
}

// queryErrorStatus maps query failures to gateway status codes.
func queryErrorStatus(err error) int {
	switch {
	case errors.Is(err, game.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, game.ErrMalformedResponse), errors.Is(err, protocol.ErrMalformedVarInt):
		return http.StatusBadGateway
	default:
		return http.StatusServiceUnavailable
	}
}

// enqueue hands a result to the recording workers without blocking the request.
func (s *Server) enqueue(job recordJob) {
	if s.recorder == nil {
		return
	}

	select {
	case s.queue <- job:
	default:
		log.Warn().
			Str("host", job.Host).
			Int("port", job.Port).
			Msg("Record queue full, result dropped")
	}
}

// worker is a background goroutine that writes queued results to history.
func (s *Server) worker() {
	defer s.wg.Done()

	for job := range s.queue {
		if err := s.recorder.Save(context.Background(), job.Host, job.Port, job.Kind, job.Status); err != nil {
			log.Error().Err(err).Str("host", job.Host).Int("port", job.Port).Msg("Failed to record query")
		}
	}
}
