package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/mcstatus/internal/models"
	"github.com/woozymasta/mcstatus/internal/vars"
)

var errHistoryDisabled = errors.New("history is disabled")

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, err error) {
	respondJSON(w, status, map[string]string{"error": err.Error()})
}

// handleVersion returns build information.
func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, vars.Info())
}

// handleServers returns a JSON list of all servers in history.
func (s *Server) handleServers(w http.ResponseWriter, _ *http.Request) {
	if s.storage == nil {
		respondError(w, http.StatusServiceUnavailable, errHistoryDisabled)
		return
	}

	servers, err := s.storage.GetServers()
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch servers")
		http.Error(w, "Database Error", http.StatusInternalServerError)
		return
	}

	if servers == nil {
		servers = []models.Record{}
	}

	respondJSON(w, http.StatusOK, servers)
}

// serverParams reads the required host and port query params.
func serverParams(r *http.Request) (string, int, error) {
	host := r.URL.Query().Get("host")
	portStr := r.URL.Query().Get("port")
	if host == "" || portStr == "" {
		return "", 0, errors.New("missing required params (host, port)")
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, errors.New("invalid port")
	}

	return host, port, nil
}

// handleGetServer returns one history record.
// Query params: ?host=mc.example.org&port=25565
func (s *Server) handleGetServer(w http.ResponseWriter, r *http.Request) {
	if s.storage == nil {
		respondError(w, http.StatusServiceUnavailable, errHistoryDisabled)
		return
	}

	host, port, err := serverParams(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	server, err := s.storage.GetServer(host, port)
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch server")
		http.Error(w, "Database Error", http.StatusInternalServerError)
		return
	}

	if server == nil {
		http.NotFound(w, r)
		return
	}

	respondJSON(w, http.StatusOK, server)
}

// handleDeleteServer removes one server from history.
// Query params: ?host=mc.example.org&port=25565
func (s *Server) handleDeleteServer(w http.ResponseWriter, r *http.Request) {
	if s.storage == nil {
		respondError(w, http.StatusServiceUnavailable, errHistoryDisabled)
		return
	}

	host, port, err := serverParams(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	if err := s.storage.DeleteServer(host, port); err != nil {
		log.Error().Err(err).
			Str("host", host).
			Int("port", port).
			Msg("Failed to delete server")

		http.Error(w, "Database Error", http.StatusInternalServerError)
		return
	}

	log.Info().
		Str("host", host).
		Int("port", port).
		Msg("Server deleted manually")

	respondJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "Server deleted"})
}
