package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/bmotd/internal/models"
	"github.com/woozymasta/bmotd/internal/query"
	"github.com/woozymasta/bmotd/internal/vars"
)

// serverKeyParams extracts and validates the host/port query parameters
// shared by the per-server endpoints.
func serverKeyParams(w http.ResponseWriter, r *http.Request) (string, int, bool) {
	host := r.URL.Query().Get("host")
	portStr := r.URL.Query().Get("port")

	if host == "" || portStr == "" {
		http.Error(w, "Missing host or port", http.StatusBadRequest)
		return "", 0, false
	}

	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		http.Error(w, "Invalid port", http.StatusBadRequest)
		return "", 0, false
	}

	return host, port, true
}

// handleServers returns a JSON list of all tracked servers.
// This endpoint is protected by AdminAuthMiddleware.
func (s *Server) handleServers(w http.ResponseWriter, _ *http.Request) {
	servers, err := s.storage.GetServers()
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch servers")
		http.Error(w, "Database Error", http.StatusInternalServerError)
		return
	}

	if servers == nil {
		servers = []models.Server{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(servers)
}

// handleLiveQuery performs a live unconnected ping against a specific server
// and returns the decoded status. It acts as a proxy for clients that cannot
// speak UDP themselves.
// Query params: ?host=play.example.com&port=19132
func (s *Server) handleLiveQuery(w http.ResponseWriter, r *http.Request) {
	host, port, ok := serverKeyParams(w, r)
	if !ok {
		return
	}

	info, err := query.Status(host, uint16(port), s.queryOptions)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusGatewayTimeout)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(info)
}

// handleGetServer returns details for a specific tracked server.
// Query params: ?host=play.example.com&port=19132
func (s *Server) handleGetServer(w http.ResponseWriter, r *http.Request) {
	host, port, ok := serverKeyParams(w, r)
	if !ok {
		return
	}

	srv, err := s.storage.GetServer(host, port)
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch server")
		http.Error(w, "Database Error", http.StatusInternalServerError)
		return
	}

	if srv == nil {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(srv)
}

// handleDeleteServer removes a specific server from the database.
// Query params: ?host=play.example.com&port=19132
func (s *Server) handleDeleteServer(w http.ResponseWriter, r *http.Request) {
	host, port, ok := serverKeyParams(w, r)
	if !ok {
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

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok", "message": "Server deleted"})
}

// handleVersion returns the build metadata.
func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(vars.Info())
}
