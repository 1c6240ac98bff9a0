package server

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog/log"
	"github.com/woozymasta/bmotd/internal/models"
	"github.com/woozymasta/bmotd/internal/query"
)

// handleTrack registers a Bedrock server for tracking. The request is
// validated, checked against the soft limit, and queued for asynchronous
// processing so the client is never blocked on a UDP exchange.
func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	ip := GetRealIP(r, s.trustProxy)

	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)

	var req models.TrackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Debug().
			Err(err).
			Str("ip", ip).
			Msg("Invalid JSON")

		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if req.Host == "" {
		http.Error(w, "Missing host", http.StatusBadRequest)
		return
	}
	if req.Port == 0 {
		req.Port = 19132
	}

	// Soft limit: a server queried recently is accepted but not re-queried.
	if seen, ok := s.seenCache.Load(seenKey(req.Host, req.Port)); ok {
		if lastSeen, ok := seen.(time.Time); ok && time.Since(lastSeen) < s.softLimitDur {
			log.Trace().
				Str("host", req.Host).
				Uint16("port", req.Port).
				Msg("Dropped by soft limit hit")

			respondAccepted(w, "already tracked")
			return
		}
	}
	s.seenCache.Store(seenKey(req.Host, req.Port), time.Now())

	select {
	case s.queue <- trackJob{Host: req.Host, Port: req.Port}:
		log.Trace().
			Str("ip", ip).
			Str("host", req.Host).
			Uint16("port", req.Port).
			Msg("Track job queued")

		respondAccepted(w, "accepted")
	default:
		log.Warn().
			Str("host", req.Host).
			Uint16("port", req.Port).
			Msg("Queue full, track request dropped")

		http.Error(w, "Service Busy", http.StatusServiceUnavailable)
	}
}

// seenKey builds the soft-limit cache key for a host/port pair.
func seenKey(host string, port uint16) uint64 {
	return xxhash.Sum64String(fmt.Sprintf("%s:%d", host, port))
}

// respondAccepted writes the standard JSON acknowledgement for queued work.
func respondAccepted(w http.ResponseWriter, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
}

// worker is a background goroutine that processes jobs from the queue.
func (s *Server) worker() {
	defer s.wg.Done()

	for job := range s.queue {
		s.processJob(job)
	}
}

// processJob executes the logic for a single tracked server: ping it,
// resolve the country of its address, and upsert the result. A failed ping
// still bumps last_seen so the maintenance tasks can find dead servers.
func (s *Server) processJob(job trackJob) {
	now := time.Now()
	srv := models.Server{
		Host:      job.Host,
		Port:      int(job.Port),
		FirstSeen: now,
		LastSeen:  now,
	}

	if ips, err := net.LookupIP(job.Host); err == nil && len(ips) > 0 {
		srv.IP = ips[0].String()
	}

	info, err := query.Status(job.Host, job.Port, s.queryOptions)
	if err != nil {
		log.Debug().
			Err(err).
			Str("host", job.Host).
			Uint16("port", job.Port).
			Msg("Status query failed")
	} else {
		srv.Edition = info.Edition
		srv.Name = info.Name
		srv.SubName = info.SubName
		srv.GameMode = info.GameMode
		srv.Protocol = info.Protocol
		srv.Version = info.Version
		srv.Players = info.Players
		srv.MaxPlayers = info.MaxPlayers
		srv.ServerID = info.ServerID
	}

	if s.geoip != nil && srv.IP != "" {
		srv.CountryCode = s.geoip.GetCountryCode(srv.IP)
	}

	if err := s.storage.UpsertServer(srv); err != nil {
		log.Error().Err(err).Msg("Failed to save server to DB")
		return
	}

	log.Debug().
		Str("host", srv.Host).
		Int("port", srv.Port).
		Bool("online", err == nil).
		Msg("Server status saved")
}
