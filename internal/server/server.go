// Package server implements the HTTP server, middleware, and request
// handlers for the bmotd tracker service.
package server

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/bmotd/internal/config"
	"github.com/woozymasta/bmotd/internal/geoip"
	"github.com/woozymasta/bmotd/internal/storage"
)

// New creates a Server instance with the provided storage, GeoIP provider,
// and configuration.
func New(store *storage.Repository, geo *geoip.Provider, cfg *config.Config) *Server {
	return &Server{
		storage:        store,
		geoip:          geo,
		queryOptions:   cfg.Query,
		authToken:      cfg.Server.AuthToken,
		maxBody:        cfg.Server.MaxBodySize,
		trustProxy:     cfg.Server.TrustProxy,
		pollInterval:   cfg.Server.PollInterval,
		hardLimitCount: cfg.RateLimit.HardLimitCount,
		hardLimitWin:   cfg.RateLimit.HardLimitWin,
		softLimitDur:   cfg.RateLimit.SoftLimitDur,

		queue:      make(chan trackJob, 1000),
		shutdown:   make(chan struct{}),
		pollerDone: make(chan struct{}),
		limiters:   make(map[string]*ipLimiter),
	}
}

// StartWorkers initializes the background worker pool that processes
// tracking jobs, the periodic poller, and the seen-cache cleanup routine.
func (s *Server) StartWorkers() {
	workers := 10
	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}

	go s.pollLoop()
	go s.gcSeenCache()
	go s.gcLimiters()
}

// StopWorkers gracefully stops the background workers and closes the job
// queue. The poller is stopped first, closing the queue under its feet
// would panic a send in flight.
func (s *Server) StopWorkers() {
	close(s.shutdown)
	<-s.pollerDone
	close(s.queue)
	s.wg.Wait()
}

// Run configures the HTTP routes and returns the main handler.
func (s *Server) Run() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("POST /api/track", s.RateLimitMiddleware(http.HandlerFunc(s.handleTrack)))
	mux.Handle("GET /api/motd", s.RateLimitMiddleware(http.HandlerFunc(s.handleLiveQuery)))
	mux.Handle("GET /api/servers", AdminAuthMiddleware(s.authToken, http.HandlerFunc(s.handleServers)))
	mux.Handle("GET /api/server", AdminAuthMiddleware(s.authToken, http.HandlerFunc(s.handleGetServer)))
	mux.Handle("DELETE /api/server", AdminAuthMiddleware(s.authToken, http.HandlerFunc(s.handleDeleteServer)))
	mux.Handle("GET /api/version", http.HandlerFunc(s.handleVersion))

	return s.LoggingMiddleware(mux)
}

// pollLoop periodically enqueues every tracked server for a re-query.
// Workers apply the soft limit, so a short interval does not hammer servers.
func (s *Server) pollLoop() {
	defer close(s.pollerDone)

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.shutdown:
			return
		case <-ticker.C:
			servers, err := s.storage.GetServers()
			if err != nil {
				log.Error().Err(err).Msg("Failed to fetch servers for polling")
				continue
			}

			for _, srv := range servers {
				select {
				case s.queue <- trackJob{Host: srv.Host, Port: uint16(srv.Port)}:
				case <-s.shutdown:
					return
				default:
					log.Warn().Msg("Queue full, poll round truncated")
				}
			}
		}
	}
}

// gcLimiters periodically drops rate limiters for clients that went quiet.
func (s *Server) gcLimiters() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.shutdown:
			return
		case <-ticker.C:
			now := time.Now()
			s.limiterMu.Lock()
			for ip, c := range s.limiters {
				if now.Sub(c.lastSeen) > 10*time.Minute {
					delete(s.limiters, ip)
				}
			}
			s.limiterMu.Unlock()
		}
	}
}

// gcSeenCache periodically drops expired entries from the soft-limit cache.
func (s *Server) gcSeenCache() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.shutdown:
			return
		case <-ticker.C:
			now := time.Now()
			s.seenCache.Range(func(key, value interface{}) bool {
				if t, ok := value.(time.Time); ok {
					if now.Sub(t) > s.softLimitDur {
						s.seenCache.Delete(key)
					}
				} else {
					s.seenCache.Delete(key)
				}
				return true
			})
		}
	}
}
