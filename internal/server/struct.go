package server

import (
	"sync"
	"time"

	"github.com/woozymasta/bmotd/internal/config"
	"github.com/woozymasta/bmotd/internal/geoip"
	"github.com/woozymasta/bmotd/internal/storage"
)

// Server holds the dependencies, configuration, and runtime state required
// to handle HTTP requests and background status polling.
type Server struct {
	// storage provides access to the persistent database layer.
	storage *storage.Repository

	// geoip resolves server IP addresses to country codes.
	// It can be nil if the GeoIP database is not initialized.
	geoip *geoip.Provider

	// queue is a buffered channel used to pass tracking jobs from HTTP
	// handlers and the poll loop to background workers.
	queue chan trackJob

	// shutdown broadcasts a stop signal to background routines during a
	// graceful shutdown.
	shutdown chan struct{}

	// pollerDone is closed by pollLoop on exit. StopWorkers must not close
	// the queue until the poller has stopped, it may be mid-send.
	pollerDone chan struct{}

	// limiters tracks per-IP hard rate limiters, shared by every route
	// wrapped with RateLimitMiddleware. Guarded by limiterMu.
	limiters  map[string]*ipLimiter
	limiterMu sync.Mutex

	// seenCache tracks recently queried servers keyed by an xxhash of
	// host:port. It backs the soft limit that suppresses needless
	// re-queries and database writes.
	seenCache sync.Map

	// authToken is the secret required to access administrative endpoints.
	authToken string

	// queryOptions holds the unconnected ping settings (timeout, buffer).
	queryOptions config.Query

	// wg waits for the background workers to drain the queue on shutdown.
	wg sync.WaitGroup

	// maxBody caps incoming HTTP request bodies, in bytes.
	maxBody int64

	// pollInterval is how often tracked servers are re-queried.
	pollInterval time.Duration

	// hardLimitCount is the maximum number of requests allowed per IP
	// within hardLimitWin.
	hardLimitCount int

	// hardLimitWin is the time window for the hard rate limiter.
	hardLimitWin time.Duration

	// softLimitDur is the period during which a recently queried server is
	// not queried again.
	softLimitDur time.Duration

	// trustProxy indicates whether X-Forwarded-For style headers are
	// trusted when determining the client address.
	trustProxy bool
}

// trackJob represents a unit of work for the background workers: one server
// to query and persist.
type trackJob struct {
	// Host is the server name or address as registered by the client.
	Host string

	// Port is the server query port.
	Port uint16
}
