// Package config handles the parsing and validation of application
// configuration from command-line arguments and environment variables.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/woozymasta/bmotd/internal/logger"
	"github.com/woozymasta/bmotd/internal/vars"
)

// Config represents the complete application flags configuration.
type Config struct {
	// betteralign:ignore

	Server    Server        `group:"Server Options" env-namespace:"BMOTD"`
	Storage   Storage       `group:"Storage Options" namespace:"db" env-namespace:"BMOTD_DB"`
	GeoIP     GeoIP         `group:"GeoIP Options" namespace:"geoip" env-namespace:"BMOTD_GEOIP"`
	RateLimit RateLimit     `group:"Rate Limit Options" namespace:"rate-limit" env-namespace:"BMOTD_RATE_LIMIT"`
	Query     Query         `group:"Query Options" namespace:"query" env-namespace:"BMOTD_QUERY"`
	Logger    logger.Config `group:"Logger Options" namespace:"log" env-namespace:"BMOTD_LOG"`

	// One-shot mode: query a single server, print its MOTD and exit.
	Host string `short:"H" long:"host" description:"Query one server and print its status instead of running the service"`
	Port uint16 `short:"p" long:"port" description:"Port for the one-shot query" default:"19132"`

	Version bool `short:"v" long:"version" description:"Print version and build info"`
}

// Server holds web server configuration.
type Server struct {
	// betteralign:ignore

	Address      string        `short:"l" long:"address" env:"LISTEN_ADDRESS" description:"Server listen address" default:":8080"`
	AuthToken    string        `short:"t" long:"auth-token" env:"AUTH_TOKEN" description:"Admin authentication token"`
	MaxBodySize  int64         `long:"max-body-size" env:"MAX_BODY_SIZE" description:"Max body size for incoming requests" default:"512"`
	PollInterval time.Duration `long:"poll-interval" env:"POLL_INTERVAL" description:"How often tracked servers are re-queried" default:"10m"`
	TrustProxy   bool          `long:"trust-proxy" env:"TRUST_PROXY" description:"Trust X-Forwarded-For headers"`
}

// Storage holds database configuration.
type Storage struct {
	// betteralign:ignore

	Path          string `short:"d" long:"path" env:"PATH" description:"Path to SQLite database" default:"bmotd.db"`
	PruneEmpty    bool   `long:"prune-empty" description:"Delete tracked servers that never produced a status, then exit"`
	CheckInactive bool   `long:"check-inactive" description:"Re-query servers with no status. Update if UP, delete if DOWN, then exit"`
	CheckAll      bool   `long:"check-all" description:"Re-query ALL tracked servers. Update if UP, delete if DOWN, then exit"`
}

// GeoIP holds MaxMind GeoIP configuration.
type GeoIP struct {
	// betteralign:ignore

	Path     string        `short:"g" long:"path" env:"PATH" description:"Path to MMDB file" default:"bmotd.mmdb"`
	URL      string        `long:"url" env:"URL" description:"URL to download MMDB" default:"https://git.io/GeoLite2-Country.mmdb"`
	Interval time.Duration `long:"interval" env:"INTERVAL" description:"Update interval check" default:"24h"`
}

// Query holds unconnected ping protocol configuration.
type Query struct {
	// betteralign:ignore

	Timeout    time.Duration `long:"timeout" env:"TIMEOUT" description:"Receive timeout per candidate address" default:"5s"`
	BufferSize uint16        `long:"buffer-size" env:"BUFFER_SIZE" description:"Reply datagram buffer size" default:"1024"`
}

// RateLimit holds API rate limiting configuration.
type RateLimit struct {
	// betteralign:ignore

	HardLimitCount int           `long:"hard-count" env:"HARD_COUNT" description:"Hard IP limit: requests count" default:"8"`
	HardLimitWin   time.Duration `long:"hard-window" env:"HARD_WINDOW" description:"Hard IP limit: window duration" default:"1m"`
	SoftLimitDur   time.Duration `long:"soft" env:"SOFT" description:"Soft limit: skip re-query of a server seen within duration" default:"5m"`
}

// Parse reads the configuration from flags and environment variables.
// It terminates the application if the configuration is invalid or if the
// help flag is invoked.
func Parse() *Config {
	var cfg Config
	parser := flags.NewParser(&cfg, flags.Default)
	parser.NamespaceDelimiter = "-"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}

	if cfg.Version {
		vars.Print()
		os.Exit(0)
	}

	// The token guards admin endpoints, only the service mode needs it.
	if cfg.Host == "" && cfg.Server.AuthToken == "" {
		fmt.Fprintln(os.Stderr,
			"Required flag `-t, --auth-token' or environment variable `BMOTD_AUTH_TOKEN` was not specified!")
		os.Exit(1)
	}

	return &cfg
}
