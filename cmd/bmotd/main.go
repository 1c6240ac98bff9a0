// main is the entry point of the bmotd application.
// In one-shot mode it pings a single Bedrock server and prints the MOTD.
// In service mode it initializes the configuration, logger, database and
// GeoIP provider, and starts the HTTP tracker server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/bmotd/internal/config"
	"github.com/woozymasta/bmotd/internal/geoip"
	"github.com/woozymasta/bmotd/internal/logger"
	"github.com/woozymasta/bmotd/internal/maintenance"
	"github.com/woozymasta/bmotd/internal/server"
	"github.com/woozymasta/bmotd/internal/storage"
	"github.com/woozymasta/bmotd/pkg/bmotd"
)

func main() {
	cfg := config.Parse()

	logger.Setup(cfg.Logger)

	// One-shot query mode
	if cfg.Host != "" {
		client, err := bmotd.New(cfg.Host, cfg.Port)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid target")
		}
		client.Timeout = cfg.Query.Timeout
		client.BufferSize = cfg.Query.BufferSize

		motd, err := client.Query()
		if err != nil {
			log.Fatal().Err(err).Msg("Query failed")
		}

		fmt.Println(motd)
		return
	}

	log.Info().Msg("Starting bmotd service...")

	// GeoIP Update
	log.Info().Msg("Checking GeoIP database...")
	if err := geoip.EnsureDB(cfg.GeoIP.Path, cfg.GeoIP.URL, cfg.GeoIP.Interval); err != nil {
		log.Error().Err(err).Msg("Failed to download GeoIP database")
	}

	geoProvider, err := geoip.Open(cfg.GeoIP.Path)
	if err != nil {
		log.Error().Err(err).Msg("Failed to open GeoIP database, country detection disabled")
		geoProvider = nil
	} else {
		defer func() {
			if err := geoProvider.Close(); err != nil {
				log.Error().Err(err).Msg("Error closing GeoIP provider")
			}
		}()
	}

	// Database
	store, err := storage.New(cfg.Storage.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database")
		}
	}()

	// Database maintenance short-circuit
	if maintenance.Run(cfg, store) {
		return
	}

	// Init server
	srvHandler := server.New(store, geoProvider, cfg)

	// Background queue and poller
	srvHandler.StartWorkers()

	httpServer := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      srvHandler.Run(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("address", cfg.Server.Address).Msg("Server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop workers (wait queue done)
	srvHandler.StopWorkers()

	log.Info().Msg("Server exited")
}
