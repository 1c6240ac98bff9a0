// Package maintenance provides one-shot tasks for cleaning and refreshing
// the tracked server database.
package maintenance

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/bmotd/internal/config"
	"github.com/woozymasta/bmotd/internal/models"
	"github.com/woozymasta/bmotd/internal/query"
	"github.com/woozymasta/bmotd/internal/storage"
)

// Run checks if any maintenance flags are set and executes the corresponding
// tasks. Returns true if a maintenance task was executed (indicating the
// program should exit).
func Run(cfg *config.Config, store *storage.Repository) bool {
	if cfg.Storage.PruneEmpty {
		log.Info().Msg("Pruning servers without status...")

		count, err := store.DeleteEmptyServers()
		if err != nil {
			log.Error().Err(err).Msg("Failed to prune servers")
		} else {
			log.Info().Int64("deleted", count).Msg("Prune finished")
		}

		return true
	}

	var (
		servers  []models.Server
		err      error
		taskName string
	)

	switch {
	case cfg.Storage.CheckInactive:
		taskName = "Check Inactive"
		log.Info().Msg("Fetching servers without status for re-check...")
		servers, err = store.GetServersSubset(true)
	case cfg.Storage.CheckAll:
		taskName = "Check All"
		log.Info().Msg("Fetching all servers for re-check...")
		servers, err = store.GetServersSubset(false)
	default:
		return false
	}

	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch servers")
		return true
	}

	if len(servers) == 0 {
		log.Info().Msg("No servers found for maintenance")
		return true
	}

	log.Info().Int("count", len(servers)).Msgf("Starting '%s' task...", taskName)
	runWorkerPool(servers, store, cfg.Query)
	log.Info().Msg("Maintenance task completed")

	return true
}

func runWorkerPool(servers []models.Server, store *storage.Repository, opts config.Query) {
	const workers = 10
	jobs := make(chan models.Server, len(servers))
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for srv := range jobs {
				checkServer(srv, store, opts)
			}
		}()
	}

	for _, s := range servers {
		jobs <- s
	}
	close(jobs)

	wg.Wait()
}

// checkServer re-queries one tracked server: update it when it answers,
// delete it when it does not.
func checkServer(srv models.Server, store *storage.Repository, opts config.Query) {
	logCtx := log.With().
		Str("host", srv.Host).
		Int("port", srv.Port).
		Logger()

	if srv.Port < 1 || srv.Port > 65535 {
		logCtx.Debug().Msg("Invalid port, deleting server")
		if err := store.DeleteServer(srv.Host, srv.Port); err != nil {
			logCtx.Error().Err(err).Msg("Failed to delete invalid server")
		}
		return
	}

	info, err := query.Status(srv.Host, uint16(srv.Port), opts)
	if err != nil {
		logCtx.Debug().Err(err).Msg("Server unreachable, deleting")
		if err := store.DeleteServer(srv.Host, srv.Port); err != nil {
			logCtx.Error().Err(err).Msg("Failed to delete unreachable server")
		}
		return
	}

	srv.Edition = info.Edition
	srv.Name = info.Name
	srv.SubName = info.SubName
	srv.GameMode = info.GameMode
	srv.Protocol = info.Protocol
	srv.Version = info.Version
	srv.Players = info.Players
	srv.MaxPlayers = info.MaxPlayers
	srv.ServerID = info.ServerID
	srv.LastSeen = time.Now()

	if err := store.UpsertServer(srv); err != nil {
		logCtx.Error().Err(err).Msg("Failed to update server")
	} else {
		logCtx.Trace().Msg("Server updated successfully")
	}
}
