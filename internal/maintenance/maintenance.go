// Package maintenance provides tools to re-check and clean the query history.
package maintenance

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/mcstatus/internal/config"
	"github.com/woozymasta/mcstatus/internal/game"
	"github.com/woozymasta/mcstatus/internal/history"
	"github.com/woozymasta/mcstatus/internal/models"
	"github.com/woozymasta/mcstatus/internal/storage"
	"golang.org/x/time/rate"
)

const workers = 10

// Run checks if any maintenance flags are set and executes the corresponding tasks.
// Returns true if a maintenance task was executed (indicating the program should exit).
func Run(ctx context.Context, cfg *config.Config, store *storage.Repository, rec *history.Recorder) bool {
	if cfg.Storage.PruneOffline > 0 {
		cutoff := time.Now().Add(-cfg.Storage.PruneOffline)
		log.Info().Time("cutoff", cutoff).Msg("Pruning offline servers...")

		count, err := store.DeleteOffline(cutoff)
		if err != nil {
			log.Error().Err(err).Msg("Failed to prune servers")
		} else {
			log.Info().Int64("deleted", count).Msg("Prune finished")
		}

		return true
	}

	if !cfg.Storage.Recheck {
		return false
	}

	servers, err := store.GetServers()
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch servers")
		return true
	}

	if len(servers) == 0 {
		log.Info().Msg("No servers found for recheck")
		return true
	}

	log.Info().Int("count", len(servers)).Int("workers", workers).Msg("Starting recheck task...")
	runWorkerPool(ctx, servers, rec, cfg.Query, cfg.Storage.RecheckRate)
	log.Info().Msg("Recheck task completed")

	return true
}

// runWorkerPool queries every server once. perSecond paces job dispatch; zero or less means unlimited.
func runWorkerPool(ctx context.Context, servers []models.Record, rec *history.Recorder, opts config.Query, perSecond float64) {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	limiter := rate.NewLimiter(limit, 1)

	jobs := make(chan models.Record, len(servers))
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for server := range jobs {
				processServer(ctx, server, rec, opts)
			}
		}()
	}

	for _, s := range servers {
		if err := limiter.Wait(ctx); err != nil {
			log.Warn().Err(err).Msg("Recheck interrupted")
			break
		}
		jobs <- s
	}
	close(jobs)

	wg.Wait()
}

func processServer(ctx context.Context, server models.Record, rec *history.Recorder, opts config.Query) {
	logCtx := log.With().
		Str("host", server.Host).
		Int("port", server.Port).
		Str("kind", server.Kind).
		Logger()

	if server.Kind != "" {
		opts.Kind = server.Kind
	}

	st, err := game.QueryServer(ctx, server.Host, server.Port, true, opts)
	if history.Interrupted(ctx, err) {
		logCtx.Debug().Err(err).Msg("Recheck interrupted, record left unchanged")
		return
	}
	if err != nil {
		logCtx.Debug().Err(err).Msg("Server unreachable, marking offline")
		st = nil
	}

	if err := rec.Save(ctx, server.Host, server.Port, opts.Kind, st); err != nil {
		logCtx.Error().Err(err).Msg("Failed to update server")
		return
	}

	logCtx.Trace().Bool("online", st != nil).Msg("Server rechecked")
}
