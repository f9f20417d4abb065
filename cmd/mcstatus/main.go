// main is the entry point of the mcstatus application.
// It queries a game server once and prints its status, or serves the HTTP API,
// or runs history maintenance, depending on the configuration.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/mcstatus/internal/config"
	"github.com/woozymasta/mcstatus/internal/game"
	"github.com/woozymasta/mcstatus/internal/geoip"
	"github.com/woozymasta/mcstatus/internal/history"
	"github.com/woozymasta/mcstatus/internal/logger"
	"github.com/woozymasta/mcstatus/internal/maintenance"
	"github.com/woozymasta/mcstatus/internal/server"
	"github.com/woozymasta/mcstatus/internal/storage"
)

func main() {
	cfg := config.Parse()
	logger.Setup(cfg.Logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, cfg)
	stop()

	os.Exit(code)
}

func run(ctx context.Context, cfg *config.Config) int {
	// GeoIP
	var geoProvider *geoip.Provider
	if cfg.GeoIP.Path != "" {
		p, err := geoip.Load(ctx, cfg.GeoIP)
		if err != nil {
			log.Error().Err(err).Msg("Failed to open GeoIP database, country detection disabled")
		} else {
			geoProvider = p
			defer func() {
				if err := geoProvider.Close(); err != nil {
					log.Error().Err(err).Msg("Error closing GeoIP provider")
				}
			}()
		}
	}

	// History
	var (
		store    *storage.Repository
		recorder *history.Recorder
	)
	if cfg.Storage.Path != "" {
		var err error
		store, err = storage.New(cfg.Storage.Path)
		if err != nil {
			log.Error().Err(err).Msg("Failed to initialize database")
			return 1
		}
		defer func() {
			if err := store.Close(); err != nil {
				log.Error().Err(err).Msg("Error closing database")
			}
		}()
		recorder = history.NewRecorder(store, geoProvider)
	}

	if store != nil && maintenance.Run(ctx, cfg, store, recorder) {
		return 0
	}

	if cfg.Server.Address != "" {
		if !cfg.Storage.Record {
			recorder = nil
		}
		return serve(ctx, cfg, store, recorder)
	}

	return query(ctx, cfg, recorder)
}

// query runs a single status query and prints the result to stdout.
func query(ctx context.Context, cfg *config.Config, recorder *history.Recorder) int {
	t := cfg.Target
	log.Debug().
		Str("host", t.Host).
		Int("port", t.Port).
		Bool("ping", t.Ping).
		Str("kind", cfg.Query.Kind).
		Msg("Querying server status")

	st, err := game.QueryServer(ctx, t.Host, t.Port, t.Ping, cfg.Query)

	if recorder != nil && cfg.Storage.Record && !history.Interrupted(ctx, err) {
		if err := recorder.Save(ctx, t.Host, t.Port, cfg.Query.Kind, st); err != nil {
			log.Error().Err(err).Msg("Failed to record query")
		}
	}

	if err != nil {
		log.Error().Err(err).Str("host", t.Host).Int("port", t.Port).Msg("Status query failed")
		return 1
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(st.Stripped()); err != nil {
		log.Error().Err(err).Msg("Failed to print status")
		return 1
	}

	return 0
}

// serve runs the HTTP API until ctx is cancelled.
func serve(ctx context.Context, cfg *config.Config, store *storage.Repository, recorder *history.Recorder) int {
	srvHandler := server.New(store, recorder, cfg)
	srvHandler.StartWorkers()

	httpServer := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           srvHandler.Run(),
		ReadHeaderTimeout: 5 * time.Second,
		// Live queries may take several protocol timeouts
		WriteTimeout: 5*cfg.Query.Timeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("address", cfg.Server.Address).Msg("Server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	code := 0
	select {
	case <-ctx.Done():
	case err, ok := <-errCh:
		if ok {
			log.Error().Err(err).Msg("Server failed")
			code = 1
		}
	}

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Wait for queued results to be written
	srvHandler.StopWorkers()

	log.Info().Msg("Server exited")
	return code
}
