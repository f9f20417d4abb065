// Package geoip handles downloading, updating, and reading MaxMind GeoLite2 databases
// used to tag queried servers with their country.
package geoip

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/oschwald/geoip2-golang"
	"github.com/rs/zerolog/log"
	"github.com/woozymasta/mcstatus/internal/config"
	"github.com/woozymasta/mcstatus/internal/vars"
)

// Load refreshes the country database at cfg.Path when it is missing or older than cfg.Interval,
// then opens it. A failed refresh is logged and an existing copy is still used.
func Load(ctx context.Context, cfg config.GeoIP) (*Provider, error) {
	client := &http.Client{Timeout: cfg.Timeout}
	if err := refresh(ctx, client, cfg); err != nil {
		log.Warn().Err(err).Str("url", cfg.URL).Msg("GeoIP database refresh failed")
	}

	return Open(cfg.Path)
}

// refresh downloads a new copy of the database if the local one is missing or stale.
func refresh(ctx context.Context, client *http.Client, cfg config.GeoIP) error {
	info, err := os.Stat(cfg.Path)
	switch {
	case err == nil && time.Since(info.ModTime()) < cfg.Interval:
		log.Debug().Str("path", cfg.Path).Time("modified", info.ModTime()).Msg("GeoIP database is up to date")
		return nil
	case err == nil:
		log.Info().Str("path", cfg.Path).Dur("age", time.Since(info.ModTime())).Msg("GeoIP database is outdated, updating...")
	case errors.Is(err, os.ErrNotExist):
		log.Info().Str("path", cfg.Path).Msg("GeoIP database missing, downloading...")
	default:
		return err
	}

	return download(ctx, client, cfg.Path, cfg.URL)
}

// download fetches url into a temporary file next to path and moves it into place
// only after it opens as a MaxMind database.
func download(ctx context.Context, client *http.Client, path, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", vars.Name+"/"+vars.Version)

	resp, err := client.Do(req) //nolint:gosec
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download GeoIP database: unexpected status %d", resp.StatusCode)
	}

	tmpPath := path + ".tmp"
	defer func() { _ = os.Remove(tmpPath) }()

	out, err := os.Create(tmpPath)
	if err != nil {
		return err
	}
	size, err := io.Copy(out, resp.Body)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}

	db, err := geoip2.Open(tmpPath)
	if err != nil {
		return fmt.Errorf("downloaded GeoIP database is invalid: %w", err)
	}
	dbType := db.Metadata().DatabaseType
	_ = db.Close()

	if err := os.Rename(tmpPath, path); err != nil {
		return err
	}

	log.Info().Str("path", path).Int64("bytes", size).Str("type", dbType).Msg("GeoIP database updated")
	return nil
}
