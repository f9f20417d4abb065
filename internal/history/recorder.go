// Package history records query outcomes to the storage, tagged with the server's country.
package history

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/mcstatus/internal/geoip"
	"github.com/woozymasta/mcstatus/internal/models"
	"github.com/woozymasta/mcstatus/internal/storage"
)

// Recorder persists query results. The GeoIP provider is optional.
type Recorder struct {
	store *storage.Repository
	geo   *geoip.Provider
	now   func() time.Time
}

// NewRecorder creates a recorder writing to store. geo may be nil.
func NewRecorder(store *storage.Repository, geo *geoip.Provider) *Recorder {
	return &Recorder{store: store, geo: geo, now: time.Now}
}

// Save stores the outcome of one query. A nil status records the server as offline.
func (r *Recorder) Save(ctx context.Context, host string, port int, kind string, st *models.Status) error {
	rec := models.NewRecord(host, port, kind, st, r.now().UTC())
	rec.CountryCode = r.geo.LookupHost(ctx, host)

	if err := r.store.UpsertServer(rec); err != nil {
		return err
	}

	log.Debug().
		Str("host", host).
		Int("port", port).
		Str("country", rec.CountryCode).
		Bool("online", rec.Online).
		Msg("Query recorded")

	return nil
}

// Interrupted reports whether a failed query was cut short on the caller's side,
// e.g. the HTTP client went away or the process got a signal.
// Such a failure says nothing about the server and must not be saved as offline.
func Interrupted(ctx context.Context, err error) bool {
	return err != nil && (errors.Is(err, context.Canceled) || ctx.Err() != nil)
}
