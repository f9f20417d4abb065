package server

import (
	"context"
	"sync"
	"time"

	"github.com/woozymasta/mcstatus/internal/config"
	"github.com/woozymasta/mcstatus/internal/history"
	"github.com/woozymasta/mcstatus/internal/models"
	"github.com/woozymasta/mcstatus/internal/storage"
)

// QueryFunc performs one status query.
type QueryFunc func(ctx context.Context, host string, port int, ping bool, options config.Query) (*models.Status, error)

// Server holds the dependencies, configuration, and runtime state required
// to handle HTTP requests and background history recording.
type Server struct {
	// storage provides read access to the query history. Nil when history is disabled.
	storage *storage.Repository

	// recorder persists live query results in the background. Nil when recording is disabled.
	recorder *history.Recorder

	// query performs live status queries.
	query QueryFunc

	// allowedHosts is a set of hashed host names (using xxhash) the live endpoint may query.
	// Empty means any host is allowed.
	allowedHosts map[uint64]struct{}

	// queue passes query results from HTTP handlers to background recording workers.
	queue chan recordJob

	// authToken is the secret token required for history endpoints.
	// History endpoints are refused when it is empty.
	authToken string

	// queryOptions holds timeouts and protocol selection for live queries.
	queryOptions config.Query

	// wg waits for recording workers during shutdown.
	wg sync.WaitGroup

	// hardLimitCount is the maximum number of requests allowed per IP address
	// within the hardLimitWin duration.
	hardLimitCount int

	// hardLimitWin is the time window duration for the hard rate limiter.
	hardLimitWin time.Duration

	// trustProxy indicates whether the server should trust headers like X-Forwarded-For
	// or CF-Connecting-IP when determining the client's real IP address.
	trustProxy bool
}

// recordJob is one query outcome waiting to be written to history.
type recordJob struct {
	Status *models.Status
	Host   string
	Kind   string
	Port   int
}
