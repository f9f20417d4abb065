// Package storage handles the query history database, schema migrations, and data operations using SQLite.
package storage

import (
	"database/sql"
	"errors"
	"time"

	"github.com/woozymasta/mcstatus/internal/models"
	_ "modernc.org/sqlite" // Driver sqlite
)

const serverColumns = `
	host, port, kind, country_code, version_name, protocol, description, favicon_hash,
	players_online, players_max, latency_ms, online, count, first_seen, last_seen, last_online`

// Repository manages the SQLite database connection.
type Repository struct {
	db *sql.DB
}

// New initializes a new SQLite connection, sets connection pool parameters, and runs migrations.
func New(dbPath string) (*Repository, error) {
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(1 * time.Hour)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Repository{db: db}, nil
}

// Close closes the underlying database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// UpsertServer inserts a new server or updates an existing one keyed by host and port.
// Status fields are only overwritten by online records, so an offline check keeps the last known status.
func (r *Repository) UpsertServer(s models.Record) error {
	query := `
	INSERT INTO servers (` + serverColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?, ?)
	ON CONFLICT(host, port) DO UPDATE SET
		count = count + 1,
		kind = excluded.kind,
		last_seen = excluded.last_seen,
		online = excluded.online,

		-- Keep known country when lookup is disabled or failed
		country_code = CASE WHEN excluded.country_code != '' THEN excluded.country_code ELSE servers.country_code END,

		-- Status fields only from successful queries
		version_name   = CASE WHEN excluded.online = 1 THEN excluded.version_name ELSE servers.version_name END,
		protocol       = CASE WHEN excluded.online = 1 THEN excluded.protocol ELSE servers.protocol END,
		description    = CASE WHEN excluded.online = 1 THEN excluded.description ELSE servers.description END,
		favicon_hash   = CASE WHEN excluded.online = 1 THEN excluded.favicon_hash ELSE servers.favicon_hash END,
		players_online = CASE WHEN excluded.online = 1 THEN excluded.players_online ELSE servers.players_online END,
		players_max    = CASE WHEN excluded.online = 1 THEN excluded.players_max ELSE servers.players_max END,
		latency_ms     = CASE WHEN excluded.online = 1 THEN excluded.latency_ms ELSE servers.latency_ms END,
		last_online    = CASE WHEN excluded.online = 1 THEN excluded.last_online ELSE servers.last_online END;
	`

	var lastOnline sql.NullTime
	if s.Online {
		lastOnline = sql.NullTime{Time: s.LastOnline.UTC(), Valid: true}
	}

	// LastSeen doubles as FirstSeen for new rows
	_, err := r.db.Exec(query,
		s.Host, s.Port, s.Kind, s.CountryCode, s.VersionName, s.Protocol, s.Description, s.FaviconHash,
		s.PlayersOnline, s.PlayersMax, s.LatencyMS, s.Online,
		s.LastSeen.UTC(), s.LastSeen.UTC(), lastOnline,
	)

	return err
}

// GetServers retrieves all servers, most recently seen first.
func (r *Repository) GetServers() ([]models.Record, error) {
	rows, err := r.db.Query(`SELECT ` + serverColumns + ` FROM servers ORDER BY last_seen DESC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var servers []models.Record
	for rows.Next() {
		s, err := scanServer(rows)
		if err != nil {
			return nil, err
		}
		servers = append(servers, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return servers, nil
}

// GetServer retrieves one server by host and port. It returns nil without error when not found.
func (r *Repository) GetServer(host string, port int) (*models.Record, error) {
	row := r.db.QueryRow(`SELECT `+serverColumns+` FROM servers WHERE host = ? AND port = ?`, host, port)

	s, err := scanServer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, err
	}

	return &s, nil
}

// DeleteServer removes a specific server identified by host and port.
func (r *Repository) DeleteServer(host string, port int) error {
	_, err := r.db.Exec(`DELETE FROM servers WHERE host = ? AND port = ?`, host, port)
	return err
}

// DeleteOffline removes offline servers whose last successful query is older than cutoff,
// including servers that never answered.
func (r *Repository) DeleteOffline(cutoff time.Time) (int64, error) {
	res, err := r.db.Exec(
		`DELETE FROM servers WHERE online = 0 AND (last_online IS NULL OR last_online < ?)`,
		cutoff.UTC(),
	)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanServer(row scanner) (models.Record, error) {
	var (
		s          models.Record
		lastOnline sql.NullTime
	)

	err := row.Scan(
		&s.Host, &s.Port, &s.Kind, &s.CountryCode, &s.VersionName, &s.Protocol, &s.Description, &s.FaviconHash,
		&s.PlayersOnline, &s.PlayersMax, &s.LatencyMS, &s.Online, &s.Count, &s.FirstSeen, &s.LastSeen, &lastOnline,
	)
	if err != nil {
		return s, err
	}
	if lastOnline.Valid {
		s.LastOnline = lastOnline.Time
	}

	return s, nil
}
