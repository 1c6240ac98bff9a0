// Package storage handles database connections, schema migrations, and data
// operations using SQLite.
package storage

import (
	"database/sql"
	"time"

	"github.com/woozymasta/bmotd/internal/models"
	_ "modernc.org/sqlite" // Driver sqlite
)

// Repository manages the SQLite database connection.
type Repository struct {
	db *sql.DB
}

// New initializes a new SQLite connection, sets connection pool parameters,
// and runs migrations.
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

// UpsertServer inserts a new server or updates an existing one keyed on
// (host, port). Status fields are only overwritten when the new record
// carries a status (name is non-empty), so a failed re-query does not wipe
// the last known good data.
func (r *Repository) UpsertServer(s models.Server) error {
	query := `
	INSERT INTO servers (
		host, port, ip, country_code,
		edition, name, sub_name, game_mode, protocol, version, players, max_players, server_id,
		count, first_seen, last_seen
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
	ON CONFLICT(host, port) DO UPDATE SET
		count = count + 1,
		last_seen = excluded.last_seen,
		ip = CASE WHEN excluded.ip != '' THEN excluded.ip ELSE servers.ip END,

		-- Update country if updated and not blank
		country_code = CASE WHEN excluded.country_code != '' THEN excluded.country_code ELSE servers.country_code END,

		-- Update status fields only if the query succeeded
		edition     = CASE WHEN excluded.name != '' THEN excluded.edition ELSE servers.edition END,
		name        = CASE WHEN excluded.name != '' THEN excluded.name ELSE servers.name END,
		sub_name    = CASE WHEN excluded.name != '' THEN excluded.sub_name ELSE servers.sub_name END,
		game_mode   = CASE WHEN excluded.name != '' THEN excluded.game_mode ELSE servers.game_mode END,
		protocol    = CASE WHEN excluded.name != '' THEN excluded.protocol ELSE servers.protocol END,
		version     = CASE WHEN excluded.name != '' THEN excluded.version ELSE servers.version END,
		players     = CASE WHEN excluded.name != '' THEN excluded.players ELSE servers.players END,
		max_players = CASE WHEN excluded.name != '' THEN excluded.max_players ELSE servers.max_players END,
		server_id   = CASE WHEN excluded.name != '' THEN excluded.server_id ELSE servers.server_id END;
	`

	_, err := r.db.Exec(query,
		s.Host, s.Port, s.IP, s.CountryCode,
		s.Edition, s.Name, s.SubName, s.GameMode, s.Protocol, s.Version, s.Players, s.MaxPlayers, s.ServerID,
		s.FirstSeen, s.LastSeen,
	)

	return err
}

const serverColumns = `
	host, port, ip, country_code,
	edition, name, sub_name, game_mode, protocol, version, players, max_players, server_id,
	count, first_seen, last_seen`

func scanServer(row interface{ Scan(...any) error }) (models.Server, error) {
	var s models.Server
	err := row.Scan(
		&s.Host, &s.Port, &s.IP, &s.CountryCode,
		&s.Edition, &s.Name, &s.SubName, &s.GameMode, &s.Protocol, &s.Version, &s.Players, &s.MaxPlayers, &s.ServerID,
		&s.Count, &s.FirstSeen, &s.LastSeen,
	)

	return s, err
}

// GetServers retrieves all tracked servers, sorted by the last seen
// timestamp in descending order.
func (r *Repository) GetServers() ([]models.Server, error) {
	rows, err := r.db.Query(`SELECT` + serverColumns + ` FROM servers ORDER BY last_seen DESC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var servers []models.Server
	for rows.Next() {
		s, err := scanServer(rows)
		if err != nil {
			continue
		}
		servers = append(servers, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return servers, nil
}

// GetServer retrieves a specific server by its unique identifier (host, port).
// Returns nil without error when the server is not tracked.
func (r *Repository) GetServer(host string, port int) (*models.Server, error) {
	row := r.db.QueryRow(`SELECT`+serverColumns+` FROM servers WHERE host = ? AND port = ?`, host, port)

	s, err := scanServer(row)
	if err == sql.ErrNoRows {
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

// DeleteEmptyServers removes records that never produced a status
// (name is empty). Returns the number of deleted rows.
func (r *Repository) DeleteEmptyServers() (int64, error) {
	res, err := r.db.Exec(`DELETE FROM servers WHERE name IS NULL OR name = ''`)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

// DeleteStale removes servers not seen since the cutoff time. Returns the
// number of deleted rows.
func (r *Repository) DeleteStale(cutoff time.Time) (int64, error) {
	res, err := r.db.Exec(`DELETE FROM servers WHERE last_seen < ?`, cutoff)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

// GetServersSubset retrieves servers for maintenance. With onlyEmpty set it
// returns only servers that never produced a status.
func (r *Repository) GetServersSubset(onlyEmpty bool) ([]models.Server, error) {
	query := `SELECT` + serverColumns + ` FROM servers`
	if onlyEmpty {
		query += ` WHERE name IS NULL OR name = ''`
	}

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var servers []models.Server
	for rows.Next() {
		s, err := scanServer(rows)
		if err != nil {
			continue
		}
		servers = append(servers, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return servers, nil
}
