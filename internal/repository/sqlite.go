package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/mr1hm/go-evac-priority/internal/models"
)

type SQLiteDB struct {
	db *sql.DB
}

func NewSQLiteDB(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	// :memory: databases are per connection
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error while pinging database: %w", err)
	}

	s := &SQLiteDB{
		db: db,
	}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("error while migrating to database: %w", err)
	}

	return s, nil
}

func (s *SQLiteDB) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS disasters (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			type TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT,
			magnitude REAL,
			alert_level TEXT,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			timestamp DATETIME NOT NULL,
			country TEXT,
			report_url TEXT,
			created_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS families (
			id TEXT PRIMARY KEY,
			name TEXT,
			address TEXT,
			phone TEXT,
			longitude REAL,
			latitude REAL,
			vulnerable INTEGER NOT NULL DEFAULT 0,
			members TEXT,
			medical TEXT,
			housing TEXT,
			proximity_risks TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS priority_snapshots (
			id TEXT PRIMARY KEY,
			disaster_id TEXT NOT NULL,
			strategy TEXT NOT NULL,
			payload TEXT NOT NULL,
			invariant_violation INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_disasters_timestamp ON disasters(timestamp);
		CREATE INDEX IF NOT EXISTS idx_disasters_type ON disasters(type);
		CREATE INDEX IF NOT EXISTS idx_families_location ON families(longitude, latitude);
		CREATE INDEX IF NOT EXISTS idx_snapshots_disaster ON priority_snapshots(disaster_id, strategy, created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteDB) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

func isSQLiteUnique(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Disasters

const sqliteDisasterColumns = `id, source, type, title, description, magnitude, alert_level,
	latitude, longitude, timestamp, country, report_url, created_at`

func (s *SQLiteDB) Add(ctx context.Context, d *models.Disaster) error {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO disasters (`+sqliteDisasterColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Source, string(d.Type), d.Title, d.Description, d.Magnitude, string(d.AlertLevel),
		d.Latitude, d.Longitude, d.Timestamp.UTC(), d.Country, d.ReportURL, d.CreatedAt.UTC(),
	)
	if isSQLiteUnique(err) {
		return eris.Wrapf(ErrAlreadyExists, "disaster %s", d.ID)
	}
	if err != nil {
		return eris.Wrapf(err, "error adding disaster %s", d.ID)
	}
	return nil
}

func (s *SQLiteDB) GetByID(ctx context.Context, id string) (*models.Disaster, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteDisasterColumns+` FROM disasters WHERE id = ?`, id)
	d, err := scanDisaster(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "disaster %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "error getting disaster %s", id)
	}
	return d, nil
}

func (s *SQLiteDB) Exists(ctx context.Context, id string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM disasters WHERE id = ?`, id).Scan(&n)
	if err != nil {
		return false, eris.Wrapf(err, "error checking disaster %s", id)
	}
	return n > 0, nil
}

func (s *SQLiteDB) ListDisasters(ctx context.Context, opts Filter) ([]models.Disaster, error) {
	var b whereBuilder
	b.disasterFilter(opts)
	query := `SELECT ` + sqliteDisasterColumns + ` FROM disasters` + b.String() +
		` ORDER BY timestamp DESC, id` + b.page(opts.Limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, query, b.args...)
	if err != nil {
		return nil, eris.Wrap(err, "error listing disasters")
	}
	defer rows.Close()

	var out []models.Disaster
	for rows.Next() {
		d, err := scanDisaster(rows)
		if err != nil {
			return nil, eris.Wrap(err, "error scanning disaster")
		}
		out = append(out, *d)
	}
	return out, eris.Wrap(rows.Err(), "error iterating disasters")
}

// Families

const sqliteFamilyColumns = `id, name, address, phone, longitude, latitude, vulnerable,
	members, medical, housing, proximity_risks, created_at, updated_at`

func (s *SQLiteDB) AddFamily(ctx context.Context, f *models.FamilyRecord) error {
	cols, err := encodeFamily(f)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if f.CreatedAt.IsZero() {
		f.CreatedAt = now
	}
	f.UpdatedAt = now

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO families (`+sqliteFamilyColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.Name, f.Address, f.Phone, cols.lng, cols.lat, cols.vulnerable,
		string(cols.members), string(cols.medical), string(cols.housing), string(cols.proximityRisks),
		f.CreatedAt.UTC(), f.UpdatedAt,
	)
	if isSQLiteUnique(err) {
		return eris.Wrapf(ErrAlreadyExists, "family %s", f.ID)
	}
	if err != nil {
		return eris.Wrapf(err, "error adding family %s", f.ID)
	}
	return nil
}

func (s *SQLiteDB) UpdateFamily(ctx context.Context, f *models.FamilyRecord) error {
	cols, err := encodeFamily(f)
	if err != nil {
		return err
	}
	f.UpdatedAt = time.Now().UTC()

	res, err := s.db.ExecContext(ctx,
		`UPDATE families SET name = ?, address = ?, phone = ?, longitude = ?, latitude = ?, vulnerable = ?,
			members = ?, medical = ?, housing = ?, proximity_risks = ?, updated_at = ?
		WHERE id = ?`,
		f.Name, f.Address, f.Phone, cols.lng, cols.lat, cols.vulnerable,
		string(cols.members), string(cols.medical), string(cols.housing), string(cols.proximityRisks),
		f.UpdatedAt, f.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "error updating family %s", f.ID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return eris.Wrapf(ErrNotFound, "family %s", f.ID)
	}
	return nil
}

func (s *SQLiteDB) GetFamily(ctx context.Context, id string) (*models.FamilyRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteFamilyColumns+` FROM families WHERE id = ?`, id)
	f, err := scanFamily(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "family %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "error getting family %s", id)
	}
	return f, nil
}

func (s *SQLiteDB) ListFamilies(ctx context.Context, opts FamilyFilter) ([]models.FamilyRecord, error) {
	var b whereBuilder
	b.familyFilter(opts)
	query := `SELECT ` + sqliteFamilyColumns + ` FROM families` + b.String() +
		` ORDER BY created_at, rowid` + b.page(opts.Limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, query, b.args...)
	if err != nil {
		return nil, eris.Wrap(err, "error listing families")
	}
	defer rows.Close()

	var out []models.FamilyRecord
	for rows.Next() {
		f, err := scanFamily(rows)
		if err != nil {
			return nil, eris.Wrap(err, "error scanning family")
		}
		out = append(out, *f)
	}
	return out, eris.Wrap(rows.Err(), "error iterating families")
}

func (s *SQLiteDB) DeleteFamily(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM families WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "error deleting family %s", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return eris.Wrapf(ErrNotFound, "family %s", id)
	}
	return nil
}

// Snapshots

func (s *SQLiteDB) SaveSnapshot(ctx context.Context, snap *models.PrioritySnapshot) error {
	payload, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now().UTC()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO priority_snapshots (id, disaster_id, strategy, payload, invariant_violation, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		snap.ID, snap.DisasterID, snap.Strategy, string(payload), snap.InvariantViolation, snap.CreatedAt.UTC(),
	)
	if isSQLiteUnique(err) {
		return eris.Wrapf(ErrAlreadyExists, "snapshot %s", snap.ID)
	}
	if err != nil {
		return eris.Wrapf(err, "error saving snapshot %s", snap.ID)
	}
	return nil
}

func (s *SQLiteDB) LatestSnapshot(ctx context.Context, disasterID, strategy string) (*models.PrioritySnapshot, error) {
	var snap models.PrioritySnapshot
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, disaster_id, strategy, payload, invariant_violation, created_at
		FROM priority_snapshots WHERE disaster_id = ? AND strategy = ?
		ORDER BY created_at DESC, rowid DESC LIMIT 1`,
		disasterID, strategy,
	).Scan(&snap.ID, &snap.DisasterID, &snap.Strategy, &payload, &snap.InvariantViolation, &snap.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "snapshot for disaster %s (%s)", disasterID, strategy)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "error loading snapshot for disaster %s", disasterID)
	}
	if err := decodeSnapshot(&snap, []byte(payload)); err != nil {
		return nil, err
	}
	return &snap, nil
}
