package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/mr1hm/go-evac-priority/internal/models"
)

// Database is the subset of *pgxpool.Pool the Postgres store uses.
type Database interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

type PostgresDB struct {
	db  Database
	log *slog.Logger
}

// NewPostgresDB wraps an existing connection. Call Migrate before first use
// against a fresh database.
func NewPostgresDB(db Database, log *slog.Logger) *PostgresDB {
	return &PostgresDB{db: db, log: log}
}

// ConnectPostgres opens a pool for url and applies the schema.
func ConnectPostgres(ctx context.Context, url string, log *slog.Logger) (*PostgresDB, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, eris.Wrap(err, "error creating postgres pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "error while pinging database")
	}

	p := NewPostgresDB(pool, log)
	if err := p.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS disasters (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		type TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT,
		magnitude DOUBLE PRECISION,
		alert_level TEXT,
		latitude DOUBLE PRECISION NOT NULL,
		longitude DOUBLE PRECISION NOT NULL,
		timestamp TIMESTAMPTZ NOT NULL,
		country TEXT,
		report_url TEXT,
		created_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS families (
		id TEXT PRIMARY KEY,
		name TEXT,
		address TEXT,
		phone TEXT,
		longitude DOUBLE PRECISION,
		latitude DOUBLE PRECISION,
		vulnerable BOOLEAN NOT NULL DEFAULT false,
		members JSONB,
		medical JSONB,
		housing JSONB,
		proximity_risks JSONB,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS priority_snapshots (
		id TEXT PRIMARY KEY,
		disaster_id TEXT NOT NULL,
		strategy TEXT NOT NULL,
		payload JSONB NOT NULL,
		invariant_violation BOOLEAN NOT NULL DEFAULT false,
		created_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_disasters_timestamp ON disasters(timestamp);
	CREATE INDEX IF NOT EXISTS idx_families_location ON families(longitude, latitude);
	CREATE INDEX IF NOT EXISTS idx_snapshots_disaster ON priority_snapshots(disaster_id, strategy, created_at);
`

func (p *PostgresDB) Migrate(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, postgresSchema); err != nil {
		return eris.Wrap(err, "error while migrating to database")
	}
	return nil
}

func (p *PostgresDB) Ping(ctx context.Context) error {
	return p.db.Ping(ctx)
}

func (p *PostgresDB) Close() error {
	p.db.Close()
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Disasters

const pgDisasterColumns = `id, source, type, title, description, magnitude, alert_level,
	latitude, longitude, timestamp, country, report_url, created_at`

const pgInsertDisaster = `INSERT INTO disasters (` + pgDisasterColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

func (p *PostgresDB) Add(ctx context.Context, d *models.Disaster) error {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	_, err := p.db.Exec(ctx, pgInsertDisaster,
		d.ID, d.Source, string(d.Type), d.Title, d.Description, d.Magnitude, string(d.AlertLevel),
		d.Latitude, d.Longitude, d.Timestamp, d.Country, d.ReportURL, d.CreatedAt,
	)
	if isUniqueViolation(err) {
		return eris.Wrapf(ErrAlreadyExists, "disaster %s", d.ID)
	}
	if err != nil {
		return eris.Wrapf(err, "error adding disaster %s", d.ID)
	}
	return nil
}

func (p *PostgresDB) GetByID(ctx context.Context, id string) (*models.Disaster, error) {
	row := p.db.QueryRow(ctx, `SELECT `+pgDisasterColumns+` FROM disasters WHERE id = $1`, id)
	d, err := scanDisaster(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "disaster %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "error getting disaster %s", id)
	}
	return d, nil
}

func (p *PostgresDB) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := p.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM disasters WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, eris.Wrapf(err, "error checking disaster %s", id)
	}
	return exists, nil
}

func (p *PostgresDB) ListDisasters(ctx context.Context, opts Filter) ([]models.Disaster, error) {
	b := whereBuilder{numbered: true}
	b.disasterFilter(opts)
	query := `SELECT ` + pgDisasterColumns + ` FROM disasters` + b.String() +
		` ORDER BY timestamp DESC, id` + b.page(opts.Limit, opts.Offset)

	rows, err := p.db.Query(ctx, query, b.args...)
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
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "error iterating disasters")
	}
	return out, nil
}

// Families

const pgFamilyColumns = `id, name, address, phone, longitude, latitude, vulnerable,
	members, medical, housing, proximity_risks, created_at, updated_at`

const pgInsertFamily = `INSERT INTO families (` + pgFamilyColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

const pgUpdateFamily = `UPDATE families SET name = $1, address = $2, phone = $3, longitude = $4, latitude = $5,
	vulnerable = $6, members = $7, medical = $8, housing = $9, proximity_risks = $10, updated_at = $11
	WHERE id = $12`

func (p *PostgresDB) AddFamily(ctx context.Context, f *models.FamilyRecord) error {
	cols, err := encodeFamily(f)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if f.CreatedAt.IsZero() {
		f.CreatedAt = now
	}
	f.UpdatedAt = now

	_, err = p.db.Exec(ctx, pgInsertFamily,
		f.ID, f.Name, f.Address, f.Phone, cols.lng, cols.lat, cols.vulnerable,
		cols.members, cols.medical, cols.housing, cols.proximityRisks, f.CreatedAt, f.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return eris.Wrapf(ErrAlreadyExists, "family %s", f.ID)
	}
	if err != nil {
		return eris.Wrapf(err, "error adding family %s", f.ID)
	}
	p.log.DebugContext(ctx, "family stored", "id", f.ID, "vulnerable", cols.vulnerable)
	return nil
}

func (p *PostgresDB) UpdateFamily(ctx context.Context, f *models.FamilyRecord) error {
	cols, err := encodeFamily(f)
	if err != nil {
		return err
	}
	f.UpdatedAt = time.Now().UTC()

	tag, err := p.db.Exec(ctx, pgUpdateFamily,
		f.Name, f.Address, f.Phone, cols.lng, cols.lat, cols.vulnerable,
		cols.members, cols.medical, cols.housing, cols.proximityRisks, f.UpdatedAt, f.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "error updating family %s", f.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "family %s", f.ID)
	}
	return nil
}

func (p *PostgresDB) GetFamily(ctx context.Context, id string) (*models.FamilyRecord, error) {
	row := p.db.QueryRow(ctx, `SELECT `+pgFamilyColumns+` FROM families WHERE id = $1`, id)
	f, err := scanFamily(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "family %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "error getting family %s", id)
	}
	return f, nil
}

func (p *PostgresDB) ListFamilies(ctx context.Context, opts FamilyFilter) ([]models.FamilyRecord, error) {
	b := whereBuilder{numbered: true}
	b.familyFilter(opts)
	query := `SELECT ` + pgFamilyColumns + ` FROM families` + b.String() +
		` ORDER BY created_at, id` + b.page(opts.Limit, opts.Offset)

	rows, err := p.db.Query(ctx, query, b.args...)
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
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "error iterating families")
	}
	return out, nil
}

func (p *PostgresDB) DeleteFamily(ctx context.Context, id string) error {
	tag, err := p.db.Exec(ctx, `DELETE FROM families WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "error deleting family %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "family %s", id)
	}
	return nil
}

// Snapshots

const pgInsertSnapshot = `INSERT INTO priority_snapshots (id, disaster_id, strategy, payload, invariant_violation, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)`

const pgLatestSnapshot = `SELECT id, disaster_id, strategy, payload, invariant_violation, created_at
	FROM priority_snapshots WHERE disaster_id = $1 AND strategy = $2
	ORDER BY created_at DESC LIMIT 1`

func (p *PostgresDB) SaveSnapshot(ctx context.Context, snap *models.PrioritySnapshot) error {
	payload, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now().UTC()
	}
	_, err = p.db.Exec(ctx, pgInsertSnapshot,
		snap.ID, snap.DisasterID, snap.Strategy, payload, snap.InvariantViolation, snap.CreatedAt,
	)
	if isUniqueViolation(err) {
		return eris.Wrapf(ErrAlreadyExists, "snapshot %s", snap.ID)
	}
	if err != nil {
		return eris.Wrapf(err, "error saving snapshot %s", snap.ID)
	}
	return nil
}

func (p *PostgresDB) LatestSnapshot(ctx context.Context, disasterID, strategy string) (*models.PrioritySnapshot, error) {
	var snap models.PrioritySnapshot
	var payload []byte
	err := p.db.QueryRow(ctx, pgLatestSnapshot, disasterID, strategy).
		Scan(&snap.ID, &snap.DisasterID, &snap.Strategy, &payload, &snap.InvariantViolation, &snap.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "snapshot for disaster %s (%s)", disasterID, strategy)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "error loading snapshot for disaster %s", disasterID)
	}
	if err := decodeSnapshot(&snap, payload); err != nil {
		return nil, err
	}
	return &snap, nil
}
