package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"mipwatch/internal/snapshot/models"
	"mipwatch/pkg/platform/tx"
)

// Schema creates the snapshot tables. Safe to run repeatedly.
const Schema = `
CREATE TABLE IF NOT EXISTS observations (
	id           BIGSERIAL PRIMARY KEY,
	publish_date DATE NOT NULL,
	module_name  TEXT NOT NULL,
	vendor_name  TEXT NOT NULL,
	standard     TEXT NOT NULL,
	status       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS observations_publish_date_idx ON observations (publish_date);
CREATE TABLE IF NOT EXISTS not_displayed (
	publish_date DATE PRIMARY KEY,
	count        INTEGER NOT NULL
);
`

// PostgresStore persists snapshots in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed snapshot store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the tables if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("migrate snapshot schema: %w", err)
	}
	return nil
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) conn(ctx context.Context) execer {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.db
}

func (s *PostgresStore) Dates(ctx context.Context) ([]time.Time, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT publish_date FROM observations
		UNION
		SELECT publish_date FROM not_displayed
		ORDER BY publish_date
	`)
	if err != nil {
		return nil, fmt.Errorf("list publish dates: %w", err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan publish date: %w", err)
		}
		dates = append(dates, models.Day(d))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate publish dates: %w", err)
	}
	return dates, nil
}

func (s *PostgresStore) Observations(ctx context.Context) ([]models.Observation, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT publish_date, module_name, vendor_name, standard, status
		FROM observations
		ORDER BY publish_date, id
	`)
	if err != nil {
		return nil, fmt.Errorf("list observations: %w", err)
	}
	defer rows.Close()

	var out []models.Observation
	for rows.Next() {
		o, err := scanObservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate observations: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) NotDisplayed(ctx context.Context) (map[time.Time]int, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `SELECT publish_date, count FROM not_displayed WHERE count > 0`)
	if err != nil {
		return nil, fmt.Errorf("list not displayed counts: %w", err)
	}
	defer rows.Close()

	out := make(map[time.Time]int)
	for rows.Next() {
		var d time.Time
		var n int
		if err := rows.Scan(&d, &n); err != nil {
			return nil, fmt.Errorf("scan not displayed count: %w", err)
		}
		out[models.Day(d)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate not displayed counts: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Snapshot(ctx context.Context, date time.Time) (models.Snapshot, error) {
	day := models.Day(date)
	conn := s.conn(ctx)

	snap := models.Snapshot{PublishDate: day}
	var hasCount bool
	err := conn.QueryRowContext(ctx, `SELECT count FROM not_displayed WHERE publish_date = $1::date`, pgDate(day)).Scan(&snap.NotDisplayed)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return models.Snapshot{}, fmt.Errorf("find not displayed count: %w", err)
	default:
		hasCount = true
	}

	rows, err := conn.QueryContext(ctx, `
		SELECT publish_date, module_name, vendor_name, standard, status
		FROM observations
		WHERE publish_date = $1::date
		ORDER BY id
	`, pgDate(day))
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("find snapshot rows: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		o, err := scanObservation(rows)
		if err != nil {
			return models.Snapshot{}, fmt.Errorf("scan snapshot row: %w", err)
		}
		snap.Entries = append(snap.Entries, models.Entry{Key: o.Key, RawStatus: o.RawStatus})
	}
	if err := rows.Err(); err != nil {
		return models.Snapshot{}, fmt.Errorf("iterate snapshot rows: %w", err)
	}
	if len(snap.Entries) == 0 && !hasCount {
		return models.Snapshot{}, fmt.Errorf("snapshot %s: %w", models.FormatPublishDate(day), ErrNotFound)
	}
	return snap, nil
}

// ReplaceSnapshot deletes the rows stored for the snapshot's date and inserts the new
// ones in a single transaction. When the context already carries a transaction the
// work joins it instead.
func (s *PostgresStore) ReplaceSnapshot(ctx context.Context, snap models.Snapshot) error {
	if snap.PublishDate.IsZero() {
		return fmt.Errorf("replace snapshot: %w", models.ErrMalformedDate)
	}
	return tx.Run(ctx, s.db, func(ctx context.Context) error {
		return replaceSnapshot(ctx, s.conn(ctx), snap)
	})
}

func replaceSnapshot(ctx context.Context, conn execer, snap models.Snapshot) error {
	day := models.Day(snap.PublishDate)
	if _, err := conn.ExecContext(ctx, `DELETE FROM observations WHERE publish_date = $1::date`, pgDate(day)); err != nil {
		return fmt.Errorf("delete snapshot rows: %w", err)
	}

	if len(snap.Entries) > 0 {
		names := make([]string, len(snap.Entries))
		vendors := make([]string, len(snap.Entries))
		standards := make([]string, len(snap.Entries))
		statuses := make([]string, len(snap.Entries))
		for i, e := range snap.Entries {
			names[i] = e.Key.Name
			vendors[i] = e.Key.Vendor
			standards[i] = e.Key.Standard
			statuses[i] = e.RawStatus
		}
		// WITH ORDINALITY keeps id order equal to entry order.
		_, err := conn.ExecContext(ctx, `
			INSERT INTO observations (publish_date, module_name, vendor_name, standard, status)
			SELECT $1::date, r.module_name, r.vendor_name, r.standard, r.status
			FROM unnest($2::text[], $3::text[], $4::text[], $5::text[])
				WITH ORDINALITY AS r(module_name, vendor_name, standard, status, ord)
			ORDER BY r.ord
		`, pgDate(day), pq.Array(names), pq.Array(vendors), pq.Array(standards), pq.Array(statuses))
		if err != nil {
			return fmt.Errorf("insert snapshot rows: %w", err)
		}
	}

	_, err := conn.ExecContext(ctx, `
		INSERT INTO not_displayed (publish_date, count)
		VALUES ($1::date, $2)
		ON CONFLICT (publish_date) DO UPDATE SET
			count = EXCLUDED.count
	`, pgDate(day), snap.NotDisplayed)
	if err != nil {
		return fmt.Errorf("upsert not displayed count: %w", err)
	}
	return nil
}

// pgDate renders a calendar date for a DATE parameter, independent of session time zone.
func pgDate(t time.Time) string {
	return t.Format(models.ISODateLayout)
}

type observationRow interface {
	Scan(dest ...any) error
}

func scanObservation(row observationRow) (models.Observation, error) {
	var o models.Observation
	if err := row.Scan(&o.PublishDate, &o.Key.Name, &o.Key.Vendor, &o.Key.Standard, &o.RawStatus); err != nil {
		return models.Observation{}, err
	}
	o.PublishDate = models.Day(o.PublishDate)
	return o, nil
}
