package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/upkeephq/predict-cli/internal/climate"
	"github.com/upkeephq/predict-cli/internal/lifespan"
	"github.com/upkeephq/predict-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS properties (
	address_id  TEXT PRIMARY KEY,
	line1       TEXT NOT NULL DEFAULT '',
	city        TEXT NOT NULL DEFAULT '',
	state       TEXT NOT NULL DEFAULT '',
	zip         TEXT NOT NULL DEFAULT '',
	region_code TEXT NOT NULL DEFAULT '',
	year_built  INTEGER,
	latitude    REAL,
	longitude   REAL,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS snapshots (
	id           TEXT PRIMARY KEY,
	address_id   TEXT NOT NULL REFERENCES properties(address_id),
	provider     TEXT NOT NULL,
	payload      TEXT NOT NULL,
	retrieved_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS lifespans (
	system        TEXT NOT NULL,
	subtype       TEXT NOT NULL,
	zone          TEXT NOT NULL,
	min_years     REAL NOT NULL,
	typical_years REAL NOT NULL,
	max_years     REAL NOT NULL,
	quality_tier  TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (system, subtype, zone)
);

CREATE TABLE IF NOT EXISTS climate_factors (
	zone        TEXT NOT NULL,
	factor_type TEXT NOT NULL,
	multiplier  REAL NOT NULL,
	PRIMARY KEY (zone, factor_type)
);

CREATE TABLE IF NOT EXISTS runs (
	id               TEXT PRIMARY KEY,
	address_id       TEXT NOT NULL,
	status           TEXT NOT NULL DEFAULT 'loading',
	model_version    TEXT NOT NULL,
	fields_predicted INTEGER NOT NULL DEFAULT 0,
	error            TEXT NOT NULL DEFAULT '',
	created_at       DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at       DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS predictions (
	id              TEXT PRIMARY KEY,
	address_id      TEXT NOT NULL,
	run_id          TEXT NOT NULL REFERENCES runs(id),
	field           TEXT NOT NULL,
	predicted_value TEXT NOT NULL,
	confidence      REAL NOT NULL,
	provenance      TEXT NOT NULL,
	model_version   TEXT NOT NULL,
	created_at      DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_snapshots_address ON snapshots(address_id, provider, retrieved_at DESC);
CREATE INDEX IF NOT EXISTS idx_runs_address ON runs(address_id);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_predictions_address ON predictions(address_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_predictions_run ON predictions(run_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateProperty(ctx context.Context, p model.Property) (*model.Property, error) {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO properties (address_id, line1, city, state, zip, region_code, year_built, latitude, longitude, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.AddressID, p.Line1, p.City, p.State, p.Zip, p.RegionCode, p.YearBuilt, p.Latitude, p.Longitude, p.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert property %s", p.AddressID)
	}
	return &p, nil
}

func (s *SQLiteStore) GetProperty(ctx context.Context, addressID string) (*model.Property, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT address_id, line1, city, state, zip, region_code, year_built, latitude, longitude, created_at
		 FROM properties WHERE address_id = ?`,
		addressID,
	)

	var p model.Property
	err := row.Scan(&p.AddressID, &p.Line1, &p.City, &p.State, &p.Zip, &p.RegionCode,
		&p.YearBuilt, &p.Latitude, &p.Longitude, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("property not found: %s", addressID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan property")
	}
	return &p, nil
}

func (s *SQLiteStore) UpdatePropertyCoordinates(ctx context.Context, addressID string, lat, lng float64) error {
	// Back-fill only: existing coordinates are never overwritten.
	res, err := s.db.ExecContext(ctx,
		`UPDATE properties SET latitude = ?, longitude = ?
		 WHERE address_id = ? AND latitude IS NULL AND longitude IS NULL`,
		lat, lng, addressID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update coordinates %s", addressID)
	}
	// Zero rows means the property already had coordinates; not an error.
	_, err = res.RowsAffected()
	return eris.Wrap(err, "sqlite: rows affected")
}

func (s *SQLiteStore) AppendSnapshot(ctx context.Context, snap model.Snapshot) (*model.Snapshot, error) {
	if snap.ID == "" {
		snap.ID = uuid.New().String()
	}
	if snap.RetrievedAt.IsZero() {
		snap.RetrievedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO snapshots (id, address_id, provider, payload, retrieved_at) VALUES (?, ?, ?, ?, ?)`,
		snap.ID, snap.AddressID, snap.Provider, string(snap.Payload), snap.RetrievedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert snapshot for %s", snap.AddressID)
	}
	return &snap, nil
}

func (s *SQLiteStore) ListSnapshots(ctx context.Context, addressID string) ([]model.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, address_id, provider, payload, retrieved_at FROM snapshots
		 WHERE address_id = ? ORDER BY retrieved_at ASC`,
		addressID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list snapshots")
	}
	defer rows.Close()

	var snaps []model.Snapshot
	for rows.Next() {
		var snap model.Snapshot
		var payload string
		if err := rows.Scan(&snap.ID, &snap.AddressID, &snap.Provider, &payload, &snap.RetrievedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan snapshot")
		}
		snap.Payload = json.RawMessage(payload)
		snaps = append(snaps, snap)
	}
	return snaps, eris.Wrap(rows.Err(), "sqlite: list snapshots iterate")
}

func (s *SQLiteStore) UpsertLifespans(ctx context.Context, entries []lifespan.Entry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin upsert lifespans")
	}
	defer tx.Rollback()

	for _, e := range entries {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO lifespans (system, subtype, zone, min_years, typical_years, max_years, quality_tier)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (system, subtype, zone) DO UPDATE SET
			   min_years = excluded.min_years,
			   typical_years = excluded.typical_years,
			   max_years = excluded.max_years,
			   quality_tier = excluded.quality_tier`,
			string(e.System), e.Subtype, e.Zone, e.Range.Min, e.Range.Typical, e.Range.Max, e.QualityTier,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert lifespan %s/%s/%s", e.System, e.Subtype, e.Zone)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit upsert lifespans")
	}
	return len(entries), nil
}

func (s *SQLiteStore) ListLifespans(ctx context.Context) ([]lifespan.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT system, subtype, zone, min_years, typical_years, max_years, quality_tier
		 FROM lifespans ORDER BY system, subtype, zone`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list lifespans")
	}
	defer rows.Close()

	var entries []lifespan.Entry
	for rows.Next() {
		var e lifespan.Entry
		var system string
		if err := rows.Scan(&system, &e.Subtype, &e.Zone, &e.Range.Min, &e.Range.Typical, &e.Range.Max, &e.QualityTier); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan lifespan")
		}
		e.System = model.SystemType(system)
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: list lifespans iterate")
}

func (s *SQLiteStore) UpsertClimateFactors(ctx context.Context, entries []climate.FactorEntry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin upsert factors")
	}
	defer tx.Rollback()

	for _, e := range entries {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO climate_factors (zone, factor_type, multiplier) VALUES (?, ?, ?)
			 ON CONFLICT (zone, factor_type) DO UPDATE SET multiplier = excluded.multiplier`,
			e.Zone, e.FactorType, e.Multiplier,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert factor %s/%s", e.Zone, e.FactorType)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit upsert factors")
	}
	return len(entries), nil
}

func (s *SQLiteStore) ListClimateFactors(ctx context.Context) ([]climate.FactorEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT zone, factor_type, multiplier FROM climate_factors ORDER BY zone, factor_type`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list factors")
	}
	defer rows.Close()

	var entries []climate.FactorEntry
	for rows.Next() {
		var e climate.FactorEntry
		if err := rows.Scan(&e.Zone, &e.FactorType, &e.Multiplier); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan factor")
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: list factors iterate")
}

func (s *SQLiteStore) CreateRun(ctx context.Context, addressID string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, address_id, status, model_version, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, addressID, string(model.RunStatusLoading), model.ModelVersion, now, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert run for %s", addressID)
	}

	return &model.Run{
		ID:           id,
		AddressID:    addressID,
		Status:       model.RunStatusLoading,
		ModelVersion: model.ModelVersion,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run status %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, fieldsPredicted int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, fields_predicted = ?, updated_at = ? WHERE id = ?`,
		string(model.RunStatusComplete), fieldsPredicted, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID string, cause string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(model.RunStatusFailed), cause, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, address_id, status, model_version, fields_predicted, error, created_at, updated_at
		 FROM runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, address_id, status, model_version, fields_predicted, error, created_at, updated_at
	          FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.AddressID != "" {
		query += ` AND address_id = ?`
		args = append(args, filter.AddressID)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) InsertPredictions(ctx context.Context, preds []model.Prediction) error {
	if len(preds) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin insert predictions")
	}
	defer tx.Rollback()

	for _, p := range preds {
		provJSON, err := json.Marshal(p.Provenance)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal provenance")
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO predictions (id, address_id, run_id, field, predicted_value, confidence, provenance, model_version, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			uuid.New().String(), p.AddressID, p.RunID, string(p.Field), p.Value, p.Confidence,
			string(provJSON), p.ModelVersion, p.CreatedAt,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert prediction %s/%s", p.AddressID, p.Field)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit insert predictions")
}

func (s *SQLiteStore) LatestPredictions(ctx context.Context, addressID string) ([]model.Prediction, error) {
	preds, err := s.queryPredictions(ctx,
		`SELECT address_id, run_id, field, predicted_value, confidence, provenance, model_version, created_at
		 FROM predictions WHERE address_id = ? ORDER BY created_at DESC`,
		addressID,
	)
	if err != nil {
		return nil, err
	}
	return latestPerField(preds), nil
}

func (s *SQLiteStore) PredictionsByRun(ctx context.Context, runID string) ([]model.Prediction, error) {
	return s.queryPredictions(ctx,
		`SELECT address_id, run_id, field, predicted_value, confidence, provenance, model_version, created_at
		 FROM predictions WHERE run_id = ? ORDER BY field`,
		runID,
	)
}

func (s *SQLiteStore) queryPredictions(ctx context.Context, query string, args ...any) ([]model.Prediction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query predictions")
	}
	defer rows.Close()

	var preds []model.Prediction
	for rows.Next() {
		var p model.Prediction
		var field, provJSON string
		if err := rows.Scan(&p.AddressID, &p.RunID, &field, &p.Value, &p.Confidence, &provJSON, &p.ModelVersion, &p.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan prediction")
		}
		p.Field = model.FieldName(field)
		if err := json.Unmarshal([]byte(provJSON), &p.Provenance); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal provenance")
		}
		preds = append(preds, p)
	}
	return preds, eris.Wrap(rows.Err(), "sqlite: predictions iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var status string
	err := row.Scan(&r.ID, &r.AddressID, &status, &r.ModelVersion, &r.FieldsPredicted, &r.Error, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}
	r.Status = model.RunStatus(status)
	return &r, nil
}
