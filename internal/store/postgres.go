package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/upkeephq/predict-cli/internal/climate"
	"github.com/upkeephq/predict-cli/internal/lifespan"
	"github.com/upkeephq/predict-cli/internal/model"
)

// Pool abstracts *pgxpool.Pool for testability.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool. Used by tests.
func NewPostgresFromPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS properties (
	address_id  TEXT PRIMARY KEY,
	line1       TEXT NOT NULL DEFAULT '',
	city        TEXT NOT NULL DEFAULT '',
	state       TEXT NOT NULL DEFAULT '',
	zip         TEXT NOT NULL DEFAULT '',
	region_code TEXT NOT NULL DEFAULT '',
	year_built  INTEGER,
	latitude    DOUBLE PRECISION,
	longitude   DOUBLE PRECISION,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS snapshots (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	address_id   TEXT NOT NULL REFERENCES properties(address_id),
	provider     TEXT NOT NULL,
	payload      JSONB NOT NULL,
	retrieved_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS lifespans (
	system        TEXT NOT NULL,
	subtype       TEXT NOT NULL,
	zone          TEXT NOT NULL,
	min_years     DOUBLE PRECISION NOT NULL,
	typical_years DOUBLE PRECISION NOT NULL,
	max_years     DOUBLE PRECISION NOT NULL,
	quality_tier  TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (system, subtype, zone)
);

CREATE TABLE IF NOT EXISTS climate_factors (
	zone        TEXT NOT NULL,
	factor_type TEXT NOT NULL,
	multiplier  DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (zone, factor_type)
);

CREATE TABLE IF NOT EXISTS runs (
	id               TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	address_id       TEXT NOT NULL,
	status           TEXT NOT NULL DEFAULT 'loading',
	model_version    TEXT NOT NULL,
	fields_predicted INTEGER NOT NULL DEFAULT 0,
	error            TEXT NOT NULL DEFAULT '',
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS predictions (
	id              TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	address_id      TEXT NOT NULL,
	run_id          TEXT NOT NULL REFERENCES runs(id),
	field           TEXT NOT NULL,
	predicted_value TEXT NOT NULL,
	confidence      DOUBLE PRECISION NOT NULL,
	provenance      JSONB NOT NULL,
	model_version   TEXT NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_snapshots_address ON snapshots(address_id, provider, retrieved_at DESC);
CREATE INDEX IF NOT EXISTS idx_runs_address ON runs(address_id);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_predictions_address ON predictions(address_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_predictions_run ON predictions(run_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateProperty(ctx context.Context, p model.Property) (*model.Property, error) {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO properties (address_id, line1, city, state, zip, region_code, year_built, latitude, longitude, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.AddressID, p.Line1, p.City, p.State, p.Zip, p.RegionCode, p.YearBuilt, p.Latitude, p.Longitude, p.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert property %s", p.AddressID)
	}
	return &p, nil
}

func (s *PostgresStore) GetProperty(ctx context.Context, addressID string) (*model.Property, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT address_id, line1, city, state, zip, region_code, year_built, latitude, longitude, created_at
		 FROM properties WHERE address_id = $1`,
		addressID,
	)

	var p model.Property
	err := row.Scan(&p.AddressID, &p.Line1, &p.City, &p.State, &p.Zip, &p.RegionCode,
		&p.YearBuilt, &p.Latitude, &p.Longitude, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("property not found: %s", addressID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan property")
	}
	return &p, nil
}

func (s *PostgresStore) UpdatePropertyCoordinates(ctx context.Context, addressID string, lat, lng float64) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE properties SET latitude = $1, longitude = $2
		 WHERE address_id = $3 AND latitude IS NULL AND longitude IS NULL`,
		lat, lng, addressID,
	)
	return eris.Wrapf(err, "postgres: update coordinates %s", addressID)
}

func (s *PostgresStore) AppendSnapshot(ctx context.Context, snap model.Snapshot) (*model.Snapshot, error) {
	if snap.ID == "" {
		snap.ID = uuid.New().String()
	}
	if snap.RetrievedAt.IsZero() {
		snap.RetrievedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO snapshots (id, address_id, provider, payload, retrieved_at) VALUES ($1, $2, $3, $4, $5)`,
		snap.ID, snap.AddressID, snap.Provider, []byte(snap.Payload), snap.RetrievedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert snapshot for %s", snap.AddressID)
	}
	return &snap, nil
}

func (s *PostgresStore) ListSnapshots(ctx context.Context, addressID string) ([]model.Snapshot, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, address_id, provider, payload, retrieved_at FROM snapshots
		 WHERE address_id = $1 ORDER BY retrieved_at ASC`,
		addressID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list snapshots")
	}
	defer rows.Close()

	var snaps []model.Snapshot
	for rows.Next() {
		var snap model.Snapshot
		var payload []byte
		if err := rows.Scan(&snap.ID, &snap.AddressID, &snap.Provider, &payload, &snap.RetrievedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan snapshot")
		}
		snap.Payload = json.RawMessage(payload)
		snaps = append(snaps, snap)
	}
	return snaps, eris.Wrap(rows.Err(), "postgres: list snapshots iterate")
}

func (s *PostgresStore) UpsertLifespans(ctx context.Context, entries []lifespan.Entry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: begin upsert lifespans")
	}
	defer tx.Rollback(ctx)

	for _, e := range entries {
		_, err := tx.Exec(ctx,
			`INSERT INTO lifespans (system, subtype, zone, min_years, typical_years, max_years, quality_tier)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 ON CONFLICT (system, subtype, zone) DO UPDATE SET
			   min_years = excluded.min_years,
			   typical_years = excluded.typical_years,
			   max_years = excluded.max_years,
			   quality_tier = excluded.quality_tier`,
			string(e.System), e.Subtype, e.Zone, e.Range.Min, e.Range.Typical, e.Range.Max, e.QualityTier,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "postgres: upsert lifespan %s/%s/%s", e.System, e.Subtype, e.Zone)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "postgres: commit upsert lifespans")
	}
	return len(entries), nil
}

func (s *PostgresStore) ListLifespans(ctx context.Context) ([]lifespan.Entry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT system, subtype, zone, min_years, typical_years, max_years, quality_tier
		 FROM lifespans ORDER BY system, subtype, zone`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list lifespans")
	}
	defer rows.Close()

	var entries []lifespan.Entry
	for rows.Next() {
		var e lifespan.Entry
		var system string
		if err := rows.Scan(&system, &e.Subtype, &e.Zone, &e.Range.Min, &e.Range.Typical, &e.Range.Max, &e.QualityTier); err != nil {
			return nil, eris.Wrap(err, "postgres: scan lifespan")
		}
		e.System = model.SystemType(system)
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "postgres: list lifespans iterate")
}

func (s *PostgresStore) UpsertClimateFactors(ctx context.Context, entries []climate.FactorEntry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: begin upsert factors")
	}
	defer tx.Rollback(ctx)

	for _, e := range entries {
		_, err := tx.Exec(ctx,
			`INSERT INTO climate_factors (zone, factor_type, multiplier) VALUES ($1, $2, $3)
			 ON CONFLICT (zone, factor_type) DO UPDATE SET multiplier = excluded.multiplier`,
			e.Zone, e.FactorType, e.Multiplier,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "postgres: upsert factor %s/%s", e.Zone, e.FactorType)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "postgres: commit upsert factors")
	}
	return len(entries), nil
}

func (s *PostgresStore) ListClimateFactors(ctx context.Context) ([]climate.FactorEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT zone, factor_type, multiplier FROM climate_factors ORDER BY zone, factor_type`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list factors")
	}
	defer rows.Close()

	var entries []climate.FactorEntry
	for rows.Next() {
		var e climate.FactorEntry
		if err := rows.Scan(&e.Zone, &e.FactorType, &e.Multiplier); err != nil {
			return nil, eris.Wrap(err, "postgres: scan factor")
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "postgres: list factors iterate")
}

func (s *PostgresStore) CreateRun(ctx context.Context, addressID string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, address_id, status, model_version, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, addressID, string(model.RunStatusLoading), model.ModelVersion, now, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert run for %s", addressID)
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

func (s *PostgresStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run status %s", runID)
	}
	return checkTagAffected(tag, "run", runID)
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, fieldsPredicted int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, fields_predicted = $2, updated_at = $3 WHERE id = $4`,
		string(model.RunStatusComplete), fieldsPredicted, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	return checkTagAffected(tag, "run", runID)
}

func (s *PostgresStore) FailRun(ctx context.Context, runID string, cause string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, error = $2, updated_at = $3 WHERE id = $4`,
		string(model.RunStatusFailed), cause, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail run %s", runID)
	}
	return checkTagAffected(tag, "run", runID)
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, address_id, status, model_version, fields_predicted, error, created_at, updated_at
		 FROM runs WHERE id = $1`,
		runID,
	)

	var r model.Run
	var status string
	err := row.Scan(&r.ID, &r.AddressID, &status, &r.ModelVersion, &r.FieldsPredicted, &r.Error, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.New("run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan run")
	}
	r.Status = model.RunStatus(status)
	return &r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, address_id, status, model_version, fields_predicted, error, created_at, updated_at
	          FROM runs WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.Status != "" {
		query += ` AND status = ` + arg(string(filter.Status))
	}
	if filter.AddressID != "" {
		query += ` AND address_id = ` + arg(filter.AddressID)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ` + arg(limit)
	if filter.Offset > 0 {
		query += ` OFFSET ` + arg(filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var r model.Run
		var status string
		if err := rows.Scan(&r.ID, &r.AddressID, &status, &r.ModelVersion, &r.FieldsPredicted, &r.Error, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		r.Status = model.RunStatus(status)
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

var predictionColumns = []string{
	"id", "address_id", "run_id", "field", "predicted_value",
	"confidence", "provenance", "model_version", "created_at",
}

// InsertPredictions bulk-inserts one run's rows via the COPY protocol.
func (s *PostgresStore) InsertPredictions(ctx context.Context, preds []model.Prediction) error {
	if len(preds) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(preds))
	for _, p := range preds {
		provJSON, err := json.Marshal(p.Provenance)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal provenance")
		}
		rows = append(rows, []any{
			uuid.New().String(), p.AddressID, p.RunID, string(p.Field), p.Value,
			p.Confidence, provJSON, p.ModelVersion, p.CreatedAt,
		})
	}

	_, err := s.pool.CopyFrom(ctx, pgx.Identifier{"predictions"}, predictionColumns, pgx.CopyFromRows(rows))
	return eris.Wrap(err, "postgres: copy predictions")
}

func (s *PostgresStore) LatestPredictions(ctx context.Context, addressID string) ([]model.Prediction, error) {
	preds, err := s.queryPredictions(ctx,
		`SELECT address_id, run_id, field, predicted_value, confidence, provenance, model_version, created_at
		 FROM predictions WHERE address_id = $1 ORDER BY created_at DESC`,
		addressID,
	)
	if err != nil {
		return nil, err
	}
	return latestPerField(preds), nil
}

func (s *PostgresStore) PredictionsByRun(ctx context.Context, runID string) ([]model.Prediction, error) {
	return s.queryPredictions(ctx,
		`SELECT address_id, run_id, field, predicted_value, confidence, provenance, model_version, created_at
		 FROM predictions WHERE run_id = $1 ORDER BY field`,
		runID,
	)
}

func (s *PostgresStore) queryPredictions(ctx context.Context, query string, args ...any) ([]model.Prediction, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query predictions")
	}
	defer rows.Close()

	var preds []model.Prediction
	for rows.Next() {
		var p model.Prediction
		var field string
		var provJSON []byte
		if err := rows.Scan(&p.AddressID, &p.RunID, &field, &p.Value, &p.Confidence, &provJSON, &p.ModelVersion, &p.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan prediction")
		}
		p.Field = model.FieldName(field)
		if err := json.Unmarshal(provJSON, &p.Provenance); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal provenance")
		}
		preds = append(preds, p)
	}
	return preds, eris.Wrap(rows.Err(), "postgres: predictions iterate")
}

func checkTagAffected(tag pgconn.CommandTag, entity, id string) error {
	if tag.RowsAffected() == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}
