package engine

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upkeephq/predict-cli/internal/climate"
	"github.com/upkeephq/predict-cli/internal/model"
	"github.com/upkeephq/predict-cli/internal/resilience"
	"github.com/upkeephq/predict-cli/internal/rules"
	"github.com/upkeephq/predict-cli/internal/store"
)

var engineNow = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "engine.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func newTestEngine(st store.Store) *Engine {
	return New(st,
		WithClock(func() time.Time { return engineNow }),
		WithRetryPolicy(resilience.Policy{MaxAttempts: 1}),
	)
}

func seedFloridaProperty(t *testing.T, st *store.SQLiteStore, addressID string) {
	t.Helper()
	yearBuilt := 1990
	_, err := st.CreateProperty(context.Background(), model.Property{
		AddressID:  addressID,
		City:       "Tampa",
		State:      "FL",
		RegionCode: "FL",
		YearBuilt:  &yearBuilt,
	})
	require.NoError(t, err)
}

func appendSnapshot(t *testing.T, st *store.SQLiteStore, addressID, provider, payload string) {
	t.Helper()
	_, err := st.AppendSnapshot(context.Background(), model.Snapshot{
		AddressID:   addressID,
		Provider:    provider,
		Payload:     json.RawMessage(payload),
		RetrievedAt: engineNow.AddDate(0, -1, 0),
	})
	require.NoError(t, err)
}

func TestEngine_PredictEndToEnd(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	seedFloridaProperty(t, st, "addr-1")
	appendSnapshot(t, st, "addr-1", model.ProviderPermitRegistry,
		`{"permits":[{"permit_id":"p1","description":"A/C change out 4 ton split system","status":"final","issued_date":"2023-06-01"}]}`)

	res, err := newTestEngine(st).Predict(ctx, "addr-1")
	require.NoError(t, err)
	require.Len(t, res.Predictions, len(model.AllFields()))
	assert.Equal(t, model.RunStatusComplete, res.Run.Status)
	assert.Equal(t, len(model.AllFields()), res.Run.FieldsPredicted)

	byField := make(map[model.FieldName]model.Prediction)
	for _, p := range res.Predictions {
		byField[p.Field] = p
		assert.Equal(t, res.Run.ID, p.RunID)
		assert.Equal(t, model.ModelVersion, p.ModelVersion)
		assert.Equal(t, climate.ZoneFlorida, p.Provenance.ClimateZone)
	}

	// The dated change-out permit drives a fresh HVAC age.
	assert.Equal(t, "0-5", byField[model.FieldHVACAgeBucket].Value)
	assert.Equal(t, model.SourcePermit, byField[model.FieldHVACAgeBucket].Provenance.Source)
	assert.Equal(t, "split_system", byField[model.FieldHVACSystemType].Value)

	// The roof falls back to the re-based home-age estimate (34 - 15 = 19).
	assert.Equal(t, "16-20", byField[model.FieldRoofAgeBucket].Value)
	assert.Equal(t, model.SourceAgeInference, byField[model.FieldRoofAgeBucket].Provenance.Source)

	// The run's rows round-trip through the store.
	stored, err := st.PredictionsByRun(ctx, res.Run.ID)
	require.NoError(t, err)
	assert.Len(t, stored, len(model.AllFields()))
}

func TestEngine_MissingPropertyMarksRunFailed(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, err := newTestEngine(st).Predict(ctx, "ghost")
	require.Error(t, err)

	runs, err := st.ListRuns(ctx, store.RunFilter{AddressID: "ghost"})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunStatusFailed, runs[0].Status)
	assert.NotEmpty(t, runs[0].Error)

	preds, err := st.PredictionsByRun(ctx, runs[0].ID)
	require.NoError(t, err)
	assert.Empty(t, preds)
}

func TestEngine_UndecodablePayloadMarksRunFailed(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	seedFloridaProperty(t, st, "addr-1")
	appendSnapshot(t, st, "addr-1", model.ProviderPermitRegistry, `{"permits": "not-a-list"}`)

	_, err := newTestEngine(st).Predict(ctx, "addr-1")
	require.Error(t, err)

	runs, err := st.ListRuns(ctx, store.RunFilter{AddressID: "addr-1"})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunStatusFailed, runs[0].Status)
}

func TestEngine_NoSnapshotsStillPredicts(t *testing.T) {
	st := newTestStore(t)
	seedFloridaProperty(t, st, "addr-1")

	res, err := newTestEngine(st).Predict(context.Background(), "addr-1")
	require.NoError(t, err)
	assert.Len(t, res.Predictions, len(model.AllFields()))
}

func TestEngine_CoordinateBackfillAndZoneFromCoords(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	_, err := st.CreateProperty(ctx, model.Property{AddressID: "addr-1"})
	require.NoError(t, err)
	// Standardizer snapshot carries Miami coordinates but no region code.
	appendSnapshot(t, st, "addr-1", model.ProviderAddressStandardizer,
		`{"latitude": 25.76, "longitude": -80.19}`)

	res, err := newTestEngine(st).Predict(ctx, "addr-1")
	require.NoError(t, err)

	byField := make(map[model.FieldName]model.Prediction)
	for _, p := range res.Predictions {
		byField[p.Field] = p
		assert.Equal(t, climate.ZoneFlorida, p.Provenance.ClimateZone)
	}
	// Standardizer-sourced coordinates count as address metadata, so the
	// zone-conditioned type default upgrades to address cross-reference.
	assert.Equal(t, model.SourceAddressXref, byField[model.FieldWaterHeaterType].Provenance.Source)

	prop, err := st.GetProperty(ctx, "addr-1")
	require.NoError(t, err)
	require.NotNil(t, prop.Latitude)
	assert.Equal(t, 25.76, *prop.Latitude)
}

func TestEngine_IntakeCoordinatesStayStatisticalDefault(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	// Coordinates were on the property record at intake; no snapshots exist,
	// so no standardizer metadata ever entered the picture.
	lat, lng := 25.76, -80.19
	_, err := st.CreateProperty(ctx, model.Property{AddressID: "addr-1", Latitude: &lat, Longitude: &lng})
	require.NoError(t, err)

	res, err := newTestEngine(st).Predict(ctx, "addr-1")
	require.NoError(t, err)

	byField := make(map[model.FieldName]model.Prediction)
	for _, p := range res.Predictions {
		byField[p.Field] = p
		assert.Equal(t, climate.ZoneFlorida, p.Provenance.ClimateZone)
	}
	wh := byField[model.FieldWaterHeaterType]
	assert.Equal(t, "tank_electric", wh.Value)
	assert.Equal(t, model.SourceStatisticalDefault, wh.Provenance.Source)
}

func TestEngine_ZoneFromStandardizerRegionCode(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	_, err := st.CreateProperty(ctx, model.Property{AddressID: "addr-1"})
	require.NoError(t, err)
	appendSnapshot(t, st, "addr-1", model.ProviderAddressStandardizer, `{"region_code": "FL"}`)

	res, err := newTestEngine(st).Predict(ctx, "addr-1")
	require.NoError(t, err)

	byField := make(map[model.FieldName]model.Prediction)
	for _, p := range res.Predictions {
		byField[p.Field] = p
	}
	// A zone-conditioned type default counts as address cross-reference when
	// the zone came from standardizer metadata.
	wh := byField[model.FieldWaterHeaterType]
	assert.Equal(t, "tank_electric", wh.Value)
	assert.Equal(t, model.SourceAddressXref, wh.Provenance.Source)
}

func TestEngine_RunsAreAppendOnly(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	seedFloridaProperty(t, st, "addr-1")
	eng := newTestEngine(st)

	first, err := eng.Predict(ctx, "addr-1")
	require.NoError(t, err)
	second, err := eng.Predict(ctx, "addr-1")
	require.NoError(t, err)
	assert.NotEqual(t, first.Run.ID, second.Run.ID)

	old, err := st.PredictionsByRun(ctx, first.Run.ID)
	require.NoError(t, err)
	assert.Len(t, old, len(model.AllFields()))

	latest, err := st.LatestPredictions(ctx, "addr-1")
	require.NoError(t, err)
	assert.Len(t, latest, len(model.AllFields()))
}

type erroringRule struct{}

func (erroringRule) Field() model.FieldName { return model.FieldRoofAgeBucket }
func (erroringRule) Evaluate(rules.Input) (*rules.Outcome, error) {
	return nil, errors.New("reference lookup blew up")
}

type panickingRule struct{}

func (panickingRule) Field() model.FieldName { return model.FieldHVACAgeBucket }
func (panickingRule) Evaluate(rules.Input) (*rules.Outcome, error) {
	panic("nil table")
}

func TestEngine_RuleFaultsOmitOnlyTheirField(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	seedFloridaProperty(t, st, "addr-1")

	eng := New(st,
		WithClock(func() time.Time { return engineNow }),
		WithRetryPolicy(resilience.Policy{MaxAttempts: 1}),
		WithRules(
			erroringRule{},
			panickingRule{},
			rules.HVACPresenceRule{},
			rules.HVACTypeRule{},
			rules.WaterHeaterTypeRule{},
			rules.WaterHeaterAgeRule{},
		),
	)

	res, err := eng.Predict(ctx, "addr-1")
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, res.Run.Status)
	assert.Equal(t, 4, res.Run.FieldsPredicted)

	byField := make(map[model.FieldName]model.Prediction)
	for _, p := range res.Predictions {
		byField[p.Field] = p
	}
	assert.NotContains(t, byField, model.FieldRoofAgeBucket)
	assert.NotContains(t, byField, model.FieldHVACAgeBucket)
	assert.Contains(t, byField, model.FieldHVACPresence)
	assert.Contains(t, byField, model.FieldHVACSystemType)
	assert.Contains(t, byField, model.FieldWaterHeaterType)
	assert.Contains(t, byField, model.FieldWaterHeaterAgeBucket)
}

func TestEngine_EveryRuleFailingMarksRunFailed(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	seedFloridaProperty(t, st, "addr-1")

	eng := New(st,
		WithRetryPolicy(resilience.Policy{MaxAttempts: 1}),
		WithRules(erroringRule{}, panickingRule{}),
	)

	_, err := eng.Predict(ctx, "addr-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "every rule failed")

	runs, err := st.ListRuns(ctx, store.RunFilter{AddressID: "addr-1"})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunStatusFailed, runs[0].Status)
}

type failingStore struct {
	*store.SQLiteStore
}

func (f *failingStore) InsertPredictions(ctx context.Context, preds []model.Prediction) error {
	return errors.New("disk full")
}

func TestEngine_PersistFailureMarksRunFailed(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	seedFloridaProperty(t, st, "addr-1")

	_, err := newTestEngine(&failingStore{SQLiteStore: st}).Predict(ctx, "addr-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persist predictions")

	runs, err := st.ListRuns(ctx, store.RunFilter{AddressID: "addr-1"})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunStatusFailed, runs[0].Status)
}
