package store

import (
	"context"

	"github.com/upkeephq/predict-cli/internal/climate"
	"github.com/upkeephq/predict-cli/internal/lifespan"
	"github.com/upkeephq/predict-cli/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status    model.RunStatus `json:"status,omitempty"`
	AddressID string          `json:"address_id,omitempty"`
	Limit     int             `json:"limit,omitempty"`
	Offset    int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the prediction engine.
// Prediction rows are append-only: re-running a property writes a new
// generation under a new run id and never mutates prior rows.
type Store interface {
	// Properties
	CreateProperty(ctx context.Context, p model.Property) (*model.Property, error)
	GetProperty(ctx context.Context, addressID string) (*model.Property, error)
	UpdatePropertyCoordinates(ctx context.Context, addressID string, lat, lng float64) error

	// Evidence snapshots
	AppendSnapshot(ctx context.Context, snap model.Snapshot) (*model.Snapshot, error)
	ListSnapshots(ctx context.Context, addressID string) ([]model.Snapshot, error)

	// Reference data
	UpsertLifespans(ctx context.Context, entries []lifespan.Entry) (int, error)
	ListLifespans(ctx context.Context) ([]lifespan.Entry, error)
	UpsertClimateFactors(ctx context.Context, entries []climate.FactorEntry) (int, error)
	ListClimateFactors(ctx context.Context) ([]climate.FactorEntry, error)

	// Runs
	CreateRun(ctx context.Context, addressID string) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	CompleteRun(ctx context.Context, runID string, fieldsPredicted int) error
	FailRun(ctx context.Context, runID string, cause string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Predictions
	InsertPredictions(ctx context.Context, preds []model.Prediction) error
	LatestPredictions(ctx context.Context, addressID string) ([]model.Prediction, error)
	PredictionsByRun(ctx context.Context, runID string) ([]model.Prediction, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// latestPerField collapses a created_at-descending prediction list to the
// newest row per field.
func latestPerField(preds []model.Prediction) []model.Prediction {
	seen := make(map[model.FieldName]bool, len(preds))
	out := make([]model.Prediction, 0, len(preds))
	for _, p := range preds {
		if seen[p.Field] {
			continue
		}
		seen[p.Field] = true
		out = append(out, p)
	}
	return out
}
