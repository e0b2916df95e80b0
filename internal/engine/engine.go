// Package engine orchestrates one prediction run: load evidence, resolve the
// climate zone, evaluate every field rule, and persist the batch under a new
// run id.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/upkeephq/predict-cli/internal/climate"
	"github.com/upkeephq/predict-cli/internal/evidence"
	"github.com/upkeephq/predict-cli/internal/lifespan"
	"github.com/upkeephq/predict-cli/internal/model"
	"github.com/upkeephq/predict-cli/internal/resilience"
	"github.com/upkeephq/predict-cli/internal/rules"
	"github.com/upkeephq/predict-cli/internal/store"
)

// Engine runs the prediction lifecycle against a Store.
type Engine struct {
	store      store.Store
	retry      resilience.Policy
	classifier *evidence.Classifier
	ruleSet    []rules.Rule
	now        func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithRetryPolicy overrides the retry policy used for store I/O.
func WithRetryPolicy(p resilience.Policy) Option {
	return func(e *Engine) { e.retry = p }
}

// WithClassifier overrides the permit classifier, e.g. with pattern
// overrides loaded from a config file.
func WithClassifier(c *evidence.Classifier) Option {
	return func(e *Engine) { e.classifier = c }
}

// WithRules overrides the evaluated rule set. Used by tests.
func WithRules(rs ...rules.Rule) Option {
	return func(e *Engine) { e.ruleSet = rs }
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an Engine.
func New(st store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:      st,
		retry:      resilience.DefaultPolicy(),
		classifier: evidence.NewClassifier(),
		ruleSet:    rules.All(),
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result is the outcome of one completed run.
type Result struct {
	Run         *model.Run         `json:"run"`
	Predictions []model.Prediction `json:"predictions"`
}

// Predict executes a full run for one property. A new run row is created
// first; any fault after that marks the run failed and persists nothing.
// Individual rule failures are not faults: the failing field is omitted and
// the remaining fields still persist.
func (e *Engine) Predict(ctx context.Context, addressID string) (*Result, error) {
	run, err := e.store.CreateRun(ctx, addressID)
	if err != nil {
		return nil, eris.Wrapf(err, "engine: create run for %s", addressID)
	}

	log := zap.L().With(zap.String("run_id", run.ID), zap.String("address_id", addressID))
	log.Info("run started")

	res, err := e.execute(ctx, run)
	if err != nil {
		log.Error("run failed", zap.Error(err))
		if ferr := e.store.FailRun(ctx, run.ID, err.Error()); ferr != nil {
			log.Error("marking run failed", zap.Error(ferr))
		}
		return nil, err
	}

	log.Info("run complete", zap.Int("fields_predicted", res.Run.FieldsPredicted))
	return res, nil
}

func (e *Engine) execute(ctx context.Context, run *model.Run) (*Result, error) {
	in, err := e.load(ctx, run.AddressID)
	if err != nil {
		return nil, err
	}

	if err := e.store.UpdateRunStatus(ctx, run.ID, model.RunStatusExecuting); err != nil {
		return nil, eris.Wrap(err, "engine: mark executing")
	}
	outcomes := e.evaluate(ctx, in)
	if len(outcomes) == 0 {
		return nil, eris.New("engine: every rule failed")
	}

	if err := e.store.UpdateRunStatus(ctx, run.ID, model.RunStatusPersisting); err != nil {
		return nil, eris.Wrap(err, "engine: mark persisting")
	}
	preds := e.toPredictions(run, outcomes)
	err = resilience.Do(ctx, e.withLog("insert predictions"), func(ctx context.Context) error {
		return e.store.InsertPredictions(ctx, preds)
	})
	if err != nil {
		return nil, eris.Wrap(err, "engine: persist predictions")
	}

	if err := e.store.CompleteRun(ctx, run.ID, len(preds)); err != nil {
		return nil, eris.Wrap(err, "engine: mark complete")
	}
	run.Status = model.RunStatusComplete
	run.FieldsPredicted = len(preds)
	return &Result{Run: run, Predictions: preds}, nil
}

// load gathers the property, its latest snapshots per provider, and the
// reference tables, and resolves the climate zone.
func (e *Engine) load(ctx context.Context, addressID string) (rules.Input, error) {
	var in rules.Input

	prop, err := resilience.DoVal(ctx, e.withLog("get property"), func(ctx context.Context) (*model.Property, error) {
		return e.store.GetProperty(ctx, addressID)
	})
	if err != nil {
		return in, eris.Wrapf(err, "engine: load property %s", addressID)
	}

	snaps, err := resilience.DoVal(ctx, e.withLog("list snapshots"), func(ctx context.Context) ([]model.Snapshot, error) {
		return e.store.ListSnapshots(ctx, addressID)
	})
	if err != nil {
		return in, eris.Wrapf(err, "engine: load snapshots %s", addressID)
	}
	latest := model.LatestByProvider(snaps)

	var permits []evidence.Permit
	if s, ok := latest[model.ProviderPermitRegistry]; ok {
		permits, err = evidence.ParsePermits(s.Payload)
		if err != nil {
			return in, eris.Wrap(err, "engine: permit snapshot")
		}
	}

	var assessor *evidence.Assessor
	if s, ok := latest[model.ProviderAssessor]; ok {
		assessor, err = evidence.ParseAssessor(s.Payload)
		if err != nil {
			return in, eris.Wrap(err, "engine: assessor snapshot")
		}
	}

	var addr *evidence.AddressInfo
	if s, ok := latest[model.ProviderAddressStandardizer]; ok {
		addr, err = evidence.ParseAddressInfo(s.Payload)
		if err != nil {
			return in, eris.Wrap(err, "engine: address snapshot")
		}
	}

	standardizerCoords := e.backfillCoordinates(ctx, prop, addr, assessor)

	zone, zoneFromAddress := resolveZone(prop, addr, standardizerCoords)

	table, factors, err := e.referenceData(ctx)
	if err != nil {
		return in, err
	}

	return rules.Input{
		Property:        *prop,
		Permits:         permits,
		Assessor:        assessor,
		Zone:            zone,
		ZoneFromAddress: zoneFromAddress,
		Lifespans:       table,
		Factors:         factors,
		Classifier:      e.classifier,
		Now:             e.now(),
	}, nil
}

// backfillCoordinates fills absent property coordinates from the address
// standardizer, falling back to the assessor record. A back-fill that fails
// to persist is logged and ignored; the in-memory copy still carries the
// coordinates for zone resolution. Reports whether the coordinates came from
// the standardizer snapshot.
func (e *Engine) backfillCoordinates(ctx context.Context, prop *model.Property, addr *evidence.AddressInfo, assessor *evidence.Assessor) bool {
	if prop.HasCoordinates() {
		return false
	}

	var lat, lng *float64
	var fromStandardizer bool
	switch {
	case addr != nil && addr.Latitude != nil && addr.Longitude != nil:
		lat, lng = addr.Latitude, addr.Longitude
		fromStandardizer = true
	case assessor != nil && assessor.Latitude != nil && assessor.Longitude != nil:
		lat, lng = assessor.Latitude, assessor.Longitude
	default:
		return false
	}

	if !prop.BackfillCoordinates(*lat, *lng) {
		return false
	}
	if err := e.store.UpdatePropertyCoordinates(ctx, prop.AddressID, *lat, *lng); err != nil {
		zap.L().Warn("coordinate back-fill not persisted",
			zap.String("address_id", prop.AddressID), zap.Error(err))
	}
	return fromStandardizer
}

// resolveZone walks the zone fallback chain: the property's own region code,
// then the standardized region code, then a coordinate lookup. The second
// return records whether the winning source was standardizer metadata;
// coordinates the property record already carried at intake do not count.
func resolveZone(prop *model.Property, addr *evidence.AddressInfo, standardizerCoords bool) (string, bool) {
	if z := climate.ResolveZone(prop.RegionCode); z != climate.ZoneDefault {
		return z, false
	}
	if addr != nil {
		if z := climate.ResolveZone(addr.RegionCode); z != climate.ZoneDefault {
			return z, true
		}
	}
	if prop.HasCoordinates() {
		if z := climate.ResolveZoneCoords(*prop.Latitude, *prop.Longitude); z != climate.ZoneDefault {
			return z, standardizerCoords
		}
	}
	return climate.ZoneDefault, false
}

// referenceData loads store-managed reference rows layered over the built-in
// seed, so a partially imported store still predicts.
func (e *Engine) referenceData(ctx context.Context) (*lifespan.Table, *climate.FactorTable, error) {
	lsRows, err := resilience.DoVal(ctx, e.withLog("list lifespans"), func(ctx context.Context) ([]lifespan.Entry, error) {
		return e.store.ListLifespans(ctx)
	})
	if err != nil {
		return nil, nil, eris.Wrap(err, "engine: load lifespans")
	}
	entries := append(lifespan.Seed(), lsRows...)

	fRows, err := resilience.DoVal(ctx, e.withLog("list climate factors"), func(ctx context.Context) ([]climate.FactorEntry, error) {
		return e.store.ListClimateFactors(ctx)
	})
	if err != nil {
		return nil, nil, eris.Wrap(err, "engine: load climate factors")
	}
	if len(fRows) == 0 {
		fRows = climate.DefaultFactors()
	}

	return lifespan.NewTable(entries), climate.NewFactorTable(fRows), nil
}

// evaluate runs every rule concurrently. A panicking or erroring rule is
// logged and its field omitted; the other rules are unaffected.
func (e *Engine) evaluate(ctx context.Context, in rules.Input) []rules.Outcome {
	results := make([]*rules.Outcome, len(e.ruleSet))

	g, _ := errgroup.WithContext(ctx)
	for i, r := range e.ruleSet {
		g.Go(func() error {
			defer func() {
				if cause := recover(); cause != nil {
					zap.L().Error("rule panicked",
						zap.String("field", string(r.Field())),
						zap.String("cause", fmt.Sprint(cause)))
				}
			}()
			out, err := r.Evaluate(in)
			if err != nil {
				zap.L().Error("rule failed, omitting field",
					zap.String("field", string(r.Field())), zap.Error(err))
				return nil
			}
			results[i] = out
			return nil
		})
	}
	g.Wait() //nolint:errcheck // workers never return errors

	outcomes := make([]rules.Outcome, 0, len(results))
	for _, out := range results {
		if out != nil {
			outcomes = append(outcomes, *out)
		}
	}
	return outcomes
}

func (e *Engine) toPredictions(run *model.Run, outcomes []rules.Outcome) []model.Prediction {
	createdAt := e.now()
	preds := make([]model.Prediction, 0, len(outcomes))
	for _, out := range outcomes {
		preds = append(preds, model.Prediction{
			AddressID:    run.AddressID,
			RunID:        run.ID,
			Field:        out.Field,
			Value:        out.Value,
			Confidence:   out.Confidence,
			Provenance:   out.Provenance,
			ModelVersion: model.ModelVersion,
			CreatedAt:    createdAt,
		})
	}
	return preds
}

func (e *Engine) withLog(operation string) resilience.Policy {
	p := e.retry
	if p.OnRetry == nil {
		p.OnRetry = resilience.RetryLogger(operation)
	}
	return p
}
