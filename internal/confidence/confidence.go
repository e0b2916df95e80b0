// Package confidence composes calibrated confidence scores from a
// source-type base rate plus bounded additive modifiers. Scores are
// deterministic: identical inputs always produce identical values.
package confidence

import (
	"math"
	"time"

	"github.com/upkeephq/predict-cli/internal/climate"
	"github.com/upkeephq/predict-cli/internal/model"
)

// MaxConfidence caps every score. No single field is ever claimed fully
// certain.
const MaxConfidence = 0.98

// Modifier names, as reported in provenance.
const (
	ModifierRecency         = "recency_bonus"
	ModifierCrossValidation = "cross_validation_bonus"
	ModifierClimateFit      = "climate_fit_bonus"
	ModifierExceedsLifespan = "exceeds_lifespan_penalty"
)

const (
	recencyBonus           = 0.08
	crossValidationBonus   = 0.07
	climateFitBonus        = 0.03
	exceedsLifespanPenalty = 0.15

	// Evidence within this window of "now" earns the recency bonus.
	recencyWindow = 2 * 365 * 24 * time.Hour
)

// baseRates keys the starting confidence by which source kind produced the
// primary signal.
var baseRates = map[model.SourceKind]float64{
	model.SourcePermit:             0.85,
	model.SourceAssessor:           0.70,
	model.SourceAddressXref:        0.60,
	model.SourceAgeInference:       0.50,
	model.SourceStatisticalDefault: 0.30,
}

// BaseRate returns the base rate for a source kind. Unknown kinds get the
// statistical-default rate.
func BaseRate(kind model.SourceKind) float64 {
	if r, ok := baseRates[kind]; ok {
		return r
	}
	return baseRates[model.SourceStatisticalDefault]
}

// Input captures every signal the calculator considers. All components end
// up in the returned modifier list, not discarded after the number is
// computed.
type Input struct {
	Source model.SourceKind

	// ObservedAt is the timestamp of the driving evidence, when known.
	ObservedAt *time.Time
	Now        time.Time

	// CrossValidated is set when two independent sources agree.
	CrossValidated bool

	// ClimateZone is the zone the prediction was conditioned on.
	ClimateZone string

	// ExceedsMaxLifespan is set when the estimated age extrapolates past the
	// reference max lifespan.
	ExceedsMaxLifespan bool

	// HasPermit is set when a direct permit corroborates this field.
	HasPermit bool
}

// Score is a computed confidence plus the modifiers that shaped it.
type Score struct {
	Value     float64  `json:"value"`
	Modifiers []string `json:"modifiers,omitempty"`
}

// Compute derives the confidence score for one prediction.
func Compute(in Input) Score {
	score := BaseRate(in.Source)
	var modifiers []string

	if in.ObservedAt != nil && !in.Now.IsZero() {
		age := in.Now.Sub(*in.ObservedAt)
		if age >= 0 && age <= recencyWindow {
			score += recencyBonus
			modifiers = append(modifiers, ModifierRecency)
		}
	}

	if in.CrossValidated {
		score += crossValidationBonus
		modifiers = append(modifiers, ModifierCrossValidation)
	}

	if in.ClimateZone != "" && in.ClimateZone != climate.ZoneDefault {
		score += climateFitBonus
		modifiers = append(modifiers, ModifierClimateFit)
	}

	if in.ExceedsMaxLifespan && !in.HasPermit {
		score -= exceedsLifespanPenalty
		modifiers = append(modifiers, ModifierExceedsLifespan)
	}

	return Score{Value: clamp(score), Modifiers: modifiers}
}

// clamp bounds the score to [0, MaxConfidence] and rounds to 2 decimals.
func clamp(v float64) float64 {
	if v < 0 {
		v = 0
	}
	if v > MaxConfidence {
		v = MaxConfidence
	}
	return math.Round(v*100) / 100
}
