package rules

import (
	"strings"

	"github.com/upkeephq/predict-cli/internal/confidence"
	"github.com/upkeephq/predict-cli/internal/evidence"
	"github.com/upkeephq/predict-cli/internal/lifespan"
	"github.com/upkeephq/predict-cli/internal/model"
)

var hvacFallback = lifespan.Range{Min: 10, Typical: 15, Max: 20}

const defaultHVACAgeBucket = "6-10"

// HVACPresenceRule predicts whether the property has an HVAC system.
type HVACPresenceRule struct{}

func (HVACPresenceRule) Field() model.FieldName { return model.FieldHVACPresence }

func (HVACPresenceRule) Evaluate(in Input) (*Outcome, error) {
	// A declared cooling type (including an explicit "none") is the
	// strongest available signal.
	if in.Assessor != nil && strings.TrimSpace(in.Assessor.CoolingType) != "" {
		value := "false"
		cross := false
		if in.Assessor.HasCooling() {
			value = "true"
			cross = crossValidated(in, model.SystemHVAC, model.SourceAssessor)
		}
		score := confidence.Compute(confidence.Input{
			Source:         model.SourceAssessor,
			Now:            in.Now,
			CrossValidated: cross,
			ClimateZone:    in.Zone,
		})
		return &Outcome{
			Field:      model.FieldHVACPresence,
			Value:      value,
			Confidence: score.Value,
			Provenance: model.Provenance{
				Source:      model.SourceAssessor,
				Evidence:    []string{evidenceAssessor},
				Modifiers:   score.Modifiers,
				ClimateZone: in.Zone,
			},
		}, nil
	}

	if p, ok := in.Classifier.LatestMatch(model.SystemHVAC, in.Permits); ok {
		score := confidence.Compute(confidence.Input{
			Source:      model.SourcePermit,
			ObservedAt:  p.IssuedDate,
			Now:         in.Now,
			ClimateZone: in.Zone,
		})
		return &Outcome{
			Field:      model.FieldHVACPresence,
			Value:      "true",
			Confidence: score.Value,
			Provenance: model.Provenance{
				Source:      model.SourcePermit,
				Evidence:    []string{evidencePermits},
				Modifiers:   score.Modifiers,
				ClimateZone: in.Zone,
				ObservedAt:  p.IssuedDate,
			},
		}, nil
	}

	// Nearly all housing stock has some HVAC system.
	return defaultOutcome(in, model.FieldHVACPresence, "true"), nil
}

// HVACTypeRule predicts the HVAC system type.
type HVACTypeRule struct{}

func (HVACTypeRule) Field() model.FieldName { return model.FieldHVACSystemType }

func (HVACTypeRule) Evaluate(in Input) (*Outcome, error) {
	return typeOutcome(in, model.FieldHVACSystemType, model.SystemHVAC,
		func() (string, model.SourceKind) {
			return evidence.InferHVACSubtype(in.Assessor, in.Classifier, in.Permits, in.Zone)
		})
}

// HVACAgeRule predicts the HVAC age bucket.
type HVACAgeRule struct{}

func (HVACAgeRule) Field() model.FieldName { return model.FieldHVACAgeBucket }

func (HVACAgeRule) Evaluate(in Input) (*Outcome, error) {
	subtype, _ := evidence.InferHVACSubtype(in.Assessor, in.Classifier, in.Permits, in.Zone)
	return ageOutcome(in, model.FieldHVACAgeBucket, model.SystemHVAC, subtype, hvacFallback, defaultHVACAgeBucket)
}
