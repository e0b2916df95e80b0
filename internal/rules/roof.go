package rules

import (
	"github.com/upkeephq/predict-cli/internal/evidence"
	"github.com/upkeephq/predict-cli/internal/lifespan"
	"github.com/upkeephq/predict-cli/internal/model"
)

// Hard-coded fallback range used when the reference table has no row at
// either fallback level.
var roofFallback = lifespan.Range{Min: 15, Typical: 20, Max: 25}

// defaultRoofAgeBucket is the fixed statistical default when no age evidence
// of any kind exists.
const defaultRoofAgeBucket = "11-15"

// RoofAgeRule predicts the roof age bucket.
type RoofAgeRule struct{}

func (RoofAgeRule) Field() model.FieldName { return model.FieldRoofAgeBucket }

func (RoofAgeRule) Evaluate(in Input) (*Outcome, error) {
	material, materialKind := evidence.InferRoofMaterial(in.Assessor, in.Classifier, in.Permits, in.Zone)

	// A declared roof cover conditioned the lifespan lookup, so it counts as
	// contributing evidence even when the age came from elsewhere.
	var extra []string
	if materialKind == model.SourceAssessor {
		extra = append(extra, evidenceAssessor)
	}

	return ageOutcome(in, model.FieldRoofAgeBucket, model.SystemRoof, material, roofFallback, defaultRoofAgeBucket, extra...)
}
