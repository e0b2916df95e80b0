package rules

import (
	"github.com/upkeephq/predict-cli/internal/evidence"
	"github.com/upkeephq/predict-cli/internal/lifespan"
	"github.com/upkeephq/predict-cli/internal/model"
)

var waterHeaterFallback = lifespan.Range{Min: 8, Typical: 10, Max: 12}

const defaultWaterHeaterAgeBucket = "7-9"

// WaterHeaterTypeRule predicts the water heater type.
type WaterHeaterTypeRule struct{}

func (WaterHeaterTypeRule) Field() model.FieldName { return model.FieldWaterHeaterType }

func (WaterHeaterTypeRule) Evaluate(in Input) (*Outcome, error) {
	return typeOutcome(in, model.FieldWaterHeaterType, model.SystemWaterHeater,
		func() (string, model.SourceKind) {
			return evidence.InferWaterHeaterSubtype(in.Assessor, in.Classifier, in.Permits, in.Zone)
		})
}

// WaterHeaterAgeRule predicts the water heater age bucket.
type WaterHeaterAgeRule struct{}

func (WaterHeaterAgeRule) Field() model.FieldName { return model.FieldWaterHeaterAgeBucket }

func (WaterHeaterAgeRule) Evaluate(in Input) (*Outcome, error) {
	subtype, _ := evidence.InferWaterHeaterSubtype(in.Assessor, in.Classifier, in.Permits, in.Zone)
	return ageOutcome(in, model.FieldWaterHeaterAgeBucket, model.SystemWaterHeater, subtype, waterHeaterFallback, defaultWaterHeaterAgeBucket)
}
