// Package rules implements one prediction rule per output field. Each rule
// is stateless and walks the same precedence chain: permit evidence, then
// structured assessor fields, then home-age inference, then a statistical
// default. The first source that yields a usable signal wins.
package rules

import (
	"strings"
	"time"

	"github.com/upkeephq/predict-cli/internal/bucket"
	"github.com/upkeephq/predict-cli/internal/climate"
	"github.com/upkeephq/predict-cli/internal/confidence"
	"github.com/upkeephq/predict-cli/internal/evidence"
	"github.com/upkeephq/predict-cli/internal/lifespan"
	"github.com/upkeephq/predict-cli/internal/model"
)

// Input bundles the read-only inputs shared by every rule in a run. Nothing
// here is mutated by rule evaluation.
type Input struct {
	Property model.Property
	Permits  []evidence.Permit
	Assessor *evidence.Assessor

	// Zone is the resolved climate zone. ZoneFromAddress records that it was
	// resolved from address-standardizer metadata rather than the property's
	// own region code; zone-conditioned defaults then count as address
	// cross-reference evidence.
	Zone            string
	ZoneFromAddress bool

	Lifespans  *lifespan.Table
	Factors    *climate.FactorTable
	Classifier *evidence.Classifier
	Now        time.Time
}

// Outcome is one rule's prediction: a value, a confidence, and the
// provenance explaining both.
type Outcome struct {
	Field      model.FieldName
	Value      string
	Confidence float64
	Provenance model.Provenance
}

// Rule produces the prediction for a single field.
type Rule interface {
	Field() model.FieldName
	Evaluate(in Input) (*Outcome, error)
}

// All returns every field rule in evaluation order.
func All() []Rule {
	return []Rule{
		RoofAgeRule{},
		HVACPresenceRule{},
		HVACTypeRule{},
		HVACAgeRule{},
		WaterHeaterTypeRule{},
		WaterHeaterAgeRule{},
	}
}

// Evidence source names as they appear in provenance evidence lists.
const (
	evidencePermits  = model.ProviderPermitRegistry
	evidenceAssessor = model.ProviderAssessor
	evidenceAddress  = model.ProviderAddressStandardizer
	evidenceProperty = "property_record"
)

// ageBasis is the resolved component-age estimate for an age-bucket rule.
type ageBasis struct {
	Age               float64
	Source            model.SourceKind
	ObservedAt        *time.Time
	HasPermit         bool
	Rebased           bool
	ExceedsMax        bool
	ReplacementLikely bool
	Evidence          []string
}

// adjustedRange resolves the lifespan range for a (system, subtype) pair.
// Climate factors regionalize national figures: they apply only when the
// lookup fell back to the zone-agnostic row, since zone-specific rows
// already encode regional conditions.
func adjustedRange(in Input, system model.SystemType, subtype string, fallback lifespan.Range) lifespan.Range {
	r, matchedZone, ok := in.Lifespans.Lookup(system, subtype, in.Zone)
	if !ok {
		return fallback
	}
	if matchedZone == climate.ZoneDefault && in.Zone != climate.ZoneDefault && in.Factors != nil {
		r.Min = in.Factors.Apply(in.Zone, r.Min)
		r.Typical = in.Factors.Apply(in.Zone, r.Typical)
		r.Max = in.Factors.Apply(in.Zone, r.Max)
	}
	return r
}

// estimateAge resolves a component age. A dated permit gives a direct age;
// otherwise the home's age is used with the typical-replacement adjustment:
// when the home has outlived the typical lifespan, one replacement is
// assumed and the age re-bases to home_age - typical. This adjustment
// applies uniformly to all system types. Returns nil when no age evidence
// of any kind exists.
func estimateAge(in Input, system model.SystemType, subtype string, fallback lifespan.Range) (*ageBasis, lifespan.Range) {
	rng := adjustedRange(in, system, subtype, fallback)

	permit, matched := in.Classifier.LatestMatch(system, in.Permits)
	if matched && permit.IssuedDate != nil {
		basis := &ageBasis{
			Age:        yearsSince(*permit.IssuedDate, in.Now),
			Source:     model.SourcePermit,
			ObservedAt: permit.IssuedDate,
			HasPermit:  true,
			Evidence:   []string{evidencePermits},
		}
		basis.ExceedsMax = basis.Age > rng.Max
		return basis, rng
	}

	homeAge, src, ok := homeAge(in)
	if !ok {
		return nil, rng
	}

	basis := &ageBasis{
		Age:       homeAge,
		Source:    model.SourceAgeInference,
		HasPermit: matched, // a dateless match still corroborates
		Evidence:  []string{src},
	}
	if matched {
		basis.Evidence = append(basis.Evidence, evidencePermits)
	}
	if homeAge > rng.Typical {
		basis.Age = homeAge - rng.Typical
		basis.Rebased = true
	}
	basis.ExceedsMax = basis.Age > rng.Max
	basis.ReplacementLikely = basis.ExceedsMax && !basis.HasPermit
	return basis, rng
}

// homeAge reads the home's age from the property record, falling back to the
// assessor-declared year built.
func homeAge(in Input) (float64, string, bool) {
	if age, ok := in.Property.HomeAge(in.Now); ok {
		return age, evidenceProperty, true
	}
	if in.Assessor != nil && in.Assessor.YearBuilt != nil {
		age := float64(in.Now.Year() - *in.Assessor.YearBuilt)
		if age >= 0 {
			return age, evidenceAssessor, true
		}
	}
	return 0, "", false
}

func yearsSince(t, now time.Time) float64 {
	return now.Sub(t).Hours() / (24 * 365.25)
}

// assessorCorroborates reports whether the assessor record declares anything
// about the system, for cross-validation of permit-derived signals.
func assessorCorroborates(system model.SystemType, a *evidence.Assessor) bool {
	if a == nil {
		return false
	}
	switch system {
	case model.SystemRoof:
		return strings.TrimSpace(a.RoofCover) != ""
	case model.SystemHVAC:
		return a.HasCooling() || strings.TrimSpace(a.HeatingType) != ""
	case model.SystemWaterHeater:
		return strings.TrimSpace(a.HeatingFuel) != ""
	}
	return false
}

// defaultOutcome builds the zero-evidence outcome: a fixed statistical
// default value at the lowest confidence tier. Every field always produces
// some prediction.
func defaultOutcome(in Input, field model.FieldName, value string) *Outcome {
	score := confidence.Compute(confidence.Input{
		Source:      model.SourceStatisticalDefault,
		Now:         in.Now,
		ClimateZone: in.Zone,
	})
	return &Outcome{
		Field:      field,
		Value:      value,
		Confidence: score.Value,
		Provenance: model.Provenance{
			Source:      model.SourceStatisticalDefault,
			Modifiers:   score.Modifiers,
			ClimateZone: in.Zone,
		},
	}
}

// typeOutcome builds the outcome for a subtype-prediction field from an
// inferencer result.
func typeOutcome(in Input, field model.FieldName, system model.SystemType, infer func() (string, model.SourceKind)) (*Outcome, error) {
	value, kind := infer()

	// A zone-conditioned default is an address cross-reference when the zone
	// itself came from standardizer metadata.
	if kind == model.SourceStatisticalDefault && in.ZoneFromAddress && in.Zone != climate.ZoneDefault {
		kind = model.SourceAddressXref
	}

	var observedAt *time.Time
	var evid []string
	switch kind {
	case model.SourcePermit:
		if p, ok := in.Classifier.LatestMatch(system, in.Permits); ok {
			observedAt = p.IssuedDate
		}
		evid = []string{evidencePermits}
	case model.SourceAssessor:
		evid = []string{evidenceAssessor}
	case model.SourceAddressXref:
		evid = []string{evidenceAddress}
	}

	score := confidence.Compute(confidence.Input{
		Source:         kind,
		ObservedAt:     observedAt,
		Now:            in.Now,
		CrossValidated: crossValidated(in, system, kind),
		ClimateZone:    in.Zone,
	})

	return &Outcome{
		Field:      field,
		Value:      value,
		Confidence: score.Value,
		Provenance: model.Provenance{
			Source:      kind,
			Evidence:    evid,
			Modifiers:   score.Modifiers,
			ClimateZone: in.Zone,
			ObservedAt:  observedAt,
		},
	}, nil
}

// ageOutcome builds the outcome for an age-bucket field. extraEvidence names
// sources that conditioned the lifespan lookup without driving the age.
func ageOutcome(in Input, field model.FieldName, system model.SystemType, subtype string, fallback lifespan.Range, defaultBucket string, extraEvidence ...string) (*Outcome, error) {
	basis, _ := estimateAge(in, system, subtype, fallback)
	if basis == nil {
		return defaultOutcome(in, field, defaultBucket), nil
	}

	evid := basis.Evidence
	for _, e := range extraEvidence {
		if !contains(evid, e) {
			evid = append(evid, e)
		}
	}

	score := confidence.Compute(confidence.Input{
		Source:             basis.Source,
		ObservedAt:         basis.ObservedAt,
		Now:                in.Now,
		CrossValidated:     crossValidated(in, system, basis.Source),
		ClimateZone:        in.Zone,
		ExceedsMaxLifespan: basis.ExceedsMax,
		HasPermit:          basis.HasPermit,
	})

	replacement := basis.ReplacementLikely
	return &Outcome{
		Field:      field,
		Value:      bucket.ForAge(system, basis.Age),
		Confidence: score.Value,
		Provenance: model.Provenance{
			Source:            basis.Source,
			Evidence:          evid,
			Modifiers:         score.Modifiers,
			ClimateZone:       in.Zone,
			ReplacementLikely: &replacement,
			ObservedAt:        basis.ObservedAt,
		},
	}, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// crossValidated reports whether two independent sources agree on a signal:
// a permit-derived value backed by a declared assessor field, or an
// assessor-derived value backed by a matching permit.
func crossValidated(in Input, system model.SystemType, primary model.SourceKind) bool {
	switch primary {
	case model.SourcePermit:
		return assessorCorroborates(system, in.Assessor)
	case model.SourceAssessor:
		_, matched := in.Classifier.LatestMatch(system, in.Permits)
		return matched
	}
	return false
}
