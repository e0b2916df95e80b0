package model

import "time"

// ModelVersion tags every prediction row with the engine release that
// produced it, so historical runs remain comparable across releases.
const ModelVersion = "lifespan-v1"

// SystemType identifies a tracked home system.
type SystemType string

const (
	SystemRoof        SystemType = "roof"
	SystemHVAC        SystemType = "hvac"
	SystemWaterHeater SystemType = "water_heater"
)

// Roof material subtypes.
const (
	RoofMaterialShingle = "shingle"
	RoofMaterialTile    = "tile"
	RoofMaterialMetal   = "metal"
)

// HVAC subtypes.
const (
	HVACSplitSystem = "split_system"
	HVACPackageUnit = "package_unit"
	HVACHeatPump    = "heat_pump"
	HVACFurnace     = "furnace"
)

// Water heater subtypes.
const (
	WaterHeaterTankGas      = "tank_gas"
	WaterHeaterTankElectric = "tank_electric"
	WaterHeaterTankless     = "tankless"
)

// FieldName identifies one predicted output field.
type FieldName string

const (
	FieldRoofAgeBucket        FieldName = "roof_age_bucket"
	FieldHVACPresence         FieldName = "hvac_presence"
	FieldHVACSystemType       FieldName = "hvac_system_type"
	FieldHVACAgeBucket        FieldName = "hvac_age_bucket"
	FieldWaterHeaterType      FieldName = "water_heater_type"
	FieldWaterHeaterAgeBucket FieldName = "water_heater_age_bucket"
)

// AllFields lists every predicted field in evaluation order.
func AllFields() []FieldName {
	return []FieldName{
		FieldRoofAgeBucket,
		FieldHVACPresence,
		FieldHVACSystemType,
		FieldHVACAgeBucket,
		FieldWaterHeaterType,
		FieldWaterHeaterAgeBucket,
	}
}

// SourceKind is the kind of evidence that produced a prediction's primary
// signal. It keys the confidence base rate.
type SourceKind string

const (
	SourcePermit             SourceKind = "permit"
	SourceAssessor           SourceKind = "assessor"
	SourceAddressXref        SourceKind = "address_xref"
	SourceAgeInference       SourceKind = "age_inference"
	SourceStatisticalDefault SourceKind = "statistical_default"
)

// Provenance explains how a prediction's value and confidence were derived.
// It is a typed structure, not free text, so downstream consumers can
// pattern-match on it.
type Provenance struct {
	Source            SourceKind `json:"source"`
	Evidence          []string   `json:"evidence,omitempty"`
	Modifiers         []string   `json:"modifiers,omitempty"`
	ClimateZone       string     `json:"climate_zone"`
	ReplacementLikely *bool      `json:"replacement_likely,omitempty"`
	ObservedAt        *time.Time `json:"observed_at,omitempty"`
}

// Prediction is one predicted field value for one run. Runs are append-only:
// a new run never overwrites a prior run's rows.
type Prediction struct {
	AddressID    string     `json:"address_id"`
	RunID        string     `json:"run_id"`
	Field        FieldName  `json:"field"`
	Value        string     `json:"predicted_value"`
	Confidence   float64    `json:"confidence"`
	Provenance   Provenance `json:"provenance"`
	ModelVersion string     `json:"model_version"`
	CreatedAt    time.Time  `json:"created_at"`
}
