// Package bucket maps continuous ages to discrete ordinal labels with
// system-type-specific boundaries.
package bucket

import (
	"math"

	"github.com/upkeephq/predict-cli/internal/model"
)

type band struct {
	max   float64
	label string
}

// Roof bands are coarser; water heater bands are finer given its shorter
// expected life. Boundaries never change mid-run.
var bands = map[model.SystemType][]band{
	model.SystemRoof: {
		{5, "0-5"}, {10, "6-10"}, {15, "11-15"}, {20, "16-20"}, {25, "21-25"}, {30, "26-30"},
	},
	model.SystemHVAC: {
		{5, "0-5"}, {10, "6-10"}, {15, "11-15"}, {20, "16-20"},
	},
	model.SystemWaterHeater: {
		{3, "0-3"}, {6, "4-6"}, {9, "7-9"}, {12, "10-12"},
	},
}

// openLabel is the open-ended top band per system.
var openLabel = map[model.SystemType]string{
	model.SystemRoof:        "30+",
	model.SystemHVAC:        "20+",
	model.SystemWaterHeater: "13+",
}

// ForAge maps an age in years to the system's bucket label. Fractional ages
// floor to completed years, so a 5.3-year-old component is still "0-5". The
// function is total: every non-negative age maps to exactly one label, and
// negative ages are treated as zero.
func ForAge(system model.SystemType, ageYears float64) string {
	age := math.Floor(ageYears)
	if age < 0 {
		age = 0
	}
	for _, b := range bands[system] {
		if age <= b.max {
			return b.label
		}
	}
	return openLabel[system]
}
