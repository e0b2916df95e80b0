package evidence

import (
	"strings"

	"github.com/upkeephq/predict-cli/internal/climate"
	"github.com/upkeephq/predict-cli/internal/model"
)

// Subtype inferencers share one precedence: a declared assessor field wins,
// free-text keywords from a matching permit are checked second, and a
// climate-conditioned statistical default is the final fallback. The
// returned SourceKind records which step produced the value.

// InferRoofMaterial infers the roof covering material.
func InferRoofMaterial(a *Assessor, c *Classifier, permits []Permit, zone string) (string, model.SourceKind) {
	if a != nil {
		cover := strings.ToLower(a.RoofCover)
		switch {
		case strings.Contains(cover, "tile"):
			return model.RoofMaterialTile, model.SourceAssessor
		case strings.Contains(cover, "metal"), strings.Contains(cover, "steel"), strings.Contains(cover, "alum"):
			return model.RoofMaterialMetal, model.SourceAssessor
		case strings.Contains(cover, "shingle"), strings.Contains(cover, "asphalt"), strings.Contains(cover, "composition"):
			return model.RoofMaterialShingle, model.SourceAssessor
		}
	}

	if p, ok := c.LatestMatch(model.SystemRoof, permits); ok {
		text := p.Text()
		switch {
		case strings.Contains(text, "tile"):
			return model.RoofMaterialTile, model.SourcePermit
		case strings.Contains(text, "metal"):
			return model.RoofMaterialMetal, model.SourcePermit
		case strings.Contains(text, "shingle"):
			return model.RoofMaterialShingle, model.SourcePermit
		}
	}

	if zone == climate.ZoneArid {
		return model.RoofMaterialTile, model.SourceStatisticalDefault
	}
	return model.RoofMaterialShingle, model.SourceStatisticalDefault
}

// InferHVACSubtype infers the HVAC system type.
func InferHVACSubtype(a *Assessor, c *Classifier, permits []Permit, zone string) (string, model.SourceKind) {
	if a != nil {
		cooling := strings.ToLower(a.CoolingType)
		heating := strings.ToLower(a.HeatingType)
		fuel := strings.ToLower(a.HeatingFuel)
		switch {
		case strings.Contains(cooling, "heat pump") || strings.Contains(heating, "heat pump"):
			return model.HVACHeatPump, model.SourceAssessor
		case strings.Contains(cooling, "package") || strings.Contains(heating, "package"):
			return model.HVACPackageUnit, model.SourceAssessor
		case a.HasCooling() && (strings.Contains(heating, "forced air") || strings.Contains(cooling, "central")):
			return model.HVACSplitSystem, model.SourceAssessor
		case !a.HasCooling() && (strings.Contains(fuel, "gas") || strings.Contains(heating, "furnace")):
			return model.HVACFurnace, model.SourceAssessor
		}
	}

	if p, ok := c.LatestMatch(model.SystemHVAC, permits); ok {
		text := p.Text()
		switch {
		case strings.Contains(text, "heat pump"):
			return model.HVACHeatPump, model.SourcePermit
		case strings.Contains(text, "package"):
			return model.HVACPackageUnit, model.SourcePermit
		case strings.Contains(text, "split"):
			return model.HVACSplitSystem, model.SourcePermit
		case strings.Contains(text, "furnace"):
			return model.HVACFurnace, model.SourcePermit
		}
	}

	if zone == climate.ZoneCold {
		return model.HVACFurnace, model.SourceStatisticalDefault
	}
	return model.HVACSplitSystem, model.SourceStatisticalDefault
}

// InferWaterHeaterSubtype infers the water heater type from the declared
// heating fuel, then permit text, then a climate-conditioned default.
func InferWaterHeaterSubtype(a *Assessor, c *Classifier, permits []Permit, zone string) (string, model.SourceKind) {
	if a != nil {
		fuel := strings.ToLower(a.HeatingFuel)
		switch {
		case strings.Contains(fuel, "gas"), strings.Contains(fuel, "propane"):
			return model.WaterHeaterTankGas, model.SourceAssessor
		case strings.Contains(fuel, "electric"):
			return model.WaterHeaterTankElectric, model.SourceAssessor
		}
	}

	if p, ok := c.LatestMatch(model.SystemWaterHeater, permits); ok {
		text := p.Text()
		switch {
		case strings.Contains(text, "tankless"):
			return model.WaterHeaterTankless, model.SourcePermit
		case strings.Contains(text, "gas"):
			return model.WaterHeaterTankGas, model.SourcePermit
		case strings.Contains(text, "electric"):
			return model.WaterHeaterTankElectric, model.SourcePermit
		}
	}

	// Electric tanks dominate in Florida's housing stock; gas elsewhere.
	if zone == climate.ZoneFlorida {
		return model.WaterHeaterTankElectric, model.SourceStatisticalDefault
	}
	return model.WaterHeaterTankGas, model.SourceStatisticalDefault
}
