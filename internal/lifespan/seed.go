package lifespan

import (
	"github.com/upkeephq/predict-cli/internal/climate"
	"github.com/upkeephq/predict-cli/internal/model"
)

const (
	tierRegional = "regional"
	tierNational = "national"
)

func entry(system model.SystemType, subtype, zone string, min, typical, max float64) Entry {
	tier := tierRegional
	if zone == climate.ZoneDefault {
		tier = tierNational
	}
	return Entry{
		System:      system,
		Subtype:     subtype,
		Zone:        zone,
		Range:       Range{Min: min, Typical: typical, Max: max},
		QualityTier: tier,
	}
}

// Seed returns the built-in reference data. Store-loaded rows imported from
// the reference spreadsheet layer over these when present.
func Seed() []Entry {
	return []Entry{
		// Roof.
		entry(model.SystemRoof, model.RoofMaterialShingle, climate.ZoneDefault, 15, 20, 25),
		entry(model.SystemRoof, model.RoofMaterialShingle, climate.ZoneFlorida, 12, 15, 20),
		entry(model.SystemRoof, model.RoofMaterialShingle, climate.ZoneCoastal, 13, 17, 22),
		entry(model.SystemRoof, model.RoofMaterialShingle, climate.ZoneArid, 14, 18, 23),
		entry(model.SystemRoof, model.RoofMaterialShingle, climate.ZoneCold, 14, 18, 24),
		entry(model.SystemRoof, model.RoofMaterialTile, climate.ZoneDefault, 30, 40, 50),
		entry(model.SystemRoof, model.RoofMaterialTile, climate.ZoneFlorida, 25, 35, 45),
		entry(model.SystemRoof, model.RoofMaterialMetal, climate.ZoneDefault, 30, 45, 60),

		// HVAC.
		entry(model.SystemHVAC, model.HVACSplitSystem, climate.ZoneDefault, 12, 15, 20),
		entry(model.SystemHVAC, model.HVACSplitSystem, climate.ZoneFlorida, 8, 12, 15),
		entry(model.SystemHVAC, model.HVACSplitSystem, climate.ZoneCoastal, 10, 13, 17),
		entry(model.SystemHVAC, model.HVACSplitSystem, climate.ZoneArid, 10, 14, 18),
		entry(model.SystemHVAC, model.HVACPackageUnit, climate.ZoneDefault, 10, 14, 18),
		entry(model.SystemHVAC, model.HVACPackageUnit, climate.ZoneFlorida, 8, 11, 15),
		entry(model.SystemHVAC, model.HVACHeatPump, climate.ZoneDefault, 10, 14, 16),
		entry(model.SystemHVAC, model.HVACHeatPump, climate.ZoneFlorida, 8, 11, 14),
		entry(model.SystemHVAC, model.HVACFurnace, climate.ZoneDefault, 15, 20, 25),
		entry(model.SystemHVAC, model.HVACFurnace, climate.ZoneCold, 13, 18, 24),

		// Water heater.
		entry(model.SystemWaterHeater, model.WaterHeaterTankGas, climate.ZoneDefault, 8, 10, 12),
		entry(model.SystemWaterHeater, model.WaterHeaterTankGas, climate.ZoneFlorida, 6, 8, 10),
		entry(model.SystemWaterHeater, model.WaterHeaterTankElectric, climate.ZoneDefault, 10, 12, 15),
		entry(model.SystemWaterHeater, model.WaterHeaterTankElectric, climate.ZoneFlorida, 8, 10, 12),
		entry(model.SystemWaterHeater, model.WaterHeaterTankless, climate.ZoneDefault, 15, 20, 25),
	}
}
