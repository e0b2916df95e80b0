package climate

// FactorEntry is one (zone, factor type) multiplier applied to a lifespan
// figure. Multipliers below 1.0 shorten expected life.
type FactorEntry struct {
	Zone       string  `json:"zone"`
	FactorType string  `json:"factor_type"`
	Multiplier float64 `json:"multiplier"`
}

// FactorTable is an immutable lookup of climate adjustment factors. Multiple
// factors for the same zone compose multiplicatively.
type FactorTable struct {
	byZone map[string][]FactorEntry
}

// NewFactorTable indexes the given entries by zone. Entries with a
// non-positive multiplier are dropped rather than zeroing lifespans.
func NewFactorTable(entries []FactorEntry) *FactorTable {
	t := &FactorTable{byZone: make(map[string][]FactorEntry)}
	for _, e := range entries {
		if e.Multiplier <= 0 {
			continue
		}
		t.byZone[e.Zone] = append(t.byZone[e.Zone], e)
	}
	return t
}

// DefaultFactors returns the built-in climate factor seed data.
func DefaultFactors() []FactorEntry {
	return []FactorEntry{
		{Zone: ZoneFlorida, FactorType: "humidity", Multiplier: 0.88},
		{Zone: ZoneFlorida, FactorType: "uv_exposure", Multiplier: 0.92},
		{Zone: ZoneFlorida, FactorType: "salt_air", Multiplier: 0.95},

		{Zone: ZoneCoastal, FactorType: "humidity", Multiplier: 0.92},
		{Zone: ZoneCoastal, FactorType: "salt_air", Multiplier: 0.93},

		{Zone: ZoneArid, FactorType: "uv_exposure", Multiplier: 0.90},
		{Zone: ZoneArid, FactorType: "low_humidity", Multiplier: 1.05},

		{Zone: ZoneCold, FactorType: "freeze_thaw", Multiplier: 0.91},
	}
}

// Apply multiplies years by every factor registered for the zone. Zones with
// no factors (including ZoneDefault) return years unchanged.
func (t *FactorTable) Apply(zone string, years float64) float64 {
	for _, e := range t.byZone[zone] {
		years *= e.Multiplier
	}
	return years
}

// Factors returns the entries registered for a zone, for provenance reporting.
func (t *FactorTable) Factors(zone string) []FactorEntry {
	return t.byZone[zone]
}
