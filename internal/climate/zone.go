// Package climate maps property locations to named climate zones and applies
// zone-conditioned adjustment factors to lifespan figures.
package climate

import "strings"

// ZoneDefault is returned for regions with no dedicated zone mapping.
// Lifespan lookups and confidence scoring both degrade gracefully on it.
const ZoneDefault = "default"

// Named climate zones.
const (
	ZoneFlorida = "florida"
	ZoneCoastal = "coastal"
	ZoneArid    = "arid"
	ZoneCold    = "cold"
)

// regionZones maps standardized two-letter region codes to climate zones.
var regionZones = map[string]string{
	"FL": ZoneFlorida,

	"AL": ZoneCoastal,
	"GA": ZoneCoastal,
	"LA": ZoneCoastal,
	"MS": ZoneCoastal,
	"NC": ZoneCoastal,
	"SC": ZoneCoastal,
	"TX": ZoneCoastal,

	"AZ": ZoneArid,
	"NM": ZoneArid,
	"NV": ZoneArid,
	"UT": ZoneArid,

	"AK": ZoneCold,
	"ME": ZoneCold,
	"MI": ZoneCold,
	"MN": ZoneCold,
	"MT": ZoneCold,
	"ND": ZoneCold,
	"NH": ZoneCold,
	"SD": ZoneCold,
	"VT": ZoneCold,
	"WI": ZoneCold,
	"WY": ZoneCold,
}

// ResolveZone maps a standardized region code to a climate zone. Unmapped
// regions resolve to ZoneDefault; there is no error case.
func ResolveZone(regionCode string) string {
	if z, ok := regionZones[strings.ToUpper(strings.TrimSpace(regionCode))]; ok {
		return z
	}
	return ZoneDefault
}
