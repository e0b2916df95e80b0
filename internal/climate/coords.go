package climate

import (
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
)

// zoneRing is a closed lon/lat ring approximating one climate zone's extent.
// Rings are deliberately coarse: the coordinate path is only a fallback for
// properties whose standardized region code never arrived.
type zoneRing struct {
	zone string
	ring []float64 // flat XY coords, closed
}

var zoneRings = []zoneRing{
	{
		zone: ZoneFlorida,
		ring: []float64{
			-87.7, 24.4,
			-79.8, 24.4,
			-79.8, 31.1,
			-87.7, 31.1,
			-87.7, 24.4,
		},
	},
	{
		// Gulf and southern Atlantic coastal band.
		zone: ZoneCoastal,
		ring: []float64{
			-98.0, 25.8,
			-75.4, 25.8,
			-75.4, 35.6,
			-98.0, 35.6,
			-98.0, 25.8,
		},
	},
	{
		// Desert southwest.
		zone: ZoneArid,
		ring: []float64{
			-115.0, 31.3,
			-103.0, 31.3,
			-103.0, 39.0,
			-115.0, 39.0,
			-115.0, 31.3,
		},
	},
	{
		// Northern tier.
		zone: ZoneCold,
		ring: []float64{
			-125.0, 44.5,
			-66.9, 44.5,
			-66.9, 49.5,
			-125.0, 49.5,
			-125.0, 44.5,
		},
	},
}

// ResolveZoneCoords maps a coordinate pair to a climate zone by point-in-ring
// tests over the coarse zone extents. Rings are checked in declaration order,
// so the more specific florida ring wins over the coastal band that overlaps
// it. Points outside every ring resolve to ZoneDefault.
func ResolveZoneCoords(lat, lng float64) string {
	p := geom.Coord{lng, lat}
	for _, zr := range zoneRings {
		if xy.IsPointInRing(geom.XY, p, zr.ring) {
			return zr.zone
		}
	}
	return ZoneDefault
}
