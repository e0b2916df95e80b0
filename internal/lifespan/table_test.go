package lifespan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upkeephq/predict-cli/internal/climate"
	"github.com/upkeephq/predict-cli/internal/model"
)

func TestLookup_ExactZone(t *testing.T) {
	tbl := NewTable(Seed())

	r, zone, ok := tbl.Lookup(model.SystemRoof, model.RoofMaterialShingle, climate.ZoneFlorida)
	require.True(t, ok)
	assert.Equal(t, climate.ZoneFlorida, zone)
	assert.Equal(t, 15.0, r.Typical)
	assert.Equal(t, 20.0, r.Max)
}

func TestLookup_FallsBackToDefaultZone(t *testing.T) {
	tbl := NewTable(Seed())

	// Metal roof has no cold-zone row; the national default serves.
	r, zone, ok := tbl.Lookup(model.SystemRoof, model.RoofMaterialMetal, climate.ZoneCold)
	require.True(t, ok)
	assert.Equal(t, climate.ZoneDefault, zone)
	assert.Equal(t, 45.0, r.Typical)
}

func TestLookup_UnknownSubtype(t *testing.T) {
	tbl := NewTable(Seed())

	_, _, ok := tbl.Lookup(model.SystemRoof, "thatch", climate.ZoneFlorida)
	assert.False(t, ok)
}

func TestLookupOr_HardFallback(t *testing.T) {
	tbl := NewTable(Seed())

	fb := Range{Min: 10, Typical: 15, Max: 20}
	got := tbl.LookupOr(model.SystemRoof, "thatch", climate.ZoneFlorida, fb)
	assert.Equal(t, fb, got)
}

func TestLookup_Idempotent(t *testing.T) {
	tbl := NewTable(Seed())

	first, firstZone, ok := tbl.Lookup(model.SystemHVAC, model.HVACSplitSystem, climate.ZoneFlorida)
	require.True(t, ok)
	for i := 0; i < 5; i++ {
		r, zone, ok := tbl.Lookup(model.SystemHVAC, model.HVACSplitSystem, climate.ZoneFlorida)
		require.True(t, ok)
		assert.Equal(t, first, r)
		assert.Equal(t, firstZone, zone)
	}
}

func TestNewTable_LaterDuplicatesWin(t *testing.T) {
	override := entry(model.SystemRoof, model.RoofMaterialShingle, climate.ZoneFlorida, 10, 13, 18)
	tbl := NewTable(append(Seed(), override))

	r, _, ok := tbl.Lookup(model.SystemRoof, model.RoofMaterialShingle, climate.ZoneFlorida)
	require.True(t, ok)
	assert.Equal(t, 13.0, r.Typical)
}

func TestSeed_RangesAreOrdered(t *testing.T) {
	for _, e := range Seed() {
		assert.LessOrEqual(t, e.Range.Min, e.Range.Typical, "%s/%s/%s", e.System, e.Subtype, e.Zone)
		assert.LessOrEqual(t, e.Range.Typical, e.Range.Max, "%s/%s/%s", e.System, e.Subtype, e.Zone)
	}
}

func TestSeed_QualityTiers(t *testing.T) {
	for _, e := range Seed() {
		if e.Zone == climate.ZoneDefault {
			assert.Equal(t, tierNational, e.QualityTier)
		} else {
			assert.Equal(t, tierRegional, e.QualityTier)
		}
	}
}
