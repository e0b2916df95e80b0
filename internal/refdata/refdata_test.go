package refdata

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/upkeephq/predict-cli/internal/climate"
	"github.com/upkeephq/predict-cli/internal/evidence"
	"github.com/upkeephq/predict-cli/internal/lifespan"
	"github.com/upkeephq/predict-cli/internal/model"
	"github.com/upkeephq/predict-cli/internal/store"
)

func writeSheet(t *testing.T, name string, rows [][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(name)
	require.NoError(t, err)
	for _, cells := range rows {
		row := sheet.AddRow()
		for _, v := range cells {
			row.AddCell().Value = v
		}
	}
	path := filepath.Join(t.TempDir(), name+".xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestReadLifespans(t *testing.T) {
	path := writeSheet(t, "lifespans", [][]string{
		{"system", "subtype", "zone", "min_years", "typical_years", "max_years", "quality_tier"},
		{"roof", "Shingle", "Florida", "12", "15", "20", "regional"},
		{"hvac", "split_system", "default", "12", "15", "20"},
	})

	entries, err := ReadLifespans(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, model.SystemRoof, entries[0].System)
	assert.Equal(t, "shingle", entries[0].Subtype)
	assert.Equal(t, "florida", entries[0].Zone)
	assert.Equal(t, lifespan.Range{Min: 12, Typical: 15, Max: 20}, entries[0].Range)
	assert.Equal(t, "regional", entries[0].QualityTier)
	assert.Empty(t, entries[1].QualityTier)
}

func TestReadLifespans_BadYears(t *testing.T) {
	path := writeSheet(t, "lifespans", [][]string{
		{"system", "subtype", "zone", "min_years", "typical_years", "max_years"},
		{"roof", "shingle", "default", "fifteen", "20", "25"},
	})

	_, err := ReadLifespans(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 2")
}

func TestReadLifespans_ShortRow(t *testing.T) {
	path := writeSheet(t, "lifespans", [][]string{
		{"system", "subtype", "zone", "min_years", "typical_years", "max_years"},
		{"roof", "shingle", "default"},
	})

	_, err := ReadLifespans(path)
	require.Error(t, err)
}

func TestReadClimateFactors(t *testing.T) {
	path := writeSheet(t, "climate_factors", [][]string{
		{"zone", "factor_type", "multiplier"},
		{"florida", "humidity", "0.88"},
		{"arid", "low_humidity", "1.05"},
	})

	entries, err := ReadClimateFactors(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, climate.FactorEntry{Zone: "florida", FactorType: "humidity", Multiplier: 0.88}, entries[0])
}

func TestImport_RoundTripThroughStore(t *testing.T) {
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "refdata.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	ctx := context.Background()
	require.NoError(t, st.Migrate(ctx))

	path := writeSheet(t, "lifespans", [][]string{
		{"system", "subtype", "zone", "min_years", "typical_years", "max_years", "quality_tier"},
		{"roof", "shingle", "florida", "12", "15", "20", "regional"},
	})

	n, err := ImportLifespans(ctx, st, path)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	entries, err := st.ListLifespans(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "florida", entries[0].Zone)
}

func TestSeedDefaults(t *testing.T) {
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "seed.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	ctx := context.Background()
	require.NoError(t, st.Migrate(ctx))

	require.NoError(t, SeedDefaults(ctx, st))

	ls, err := st.ListLifespans(ctx)
	require.NoError(t, err)
	assert.Len(t, ls, len(lifespan.Seed()))

	fs, err := st.ListClimateFactors(ctx)
	require.NoError(t, err)
	assert.Len(t, fs, len(climate.DefaultFactors()))
}

func TestLoadPatterns(t *testing.T) {
	yml := `
patterns:
  exclusions:
    - gazebo
  systems:
    hvac:
      keywords:
        - swamp cooler
`
	path := filepath.Join(t.TempDir(), "patterns.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	c, err := LoadPatterns(path)
	require.NoError(t, err)

	assert.True(t, c.Matches(model.SystemHVAC, evidence.Permit{Description: "Swamp cooler replacement"}))
	assert.False(t, c.Matches(model.SystemHVAC, evidence.Permit{Description: "gazebo with a/c hookup"}))
}

func TestLoadPatterns_UnknownSystem(t *testing.T) {
	yml := `
patterns:
  systems:
    elevator:
      keywords: [lift]
`
	path := filepath.Join(t.TempDir(), "patterns.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	_, err := LoadPatterns(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown system")
}

func TestLoadPatterns_MissingFile(t *testing.T) {
	_, err := LoadPatterns(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
