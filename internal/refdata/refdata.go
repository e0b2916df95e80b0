// Package refdata imports lifespan reference tables and climate factor rows
// from spreadsheet files, and classifier pattern overrides from YAML.
package refdata

import (
	"context"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/upkeephq/predict-cli/internal/climate"
	"github.com/upkeephq/predict-cli/internal/lifespan"
	"github.com/upkeephq/predict-cli/internal/model"
	"github.com/upkeephq/predict-cli/internal/store"
)

// Expected sheet layouts. Column order is fixed; the first row is a header.
//
//	lifespans:        system | subtype | zone | min_years | typical_years | max_years | quality_tier
//	climate_factors:  zone | factor_type | multiplier

// ReadLifespans parses lifespan reference rows from an XLSX file.
func ReadLifespans(path string) ([]lifespan.Entry, error) {
	rows, err := readSheet(path, "lifespans")
	if err != nil {
		return nil, err
	}

	var entries []lifespan.Entry
	for i, row := range rows {
		if len(row) < 6 {
			return nil, eris.Errorf("refdata: lifespan row %d has %d columns, need 6", i+2, len(row))
		}
		min, err := parseYears(row[3], i)
		if err != nil {
			return nil, err
		}
		typical, err := parseYears(row[4], i)
		if err != nil {
			return nil, err
		}
		max, err := parseYears(row[5], i)
		if err != nil {
			return nil, err
		}

		e := lifespan.Entry{
			System:  model.SystemType(strings.ToLower(strings.TrimSpace(row[0]))),
			Subtype: strings.ToLower(strings.TrimSpace(row[1])),
			Zone:    strings.ToLower(strings.TrimSpace(row[2])),
			Range:   lifespan.Range{Min: min, Typical: typical, Max: max},
		}
		if len(row) > 6 {
			e.QualityTier = strings.TrimSpace(row[6])
		}
		if e.Subtype == "" || e.Zone == "" {
			return nil, eris.Errorf("refdata: lifespan row %d missing subtype or zone", i+2)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// ReadClimateFactors parses climate factor rows from an XLSX file.
func ReadClimateFactors(path string) ([]climate.FactorEntry, error) {
	rows, err := readSheet(path, "climate_factors")
	if err != nil {
		return nil, err
	}

	var entries []climate.FactorEntry
	for i, row := range rows {
		if len(row) < 3 {
			return nil, eris.Errorf("refdata: factor row %d has %d columns, need 3", i+2, len(row))
		}
		mult, err := strconv.ParseFloat(strings.TrimSpace(row[2]), 64)
		if err != nil {
			return nil, eris.Wrapf(err, "refdata: factor row %d multiplier", i+2)
		}
		entries = append(entries, climate.FactorEntry{
			Zone:       strings.ToLower(strings.TrimSpace(row[0])),
			FactorType: strings.ToLower(strings.TrimSpace(row[1])),
			Multiplier: mult,
		})
	}
	return entries, nil
}

// ImportLifespans reads an XLSX file and upserts its rows into the store.
func ImportLifespans(ctx context.Context, st store.Store, path string) (int, error) {
	entries, err := ReadLifespans(path)
	if err != nil {
		return 0, err
	}
	return st.UpsertLifespans(ctx, entries)
}

// ImportClimateFactors reads an XLSX file and upserts its rows into the store.
func ImportClimateFactors(ctx context.Context, st store.Store, path string) (int, error) {
	entries, err := ReadClimateFactors(path)
	if err != nil {
		return 0, err
	}
	return st.UpsertClimateFactors(ctx, entries)
}

// SeedDefaults loads the built-in reference data into the store.
func SeedDefaults(ctx context.Context, st store.Store) error {
	if _, err := st.UpsertLifespans(ctx, lifespan.Seed()); err != nil {
		return err
	}
	_, err := st.UpsertClimateFactors(ctx, climate.DefaultFactors())
	return err
}

// readSheet returns the data rows of the named sheet, falling back to the
// first sheet when the name is absent. The header row is skipped.
func readSheet(path, sheetName string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "refdata: open %s", path)
	}

	sheet, ok := f.Sheet[sheetName]
	if !ok {
		if len(f.Sheets) == 0 {
			return nil, eris.Errorf("refdata: %s has no sheets", path)
		}
		sheet = f.Sheets[0]
	}

	var rows [][]string
	for i, row := range sheet.Rows {
		if i == 0 {
			continue
		}
		cells := make([]string, len(row.Cells))
		empty := true
		for j, cell := range row.Cells {
			cells[j] = cell.String()
			if strings.TrimSpace(cells[j]) != "" {
				empty = false
			}
		}
		if empty {
			continue
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

func parseYears(s string, row int) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, eris.Wrapf(err, "refdata: lifespan row %d years", row+2)
	}
	return v, nil
}
