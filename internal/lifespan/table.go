// Package lifespan holds the service-life reference table for tracked home
// systems, keyed by (system type, subtype, climate zone).
package lifespan

import (
	"github.com/upkeephq/predict-cli/internal/climate"
	"github.com/upkeephq/predict-cli/internal/model"
)

// Range is an expected service-life range in years.
type Range struct {
	Min     float64 `json:"min_years"`
	Typical float64 `json:"typical_years"`
	Max     float64 `json:"max_years"`
}

// Entry is one reference row. QualityTier distinguishes zone-specific
// regional figures from national defaults.
type Entry struct {
	System      model.SystemType `json:"system_type"`
	Subtype     string           `json:"subtype"`
	Zone        string           `json:"climate_zone"`
	Range       Range            `json:"range"`
	QualityTier string           `json:"quality_tier"`
}

type key struct {
	system  model.SystemType
	subtype string
	zone    string
}

// Table is an immutable lifespan lookup. It is built once per run and passed
// read-only into each field rule.
type Table struct {
	entries map[key]Entry
}

// NewTable indexes the given entries. Later duplicates win, so callers can
// layer store-loaded rows over the built-in seed.
func NewTable(entries []Entry) *Table {
	t := &Table{entries: make(map[key]Entry, len(entries))}
	for _, e := range entries {
		t.entries[key{e.System, e.Subtype, e.Zone}] = e
	}
	return t
}

// Lookup resolves a range with two-level fallback: the exact zone row first,
// then the zone-agnostic default row. The returned zone is the one actually
// matched; ok is false when neither row exists and the caller must use its
// own hard-coded fallback.
func (t *Table) Lookup(system model.SystemType, subtype, zone string) (Range, string, bool) {
	if e, ok := t.entries[key{system, subtype, zone}]; ok {
		return e.Range, zone, true
	}
	if e, ok := t.entries[key{system, subtype, climate.ZoneDefault}]; ok {
		return e.Range, climate.ZoneDefault, true
	}
	return Range{}, "", false
}

// LookupOr resolves a range, falling back to fb when no row exists at either
// fallback level.
func (t *Table) LookupOr(system model.SystemType, subtype, zone string, fb Range) Range {
	if r, _, ok := t.Lookup(system, subtype, zone); ok {
		return r
	}
	return fb
}

// Len returns the number of indexed entries.
func (t *Table) Len() int {
	return len(t.entries)
}
