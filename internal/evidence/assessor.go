package evidence

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// Assessor holds the structured fields of an assessor/valuation snapshot
// that the engine reads. Declared fields take precedence over free-text
// permit keywords in every subtype inference.
type Assessor struct {
	YearBuilt   *int     `json:"year_built,omitempty"`
	RoofCover   string   `json:"roof_cover,omitempty"`
	HeatingType string   `json:"heating_type,omitempty"`
	HeatingFuel string   `json:"heating_fuel,omitempty"`
	CoolingType string   `json:"cooling_type,omitempty"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
}

// ParseAssessor decodes an assessor payload.
func ParseAssessor(payload json.RawMessage) (*Assessor, error) {
	if len(payload) == 0 {
		return nil, nil
	}
	var a Assessor
	if err := json.Unmarshal(payload, &a); err != nil {
		return nil, eris.Wrap(err, "evidence: parse assessor payload")
	}
	return &a, nil
}

// HasCooling reports whether the assessor declares any cooling system.
func (a *Assessor) HasCooling() bool {
	if a == nil {
		return false
	}
	ct := strings.ToLower(strings.TrimSpace(a.CoolingType))
	return ct != "" && ct != "none"
}

// AddressInfo is the slice of an address-standardizer snapshot the engine
// uses: the standardized region code and, when present, coordinates for
// back-filling the property record.
type AddressInfo struct {
	RegionCode string   `json:"region_code,omitempty"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
}

// ParseAddressInfo decodes an address-standardizer payload.
func ParseAddressInfo(payload json.RawMessage) (*AddressInfo, error) {
	if len(payload) == 0 {
		return nil, nil
	}
	var ai AddressInfo
	if err := json.Unmarshal(payload, &ai); err != nil {
		return nil, eris.Wrap(err, "evidence: parse address payload")
	}
	return &ai, nil
}
