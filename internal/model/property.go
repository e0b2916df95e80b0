package model

import "time"

// Property is the identity record for one address, created once at intake.
// It is read-only input to the prediction engine; the single permitted
// mutation is back-filling missing coordinates from an evidence source.
type Property struct {
	AddressID  string    `json:"address_id"`
	Line1      string    `json:"line1,omitempty"`
	City       string    `json:"city,omitempty"`
	State      string    `json:"state,omitempty"`
	Zip        string    `json:"zip,omitempty"`
	RegionCode string    `json:"region_code,omitempty"`
	YearBuilt  *int      `json:"year_built,omitempty"`
	Latitude   *float64  `json:"latitude,omitempty"`
	Longitude  *float64  `json:"longitude,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// HasCoordinates reports whether both latitude and longitude are set.
func (p *Property) HasCoordinates() bool {
	return p.Latitude != nil && p.Longitude != nil
}

// BackfillCoordinates sets coordinates only when both are currently absent.
// Returns true if the back-fill was applied.
func (p *Property) BackfillCoordinates(lat, lng float64) bool {
	if p.HasCoordinates() {
		return false
	}
	p.Latitude = &lat
	p.Longitude = &lng
	return true
}

// HomeAge returns the property's age in years as of now. The second return
// is false when year built is unknown or in the future.
func (p *Property) HomeAge(now time.Time) (float64, bool) {
	if p.YearBuilt == nil {
		return 0, false
	}
	age := float64(now.Year() - *p.YearBuilt)
	if age < 0 {
		return 0, false
	}
	return age, true
}
