package evidence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upkeephq/predict-cli/internal/model"
)

func permit(desc string, issued string) Permit {
	p := Permit{Description: desc}
	if issued != "" {
		ts, err := time.Parse("2006-01-02", issued)
		if err != nil {
			panic(err)
		}
		p.IssuedDate = &ts
	}
	return p
}

func TestMatches_HVACKeywords(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		desc string
		want bool
	}{
		{"A/C change out 4 ton split system", true},
		{"Install new heat pump", true},
		{"HVAC replacement", true},
		{"Replace 2.5-ton condenser", true},
		{"Mini-split installation bedroom", true},
		{"Replace cooling system", true}, // verb + noun pair
		{"Kitchen remodel", false},
		{"Electrical panel upgrade", false},
		{"Install new windows", false},
	}
	for _, tc := range tests {
		t.Run(tc.desc, func(t *testing.T) {
			assert.Equal(t, tc.want, c.Matches(model.SystemHVAC, permit(tc.desc, "")))
		})
	}
}

func TestMatches_ExclusionIsAbsolute(t *testing.T) {
	c := NewClassifier()

	// "install" is an inclusion-style verb, but the exclusion patterns win.
	tests := []string{
		"misc: paver, shutter install",
		"hurricane shutter install",
		"install pool heat pump",
		"a/c for screen enclosure",
		"deck replacement with new heating lamps",
	}
	for _, desc := range tests {
		t.Run(desc, func(t *testing.T) {
			p := permit(desc, "")
			assert.True(t, c.Excluded(p))
			assert.False(t, c.Matches(model.SystemHVAC, p))
			assert.False(t, c.Matches(model.SystemRoof, p))
			assert.False(t, c.Matches(model.SystemWaterHeater, p))
		})
	}
}

func TestMatches_Roof(t *testing.T) {
	c := NewClassifier()

	assert.True(t, c.Matches(model.SystemRoof, permit("Reroof single family residence", "")))
	assert.True(t, c.Matches(model.SystemRoof, permit("Tear off and replace roof", "")))
	assert.True(t, c.Matches(model.SystemRoof, permit("Shingle replacement after storm", "")))
	assert.False(t, c.Matches(model.SystemRoof, permit("Roof-mounted solar array", "")))
	assert.False(t, c.Matches(model.SystemRoof, permit("Water heater swap", "")))
}

func TestMatches_WaterHeater(t *testing.T) {
	c := NewClassifier()

	assert.True(t, c.Matches(model.SystemWaterHeater, permit("Replace 40 gal water heater", "")))
	assert.True(t, c.Matches(model.SystemWaterHeater, permit("Tankless conversion", "")))
	assert.False(t, c.Matches(model.SystemWaterHeater, permit("Reroof", "")))
}

func TestMatches_WorkTypeFieldIsScanned(t *testing.T) {
	c := NewClassifier()

	p := Permit{Description: "Permit 2024-118", WorkType: "Mechanical - HVAC"}
	assert.True(t, c.Matches(model.SystemHVAC, p))
}

func TestLatestMatch_PrefersMostRecent(t *testing.T) {
	c := NewClassifier()

	permits := []Permit{
		permit("A/C change out", "2015-06-01"),
		permit("Replace heat pump", "2022-03-15"),
		permit("Reroof", "2023-01-01"),
	}

	got, ok := c.LatestMatch(model.SystemHVAC, permits)
	require.True(t, ok)
	assert.Equal(t, "Replace heat pump", got.Description)
}

func TestLatestMatch_DatedBeatsDateless(t *testing.T) {
	c := NewClassifier()

	permits := []Permit{
		permit("HVAC replacement", ""),
		permit("A/C change out", "2010-01-01"),
	}

	got, ok := c.LatestMatch(model.SystemHVAC, permits)
	require.True(t, ok)
	assert.Equal(t, "A/C change out", got.Description)
}

func TestLatestMatch_NoMatch(t *testing.T) {
	c := NewClassifier()

	_, ok := c.LatestMatch(model.SystemHVAC, []Permit{permit("Fence repair", "2020-01-01")})
	assert.False(t, ok)
}

func TestWithExclusions(t *testing.T) {
	c := NewClassifier().WithExclusions([]string{"Gazebo"})
	assert.True(t, c.Excluded(permit("gazebo with a/c", "")))
}

func TestWithPatterns(t *testing.T) {
	c := NewClassifier().WithPatterns(model.SystemHVAC, PatternSet{Keywords: []string{"chiller"}})
	assert.True(t, c.Matches(model.SystemHVAC, permit("Replace chiller", "")))
}
