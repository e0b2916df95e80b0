package evidence

import (
	"regexp"
	"strings"

	"github.com/upkeephq/predict-cli/internal/model"
)

// PatternSet defines the inclusion patterns for one system. A permit matches
// when any keyword appears, or when a verb and a noun co-occur.
type PatternSet struct {
	Keywords []string `yaml:"keywords"`
	Verbs    []string `yaml:"verbs"`
	Nouns    []string `yaml:"nouns"`
}

// tonnageRe catches capacity mentions like "4 ton" or "2.5-ton", a strong
// HVAC signal even without other keywords.
var tonnageRe = regexp.MustCompile(`\b\d+(\.\d+)?[ -]?ton`)

// defaultExclusions disqualify a permit for every system. Generic permit
// descriptions are noisy; a "misc: paver + shutter" permit must never count
// as HVAC evidence no matter which inclusion verbs it also contains.
var defaultExclusions = []string{
	"hurricane shutter",
	"shutter",
	"paver",
	"pool",
	"spa",
	"deck",
	"fence",
	"driveway",
	"screen enclosure",
	"solar",
	"irrigation",
	"landscap",
}

var defaultPatterns = map[model.SystemType]PatternSet{
	model.SystemHVAC: {
		Keywords: []string{
			"a/c", "air condition", "hvac", "heat pump",
			"mini split", "mini-split", "split system", "package unit",
			"package system", "condenser", "air handler", "furnace",
		},
		Verbs: []string{"change out", "changeout", "change-out", "replace", "install", "new"},
		Nouns: []string{"cooling", "heating", "ac unit", "compressor"},
	},
	model.SystemRoof: {
		Keywords: []string{
			"reroof", "re-roof", "roof replacement", "shingle",
			"underlayment", "roofing",
		},
		Verbs: []string{"replace", "install", "new", "tear off", "tear-off"},
		Nouns: []string{"roof"},
	},
	model.SystemWaterHeater: {
		Keywords: []string{"water heater", "hot water tank", "tankless", "hwh"},
		Verbs:    []string{"replace", "install", "new"},
		Nouns:    []string{"water heater"},
	},
}

// Classifier decides whether a permit is relevant evidence for a system.
// Exclusion patterns are evaluated first and are absolute.
type Classifier struct {
	exclusions []string
	systems    map[model.SystemType]PatternSet
}

// NewClassifier returns a classifier with the built-in pattern sets.
func NewClassifier() *Classifier {
	systems := make(map[model.SystemType]PatternSet, len(defaultPatterns))
	for st, ps := range defaultPatterns {
		systems[st] = ps
	}
	return &Classifier{
		exclusions: append([]string(nil), defaultExclusions...),
		systems:    systems,
	}
}

// WithExclusions appends extra exclusion patterns (e.g. from the reference
// config file).
func (c *Classifier) WithExclusions(patterns []string) *Classifier {
	for _, p := range patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			c.exclusions = append(c.exclusions, p)
		}
	}
	return c
}

// WithPatterns merges extra inclusion patterns for a system.
func (c *Classifier) WithPatterns(system model.SystemType, ps PatternSet) *Classifier {
	cur := c.systems[system]
	cur.Keywords = append(cur.Keywords, lowerAll(ps.Keywords)...)
	cur.Verbs = append(cur.Verbs, lowerAll(ps.Verbs)...)
	cur.Nouns = append(cur.Nouns, lowerAll(ps.Nouns)...)
	c.systems[system] = cur
	return c
}

// Excluded reports whether the permit text matches any exclusion pattern.
func (c *Classifier) Excluded(p Permit) bool {
	text := p.Text()
	for _, pattern := range c.exclusions {
		if strings.Contains(text, pattern) {
			return true
		}
	}
	return false
}

// Matches reports whether the permit is relevant evidence for the given
// system. Any exclusion match disqualifies the permit regardless of
// inclusion matches.
func (c *Classifier) Matches(system model.SystemType, p Permit) bool {
	if c.Excluded(p) {
		return false
	}

	text := p.Text()
	ps := c.systems[system]

	for _, kw := range ps.Keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}

	if system == model.SystemHVAC && tonnageRe.MatchString(text) {
		return true
	}

	// Replacement verbs only count when paired with a system noun.
	if containsAny(text, ps.Verbs) && containsAny(text, ps.Nouns) {
		return true
	}

	return false
}

// LatestMatch returns the most recently issued permit matching the system.
// Dated matches win over dateless ones; among dateless matches the last one
// in snapshot order is kept.
func (c *Classifier) LatestMatch(system model.SystemType, permits []Permit) (Permit, bool) {
	var best Permit
	var found bool
	for _, p := range permits {
		if !c.Matches(system, p) {
			continue
		}
		switch {
		case !found:
			best, found = p, true
		case p.IssuedDate != nil && best.IssuedDate == nil:
			best = p
		case p.IssuedDate != nil && best.IssuedDate != nil && p.IssuedDate.After(*best.IssuedDate):
			best = p
		case p.IssuedDate == nil && best.IssuedDate == nil:
			best = p
		}
	}
	return best, found
}

func containsAny(text string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
