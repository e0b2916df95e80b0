// Package evidence parses raw provider snapshots and extracts per-system
// signals: permit relevance, declared assessor attributes, and subtype
// inference with documented fallbacks.
package evidence

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Permit is one permit record from a permit-registry snapshot.
type Permit struct {
	PermitID    string     `json:"permit_id"`
	Description string     `json:"description"`
	WorkType    string     `json:"work_type"`
	Status      string     `json:"status,omitempty"`
	IssuedDate  *time.Time `json:"issued_date,omitempty"`
}

// Text returns the lowercased free-text fields used for pattern matching.
func (p Permit) Text() string {
	return strings.ToLower(strings.TrimSpace(p.Description + " " + p.WorkType))
}

// permitPayload mirrors the permit-registry provider schema.
type permitPayload struct {
	Permits []struct {
		PermitID    string `json:"permit_id"`
		Description string `json:"description"`
		WorkType    string `json:"work_type"`
		Status      string `json:"status"`
		IssuedDate  string `json:"issued_date"`
	} `json:"permits"`
}

// ParsePermits decodes a permit-registry payload. Records with unparseable
// dates are kept dateless rather than dropped; a payload that does not decode
// at all is an error so the caller can flag the parse failure instead of
// coercing it into a default.
func ParsePermits(payload json.RawMessage) ([]Permit, error) {
	if len(payload) == 0 {
		return nil, nil
	}

	var pp permitPayload
	if err := json.Unmarshal(payload, &pp); err != nil {
		return nil, eris.Wrap(err, "evidence: parse permit payload")
	}

	permits := make([]Permit, 0, len(pp.Permits))
	for _, raw := range pp.Permits {
		p := Permit{
			PermitID:    raw.PermitID,
			Description: raw.Description,
			WorkType:    raw.WorkType,
			Status:      raw.Status,
		}
		if raw.IssuedDate != "" {
			if ts, err := parseDate(raw.IssuedDate); err == nil {
				p.IssuedDate = &ts
			}
		}
		permits = append(permits, p)
	}
	return permits, nil
}

// parseDate accepts the date formats seen across permit registries.
func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02", "01/02/2006"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, eris.Errorf("evidence: unrecognized date %q", s)
}
