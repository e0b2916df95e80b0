package model

import (
	"encoding/json"
	"time"
)

// Provider names for evidence snapshots. A property may have snapshots from
// any subset of these; the engine tolerates any of them being absent.
const (
	ProviderPermitRegistry      = "permit_registry"
	ProviderAssessor            = "assessor"
	ProviderAddressStandardizer = "address_standardizer"
)

// Snapshot is one retrieved payload from one named provider for one property.
// Snapshots are append-only; predictions use the latest one per provider.
type Snapshot struct {
	ID          string          `json:"id"`
	AddressID   string          `json:"address_id"`
	Provider    string          `json:"provider"`
	Payload     json.RawMessage `json:"payload"`
	RetrievedAt time.Time       `json:"retrieved_at"`
}

// LatestByProvider reduces a snapshot set to the most recently retrieved
// snapshot per provider.
func LatestByProvider(snaps []Snapshot) map[string]Snapshot {
	latest := make(map[string]Snapshot, len(snaps))
	for _, s := range snaps {
		if cur, ok := latest[s.Provider]; !ok || s.RetrievedAt.After(cur.RetrievedAt) {
			latest[s.Provider] = s
		}
	}
	return latest
}
