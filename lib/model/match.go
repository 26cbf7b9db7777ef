package model

import (
	"errors"
	"fmt"
)

// MatchStrategy identifies which field linked an engineering record to a
// discovery record. Strategies run in the declared priority order.
type MatchStrategy string

const (
	MatchByTagID    MatchStrategy = "tag_id"
	MatchByIP       MatchStrategy = "ip_address"
	MatchByHostname MatchStrategy = "hostname"
	MatchByMAC      MatchStrategy = "mac_address"
)

// StrategyConfidence returns the fixed confidence assigned to each strategy.
func StrategyConfidence(s MatchStrategy) int {
	switch s {
	case MatchByTagID:
		return 100
	case MatchByIP:
		return 95
	case MatchByHostname:
		return 90
	case MatchByMAC:
		return 85
	default:
		return 0
	}
}

// MatchResult pairs one engineering asset with at most one discovery asset.
type MatchResult struct {
	Engineering *NormalizedAsset `json:"engineering"`
	Discovery   *NormalizedAsset `json:"discovery,omitempty"`
	Strategy    MatchStrategy    `json:"strategy"`
	Confidence  int              `json:"confidence"`
}

// Validate validates the MatchResult struct
func (m *MatchResult) Validate() error {
	if m.Engineering == nil {
		return errors.New("engineering record must not be nil")
	}
	if m.Discovery != nil {
		if StrategyConfidence(m.Strategy) == 0 {
			return fmt.Errorf("invalid match strategy %q", m.Strategy)
		}
		if m.Confidence != StrategyConfidence(m.Strategy) {
			return fmt.Errorf("confidence %d does not match strategy %q", m.Confidence, m.Strategy)
		}
	}
	return nil
}

// MatchStats summarizes one matching run.
type MatchStats struct {
	EngineeringTotal int `json:"engineering_total"`
	DiscoveryTotal   int `json:"discovery_total"`
	MatchedCount     int `json:"matched_count"`
	BlindSpotCount   int `json:"blind_spot_count"`
	OrphanCount      int `json:"orphan_count"`
	// CoveragePercent is round(matched/engineeringTotal*100), 0 when the
	// engineering set is empty.
	CoveragePercent int `json:"coverage_percent"`
}

// MatchOutput is the complete result of one matching run. BlindSpots are
// engineering records no strategy could link; Orphans are discovery records
// left unconsumed.
type MatchOutput struct {
	Matches    []MatchResult      `json:"matches"`
	BlindSpots []*NormalizedAsset `json:"blind_spots"`
	Orphans    []*NormalizedAsset `json:"orphans"`
	Stats      MatchStats         `json:"stats"`
}
