package model

import (
	"errors"
	"sort"
)

// Severity is the ordered severity scale used by gap findings.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// severityRank orders severities for sorting, critical first.
var severityRank = map[Severity]int{
	SeverityCritical: 0,
	SeverityHigh:     1,
	SeverityMedium:   2,
	SeverityLow:      3,
	SeverityInfo:     4,
}

// Rank returns the sort rank of the severity; unknown severities sort last.
func (s Severity) Rank() int {
	if r, ok := severityRank[s]; ok {
		return r
	}
	return len(severityRank)
}

// GapType enumerates the kinds of findings the gap analyzer produces.
type GapType string

const (
	GapBlindSpot            GapType = "BLIND_SPOT"
	GapUndocumentedDevice   GapType = "UNDOCUMENTED_DEVICE"
	GapStaleData            GapType = "STALE_DATA"
	GapMissingFunction      GapType = "MISSING_FUNCTION"
	GapInsufficientCoverage GapType = "INSUFFICIENT_COVERAGE"
	GapNoRedundancy         GapType = "NO_REDUNDANCY"
	GapNoVisibility         GapType = "NO_VISIBILITY"
	GapLowVisibility        GapType = "LOW_VISIBILITY"
	GapNetworkBlindSpot     GapType = "NETWORK_BLIND_SPOT"
)

// Gap is one typed finding. Gaps are created by the analyzer and never
// mutated afterwards.
type Gap struct {
	Type           GapType  `json:"type"`
	Severity       Severity `json:"severity"`
	Unit           string   `json:"unit,omitempty"`
	TagID          string   `json:"tag_id,omitempty"`
	Reason         string   `json:"reason"`
	Recommendation string   `json:"recommendation"`
	PossibleCauses []string `json:"possible_causes,omitempty"`
}

// Validate validates the Gap struct
func (g *Gap) Validate() error {
	if g.Type == "" {
		return errors.New("gap type must not be empty")
	}
	if _, ok := severityRank[g.Severity]; !ok {
		return errors.New("invalid gap severity")
	}
	if g.Reason == "" {
		return errors.New("gap reason must not be empty")
	}
	return nil
}

// SortGaps orders gaps by severity rank, critical first. The sort is stable
// so gaps of equal severity keep their production order.
func SortGaps(gaps []Gap) {
	sort.SliceStable(gaps, func(i, j int) bool {
		return gaps[i].Severity.Rank() < gaps[j].Severity.Rank()
	})
}

// GapSummary aggregates a gap list for reporting.
type GapSummary struct {
	Total      int              `json:"total"`
	ByType     map[GapType]int  `json:"by_type"`
	BySeverity map[Severity]int `json:"by_severity"`
	ByUnit     map[string]int   `json:"by_unit"`
}

// GapReport is the gap analyzer's complete output.
type GapReport struct {
	Gaps            []Gap      `json:"gaps"`
	Summary         GapSummary `json:"summary"`
	Recommendations []string   `json:"recommendations"`
}
