package model

import "errors"

// RiskLevel buckets normalized risk scores.
type RiskLevel string

const (
	RiskCritical RiskLevel = "critical"
	RiskHigh     RiskLevel = "high"
	RiskMedium   RiskLevel = "medium"
	RiskLow      RiskLevel = "low"
	RiskInfo     RiskLevel = "info"
)

// RiskLevelForScore maps a normalized 0-100 score to its level.
func RiskLevelForScore(score int) RiskLevel {
	switch {
	case score >= 70:
		return RiskCritical
	case score >= 50:
		return RiskHigh
	case score >= 30:
		return RiskMedium
	case score >= 10:
		return RiskLow
	default:
		return RiskInfo
	}
}

// RiskFactor is one weighted contribution to an asset's risk score.
type RiskFactor struct {
	Name   string `json:"name"`
	Weight int    `json:"weight"`
	Detail string `json:"detail"`
}

// RiskAssessment is the risk engine's per-asset output. NormalizedScore is
// always within [0,100].
type RiskAssessment struct {
	AssetID          string       `json:"asset_id"`
	RawScore         int          `json:"raw_score"`
	MaxPossibleScore int          `json:"max_possible_score"`
	NormalizedScore  int          `json:"normalized_score"`
	Level            RiskLevel    `json:"level"`
	Factors          []RiskFactor `json:"factors"`
}

// Validate validates the RiskAssessment struct
func (r *RiskAssessment) Validate() error {
	if r.AssetID == "" {
		return errors.New("asset ID must not be empty")
	}
	if r.RawScore < 0 {
		return errors.New("raw score must not be negative")
	}
	if r.MaxPossibleScore <= 0 {
		return errors.New("max possible score must be positive")
	}
	if r.NormalizedScore < 0 || r.NormalizedScore > 100 {
		return errors.New("normalized score must be between 0 and 100")
	}
	return nil
}

// UnitRisk aggregates risk per process unit.
type UnitRisk struct {
	Unit         string  `json:"unit"`
	AssetCount   int     `json:"asset_count"`
	AverageScore float64 `json:"average_score"`
	MaxScore     int     `json:"max_score"`
}

// PortfolioRiskReport aggregates per-asset assessments across the register.
type PortfolioRiskReport struct {
	AssetCount      int               `json:"asset_count"`
	AverageScore    float64           `json:"average_score"`
	Distribution    map[RiskLevel]int `json:"distribution"`
	TopAssets       []RiskAssessment  `json:"top_assets"`
	UnitRisks       []UnitRisk        `json:"unit_risks"`
	FactorFrequency map[string]int    `json:"factor_frequency"`
	Recommendations []string          `json:"recommendations"`
}
