package match

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/InfraSecConsult/ot-asset-reconciler/internal/iec62443"
	"github.com/InfraSecConsult/ot-asset-reconciler/lib/model"
)

// CrossValidator scores how well the two sides of a match agree, and flags
// batch-level anomalies the match output alone does not reveal. It carries
// its own tier classifier because the anomaly scan needs the tier of the
// documented record alone, not of the merged asset.
type CrossValidator struct {
	classifier iec62443.TierClassifier
	logger     zerolog.Logger
}

// NewCrossValidator creates a cross-validator.
func NewCrossValidator(classifier iec62443.TierClassifier, logger zerolog.Logger) *CrossValidator {
	return &CrossValidator{
		classifier: classifier,
		logger:     logger.With().Str("component", "cross_validator").Logger(),
	}
}

// Validate computes field agreement between the engineering and discovery
// sides of one match. A field only counts when both sides carry a value.
func (v *CrossValidator) Validate(m model.MatchResult) model.CrossValidation {
	eng, disc := m.Engineering, m.Discovery
	agreements := map[string]bool{
		"tag_id":       eng.TagID != "" && disc.TagID != "" && eng.TagID == disc.TagID,
		"ip_address":   eng.IPAddress != "" && disc.IPAddress != "" && eng.IPAddress == disc.IPAddress,
		"hostname":     eng.Hostname != "" && disc.Hostname != "" && strings.EqualFold(eng.Hostname, disc.Hostname),
		"device_type":  deviceTypesAgree(eng.DeviceType, disc.DeviceType),
		"manufacturer": eng.Manufacturer != "" && disc.Manufacturer != "" && strings.EqualFold(eng.Manufacturer, disc.Manufacturer),
	}

	count := 0
	for _, agreed := range agreements {
		if agreed {
			count++
		}
	}

	result := model.CrossValidation{
		AgreementCount: count,
		Agreements:     agreements,
	}
	switch {
	case count >= 3:
		result.Confidence = model.ValidationHigh
		result.Status = model.StatusVerified
	case count >= 1:
		result.Confidence = model.ValidationMedium
		result.Status = model.StatusPartial
	default:
		result.Confidence = model.ValidationLow
		result.Status = model.StatusSuspicious
	}
	return result
}

// deviceTypesAgree accepts a prefix-substring relation in either direction:
// "PLC" agrees with "PLC - ControlLogix" and vice versa.
func deviceTypesAgree(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	la, lb := strings.ToLower(strings.TrimSpace(a)), strings.ToLower(strings.TrimSpace(b))
	return strings.HasPrefix(la, lb) || strings.HasPrefix(lb, la)
}

// BatchFlags collects the anomalies found across one reconciliation run.
type BatchFlags struct {
	LowConfidenceMatches      []string `json:"low_confidence_matches"`
	SuspiciousClassifications []string `json:"suspicious_classifications"`
	CriticalOrphans           []string `json:"critical_orphans"`
	UnexpectedBlindSpots      []string `json:"unexpected_blind_spots"`
}

// FlagAnomalies inspects the classified canonical assets of one run:
//   - matched pairs whose cross-validation came out LOW,
//   - matched pairs whose engineering record alone classifies tier 3 while
//     discovery observed an IP address (the asset's own classification is
//     computed over the merged record, where the discovered address already
//     lifts it to tier 2, so the documented side must be re-judged here),
//   - orphans classified tier 1 or 2,
//   - tier-1 blind spots whose engineering record claims an IP.
func (v *CrossValidator) FlagAnomalies(assets []model.CanonicalAsset) BatchFlags {
	flags := BatchFlags{
		LowConfidenceMatches:      []string{},
		SuspiciousClassifications: []string{},
		CriticalOrphans:           []string{},
		UnexpectedBlindSpots:      []string{},
	}
	for i := range assets {
		a := &assets[i]
		switch a.Origin {
		case model.OriginMatched:
			if a.Validation != nil && a.Validation.Confidence == model.ValidationLow {
				flags.LowConfidenceMatches = append(flags.LowConfidenceMatches, a.ID)
			}
			if a.Engineering != nil && a.Discovery != nil && a.Discovery.IPAddress != "" &&
				v.classifier.Classify(a.Engineering).Tier == 3 {
				flags.SuspiciousClassifications = append(flags.SuspiciousClassifications, a.ID)
			}
		case model.OriginOrphan:
			if a.Classification.Tier <= 2 {
				flags.CriticalOrphans = append(flags.CriticalOrphans, a.ID)
			}
		case model.OriginBlindSpot:
			if a.Classification.Tier == 1 && a.Engineering != nil && a.Engineering.IPAddress != "" {
				flags.UnexpectedBlindSpots = append(flags.UnexpectedBlindSpots, a.ID)
			}
		}
	}

	v.logger.Info().
		Int("low_confidence", len(flags.LowConfidenceMatches)).
		Int("suspicious_classifications", len(flags.SuspiciousClassifications)).
		Int("critical_orphans", len(flags.CriticalOrphans)).
		Int("unexpected_blind_spots", len(flags.UnexpectedBlindSpots)).
		Msg("cross-validation anomaly scan complete")
	return flags
}
