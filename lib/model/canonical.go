package model

import (
	"errors"
	"fmt"
	"time"
)

// AssetOrigin describes how a canonical asset entered the register.
type AssetOrigin string

const (
	OriginMatched   AssetOrigin = "matched"
	OriginBlindSpot AssetOrigin = "blind_spot"
	OriginOrphan    AssetOrigin = "orphan"
)

// TierClassification is the result of security-tier classification.
// Tier 1 = must secure, tier 2 = should secure, tier 3 = inventory only.
type TierClassification struct {
	Tier   int    `json:"tier"`
	Reason string `json:"reason"`
}

// ValidationConfidence grades the field agreement of a matched pair.
type ValidationConfidence string

const (
	ValidationHigh   ValidationConfidence = "high"
	ValidationMedium ValidationConfidence = "medium"
	ValidationLow    ValidationConfidence = "low"
)

// ValidationStatus summarizes whether a matched pair looks trustworthy.
type ValidationStatus string

const (
	StatusVerified   ValidationStatus = "verified"
	StatusPartial    ValidationStatus = "partial"
	StatusSuspicious ValidationStatus = "suspicious"
)

// CrossValidation records per-field agreement between the engineering and
// discovery sides of a match.
type CrossValidation struct {
	AgreementCount int                  `json:"agreement_count"`
	Agreements     map[string]bool      `json:"agreements"`
	Confidence     ValidationConfidence `json:"confidence"`
	Status         ValidationStatus     `json:"status"`
}

// DeviceCategory buckets assets by their inferred function.
type DeviceCategory string

const (
	CategoryController      DeviceCategory = "controller"
	CategorySafetySystem    DeviceCategory = "safety_system"
	CategoryHMIWorkstation  DeviceCategory = "hmi_workstation"
	CategoryNetwork         DeviceCategory = "network"
	CategoryTransmitter     DeviceCategory = "transmitter"
	CategoryAnalyzer        DeviceCategory = "analyzer"
	CategoryValveActuator   DeviceCategory = "valve_actuator"
	CategoryDrive           DeviceCategory = "drive"
	CategoryHistorianServer DeviceCategory = "historian_server"
	CategoryUnknown         DeviceCategory = "unknown"
)

// DeviceContext is the inferred context of one asset: what it measures, what
// it does, how critical it is, and whether it is safety relevant.
type DeviceContext struct {
	MeasuredVariable string         `json:"measured_variable"`
	Functions        []string       `json:"functions"`
	LoopNumber       string         `json:"loop_number"`
	Category         DeviceCategory `json:"category"`
	CategoryLabel    string         `json:"category_label"`
	Criticality      Criticality    `json:"criticality"`
	SafetyRelevant   bool           `json:"safety_relevant"`
	Protocol         string         `json:"protocol"`
}

// LifecycleState enumerates the EOL posture of an asset.
type LifecycleState string

const (
	LifecycleCurrent        LifecycleState = "current"
	LifecycleApproachingEOL LifecycleState = "approaching_eol"
	LifecycleEOL            LifecycleState = "eol"
	LifecycleEOS            LifecycleState = "eos"
	LifecycleObsolete       LifecycleState = "obsolete"
	LifecycleUnknown        LifecycleState = "unknown"
)

// LifecycleStatus is the lifecycle analysis result for one asset.
type LifecycleStatus struct {
	State         LifecycleState `json:"state"`
	ProductFamily string         `json:"product_family,omitempty"`
	EOLDate       *time.Time     `json:"eol_date,omitempty"`
	EOSDate       *time.Time     `json:"eos_date,omitempty"`
	Replacement   string         `json:"replacement,omitempty"`
	// Estimated marks a status derived from asset age rather than the
	// reference database.
	Estimated          bool `json:"estimated"`
	EstimatedAgeYears  int  `json:"estimated_age_years,omitempty"`
	RemainingLifeYears int  `json:"remaining_life_years,omitempty"`
}

// CanonicalAsset is one reconciled asset: the matched (or unmatched) record
// enriched with classification, validation, context, lifecycle, and risk.
// It is created once per run and immutable thereafter.
type CanonicalAsset struct {
	ID          string           `json:"id"`
	Origin      AssetOrigin      `json:"origin"`
	Engineering *NormalizedAsset `json:"engineering,omitempty"`
	Discovery   *NormalizedAsset `json:"discovery,omitempty"`

	MatchStrategy   MatchStrategy `json:"match_strategy,omitempty"`
	MatchConfidence int           `json:"match_confidence"`

	Classification TierClassification `json:"classification"`
	Validation     *CrossValidation   `json:"validation,omitempty"`
	Context        DeviceContext      `json:"context"`
	Lifecycle      LifecycleStatus    `json:"lifecycle"`
	Risk           *RiskAssessment    `json:"risk,omitempty"`
}

// Primary returns the record carrying the asset's identity: the engineering
// side when documented, otherwise the discovery side.
func (c *CanonicalAsset) Primary() *NormalizedAsset {
	if c.Engineering != nil {
		return c.Engineering
	}
	return c.Discovery
}

// Merged returns a view combining both sides, preferring engineering values
// and filling gaps from discovery.
func (c *CanonicalAsset) Merged() NormalizedAsset {
	p := c.Primary()
	if p == nil {
		return NormalizedAsset{}
	}
	merged := *p
	if c.Engineering != nil && c.Discovery != nil {
		d := c.Discovery
		if merged.IPAddress == "" {
			merged.IPAddress = d.IPAddress
		}
		if merged.MACAddress == "" {
			merged.MACAddress = d.MACAddress
		}
		if merged.Hostname == "" {
			merged.Hostname = d.Hostname
		}
		if merged.Protocol == "" {
			merged.Protocol = d.Protocol
		}
		if merged.NetworkSegment == "" {
			merged.NetworkSegment = d.NetworkSegment
		}
		if merged.LastSeen == "" {
			merged.LastSeen = d.LastSeen
		}
		if merged.FirstSeen == "" {
			merged.FirstSeen = d.FirstSeen
		}
	}
	return merged
}

// Validate validates the CanonicalAsset struct
func (c *CanonicalAsset) Validate() error {
	if c.ID == "" {
		return errors.New("asset ID must not be empty")
	}
	switch c.Origin {
	case OriginMatched:
		if c.Engineering == nil || c.Discovery == nil {
			return errors.New("matched asset must carry both records")
		}
	case OriginBlindSpot:
		if c.Engineering == nil {
			return errors.New("blind spot must carry an engineering record")
		}
	case OriginOrphan:
		if c.Discovery == nil {
			return errors.New("orphan must carry a discovery record")
		}
	default:
		return fmt.Errorf("invalid asset origin %q", c.Origin)
	}
	if c.Classification.Tier < 1 || c.Classification.Tier > 3 {
		return errors.New("security tier must be between 1 and 3")
	}
	return nil
}
