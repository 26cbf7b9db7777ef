package model

import (
	"errors"
	"fmt"
)

// SourceRef identifies the origin of a record for provenance purposes.
type SourceRef struct {
	SourceID string `json:"source_id"`
	RowIndex int    `json:"row_index"`
}

func (sr SourceRef) String() string {
	return fmt.Sprintf("%s:%d", sr.SourceID, sr.RowIndex)
}

// RawRecord represents one unprocessed row from an inventory source,
// keyed by the source file's original column names.
type RawRecord struct {
	Fields map[string]string `json:"fields"`
	Source SourceRef         `json:"source"`
}

// SourceKind distinguishes the two inventory feeds being reconciled.
type SourceKind string

const (
	SourceEngineering SourceKind = "engineering"
	SourceDiscovery   SourceKind = "discovery"
)

// Criticality is the declared or inferred importance of an asset.
type Criticality string

const (
	CriticalityCritical Criticality = "critical"
	CriticalityHigh     Criticality = "high"
	CriticalityMedium   Criticality = "medium"
	CriticalityLow      Criticality = "low"
	CriticalityUnknown  Criticality = "unknown"
)

// NormalizedAsset is the canonical asset record produced by the normalizer.
// Every field is total: a value missing from the source row degrades to the
// zero value, never to an absent field.
type NormalizedAsset struct {
	TagID           string     `json:"tag_id"`
	IPAddress       string     `json:"ip_address"`
	MACAddress      string     `json:"mac_address"`
	Hostname        string     `json:"hostname"`
	Plant           string     `json:"plant"`
	Unit            string     `json:"unit"`
	DeviceType      string     `json:"device_type"`
	Manufacturer    string     `json:"manufacturer"`
	Model           string     `json:"model"`
	Criticality     string     `json:"criticality"`
	SecurityTier    int        `json:"security_tier"`
	CriticalVulns   int        `json:"critical_vulns"`
	HighVulns       int        `json:"high_vulns"`
	MediumVulns     int        `json:"medium_vulns"`
	LowVulns        int        `json:"low_vulns"`
	PatchLevel      string     `json:"patch_level"`
	FirmwareVersion string     `json:"firmware_version"`
	InstallDate     string     `json:"install_date"`
	FirstSeen       string     `json:"first_seen"`
	LastSeen        string     `json:"last_seen"`
	NetworkSegment  string     `json:"network_segment"`
	Protocol        string     `json:"protocol"`
	SafetyCritical  bool       `json:"safety_critical"`
	Source          SourceRef  `json:"source"`
	Kind            SourceKind `json:"kind"`
}

// Identity returns the best available identifier for the asset, preferring
// the tag ID, then IP, hostname, MAC, and finally the source reference.
func (a *NormalizedAsset) Identity() string {
	switch {
	case a.TagID != "":
		return a.TagID
	case a.IPAddress != "":
		return a.IPAddress
	case a.Hostname != "":
		return a.Hostname
	case a.MACAddress != "":
		return a.MACAddress
	default:
		return a.Source.String()
	}
}

// HasNetworkAddress reports whether the asset carries any network identity.
func (a *NormalizedAsset) HasNetworkAddress() bool {
	return a.IPAddress != "" || a.MACAddress != ""
}

// Validate validates the NormalizedAsset struct
func (a *NormalizedAsset) Validate() error {
	if a.Source.SourceID == "" {
		return errors.New("source ID must not be empty")
	}
	if a.Source.RowIndex < 0 {
		return errors.New("row index must not be negative")
	}
	if a.Kind != SourceEngineering && a.Kind != SourceDiscovery {
		return fmt.Errorf("invalid source kind %q", a.Kind)
	}
	if a.SecurityTier < 0 || a.SecurityTier > 3 {
		return errors.New("security tier must be between 0 and 3")
	}
	if a.CriticalVulns < 0 || a.HighVulns < 0 || a.MediumVulns < 0 || a.LowVulns < 0 {
		return errors.New("vulnerability counts must not be negative")
	}
	return nil
}
