// Package iec62443 assigns assets to security-management tiers in the
// spirit of an IEC 62443 zoning exercise: tier 1 assets must be secured,
// tier 2 should be, tier 3 is inventory-only.
package iec62443

import (
	"fmt"
	"strings"

	"github.com/InfraSecConsult/ot-asset-reconciler/lib/model"
)

// tier1Keywords mark device types that always land in "must secure".
var tier1Keywords = []string{
	"plc", "dcs", "hmi", "scada", "rtu", "controller", "server",
	"workstation", "historian", "safety", "switch", "router",
	"firewall", "gateway",
}

// tier2Keywords mark smart or networkable devices that land in "should
// secure" even without a recorded address.
var tier2Keywords = []string{
	"smart", "transmitter", "analyzer", "drive", "vfd", "meter",
	"camera", "printer", "wireless", "positioner",
}

// TierClassifier assigns each asset to a security-management tier. It is a
// pure function of device type text and network-address presence;
// classification is total and deterministic.
type TierClassifier interface {
	Classify(asset *model.NormalizedAsset) model.TierClassification
}

// KeywordTierClassifier implements TierClassifier over fixed keyword sets.
type KeywordTierClassifier struct{}

// NewTierClassifier creates the default classifier.
func NewTierClassifier() *KeywordTierClassifier {
	return &KeywordTierClassifier{}
}

// Classify applies tier precedence 1 > 2 > 3.
func (c *KeywordTierClassifier) Classify(asset *model.NormalizedAsset) model.TierClassification {
	deviceType := strings.ToLower(asset.DeviceType)

	if kw := firstKeyword(deviceType, tier1Keywords); kw != "" {
		return model.TierClassification{
			Tier:   1,
			Reason: fmt.Sprintf("device type %q matches critical keyword %q", asset.DeviceType, kw),
		}
	}
	if asset.HasNetworkAddress() {
		return model.TierClassification{
			Tier:   2,
			Reason: "asset carries a network address",
		}
	}
	if kw := firstKeyword(deviceType, tier2Keywords); kw != "" {
		return model.TierClassification{
			Tier:   2,
			Reason: fmt.Sprintf("device type %q matches networkable keyword %q", asset.DeviceType, kw),
		}
	}
	return model.TierClassification{
		Tier:   3,
		Reason: "no critical device type and no network address",
	}
}

func firstKeyword(text string, keywords []string) string {
	if text == "" {
		return ""
	}
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return kw
		}
	}
	return ""
}
