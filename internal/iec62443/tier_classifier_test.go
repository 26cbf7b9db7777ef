package iec62443

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/InfraSecConsult/ot-asset-reconciler/lib/model"
)

func TestKeywordTierClassifier_Classify(t *testing.T) {
	tests := []struct {
		name         string
		asset        model.NormalizedAsset
		expectedTier int
	}{
		{
			name:         "plc is tier 1",
			asset:        model.NormalizedAsset{DeviceType: "PLC - ControlLogix"},
			expectedTier: 1,
		},
		{
			name:         "safety system is tier 1",
			asset:        model.NormalizedAsset{DeviceType: "Safety Instrumented System"},
			expectedTier: 1,
		},
		{
			name:         "network switch is tier 1",
			asset:        model.NormalizedAsset{DeviceType: "Managed Switch"},
			expectedTier: 1,
		},
		{
			name:         "tier 1 keyword beats missing address",
			asset:        model.NormalizedAsset{DeviceType: "HMI Panel"},
			expectedTier: 1,
		},
		{
			name:         "addressed device without critical keyword is tier 2",
			asset:        model.NormalizedAsset{DeviceType: "Pressure Sensor", IPAddress: "10.0.0.5"},
			expectedTier: 2,
		},
		{
			name:         "mac address alone promotes to tier 2",
			asset:        model.NormalizedAsset{DeviceType: "Valve", MACAddress: "aa:bb:cc:dd:ee:ff"},
			expectedTier: 2,
		},
		{
			name:         "smart transmitter without address is tier 2",
			asset:        model.NormalizedAsset{DeviceType: "Smart Transmitter"},
			expectedTier: 2,
		},
		{
			name:         "plain field device is tier 3",
			asset:        model.NormalizedAsset{DeviceType: "Manual Valve"},
			expectedTier: 3,
		},
		{
			name:         "empty device type without address is tier 3",
			asset:        model.NormalizedAsset{},
			expectedTier: 3,
		},
	}

	classifier := NewTierClassifier()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := classifier.Classify(&tt.asset)
			assert.Equal(t, tt.expectedTier, result.Tier)
			assert.NotEmpty(t, result.Reason)
		})
	}
}

// Classification must be total: every asset lands in tier 1, 2 or 3.
func TestKeywordTierClassifier_Totality(t *testing.T) {
	classifier := NewTierClassifier()
	assets := []model.NormalizedAsset{
		{},
		{DeviceType: "???"},
		{IPAddress: "not-an-ip"},
		{DeviceType: "plc", IPAddress: "10.0.0.1", MACAddress: "aa:bb:cc:dd:ee:ff"},
	}
	for i := range assets {
		result := classifier.Classify(&assets[i])
		assert.GreaterOrEqual(t, result.Tier, 1)
		assert.LessOrEqual(t, result.Tier, 3)
	}
}
