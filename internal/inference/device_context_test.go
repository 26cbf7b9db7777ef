package inference

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/InfraSecConsult/ot-asset-reconciler/lib/model"
)

func TestParseTag(t *testing.T) {
	tests := []struct {
		name             string
		tagID            string
		expectedParsed   bool
		expectedVariable string
		expectedFuncs    []string
		expectedLoop     string
		expectedSafety   bool
	}{
		{
			name:             "temperature indicating controller",
			tagID:            "TIC-101",
			expectedParsed:   true,
			expectedVariable: "temperature",
			expectedFuncs:    []string{"indicator", "controller"},
			expectedLoop:     "101",
		},
		{
			name:             "flow transmitter with space separator",
			tagID:            "FT 200",
			expectedParsed:   true,
			expectedVariable: "flow",
			expectedFuncs:    []string{"transmitter"},
			expectedLoop:     "200",
		},
		{
			name:             "high-high pressure switch is safety relevant",
			tagID:            "PSHH-1201A",
			expectedParsed:   true,
			expectedVariable: "pressure",
			expectedFuncs:    []string{"switch", "high", "high"},
			expectedLoop:     "1201",
			expectedSafety:   true,
		},
		{
			name:             "shutdown valve family is safety relevant",
			tagID:            "SDV-300",
			expectedParsed:   true,
			expectedVariable: "speed_frequency",
			expectedFuncs:    []string{"differential", "valve"},
			expectedLoop:     "300",
			expectedSafety:   true,
		},
		{
			name:             "lowercase tags parse the same",
			tagID:            "xv_300",
			expectedParsed:   true,
			expectedVariable: "unknown",
			expectedFuncs:    []string{"valve"},
			expectedLoop:     "300",
		},
		{
			name:           "free text does not parse",
			tagID:          "Main Cooling Pump",
			expectedParsed: false,
		},
		{
			name:           "empty tag does not parse",
			tagID:          "",
			expectedParsed: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := ParseTag(tt.tagID)
			assert.Equal(t, tt.expectedParsed, info.Parsed)
			if !tt.expectedParsed {
				return
			}
			assert.Equal(t, tt.expectedVariable, info.MeasuredVariable)
			assert.Equal(t, tt.expectedFuncs, info.Functions)
			assert.Equal(t, tt.expectedLoop, info.LoopNumber)
			assert.Equal(t, tt.expectedSafety, info.SafetyRelevant)
		})
	}
}

func TestInferencer_Infer(t *testing.T) {
	tests := []struct {
		name                string
		asset               model.NormalizedAsset
		expectedCategory    model.DeviceCategory
		expectedCriticality model.Criticality
		expectedSafety      bool
	}{
		{
			name:                "controllogix plc",
			asset:               model.NormalizedAsset{TagID: "PLC-CDU-01", DeviceType: "PLC", Model: "ControlLogix 1756-L72"},
			expectedCategory:    model.CategoryController,
			expectedCriticality: model.CriticalityCritical,
		},
		{
			name:                "triconex safety system is always safety relevant",
			asset:               model.NormalizedAsset{DeviceType: "SIS", Manufacturer: "Schneider Electric", Model: "Triconex 3008"},
			expectedCategory:    model.CategorySafetySystem,
			expectedCriticality: model.CriticalityCritical,
			expectedSafety:      true,
		},
		{
			name:                "transmitter via free text",
			asset:               model.NormalizedAsset{TagID: "PT-1100", DeviceType: "Pressure Transmitter", Manufacturer: "Rosemount"},
			expectedCategory:    model.CategoryTransmitter,
			expectedCriticality: model.CriticalityMedium,
		},
		{
			name:                "category falls back to tag grammar",
			asset:               model.NormalizedAsset{TagID: "FV-220"},
			expectedCategory:    model.CategoryValveActuator,
			expectedCriticality: model.CriticalityMedium,
		},
		{
			name:                "explicit criticality overrides category default",
			asset:               model.NormalizedAsset{TagID: "PT-1100", DeviceType: "Pressure Transmitter", Criticality: "critical"},
			expectedCategory:    model.CategoryTransmitter,
			expectedCriticality: model.CriticalityCritical,
		},
		{
			name:                "declared safety flag carries through",
			asset:               model.NormalizedAsset{TagID: "XV-310", DeviceType: "Shutdown Valve", SafetyCritical: true},
			expectedCategory:    model.CategoryValveActuator,
			expectedCriticality: model.CriticalityMedium,
			expectedSafety:      true,
		},
		{
			name:                "nothing recognizable stays unknown",
			asset:               model.NormalizedAsset{Hostname: "box-17"},
			expectedCategory:    model.CategoryUnknown,
			expectedCriticality: model.CriticalityUnknown,
		},
	}

	inferencer := NewInferencer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := inferencer.Infer(&tt.asset)
			assert.Equal(t, tt.expectedCategory, ctx.Category)
			assert.Equal(t, tt.expectedCriticality, ctx.Criticality)
			assert.Equal(t, tt.expectedSafety, ctx.SafetyRelevant)
		})
	}
}

func TestInferencer_ProtocolHints(t *testing.T) {
	inferencer := NewInferencer()

	ctx := inferencer.Infer(&model.NormalizedAsset{
		TagID: "FT-101", DeviceType: "Flow Transmitter", Protocol: "HART 7",
	})
	assert.Equal(t, "HART", ctx.Protocol)

	ctx = inferencer.Infer(&model.NormalizedAsset{
		DeviceType: "PLC", Model: "Modbus TCP gateway module",
	})
	assert.Equal(t, "Modbus", ctx.Protocol)

	ctx = inferencer.Infer(&model.NormalizedAsset{DeviceType: "Manual Valve"})
	assert.Empty(t, ctx.Protocol)
}
