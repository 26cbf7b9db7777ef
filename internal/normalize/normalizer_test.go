package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/InfraSecConsult/ot-asset-reconciler/lib/model"
)

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		expected string
	}{
		{"lowercase passthrough", "tag_id", "tag_id"},
		{"uppercase", "Tag_ID", "tag_id"},
		{"spaces", "IP  Address", "ip_address"},
		{"hyphens", "MAC-Address", "mac_address"},
		{"mixed separators", " Device - Type ", "device_type"},
		{"empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeKey(tt.key))
		})
	}
}

func TestParseBool(t *testing.T) {
	assert.True(t, ParseBool("true"))
	assert.True(t, ParseBool("YES"))
	assert.True(t, ParseBool(" 1 "))
	assert.False(t, ParseBool("y"))
	assert.False(t, ParseBool("0"))
	assert.False(t, ParseBool(""))
}

func TestParseInt(t *testing.T) {
	assert.Equal(t, 3, ParseInt("3"))
	assert.Equal(t, 2, ParseInt("2.0"))
	assert.Equal(t, 0, ParseInt("n/a"))
	assert.Equal(t, 0, ParseInt(""))
}

func TestNormalize_FieldAliases(t *testing.T) {
	row := model.RawRecord{
		Fields: map[string]string{
			"Tag":            "ft-101",
			"IP":             "10.0.1.5",
			"MAC":            "00-1A-2B-3C-4D-5E",
			"Vendor":         "Emerson",
			"Area":           "CDU",
			"Type":           "Transmitter",
			"Importance":     "HIGH",
			"Safety":         "yes",
			"Install Date":   "2015-03-01",
			"Critical Vulns": "2",
		},
		Source: model.SourceRef{SourceID: "inventory.csv", RowIndex: 4},
	}

	asset := Normalize(row, model.SourceEngineering)

	assert.Equal(t, "FT-101", asset.TagID)
	assert.Equal(t, "10.0.1.5", asset.IPAddress)
	assert.Equal(t, "00:1a:2b:3c:4d:5e", asset.MACAddress)
	assert.Equal(t, "Emerson", asset.Manufacturer)
	assert.Equal(t, "CDU", asset.Unit)
	assert.Equal(t, "Transmitter", asset.DeviceType)
	assert.Equal(t, "high", asset.Criticality)
	assert.True(t, asset.SafetyCritical)
	assert.Equal(t, "2015-03-01", asset.InstallDate)
	assert.Equal(t, 2, asset.CriticalVulns)
	assert.Equal(t, model.SourceEngineering, asset.Kind)
	assert.Equal(t, "inventory.csv", asset.Source.SourceID)
	assert.Equal(t, 4, asset.Source.RowIndex)
}

func TestNormalize_AliasPriority(t *testing.T) {
	// tag_id outranks asset_id even when both are present
	row := model.RawRecord{Fields: map[string]string{
		"tag_id":   "PT-200",
		"asset_id": "A-0042",
	}}
	asset := Normalize(row, model.SourceEngineering)
	assert.Equal(t, "PT-200", asset.TagID)
}

func TestNormalize_EmptyRow(t *testing.T) {
	asset := Normalize(model.RawRecord{Fields: map[string]string{}}, model.SourceDiscovery)
	assert.Empty(t, asset.TagID)
	assert.Empty(t, asset.IPAddress)
	assert.Equal(t, model.SourceDiscovery, asset.Kind)
}

func TestNormalize_TierOutOfRange(t *testing.T) {
	row := model.RawRecord{Fields: map[string]string{"security_tier": "7"}}
	asset := Normalize(row, model.SourceEngineering)
	assert.Equal(t, 0, asset.SecurityTier)
}

func TestNormalize_Idempotent(t *testing.T) {
	row := model.RawRecord{Fields: map[string]string{
		"tag_id":      "ft-101",
		"mac_address": "00-1A-2B-3C-4D-5E",
		"criticality": "High",
	}}
	first := Normalize(row, model.SourceEngineering)

	// Feed the normalized values back through as if they were a source row.
	again := Normalize(model.RawRecord{Fields: map[string]string{
		"tag_id":      first.TagID,
		"mac_address": first.MACAddress,
		"criticality": first.Criticality,
	}, Source: first.Source}, first.Kind)

	assert.Equal(t, first.TagID, again.TagID)
	assert.Equal(t, first.MACAddress, again.MACAddress)
	assert.Equal(t, first.Criticality, again.Criticality)
}

func TestNormalizeAll(t *testing.T) {
	rows := []model.RawRecord{
		{Fields: map[string]string{"tag": "P-1"}},
		{Fields: map[string]string{"tag": "P-2"}},
	}
	assets := NormalizeAll(rows, model.SourceEngineering)
	assert.Len(t, assets, 2)
	assert.Equal(t, "P-1", assets[0].TagID)
	assert.Equal(t, "P-2", assets[1].TagID)
}
