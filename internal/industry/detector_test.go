package industry

import (
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/InfraSecConsult/ot-asset-reconciler/lib/model"
)

func newTestDetector(t *testing.T) *Detector {
	t.Helper()
	catalog, err := Load()
	assert.NoError(t, err)
	return NewDetector(catalog, zerolog.Nop())
}

func refineryAssets(n int) []model.NormalizedAsset {
	assets := make([]model.NormalizedAsset, 0, n)
	units := []string{"CDU", "FCC", "VDU"}
	for i := 0; i < n; i++ {
		assets = append(assets, model.NormalizedAsset{
			TagID:      fmt.Sprintf("FT-%d", 100+i),
			Unit:       units[i%len(units)],
			DeviceType: "Flow Transmitter",
			Plant:      "Crude Refinery West",
		})
	}
	return assets
}

func TestDetector_DetectsRefinery(t *testing.T) {
	detector := newTestDetector(t)

	result := detector.Detect(refineryAssets(20))

	assert.True(t, result.Reliable)
	assert.Equal(t, "oil_gas", result.Industry)
	assert.Equal(t, "Oil & Gas / Refining", result.IndustryName)
	assert.GreaterOrEqual(t, result.Confidence, 30.0)
	assert.Greater(t, result.Weight, 10)
}

func TestDetector_NoSignal(t *testing.T) {
	detector := newTestDetector(t)

	assets := []model.NormalizedAsset{
		{TagID: "DEV-1", DeviceType: "Widget"},
		{TagID: "DEV-2", DeviceType: "Widget"},
	}
	result := detector.Detect(assets)

	assert.False(t, result.Reliable)
	assert.Empty(t, result.Industry)
	assert.NotEmpty(t, result.Reason)
}

func TestDetector_WeakSignalNotReliable(t *testing.T) {
	detector := newTestDetector(t)

	// A single refinery-looking row scores unit weight 3 at most per
	// pattern; the raw weight floor keeps one-off mentions from deciding
	// the whole dataset.
	result := detector.Detect([]model.NormalizedAsset{{Unit: "CDU"}})

	assert.False(t, result.Reliable)
	assert.Empty(t, result.Industry)
}

func TestDetector_EmptyInput(t *testing.T) {
	detector := newTestDetector(t)
	result := detector.Detect(nil)
	assert.False(t, result.Reliable)
	assert.Empty(t, result.Scores)
}

func TestCatalog_MatchUnit(t *testing.T) {
	catalog, err := Load()
	assert.NoError(t, err)

	profile := catalog.MatchUnit("oil_gas", "CDU-1")
	assert.NotNil(t, profile)

	assert.Nil(t, catalog.MatchUnit("oil_gas", "Packaging Line 3"))
	assert.Nil(t, catalog.MatchUnit("no_such_industry", "CDU-1"))
}

func TestCatalog_Relations(t *testing.T) {
	catalog, err := Load()
	assert.NoError(t, err)

	relations := catalog.RelationsFor("oil_gas")
	assert.NotEmpty(t, relations)
	assert.Empty(t, catalog.RelationsFor("no_such_industry"))
}
