package match

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/InfraSecConsult/ot-asset-reconciler/lib/model"
)

func engAsset(tag, ip, hostname, mac string) model.NormalizedAsset {
	return model.NormalizedAsset{
		TagID: tag, IPAddress: ip, Hostname: hostname, MACAddress: mac,
		Kind: model.SourceEngineering,
	}
}

func discAsset(tag, ip, hostname, mac string) model.NormalizedAsset {
	return model.NormalizedAsset{
		TagID: tag, IPAddress: ip, Hostname: hostname, MACAddress: mac,
		Kind: model.SourceDiscovery,
	}
}

func TestMatcher_StrategyPriority(t *testing.T) {
	tests := []struct {
		name               string
		engineering        model.NormalizedAsset
		discovery          model.NormalizedAsset
		expectedStrategy   model.MatchStrategy
		expectedConfidence int
	}{
		{
			name:               "tag match outranks everything",
			engineering:        engAsset("FT-101", "10.0.0.1", "ft101", "aa:bb:cc:00:00:01"),
			discovery:          discAsset("FT-101", "10.0.0.2", "other", "aa:bb:cc:00:00:02"),
			expectedStrategy:   model.MatchByTagID,
			expectedConfidence: 100,
		},
		{
			name:               "ip match when tags differ",
			engineering:        engAsset("FT-101", "10.0.0.1", "", ""),
			discovery:          discAsset("", "10.0.0.1", "", ""),
			expectedStrategy:   model.MatchByIP,
			expectedConfidence: 95,
		},
		{
			name:               "hostname match is case-insensitive",
			engineering:        engAsset("", "", "PLC-CDU-01", ""),
			discovery:          discAsset("", "", "plc-cdu-01", ""),
			expectedStrategy:   model.MatchByHostname,
			expectedConfidence: 90,
		},
		{
			name:               "mac is the last resort",
			engineering:        engAsset("FT-101", "10.0.0.1", "a", "aa:bb:cc:dd:ee:ff"),
			discovery:          discAsset("", "10.0.0.9", "b", "aa:bb:cc:dd:ee:ff"),
			expectedStrategy:   model.MatchByMAC,
			expectedConfidence: 85,
		},
	}

	matcher := NewMatcher(zerolog.Nop())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := matcher.Match(context.Background(),
				[]model.NormalizedAsset{tt.engineering},
				[]model.NormalizedAsset{tt.discovery})
			assert.NoError(t, err)
			assert.Len(t, out.Matches, 1)
			assert.Equal(t, tt.expectedStrategy, out.Matches[0].Strategy)
			assert.Equal(t, tt.expectedConfidence, out.Matches[0].Confidence)
		})
	}
}

func TestMatcher_NoDoubleUse(t *testing.T) {
	// Two engineering records could both IP-match the single discovery
	// record; only the first may consume it.
	engineering := []model.NormalizedAsset{
		engAsset("FT-101", "10.0.0.1", "", ""),
		engAsset("FT-102", "10.0.0.1", "", ""),
	}
	discovery := []model.NormalizedAsset{
		discAsset("", "10.0.0.1", "", ""),
	}

	out, err := NewMatcher(zerolog.Nop()).Match(context.Background(), engineering, discovery)
	assert.NoError(t, err)
	assert.Len(t, out.Matches, 1)
	assert.Equal(t, "FT-101", out.Matches[0].Engineering.TagID)
	assert.Len(t, out.BlindSpots, 1)
	assert.Equal(t, "FT-102", out.BlindSpots[0].TagID)
	assert.Empty(t, out.Orphans)
}

func TestMatcher_BlindSpotsAndOrphans(t *testing.T) {
	engineering := []model.NormalizedAsset{
		engAsset("FT-101", "10.0.0.1", "", ""),
		engAsset("PT-200", "", "", ""), // nothing discoverable
	}
	discovery := []model.NormalizedAsset{
		discAsset("", "10.0.0.1", "", ""),
		discAsset("", "10.0.0.99", "", ""), // never documented
	}

	out, err := NewMatcher(zerolog.Nop()).Match(context.Background(), engineering, discovery)
	assert.NoError(t, err)
	assert.Equal(t, 1, out.Stats.MatchedCount)
	assert.Equal(t, 1, out.Stats.BlindSpotCount)
	assert.Equal(t, 1, out.Stats.OrphanCount)
	assert.Equal(t, 50, out.Stats.CoveragePercent)
	assert.Equal(t, "PT-200", out.BlindSpots[0].TagID)
	assert.Equal(t, "10.0.0.99", out.Orphans[0].IPAddress)
}

func TestMatcher_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMatcher(zerolog.Nop()).Match(ctx, nil, nil)
	assert.Error(t, err)
}

func TestCoverage(t *testing.T) {
	tests := []struct {
		name     string
		matched  int
		total    int
		expected int
	}{
		{"full", 10, 10, 100},
		{"half", 5, 10, 50},
		{"rounds up", 2, 3, 67},
		{"rounds down", 1, 3, 33},
		{"empty engineering set", 0, 0, 0},
		{"none matched", 0, 7, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Coverage(tt.matched, tt.total))
		})
	}
}
