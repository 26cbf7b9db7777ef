package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/InfraSecConsult/ot-asset-reconciler/lib/model"
)

func newTestRepository(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(":memory:")
	assert.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testRun(runID string, createdAt time.Time) *RunSummary {
	return &RunSummary{
		RunID:           runID,
		Industry:        "oil_gas",
		CreatedAt:       createdAt,
		AssetCount:      12,
		GapCount:        4,
		CoveragePercent: 75,
		EvidenceHash:    "deadbeef",
	}
}

func TestSQLiteRepository_RunRoundTrip(t *testing.T) {
	repo := newTestRepository(t)
	created := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

	assert.NoError(t, repo.AddRun(testRun("run-1", created)))

	got, err := repo.GetRun("run-1")
	assert.NoError(t, err)
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, "oil_gas", got.Industry)
	assert.Equal(t, 12, got.AssetCount)
	assert.Equal(t, 75, got.CoveragePercent)
	assert.True(t, created.Equal(got.CreatedAt))

	_, err = repo.GetRun("no-such-run")
	assert.Error(t, err)
}

func TestSQLiteRepository_ListRunsNewestFirst(t *testing.T) {
	repo := newTestRepository(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.NoError(t, repo.AddRun(testRun("run-old", base)))
	assert.NoError(t, repo.AddRun(testRun("run-new", base.Add(48*time.Hour))))

	runs, err := repo.ListRuns()
	assert.NoError(t, err)
	assert.Len(t, runs, 2)
	assert.Equal(t, "run-new", runs[0].RunID)
	assert.Equal(t, "run-old", runs[1].RunID)
}

func TestSQLiteRepository_AssetRoundTrip(t *testing.T) {
	repo := newTestRepository(t)

	risk := model.RiskAssessment{
		AssetID: "AST-0001", RawScore: 60, MaxPossibleScore: 150,
		NormalizedScore: 40, Level: model.RiskMedium,
		Factors: []model.RiskFactor{{Name: "DEVICE_CRITICALITY", Weight: 25, Detail: "device criticality is critical"}},
	}
	assets := []model.CanonicalAsset{
		{
			ID:     "AST-0001",
			Origin: model.OriginMatched,
			Engineering: &model.NormalizedAsset{
				TagID: "TIC-101", Unit: "CDU", IPAddress: "10.1.1.10",
				Kind: model.SourceEngineering,
			},
			Discovery: &model.NormalizedAsset{
				IPAddress: "10.1.1.10", Kind: model.SourceDiscovery,
			},
			MatchStrategy:   model.MatchByIP,
			MatchConfidence: 95,
			Classification:  model.TierClassification{Tier: 1, Reason: "critical keyword"},
			Context:         model.DeviceContext{Category: model.CategoryController, Criticality: model.CriticalityCritical},
			Lifecycle:       model.LifecycleStatus{State: model.LifecycleEOS},
			Risk:            &risk,
		},
		{
			ID:     "AST-0002",
			Origin: model.OriginOrphan,
			Discovery: &model.NormalizedAsset{
				IPAddress: "10.1.2.5", Kind: model.SourceDiscovery,
			},
			Classification: model.TierClassification{Tier: 2, Reason: "network address"},
			Context:        model.DeviceContext{Category: model.CategoryUnknown},
			Lifecycle:      model.LifecycleStatus{State: model.LifecycleUnknown},
		},
	}

	assert.NoError(t, repo.AddAssets("run-1", assets))

	got, err := repo.GetAssets("run-1")
	assert.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, "AST-0001", got[0].ID)
	assert.Equal(t, model.OriginMatched, got[0].Origin)
	assert.Equal(t, "TIC-101", got[0].Engineering.TagID)
	assert.Equal(t, model.MatchByIP, got[0].MatchStrategy)
	assert.Equal(t, 1, got[0].Classification.Tier)
	assert.Equal(t, model.LifecycleEOS, got[0].Lifecycle.State)
	assert.NotNil(t, got[0].Risk)
	assert.Equal(t, 40, got[0].Risk.NormalizedScore)
	assert.Nil(t, got[1].Engineering)
	assert.Equal(t, model.OriginOrphan, got[1].Origin)

	// other runs see nothing
	other, err := repo.GetAssets("run-2")
	assert.NoError(t, err)
	assert.Empty(t, other)
}

func TestSQLiteRepository_GapRoundTrip(t *testing.T) {
	repo := newTestRepository(t)

	gaps := []model.Gap{
		{
			Type: model.GapBlindSpot, Severity: model.SeverityCritical,
			Unit: "CDU", TagID: "PLC-01",
			Reason:         "documented but never discovered",
			Recommendation: "extend discovery coverage",
			PossibleCauses: []string{"asset is offline"},
		},
		{
			Type: model.GapStaleData, Severity: model.SeverityMedium,
			TagID: "FT-200", Reason: "not seen for 45 days",
		},
	}
	assert.NoError(t, repo.AddGaps("run-1", gaps))

	got, err := repo.GetGaps("run-1")
	assert.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, model.GapBlindSpot, got[0].Type)
	assert.Equal(t, model.SeverityCritical, got[0].Severity)
	assert.Equal(t, []string{"asset is offline"}, got[0].PossibleCauses)
	assert.Equal(t, model.GapStaleData, got[1].Type)
}

func TestSQLiteRepository_ProvenanceRoundTrip(t *testing.T) {
	repo := newTestRepository(t)
	ts := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

	events := []model.ProvenanceEvent{
		{
			RunID: "run-1", Sequence: 1, Timestamp: ts,
			Type: model.EventIngestion, SourceID: "inventory.csv",
			Detail: map[string]string{"row_count": "42"},
		},
		{
			RunID: "run-1", Sequence: 2, Timestamp: ts,
			Type: model.EventMatch, AssetID: "AST-0001",
			Detail: map[string]string{"strategy": "tag_id"},
		},
		{
			RunID: "run-2", Sequence: 1, Timestamp: ts,
			Type: model.EventIngestion, SourceID: "other.csv",
		},
	}
	assert.NoError(t, repo.AddProvenanceEvents(events))

	got, err := repo.GetProvenanceEvents("run-1")
	assert.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].Sequence)
	assert.Equal(t, model.EventIngestion, got[0].Type)
	assert.Equal(t, "42", got[0].Detail["row_count"])
	assert.Equal(t, "AST-0001", got[1].AssetID)
}

func TestSQLiteRepository_EmptyBatches(t *testing.T) {
	repo := newTestRepository(t)
	assert.NoError(t, repo.AddAssets("run-1", nil))
	assert.NoError(t, repo.AddGaps("run-1", nil))
	assert.NoError(t, repo.AddProvenanceEvents(nil))
	assert.NoError(t, repo.Commit())
}
