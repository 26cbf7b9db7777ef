package repository

import (
	"time"

	"github.com/InfraSecConsult/ot-asset-reconciler/lib/model"
)

// RunSummary is the stored header of one reconciliation run.
type RunSummary struct {
	RunID           string    `json:"run_id"`
	Industry        string    `json:"industry"`
	CreatedAt       time.Time `json:"created_at"`
	AssetCount      int       `json:"asset_count"`
	GapCount        int       `json:"gap_count"`
	CoveragePercent int       `json:"coverage_percent"`
	EvidenceHash    string    `json:"evidence_hash"`
}

// Repository defines the contract for persisting run outputs: canonical
// assets, gaps, and the provenance event log. The provenance log is the
// only state shared across runs.
type Repository interface {
	// Run header operations
	AddRun(summary *RunSummary) error
	GetRun(runID string) (*RunSummary, error)
	ListRuns() ([]*RunSummary, error)

	// Canonical asset operations
	AddAssets(runID string, assets []model.CanonicalAsset) error
	GetAssets(runID string) ([]model.CanonicalAsset, error)

	// Gap operations
	AddGaps(runID string, gaps []model.Gap) error
	GetGaps(runID string) ([]model.Gap, error)

	// Provenance operations
	AddProvenanceEvents(events []model.ProvenanceEvent) error
	GetProvenanceEvents(runID string) ([]model.ProvenanceEvent, error)

	// Transaction operations
	Commit() error
	Close() error
}
