package model

import (
	"errors"
	"time"
)

// ProvenanceEventType enumerates the pipeline actions the tracker records.
type ProvenanceEventType string

const (
	EventIngestion      ProvenanceEventType = "ingestion"
	EventMatch          ProvenanceEventType = "match"
	EventClassification ProvenanceEventType = "classification"
	EventReview         ProvenanceEventType = "review"
)

// ProvenanceEvent is one append-only, sequence-numbered record of a pipeline
// action within a run.
type ProvenanceEvent struct {
	RunID     string              `json:"run_id"`
	Sequence  int64               `json:"sequence"`
	Timestamp time.Time           `json:"timestamp"`
	Type      ProvenanceEventType `json:"type"`
	AssetID   string              `json:"asset_id,omitempty"`
	SourceID  string              `json:"source_id,omitempty"`
	Detail    map[string]string   `json:"detail,omitempty"`
}

// Validate validates the ProvenanceEvent struct
func (e *ProvenanceEvent) Validate() error {
	if e.RunID == "" {
		return errors.New("run ID must not be empty")
	}
	if e.Sequence < 1 {
		return errors.New("sequence must be positive")
	}
	if e.Timestamp.IsZero() {
		return errors.New("timestamp must not be zero")
	}
	switch e.Type {
	case EventIngestion, EventMatch, EventClassification, EventReview:
	default:
		return errors.New("invalid provenance event type")
	}
	return nil
}

// AuditPackage is the exportable audit trail of one run: event counts, the
// full ordered sequence, and a content hash over the normalized summary
// usable as tamper evidence.
type AuditPackage struct {
	RunID        string                      `json:"run_id"`
	GeneratedAt  time.Time                   `json:"generated_at"`
	EventCounts  map[ProvenanceEventType]int `json:"event_counts"`
	Events       []ProvenanceEvent           `json:"events"`
	EvidenceHash string                      `json:"evidence_hash"`
}
