// Package provenance keeps the append-only audit log of one reconciliation
// run: every ingestion, match, and classification decision, in sequence,
// plus a content hash over the summary usable as tamper evidence.
package provenance

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/InfraSecConsult/ot-asset-reconciler/lib/model"
)

// Clock supplies timestamps; injected so event times are testable.
type Clock func() time.Time

// Tracker records pipeline events for one run. It is safe for concurrent
// use; sequence numbers are assigned under the lock and never reused.
type Tracker struct {
	mu       sync.Mutex
	runID    string
	sequence int64
	events   []model.ProvenanceEvent
	clock    Clock
	logger   zerolog.Logger
}

// NewTracker starts a tracker with a fresh run ID.
func NewTracker(logger zerolog.Logger) *Tracker {
	return NewTrackerWithClock(logger, time.Now)
}

// NewTrackerWithClock starts a tracker with an explicit clock.
func NewTrackerWithClock(logger zerolog.Logger, clock Clock) *Tracker {
	runID := uuid.NewString()
	return &Tracker{
		runID:  runID,
		clock:  clock,
		logger: logger.With().Str("component", "provenance").Str("run_id", runID).Logger(),
	}
}

// RunID returns the run/session identifier of this tracker.
func (t *Tracker) RunID() string {
	return t.runID
}

func (t *Tracker) append(eventType model.ProvenanceEventType, assetID, sourceID string, detail map[string]string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sequence++
	t.events = append(t.events, model.ProvenanceEvent{
		RunID:     t.runID,
		Sequence:  t.sequence,
		Timestamp: t.clock(),
		Type:      eventType,
		AssetID:   assetID,
		SourceID:  sourceID,
		Detail:    detail,
	})
}

// RecordIngestion logs one source file entering the run.
func (t *Tracker) RecordIngestion(sourceID, checksum string, rowCount int, detectedKind model.SourceKind) {
	t.append(model.EventIngestion, "", sourceID, map[string]string{
		"checksum":  checksum,
		"row_count": itoa(rowCount),
		"kind":      string(detectedKind),
	})
}

// RecordReferenceData logs the version of an embedded reference dataset the
// run computed against.
func (t *Tracker) RecordReferenceData(name, version string) {
	t.append(model.EventIngestion, "", name, map[string]string{
		"kind":    "reference_data",
		"version": version,
	})
}

// RecordMatch logs one match decision.
func (t *Tracker) RecordMatch(assetID string, strategy model.MatchStrategy, confidence int, engSource, discSource model.SourceRef) {
	t.append(model.EventMatch, assetID, "", map[string]string{
		"strategy":           string(strategy),
		"confidence":         itoa(confidence),
		"engineering_source": engSource.String(),
		"discovery_source":   discSource.String(),
	})
}

// RecordClassification logs one classification decision.
func (t *Tracker) RecordClassification(assetID, decision, reason string) {
	t.append(model.EventClassification, assetID, "", map[string]string{
		"decision": decision,
		"reason":   reason,
	})
}

// RecordReview logs a human-review decision against an asset.
func (t *Tracker) RecordReview(assetID, reviewer, decision, note string) {
	t.append(model.EventReview, assetID, "", map[string]string{
		"reviewer": reviewer,
		"decision": decision,
		"note":     note,
	})
}

// Events returns a copy of the event sequence recorded so far.
func (t *Tracker) Events() []model.ProvenanceEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]model.ProvenanceEvent, len(t.events))
	copy(out, t.events)
	return out
}

// auditSummary is the normalized object the evidence hash covers. Counts
// are keyed by sorted event type so the hash is independent of map order.
type auditSummary struct {
	RunID        string           `json:"run_id"`
	EventTotal   int              `json:"event_total"`
	TypeCounts   [][2]interface{} `json:"type_counts"`
	LastSequence int64            `json:"last_sequence"`
}

// Package assembles the audit package for the run so far.
func (t *Tracker) Package() model.AuditPackage {
	events := t.Events()

	counts := make(map[model.ProvenanceEventType]int)
	for _, e := range events {
		counts[e.Type]++
	}

	types := make([]string, 0, len(counts))
	for k := range counts {
		types = append(types, string(k))
	}
	sort.Strings(types)
	ordered := make([][2]interface{}, 0, len(types))
	for _, k := range types {
		ordered = append(ordered, [2]interface{}{k, counts[model.ProvenanceEventType(k)]})
	}

	var lastSeq int64
	if len(events) > 0 {
		lastSeq = events[len(events)-1].Sequence
	}
	summary := auditSummary{
		RunID:        t.runID,
		EventTotal:   len(events),
		TypeCounts:   ordered,
		LastSequence: lastSeq,
	}
	raw, _ := json.Marshal(summary)
	hash := sha256.Sum256(raw)

	pkg := model.AuditPackage{
		RunID:        t.runID,
		GeneratedAt:  t.clock(),
		EventCounts:  counts,
		Events:       events,
		EvidenceHash: hex.EncodeToString(hash[:]),
	}
	t.logger.Info().Int("events", len(events)).Str("evidence_hash", pkg.EvidenceHash).Msg("audit package assembled")
	return pkg
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
