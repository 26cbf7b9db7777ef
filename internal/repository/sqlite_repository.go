package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/InfraSecConsult/ot-asset-reconciler/lib/model"
)

// SQLiteRepository persists run outputs in a single SQLite file. Structured
// sub-records (the two normalized sides, device context, lifecycle, risk)
// are stored as JSON columns; query-relevant fields are broken out.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens (and if needed initializes) the database at
// path. Use ":memory:" for an ephemeral store.
func NewSQLiteRepository(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	repo := &SQLiteRepository{db: db}
	if err := repo.createTables(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *SQLiteRepository) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			industry TEXT,
			created_at TEXT NOT NULL,
			asset_count INTEGER NOT NULL,
			gap_count INTEGER NOT NULL,
			coverage_percent INTEGER NOT NULL,
			evidence_hash TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS assets (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			asset_id TEXT NOT NULL,
			origin TEXT NOT NULL,
			tag_id TEXT,
			ip_address TEXT,
			hostname TEXT,
			unit TEXT,
			security_tier INTEGER,
			device_category TEXT,
			lifecycle_state TEXT,
			risk_score INTEGER,
			risk_level TEXT,
			record TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS gaps (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			gap_type TEXT NOT NULL,
			severity TEXT NOT NULL,
			unit TEXT,
			tag_id TEXT,
			record TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS provenance_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			sequence INTEGER NOT NULL,
			timestamp TEXT NOT NULL,
			event_type TEXT NOT NULL,
			asset_id TEXT,
			source_id TEXT,
			detail TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_assets_run ON assets(run_id);`,
		`CREATE INDEX IF NOT EXISTS idx_gaps_run ON gaps(run_id);`,
		`CREATE INDEX IF NOT EXISTS idx_provenance_run ON provenance_events(run_id, sequence);`,
	}
	for _, q := range queries {
		if _, err := r.db.Exec(q); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// AddRun stores one run header.
func (r *SQLiteRepository) AddRun(summary *RunSummary) error {
	_, err := r.db.Exec(
		`INSERT INTO runs (run_id, industry, created_at, asset_count, gap_count, coverage_percent, evidence_hash)
		 VALUES (?, ?, ?, ?, ?, ?, ?);`,
		summary.RunID, summary.Industry, summary.CreatedAt.Format(time.RFC3339),
		summary.AssetCount, summary.GapCount, summary.CoveragePercent, summary.EvidenceHash,
	)
	return err
}

// GetRun loads one run header.
func (r *SQLiteRepository) GetRun(runID string) (*RunSummary, error) {
	row := r.db.QueryRow(
		`SELECT run_id, industry, created_at, asset_count, gap_count, coverage_percent, evidence_hash
		 FROM runs WHERE run_id = ?;`, runID)
	return scanRun(row)
}

// ListRuns returns all run headers, newest first.
func (r *SQLiteRepository) ListRuns() ([]*RunSummary, error) {
	rows, err := r.db.Query(
		`SELECT run_id, industry, created_at, asset_count, gap_count, coverage_percent, evidence_hash
		 FROM runs ORDER BY created_at DESC;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*RunSummary
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*RunSummary, error) {
	var run RunSummary
	var createdAt string
	err := row.Scan(&run.RunID, &run.Industry, &createdAt, &run.AssetCount,
		&run.GapCount, &run.CoveragePercent, &run.EvidenceHash)
	if err != nil {
		return nil, err
	}
	if t, perr := time.Parse(time.RFC3339, createdAt); perr == nil {
		run.CreatedAt = t
	}
	return &run, nil
}

// AddAssets stores the canonical assets of one run in a single transaction.
func (r *SQLiteRepository) AddAssets(runID string, assets []model.CanonicalAsset) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO assets (run_id, asset_id, origin, tag_id, ip_address, hostname, unit,
			security_tier, device_category, lifecycle_state, risk_score, risk_level, record)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range assets {
		a := &assets[i]
		record, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("failed to serialize asset %s: %w", a.ID, err)
		}
		merged := a.Merged()
		riskScore, riskLevel := 0, ""
		if a.Risk != nil {
			riskScore = a.Risk.NormalizedScore
			riskLevel = string(a.Risk.Level)
		}
		if _, err := stmt.Exec(runID, a.ID, string(a.Origin), merged.TagID, merged.IPAddress,
			merged.Hostname, merged.Unit, a.Classification.Tier, string(a.Context.Category),
			string(a.Lifecycle.State), riskScore, riskLevel, string(record)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetAssets loads the canonical assets of one run in insertion order.
func (r *SQLiteRepository) GetAssets(runID string) ([]model.CanonicalAsset, error) {
	rows, err := r.db.Query(`SELECT record FROM assets WHERE run_id = ? ORDER BY id;`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assets []model.CanonicalAsset
	for rows.Next() {
		var record string
		if err := rows.Scan(&record); err != nil {
			return nil, err
		}
		var asset model.CanonicalAsset
		if err := json.Unmarshal([]byte(record), &asset); err != nil {
			return nil, fmt.Errorf("failed to deserialize asset record: %w", err)
		}
		assets = append(assets, asset)
	}
	return assets, rows.Err()
}

// AddGaps stores the gap findings of one run.
func (r *SQLiteRepository) AddGaps(runID string, gaps []model.Gap) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO gaps (run_id, gap_type, severity, unit, tag_id, record) VALUES (?, ?, ?, ?, ?, ?);`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range gaps {
		record, err := json.Marshal(&gaps[i])
		if err != nil {
			return fmt.Errorf("failed to serialize gap: %w", err)
		}
		if _, err := stmt.Exec(runID, string(gaps[i].Type), string(gaps[i].Severity),
			gaps[i].Unit, gaps[i].TagID, string(record)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetGaps loads the gaps of one run in stored (severity-sorted) order.
func (r *SQLiteRepository) GetGaps(runID string) ([]model.Gap, error) {
	rows, err := r.db.Query(`SELECT record FROM gaps WHERE run_id = ? ORDER BY id;`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var gaps []model.Gap
	for rows.Next() {
		var record string
		if err := rows.Scan(&record); err != nil {
			return nil, err
		}
		var gap model.Gap
		if err := json.Unmarshal([]byte(record), &gap); err != nil {
			return nil, fmt.Errorf("failed to deserialize gap record: %w", err)
		}
		gaps = append(gaps, gap)
	}
	return gaps, rows.Err()
}

// AddProvenanceEvents appends events to the audit log. Events are never
// updated or deleted.
func (r *SQLiteRepository) AddProvenanceEvents(events []model.ProvenanceEvent) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO provenance_events (run_id, sequence, timestamp, event_type, asset_id, source_id, detail)
		 VALUES (?, ?, ?, ?, ?, ?, ?);`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range events {
		e := &events[i]
		detail, err := json.Marshal(e.Detail)
		if err != nil {
			return fmt.Errorf("failed to serialize event detail: %w", err)
		}
		if _, err := stmt.Exec(e.RunID, e.Sequence, e.Timestamp.Format(time.RFC3339Nano),
			string(e.Type), e.AssetID, e.SourceID, string(detail)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetProvenanceEvents loads the event log of one run in sequence order.
func (r *SQLiteRepository) GetProvenanceEvents(runID string) ([]model.ProvenanceEvent, error) {
	rows, err := r.db.Query(
		`SELECT run_id, sequence, timestamp, event_type, asset_id, source_id, detail
		 FROM provenance_events WHERE run_id = ? ORDER BY sequence;`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.ProvenanceEvent
	for rows.Next() {
		var e model.ProvenanceEvent
		var timestamp, eventType, detail string
		if err := rows.Scan(&e.RunID, &e.Sequence, &timestamp, &eventType, &e.AssetID, &e.SourceID, &detail); err != nil {
			return nil, err
		}
		if t, perr := time.Parse(time.RFC3339Nano, timestamp); perr == nil {
			e.Timestamp = t
		}
		e.Type = model.ProvenanceEventType(eventType)
		if detail != "" && detail != "null" {
			if err := json.Unmarshal([]byte(detail), &e.Detail); err != nil {
				return nil, fmt.Errorf("failed to deserialize event detail: %w", err)
			}
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Commit is a no-op; every Add* call commits its own transaction.
func (r *SQLiteRepository) Commit() error {
	return nil
}

// Close closes the underlying database.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}
