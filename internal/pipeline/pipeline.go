// Package pipeline runs the reconciliation stages in dependency order:
// normalize, detect industry, match, classify, cross-validate, enrich,
// map dependencies, analyze gaps, score risk. Each stage consumes the
// previous stage's full output; per-asset enrichment fans out over a
// bounded worker group since assets are independent there.
package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/InfraSecConsult/ot-asset-reconciler/internal/depgraph"
	"github.com/InfraSecConsult/ot-asset-reconciler/internal/gapanalysis"
	"github.com/InfraSecConsult/ot-asset-reconciler/internal/iec62443"
	"github.com/InfraSecConsult/ot-asset-reconciler/internal/industry"
	"github.com/InfraSecConsult/ot-asset-reconciler/internal/inference"
	"github.com/InfraSecConsult/ot-asset-reconciler/internal/lifecycle"
	"github.com/InfraSecConsult/ot-asset-reconciler/internal/match"
	"github.com/InfraSecConsult/ot-asset-reconciler/internal/normalize"
	"github.com/InfraSecConsult/ot-asset-reconciler/internal/provenance"
	"github.com/InfraSecConsult/ot-asset-reconciler/internal/risk"
	"github.com/InfraSecConsult/ot-asset-reconciler/lib/helper"
	"github.com/InfraSecConsult/ot-asset-reconciler/lib/model"
)

// Feed is one ingested source file, already parsed into rows by the
// ingestion layer.
type Feed struct {
	SourceID string
	Checksum string
	Kind     model.SourceKind
	Rows     []model.RawRecord
}

// Options configure one run.
type Options struct {
	// Industry forces an industry instead of detecting one.
	Industry string
	// Reference is the time all date-dependent computation uses. Zero
	// means time.Now at run start.
	Reference time.Time
	// Parallelism bounds the enrichment worker group; 0 means GOMAXPROCS.
	Parallelism int
}

// Result is everything one run produces.
type Result struct {
	RunID        string                       `json:"run_id"`
	Reference    time.Time                    `json:"reference"`
	Industry     string                       `json:"industry"`
	Detection    industry.DetectionResult     `json:"detection"`
	Assets       []model.CanonicalAsset       `json:"assets"`
	MatchStats   model.MatchStats             `json:"match_stats"`
	Flags        match.BatchFlags             `json:"flags"`
	CriticalPath []depgraph.CriticalPathEntry `json:"critical_path"`
	Graph        *depgraph.Graph              `json:"graph"`
	Gaps         model.GapReport              `json:"gaps"`
	Portfolio    model.PortfolioRiskReport    `json:"portfolio"`
	Audit        model.AuditPackage           `json:"audit"`
}

// Pipeline wires the reconciliation stages. One Pipeline may serve many
// runs; all per-run state lives in the Run call.
type Pipeline struct {
	catalog    *industry.Catalog
	detector   *industry.Detector
	matcher    *match.Matcher
	validator  *match.CrossValidator
	classifier iec62443.TierClassifier
	inferencer *inference.Inferencer
	analyzer   *lifecycle.Analyzer
	mapper     *depgraph.Mapper
	gaps       *gapanalysis.Analyzer
	risks      *risk.Engine
	logger     zerolog.Logger
}

// New assembles a pipeline over the embedded reference data.
func New(logger zerolog.Logger) (*Pipeline, error) {
	catalog, err := industry.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load industry catalog: %w", err)
	}
	analyzer, err := lifecycle.NewAnalyzer(logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load lifecycle reference data: %w", err)
	}
	classifier := iec62443.NewTierClassifier()
	return &Pipeline{
		catalog:    catalog,
		detector:   industry.NewDetector(catalog, logger),
		matcher:    match.NewMatcher(logger),
		validator:  match.NewCrossValidator(classifier, logger),
		classifier: classifier,
		inferencer: inference.NewInferencer(),
		analyzer:   analyzer,
		mapper:     depgraph.NewMapper(catalog, logger),
		gaps:       gapanalysis.NewAnalyzer(catalog, logger),
		risks:      risk.NewEngine(catalog, logger),
		logger:     logger.With().Str("component", "pipeline").Logger(),
	}, nil
}

// Run reconciles the given feeds into a canonical register.
func (p *Pipeline) Run(ctx context.Context, feeds []Feed, opts Options) (*Result, error) {
	reference := opts.Reference
	if reference.IsZero() {
		reference = time.Now()
	}
	parallelism := opts.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.GOMAXPROCS(0)
	}

	tracker := provenance.NewTracker(p.logger)
	started := time.Now()
	tracker.RecordReferenceData("industry_catalog", p.catalog.Version)
	tracker.RecordReferenceData("eol_database", p.analyzer.Version())

	// Normalize every feed.
	var engineering, discovery []model.NormalizedAsset
	for _, feed := range feeds {
		assets := normalize.NormalizeAll(feed.Rows, feed.Kind)
		tracker.RecordIngestion(feed.SourceID, feed.Checksum, len(feed.Rows), feed.Kind)
		switch feed.Kind {
		case model.SourceDiscovery:
			discovery = append(discovery, assets...)
		default:
			engineering = append(engineering, assets...)
		}
	}

	// Resolve the industry. Industry-specific stages run only with an
	// explicit or reliably detected industry.
	var detection industry.DetectionResult
	industryID := opts.Industry
	if industryID == "" {
		sample := append(append([]model.NormalizedAsset{}, engineering...), discovery...)
		detection = p.detector.Detect(sample)
		industryID = detection.Industry
	}

	matchOut, err := p.matcher.Match(ctx, engineering, discovery)
	if err != nil {
		return nil, err
	}

	assets := p.canonize(matchOut, tracker)

	// Per-asset enrichment is order-independent; fan out bounded workers.
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(parallelism)
	for i := range assets {
		i := i
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			a := &assets[i]
			merged := a.Merged()
			a.Classification = p.classifier.Classify(&merged)
			a.Context = p.inferencer.Infer(&merged)
			a.Lifecycle = p.analyzer.Analyze(&merged, a.Context.Category, reference)
			if a.Origin == model.OriginMatched {
				v := p.validator.Validate(model.MatchResult{
					Engineering: a.Engineering,
					Discovery:   a.Discovery,
					Strategy:    a.MatchStrategy,
					Confidence:  a.MatchConfidence,
				})
				a.Validation = &v
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	for i := range assets {
		a := &assets[i]
		tracker.RecordClassification(a.ID, fmt.Sprintf("tier_%d", a.Classification.Tier), a.Classification.Reason)
	}

	graph, err := p.mapper.Build(ctx, assets, industryID)
	if err != nil {
		return nil, err
	}

	stale := make(map[string]bool)
	for i := range assets {
		merged := assets[i].Merged()
		if lastSeen, ok := helper.ParseDate(merged.LastSeen); ok {
			stale[assets[i].ID] = reference.Sub(lastSeen) > 30*24*time.Hour
		}
	}
	rc := p.risks.NewRunContext(assets, graph, industryID, stale)
	for i := range assets {
		assessment := p.risks.Assess(&assets[i], rc)
		assets[i].Risk = &assessment
	}

	gapReport := p.gaps.Analyze(assets, industryID, reference)
	portfolio := p.risks.Portfolio(assets, rc)
	flags := p.validator.FlagAnomalies(assets)

	result := &Result{
		RunID:        tracker.RunID(),
		Reference:    reference,
		Industry:     industryID,
		Detection:    detection,
		Assets:       assets,
		MatchStats:   matchOut.Stats,
		Flags:        flags,
		Graph:        graph,
		CriticalPath: graph.CriticalPath(assets),
		Gaps:         gapReport,
		Portfolio:    portfolio,
		Audit:        tracker.Package(),
	}

	p.logger.Info().
		Str("run_id", result.RunID).
		Str("industry", industryID).
		Int("assets", len(assets)).
		Int("gaps", gapReport.Summary.Total).
		Dur("elapsed", time.Since(started)).
		Msg("reconciliation run complete")
	return result, nil
}

// canonize turns the match output into the canonical asset register.
// Ordering is deterministic: matches, then blind spots, then orphans, each
// in production order.
func (p *Pipeline) canonize(out model.MatchOutput, tracker *provenance.Tracker) []model.CanonicalAsset {
	assets := make([]model.CanonicalAsset, 0, len(out.Matches)+len(out.BlindSpots)+len(out.Orphans))
	next := 0
	nextID := func() string {
		next++
		return fmt.Sprintf("AST-%04d", next)
	}

	for _, m := range out.Matches {
		id := nextID()
		assets = append(assets, model.CanonicalAsset{
			ID:              id,
			Origin:          model.OriginMatched,
			Engineering:     m.Engineering,
			Discovery:       m.Discovery,
			MatchStrategy:   m.Strategy,
			MatchConfidence: m.Confidence,
		})
		tracker.RecordMatch(id, m.Strategy, m.Confidence, m.Engineering.Source, m.Discovery.Source)
	}
	for _, bs := range out.BlindSpots {
		assets = append(assets, model.CanonicalAsset{
			ID:          nextID(),
			Origin:      model.OriginBlindSpot,
			Engineering: bs,
		})
	}
	for _, o := range out.Orphans {
		assets = append(assets, model.CanonicalAsset{
			ID:        nextID(),
			Origin:    model.OriginOrphan,
			Discovery: o,
		})
	}
	return assets
}
