// Package risk combines device, lifecycle, exposure, gap, and dependency
// context into one normalized per-asset score and a portfolio-level report.
// Scoring rules live in a declarative table so each rule is testable in
// isolation.
package risk

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/InfraSecConsult/ot-asset-reconciler/internal/depgraph"
	"github.com/InfraSecConsult/ot-asset-reconciler/internal/industry"
	"github.com/InfraSecConsult/ot-asset-reconciler/lib/helper"
	"github.com/InfraSecConsult/ot-asset-reconciler/lib/model"
)

// maxPossibleScore is the fixed normalization denominator.
const maxPossibleScore = 150

// Factor names, as they appear in assessments and reports.
const (
	FactorDeviceCriticality = "DEVICE_CRITICALITY"
	FactorSafetyRelevant    = "SAFETY_RELEVANT"
	FactorUnitCriticality   = "UNIT_CRITICALITY"
	FactorLifecycle         = "LIFECYCLE"
	FactorNetworkExposure   = "NETWORK_EXPOSURE"
	FactorExternalAddress   = "EXTERNAL_ADDRESS"
	FactorRemoteAccess      = "REMOTE_ACCESS"
	FactorUndocumented      = "UNDOCUMENTED"
	FactorNoDiscovery       = "NO_DISCOVERY"
	FactorStaleData         = "STALE_DATA"
	FactorSinglePoint       = "SINGLE_POINT_OF_FAILURE"
	FactorHighDependency    = "HIGH_DEPENDENCY"
)

var deviceCriticalityWeights = map[model.Criticality]int{
	model.CriticalityCritical: 25,
	model.CriticalityHigh:     15,
	model.CriticalityMedium:   8,
	model.CriticalityLow:      2,
}

var unitCriticalityWeights = map[model.Criticality]int{
	model.CriticalityCritical: 15,
	model.CriticalityHigh:     10,
	model.CriticalityMedium:   5,
	model.CriticalityLow:      2,
}

var lifecycleWeights = map[model.LifecycleState]int{
	model.LifecycleObsolete:       25,
	model.LifecycleEOS:            20,
	model.LifecycleEOL:            15,
	model.LifecycleApproachingEOL: 8,
	model.LifecycleUnknown:        4,
	model.LifecycleCurrent:        0,
}

var remoteAccessHints = []string{"remote", "vpn", "rdp", "dial", "modem", "teamviewer"}

// assessmentInput is everything one rule may look at.
type assessmentInput struct {
	asset           *model.CanonicalAsset
	merged          model.NormalizedAsset
	unitCriticality model.Criticality
	hasUnitProfile  bool
	stale           bool
	singlePoint     bool
	downstream      int
}

// rule is one row of the scoring table.
type rule struct {
	name string
	eval func(in *assessmentInput) (weight int, detail string)
}

var rules = []rule{
	{FactorDeviceCriticality, func(in *assessmentInput) (int, string) {
		w := deviceCriticalityWeights[in.asset.Context.Criticality]
		if w == 0 {
			return 0, ""
		}
		return w, fmt.Sprintf("device criticality is %s", in.asset.Context.Criticality)
	}},
	{FactorSafetyRelevant, func(in *assessmentInput) (int, string) {
		if !in.asset.Context.SafetyRelevant {
			return 0, ""
		}
		return 20, "asset serves a safety function"
	}},
	{FactorUnitCriticality, func(in *assessmentInput) (int, string) {
		if !in.hasUnitProfile {
			return 0, ""
		}
		w := unitCriticalityWeights[in.unitCriticality]
		if w == 0 {
			return 0, ""
		}
		return w, fmt.Sprintf("located in a %s-criticality unit", in.unitCriticality)
	}},
	{FactorLifecycle, func(in *assessmentInput) (int, string) {
		w := lifecycleWeights[in.asset.Lifecycle.State]
		if w == 0 {
			return 0, ""
		}
		return w, fmt.Sprintf("lifecycle state is %s", in.asset.Lifecycle.State)
	}},
	{FactorNetworkExposure, func(in *assessmentInput) (int, string) {
		if in.merged.IPAddress == "" {
			return 0, ""
		}
		return 15, "asset is reachable over the network"
	}},
	{FactorExternalAddress, func(in *assessmentInput) (int, string) {
		if in.merged.IPAddress == "" || helper.IsPrivateIP(in.merged.IPAddress) {
			return 0, ""
		}
		return 30, fmt.Sprintf("address %s is outside private ranges", in.merged.IPAddress)
	}},
	{FactorRemoteAccess, func(in *assessmentInput) (int, string) {
		text := strings.ToLower(strings.Join([]string{
			in.merged.Hostname, in.merged.DeviceType, in.merged.Protocol, in.merged.NetworkSegment,
		}, " "))
		for _, hint := range remoteAccessHints {
			if strings.Contains(text, hint) {
				return 10, fmt.Sprintf("remote access indicator %q", hint)
			}
		}
		return 0, ""
	}},
	{FactorUndocumented, func(in *assessmentInput) (int, string) {
		if in.asset.Origin != model.OriginOrphan {
			return 0, ""
		}
		return 15, "device is not in the engineering baseline"
	}},
	{FactorNoDiscovery, func(in *assessmentInput) (int, string) {
		if in.asset.Origin != model.OriginBlindSpot {
			return 0, ""
		}
		return 10, "device was never seen by network discovery"
	}},
	{FactorStaleData, func(in *assessmentInput) (int, string) {
		if !in.stale {
			return 0, ""
		}
		return 8, "discovery data is stale"
	}},
	{FactorSinglePoint, func(in *assessmentInput) (int, string) {
		if !in.singlePoint {
			return 0, ""
		}
		return 12, "no redundant peer serves this function in its unit"
	}},
	{FactorHighDependency, func(in *assessmentInput) (int, string) {
		if in.downstream <= 5 {
			return 0, ""
		}
		return 10, fmt.Sprintf("%d downstream assets depend on it", in.downstream)
	}},
}

// Engine scores canonical assets.
type Engine struct {
	catalog *industry.Catalog
	logger  zerolog.Logger
}

// NewEngine creates a risk engine over the industry catalog.
func NewEngine(catalog *industry.Catalog, logger zerolog.Logger) *Engine {
	return &Engine{
		catalog: catalog,
		logger:  logger.With().Str("component", "risk_engine").Logger(),
	}
}

// RunContext is the per-run context shared by all assessments: the
// dependency graph, the industry, and precomputed redundancy information.
type RunContext struct {
	IndustryID string
	Graph      *depgraph.Graph
	Stale      map[string]bool

	peerCounts map[string]int
}

// NewRunContext precomputes per-unit category counts for single-point
// detection. stale marks asset IDs whose discovery data is out of date.
func (e *Engine) NewRunContext(assets []model.CanonicalAsset, graph *depgraph.Graph, industryID string, stale map[string]bool) *RunContext {
	peers := make(map[string]int)
	for i := range assets {
		unit := ""
		if graph != nil {
			unit = graph.Unit(assets[i].ID)
		}
		peers[unit+"|"+string(assets[i].Context.Category)]++
	}
	if stale == nil {
		stale = map[string]bool{}
	}
	return &RunContext{
		IndustryID: industryID,
		Graph:      graph,
		Stale:      stale,
		peerCounts: peers,
	}
}

// Assess scores one asset. The normalized score always lands in [0,100].
func (e *Engine) Assess(asset *model.CanonicalAsset, rc *RunContext) model.RiskAssessment {
	merged := asset.Merged()

	in := assessmentInput{
		asset:  asset,
		merged: merged,
		stale:  rc.Stale[asset.ID],
	}
	if profile := e.catalog.MatchUnit(rc.IndustryID, merged.Unit); profile != nil {
		in.hasUnitProfile = true
		in.unitCriticality = profile.Criticality
	}
	if rc.Graph != nil {
		in.downstream = rc.Graph.DownstreamCount(asset.ID)
		unit := rc.Graph.Unit(asset.ID)
		critical := asset.Context.Category == model.CategoryController ||
			asset.Context.Category == model.CategorySafetySystem ||
			asset.Context.SafetyRelevant
		if critical && rc.peerCounts[unit+"|"+string(asset.Context.Category)] == 1 {
			in.singlePoint = true
		}
	}

	raw := 0
	factors := []model.RiskFactor{}
	for _, r := range rules {
		weight, detail := r.eval(&in)
		if weight == 0 {
			continue
		}
		raw += weight
		factors = append(factors, model.RiskFactor{Name: r.name, Weight: weight, Detail: detail})
	}

	normalized := int(math.Round(float64(raw) / float64(maxPossibleScore) * 100))
	if normalized > 100 {
		normalized = 100
	}

	return model.RiskAssessment{
		AssetID:          asset.ID,
		RawScore:         raw,
		MaxPossibleScore: maxPossibleScore,
		NormalizedScore:  normalized,
		Level:            model.RiskLevelForScore(normalized),
		Factors:          factors,
	}
}

// Portfolio aggregates the per-asset assessments of one run. Assets are
// expected to carry their Risk sub-record already.
func (e *Engine) Portfolio(assets []model.CanonicalAsset, rc *RunContext) model.PortfolioRiskReport {
	report := model.PortfolioRiskReport{
		AssetCount:      len(assets),
		Distribution:    make(map[model.RiskLevel]int),
		FactorFrequency: make(map[string]int),
	}
	if len(assets) == 0 {
		return report
	}

	total := 0
	unitAgg := make(map[string]*model.UnitRisk)
	all := make([]model.RiskAssessment, 0, len(assets))
	exposedCritical := 0
	for i := range assets {
		a := &assets[i]
		if a.Risk == nil {
			continue
		}
		r := *a.Risk
		all = append(all, r)
		total += r.NormalizedScore
		report.Distribution[r.Level]++
		for _, f := range r.Factors {
			report.FactorFrequency[f.Name]++
		}

		merged := a.Merged()
		unit := merged.Unit
		if rc != nil && rc.Graph != nil && rc.Graph.Unit(a.ID) != "" {
			unit = rc.Graph.Unit(a.ID)
		}
		if unit != "" {
			ur := unitAgg[unit]
			if ur == nil {
				ur = &model.UnitRisk{Unit: unit}
				unitAgg[unit] = ur
			}
			ur.AssetCount++
			ur.AverageScore += float64(r.NormalizedScore)
			if r.NormalizedScore > ur.MaxScore {
				ur.MaxScore = r.NormalizedScore
			}
		}
		if a.Context.Criticality == model.CriticalityCritical && hasFactor(r, FactorExternalAddress) {
			exposedCritical++
		}
	}
	if len(all) == 0 {
		return report
	}
	report.AverageScore = math.Round(float64(total)/float64(len(all))*100) / 100

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].NormalizedScore != all[j].NormalizedScore {
			return all[i].NormalizedScore > all[j].NormalizedScore
		}
		return all[i].AssetID < all[j].AssetID
	})
	top := len(all)
	if top > 10 {
		top = 10
	}
	report.TopAssets = all[:top]

	unitNames := make([]string, 0, len(unitAgg))
	for name := range unitAgg {
		unitNames = append(unitNames, name)
	}
	sort.Strings(unitNames)
	for _, name := range unitNames {
		ur := unitAgg[name]
		ur.AverageScore = math.Round(ur.AverageScore/float64(ur.AssetCount)*100) / 100
		report.UnitRisks = append(report.UnitRisks, *ur)
	}

	report.Recommendations = e.recommendations(&report, exposedCritical)
	e.logger.Info().
		Int("assets", report.AssetCount).
		Float64("average_score", report.AverageScore).
		Int("critical", report.Distribution[model.RiskCritical]).
		Msg("portfolio risk aggregation complete")
	return report
}

func hasFactor(r model.RiskAssessment, name string) bool {
	for _, f := range r.Factors {
		if f.Name == name {
			return true
		}
	}
	return false
}

// recommendations turns factor frequencies into portfolio priorities.
func (e *Engine) recommendations(report *model.PortfolioRiskReport, exposedCritical int) []string {
	recs := []string{}
	if n := report.Distribution[model.RiskCritical]; n > 0 {
		recs = append(recs, fmt.Sprintf("%d assets are at critical risk; review them before anything else.", n))
	}
	lifecycleDriven := report.FactorFrequency[FactorLifecycle]
	if lifecycleDriven > 0 {
		recs = append(recs, fmt.Sprintf("%d assets carry lifecycle risk (EOL or worse); plan replacements.", lifecycleDriven))
	}
	if n := report.FactorFrequency[FactorUndocumented]; n > 0 {
		recs = append(recs, fmt.Sprintf("%d undocumented devices add unmanaged risk; reconcile the baseline.", n))
	}
	if exposedCritical > 0 {
		recs = append(recs, fmt.Sprintf("%d critical assets carry non-private addresses; verify segmentation immediately.", exposedCritical))
	}
	return recs
}
