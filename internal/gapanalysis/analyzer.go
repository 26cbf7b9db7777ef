// Package gapanalysis derives asset, functional, and coverage gaps from the
// reconciled register. The three families are computed independently and
// merged into one severity-ordered list.
package gapanalysis

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/InfraSecConsult/ot-asset-reconciler/internal/industry"
	"github.com/InfraSecConsult/ot-asset-reconciler/lib/helper"
	"github.com/InfraSecConsult/ot-asset-reconciler/lib/model"
)

const (
	staleAfter     = 30 * 24 * time.Hour
	veryStaleAfter = 90 * 24 * time.Hour

	lowVisibilityCoverage = 30
	lowVisibilityMinSize  = 5
	subnetBlindSpotMin    = 2
)

// Analyzer derives gaps from one canonical register.
type Analyzer struct {
	catalog *industry.Catalog
	logger  zerolog.Logger
}

// NewAnalyzer creates a gap analyzer over the industry catalog.
func NewAnalyzer(catalog *industry.Catalog, logger zerolog.Logger) *Analyzer {
	return &Analyzer{
		catalog: catalog,
		logger:  logger.With().Str("component", "gap_analyzer").Logger(),
	}
}

// Analyze computes the full gap report at the given reference time.
// Functional gaps need an industry; without one they come out empty while
// asset and coverage gaps are still produced.
func (a *Analyzer) Analyze(assets []model.CanonicalAsset, industryID string, reference time.Time) model.GapReport {
	gaps := a.assetGaps(assets, reference)
	gaps = append(gaps, a.functionalGaps(assets, industryID)...)
	gaps = append(gaps, a.coverageGaps(assets, industryID)...)

	model.SortGaps(gaps)

	summary := model.GapSummary{
		Total:      len(gaps),
		ByType:     make(map[model.GapType]int),
		BySeverity: make(map[model.Severity]int),
		ByUnit:     make(map[string]int),
	}
	for _, g := range gaps {
		summary.ByType[g.Type]++
		summary.BySeverity[g.Severity]++
		if g.Unit != "" {
			summary.ByUnit[g.Unit]++
		}
	}

	report := model.GapReport{
		Gaps:            gaps,
		Summary:         summary,
		Recommendations: a.recommendations(summary),
	}
	a.logger.Info().
		Int("total", summary.Total).
		Int("critical", summary.BySeverity[model.SeverityCritical]).
		Int("high", summary.BySeverity[model.SeverityHigh]).
		Msg("gap analysis complete")
	return report
}

// assetGaps covers the per-asset findings: blind spots, orphans, stale data.
func (a *Analyzer) assetGaps(assets []model.CanonicalAsset, reference time.Time) []model.Gap {
	gaps := []model.Gap{}
	for i := range assets {
		asset := &assets[i]
		merged := asset.Merged()

		switch asset.Origin {
		case model.OriginBlindSpot:
			severity := model.SeverityMedium
			switch {
			case asset.Context.Criticality == model.CriticalityCritical || asset.Context.SafetyRelevant:
				severity = model.SeverityCritical
			case asset.Context.Criticality == model.CriticalityHigh || asset.Classification.Tier == 1:
				severity = model.SeverityHigh
			}
			gaps = append(gaps, model.Gap{
				Type:           model.GapBlindSpot,
				Severity:       severity,
				Unit:           merged.Unit,
				TagID:          merged.TagID,
				Reason:         "documented in engineering records but never seen by network discovery",
				Recommendation: "verify the asset is connected and extend discovery coverage to its segment",
				PossibleCauses: []string{
					"asset is offline or air-gapped",
					"discovery sensor does not cover its network segment",
					"asset was decommissioned without updating records",
				},
			})
		case model.OriginOrphan:
			severity := model.SeverityMedium
			switch {
			case asset.Context.SafetyRelevant:
				severity = model.SeverityCritical
			case merged.HasNetworkAddress() || asset.Context.Criticality == model.CriticalityCritical || asset.Context.Criticality == model.CriticalityHigh:
				severity = model.SeverityHigh
			}
			gaps = append(gaps, model.Gap{
				Type:           model.GapUndocumentedDevice,
				Severity:       severity,
				Unit:           merged.Unit,
				TagID:          merged.TagID,
				Reason:         "seen on the network but absent from engineering records",
				Recommendation: "identify the device and add it to the engineering baseline, or remove it",
				PossibleCauses: []string{
					"undocumented change or temporary installation",
					"engineering records are out of date",
					"unauthorized device",
				},
			})
		}

		if lastSeen, ok := helper.ParseDate(merged.LastSeen); ok {
			age := reference.Sub(lastSeen)
			if age > staleAfter {
				severity := model.SeverityMedium
				if age > veryStaleAfter {
					severity = model.SeverityHigh
				}
				gaps = append(gaps, model.Gap{
					Type:           model.GapStaleData,
					Severity:       severity,
					Unit:           merged.Unit,
					TagID:          merged.TagID,
					Reason:         fmt.Sprintf("not seen for %d days", int(age.Hours()/24)),
					Recommendation: "confirm the asset is still in service and restore monitoring",
				})
			}
		}
	}
	return gaps
}

// functionalGaps checks each recognized unit against the industry's
// expected functions and minimum device counts.
func (a *Analyzer) functionalGaps(assets []model.CanonicalAsset, industryID string) []model.Gap {
	if industryID == "" {
		return []model.Gap{}
	}
	units := a.catalog.UnitsFor(industryID)
	if len(units) == 0 {
		return []model.Gap{}
	}

	// Count assets per unit and device category.
	type unitCount struct {
		present    bool
		byCategory map[model.DeviceCategory]int
	}
	counts := make(map[string]*unitCount)
	for i := range assets {
		merged := assets[i].Merged()
		profile := a.catalog.MatchUnit(industryID, merged.Unit)
		if profile == nil {
			continue
		}
		uc := counts[profile.ID]
		if uc == nil {
			uc = &unitCount{byCategory: make(map[model.DeviceCategory]int)}
			counts[profile.ID] = uc
		}
		uc.present = true
		uc.byCategory[assets[i].Context.Category]++
	}

	gaps := []model.Gap{}
	for ui := range units {
		unit := &units[ui]
		uc := counts[unit.ID]
		if uc == nil {
			// Unit absent from the register entirely: expectations do not
			// apply until assets reference it.
			continue
		}
		for _, fn := range unit.Functions {
			have := uc.byCategory[fn.Category]
			switch {
			case have == 0:
				severity := model.SeverityHigh
				if fn.Critical {
					severity = model.SeverityCritical
				}
				gaps = append(gaps, model.Gap{
					Type:           model.GapMissingFunction,
					Severity:       severity,
					Unit:           unit.ID,
					Reason:         fmt.Sprintf("no %s assets serve %s in %s", fn.Category, fn.Function, unit.Name),
					Recommendation: fmt.Sprintf("verify %s instrumentation exists and is inventoried", fn.Function),
				})
			case have < fn.MinCount:
				severity := model.SeverityMedium
				if fn.Critical {
					severity = model.SeverityHigh
				}
				gaps = append(gaps, model.Gap{
					Type:           model.GapInsufficientCoverage,
					Severity:       severity,
					Unit:           unit.ID,
					Reason:         fmt.Sprintf("%s has %d of %d expected %s devices for %s", unit.Name, have, fn.MinCount, fn.Category, fn.Function),
					Recommendation: "review whether the missing devices are uninventoried or genuinely absent",
				})
			case fn.Critical && have == 1:
				gaps = append(gaps, model.Gap{
					Type:           model.GapNoRedundancy,
					Severity:       model.SeverityHigh,
					Unit:           unit.ID,
					Reason:         fmt.Sprintf("critical function %s in %s depends on a single device", fn.Function, unit.Name),
					Recommendation: "assess redundancy requirements for this function",
				})
			}
		}
	}
	return gaps
}

// coverageGaps compares discovery visibility against the engineering
// baseline per unit and per subnet.
func (a *Analyzer) coverageGaps(assets []model.CanonicalAsset, industryID string) []model.Gap {
	type unitCoverage struct {
		engineering int
		discovered  int
	}
	units := make(map[string]*unitCoverage)
	subnetEng := make(map[string]int)
	subnetDisc := make(map[string]int)

	for i := range assets {
		asset := &assets[i]
		merged := asset.Merged()
		if merged.Unit != "" {
			uc := units[merged.Unit]
			if uc == nil {
				uc = &unitCoverage{}
				units[merged.Unit] = uc
			}
			if asset.Engineering != nil {
				uc.engineering++
			}
			if asset.Discovery != nil {
				uc.discovered++
			}
		}
		if asset.Engineering != nil {
			if key := helper.SubnetKey(asset.Engineering.IPAddress); key != "" {
				subnetEng[key]++
			}
		}
		if asset.Discovery != nil {
			if key := helper.SubnetKey(asset.Discovery.IPAddress); key != "" {
				subnetDisc[key]++
			}
		}
	}

	gaps := []model.Gap{}
	unitNames := make([]string, 0, len(units))
	for name := range units {
		unitNames = append(unitNames, name)
	}
	sort.Strings(unitNames)
	for _, name := range unitNames {
		uc := units[name]
		if uc.engineering == 0 {
			continue
		}
		coverage := uc.discovered * 100 / uc.engineering
		switch {
		case uc.discovered == 0:
			severity := model.SeverityHigh
			if profile := a.catalog.MatchUnit(industryID, name); profile != nil && profile.Criticality == model.CriticalityCritical {
				severity = model.SeverityCritical
			}
			gaps = append(gaps, model.Gap{
				Type:           model.GapNoVisibility,
				Severity:       severity,
				Unit:           name,
				Reason:         fmt.Sprintf("none of %d documented assets in %s were discovered", uc.engineering, name),
				Recommendation: "deploy or extend discovery coverage for this unit",
			})
		case coverage < lowVisibilityCoverage && uc.engineering > lowVisibilityMinSize:
			gaps = append(gaps, model.Gap{
				Type:           model.GapLowVisibility,
				Severity:       model.SeverityMedium,
				Unit:           name,
				Reason:         fmt.Sprintf("only %d%% of %d documented assets in %s were discovered", coverage, uc.engineering, name),
				Recommendation: "investigate why discovery misses most of this unit",
			})
		}
	}

	subnets := make([]string, 0, len(subnetEng))
	for key := range subnetEng {
		subnets = append(subnets, key)
	}
	sort.Strings(subnets)
	for _, key := range subnets {
		if subnetEng[key] > subnetBlindSpotMin && subnetDisc[key] == 0 {
			gaps = append(gaps, model.Gap{
				Type:           model.GapNetworkBlindSpot,
				Severity:       model.SeverityHigh,
				Unit:           key,
				Reason:         fmt.Sprintf("subnet %s holds %d documented assets but discovery sees none", key, subnetEng[key]),
				Recommendation: "verify discovery sensors reach this subnet",
			})
		}
	}
	return gaps
}

// recommendations derives a small set of priorities from gap-type counts.
func (a *Analyzer) recommendations(summary model.GapSummary) []string {
	recs := []string{}
	if n := summary.BySeverity[model.SeverityCritical]; n > 0 {
		recs = append(recs, fmt.Sprintf("Address %d critical gaps first; they involve safety-relevant or critical-control assets.", n))
	}
	if n := summary.ByType[model.GapBlindSpot]; n > 3 {
		recs = append(recs, fmt.Sprintf("%d documented assets are invisible to discovery; extend sensor coverage before trusting the register.", n))
	}
	if n := summary.ByType[model.GapUndocumentedDevice]; n > 3 {
		recs = append(recs, fmt.Sprintf("%d discovered devices have no engineering record; schedule a walkdown to reconcile the baseline.", n))
	}
	if n := summary.ByType[model.GapNetworkBlindSpot] + summary.ByType[model.GapNoVisibility]; n > 0 {
		recs = append(recs, fmt.Sprintf("%d units or subnets have zero discovery visibility; they are unmonitored attack surface.", n))
	}
	if n := summary.ByType[model.GapStaleData]; n > 5 {
		recs = append(recs, fmt.Sprintf("%d assets have stale discovery data; check collector health.", n))
	}
	return recs
}
