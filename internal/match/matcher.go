// Package match links engineering inventory records to network discovery
// records. Strategies run in strict priority order and consume records as
// they match: a record used by one strategy is never reconsidered by a
// later one, so every record participates in at most one pair.
package match

import (
	"context"
	"math"
	"strings"

	"github.com/rs/zerolog"

	"github.com/InfraSecConsult/ot-asset-reconciler/lib/model"
)

// strategy is one matching rule: a key extractor applied to both sides.
// Records with an empty key are unmatchable by that strategy.
type strategy struct {
	name model.MatchStrategy
	key  func(*model.NormalizedAsset) string
}

// strategies in priority order. The order is a correctness requirement:
// each strategy consumes from the remaining-unmatched sets left by its
// predecessors.
var strategies = []strategy{
	{model.MatchByTagID, func(a *model.NormalizedAsset) string { return a.TagID }},
	{model.MatchByIP, func(a *model.NormalizedAsset) string { return a.IPAddress }},
	{model.MatchByHostname, func(a *model.NormalizedAsset) string { return strings.ToLower(a.Hostname) }},
	{model.MatchByMAC, func(a *model.NormalizedAsset) string { return a.MACAddress }},
}

// Matcher links two inventories. It holds no per-run state; Match returns
// everything a run produces, so concurrent runs are independent.
type Matcher struct {
	logger zerolog.Logger
}

// NewMatcher creates a matcher.
func NewMatcher(logger zerolog.Logger) *Matcher {
	return &Matcher{logger: logger.With().Str("component", "matcher").Logger()}
}

// Match reconciles engineering records against discovery records. The
// context bounds the O(n×m)-ish scan on very large inventories.
func (m *Matcher) Match(ctx context.Context, engineering, discovery []model.NormalizedAsset) (model.MatchOutput, error) {
	usedEng := make([]bool, len(engineering))
	usedDisc := make([]bool, len(discovery))
	matches := make([]model.MatchResult, 0, len(engineering))

	for _, strat := range strategies {
		if err := ctx.Err(); err != nil {
			return model.MatchOutput{}, err
		}

		// Index the still-unused discovery records by this strategy's key.
		// First occurrence wins, matching first-unused-record semantics.
		index := make(map[string][]int)
		for di := range discovery {
			if usedDisc[di] {
				continue
			}
			key := strat.key(&discovery[di])
			if key == "" {
				continue
			}
			index[key] = append(index[key], di)
		}

		for ei := range engineering {
			if usedEng[ei] {
				continue
			}
			key := strat.key(&engineering[ei])
			if key == "" {
				continue
			}
			candidates := index[key]
			matched := -1
			for _, di := range candidates {
				if !usedDisc[di] {
					matched = di
					break
				}
			}
			if matched < 0 {
				continue
			}
			usedEng[ei] = true
			usedDisc[matched] = true
			matches = append(matches, model.MatchResult{
				Engineering: &engineering[ei],
				Discovery:   &discovery[matched],
				Strategy:    strat.name,
				Confidence:  model.StrategyConfidence(strat.name),
			})
		}
	}

	blindSpots := make([]*model.NormalizedAsset, 0)
	for ei := range engineering {
		if !usedEng[ei] {
			blindSpots = append(blindSpots, &engineering[ei])
		}
	}
	orphans := make([]*model.NormalizedAsset, 0)
	for di := range discovery {
		if !usedDisc[di] {
			orphans = append(orphans, &discovery[di])
		}
	}

	stats := model.MatchStats{
		EngineeringTotal: len(engineering),
		DiscoveryTotal:   len(discovery),
		MatchedCount:     len(matches),
		BlindSpotCount:   len(blindSpots),
		OrphanCount:      len(orphans),
		CoveragePercent:  Coverage(len(matches), len(engineering)),
	}

	m.logger.Info().
		Int("engineering", stats.EngineeringTotal).
		Int("discovery", stats.DiscoveryTotal).
		Int("matched", stats.MatchedCount).
		Int("blind_spots", stats.BlindSpotCount).
		Int("orphans", stats.OrphanCount).
		Int("coverage_percent", stats.CoveragePercent).
		Msg("matching complete")

	return model.MatchOutput{
		Matches:    matches,
		BlindSpots: blindSpots,
		Orphans:    orphans,
		Stats:      stats,
	}, nil
}

// Coverage computes round(matched/engineeringTotal*100). An empty
// engineering set yields 0, not a division error.
func Coverage(matched, engineeringTotal int) int {
	if engineeringTotal == 0 {
		return 0
	}
	return int(math.Round(float64(matched) / float64(engineeringTotal) * 100))
}
