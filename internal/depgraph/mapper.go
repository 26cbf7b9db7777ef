// Package depgraph builds a directed dependency graph over the canonical
// asset register from three independent sources: inferred control
// relationships, shared network segments, and per-industry templates of
// process-flow, utility, and safety relationships between units.
package depgraph

import (
	"context"
	"sort"

	"github.com/rs/zerolog"

	"github.com/InfraSecConsult/ot-asset-reconciler/internal/industry"
	"github.com/InfraSecConsult/ot-asset-reconciler/lib/helper"
	"github.com/InfraSecConsult/ot-asset-reconciler/lib/model"
)

// EdgeKind labels why one asset depends on another.
type EdgeKind string

const (
	EdgeControl     EdgeKind = "control"
	EdgeNetwork     EdgeKind = "network"
	EdgeProcessFlow EdgeKind = "process_flow"
	EdgeUtility     EdgeKind = "utility"
	EdgeSafety      EdgeKind = "safety"
)

// Edge is one directed dependency: To depends on From; losing From affects
// To.
type Edge struct {
	From   string   `json:"from"`
	To     string   `json:"to"`
	Kind   EdgeKind `json:"kind"`
	Reason string   `json:"reason"`
}

// BlastRadius is the downstream effect of losing one asset.
type BlastRadius struct {
	AssetID        string   `json:"asset_id"`
	AffectedAssets []string `json:"affected_assets"`
	AffectedUnits  []string `json:"affected_units"`
}

// CriticalPathEntry ranks one asset by its downstream footprint.
type CriticalPathEntry struct {
	AssetID        string `json:"asset_id"`
	TagID          string `json:"tag_id"`
	Unit           string `json:"unit"`
	AffectedAssets int    `json:"affected_assets"`
	AffectedUnits  int    `json:"affected_units"`
	Score          int    `json:"score"`
}

// Graph is the built dependency graph of one run.
type Graph struct {
	Edges []Edge `json:"edges"`
	// UnitRelations are the templated unit-level dependencies that applied
	// to this register.
	UnitRelations []industry.UnitRelation `json:"unit_relations"`

	outgoing  map[string][]string
	assetUnit map[string]string
	unitOut   map[string][]string
	unitAsset map[string][]string
}

// Mapper builds dependency graphs.
type Mapper struct {
	catalog *industry.Catalog
	logger  zerolog.Logger
}

// NewMapper creates a mapper over the industry catalog.
func NewMapper(catalog *industry.Catalog, logger zerolog.Logger) *Mapper {
	return &Mapper{
		catalog: catalog,
		logger:  logger.With().Str("component", "dependency_mapper").Logger(),
	}
}

func isFieldDevice(cat model.DeviceCategory) bool {
	switch cat {
	case model.CategoryTransmitter, model.CategoryAnalyzer, model.CategoryValveActuator, model.CategoryDrive:
		return true
	default:
		return false
	}
}

func isControllerLike(cat model.DeviceCategory) bool {
	return cat == model.CategoryController || cat == model.CategorySafetySystem
}

// resolveUnit maps an asset's free-form unit name onto a catalog unit ID,
// falling back to the raw name so assets of unknown units still group.
func (m *Mapper) resolveUnit(industryID string, a *model.CanonicalAsset) string {
	merged := a.Merged()
	if up := m.catalog.MatchUnit(industryID, merged.Unit); up != nil {
		return up.ID
	}
	return merged.Unit
}

// Build constructs the dependency graph for one canonical register. The
// context bounds the pairwise control-inference scan.
func (m *Mapper) Build(ctx context.Context, assets []model.CanonicalAsset, industryID string) (*Graph, error) {
	g := &Graph{
		Edges:     []Edge{},
		outgoing:  make(map[string][]string),
		assetUnit: make(map[string]string),
		unitOut:   make(map[string][]string),
		unitAsset: make(map[string][]string),
	}

	byUnit := make(map[string][]int)
	for i := range assets {
		unit := m.resolveUnit(industryID, &assets[i])
		g.assetUnit[assets[i].ID] = unit
		if unit != "" {
			byUnit[unit] = append(byUnit[unit], i)
			g.unitAsset[unit] = append(g.unitAsset[unit], assets[i].ID)
		}
	}

	addEdge := func(e Edge) {
		g.Edges = append(g.Edges, e)
		g.outgoing[e.From] = append(g.outgoing[e.From], e.To)
	}

	// Control dependencies: a controller-like asset and a field device in
	// the same unit, tied together by loop number or shared subnet.
	units := make([]string, 0, len(byUnit))
	for unit := range byUnit {
		units = append(units, unit)
	}
	sort.Strings(units)
	for _, unit := range units {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		members := byUnit[unit]
		for _, ci := range members {
			ctrl := &assets[ci]
			if !isControllerLike(ctrl.Context.Category) {
				continue
			}
			ctrlMerged := ctrl.Merged()
			for _, fi := range members {
				if fi == ci {
					continue
				}
				field := &assets[fi]
				if !isFieldDevice(field.Context.Category) {
					continue
				}
				fieldMerged := field.Merged()
				sameLoop := ctrl.Context.LoopNumber != "" && ctrl.Context.LoopNumber == field.Context.LoopNumber
				ctrlSubnet := helper.SubnetKey(ctrlMerged.IPAddress)
				sameSubnet := ctrlSubnet != "" && ctrlSubnet == helper.SubnetKey(fieldMerged.IPAddress)
				if !sameLoop && !sameSubnet {
					continue
				}
				reason := "shared control loop " + ctrl.Context.LoopNumber
				if !sameLoop {
					reason = "co-located on subnet " + ctrlSubnet
				}
				addEdge(Edge{From: ctrl.ID, To: field.ID, Kind: EdgeControl, Reason: reason})
			}
		}
	}

	// Network dependencies: every network-infrastructure asset carries its
	// /24 peers.
	bySubnet := make(map[string][]int)
	for i := range assets {
		merged := assets[i].Merged()
		if key := helper.SubnetKey(merged.IPAddress); key != "" {
			bySubnet[key] = append(bySubnet[key], i)
		}
	}
	subnets := make([]string, 0, len(bySubnet))
	for key := range bySubnet {
		subnets = append(subnets, key)
	}
	sort.Strings(subnets)
	for _, key := range subnets {
		members := bySubnet[key]
		for _, ni := range members {
			netDev := &assets[ni]
			if netDev.Context.Category != model.CategoryNetwork {
				continue
			}
			for _, pi := range members {
				if pi == ni {
					continue
				}
				addEdge(Edge{
					From:   netDev.ID,
					To:     assets[pi].ID,
					Kind:   EdgeNetwork,
					Reason: "connected through subnet " + key,
				})
			}
		}
	}

	// Templated unit-level relations for the detected industry.
	for _, rel := range m.catalog.RelationsFor(industryID) {
		if len(g.unitAsset[rel.From]) == 0 && len(g.unitAsset[rel.To]) == 0 {
			continue
		}
		g.UnitRelations = append(g.UnitRelations, rel)
		g.unitOut[rel.From] = append(g.unitOut[rel.From], rel.To)
	}

	m.logger.Info().
		Int("assets", len(assets)).
		Int("edges", len(g.Edges)).
		Int("unit_relations", len(g.UnitRelations)).
		Msg("dependency graph built")
	return g, nil
}

// Unit returns the resolved unit of an asset in this graph.
func (g *Graph) Unit(assetID string) string {
	return g.assetUnit[assetID]
}

// DownstreamCount returns how many assets the given asset's failure reaches.
func (g *Graph) DownstreamCount(assetID string) int {
	return len(g.Radius(assetID).AffectedAssets)
}

// Radius computes the blast radius of one asset: a breadth-first traversal
// of outgoing asset edges, widened across templated unit relations for the
// units it touches.
func (g *Graph) Radius(assetID string) BlastRadius {
	visited := model.NewSet()
	units := model.NewSet()
	queue := []string{assetID}
	visited.Add(assetID)
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if u := g.assetUnit[current]; u != "" && current != assetID {
			units.Add(u)
		}
		for _, next := range g.outgoing[current] {
			if !visited.Contains(next) {
				visited.Add(next)
				queue = append(queue, next)
			}
		}
	}

	// Follow unit-level relations downstream from every touched unit.
	unitQueue := []string{}
	seenUnits := model.NewSet()
	if start := g.assetUnit[assetID]; start != "" {
		unitQueue = append(unitQueue, start)
		seenUnits.Add(start)
	}
	for _, u := range units.List() {
		if !seenUnits.Contains(u) {
			unitQueue = append(unitQueue, u)
			seenUnits.Add(u)
		}
	}
	for len(unitQueue) > 0 {
		current := unitQueue[0]
		unitQueue = unitQueue[1:]
		for _, next := range g.unitOut[current] {
			if seenUnits.Contains(next) {
				continue
			}
			seenUnits.Add(next)
			unitQueue = append(unitQueue, next)
			units.Add(next)
			for _, aid := range g.unitAsset[next] {
				visited.Add(aid)
			}
		}
	}

	visited.Remove(assetID)
	return BlastRadius{
		AssetID:        assetID,
		AffectedAssets: visited.List(),
		AffectedUnits:  units.List(),
	}
}

// CriticalPath ranks every asset by blast radius: affected assets plus five
// points per distinct affected unit, descending. Ties break on asset ID so
// the ranking is stable.
func (g *Graph) CriticalPath(assets []model.CanonicalAsset) []CriticalPathEntry {
	entries := make([]CriticalPathEntry, 0, len(assets))
	for i := range assets {
		a := &assets[i]
		radius := g.Radius(a.ID)
		merged := a.Merged()
		entries = append(entries, CriticalPathEntry{
			AssetID:        a.ID,
			TagID:          merged.TagID,
			Unit:           g.assetUnit[a.ID],
			AffectedAssets: len(radius.AffectedAssets),
			AffectedUnits:  len(radius.AffectedUnits),
			Score:          len(radius.AffectedAssets) + 5*len(radius.AffectedUnits),
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].AssetID < entries[j].AssetID
	})
	return entries
}
