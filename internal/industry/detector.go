package industry

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/InfraSecConsult/ot-asset-reconciler/lib/model"
)

// SampleLimit caps how many rows the detector reads. Industry fingerprints
// stabilize long before that.
const SampleLimit = 500

const (
	weightUnit        = 3
	weightEquipment   = 2
	weightTerminology = 1

	// Detection is reliable only above both thresholds.
	minConfidencePercent = 30
	minRawWeight         = 10
)

// DetectionResult is the detector's verdict over one dataset sample.
type DetectionResult struct {
	Industry     string         `json:"industry"`
	IndustryName string         `json:"industry_name"`
	Confidence   float64        `json:"confidence"`
	Weight       int            `json:"weight"`
	Reliable     bool           `json:"reliable"`
	Reason       string         `json:"reason"`
	Scores       map[string]int `json:"scores"`
}

// Detector classifies a dataset's industry vertical from textual patterns.
type Detector struct {
	catalog *Catalog
	logger  zerolog.Logger
}

// NewDetector creates a detector over the given catalog.
func NewDetector(catalog *Catalog, logger zerolog.Logger) *Detector {
	return &Detector{catalog: catalog, logger: logger.With().Str("component", "industry_detector").Logger()}
}

// rowText concatenates the string fields the detector scores.
func rowText(a *model.NormalizedAsset) string {
	parts := []string{
		a.TagID, a.Hostname, a.Plant, a.Unit, a.DeviceType,
		a.Manufacturer, a.Model, a.NetworkSegment, a.Protocol,
	}
	return strings.ToLower(strings.Join(parts, " "))
}

// Detect scores every industry profile over a sample of up to SampleLimit
// rows. Each pattern that matches a row's concatenated text adds its tier
// weight. Confidence is the best industry's share of the total weight.
func (d *Detector) Detect(assets []model.NormalizedAsset) DetectionResult {
	sample := assets
	if len(sample) > SampleLimit {
		sample = sample[:SampleLimit]
	}

	scores := make(map[string]int, len(d.catalog.Profiles))
	for _, a := range sample {
		text := rowText(&a)
		for i := range d.catalog.Profiles {
			p := &d.catalog.Profiles[i]
			for _, re := range p.unitRes {
				if re.MatchString(text) {
					scores[p.ID] += weightUnit
				}
			}
			for _, re := range p.equipmentRes {
				if re.MatchString(text) {
					scores[p.ID] += weightEquipment
				}
			}
			for _, re := range p.terminologyRes {
				if re.MatchString(text) {
					scores[p.ID] += weightTerminology
				}
			}
		}
	}

	total := 0
	for _, w := range scores {
		total += w
	}

	result := DetectionResult{Scores: scores}
	if total == 0 {
		result.Reason = "no industry patterns matched the sampled rows"
		d.logger.Debug().Int("sample_size", len(sample)).Msg("industry detection found no signal")
		return result
	}

	// Deterministic winner on ties: highest weight, then lexical ID.
	ids := make([]string, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	best := ""
	bestWeight := -1
	for _, id := range ids {
		if scores[id] > bestWeight {
			best = id
			bestWeight = scores[id]
		}
	}

	confidence := math.Round(float64(bestWeight)/float64(total)*10000) / 100
	result.Weight = bestWeight
	result.Confidence = confidence

	profile := d.catalog.Profile(best)
	name := best
	if profile != nil {
		name = profile.Name
	}

	switch {
	case confidence < minConfidencePercent:
		result.Reason = fmt.Sprintf("best candidate %s has confidence %.1f%%, below the %d%% threshold", name, confidence, minConfidencePercent)
	case bestWeight <= minRawWeight:
		result.Reason = fmt.Sprintf("best candidate %s matched too weakly (weight %d, need more than %d)", name, bestWeight, minRawWeight)
	default:
		result.Industry = best
		result.IndustryName = name
		result.Reliable = true
		result.Reason = fmt.Sprintf("detected %s with %.1f%% confidence", name, confidence)
	}

	d.logger.Info().
		Str("industry", best).
		Float64("confidence", confidence).
		Int("weight", bestWeight).
		Bool("reliable", result.Reliable).
		Msg("industry detection complete")
	return result
}
