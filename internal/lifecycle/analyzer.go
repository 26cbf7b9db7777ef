// Package lifecycle derives the EOL posture of an asset from a static
// vendor/model reference database, or estimates it from asset age when the
// database has no entry. Every computation takes an explicit reference time
// so results are reproducible.
package lifecycle

import (
	_ "embed"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/InfraSecConsult/ot-asset-reconciler/lib/helper"
	"github.com/InfraSecConsult/ot-asset-reconciler/lib/model"
)

//go:embed data/eol_database.yaml
var eolDatabaseYAML []byte

// approachingEOLWindow is how far ahead of EOL an asset counts as
// approaching it.
const approachingEOLWindow = 730 * 24 * time.Hour

// obsoleteYearsPastEOS is how long past EOS an asset counts as obsolete.
const obsoleteYearsPastEOS = 3

// Product is one reference entry of the EOL database.
type Product struct {
	Vendor      string `yaml:"vendor"`
	Family      string `yaml:"family"`
	Pattern     string `yaml:"pattern"`
	EOL         string `yaml:"eol"`
	EOS         string `yaml:"eos"`
	Replacement string `yaml:"replacement"`

	re  *regexp.Regexp
	eol time.Time
	eos time.Time
}

type database struct {
	Version          string            `yaml:"version"`
	VendorAliases    map[string]string `yaml:"vendor_aliases"`
	Products         []Product         `yaml:"products"`
	TypicalLifespans map[string]int    `yaml:"typical_lifespans"`
}

// Analyzer derives lifecycle status per asset.
type Analyzer struct {
	db database
	// aliasOrder fixes the vendor-alias scan order so normalization is
	// deterministic.
	aliasOrder []string
	// aliasRes match each alias as a whole word; a bare substring test
	// would let "ge" claim "George Fischer".
	aliasRes map[string]*regexp.Regexp
	logger   zerolog.Logger
}

// NewAnalyzer loads the embedded EOL database.
func NewAnalyzer(logger zerolog.Logger) (*Analyzer, error) {
	var db database
	if err := yaml.Unmarshal(eolDatabaseYAML, &db); err != nil {
		return nil, fmt.Errorf("failed to parse EOL database: %w", err)
	}
	for i := range db.Products {
		p := &db.Products[i]
		re, err := regexp.Compile("(?i)" + p.Pattern)
		if err != nil {
			return nil, fmt.Errorf("bad product pattern %q: %w", p.Pattern, err)
		}
		p.re = re
		if p.eol, err = time.Parse("2006-01-02", p.EOL); err != nil {
			return nil, fmt.Errorf("bad EOL date for %s: %w", p.Family, err)
		}
		if p.eos, err = time.Parse("2006-01-02", p.EOS); err != nil {
			return nil, fmt.Errorf("bad EOS date for %s: %w", p.Family, err)
		}
	}
	aliasOrder := make([]string, 0, len(db.VendorAliases))
	aliasRes := make(map[string]*regexp.Regexp, len(db.VendorAliases))
	for alias := range db.VendorAliases {
		aliasOrder = append(aliasOrder, alias)
		word := regexp.QuoteMeta(strings.TrimSpace(alias))
		aliasRes[alias] = regexp.MustCompile(`\b` + word + `\b`)
	}
	sort.Strings(aliasOrder)
	return &Analyzer{
		db:         db,
		aliasOrder: aliasOrder,
		aliasRes:   aliasRes,
		logger:     logger.With().Str("component", "lifecycle_analyzer").Logger(),
	}, nil
}

// Version returns the reference data version.
func (a *Analyzer) Version() string {
	return a.db.Version
}

// NormalizeVendor maps free-form manufacturer text onto a canonical vendor
// name. Unrecognized vendors pass through trimmed.
func (a *Analyzer) NormalizeVendor(manufacturer string) string {
	m := strings.ToLower(strings.TrimSpace(manufacturer))
	if m == "" {
		return ""
	}
	for _, alias := range a.aliasOrder {
		if a.aliasRes[alias].MatchString(m) {
			return a.db.VendorAliases[alias]
		}
	}
	return strings.TrimSpace(manufacturer)
}

// lookup finds the reference entry for a vendor/model pair, if any.
func (a *Analyzer) lookup(vendor, modelStr string) *Product {
	if modelStr == "" {
		return nil
	}
	for i := range a.db.Products {
		p := &a.db.Products[i]
		if vendor != "" && !strings.EqualFold(p.Vendor, vendor) {
			continue
		}
		if p.re.MatchString(modelStr) {
			return p
		}
	}
	return nil
}

// Analyze derives the lifecycle status of one asset at the given reference
// time. Resolution order: reference database by vendor/model, then age
// estimate from the install date, then unknown.
func (a *Analyzer) Analyze(asset *model.NormalizedAsset, category model.DeviceCategory, reference time.Time) model.LifecycleStatus {
	vendor := a.NormalizeVendor(asset.Manufacturer)

	if p := a.lookup(vendor, asset.Model); p != nil {
		eol, eos := p.eol, p.eos
		status := model.LifecycleStatus{
			State:         stateForDates(eol, eos, reference),
			ProductFamily: p.Family,
			EOLDate:       &eol,
			EOSDate:       &eos,
			Replacement:   p.Replacement,
		}
		a.logger.Debug().
			Str("asset", asset.Identity()).
			Str("family", p.Family).
			Str("state", string(status.State)).
			Msg("lifecycle resolved from reference database")
		return status
	}

	if install, ok := helper.ParseDate(asset.InstallDate); ok {
		return a.estimateFromAge(install, category, reference)
	}

	return model.LifecycleStatus{State: model.LifecycleUnknown}
}

// stateForDates derives the state from EOL/EOS dates at the reference time.
func stateForDates(eol, eos, reference time.Time) model.LifecycleState {
	switch {
	case reference.After(eos.AddDate(obsoleteYearsPastEOS, 0, 0)):
		return model.LifecycleObsolete
	case reference.After(eos):
		return model.LifecycleEOS
	case reference.After(eol):
		return model.LifecycleEOL
	case eol.Sub(reference) <= approachingEOLWindow:
		return model.LifecycleApproachingEOL
	default:
		return model.LifecycleCurrent
	}
}

// estimateFromAge falls back to comparing asset age against the typical
// lifespan of its device category.
func (a *Analyzer) estimateFromAge(install time.Time, category model.DeviceCategory, reference time.Time) model.LifecycleStatus {
	ageYears := int(reference.Sub(install).Hours() / (24 * 365.25))
	if ageYears < 0 {
		ageYears = 0
	}
	lifespan, ok := a.db.TypicalLifespans[string(category)]
	if !ok || lifespan <= 0 {
		lifespan = a.db.TypicalLifespans["unknown"]
		if lifespan <= 0 {
			lifespan = 15
		}
	}

	status := model.LifecycleStatus{
		Estimated:          true,
		EstimatedAgeYears:  ageYears,
		RemainingLifeYears: lifespan - ageYears,
	}
	switch {
	case ageYears >= lifespan:
		status.State = model.LifecycleEOL
	case float64(ageYears) >= 0.8*float64(lifespan):
		status.State = model.LifecycleApproachingEOL
	default:
		status.State = model.LifecycleCurrent
	}
	return status
}
