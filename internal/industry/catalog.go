// Package industry carries the static industry knowledge the pipeline
// depends on: detection profiles, per-unit expectations, and inter-unit
// dependency templates. The data ships as versioned YAML embedded in the
// binary; it is reference configuration, not user input.
package industry

import (
	_ "embed"
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/InfraSecConsult/ot-asset-reconciler/lib/model"
)

//go:embed data/profiles.yaml
var profilesYAML []byte

//go:embed data/units.yaml
var unitsYAML []byte

// Profile is one industry's detection fingerprint.
type Profile struct {
	ID                  string   `yaml:"id"`
	Name                string   `yaml:"name"`
	UnitPatterns        []string `yaml:"unit_patterns"`
	EquipmentPatterns   []string `yaml:"equipment_patterns"`
	TerminologyPatterns []string `yaml:"terminology_patterns"`

	unitRes        []*regexp.Regexp
	equipmentRes   []*regexp.Regexp
	terminologyRes []*regexp.Regexp
}

// ExpectedFunction is one function a unit is expected to run, with the
// minimum number of devices serving it.
type ExpectedFunction struct {
	Function string               `yaml:"function"`
	Category model.DeviceCategory `yaml:"category"`
	MinCount int                  `yaml:"min_count"`
	Critical bool                 `yaml:"critical"`
}

// UnitProfile describes one expected process unit of an industry.
type UnitProfile struct {
	ID          string             `yaml:"id"`
	Name        string             `yaml:"name"`
	Pattern     string             `yaml:"pattern"`
	Criticality model.Criticality  `yaml:"criticality"`
	Functions   []ExpectedFunction `yaml:"functions"`

	re *regexp.Regexp
}

// Matches reports whether a free-form unit name refers to this unit.
func (u *UnitProfile) Matches(unitName string) bool {
	return unitName != "" && u.re != nil && u.re.MatchString(unitName)
}

// RelationKind labels a templated inter-unit dependency.
type RelationKind string

const (
	RelationProcessFlow RelationKind = "process_flow"
	RelationUtility     RelationKind = "utility"
	RelationSafety      RelationKind = "safety"
)

// UnitRelation is one templated dependency between two named units.
type UnitRelation struct {
	From string       `yaml:"from"`
	To   string       `yaml:"to"`
	Kind RelationKind `yaml:"kind"`
}

// Catalog is the loaded industry knowledge base.
type Catalog struct {
	Version   string
	Profiles  []Profile
	Units     map[string][]UnitProfile
	Relations map[string][]UnitRelation
}

// Profile returns the detection profile for an industry ID, or nil.
func (c *Catalog) Profile(id string) *Profile {
	for i := range c.Profiles {
		if c.Profiles[i].ID == id {
			return &c.Profiles[i]
		}
	}
	return nil
}

// UnitsFor returns the unit profiles of an industry; nil for an unknown
// industry, which downstream stages treat as "no expectations".
func (c *Catalog) UnitsFor(industryID string) []UnitProfile {
	return c.Units[industryID]
}

// RelationsFor returns the templated unit dependencies of an industry.
func (c *Catalog) RelationsFor(industryID string) []UnitRelation {
	return c.Relations[industryID]
}

// MatchUnit resolves a free-form unit name to a unit profile of the given
// industry. Returns nil when nothing matches.
func (c *Catalog) MatchUnit(industryID, unitName string) *UnitProfile {
	units := c.Units[industryID]
	for i := range units {
		if units[i].Matches(unitName) {
			return &units[i]
		}
	}
	return nil
}

type profilesFile struct {
	Version    string    `yaml:"version"`
	Industries []Profile `yaml:"industries"`
}

type unitsFile struct {
	Version   string                    `yaml:"version"`
	Units     map[string][]UnitProfile  `yaml:"units"`
	Relations map[string][]UnitRelation `yaml:"relations"`
}

// Load parses the embedded reference data into a Catalog.
func Load() (*Catalog, error) {
	var pf profilesFile
	if err := yaml.Unmarshal(profilesYAML, &pf); err != nil {
		return nil, fmt.Errorf("failed to parse industry profiles: %w", err)
	}
	var uf unitsFile
	if err := yaml.Unmarshal(unitsYAML, &uf); err != nil {
		return nil, fmt.Errorf("failed to parse unit knowledge base: %w", err)
	}

	catalog := &Catalog{
		Version:   pf.Version,
		Profiles:  pf.Industries,
		Units:     uf.Units,
		Relations: uf.Relations,
	}

	compile := func(patterns []string) ([]*regexp.Regexp, error) {
		res := make([]*regexp.Regexp, 0, len(patterns))
		for _, p := range patterns {
			re, err := regexp.Compile("(?i)" + p)
			if err != nil {
				return nil, fmt.Errorf("bad pattern %q: %w", p, err)
			}
			res = append(res, re)
		}
		return res, nil
	}

	var err error
	for i := range catalog.Profiles {
		p := &catalog.Profiles[i]
		if p.unitRes, err = compile(p.UnitPatterns); err != nil {
			return nil, err
		}
		if p.equipmentRes, err = compile(p.EquipmentPatterns); err != nil {
			return nil, err
		}
		if p.terminologyRes, err = compile(p.TerminologyPatterns); err != nil {
			return nil, err
		}
	}
	for id, units := range catalog.Units {
		for i := range units {
			re, err := regexp.Compile(units[i].Pattern)
			if err != nil {
				return nil, fmt.Errorf("bad unit pattern for %s/%s: %w", id, units[i].ID, err)
			}
			units[i].re = re
			if units[i].Criticality == "" {
				units[i].Criticality = model.CriticalityMedium
			}
			for j := range units[i].Functions {
				if units[i].Functions[j].MinCount < 1 {
					units[i].Functions[j].MinCount = 1
				}
			}
		}
	}
	return catalog, nil
}

// MustLoad loads the embedded catalog and panics on parse failure. The data
// is embedded at build time, so a failure here is a packaging defect.
func MustLoad() *Catalog {
	c, err := Load()
	if err != nil {
		panic(err)
	}
	return c
}
