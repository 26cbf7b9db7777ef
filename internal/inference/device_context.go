// Package inference derives device context from the evidence an inventory
// row already carries: the ISA-5.1 structure of its tag, the free text of
// its type/manufacturer/model fields, and protocol hints. All inference is
// best effort; when nothing matches, fields stay "unknown".
package inference

import (
	"regexp"
	"strings"

	"github.com/InfraSecConsult/ot-asset-reconciler/lib/model"
)

// tagPattern parses an ISA-5.1-style tag head: a 1-4 letter function prefix,
// an optional numeric loop, and an optional single-letter suffix.
// Examples: TIC-101, FT 200, PSHH-1201A, XV_300.
var tagPattern = regexp.MustCompile(`^([A-Z]{1,4})[-_ ]?([0-9]+)?([A-Z])?$`)

// measuredVariables maps the first tag letter per ISA-5.1 table 1.
var measuredVariables = map[byte]string{
	'A': "analysis",
	'B': "burner_combustion",
	'C': "conductivity",
	'D': "density",
	'E': "voltage",
	'F': "flow",
	'H': "hand",
	'I': "current",
	'J': "power",
	'K': "time",
	'L': "level",
	'M': "moisture",
	'P': "pressure",
	'Q': "quantity",
	'R': "radiation",
	'S': "speed_frequency",
	'T': "temperature",
	'U': "multivariable",
	'V': "vibration",
	'W': "weight_force",
	'Y': "event_state",
	'Z': "position",
}

// functionModifiers maps subsequent tag letters.
var functionModifiers = map[byte]string{
	'A': "alarm",
	'C': "controller",
	'D': "differential",
	'E': "element",
	'F': "ratio",
	'G': "gauge",
	'H': "high",
	'I': "indicator",
	'L': "low",
	'Q': "totalizer",
	'R': "recorder",
	'S': "switch",
	'T': "transmitter",
	'V': "valve",
	'Y': "relay",
	'Z': "actuator",
}

// safetyTagPrefixes are tag families that denote safety functions outright.
var safetyTagPrefixes = regexp.MustCompile(`^(SDV|ESD|XSV|SIS|BMS|UZ)`)

// TagInfo is the parsed structure of one ISA-5.1 tag.
type TagInfo struct {
	Prefix           string   `json:"prefix"`
	MeasuredVariable string   `json:"measured_variable"`
	Functions        []string `json:"functions"`
	LoopNumber       string   `json:"loop_number"`
	Suffix           string   `json:"suffix"`
	SafetyRelevant   bool     `json:"safety_relevant"`
	Parsed           bool     `json:"parsed"`
}

// ParseTag parses a tag identifier against the ISA-5.1 grammar. Tags that
// do not fit return Parsed=false with every field at its zero value.
func ParseTag(tagID string) TagInfo {
	tag := strings.ToUpper(strings.TrimSpace(tagID))
	if tag == "" {
		return TagInfo{}
	}
	m := tagPattern.FindStringSubmatch(tag)
	if m == nil {
		return TagInfo{}
	}

	prefix := m[1]
	info := TagInfo{
		Prefix:     prefix,
		LoopNumber: m[2],
		Suffix:     m[3],
		Parsed:     true,
	}

	if mv, ok := measuredVariables[prefix[0]]; ok {
		info.MeasuredVariable = mv
	} else {
		info.MeasuredVariable = "unknown"
	}
	for i := 1; i < len(prefix); i++ {
		if fn, ok := functionModifiers[prefix[i]]; ok {
			info.Functions = append(info.Functions, fn)
		}
	}

	// High-high / low-low trip letters and dedicated shutdown families mark
	// a safety function.
	letters := prefix[1:]
	if strings.Contains(letters, "HH") || strings.Contains(letters, "LL") ||
		safetyTagPrefixes.MatchString(prefix) {
		info.SafetyRelevant = true
	}
	return info
}

// devicePattern is one row of the ordered type-recognition table. The first
// matching pattern decides the category and intrinsic criticality.
type devicePattern struct {
	pattern     *regexp.Regexp
	category    model.DeviceCategory
	label       string
	criticality model.Criticality
}

var devicePatterns = []devicePattern{
	{regexp.MustCompile(`(?i)\bplc\b|\bdcs\b|controllogix|compactlogix|simatic s7|s7-\d{3,4}|modicon|rx3i|melsec|\brtu\b|controller`),
		model.CategoryController, "Process Controller", model.CriticalityCritical},
	{regexp.MustCompile(`(?i)\bsis\b|\besd\b|safety|triconex|tricon|prosafe|\bhima\b|burner management|\bbms\b`),
		model.CategorySafetySystem, "Safety Instrumented System", model.CriticalityCritical},
	{regexp.MustCompile(`(?i)\bhmi\b|operator (station|panel|interface)|workstation|panelview|\bscada\b|engineering station`),
		model.CategoryHMIWorkstation, "HMI / Workstation", model.CriticalityHigh},
	{regexp.MustCompile(`(?i)switch|router|firewall|gateway|access point|\bwap\b|media converter`),
		model.CategoryNetwork, "Network Infrastructure", model.CriticalityHigh},
	{regexp.MustCompile(`(?i)transmitter|\b[a-z]{1,3}t\b.*(flow|level|pressure|temp)|rosemount 3051|deltabar|cerabar`),
		model.CategoryTransmitter, "Field Transmitter", model.CriticalityMedium},
	{regexp.MustCompile(`(?i)analyzer|analyser|chromatograph|\bph meter\b|oxygen probe|gas detector`),
		model.CategoryAnalyzer, "Process Analyzer", model.CriticalityMedium},
	{regexp.MustCompile(`(?i)valve|positioner|actuator|damper|\bmov\b`),
		model.CategoryValveActuator, "Valve / Actuator", model.CriticalityMedium},
	{regexp.MustCompile(`(?i)\bvfd\b|variable frequency|drive|soft starter|\bmcc\b`),
		model.CategoryDrive, "Motor Drive", model.CriticalityMedium},
	{regexp.MustCompile(`(?i)historian|\bopc\b|\bpi server\b|data server|archiver`),
		model.CategoryHistorianServer, "Historian / OPC Server", model.CriticalityHigh},
}

// protocolHints map substring evidence to canonical protocol names,
// checked in order.
var protocolHints = []struct {
	needle   string
	protocol string
}{
	{"hart", "HART"},
	{"profibus", "PROFIBUS"},
	{"profinet", "PROFINET"},
	{"modbus", "Modbus"},
	{"ethernet/ip", "EtherNet/IP"},
	{"ethernetip", "EtherNet/IP"},
	{"ethernet ip", "EtherNet/IP"},
	{"foundation fieldbus", "Foundation Fieldbus"},
	{"fieldbus", "Foundation Fieldbus"},
}

// Inferencer derives device context for canonical assets.
type Inferencer struct{}

// NewInferencer creates an inferencer.
func NewInferencer() *Inferencer {
	return &Inferencer{}
}

// Infer derives the device context of one asset from its tag and free-text
// fields. Absence of a match yields CategoryUnknown, never an error.
func (inf *Inferencer) Infer(asset *model.NormalizedAsset) model.DeviceContext {
	tagInfo := ParseTag(asset.TagID)

	combined := strings.ToLower(strings.Join([]string{
		asset.TagID, asset.DeviceType, asset.Manufacturer, asset.Model,
	}, " "))

	ctx := model.DeviceContext{
		MeasuredVariable: "unknown",
		Category:         model.CategoryUnknown,
		CategoryLabel:    "Unknown",
		Criticality:      model.CriticalityUnknown,
		SafetyRelevant:   tagInfo.SafetyRelevant || asset.SafetyCritical,
	}
	if tagInfo.Parsed {
		ctx.MeasuredVariable = tagInfo.MeasuredVariable
		ctx.Functions = tagInfo.Functions
		ctx.LoopNumber = tagInfo.LoopNumber
	}

	for _, dp := range devicePatterns {
		if dp.pattern.MatchString(combined) {
			ctx.Category = dp.category
			ctx.CategoryLabel = dp.label
			ctx.Criticality = dp.criticality
			break
		}
	}

	// A tag that parses as a controller or valve still categorizes the
	// asset when the free text said nothing.
	if ctx.Category == model.CategoryUnknown && tagInfo.Parsed {
		switch {
		case contains(tagInfo.Functions, "controller"):
			ctx.Category = model.CategoryController
			ctx.CategoryLabel = "Process Controller"
			ctx.Criticality = model.CriticalityCritical
		case contains(tagInfo.Functions, "valve") || contains(tagInfo.Functions, "actuator"):
			ctx.Category = model.CategoryValveActuator
			ctx.CategoryLabel = "Valve / Actuator"
			ctx.Criticality = model.CriticalityMedium
		case contains(tagInfo.Functions, "transmitter"):
			ctx.Category = model.CategoryTransmitter
			ctx.CategoryLabel = "Field Transmitter"
			ctx.Criticality = model.CriticalityMedium
		}
	}

	if ctx.Category == model.CategorySafetySystem {
		ctx.SafetyRelevant = true
	}

	// Explicit criticality from the source record overrides the intrinsic
	// category default.
	switch model.Criticality(asset.Criticality) {
	case model.CriticalityCritical, model.CriticalityHigh, model.CriticalityMedium, model.CriticalityLow:
		ctx.Criticality = model.Criticality(asset.Criticality)
	}

	ctx.Protocol = inferProtocol(combined + " " + strings.ToLower(asset.Protocol))
	return ctx
}

func inferProtocol(text string) string {
	for _, hint := range protocolHints {
		if strings.Contains(text, hint.needle) {
			return hint.protocol
		}
	}
	return ""
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
