package lifecycle

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/InfraSecConsult/ot-asset-reconciler/lib/model"
)

func newTestAnalyzer(t *testing.T) *Analyzer {
	t.Helper()
	analyzer, err := NewAnalyzer(zerolog.Nop())
	assert.NoError(t, err)
	return analyzer
}

func date(value string) time.Time {
	d, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return d
}

func TestAnalyzer_LoadsEmbeddedDatabase(t *testing.T) {
	analyzer := newTestAnalyzer(t)
	assert.NotEmpty(t, analyzer.Version())
}

func TestAnalyzer_NormalizeVendor(t *testing.T) {
	tests := []struct {
		name         string
		manufacturer string
		expected     string
	}{
		{"rockwell alias", "Rockwell", "Rockwell Automation"},
		{"allen-bradley alias", "Allen-Bradley Inc.", "Rockwell Automation"},
		{"triconex maps to schneider", "Triconex", "Schneider Electric"},
		{"rosemount maps to emerson", "Rosemount Measurement", "Emerson"},
		{"short alias as a word", "AB PLC-5", "Rockwell Automation"},
		{"ge alias as a word", "GE Fanuc", "GE"},
		{"ge inside a name does not match", "George Fischer", "George Fischer"},
		{"ab inside a name does not match", "Lab Systems", "Lab Systems"},
		{"unknown passes through", "Acme Controls", "Acme Controls"},
		{"empty stays empty", "", ""},
	}
	analyzer := newTestAnalyzer(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, analyzer.NormalizeVendor(tt.manufacturer))
		})
	}
}

func TestAnalyzer_DatabaseLookup(t *testing.T) {
	analyzer := newTestAnalyzer(t)
	reference := date("2024-01-01")

	// 1756-L55 is past its 2023-06-01 end of support but not yet three
	// years past it.
	asset := model.NormalizedAsset{Manufacturer: "Rockwell", Model: "1756-L55"}
	status := analyzer.Analyze(&asset, model.CategoryController, reference)

	assert.Equal(t, model.LifecycleEOS, status.State)
	assert.Equal(t, "ControlLogix 5560", status.ProductFamily)
	assert.Equal(t, "ControlLogix 5580", status.Replacement)
	assert.False(t, status.Estimated)
	assert.NotNil(t, status.EOSDate)
	assert.Equal(t, date("2023-06-01"), *status.EOSDate)
}

func TestAnalyzer_StateTransitions(t *testing.T) {
	analyzer := newTestAnalyzer(t)
	// ControlLogix 5560: EOL 2020-12-31, EOS 2023-06-01.
	asset := model.NormalizedAsset{Manufacturer: "Rockwell", Model: "1756-L61"}

	tests := []struct {
		name      string
		reference time.Time
		expected  model.LifecycleState
	}{
		{"well before EOL", date("2018-01-01"), model.LifecycleCurrent},
		{"within two years of EOL", date("2019-06-01"), model.LifecycleApproachingEOL},
		{"past EOL before EOS", date("2022-01-01"), model.LifecycleEOL},
		{"past EOS", date("2024-01-01"), model.LifecycleEOS},
		{"three years past EOS", date("2026-07-01"), model.LifecycleObsolete},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := analyzer.Analyze(&asset, model.CategoryController, tt.reference)
			assert.Equal(t, tt.expected, status.State)
		})
	}
}

func TestAnalyzer_AgeEstimate(t *testing.T) {
	analyzer := newTestAnalyzer(t)
	reference := date("2026-01-01")

	tests := []struct {
		name        string
		installDate string
		category    model.DeviceCategory
		expected    model.LifecycleState
	}{
		// controller lifespan is 20 years
		{"young controller", "2020-01-01", model.CategoryController, model.LifecycleCurrent},
		{"controller at 80% of lifespan", "2009-06-01", model.CategoryController, model.LifecycleApproachingEOL},
		{"controller past lifespan", "2004-01-01", model.CategoryController, model.LifecycleEOL},
		// hmi lifespan is 8 years
		{"old workstation", "2015-01-01", model.CategoryHMIWorkstation, model.LifecycleEOL},
		{"unknown category uses default lifespan", "2020-01-01", model.CategoryUnknown, model.LifecycleCurrent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asset := model.NormalizedAsset{Manufacturer: "Acme", Model: "X-9000", InstallDate: tt.installDate}
			status := analyzer.Analyze(&asset, tt.category, reference)
			assert.Equal(t, tt.expected, status.State)
			assert.True(t, status.Estimated)
		})
	}
}

func TestAnalyzer_UnknownWithoutEvidence(t *testing.T) {
	analyzer := newTestAnalyzer(t)
	asset := model.NormalizedAsset{Manufacturer: "Acme", Model: "X-9000"}
	status := analyzer.Analyze(&asset, model.CategoryUnknown, date("2026-01-01"))
	assert.Equal(t, model.LifecycleUnknown, status.State)
	assert.False(t, status.Estimated)
}
