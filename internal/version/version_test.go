package version

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

// setBuildVars overrides the package variables for one test and restores
// them on cleanup.
func setBuildVars(t *testing.T, version, commit, buildTime string) {
	t.Helper()
	origVersion, origCommit, origBuildTime := Version, CommitHash, BuildTime
	Version, CommitHash, BuildTime = version, commit, buildTime
	t.Cleanup(func() {
		Version, CommitHash, BuildTime = origVersion, origCommit, origBuildTime
	})
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	origDir, err := os.Getwd()
	assert.NoError(t, err)
	assert.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
}

func TestGetVersion_DefaultsToDev(t *testing.T) {
	setBuildVars(t, "", "", "")
	chdir(t, t.TempDir())

	assert.Equal(t, "dev", GetVersion())
}

func TestGetVersion_PrefersBuildTimeValue(t *testing.T) {
	setBuildVars(t, "v1.2.3", "", "")

	assert.Equal(t, "v1.2.3", GetVersion())
}

func TestGetVersion_ReadsVersionFile(t *testing.T) {
	setBuildVars(t, "", "", "")
	dir := t.TempDir()
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "VERSION"), []byte("v2.0.0\n"), 0o644))
	chdir(t, dir)

	assert.Equal(t, "v2.0.0", GetVersion())
}

func TestGetFullVersion(t *testing.T) {
	tests := []struct {
		name     string
		commit   string
		expected string
	}{
		{"with commit hash", "abc1234", "v1.0.0+abc1234"},
		{"without commit hash", "", "v1.0.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBuildVars(t, "v1.0.0", tt.commit, "")
			assert.Equal(t, tt.expected, GetFullVersion())
		})
	}
}

func TestGetBuildInfo(t *testing.T) {
	setBuildVars(t, "v3.0.0", "def5678", "2026-01-01T00:00:00Z")

	info := GetBuildInfo()
	assert.Equal(t, "v3.0.0", info.Version)
	assert.Equal(t, "def5678", info.CommitHash)
	assert.Equal(t, "2026-01-01T00:00:00Z", info.BuildTime)
}
