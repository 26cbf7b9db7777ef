// Package version exposes the reconciler's build metadata. Release builds
// inject the values via ldflags:
//
//	go build -ldflags "\
//	  -X github.com/InfraSecConsult/ot-asset-reconciler/internal/version.Version=v1.0.0 \
//	  -X github.com/InfraSecConsult/ot-asset-reconciler/internal/version.CommitHash=$(git rev-parse --short HEAD) \
//	  -X github.com/InfraSecConsult/ot-asset-reconciler/internal/version.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)" \
//	  ./cmd/reconciler
//
// Unflagged builds fall back to a VERSION file near the working directory,
// then to "dev".
package version

import (
	"os"
	"strings"
)

var (
	// Version is the release version, injected at build time.
	Version = ""
	// CommitHash is the short git commit hash, injected at build time.
	CommitHash = ""
	// BuildTime is the UTC build timestamp, injected at build time.
	BuildTime = ""
)

// versionFilePaths are tried in order relative to the working directory.
var versionFilePaths = []string{"VERSION", "../VERSION", "../../VERSION"}

// GetVersion resolves the version: the build-time value, then the first
// non-empty VERSION file, then "dev".
func GetVersion() string {
	if Version != "" {
		return Version
	}
	for _, path := range versionFilePaths {
		content, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if v := strings.TrimSpace(string(content)); v != "" {
			return v
		}
	}
	return "dev"
}

// GetFullVersion returns the version, suffixed with the commit hash when
// one was built in.
func GetFullVersion() string {
	v := GetVersion()
	if CommitHash != "" {
		v += "+" + CommitHash
	}
	return v
}

// BuildInfo describes the running binary for the version command.
type BuildInfo struct {
	Version    string `json:"version"`
	CommitHash string `json:"commit_hash,omitempty"`
	BuildTime  string `json:"build_time,omitempty"`
}

// GetBuildInfo collects the resolved version and the raw build-time fields.
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:    GetVersion(),
		CommitHash: CommitHash,
		BuildTime:  BuildTime,
	}
}
