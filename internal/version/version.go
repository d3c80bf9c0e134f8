// Package version holds build information injected at link time:
//
//	-ldflags "-X github.com/let-userName-Brian/exempla-ai/internal/version.version=v1.0.0 \
//	          -X github.com/let-userName-Brian/exempla-ai/internal/version.commit=abc123 \
//	          -X github.com/let-userName-Brian/exempla-ai/internal/version.buildTime=2025-01-01T00:00:00Z"
package version

import (
	"fmt"
	"io"
	"strings"
	"time"
)

//nolint:gochecknoglobals // Required for build-time injection via ldflags.
var (
	version   string
	commit    string
	buildTime string
)

// ApplicationName is the name of the application displayed in version output.
const ApplicationName = "Exempla AI"

// Default values used when version information is not available.
const (
	DefaultVersion   = "dev"
	DefaultCommit    = "unknown"
	DefaultBuildTime = "unknown"
)

// Labels used in the full output.
const (
	LabelVersion = "Version"
	LabelCommit  = "Commit"
	LabelBuilt   = "Built"
)

// VersionInfo is the resolved build information.
type VersionInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// GetVersion returns the build information with defaults applied.
func GetVersion() *VersionInfo {
	return &VersionInfo{
		Version:   withDefault(version, DefaultVersion),
		Commit:    withDefault(commit, DefaultCommit),
		BuildTime: withDefault(buildTime, DefaultBuildTime),
	}
}

func withDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

// FormatShort returns only the version number.
func (vi *VersionInfo) FormatShort() string {
	return vi.Version
}

// FormatFull returns the application name followed by one labelled line per field.
func (vi *VersionInfo) FormatFull() string {
	var b strings.Builder
	b.WriteString(ApplicationName + "\n")
	fmt.Fprintf(&b, "%s: %s\n", LabelVersion, vi.Version)
	fmt.Fprintf(&b, "%s: %s\n", LabelCommit, vi.Commit)
	fmt.Fprintf(&b, "%s: %s\n", LabelBuilt, vi.BuildTime)
	return b.String()
}

// Write writes the short or full format to w.
func (vi *VersionInfo) Write(w io.Writer, short bool) error {
	if short {
		_, err := fmt.Fprintln(w, vi.FormatShort())
		return err
	}
	_, err := fmt.Fprint(w, vi.FormatFull())
	return err
}

// IsDevelopment reports whether this is an unversioned build.
func (vi *VersionInfo) IsDevelopment() bool {
	return vi.Version == DefaultVersion
}

// GetBuildTime parses the build time, returning the zero time when unknown or malformed.
func (vi *VersionInfo) GetBuildTime() time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if parsed, err := time.Parse(layout, vi.BuildTime); err == nil {
			return parsed
		}
	}
	return time.Time{}
}

// SetBuildVars overrides the build variables. Used by tests.
func SetBuildVars(ver, com, bt string) {
	version = ver
	commit = com
	buildTime = bt
}

// ResetBuildVars clears the build variables. Used by tests.
func ResetBuildVars() {
	SetBuildVars("", "", "")
}
