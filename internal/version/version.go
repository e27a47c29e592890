// Package version exposes the build version stamped via ldflags:
//
//	-ldflags "-X github.com/Alia5/CONDUIT/internal/version.Version=x.y.z"
package version

import (
	"fmt"
	"strings"
)

// Version is injected at build time; empty in development builds.
var Version = ""

const devVersion = "0.0.1-dev"

// Get returns the stamped version without its leading "v". Development
// builds report a fixed placeholder.
func Get() (string, error) {
	if Version == "" {
		return devVersion, nil
	}
	v := strings.TrimPrefix(Version, "v")
	base, _, _ := strings.Cut(v, "-")
	if !strings.Contains(base, ".") {
		return "", fmt.Errorf("invalid version format: %s (expected x.y.z)", Version)
	}
	return v, nil
}
