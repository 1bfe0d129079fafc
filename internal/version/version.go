// Package version exposes the build metadata stamped into the binary.
package version

import (
	"fmt"
	"runtime/debug"
)

// Overridable through -ldflags at build time. When left empty the commit
// and time fall back to what the toolchain recorded in the build info.
var (
	Version    = "dev"
	CommitHash = ""
	BuildTime  = ""
)

// GetInfo renders the version with an abbreviated commit hash, for example
// "dev (1a2b3c4)".
func GetInfo() string {
	if CommitHash == "" {
		if info, ok := debug.ReadBuildInfo(); ok {
			for _, setting := range info.Settings {
				switch setting.Key {
				case "vcs.revision":
					CommitHash = setting.Value
				case "vcs.time":
					BuildTime = setting.Value
				}
			}
		}
	}

	out := Version
	if CommitHash != "" {
		hash := CommitHash
		if len(hash) > 7 {
			hash = hash[:7]
		}
		out += fmt.Sprintf(" (%s)", hash)
	}
	return out
}
