package version

import (
	"fmt"
	"runtime/debug"
)

// Build-time variables (set via ldflags)
var (
	Version = "dev"
	Commit  = ""
)

// GetVersion returns the current version
func GetVersion() string {
	return Version
}

// GetCommit returns the build commit, falling back to the VCS revision the
// Go toolchain embedded in the binary.
func GetCommit() string {
	if Commit != "" {
		return Commit
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" {
			return setting.Value
		}
	}
	return ""
}

func String() string {
	commit := GetCommit()
	if commit == "" {
		return Version
	}
	if len(commit) > 12 {
		commit = commit[:12]
	}
	return fmt.Sprintf("%s (%s)", Version, commit)
}
