// Package version holds the build version of xppkb.
package version

import "runtime/debug"

// Overridable at build time:
// go build -ldflags "-X xppkb/internal/version.Version=1.2.0 -X xppkb/internal/version.Commit=abc123"
var (
	Version   = "0.4.0"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// readBuildInfo is swapped out in tests.
var readBuildInfo = debug.ReadBuildInfo

// commit returns the linked commit, falling back to the VCS revision the
// toolchain stamped into the binary.
func commit() string {
	if Commit != "unknown" {
		return Commit
	}
	if info, ok := readBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && s.Value != "" {
				return s.Value
			}
		}
	}
	return Commit
}

// Info returns the version with a short commit when one is known.
func Info() string {
	if c := commit(); c != "unknown" && len(c) > 7 {
		return Version + " (" + c[:7] + ")"
	}
	return Version
}

// Full returns the multi-line form printed by `xppkb version`.
func Full() string {
	return "xppkb version " + Version + "\n" +
		"Commit: " + commit() + "\n" +
		"Built: " + BuildDate
}
