package version

import (
	"runtime/debug"
	"strings"
	"testing"
)

func withVersion(t *testing.T, version, commit string, info *debug.BuildInfo) {
	t.Helper()
	origVersion, origCommit, origRead := Version, Commit, readBuildInfo
	t.Cleanup(func() {
		Version, Commit, readBuildInfo = origVersion, origCommit, origRead
	})
	Version, Commit = version, commit
	readBuildInfo = func() (*debug.BuildInfo, bool) { return info, info != nil }
}

func TestInfo(t *testing.T) {
	tests := []struct {
		name   string
		commit string
		want   string
	}{
		{"unknown commit", "unknown", "1.0.0"},
		{"short commit", "abc", "1.0.0"},
		{"exactly 7 chars", "1234567", "1.0.0"},
		{"full hash", "abc1234567890", "1.0.0 (abc1234)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withVersion(t, "1.0.0", tt.commit, nil)
			if got := Info(); got != tt.want {
				t.Errorf("Info() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInfoFallsBackToVCSRevision(t *testing.T) {
	withVersion(t, "1.0.0", "unknown", &debug.BuildInfo{
		Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "feedfacecafe"}},
	})
	if got := Info(); got != "1.0.0 (feedfac)" {
		t.Errorf("Info() = %q", got)
	}

	withVersion(t, "1.0.0", "0123456789", &debug.BuildInfo{
		Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "feedfacecafe"}},
	})
	if got := Info(); got != "1.0.0 (0123456)" {
		t.Errorf("ldflags commit should win, got %q", got)
	}
}

func TestFull(t *testing.T) {
	withVersion(t, "2.1.0", "deadbeef", nil)
	got := Full()
	for _, want := range []string{"xppkb version 2.1.0", "Commit: deadbeef", "Built: "} {
		if !strings.Contains(got, want) {
			t.Errorf("Full() = %q, missing %q", got, want)
		}
	}
}
