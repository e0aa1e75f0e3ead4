package version

import (
	"strings"
	"testing"
)

func TestResolve(t *testing.T) {
	vcs := map[string]string{
		"vcs.revision": "4f2a9c1e0b7d3a5c",
		"vcs.time":     "2025-01-09T10:30:00Z",
		"vcs.modified": "true",
	}

	tests := []struct {
		name                  string
		version, commit, date string
		vcs                   map[string]string
		wantCommit, wantDate  string
		wantModified          bool
	}{
		{"ldflags win", "v1.2.0", "abc1234", "2025-02-01", vcs, "abc1234", "2025-02-01", true},
		{"vcs fills gaps", "dev", "unknown", "unknown", vcs, "4f2a9c1e0b7d3a5c", "2025-01-09T10:30:00Z", true},
		{"nothing known", "dev", "unknown", "unknown", nil, "unknown", "unknown", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolve(tt.version, tt.commit, tt.date, tt.vcs)
			if got.Version != tt.version || got.GitCommit != tt.wantCommit || got.BuildDate != tt.wantDate {
				t.Errorf("resolve() = %+v", got)
			}
			if got.Modified != tt.wantModified {
				t.Errorf("Modified = %v, want %v", got.Modified, tt.wantModified)
			}
			if !strings.Contains(got.Platform, "/") || got.GoVersion == "" {
				t.Errorf("runtime fields = %q %q", got.Platform, got.GoVersion)
			}
		})
	}
}

func TestShortCommit(t *testing.T) {
	for in, want := range map[string]string{
		"4f2a9c1e0b7d3a5c": "4f2a9c1",
		"abc":              "abc",
	} {
		if got := shortCommit(in); got != want {
			t.Errorf("shortCommit(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestStringStartsWithVersion(t *testing.T) {
	if s := String(); !strings.HasPrefix(s, Version) {
		t.Errorf("String() = %q, want prefix %q", s, Version)
	}
}
