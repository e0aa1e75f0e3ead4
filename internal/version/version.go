// Package version reports build metadata. The variables are set with
// -ldflags "-X github.com/smazurov/scannode/internal/version.Version=...";
// a plain go build falls back to the VCS stamp in the binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
)

var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Info is build metadata as served by /api/version.
type Info struct {
	Version   string `json:"version" example:"v0.3.1"`
	GitCommit string `json:"git_commit" example:"4f2a9c1"`
	BuildDate string `json:"build_date" example:"2025-01-09T10:30:00Z"`
	Modified  bool   `json:"modified,omitempty" doc:"Built from a dirty tree"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform" example:"linux/arm64"`
}

var (
	once sync.Once
	info Info
)

// Get returns the build metadata, resolved once.
func Get() Info {
	once.Do(func() {
		info = resolve(Version, GitCommit, BuildDate, readBuildInfo())
	})
	return info
}

// String is the version followed by the short commit when known.
func String() string {
	i := Get()
	if i.GitCommit == "unknown" {
		return i.Version
	}
	return fmt.Sprintf("%s (%s)", i.Version, shortCommit(i.GitCommit))
}

func readBuildInfo() map[string]string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return nil
	}
	settings := make(map[string]string, len(bi.Settings))
	for _, s := range bi.Settings {
		settings[s.Key] = s.Value
	}
	return settings
}

// resolve prefers linker-set values and fills the rest from vcs.* settings.
func resolve(version, commit, date string, vcs map[string]string) Info {
	i := Info{
		Version:   version,
		GitCommit: commit,
		BuildDate: date,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if rev := vcs["vcs.revision"]; rev != "" && i.GitCommit == "unknown" {
		i.GitCommit = rev
	}
	if t := vcs["vcs.time"]; t != "" && i.BuildDate == "unknown" {
		i.BuildDate = t
	}
	i.Modified = vcs["vcs.modified"] == "true"
	return i
}

func shortCommit(c string) string {
	if len(c) > 7 {
		return c[:7]
	}
	return c
}
