// Package version reports build details for the startup log, the CLI and
// the health endpoint.
package version

import (
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/sirupsen/logrus"
)

// Set via -ldflags "-X budgetinsights/internal/version.Version=..."
var (
	Version   = "dev"
	BuildTime = ""
)

// Info describes the running binary
type Info struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time,omitempty"`
	GoVersion string `json:"go_version"`
	Commit    string `json:"commit,omitempty"`
	Dirty     bool   `json:"dirty,omitempty"`
}

// Get collects ldflags values and the VCS stamp embedded by the toolchain
func Get() Info {
	info := Info{Version: Version, BuildTime: BuildTime}

	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	info.GoVersion = buildInfo.GoVersion
	for _, s := range buildInfo.Settings {
		switch s.Key {
		case "vcs.revision":
			info.Commit = s.Value
		case "vcs.modified":
			info.Dirty = s.Value == "true"
		case "vcs.time":
			if info.BuildTime == "" {
				info.BuildTime = s.Value
			}
		}
	}
	return info
}

// String renders e.g. "budgetinsights 1.2.0 (3f2a9c1d, dirty) go1.25.0"
func (i Info) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "budgetinsights %s", i.Version)

	if i.Commit != "" {
		commit := i.Commit
		if len(commit) > 8 {
			commit = commit[:8]
		}
		if i.Dirty {
			commit += ", dirty"
		}
		fmt.Fprintf(&b, " (%s)", commit)
	}
	if i.GoVersion != "" {
		fmt.Fprintf(&b, " %s", i.GoVersion)
	}
	return b.String()
}

// Fields returns the info as log fields
func (i Info) Fields() logrus.Fields {
	fields := logrus.Fields{"version": i.Version}
	if i.Commit != "" {
		fields["commit"] = i.Commit
	}
	if i.BuildTime != "" {
		fields["built"] = i.BuildTime
	}
	return fields
}

// Warning flags builds that cannot be traced to a clean commit
func (i Info) Warning() string {
	switch {
	case i.Dirty:
		return "binary built from a modified source tree"
	case i.Commit == "" && i.Version == "dev":
		return "development build without version control information"
	}
	return ""
}
