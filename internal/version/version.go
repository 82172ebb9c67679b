// Package version reports the build identity of the ingestd binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
)

// Overridden at build time with -ldflags "-X github.com/hivecast/ingestd/internal/version.Version=...".
var (
	Version    = "dev"
	CommitHash = ""
	BuildTime  = ""
)

// Info is the resolved build identity.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	BuildTime string `json:"build_time,omitempty"`
	Modified  bool   `json:"modified,omitempty"`
	GoVersion string `json:"go_version"`
}

var (
	resolveOnce sync.Once
	resolved    Info
)

// Get returns the build identity, filling missing ldflags values from the
// VCS stamp embedded by the Go toolchain.
func Get() Info {
	resolveOnce.Do(func() {
		resolved = resolve(Version, CommitHash, BuildTime, readVCS())
	})
	return resolved
}

// GetInfo returns "version (shortcommit)" for banners and the version command.
func GetInfo() string {
	return Get().String()
}

func (i Info) String() string {
	res := i.Version
	if i.Commit != "" {
		res += fmt.Sprintf(" (%s", shortHash(i.Commit))
		if i.Modified {
			res += "-dirty"
		}
		res += ")"
	}
	return res
}

type vcsStamp struct {
	revision string
	time     string
	modified bool
}

func readVCS() vcsStamp {
	var stamp vcsStamp
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return stamp
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			stamp.revision = setting.Value
		case "vcs.time":
			stamp.time = setting.Value
		case "vcs.modified":
			stamp.modified = setting.Value == "true"
		}
	}
	return stamp
}

func resolve(version, commit, buildTime string, stamp vcsStamp) Info {
	info := Info{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
		GoVersion: runtime.Version(),
	}
	if info.Version == "" {
		info.Version = "dev"
	}
	if info.Commit == "" {
		info.Commit = stamp.revision
		info.Modified = stamp.modified
		if info.BuildTime == "" {
			info.BuildTime = stamp.time
		}
	}
	return info
}

func shortHash(hash string) string {
	if len(hash) > 7 {
		return hash[:7]
	}
	return hash
}
