// Package buildinfo reports how the plesql binary was built.
package buildinfo

import (
	"runtime"
	"runtime/debug"
	"strings"
)

// Stamped by the release build through -ldflags -X. Empty for local builds.
var (
	Version = ""
	Commit  = ""
	Date    = ""
)

// ModulePath is reported when the binary carries no module information.
const ModulePath = "github.com/plesql/plesql"

// Info is the resolved build description.
type Info struct {
	Version    string `json:"version"`
	ModulePath string `json:"module_path"`
	Commit     string `json:"commit,omitempty"`
	CommitTime string `json:"commit_time,omitempty"`
	Modified   bool   `json:"modified"`
	GoVersion  string `json:"go_version"`
	Platform   string `json:"platform"`
}

// Reader returns the embedded module build information. Tests replace it.
type Reader func() (*debug.BuildInfo, bool)

// Read resolves build information from the running binary.
func Read() Info {
	return ReadWith(debug.ReadBuildInfo)
}

// ReadWith resolves build information using read. Values stamped with
// -ldflags fill whatever the module metadata leaves empty.
func ReadWith(read Reader) Info {
	info := Info{
		Version:    "devel",
		ModulePath: ModulePath,
		GoVersion:  runtime.Version(),
		Platform:   runtime.GOOS + "/" + runtime.GOARCH,
	}

	if bi, ok := read(); ok && bi != nil {
		if bi.Main.Path != "" {
			info.ModulePath = bi.Main.Path
		}
		info.Version = cleanVersion(bi.Main.Version)
		if bi.GoVersion != "" {
			info.GoVersion = bi.GoVersion
		}
		settings := make(map[string]string, len(bi.Settings))
		for _, s := range bi.Settings {
			settings[s.Key] = s.Value
		}
		if goos, goarch := settings["GOOS"], settings["GOARCH"]; goos != "" && goarch != "" {
			info.Platform = goos + "/" + goarch
		}
		info.Commit = settings["vcs.revision"]
		info.CommitTime = settings["vcs.time"]
		info.Modified = strings.EqualFold(settings["vcs.modified"], "true")
	}

	if info.Version == "devel" && Version != "" {
		info.Version = cleanVersion(Version)
	}
	if info.Commit == "" {
		info.Commit = Commit
	}
	if info.CommitTime == "" {
		info.CommitTime = Date
	}
	return info
}

func cleanVersion(v string) string {
	if v == "" || v == "(devel)" {
		return "devel"
	}
	return v
}
