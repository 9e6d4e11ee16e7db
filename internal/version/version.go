package version

import (
	"fmt"
	"runtime"
)

// Overridden at build time with -ldflags "-X".
var (
	Version   = "2.0.0"
	Commit    = "none"
	BuildDate = "unknown"
)

// Info is the build metadata reported by the CLI and the HTTP API.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

func Get() Info {
	return Info{Version: Version, Commit: Commit, BuildDate: BuildDate, GoVersion: runtime.Version()}
}

func String() string {
	return fmt.Sprintf("version=%s commit=%s build_date=%s go=%s", Version, Commit, BuildDate, runtime.Version())
}
