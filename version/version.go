// Package version reports the build of the bl binary. Version,
// Commit and Date are set at link time with -ldflags "-X".
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set with -ldflags "-X github.com/byte4ever/boiler/version.Version=...".
var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

// Current returns Version, falling back to the module
// version recorded in the build info.
func Current() string {
	if Version != "dev" {
		return Version
	}

	if bi, ok := debug.ReadBuildInfo(); ok &&
		bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		return bi.Main.Version
	}

	return Version
}

// Info is the multi-line text printed by bl version.
func Info() string {
	commit := Commit
	if commit == "" {
		commit = "unknown"
	}

	date := Date
	if date == "" {
		date = "unknown"
	}

	return fmt.Sprintf(
		"Boiler %s\n  commit: %s\n  built:  %s\n  go:     %s %s/%s",
		Current(), commit, date,
		runtime.Version(), runtime.GOOS, runtime.GOARCH,
	)
}
