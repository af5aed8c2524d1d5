package version

import (
	"fmt"
	"runtime"
)

// Set via -ldflags at release time
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Info returns formatted version information
func Info() string {
	return fmt.Sprintf("introscore %s (%s) built on %s with %s",
		Version, Commit, Date, runtime.Version())
}

func Short() string {
	return Version
}
