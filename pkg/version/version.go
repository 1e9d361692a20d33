// Package version carries build information injected via ldflags:
//
//	go build -ldflags "-X solace/pkg/version.Version=v1.2.3 -X solace/pkg/version.Commit=abc123"
package version

import "fmt"

//nolint:gochecknoglobals // ldflags injection needs package-level vars
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Info is the build identity reported by the CLI and the health endpoint.
type Info struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// Get returns the current build info.
func Get() Info {
	return Info{Version: Version, Commit: Commit, Date: Date}
}

func (i Info) String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", i.Version, i.Commit, i.Date)
}
