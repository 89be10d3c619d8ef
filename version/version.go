// Package version reports build metadata for the pantry binary.
package version

import (
	"fmt"
	"runtime"
)

// AppName and About describe the application itself.
const (
	AppName = "pantry"
	About   = "Household inventory tracker: inventories, their items and the physical units of each item."
)

// Set by the linker at build time.
var (
	Version   = "dev"
	Commit    = "none"
	Branch    = "unknown"
	BuildDate = "unknown"
)

// Info holds the application and build metadata.
type Info struct {
	Name      string `json:"name"`
	About     string `json:"about"`
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Branch    string `json:"branch"`
	BuildDate string `json:"buildDate"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
}

// GetInfo returns the metadata of the running binary.
func GetInfo() Info {
	return Info{
		Name:      AppName,
		About:     About,
		Version:   Version,
		Commit:    Commit,
		Branch:    Branch,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// Short is "pantry <version>".
func (i Info) Short() string {
	return i.Name + " " + i.Version
}

func (i Info) String() string {
	return fmt.Sprintf(
		"%s %s\n%s\n\nCommit:\t\t%s\nBranch:\t\t%s\nBuild Date:\t%s\nGo Version:\t%s\nPlatform:\t%s",
		i.Name, i.Version, i.About, i.Commit, i.Branch, i.BuildDate, i.GoVersion, i.Platform,
	)
}
