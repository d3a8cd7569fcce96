package version

import (
	"fmt"
	"runtime"
)

const Service = "taskmarket"

// Set at build time with -ldflags "-X github.com/TwigBush/taskmarket/internal/version.Version=..."
var (
	Version   = "dev"
	GitCommit = "none"
	BuildDate = "unknown"
)

type Info struct {
	Service   string `json:"service"`
	Version   string `json:"version"`
	GitCommit string `json:"gitCommit"`
	BuildDate string `json:"buildDate"`
	GoVersion string `json:"goVersion"`
}

func Get() Info {
	return Info{
		Service:   Service,
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
	}
}

func String() string {
	return fmt.Sprintf("%s %s", Service, Version)
}

func Verbose() string {
	i := Get()
	return fmt.Sprintf("%s %s (commit: %s, built: %s, go: %s)",
		i.Service, i.Version, i.GitCommit, i.BuildDate, i.GoVersion)
}

// UserAgent identifies the CLI to the API.
func UserAgent() string {
	return Service + "-cli/" + Version
}
