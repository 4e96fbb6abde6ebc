package config

import "fmt"

// The following vars are set at link time:
//
//	go build -ldflags "-X github/chapool/wallet-core/internal/config.Commit=$(git rev-parse HEAD)"
var (
	ModuleName = "wallet-core"
	Commit     = "< 40 chars git commit hash via ldflags >"
	BuildDate  = "< YYYY-MM-DDTHH:MM:SS+ZZ:ZZ via ldflags >"
)

// GetFormattedBuildArgs returns the version line shown by --version.
func GetFormattedBuildArgs() string {
	return fmt.Sprintf("%v @ %v (%v)", ModuleName, Commit, BuildDate)
}
