package version

import "fmt"

// Version and Commit are set at build time via ldflags:
//
//	-ldflags "-X pagepulse/internal/version.Version=v1.0.0 -X pagepulse/internal/version.Commit=abc1234"
//
// When built without ldflags Version defaults to "dev".
var (
	Version = "dev"
	Commit  = ""
)

// String reports the version with the short commit when one was stamped.
func String() string {
	if Commit == "" {
		return Version
	}
	c := Commit
	if len(c) > 7 {
		c = c[:7]
	}
	return fmt.Sprintf("%s (%s)", Version, c)
}
