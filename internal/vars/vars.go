// Package vars holds build-time variables populated via the linker (ldflags).
package vars

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

var (
	// Name of the project
	Name = "BikeTrack Relay"

	// Version of application (git tag), e.g. v1.2.3
	Version = "dev"

	// Commit is the current git commit, full or short git SHA
	Commit = "unknown"

	// Revision build, count of commits
	Revision = 0

	// BuildTime is the time of start build app, RFC3339 UTC
	BuildTime = time.Unix(0, 0)

	_revision  string
	_buildTime string
)

// BuildInfo is the version payload served by the health endpoint.
type BuildInfo struct {
	Name     string `json:"name" example:"BikeTrack Relay"`
	Version  string `json:"version" example:"v1.2.3"`
	Commit   string `json:"commit" example:"da15c17"`
	Revision int    `json:"revision,omitempty" example:"42"`
}

func init() {
	if n, err := strconv.Atoi(_revision); err == nil {
		Revision = n
	}

	if _buildTime != "" {
		if t, err := time.Parse(time.RFC3339, _buildTime); err == nil {
			BuildTime = t.UTC()
		}
	}
}

// Print writes the build information to the standard output.
func Print() {
	fmt.Printf(`name:     %s
file:     %s
version:  %s
commit:   %s
revision: %d
built:    %s
`, Name, os.Args[0], Version, Commit, Revision, BuildTime)
}

// Ver returns the versioning details with a shortened commit.
func Ver() BuildInfo {
	return BuildInfo{
		Name:     Name,
		Version:  Version,
		Commit:   CommitShort(),
		Revision: Revision,
	}
}

// CommitShort returns the first 7 characters of the git commit hash.
func CommitShort() string {
	if len(Commit) > 7 {
		return Commit[:7]
	}

	return Commit
}
