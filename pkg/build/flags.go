// SPDX-License-Identifier: MIT
//
// Package build exposes the metadata embedded at link time: the program
// name, build timestamp, Git commit and version. Set them with -ldflags:
//
//	go build -ldflags "-X pitchtrack/pkg/build.buildName=pitchtrack \
//	    -X pitchtrack/pkg/build.buildVersion=v0.3.0 ..."
package build

import (
	"errors"
	"fmt"
)

// Description is the one-line summary shown in help output.
const Description = "Real-time monophonic pitch tracking for files and audio devices"

type ldFlags struct {
	Name    string
	Time    string
	Commit  string
	Version string
}

func (f ldFlags) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", f.Name, f.Version, f.Commit, f.Time)
}

// Package-level variables for build information. These are populated by -ldflags
// during compilation. Development builds keep the defaults.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildFlags   = &ldFlags{
		Name:    "pitchtrack",
		Time:    "unknown",
		Commit:  "unknown",
		Version: "dev",
	}
)

// Initialize validates and copies build information from ldflags variables
// into the buildFlags struct. On error the defaults are left in place and
// every missing flag is reported.
func Initialize() error {
	var errs []error
	if buildName == "" {
		errs = append(errs, errors.New("BuildName is required"))
	}
	if buildTime == "" {
		errs = append(errs, errors.New("BuildTime is required"))
	}
	if buildCommit == "" {
		errs = append(errs, errors.New("BuildCommit is required"))
	}
	if buildVersion == "" {
		errs = append(errs, errors.New("BuildVersion is required"))
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	buildFlags.Name = buildName
	buildFlags.Time = buildTime
	buildFlags.Commit = buildCommit
	buildFlags.Version = buildVersion

	return nil
}

// GetBuildFlags returns the current build information.
func GetBuildFlags() *ldFlags {
	return buildFlags
}
