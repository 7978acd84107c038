// Package version reports the module release and parses "major.minor"
// version strings.
package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Current is the release of this module. Builds may override it with
// -ldflags "-X github.com/fountain-coach/midi2-go/pkg/version.Current=1.2".
var Current = "0.1"

// Version is a parsed "major.minor" version.
type Version struct {
	Major uint16
	Minor uint16
}

// Parse parses a "major.minor" version string.
func Parse(s string) (Version, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 2 {
		return Version{}, fmt.Errorf("invalid version %q: expected major.minor", s)
	}

	major, err := strconv.ParseUint(parts[0], 10, 16)
	if err != nil || parts[0] == "" {
		return Version{}, fmt.Errorf("invalid version %q: bad major component", s)
	}

	minor, err := strconv.ParseUint(parts[1], 10, 16)
	if err != nil || parts[1] == "" {
		return Version{}, fmt.Errorf("invalid version %q: bad minor component", s)
	}

	return Version{Major: uint16(major), Minor: uint16(minor)}, nil
}

// String returns the version as "major.minor".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Compatible returns true if the other version has the same major version.
func (v Version) Compatible(other Version) bool {
	return v.Major == other.Major
}

// Less reports whether v sorts before other.
func (v Version) Less(other Version) bool {
	if v.Major != other.Major {
		return v.Major < other.Major
	}
	return v.Minor < other.Minor
}

// String returns Current, or "dev" when Current does not parse.
func String() string {
	v, err := Parse(Current)
	if err != nil {
		return "dev"
	}
	return v.String()
}
