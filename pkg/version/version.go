// Package version holds the device version reported by ReadDeviceInfo.
package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Current is the version of the simulated device. Overridable at link
// time with -ldflags "-X github.com/adsim-project/adsim-go/pkg/version.Current=1.2.3".
var Current = "1.0.1"

// DeviceName is the name reported by ReadDeviceInfo.
const DeviceName = "ADSim"

// Version is a parsed "major.minor.build" version.
type Version struct {
	Major uint8
	Minor uint8
	Build uint16
}

// Parse parses a "major.minor.build" version string. The build component
// may be omitted.
func Parse(s string) (Version, error) {
	parts := strings.Split(s, ".")
	if len(parts) < 2 || len(parts) > 3 {
		return Version{}, fmt.Errorf("invalid version %q: expected major.minor[.build]", s)
	}

	major, err := strconv.ParseUint(parts[0], 10, 8)
	if err != nil {
		return Version{}, fmt.Errorf("invalid version %q: bad major component", s)
	}

	minor, err := strconv.ParseUint(parts[1], 10, 8)
	if err != nil {
		return Version{}, fmt.Errorf("invalid version %q: bad minor component", s)
	}

	var build uint64
	if len(parts) == 3 {
		build, err = strconv.ParseUint(parts[2], 10, 16)
		if err != nil {
			return Version{}, fmt.Errorf("invalid version %q: bad build component", s)
		}
	}

	return Version{Major: uint8(major), Minor: uint8(minor), Build: uint16(build)}, nil
}

// MustCurrent returns the parsed Current version, or 0.0.0 when Current
// was overridden with an unparsable value.
func MustCurrent() Version {
	v, err := Parse(Current)
	if err != nil {
		return Version{}
	}
	return v
}

// String returns the version as "major.minor.build".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Build)
}

// Compatible returns true if the other version has the same major version.
func (v Version) Compatible(other Version) bool {
	return v.Major == other.Major
}
