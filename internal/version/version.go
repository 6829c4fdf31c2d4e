// Package version parses and orders Unity editor version strings.
//
// Unity versions are three-part (major.minor.patch) with an optional release
// suffix such as "f1" or "b3" ("2021.3.2f1"). The suffix is preserved for
// display but ignored when ordering.
package version

import (
	"fmt"
	"regexp"
	"strconv"
)

// versionRe matches "major.minor[.patch[suffix]]".
var versionRe = regexp.MustCompile(`^([0-9]+)\.([0-9]+)(?:\.([0-9]+)([a-z][0-9]+)?)?$`)

// Version is a three-part ordered editor version.
type Version struct {
	Major  int
	Minor  int
	Patch  int
	Suffix string
}

// Parse parses a Unity version string such as "2019.4.40" or "2021.3.2f1".
// A missing patch component defaults to zero. Anything else is an error.
func Parse(s string) (Version, error) {
	match := versionRe.FindStringSubmatch(s)
	if match == nil {
		return Version{}, fmt.Errorf("malformed version string %q", s)
	}

	major, _ := strconv.Atoi(match[1])
	minor, _ := strconv.Atoi(match[2])

	patch := 0
	if match[3] != "" {
		patch, _ = strconv.Atoi(match[3])
	}

	return Version{
		Major:  major,
		Minor:  minor,
		Patch:  patch,
		Suffix: match[4],
	}, nil
}

// Compare returns -1 if a < b, 0 if a == b, 1 if a > b.
// Suffixes do not participate in ordering.
func Compare(a, b Version) int {
	aParts := [3]int{a.Major, a.Minor, a.Patch}
	bParts := [3]int{b.Major, b.Minor, b.Patch}

	for i := range 3 {
		if aParts[i] < bParts[i] {
			return -1
		}

		if aParts[i] > bParts[i] {
			return 1
		}
	}

	return 0
}

// AtLeast reports whether v >= other.
func (v Version) AtLeast(other Version) bool {
	return Compare(v, other) >= 0
}

// String formats the version as "major.minor.patch[suffix]".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d%s", v.Major, v.Minor, v.Patch, v.Suffix)
}
