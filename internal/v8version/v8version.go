// Package v8version parses the dotted V8 version strings used to gate wire
// format features (e.g. "12.1.109", "11.4") and compares them numerically,
// since naive string comparison gets "12.1.109" < "12.1.9" wrong.
package v8version

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Version wraps a semver.Version parsed leniently from a V8-style version
// string, which may omit the minor or patch component ("11.4" has no
// patch; V8 sometimes reports just a major).
type Version struct {
	v *semver.Version
}

// Parse coerces s into a Version, zero-padding missing components so that
// "11.4" becomes "11.4.0" before handing off to semver, the way V8's own
// version-string comparisons treat missing components as zero.
func Parse(s string) (Version, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	for len(parts) < 3 {
		parts = append(parts, "0")
	}
	v, err := semver.NewVersion(strings.Join(parts[:3], "."))
	if err != nil {
		return Version{}, fmt.Errorf("v8version: %q: %w", s, err)
	}
	return Version{v: v}, nil
}

// MustParse is like Parse but panics on error; intended for package-level
// version table initialization with literal constants.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// AtLeast reports whether this version is >= other.
func (v Version) AtLeast(other Version) bool {
	return v.v.Compare(other.v) >= 0
}

func (v Version) String() string { return v.v.String() }
