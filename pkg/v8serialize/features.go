package v8serialize

import "github.com/gostructs/v8wire/internal/v8version"

// Feature identifies a wire-format capability gated by the target V8
// version (spec §4.8). A Serializer refuses to emit, and a Deserializer
// refuses to accept, a feature not enabled for the configured version.
type Feature int

const (
	FeatureFloat16Array Feature = iota
	FeatureCircularErrorCause
	FeatureResizableArrayBuffer
	FeatureRegExpUnicodeSets
)

var featureMinVersion = map[Feature]v8version.Version{
	FeatureFloat16Array:         v8version.MustParse("12.5"),
	FeatureCircularErrorCause:   v8version.MustParse("12.1.109"),
	FeatureResizableArrayBuffer: v8version.MustParse("11.4"),
	FeatureRegExpUnicodeSets:    v8version.MustParse("10.0"),
}

// featureSet resolves which features are enabled for a given target V8
// version string, memoizing the comparison so hot paths (per-element
// encode/decode) don't reparse semver on every call.
type featureSet struct {
	version  v8version.Version
	hasValue bool
	enabled  map[Feature]bool
}

// defaultV8Version is the version assumed when none is configured: current
// at time of writing, enabling every gated feature.
const defaultV8Version = "13.0.0"

func newFeatureSet(versionString string) (*featureSet, error) {
	if versionString == "" {
		versionString = defaultV8Version
	}
	v, err := v8version.Parse(versionString)
	if err != nil {
		return nil, err
	}
	fs := &featureSet{version: v, hasValue: true, enabled: make(map[Feature]bool, len(featureMinVersion))}
	for f, min := range featureMinVersion {
		fs.enabled[f] = v.AtLeast(min)
	}
	return fs, nil
}

func (fs *featureSet) Enabled(f Feature) bool {
	if fs == nil {
		return true
	}
	return fs.enabled[f]
}
