// version.go implements version and build-info strings.
//
// Reference: RocksDB util/build_version.cc.in
package widekv

import (
	"maps"
	"slices"
	"strconv"
	"strings"
)

const (
	MajorVersion = 0
	MinorVersion = 4
	PatchVersion = 1
)

// Build properties, each "name:value". Release builds set them with
//
//	-ldflags "-X 'github.com/aalhour/widekv.gitSHA=git_sha:<sha>'"
//
// A value still starting with '@' was never substituted and is skipped.
var (
	gitSHA    = "git_sha:@GIT_SHA@"
	gitTag    = "git_tag:@GIT_TAG@"
	buildDate = "build_date:@BUILD_DATE@"
	buildTag  = "build_tag:@BUILD_TAG@"
)

func addProperty(props map[string]string, prop string) {
	colon := strings.IndexByte(prop, ':')
	if colon <= 0 || colon >= len(prop)-1 {
		return
	}
	if prop[colon+1] == '@' {
		return
	}
	props[prop[:colon]] = prop[colon+1:]
}

// BuildProperties returns the substituted build properties.
func BuildProperties() map[string]string {
	props := make(map[string]string, 4)
	for _, p := range []string{gitSHA, gitTag, buildDate, buildTag} {
		addProperty(props, p)
	}
	return props
}

// VersionString returns "major.minor", or "major.minor.patch" with withPatch.
func VersionString(withPatch bool) string {
	v := strconv.Itoa(MajorVersion) + "." + strconv.Itoa(MinorVersion)
	if withPatch {
		v += "." + strconv.Itoa(PatchVersion)
	}
	return v
}

// BuildInfoString describes program and this library's version. verbose
// appends the build properties, one per line, sorted by name.
func BuildInfoString(program string, verbose bool) string {
	info := program + " (widekv) " + VersionString(true)
	if !verbose {
		return info
	}
	props := BuildProperties()
	info += " Build properties:"
	for _, name := range slices.Sorted(maps.Keys(props)) {
		info += "\n    " + name + ": " + props[name]
	}
	return info
}
