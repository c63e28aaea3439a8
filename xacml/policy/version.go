package policy

import (
	"regexp"
	"strconv"
	"strings"
)

// VersionConstraints narrows the versions a reference accepts. Version is a
// match pattern where "*" matches any single number and "+" matches any
// trailing sequence; EarliestVersion and LatestVersion are inclusive bounds.
type VersionConstraints struct {
	Version         string
	EarliestVersion string
	LatestVersion   string
}

// Any reports whether the constraints accept every version.
func (c VersionConstraints) Any() bool {
	return c.Version == "" && c.EarliestVersion == "" && c.LatestVersion == ""
}

// Match reports whether a concrete version satisfies the constraints.
func (c VersionConstraints) Match(version string) bool {
	if c.Version != "" && !matchVersionPattern(c.Version, version) {
		return false
	}
	if c.EarliestVersion != "" && CompareVersions(version, c.EarliestVersion) < 0 {
		return false
	}
	if c.LatestVersion != "" && CompareVersions(version, c.LatestVersion) > 0 {
		return false
	}
	return true
}

// CompareVersions orders two dotted numeric versions. Missing components
// count as zero.
func CompareVersions(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")

	for i := 0; i < len(as) || i < len(bs); i++ {
		var an, bn int
		if i < len(as) {
			an, _ = strconv.Atoi(as[i])
		}
		if i < len(bs) {
			bn, _ = strconv.Atoi(bs[i])
		}

		if an != bn {
			if an < bn {
				return -1
			}
			return 1
		}
	}
	return 0
}

// matchVersionPattern implements the XACML version match syntax: literal
// numeric components, "*" for exactly one component, "+" for zero or more
// trailing components.
func matchVersionPattern(pattern, version string) bool {
	var sb strings.Builder
	sb.WriteByte('^')
	for i, component := range strings.Split(pattern, ".") {
		switch component {
		case "+":
			// "+" matches any remaining sequence of components,
			// including none.
			if i > 0 {
				sb.WriteString(`(\.\d+)*`)
			} else {
				sb.WriteString(`\d+(\.\d+)*`)
			}
		case "*":
			if i > 0 {
				sb.WriteString(`\.`)
			}
			sb.WriteString(`\d+`)
		default:
			if i > 0 {
				sb.WriteString(`\.`)
			}
			sb.WriteString(regexp.QuoteMeta(component))
		}
	}
	sb.WriteByte('$')

	re, err := regexp.Compile(sb.String())
	if err != nil {
		return false
	}
	return re.MatchString(version)
}
