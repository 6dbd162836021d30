package health

import (
	"strconv"
	"strings"
)

// parseVersion returns the first dotted version number in output, e.g.
// "3.11.4" from "Python 3.11.4".
func parseVersion(output string) string {
	for _, field := range strings.Fields(output) {
		field = strings.TrimLeft(field, "vV")
		if !strings.Contains(field, ".") || !strings.ContainsAny(field, "0123456789") {
			continue
		}
		if v := extractVersionNumber(field); v != "" {
			return v
		}
	}
	return ""
}

// extractVersionNumber keeps the leading major.minor.patch digits of s.
func extractVersionNumber(s string) string {
	var b strings.Builder
	dots := 0
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
			b.WriteRune(c)
		case c == '.' && dots < 2 && b.Len() > 0:
			b.WriteRune(c)
			dots++
		default:
			if b.Len() > 0 {
				return trimVersion(b.String())
			}
		}
	}
	return trimVersion(b.String())
}

func trimVersion(v string) string {
	v = strings.TrimSuffix(v, ".")
	if !strings.Contains(v, ".") {
		return ""
	}
	return v
}

// versionMeetsMinimum reports whether version >= minVersion, comparing
// dot-separated numeric parts.
func versionMeetsMinimum(version, minVersion string) bool {
	vParts := strings.Split(version, ".")
	minParts := strings.Split(minVersion, ".")

	for i := 0; i < max(len(vParts), len(minParts)); i++ {
		var v, m int
		if i < len(vParts) {
			v, _ = strconv.Atoi(strings.TrimSpace(vParts[i]))
		}
		if i < len(minParts) {
			m, _ = strconv.Atoi(strings.TrimSpace(minParts[i]))
		}
		if v != m {
			return v > m
		}
	}
	return true
}
