package stack

import "strings"

const fallbackName = "project"

// Names holds the normalized variants of a raw project name.
type Names struct {
	Raw        string // as entered by the user
	Safe       string // lowercase alphanumerics only, usable as a package name
	Slug       string // dash-separated
	Underscore string // underscore-separated, for identifiers that forbid dashes
}

// DeriveNames computes every name variant. Each variant is lowercase, contains
// only [a-z0-9] plus its own separator, never repeats the separator and never
// starts or ends with it. A name with no usable characters falls back to "project".
func DeriveNames(raw string) Names {
	return Names{
		Raw:        raw,
		Safe:       normalize(raw, 0),
		Slug:       normalize(raw, '-'),
		Underscore: normalize(raw, '_'),
	}
}

// PackagePath is the Java package directory for the project.
func (n Names) PackagePath() string {
	return "com/" + n.Safe
}

// DatabaseName is the default database name for generated configuration.
func (n Names) DatabaseName() string {
	return n.Underscore
}

// normalize lowercases s and keeps runs of [a-z0-9]. When sep is non-zero,
// every run of other characters between kept runs becomes a single sep.
func normalize(s string, sep byte) string {
	var b strings.Builder
	pending := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pending && sep != 0 && b.Len() > 0 {
				b.WriteByte(sep)
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	if b.Len() == 0 {
		return fallbackName
	}
	return b.String()
}
