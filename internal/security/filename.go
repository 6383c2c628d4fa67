package security

import (
	"strings"
	"unicode"
)

// DefaultFileStem is used when a name has no usable characters left.
const DefaultFileStem = "recording"

const maxStemLen = 96

// SafeFileStem keeps letters, digits, spaces, dashes and underscores from a
// user supplied name and trims surrounding spaces. The result is safe to use
// as the leading part of a file name.
func SafeFileStem(name string) string {
	var b strings.Builder
	n := 0
	for _, r := range name {
		if n >= maxStemLen {
			break
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '-' || r == '_' {
			b.WriteRune(r)
			n++
		}
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return DefaultFileStem
	}
	return out
}
