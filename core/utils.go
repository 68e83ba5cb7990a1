package core

import "strings"

// CleanString trims surrounding whitespace; pass lower to also fold to
// lowercase, the canonical form for emails and slugs.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) == 0 || !lower[0] {
		return s
	}
	return strings.ToLower(s)
}
