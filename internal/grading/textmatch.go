package grading

import "strings"

// normalizeToken trims surrounding whitespace and casefolds.
func normalizeToken(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// TokensEqual reports whether a submitted token matches a stored key.
// An empty key never matches.
func TokensEqual(submitted, key string) bool {
	k := normalizeToken(key)
	if k == "" {
		return false
	}
	return normalizeToken(submitted) == k
}
