// Package b40 implements the restricted base-40 alphabet used for name and
// namespace identifiers: digits, lowercase letters, and the four symbols
// '-', '_', '.', '+'. Base-40 guarantees every valid name has one canonical
// byte encoding, which is what lets the preorder commitment hash bind a
// name without ambiguity.
package b40

import "strings"

const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz-_.+"

// Valid reports whether every byte of s is in the base-40 alphabet.
func Valid(s string) bool {
	if len(s) == 0 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(alphabet, s[i]) < 0 {
			return false
		}
	}
	return true
}

// HasNoVowels reports whether s contains none of a, e, i, o, u, y.
func HasNoVowels(s string) bool {
	return !strings.ContainsAny(s, "aeiouy")
}

// HasNonAlpha reports whether s contains a digit, '-', or '_'.
func HasNonAlpha(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			return true
		case c == '-' || c == '_':
			return true
		}
	}
	return false
}
