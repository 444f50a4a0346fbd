// Package score holds the pure scoring primitives shared by every analyzer:
// Shannon entropy over a byte buffer and the readable-text ratio used as the
// acceptance gate for brute-force candidates.
package score

import "math"

// Entropy computes Shannon entropy in bits (0..8) from the observed byte
// frequency distribution. Empty input yields 0.
func Entropy(data []byte) float64 {
	if len(data) == 0 {
		return 0
	}
	var freq [256]int
	for _, b := range data {
		freq[b]++
	}
	n := float64(len(data))
	h := 0.0
	for _, c := range freq {
		if c == 0 {
			continue
		}
		p := float64(c) / n
		h -= p * math.Log2(p)
	}
	return h
}

// ReadableRatio returns the fraction of characters that belong to a permissive
// natural-language class: letters, digits, common punctuation, whitespace.
// Empty input yields 0.
func ReadableRatio(text string) float64 {
	if len(text) == 0 {
		return 0
	}
	readable := 0
	total := 0
	for _, r := range text {
		total++
		if Readable(r) {
			readable++
		}
	}
	return float64(readable) / float64(total)
}

// Readable reports membership in the plausible-text character class.
func Readable(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == ' ' || r == '\t' || r == '\n' || r == '\r':
		return true
	}
	switch r {
	case '.', ',', '!', '?', ';', ':', '\'', '"', '-', '_', '(', ')', '[', ']', '{', '}', '/', '\\', '@', '#', '$', '%', '&', '*', '+', '=', '<', '>', '|', '~', '`', '^':
		return true
	}
	return false
}
