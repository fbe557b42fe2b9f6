package domain

import "strings"

// CompareNatural orders strings so that runs of digits compare as integers
// and everything else compares bytewise: "9" < "9a" < "10".
//
// Digit runs of any length are supported. Runs with equal value but
// different zero padding fall back to a plain comparison of the whole
// strings so the ordering stays total.
func CompareNatural(a, b string) int {
	ai, bi := 0, 0
	for ai < len(a) && bi < len(b) {
		ca, na := chunk(a, ai)
		cb, nb := chunk(b, bi)
		ai, bi = na, nb

		da, db := isDigit(ca[0]), isDigit(cb[0])
		switch {
		case da && db:
			if c := compareDigits(ca, cb); c != 0 {
				return c
			}
		case da != db:
			// numbers sort before text at the same position
			if da {
				return -1
			}
			return 1
		default:
			if c := strings.Compare(ca, cb); c != 0 {
				return c
			}
		}
	}
	switch {
	case ai < len(a):
		return 1
	case bi < len(b):
		return -1
	}
	return strings.Compare(a, b)
}

// NaturalLess is CompareNatural as a less function.
func NaturalLess(a, b string) bool {
	return CompareNatural(a, b) < 0
}

func chunk(s string, i int) (string, int) {
	digit := isDigit(s[i])
	j := i + 1
	for j < len(s) && isDigit(s[j]) == digit {
		j++
	}
	return s[i:j], j
}

func compareDigits(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
