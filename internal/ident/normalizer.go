// Package ident canonicalizes farm-provided ear tags. Tags arrive as
// transcriptions of handwriting: dash-separated litter/sequence numbers,
// embedded breed letters and stray characters all occur in the same
// column. The longest-digit-run heuristic recovers the intended numeric
// tag better than any other single rule we tried against real exports.
package ident

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/jack2012aa/breeding-db-sub000/internal/models"
)

// Normalize canonicalizes a raw ear tag into its numeric form. It is pure
// and idempotent: Normalize(Normalize(s)) == Normalize(s).
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	// Tags like "1234-2" carry the litter number in front and the
	// in-litter sequence behind the dash. Only the first two segments
	// matter; anything after a second dash is an annotation.
	if strings.Contains(s, "-") {
		parts := strings.SplitN(s, "-", 3)
		front, hind := parts[0], parts[1]
		s = front + twoDigitSuffix(hind)
	}

	return longestDigitRun(s)
}

// twoDigitSuffix re-synthesizes the dash suffix as exactly two digits.
// "23abc" keeps "23"; a lone leading digit is zero-padded, so "2" and
// "2cao" both become "02".
func twoDigitSuffix(hind string) string {
	digits := leadingDigits(hind, 2)
	switch len(digits) {
	case 2:
		return digits
	case 1:
		return "0" + digits
	default:
		return ""
	}
}

func leadingDigits(s string, max int) string {
	var b strings.Builder
	for _, r := range s {
		if !unicode.IsDigit(r) || b.Len() >= max {
			break
		}
		b.WriteRune(r)
	}
	return b.String()
}

// longestDigitRun splits the string at every non-numeric boundary and
// returns the longest run of digits. Ties go to the first occurrence.
func longestDigitRun(s string) string {
	best := ""
	current := strings.Builder{}
	flush := func() {
		if current.Len() > len(best) {
			best = current.String()
		}
		current.Reset()
	}
	for _, r := range s {
		if unicode.IsDigit(r) {
			current.WriteRune(r)
			continue
		}
		flush()
	}
	flush()
	return best
}

// SplitYearBreedID detects an embedded breed character inside a composite
// identifier such as "20Y1234-2", splits on its first occurrence, expands
// a 2-digit year to four digits and normalizes the remaining identifier.
// When no breed character is present only the normalized identifier is
// returned.
func SplitYearBreedID(raw string) (year *int, breed *models.Breed, id string) {
	s := strings.TrimSpace(raw)
	idx := -1
	var found models.Breed
	for i, r := range s {
		up := unicode.ToUpper(r)
		if strings.ContainsRune(models.BreedLetters, up) {
			idx, found = i, models.Breed(string(up))
			break
		}
	}
	if idx < 0 {
		return nil, nil, Normalize(s)
	}

	if y, ok := parseYear(s[:idx]); ok {
		year = &y
	}
	breed = &found
	return year, breed, Normalize(s[idx+1:])
}

func parseYear(s string) (int, bool) {
	digits := strings.TrimSpace(s)
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	switch {
	case n >= 1900 && n <= 9999:
		return n, true
	case n >= 0 && n <= 99:
		return 2000 + n, true
	default:
		return 0, false
	}
}
