// Package normalize holds the pure string and currency helpers every
// name-based index in the server is built on.
package normalize

import (
	"math"
	"strings"
)

// DefaultDivineRate is the chaos-per-divine rate used whenever a live rate
// cannot be derived from the price index.
const DefaultDivineRate = 180

// Name canonicalizes an item, mod or gem name into the universal lookup
// key: lowercase, punctuation stripped, whitespace collapsed. Idempotent.
func Name(raw string) string {
	lower := strings.ToLower(raw)

	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '\t', r == '\n', r == '\r':
			b.WriteByte(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// Slug converts a name into its hyphenated slug form: apostrophes dropped,
// any run of other non-alphanumerics collapsed to a single hyphen. Slugs
// key the name index; normalized names key search.
func Slug(raw string) string {
	lower := strings.ToLower(raw)

	var b strings.Builder
	b.Grow(len(lower))
	pendingHyphen := false
	for _, r := range lower {
		switch {
		case r == '\'', r == '’':
			// apostrophes vanish without splitting the word
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		default:
			pendingHyphen = true
		}
	}

	return b.String()
}

// Tag canonicalizes a rule or item tag. Tags use slug form.
func Tag(raw string) string { return Slug(raw) }

// ScoreMatch rates candidate against query in [0,1]: 1 for an exact match
// after normalization, len(query)/len(candidate) for a substring match,
// otherwise 0. Shorter candidates containing the query score higher.
func ScoreMatch(query, candidate string) float64 {
	q := Name(query)
	c := Name(candidate)

	if c == q {
		return 1
	}
	if q != "" && strings.Contains(c, q) {
		return float64(len(q)) / float64(len(c))
	}

	return 0
}

// RoundCurrency rounds a chaos or divine amount to 2 decimal places,
// half away from zero. Applied to every computed amount so floating point
// drift cannot accumulate across plan steps.
func RoundCurrency(value float64) float64 {
	return math.Round(value*100) / 100
}

// ChaosToDivine converts a chaos amount at the given chaos-per-divine
// rate. A non-positive rate falls back to DefaultDivineRate.
func ChaosToDivine(chaos, rate float64) float64 {
	if rate <= 0 {
		rate = DefaultDivineRate
	}
	return RoundCurrency(chaos / rate)
}
