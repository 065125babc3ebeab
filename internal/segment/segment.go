// Package segment splits chapter text into the sentence-sized units that are
// handed to the speech engine one at a time.
package segment

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Split breaks text into speakable units. A unit ends after a sentence
// terminator (. ! ? 。 ！ ？). A run of terminators such as "..." or "?!",
// spaced or not, closes a single unit, and closing quotes or brackets that
// follow it stay with that unit. A period after a known abbreviation, an
// initial or inside a word does not end a unit. Units are trimmed, and
// punctuation-only pieces are folded into the unit before them. Text without
// any terminator comes back as one unit; empty text comes back as nil.
func Split(text string) []string {
	runes := []rune(norm.NFC.String(text))

	var (
		units []string
		b     strings.Builder
	)

	flush := func(final bool) {
		u := strings.TrimSpace(b.String())
		switch {
		case u == "":
		case !speakable(u) && len(units) > 0:
			units[len(units)-1] += " " + u
		case !speakable(u) && !final:
			// Keep it as the start of the next unit.
			return
		default:
			units = append(units, u)
		}
		b.Reset()
	}

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		b.WriteRune(r)

		if !isTerminator(r) || isDecimalPoint(runes, i) || isAbbreviation(runes, i) {
			continue
		}

		// Swallow the rest of the terminator run plus trailing closers. A
		// spaced ellipsis ". . ." counts as one run.
		for {
			if i+1 < len(runes) && (isTerminator(runes[i+1]) || isCloser(runes[i+1])) {
				i++
				b.WriteRune(runes[i])
				continue
			}
			j := i + 1
			for j < len(runes) && unicode.IsSpace(runes[j]) {
				j++
			}
			if j == i+1 || j >= len(runes) || !isTerminator(runes[j]) {
				break
			}
			for i+1 <= j {
				i++
				b.WriteRune(runes[i])
			}
		}
		flush(false)
	}
	flush(true)

	return units
}

// Count returns the number of units Split would produce.
func Count(text string) int {
	return len(Split(text))
}

func isTerminator(r rune) bool {
	switch r {
	case '.', '!', '?', '。', '！', '？':
		return true
	}
	return false
}

func isCloser(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '}', '”', '’', '」', '』', '）', '】':
		return true
	}
	return false
}

// isDecimalPoint reports whether the '.' at i sits between two digits.
func isDecimalPoint(runes []rune, i int) bool {
	if runes[i] != '.' || i == 0 || i+1 >= len(runes) {
		return false
	}
	return unicode.IsDigit(runes[i-1]) && unicode.IsDigit(runes[i+1])
}

// speakable reports whether u contains anything besides punctuation.
func speakable(u string) bool {
	return strings.IndexFunc(u, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}) >= 0
}
