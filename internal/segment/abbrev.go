package segment

import (
	"strings"
	"unicode"
)

// abbreviations are lower-cased words whose trailing period does not end a
// sentence. Words that commonly end sentences ("in", "sun") are left out.
var abbreviations = map[string]bool{}

func init() {
	for _, a := range []string{
		"mr", "mrs", "ms", "dr", "prof", "sr", "jr", "st", "rev", "gen", "capt", "lt", "sgt",
		"ph.d", "m.d", "b.a", "m.a", "b.s",
		"llc", "inc", "ltd", "co", "corp",
		"i.e", "e.g", "etc", "vs", "cf", "al", "approx", "fig", "no", "vol", "pp",
		"jan", "feb", "apr", "jun", "jul", "aug", "sep", "sept", "oct", "nov", "dec",
		"rd", "ave", "blvd", "ln", "ct",
		"u.s", "u.k", "u.n", "e.u", "n.y", "l.a",
		"ft", "lbs", "oz", "kg", "km", "cm", "mm", "mi", "yd", "hrs", "mins", "secs",
	} {
		abbreviations[a] = true
	}
}

// isAbbreviation reports whether the '.' at i belongs to an abbreviation,
// an initial such as the "J." in "J. K. Rowling", or a word like "example.com".
func isAbbreviation(runes []rune, i int) bool {
	if runes[i] != '.' {
		return false
	}
	if i+1 < len(runes) && unicode.IsLetter(runes[i+1]) {
		return true
	}

	start := wordStart(runes, i)
	word := strings.TrimLeftFunc(string(runes[start:i]), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if word == "" {
		return false
	}

	lower := strings.ToLower(word)
	if abbreviations[lower] || isDotted(lower) {
		return true
	}
	if isInitial(word) {
		return isInitialWithDot(nextWord(runes, i)) || isInitialWithDot(prevWord(runes, start))
	}
	return false
}

// isDotted matches short dotted forms such as "u.s" or "ph.d" whose parts
// are one or two letters.
func isDotted(w string) bool {
	if !strings.Contains(w, ".") {
		return false
	}
	for _, part := range strings.Split(w, ".") {
		n := len([]rune(part))
		if n == 0 || n > 2 || strings.IndexFunc(part, func(r rune) bool { return !unicode.IsLetter(r) }) >= 0 {
			return false
		}
	}
	return true
}

func isInitial(w string) bool {
	r := []rune(w)
	return len(r) == 1 && unicode.IsUpper(r[0])
}

func isInitialWithDot(w string) bool {
	return strings.HasSuffix(w, ".") && isInitial(strings.TrimSuffix(w, "."))
}

// wordStart returns the index of the first rune of the word ending at i.
func wordStart(runes []rune, i int) int {
	start := i
	for start > 0 && !unicode.IsSpace(runes[start-1]) {
		start--
	}
	return start
}

// nextWord returns the whitespace-delimited word after position i.
func nextWord(runes []rune, i int) string {
	j := i + 1
	for j < len(runes) && unicode.IsSpace(runes[j]) {
		j++
	}
	k := j
	for k < len(runes) && !unicode.IsSpace(runes[k]) {
		k++
	}
	return string(runes[j:k])
}

// prevWord returns the whitespace-delimited word ending before start.
func prevWord(runes []rune, start int) string {
	j := start
	for j > 0 && unicode.IsSpace(runes[j-1]) {
		j--
	}
	if j == start && start > 0 {
		return ""
	}
	return string(runes[wordStart(runes, max(j-1, 0)):j])
}
