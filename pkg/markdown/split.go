package markdown

import (
	"unicode"
	"unicode/utf16"
)

// Length returns the size of text as Telegram counts it, in UTF-16 code units.
func Length(text string) int {
	n := 0
	for _, r := range text {
		n += runeUnits(r)
	}
	return n
}

// Split breaks text into chunks of at most maxLength UTF-16 units. It cuts at
// the rightmost space or line break that keeps the chunk within the limit,
// dropping that character and any whitespace that follows. Without one the text
// is cut at the limit, moved back one rune if that would separate an escape
// backslash from the character it escapes.
func Split(text string, maxLength int) []string {
	if maxLength < 1 {
		maxLength = 1
	}
	if Length(text) <= maxLength {
		return []string{text}
	}

	runes := []rune(text)
	var chunks []string
	for {
		fit := fitRunes(runes, maxLength)
		if fit == len(runes) {
			break
		}

		if idx := lastBreak(runes, fit); idx > 0 {
			chunks = append(chunks, string(runes[:idx]))
			runes = runes[idx+1:]
		} else {
			idx = forcedCut(runes, fit)
			chunks = append(chunks, string(runes[:idx]))
			runes = runes[idx:]
		}
		runes = trimLeftSpace(runes)
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}

	return chunks
}

// fitRunes returns how many leading runes fit in limit units.
func fitRunes(runes []rune, limit int) int {
	used := 0
	for i, r := range runes {
		used += runeUnits(r)
		if used > limit {
			return i
		}
	}
	return len(runes)
}

// lastBreak returns the index of the rightmost ' ' or '\n' at or before limit, or -1.
func lastBreak(runes []rune, limit int) int {
	if limit > len(runes)-1 {
		limit = len(runes) - 1
	}
	for i := limit; i >= 0; i-- {
		if runes[i] == ' ' || runes[i] == '\n' {
			return i
		}
	}
	return -1
}

func forcedCut(runes []rune, limit int) int {
	if limit < 1 {
		// a single rune wider than the limit still has to go somewhere
		return 1
	}
	trailing := 0
	for i := limit - 1; i >= 0 && runes[i] == '\\'; i-- {
		trailing++
	}
	if trailing%2 == 1 && limit > 1 {
		return limit - 1
	}
	return limit
}

func trimLeftSpace(runes []rune) []rune {
	i := 0
	for i < len(runes) && unicode.IsSpace(runes[i]) {
		i++
	}
	return runes[i:]
}

func runeUnits(r rune) int {
	if r1, _ := utf16.EncodeRune(r); r1 != unicode.ReplacementChar {
		return 2
	}
	return 1
}
