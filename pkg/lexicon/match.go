package lexicon

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Normalize lowercases text and collapses all whitespace runs to a single space.
func Normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// Contains reports whether phrase occurs in text on word boundaries.
// Both arguments are compared case-sensitively; callers pass normalized text.
// Boundaries are only enforced on phrase edges that are letters or digits,
// so punctuation phrases such as "?" match anywhere.
func Contains(text, phrase string) bool {
	return Index(text, phrase) >= 0
}

// Index returns the byte offset of the first boundary-respecting match of phrase, or -1.
func Index(text, phrase string) int {
	if phrase == "" {
		return -1
	}
	first, _ := utf8.DecodeRuneInString(phrase)
	last, _ := utf8.DecodeLastRuneInString(phrase)
	checkLeft, checkRight := isWord(first), isWord(last)

	for from := 0; from <= len(text)-len(phrase); {
		i := strings.Index(text[from:], phrase)
		if i < 0 {
			return -1
		}
		start := from + i
		end := start + len(phrase)
		okLeft := !checkLeft || start == 0 || !isWord(lastRune(text[:start]))
		okRight := !checkRight || end == len(text) || !isWord(firstRune(text[end:]))
		if okLeft && okRight {
			return start
		}
		_, size := utf8.DecodeRuneInString(text[start:])
		from = start + size
	}
	return -1
}

// ContainsAny reports whether any phrase matches.
func ContainsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if Contains(text, p) {
			return true
		}
	}
	return false
}

// ContainsSubstring reports whether any phrase occurs anywhere in text,
// including inside a longer word, so "blister" matches "blistering".
func ContainsSubstring(text string, phrases []string) bool {
	for _, p := range phrases {
		if p != "" && strings.Contains(text, p) {
			return true
		}
	}
	return false
}

// Hits returns the phrases that match, in the order given, without duplicates.
func Hits(text string, phrases []string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, p := range phrases {
		if _, dup := seen[p]; dup {
			continue
		}
		if Contains(text, p) {
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

func isWord(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\''
}

func firstRune(s string) rune {
	r, _ := utf8.DecodeRuneInString(s)
	return r
}

func lastRune(s string) rune {
	r, _ := utf8.DecodeLastRuneInString(s)
	return r
}
