package builtin

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Clean trims surrounding whitespace and folds the mis-decoded non-breaking
// space ("Â ") that shows up in Latin-1 exports. Blank input becomes nil.
func Clean(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.ReplaceAll(*v, "\u00c2\u00a0", " ")
	s = strings.TrimSpace(strings.ReplaceAll(s, "\u00a0", " "))
	if s == "" {
		return nil
	}
	return &s
}

// TitleCase returns v in title case ("sao paulo" -> "Sao Paulo"), or nil
// when v is absent. Every letter that follows a non-letter starts a word,
// so "d'oeste" becomes "D'Oeste".
func TitleCase(v *string) *string {
	c := Clean(v)
	if c == nil {
		return nil
	}
	// A Caser keeps state between calls, so each call gets its own.
	s := wordStarts(cases.Title(language.Und).String(*c))
	return &s
}

// wordStarts upper-cases each letter preceded by a non-letter. cases.Title
// keeps apostrophes inside a word.
func wordStarts(s string) string {
	rs := []rune(s)
	prevLetter := false
	for i, r := range rs {
		isLetter := unicode.IsLetter(r)
		if isLetter && !prevLetter {
			rs[i] = unicode.ToTitle(r)
		}
		prevLetter = isLetter
	}
	return string(rs)
}

// UpperCase returns v upper-cased, or nil when v is absent.
func UpperCase(v *string) *string {
	c := Clean(v)
	if c == nil {
		return nil
	}
	s := cases.Upper(language.Und).String(*c)
	return &s
}
