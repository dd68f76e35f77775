package gloss

import (
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// umlauts are dropped, not transliterated, by ASCII.
var umlauts = runes.Predicate(func(r rune) bool {
	return r == 'ä' || r == 'ö' || r == 'ü'
})

// ASCII strips the lower case umlauts from a gloss. The input is composed
// first so that file names stored in decomposed form strip the same way.
// ASCII(ASCII(s)) == ASCII(s) for every s.
func ASCII(s string) string {
	for {
		// Removing a rune can leave a combining mark next to a new base,
		// which composes into another umlaut. Repeat until nothing changes.
		res, _, err := transform.String(transform.Chain(norm.NFC, runes.Remove(umlauts)), s)
		if err != nil || res == s {
			return s
		}
		s = res
	}
}
