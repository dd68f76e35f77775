package gloss

import (
	"iter"
	"regexp"
	"strconv"
	"strings"
)

// idRun matches an identifier embedded in a gloss or directory name.
var idRun = regexp.MustCompile(`\d{3,5}`)

// Resolver produces candidate lexicon identifiers for a free text name.
type Resolver struct {
	Lexicon *Lexicon
}

// NewResolver returns a resolver backed by the given lexicon.
func NewResolver(lex *Lexicon) *Resolver {
	if lex == nil {
		lex = NewLexicon()
	}
	return &Resolver{Lexicon: lex}
}

// IDs yields the candidate identifiers of name in the order they are
// tried:
//
//  1. every run of 3 to 5 digits, left to right;
//  2. the lexicon entry of the lower cased name, or of its stripped form;
//  3. the same lookup for the name with hyphens turned into underscores
//     and an "a" appended.
//
// Candidates are neither deduplicated nor ranked. An empty sequence means
// the name is unknown.
func (r *Resolver) IDs(name string) iter.Seq[int] {
	return func(yield func(int) bool) {
		for _, run := range idRun.FindAllString(name, -1) {
			id, err := strconv.Atoi(run)
			if err != nil {
				continue
			}
			if !yield(id) {
				return
			}
		}

		lower := strings.ToLower(name)
		if id, ok := r.lookup(lower); ok {
			if !yield(id) {
				return
			}
		}

		variant := strings.ReplaceAll(lower, "-", "_") + "a"
		if id, ok := r.lookup(variant); ok {
			yield(id)
		}
	}
}

// lookup tries the key verbatim, then stripped.
func (r *Resolver) lookup(key string) (int, bool) {
	if id, ok := r.Lexicon.Lookup(key); ok {
		return id, true
	}
	return r.Lexicon.Lookup(ASCII(key))
}
