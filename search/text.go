package search

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// fillers are dropped before comparing words. Spanish first, since that is
// the catalog language; English for mixed queries.
var fillers = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`
		el la los las un una unos unas de del y o en con para por que sin al
		the a an of and in for with to on`) {
		fillers[w] = struct{}{}
	}
}

// words folds text to lowercase, accent-free words and drops fillers, so
// "Pantalón" and "pantalon" compare equal.
func words(text string) []string {
	var b strings.Builder
	for _, r := range norm.NFD.String(text) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	fields := strings.FieldsFunc(b.String(), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if _, skip := fillers[f]; !skip {
			out = append(out, f)
		}
	}
	return out
}

// containsAllQueryWords reports whether every significant query word
// appears in document. A query made only of fillers matches nothing.
func containsAllQueryWords(document, query string) bool {
	want := words(query)
	if len(want) == 0 {
		return false
	}
	have := make(map[string]struct{})
	for _, w := range words(document) {
		have[w] = struct{}{}
	}
	for _, w := range want {
		if _, ok := have[w]; !ok {
			return false
		}
	}
	return true
}
