package suggest

import (
	"strings"
	"unicode"
)

// SetMetric computes a [0,1] similarity between two sets. Both gene overlap
// metrics below satisfy it; the engine takes one as its pluggable strategy.
type SetMetric func(a, b map[string]struct{}) float64

// Jaccard returns |a∩b| / |a∪b|, 0 when either set is empty.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	inter := intersection(a, b)
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0.0
	}
	return float64(inter) / float64(union)
}

// OverlapCoefficient returns |a∩b| / min(|a|,|b|), 0 when either set is
// empty.
func OverlapCoefficient(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	inter := intersection(a, b)
	smaller := len(a)
	if len(b) < smaller {
		smaller = len(b)
	}
	return float64(inter) / float64(smaller)
}

func intersection(a, b map[string]struct{}) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	count := 0
	for k := range a {
		if _, ok := b[k]; ok {
			count++
		}
	}
	return count
}

// GeneSet normalizes a gene identifier list into a set. Identifiers are
// upper-cased so HGNC symbols compare case-insensitively.
func GeneSet(genes []string) map[string]struct{} {
	set := make(map[string]struct{}, len(genes))
	for _, g := range genes {
		g = strings.ToUpper(strings.TrimSpace(g))
		if g != "" {
			set[g] = struct{}{}
		}
	}
	return set
}

// stopwords are common English words excluded from text similarity.
var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true,
	"was": true, "were": true, "be": true, "been": true, "being": true,
	"and": true, "or": true, "but": true, "if": true, "then": true,
	"than": true, "so": true, "as": true, "at": true, "by": true,
	"for": true, "from": true, "in": true, "into": true, "of": true,
	"on": true, "to": true, "with": true, "via": true, "it": true,
	"its": true, "this": true, "that": true, "which": true, "such": true,
	"also": true, "other": true, "any": true, "may": true, "can": true,
}

// Tokenize splits text into a set of unique lowercase non-stopword tokens.
// Single-character tokens are dropped.
func Tokenize(text string) map[string]struct{} {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := make(map[string]struct{}, len(words))
	for _, w := range words {
		if len(w) < 2 || stopwords[w] {
			continue
		}
		tokens[w] = struct{}{}
	}
	return tokens
}
