package imagery

import (
	"strings"
	"unicode"
)

// Keyword extraction bounds for diagram labels.
const (
	MinKeywords = 4
	MaxKeywords = 6
)

var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "of": true, "to": true,
	"in": true, "on": true, "for": true, "with": true, "by": true, "from": true, "at": true,
	"is": true, "are": true, "be": true, "as": true, "that": true, "this": true, "these": true,
	"it": true, "its": true, "into": true, "showing": true, "show": true, "shows": true,
	"diagram": true, "image": true, "illustration": true, "picture": true, "style": true,
	"clean": true, "simple": true, "professional": true, "modern": true, "using": true,
	"및": true, "의": true, "를": true, "을": true, "이": true, "가": true, "에": true, "와": true, "과": true,
}

// defaultLabels pad diagrams whose prompt yields too few keywords.
var defaultLabels = []string{"input", "process", "output", "result", "review", "growth"}

// ExtractKeywords returns between MinKeywords and MaxKeywords salient words
// from prompt in order of first appearance. Stopwords, single characters and
// pure numbers are skipped; short results are padded with generic labels.
func ExtractKeywords(prompt string) []string {
	words := strings.FieldsFunc(strings.ToLower(prompt), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '-'
	})

	seen := make(map[string]bool)
	var out []string
	for _, w := range words {
		w = strings.Trim(w, "-")
		if len([]rune(w)) < 2 || stopwords[w] || isNumber(w) || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
		if len(out) == MaxKeywords {
			return out
		}
	}
	for _, d := range defaultLabels {
		if len(out) >= MinKeywords {
			break
		}
		if !seen[d] {
			out = append(out, d)
		}
	}
	return out
}

func isNumber(w string) bool {
	for _, r := range w {
		if !unicode.IsDigit(r) && r != '.' && r != ',' && r != '%' {
			return false
		}
	}
	return true
}
