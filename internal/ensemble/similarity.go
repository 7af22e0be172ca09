package ensemble

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

// blankLines matches a paragraph break: a newline followed by at least one
// line holding only whitespace
var blankLines = regexp.MustCompile(`\n(?:[ \t\r\f\v]*\n)+`)

// segment is one paragraph of a producer's text
type segment struct {
	text  string
	start int
	end   int
	words map[string]struct{}
}

// splitSegments cuts text into trimmed paragraphs, keeping their byte offsets
func splitSegments(text string) []segment {
	var out []segment
	cursor := 0
	bounds := append(blankLines.FindAllStringIndex(text, -1), []int{len(text), len(text)})
	for _, b := range bounds {
		if s, ok := trimmed(text, cursor, b[0]); ok {
			out = append(out, s)
		}
		cursor = b[1]
	}
	return out
}

func trimmed(text string, start, end int) (segment, bool) {
	chunk := text[start:end]
	lead := len(chunk) - len(strings.TrimLeftFunc(chunk, unicode.IsSpace))
	chunk = strings.TrimSpace(chunk)
	if chunk == "" {
		return segment{}, false
	}
	start += lead
	return segment{
		text:  chunk,
		start: start,
		end:   start + len(chunk),
		words: wordSet(chunk),
	}, true
}

// wordSet case-folds s and collects its whitespace-separated words
func wordSet(s string) map[string]struct{} {
	folded := cases.Fold().String(s)
	set := make(map[string]struct{})
	for _, w := range strings.Fields(folded) {
		set[w] = struct{}{}
	}
	return set
}

// jaccard is |a ∩ b| / |a ∪ b|; two empty sets are identical
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	inter := 0
	for w := range small {
		if _, ok := large[w]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// Similarity is the case-folded, whitespace-collapsed Jaccard similarity of
// the word sets of a and b
func Similarity(a, b string) float64 {
	return jaccard(wordSet(a), wordSet(b))
}
