package sentiment

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

var sentenceEnd = regexp.MustCompile(`[.!?]+["')\]]*\s+`)

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "but": {}, "of": {}, "to": {},
	"in": {}, "on": {}, "at": {}, "for": {}, "with": {}, "is": {}, "are": {}, "was": {},
	"were": {}, "be": {}, "been": {}, "it": {}, "its": {}, "this": {}, "that": {},
	"as": {}, "by": {}, "from": {}, "i": {}, "we": {}, "you": {}, "they": {}, "he": {},
	"she": {}, "has": {}, "have": {}, "had": {}, "not": {}, "so": {},
}

func splitSentences(text string) []string {
	var sentences []string
	last := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(text, -1) {
		if s := strings.TrimSpace(text[last:loc[1]]); s != "" {
			sentences = append(sentences, s)
		}
		last = loc[1]
	}
	if s := strings.TrimSpace(text[last:]); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// Summarize extracts the highest scoring sentences by content-word frequency,
// keeping roughly a third of them in their original order. Multi-sentence
// input always loses at least one sentence.
func Summarize(text string) string {
	plain := ConvertMarkdownToText(text)
	sentences := splitSentences(plain)
	if len(sentences) <= 1 {
		return plain
	}

	freq := make(map[string]float64)
	for _, word := range tokenize(plain) {
		if _, stop := stopWords[word]; !stop {
			freq[word]++
		}
	}

	type scored struct {
		index int
		score float64
	}
	ranked := make([]scored, len(sentences))
	for i, s := range sentences {
		words := tokenize(s)
		var sum float64
		for _, w := range words {
			sum += freq[w]
		}
		if len(words) > 0 {
			sum /= math.Sqrt(float64(len(words)))
		}
		// slight lead bias, news-style
		if i == 0 {
			sum *= 1.2
		}
		ranked[i] = scored{index: i, score: sum}
	}
	sort.SliceStable(ranked, func(a, b int) bool { return ranked[a].score > ranked[b].score })

	keep := int(math.Ceil(float64(len(sentences)) / 3))
	keep = min(keep, len(sentences)-1)
	chosen := ranked[:keep]
	sort.Slice(chosen, func(a, b int) bool { return chosen[a].index < chosen[b].index })

	parts := make([]string, len(chosen))
	for i, c := range chosen {
		parts[i] = sentences[c.index]
	}
	return strings.Join(parts, " ")
}
