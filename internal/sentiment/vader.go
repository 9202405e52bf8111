package sentiment

import (
	"html"
	"regexp"
	"strings"

	"github.com/jonreiter/govader"
	"github.com/russross/blackfriday/v2"
	"github.com/spacesedan/sentiscope/internal/models"
)

var (
	linkPattern = regexp.MustCompile(`\[(.*?)\]\((https?:\/\/[^\s\)]+)\)`)
	urlPattern  = regexp.MustCompile(`https?://\S+|www\.\S+`)
	tagPattern  = regexp.MustCompile(`<[^>]*>`)
)

func RemoveLinks(input string) string {
	input = linkPattern.ReplaceAllString(input, "$1") // keep only the text
	return urlPattern.ReplaceAllString(input, "")
}

// ConvertMarkdownToText renders markdown and flattens it to a single line of
// plain text.
func ConvertMarkdownToText(input string) string {
	rendered := blackfriday.Run([]byte(RemoveLinks(input)), blackfriday.WithNoExtensions())
	plain := html.UnescapeString(tagPattern.ReplaceAllString(string(rendered), " "))
	return strings.Join(strings.Fields(plain), " ")
}

type vaderScorer struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

func newVaderScorer() *vaderScorer {
	return &vaderScorer{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

// Score maps the VADER compound score in [-1, 1] onto a positive-class
// probability and reports the winning label only, the way a binary
// classifier checkpoint does.
func (v *vaderScorer) Score(text string) models.Classification {
	compound := v.analyzer.PolarityScores(ConvertMarkdownToText(text)).Compound
	positive := (compound + 1) / 2
	if positive >= 0.5 {
		return models.Classification{Label: "POSITIVE", Score: positive}
	}
	return models.Classification{Label: "NEGATIVE", Score: 1 - positive}
}
