package sentiment

import (
	"strings"
	"unicode"

	"github.com/spacesedan/sentiscope/internal/models"
)

// neutralWeight is the baseline mass for "neutral" so that text without
// emotional vocabulary still yields a distribution.
const neutralWeight = 0.5

// Stems are matched as word prefixes: "furi" covers furious and furiously.
var emotionLexicon = map[string][]string{
	"anger":    {"anger", "angr", "furi", "fury", "rage", "annoy", "irritat", "outrag", "livid", "hate", "frustrat"},
	"disgust":  {"disgust", "gross", "revolt", "nause", "repuls", "vile", "sicken", "yuck"},
	"fear":     {"fear", "afraid", "scare", "scari", "terrif", "anxi", "worr", "panic", "dread", "nervous"},
	"joy":      {"joy", "happ", "love", "lovi", "delight", "glad", "great", "wonderful", "excit", "enjoy", "amaz"},
	"sadness":  {"sad", "unhapp", "depress", "miser", "cried", "crying", "grief", "griev", "lonel", "heartbr", "disappoint"},
	"surprise": {"surpris", "shock", "astonish", "unexpect", "wow", "stun", "sudden"},
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
}

// ScoreEmotions counts lexicon hits per emotion and returns every emotion with
// its share of the total mass, in no particular order.
func ScoreEmotions(text string) []models.Classification {
	weights := map[string]float64{"neutral": neutralWeight}
	for _, word := range tokenize(ConvertMarkdownToText(text)) {
		for emotion, stems := range emotionLexicon {
			for _, stem := range stems {
				if strings.HasPrefix(word, stem) {
					weights[emotion]++
					break
				}
			}
		}
	}

	var total float64
	for _, w := range weights {
		total += w
	}

	classes := make([]models.Classification, 0, len(emotionLexicon)+1)
	classes = append(classes, models.Classification{Label: "neutral", Score: weights["neutral"] / total})
	for emotion := range emotionLexicon {
		classes = append(classes, models.Classification{Label: emotion, Score: weights[emotion] / total})
	}
	return classes
}
