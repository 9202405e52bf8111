package nlp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/spacesedan/sentiscope/internal/models"
)

const (
	LabelPositive = "POSITIVE"
	LabelNegative = "NEGATIVE"
	LabelNeutral  = "NEUTRAL"

	MaxEmotions = 5
)

// Normalize reshapes raw backend output into the result contract for task.
// It either returns a complete result or an error wrapping ErrMalformedResult
// (or ErrUnknownTask); partial results are never returned.
func Normalize(task models.Task, raw models.RawOutput) (models.Result, error) {
	if !task.Valid() {
		return models.Result{}, fmt.Errorf("%w: %q", ErrUnknownTask, task)
	}
	if raw.Task != "" && raw.Task != task {
		return models.Result{}, malformed("output is for task %q, expected %q", raw.Task, task)
	}

	result := models.Result{Task: task, Source: raw.Source, Degraded: raw.Source == models.SourceDemo}
	switch task {
	case models.TaskSentiment:
		classes, err := normalizeSentiment(raw.Classes)
		if err != nil {
			return models.Result{}, err
		}
		result.Classes = classes
	case models.TaskEmotion:
		classes, err := normalizeEmotion(raw.Classes)
		if err != nil {
			return models.Result{}, err
		}
		result.Classes = classes
	case models.TaskSummary:
		if raw.Summary == nil {
			return models.Result{}, malformed("summary output has no text")
		}
		result.Summary = *raw.Summary
	}
	return result, nil
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedResult, fmt.Sprintf(format, args...))
}

func validateClasses(classes []models.Classification) ([]models.Classification, error) {
	if len(classes) == 0 {
		return nil, malformed("no classes in output")
	}
	out := make([]models.Classification, len(classes))
	for i, c := range classes {
		label := strings.TrimSpace(c.Label)
		if label == "" {
			return nil, malformed("class %d has no label", i)
		}
		if math.IsNaN(c.Score) || c.Score < 0 || c.Score > 1 {
			return nil, malformed("class %q has score %v outside [0,1]", label, c.Score)
		}
		out[i] = models.Classification{Label: label, Score: c.Score}
	}
	return out, nil
}

func sortByScore(classes []models.Classification) {
	sort.SliceStable(classes, func(i, j int) bool {
		return classes[i].Score > classes[j].Score
	})
}

// sentimentLabels maps the label spellings used by common sentiment
// checkpoints onto POSITIVE/NEGATIVE/NEUTRAL. Generic LABEL_n ids are read as
// negative/positive for binary heads and negative/neutral/positive once
// LABEL_2 is present.
func sentimentLabels(classes []models.Classification) error {
	threeWay := false
	for _, c := range classes {
		switch l := strings.ToUpper(c.Label); {
		case l == "LABEL_2":
			threeWay = true
		case strings.HasPrefix(l, "LABEL_") && l != "LABEL_0" && l != "LABEL_1":
			return malformed("sentiment label %q is not a known class id", c.Label)
		}
	}

	for i := range classes {
		switch l := strings.ToUpper(classes[i].Label); l {
		case "LABEL_0", "NEG":
			classes[i].Label = LabelNegative
		case "LABEL_1":
			if threeWay {
				classes[i].Label = LabelNeutral
			} else {
				classes[i].Label = LabelPositive
			}
		case "LABEL_2", "POS":
			classes[i].Label = LabelPositive
		case "NEU":
			classes[i].Label = LabelNeutral
		default:
			classes[i].Label = l
		}
	}
	return nil
}

func complement(label string) (string, bool) {
	switch label {
	case LabelPositive:
		return LabelNegative, true
	case LabelNegative:
		return LabelPositive, true
	default:
		return "", false
	}
}

func normalizeSentiment(raw []models.Classification) ([]models.Classification, error) {
	classes, err := validateClasses(raw)
	if err != nil {
		return nil, err
	}
	if err := sentimentLabels(classes); err != nil {
		return nil, err
	}

	if len(classes) == 1 {
		top := classes[0]
		other, ok := complement(top.Label)
		if !ok {
			return nil, malformed("sentiment label %q has no binary complement", top.Label)
		}
		pair := []models.Classification{top, {Label: other, Score: 1 - top.Score}}
		sortByScore(pair)
		return pair, nil
	}

	pos, neg := -1, -1
	for i, c := range classes {
		switch c.Label {
		case LabelPositive:
			if pos >= 0 {
				return nil, malformed("duplicate %s label", LabelPositive)
			}
			pos = i
		case LabelNegative:
			if neg >= 0 {
				return nil, malformed("duplicate %s label", LabelNegative)
			}
			neg = i
		}
	}
	if pos < 0 || neg < 0 {
		return nil, malformed("sentiment output lacks a %s/%s pair", LabelPositive, LabelNegative)
	}

	pair := []models.Classification{classes[pos], classes[neg]}
	if len(classes) > 2 {
		// Three-way checkpoints spread mass over NEUTRAL; fold the binary pair
		// back onto the unit interval.
		total := pair[0].Score + pair[1].Score
		if total == 0 {
			return nil, malformed("sentiment output has zero binary mass")
		}
		pair[0].Score /= total
		pair[1].Score /= total
	}
	sortByScore(pair)
	return pair, nil
}

func normalizeEmotion(raw []models.Classification) ([]models.Classification, error) {
	classes, err := validateClasses(raw)
	if err != nil {
		return nil, err
	}
	for i := range classes {
		classes[i].Label = strings.ToLower(classes[i].Label)
	}
	sortByScore(classes)
	if len(classes) > MaxEmotions {
		classes = classes[:MaxEmotions]
	}
	return classes, nil
}

type wireClass struct {
	Label *string  `json:"label"`
	Score *float64 `json:"score"`
}

func (w wireClass) classification(i int) (models.Classification, error) {
	if w.Label == nil || w.Score == nil {
		return models.Classification{}, malformed("class %d is missing label or score", i)
	}
	return models.Classification{Label: *w.Label, Score: *w.Score}, nil
}

// DecodeRawOutput parses the JSON shapes inference services emit for task
// into the tagged RawOutput form:
//
//	sentiment/emotion: {"label","score"} | [{...}] | [[{...}]] | {"classes":[...]}
//	summary:           "text" | {"summary_text"} | [{"summary_text"}] | {"summary"}
func DecodeRawOutput(task models.Task, data []byte) (models.RawOutput, error) {
	if !task.Valid() {
		return models.RawOutput{}, fmt.Errorf("%w: %q", ErrUnknownTask, task)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return models.RawOutput{}, malformed("empty %s output", task)
	}

	if task == models.TaskSummary {
		return decodeSummary(data)
	}
	classes, source, err := decodeClasses(data)
	if err != nil {
		return models.RawOutput{}, err
	}
	raw := models.ClassesOutput(task, classes...)
	raw.Source = source
	return raw, nil
}

func decodeClasses(data []byte) ([]models.Classification, string, error) {
	var wire []wireClass
	var source string

	switch data[0] {
	case '{':
		var obj struct {
			wireClass
			Classes []wireClass `json:"classes"`
			Source  string      `json:"source"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return nil, "", malformed("decode classification: %v", err)
		}
		source = obj.Source
		if obj.Classes != nil {
			wire = obj.Classes
		} else {
			wire = []wireClass{obj.wireClass}
		}
	case '[':
		var nested [][]wireClass
		if err := json.Unmarshal(data, &nested); err == nil && len(nested) > 0 {
			wire = nested[0]
			break
		}
		if err := json.Unmarshal(data, &wire); err != nil {
			return nil, "", malformed("decode classification list: %v", err)
		}
	default:
		return nil, "", malformed("unexpected classification payload %q", preview(data))
	}

	classes := make([]models.Classification, 0, len(wire))
	for i, w := range wire {
		c, err := w.classification(i)
		if err != nil {
			return nil, "", err
		}
		classes = append(classes, c)
	}
	return classes, source, nil
}

type wireSummary struct {
	SummaryText *string `json:"summary_text"`
	Summary     *string `json:"summary"`
	Source      string  `json:"source"`
}

func (w wireSummary) text() *string {
	if w.SummaryText != nil {
		return w.SummaryText
	}
	return w.Summary
}

func decodeSummary(data []byte) (models.RawOutput, error) {
	var text *string
	var source string

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return models.RawOutput{}, malformed("decode summary: %v", err)
		}
		text = &s
	case '{':
		var w wireSummary
		if err := json.Unmarshal(data, &w); err != nil {
			return models.RawOutput{}, malformed("decode summary: %v", err)
		}
		text, source = w.text(), w.Source
	case '[':
		var list []wireSummary
		if err := json.Unmarshal(data, &list); err != nil {
			return models.RawOutput{}, malformed("decode summary list: %v", err)
		}
		if len(list) > 0 {
			text = list[0].text()
		}
	default:
		return models.RawOutput{}, malformed("unexpected summary payload %q", preview(data))
	}

	if text == nil {
		return models.RawOutput{}, malformed("summary output has no text")
	}
	return models.RawOutput{Task: models.TaskSummary, Summary: text, Source: source}, nil
}

func preview(data []byte) string {
	if len(data) > 50 {
		return string(data[:50])
	}
	return string(data)
}
