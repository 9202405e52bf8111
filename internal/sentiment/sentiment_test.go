package sentiment

import (
	"context"
	"strings"
	"testing"

	"github.com/spacesedan/sentiscope/internal/models"
	"github.com/spacesedan/sentiscope/internal/nlp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDemoAnalyzer() *nlp.Analyzer {
	router := nlp.NewRouter(nlp.NewPipelineCache(NewDemoBackend(), nil), nil)
	return nlp.NewAnalyzer(nlp.NewInProcess(router), nil)
}

func TestConvertMarkdownToText(t *testing.T) {
	in := "**Great** read, see [the post](https://example.com/post) or www.example.com\n\n> quoted & done"
	assert.Equal(t, "Great read, see the post or quoted & done", ConvertMarkdownToText(in))
}

func TestDemo_SentimentExample(t *testing.T) {
	a := newDemoAnalyzer()

	classes, err := a.AnalyzeSentiment(context.Background(), "I absolutely loved this movie!")
	require.NoError(t, err)
	require.Len(t, classes, 2)

	assert.Equal(t, "POSITIVE", classes[0].Label)
	assert.Greater(t, classes[0].Score, 0.5)
	assert.Equal(t, "NEGATIVE", classes[1].Label)
	assert.InDelta(t, 1-classes[0].Score, classes[1].Score, 1e-9)
}

func TestDemo_SentimentAlwaysTwoEntriesSummingToOne(t *testing.T) {
	a := newDemoAnalyzer()
	for _, text := range []string{
		"This is terrible and I hate it.",
		"The meeting is at noon.",
		"",
		"Best. Day. Ever!!!",
	} {
		classes, err := a.AnalyzeSentiment(context.Background(), text)
		require.NoError(t, err, text)
		require.Len(t, classes, 2, text)
		assert.InDelta(t, 1.0, classes[0].Score+classes[1].Score, 1e-9, text)
		assert.GreaterOrEqual(t, classes[0].Score, classes[1].Score, text)
	}
}

func TestDemo_EmotionExample(t *testing.T) {
	a := newDemoAnalyzer()

	classes, err := a.DetectEmotion(context.Background(), "I am furious about this delay")
	require.NoError(t, err)
	require.NotEmpty(t, classes)
	assert.LessOrEqual(t, len(classes), nlp.MaxEmotions)
	assert.Equal(t, "anger", classes[0].Label)

	for i := 1; i < len(classes); i++ {
		assert.GreaterOrEqual(t, classes[i-1].Score, classes[i].Score)
	}
}

func TestDemo_EmotionWithoutVocabularyIsNeutral(t *testing.T) {
	classes := ScoreEmotions("The train departs at seven.")
	var top models.Classification
	for _, c := range classes {
		if c.Score > top.Score {
			top = c
		}
	}
	assert.Equal(t, "neutral", top.Label)
	assert.InDelta(t, 1.0, top.Score, 1e-9)
}

func TestDemo_SummaryExample(t *testing.T) {
	a := newDemoAnalyzer()
	paragraph := "The city council met on Tuesday to discuss the new transit plan. " +
		"Council members debated the cost of the transit plan for several hours. " +
		"Residents voiced concerns about construction noise. " +
		"In the end the council approved the transit plan by a narrow vote. " +
		"Work is expected to begin next spring."

	summary, err := a.SummarizeText(context.Background(), paragraph)
	require.NoError(t, err)
	assert.NotEmpty(t, summary)
	assert.Less(t, len(summary), len(paragraph))
	assert.False(t, strings.HasPrefix(summary, "{"))
}

func TestSummarize_SingleSentenceAndEmpty(t *testing.T) {
	assert.Equal(t, "Just one sentence here.", Summarize("Just one sentence here."))
	assert.Equal(t, "", Summarize("   "))
}

func TestDemo_ResultsAreMarkedDegraded(t *testing.T) {
	a := newDemoAnalyzer()
	for _, task := range models.Tasks {
		res, err := a.Analyze(context.Background(), task, "What a lovely surprise. Truly.")
		require.NoError(t, err)
		assert.True(t, res.Degraded, task)
		assert.Equal(t, models.SourceDemo, res.Source, task)
	}
}

func TestDemoBackend_RejectsUnknownTask(t *testing.T) {
	_, err := NewDemoBackend().NewPipeline(context.Background(), models.Task("translate"))
	assert.ErrorIs(t, err, nlp.ErrUnknownTask)
}
