package board

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/BaSui01/visionboard/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"
)

func TestParseEvaluation_WellFormed(t *testing.T) {
	in := "SCORE: 8\nFEEDBACK: ok\nIMPROVEMENTS: none"
	want := types.EvaluationResult{Score: 8, Feedback: "ok", Improvements: "none"}

	assert.Equal(t, want, ParseEvaluation(in))
	assert.Equal(t, ParseEvaluation(in), ParseEvaluation(in))
}

func TestParseEvaluation_Cases(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want types.EvaluationResult
	}{
		{
			name: "missing score",
			in:   "The board looks nice overall.",
			want: types.EvaluationResult{Score: 5, Feedback: DefaultParsedFeedback},
		},
		{
			name: "malformed score",
			in:   "SCORE: eight\nFEEDBACK: good",
			want: types.EvaluationResult{Score: 5, Feedback: "good"},
		},
		{
			name: "score above range clamped",
			in:   "SCORE: 42\nFEEDBACK: wow",
			want: types.EvaluationResult{Score: 10, Feedback: "wow"},
		},
		{
			name: "negative score clamped",
			in:   "SCORE: -3\nFEEDBACK: bad",
			want: types.EvaluationResult{Score: 0, Feedback: "bad"},
		},
		{
			name: "overflowing score clamped",
			in:   "SCORE: 99999999999999999999999",
			want: types.EvaluationResult{Score: 10, Feedback: DefaultParsedFeedback},
		},
		{
			name: "score with denominator",
			in:   "Score: 7/10\nFeedback: solid\nImprovements: bigger title",
			want: types.EvaluationResult{Score: 7, Feedback: "solid", Improvements: "bigger title"},
		},
		{
			name: "markdown bold labels",
			in:   "**SCORE:** 9\n**FEEDBACK:** Strong imagery.\n**IMPROVEMENTS:** Add a date.",
			want: types.EvaluationResult{Score: 9, Feedback: "Strong imagery.", Improvements: "Add a date."},
		},
		{
			name: "multiline feedback stops at next label",
			in:   "FEEDBACK: line one\nline two\nSCORE: 6\nIMPROVEMENTS: a\nb",
			want: types.EvaluationResult{Score: 6, Feedback: "line one\nline two", Improvements: "a\nb"},
		},
		{
			name: "empty feedback uses default",
			in:   "SCORE: 4\nFEEDBACK:\nIMPROVEMENTS: everything",
			want: types.EvaluationResult{Score: 4, Feedback: DefaultParsedFeedback, Improvements: "everything"},
		},
		{
			name: "label words inside feedback prose",
			in:   "SCORE: 6\nFEEDBACK: The overall score: is held back by clutter.\nIMPROVEMENTS: fewer items",
			want: types.EvaluationResult{Score: 6, Feedback: "The overall score: is held back by clutter.", Improvements: "fewer items"},
		},
		{
			name: "inline score mention does not set score",
			in:   "FEEDBACK: a fair score: 9 would need more color\nSCORE: 4",
			want: types.EvaluationResult{Score: 4, Feedback: "a fair score: 9 would need more color"},
		},
		{
			name: "improvements: inside feedback sentence",
			in:   "SCORE: 8\nFEEDBACK: few improvements: needed\nIMPROVEMENTS: none",
			want: types.EvaluationResult{Score: 8, Feedback: "few improvements: needed", Improvements: "none"},
		},
		{
			name: "indented labels",
			in:   "  SCORE: 7\n  FEEDBACK: tidy\n  IMPROVEMENTS: none",
			want: types.EvaluationResult{Score: 7, Feedback: "tidy", Improvements: "none"},
		},
		{
			name: "empty input",
			in:   "",
			want: types.EvaluationResult{Score: 5, Feedback: DefaultParsedFeedback},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseEvaluation(tt.in))
		})
	}
}

func TestParseEvaluation_NeverPanicsAndScoreInRange(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		in := rapid.String().Draw(rt, "text")
		res := ParseEvaluation(in)
		if res.Score < 0 || res.Score > 10 {
			rt.Fatalf("score %d out of range for %q", res.Score, in)
		}
		if res.Feedback == "" {
			rt.Fatalf("feedback must never be empty")
		}
	})
}

func TestParseEvaluation_RoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		score := rapid.IntRange(0, 10).Draw(rt, "score")
		feedback := rapid.StringMatching(`[a-z][a-z ,.]{0,40}[a-z.]`).Draw(rt, "feedback")
		improvements := rapid.StringMatching(`[a-z][a-z ,.]{0,40}[a-z.]`).Draw(rt, "improvements")

		text := fmt.Sprintf("SCORE: %d\nFEEDBACK: %s\nIMPROVEMENTS: %s", score, feedback, improvements)
		got := ParseEvaluation(text)
		want := types.EvaluationResult{Score: score, Feedback: feedback, Improvements: improvements}
		if got != want {
			rt.Fatalf("got %+v, want %+v", got, want)
		}
	})
}

func TestRubricPrompt(t *testing.T) {
	got := RubricPrompt("a prompt", []string{"g1", "g2"})
	for _, want := range []string{"a prompt", "1. g1", "2. g2", "Goal representation", "Aesthetic quality",
		"Motivation factor", "Clarity", "Composition", "SCORE:", "FEEDBACK:", "IMPROVEMENTS:"} {
		assert.Contains(t, got, want)
	}
}

func TestQualityEvaluator_Evaluate(t *testing.T) {
	ev := &fakeEvaluator{responses: []string{"SCORE: 9\nFEEDBACK: great\nIMPROVEMENTS: none"}}
	q := NewQualityEvaluator(EvaluatorConfig{Evaluator: ev}, zap.NewNop())

	res := q.Evaluate(context.Background(), []byte("img"), "the prompt", []string{"goal"})
	assert.Equal(t, types.EvaluationResult{Score: 9, Feedback: "great", Improvements: "none"}, res)
	require.Len(t, ev.rubrics, 1)
	assert.True(t, strings.Contains(ev.rubrics[0], "the prompt"))
}

func TestQualityEvaluator_FailureUsesFallback(t *testing.T) {
	want := types.EvaluationResult{Score: 6, Feedback: "Automatic evaluation unavailable. Image generated successfully.", Improvements: ""}

	q := NewQualityEvaluator(EvaluatorConfig{Evaluator: &fakeEvaluator{err: errUpstream}}, nil)
	assert.Equal(t, want, q.Evaluate(context.Background(), []byte("img"), "p", []string{"g"}))

	unconfigured := NewQualityEvaluator(EvaluatorConfig{}, nil)
	assert.Equal(t, want, unconfigured.Evaluate(context.Background(), []byte("img"), "p", []string{"g"}))
}

type slowEvaluator struct{}

func (slowEvaluator) EvaluateImage(ctx context.Context, _ []byte, _ string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestQualityEvaluator_TimeoutUsesFallback(t *testing.T) {
	q := NewQualityEvaluator(EvaluatorConfig{Evaluator: slowEvaluator{}, Timeout: 10 * time.Millisecond}, nil)
	assert.Equal(t, FallbackEvaluation(), q.Evaluate(context.Background(), []byte("img"), "p", []string{"g"}))
}

func TestQualityEvaluator_EmptyResponseIsParsed(t *testing.T) {
	q := NewQualityEvaluator(EvaluatorConfig{Evaluator: &fakeEvaluator{responses: []string{""}}}, nil)
	res := q.Evaluate(context.Background(), []byte("img"), "p", []string{"g"})
	assert.Equal(t, DefaultParsedScore, res.Score)
	assert.Equal(t, DefaultParsedFeedback, res.Feedback)
}
