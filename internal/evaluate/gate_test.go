package evaluate

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type fixedScorer map[string]CriterionScore

func (f fixedScorer) Score(context.Context, string, string) map[string]CriterionScore {
	return f
}

func plain(keys ...string) []Criterion {
	out := make([]Criterion, len(keys))
	for i, k := range keys {
		out[i] = Criterion{Key: k}
	}
	return out
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		raw, want float64
	}{
		{0, 0},
		{0.5, 0.5},
		{1, 1},
		{7, 7},
		{10, 10},
		{85, 10},
		{-3, 0},
		{0.123, 0.12},
		{6.666, 6.67},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, Normalize(tt.raw), "Normalize(%v)", tt.raw)
	}
}

func TestEvaluate_Mean(t *testing.T) {
	g := NewGate(fixedScorer{"a": {Value: 5}, "b": {Value: 7}}, plain("a", "b"))
	res := g.Evaluate(context.Background(), "doc", "ctx")
	require.Equal(t, 6.0, res.Mean)
	require.True(t, res.Passed(6.0))
	require.False(t, res.Passed(6.01))
	require.Empty(t, res.Failed)
}

func TestEvaluate_FailedExcludedFromMean(t *testing.T) {
	g := NewGate(fixedScorer{
		"a": {Value: 8},
		"b": {Err: errors.New("backend down")},
	}, plain("a", "b", "c"))
	res := g.Evaluate(context.Background(), "doc", "ctx")
	require.Equal(t, 8.0, res.Mean)
	require.Len(t, res.Scores, 1)
	require.Contains(t, res.Failed["b"], "backend down")
	require.Equal(t, "no score returned", res.Failed["c"])
}

func TestEvaluate_AllFailed(t *testing.T) {
	g := NewGate(fixedScorer{"a": {Err: errors.New("x")}, "b": {Value: math.NaN()}}, plain("a", "b"))
	res := g.Evaluate(context.Background(), "doc", "ctx")
	require.Equal(t, 0.0, res.Mean)
	require.Len(t, res.Failed, 2)
	require.False(t, res.Passed(0.1))
}

func TestEvaluate_Inverted(t *testing.T) {
	criteria := []Criterion{{Key: "toxicity", Inverted: true}, {Key: "faithfulness"}}
	g := NewGate(fixedScorer{"toxicity": {Value: 2}, "faithfulness": {Value: 9}}, criteria)
	res := g.Evaluate(context.Background(), "doc", "ctx")
	require.Equal(t, 8.0, res.Scores["toxicity"])
	require.Equal(t, 8.5, res.Mean)
}

func TestEvaluate_ThresholdUsesUnroundedMean(t *testing.T) {
	g := NewGate(fixedScorer{"a": {Value: 5.99}, "b": {Value: 6}, "c": {Value: 6}}, plain("a", "b", "c"))
	res := g.Evaluate(context.Background(), "doc", "ctx")
	require.False(t, res.Passed(6.0))
	require.Equal(t, 6.0, res.Rounded().Mean)
}

func TestTaskContext(t *testing.T) {
	got := TaskContext("/src/app")
	require.True(t, strings.HasPrefix(got, "Task: Generate complete technical documentation for codebase at /src/app"))
	require.Contains(t, got, "Required sections: README, API Reference, Architecture, Examples")
}

func TestSelect(t *testing.T) {
	all, err := Select(nil)
	require.NoError(t, err)
	require.Len(t, all, 6)

	some, err := Select([]string{"Task Completion", "toxicity"})
	require.NoError(t, err)
	require.Equal(t, "task_completion", some[0].Key)
	require.True(t, some[1].Inverted)

	_, err = Select([]string{"bleu"})
	require.Error(t, err)
}

func TestDisplayName(t *testing.T) {
	require.Equal(t, "Answer Relevancy", DisplayName("answer_relevancy"))
	require.Equal(t, "execution_efficiency", Key("Execution Efficiency"))
}
