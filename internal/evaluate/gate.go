package evaluate

import (
	"context"
	"fmt"
	"math"
	"strings"
)

// CriterionScore is a scorer's result for one criterion: either a value in
// [0,10], or an error.
type CriterionScore struct {
	Value float64
	Err   error
}

// Scorer rates a candidate on each of its criteria. A failed criterion is
// reported through CriterionScore.Err, never as a whole-call error.
type Scorer interface {
	Score(ctx context.Context, candidate, taskContext string) map[string]CriterionScore
}

// Normalize clamps a score to [0,10] and rounds it to two decimals.
func Normalize(raw float64) float64 {
	return round2(math.Max(0, math.Min(10, raw)))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Result is the outcome of evaluating one candidate. Every stored score is
// higher-is-better. Failed criteria are excluded from Mean, which is kept
// unrounded.
type Result struct {
	Scores map[string]float64 `json:"scores"`
	Failed map[string]string  `json:"failed,omitempty"`
	Mean   float64            `json:"mean"`
}

// Passed reports whether the mean meets threshold.
func (r Result) Passed(threshold float64) bool {
	return r.Mean >= threshold
}

// Rounded returns r with Mean rounded to two decimals, for storage and
// display. Pass/fail decisions use the unrounded mean.
func (r Result) Rounded() Result {
	r.Mean = round2(r.Mean)
	return r
}

// Keys returns the scored criterion keys in the gate's criterion order.
func (r Result) Keys(criteria []Criterion) []string {
	var keys []string
	for _, c := range criteria {
		if _, ok := r.Scores[c.Key]; ok {
			keys = append(keys, c.Key)
		}
	}
	return keys
}

// Gate turns per-criterion scorer output into a Result.
type Gate struct {
	Scorer   Scorer
	Criteria []Criterion
}

// NewGate returns a gate evaluating criteria with scorer. Nil or empty
// criteria selects all built-in criteria.
func NewGate(scorer Scorer, criteria []Criterion) *Gate {
	if len(criteria) == 0 {
		criteria = All()
	}
	return &Gate{Scorer: scorer, Criteria: criteria}
}

// Evaluate scores candidate and aggregates the per-criterion results.
func (g *Gate) Evaluate(ctx context.Context, candidate, taskContext string) Result {
	raw := g.Scorer.Score(ctx, candidate, taskContext)

	res := Result{
		Scores: make(map[string]float64, len(g.Criteria)),
		Failed: make(map[string]string),
	}
	var sum float64
	for _, c := range g.Criteria {
		s, ok := raw[c.Key]
		switch {
		case !ok:
			res.Failed[c.Key] = "no score returned"
			continue
		case s.Err != nil:
			res.Failed[c.Key] = s.Err.Error()
			continue
		case math.IsNaN(s.Value) || math.IsInf(s.Value, 0):
			res.Failed[c.Key] = fmt.Sprintf("invalid score %v", s.Value)
			continue
		}
		v := Normalize(s.Value)
		if c.Inverted {
			v = round2(10 - v)
		}
		res.Scores[c.Key] = v
		sum += v
	}
	if n := len(res.Scores); n > 0 {
		res.Mean = sum / float64(n)
	}
	return res
}

// TaskContext describes the documentation task for the scorer.
func TaskContext(folder string) string {
	return strings.Join([]string{
		fmt.Sprintf("Task: Generate complete technical documentation for codebase at %s", folder),
		"Required sections: README, API Reference, Architecture, Examples",
		"Output should be accurate, complete, non-toxic, and efficient",
	}, "\n")
}
