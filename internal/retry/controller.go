// Package retry runs generation attempts until one clears the quality
// threshold or the attempt budget is spent, keeping the best attempt.
package retry

import (
	"context"

	"github.com/jorge-barreto/docgen/internal/evaluate"
)

type Status string

const (
	StatusPassed    Status = "passed"
	StatusExhausted Status = "exhausted_best_available"
)

// Attempt is one evaluated candidate. Payload is whatever the AttemptFunc
// returned alongside the text.
type Attempt struct {
	N          int
	Text       string
	Payload    any
	Evaluation evaluate.Result
}

// Record is the text-free history entry for one evaluated attempt.
type Record struct {
	N      int                `json:"n"`
	Mean   float64            `json:"mean"`
	Scores map[string]float64 `json:"scores"`
	Failed map[string]string  `json:"failed,omitempty"`
}

// Outcome is the result of a controller run. Best is the highest-scoring
// attempt (earliest on ties) and Last the most recent candidate text. Other
// attempts are dropped once superseded.
type Outcome struct {
	Status       Status
	Best         Attempt
	Last         string
	AttemptsUsed int
	History      []Record
	// StopErr is set when a later attempt failed and retrying stopped early.
	StopErr error
}

// AttemptFunc produces the candidate text for attempt n (1-based), plus an
// optional payload kept only while the attempt is the best so far.
type AttemptFunc func(ctx context.Context, n int) (text string, payload any, err error)

// Evaluator scores a candidate. *evaluate.Gate satisfies it.
type Evaluator interface {
	Evaluate(ctx context.Context, candidate, taskContext string) evaluate.Result
}

// Observer is notified as attempts progress.
type Observer interface {
	AttemptStarted(n, max int)
	AttemptScored(n int, res evaluate.Result, threshold float64)
	AttemptFailed(n int, err error)
}

// Controller drives the retry state machine.
type Controller struct {
	MaxAttempts int
	Threshold   float64
	Gate        Evaluator
	Observer    Observer
}

// Run executes attempts 1..MaxAttempts, evaluating each, and stops at the
// first attempt whose mean meets the threshold. A failure of attempt 1 is
// returned as an error; a failure of a later attempt stops retrying and the
// best attempt so far is returned. Context cancellation is always an error.
func (c *Controller) Run(ctx context.Context, attempt AttemptFunc, taskContext string) (*Outcome, error) {
	max := c.MaxAttempts
	if max < 1 {
		max = 1
	}

	out := &Outcome{Status: StatusExhausted}
	var best *Attempt

	for n := 1; n <= max; n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if c.Observer != nil {
			c.Observer.AttemptStarted(n, max)
		}
		out.AttemptsUsed = n

		text, payload, err := attempt(ctx, n)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if c.Observer != nil {
				c.Observer.AttemptFailed(n, err)
			}
			if best == nil {
				return nil, err
			}
			out.StopErr = err
			break
		}

		res, err := c.evaluate(ctx, text, taskContext)
		if err != nil {
			return nil, err
		}
		out.Last = text
		out.History = append(out.History, Record{N: n, Mean: res.Rounded().Mean, Scores: res.Scores, Failed: res.Failed})
		if best == nil || res.Mean > best.Evaluation.Mean {
			best = &Attempt{N: n, Text: text, Payload: payload, Evaluation: res}
		}
		if c.Observer != nil {
			c.Observer.AttemptScored(n, res, c.Threshold)
		}
		if res.Passed(c.Threshold) {
			out.Status = StatusPassed
			break
		}
	}

	out.Best = *best
	return out, nil
}

// evaluate scores text on a separate goroutine so cancellation is honored
// even when the evaluator does not watch ctx.
func (c *Controller) evaluate(ctx context.Context, text, taskContext string) (evaluate.Result, error) {
	ch := make(chan evaluate.Result, 1)
	go func() {
		ch <- c.Gate.Evaluate(ctx, text, taskContext)
	}()
	select {
	case res := <-ch:
		return res, nil
	case <-ctx.Done():
		return evaluate.Result{}, ctx.Err()
	}
}
