// Package pipeline executes the configured task chain in order, feeding
// each task the outputs of the tasks named in its context list.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jorge-barreto/docgen/internal/config"
	"github.com/jorge-barreto/docgen/internal/index"
	"github.com/jorge-barreto/docgen/internal/sharedstate"
)

// FeedbackInput is the input key carrying reviewer feedback in the edit pass.
const FeedbackInput = "human_feedback"

type Variant int

const (
	// Full runs the index task, then every generation task.
	Full Variant = iota
	// Retry runs the generation tasks against seeded index output.
	Retry
	// Edit is Retry with reviewer feedback injected into every task.
	Edit
)

func (v Variant) String() string {
	switch v {
	case Full:
		return "full"
	case Retry:
		return "retry"
	case Edit:
		return "edit"
	}
	return fmt.Sprintf("variant(%d)", int(v))
}

// Runner executes one generation task.
type Runner interface {
	Run(ctx context.Context, task config.Task, inputs map[string]string, st sharedstate.Reader) (string, error)
}

// Indexer populates the shared state from a codebase.
type Indexer interface {
	Index(ctx context.Context, folder string, store *sharedstate.Store) (*index.Summary, error)
}

// Observer is notified as tasks run. Any method may be a no-op.
type Observer interface {
	TaskStarted(n, total int, task config.Task)
	TaskDone(task config.Task, elapsed time.Duration, output string)
	TaskFailed(task config.Task, err error)
}

// IndexError reports an indexing failure. It is always fatal.
type IndexError struct {
	Folder string
	Err    error
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("indexing %s: %v", e.Folder, e.Err)
}

func (e *IndexError) Unwrap() error { return e.Err }

// TaskError reports a task failure, which aborts the attempt.
type TaskError struct {
	Task string
	Err  error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task %q: %v", e.Task, e.Err)
}

func (e *TaskError) Unwrap() error { return e.Err }

// Graph is the ordered task chain for one codebase.
type Graph struct {
	Folder   string
	Tasks    []config.Task
	Runner   Runner
	Indexer  Indexer
	Observer Observer
}

// Result holds the outputs of one execution.
type Result struct {
	Variant   Variant
	Outputs   Outputs
	Index     *index.Summary
	FinalTask string
}

// Final returns the trimmed output of the last task in the chain, or ""
// when it is missing or blank.
func (r *Result) Final() string {
	out, _ := r.Outputs.Get(r.FinalTask)
	return strings.TrimSpace(out.Text)
}

// Execute runs the chain. seeds supplies outputs of tasks the variant skips
// (the index output for Retry and Edit); extra is merged into every task's
// inputs.
func (g *Graph) Execute(ctx context.Context, variant Variant, store *sharedstate.Store, seeds Outputs, extra map[string]string) (*Result, error) {
	if variant == Edit && strings.TrimSpace(extra[FeedbackInput]) == "" {
		return nil, errors.New("edit pass requires reviewer feedback")
	}

	res := &Result{Variant: variant, Outputs: seeds}
	work := g.Tasks
	total := len(g.Tasks)
	if total > 0 {
		res.FinalTask = g.Tasks[total-1].Name
	}

	if len(work) > 0 && work[0].Type == config.TaskIndex {
		idx := work[0]
		work = work[1:]
		if variant == Full {
			g.started(1, total, idx)
			start := time.Now()
			sum, err := g.Indexer.Index(ctx, g.Folder, store)
			if err != nil {
				g.failed(idx, err)
				return nil, &IndexError{Folder: g.Folder, Err: err}
			}
			text := sum.Render()
			res.Index = sum
			res.Outputs = res.Outputs.With(Output{Task: idx.Name, Text: text})
			g.done(idx, time.Since(start), text)
		}
	}

	offset := total - len(work)
	for i, task := range work {
		if err := ctx.Err(); err != nil {
			return nil, &TaskError{Task: task.Name, Err: err}
		}

		inputs := make(map[string]string, len(task.Context)+len(extra))
		for k, v := range extra {
			inputs[k] = v
		}
		for _, name := range task.Context {
			out, ok := res.Outputs.Get(name)
			if !ok {
				return nil, &TaskError{Task: task.Name, Err: fmt.Errorf("context %q has no output; tasks out of order", name)}
			}
			inputs[name] = out.Text
		}

		g.started(offset+i+1, total, task)
		start := time.Now()
		text, err := g.Runner.Run(ctx, task, inputs, store)
		if err != nil {
			g.failed(task, err)
			return nil, &TaskError{Task: task.Name, Err: err}
		}
		res.Outputs = res.Outputs.With(Output{Task: task.Name, Text: text})
		g.done(task, time.Since(start), text)
	}
	return res, nil
}

func (g *Graph) started(n, total int, t config.Task) {
	if g.Observer != nil {
		g.Observer.TaskStarted(n, total, t)
	}
}

func (g *Graph) done(t config.Task, elapsed time.Duration, out string) {
	if g.Observer != nil {
		g.Observer.TaskDone(t, elapsed, out)
	}
}

func (g *Graph) failed(t config.Task, err error) {
	if g.Observer != nil {
		g.Observer.TaskFailed(t, err)
	}
}
