package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jorge-barreto/docgen/internal/approval"
	"github.com/jorge-barreto/docgen/internal/config"
	"github.com/jorge-barreto/docgen/internal/dispatch"
	"github.com/jorge-barreto/docgen/internal/evaluate"
	"github.com/jorge-barreto/docgen/internal/finalize"
	"github.com/jorge-barreto/docgen/internal/index"
	"github.com/jorge-barreto/docgen/internal/pipeline"
	"github.com/jorge-barreto/docgen/internal/retry"
	"github.com/jorge-barreto/docgen/internal/sections"
	"github.com/jorge-barreto/docgen/internal/sharedstate"
	"github.com/jorge-barreto/docgen/internal/state"
	"github.com/jorge-barreto/docgen/internal/ux"
)

// Reviewer obtains the human decision on a document set.
// *approval.Reviewer satisfies it.
type Reviewer interface {
	Review(ctx context.Context, secs sections.Sections) (approval.Outcome, error)
}

// Runner drives one documentation run: generate with retries, review,
// optionally regenerate once with feedback, then finalize.
type Runner struct {
	Config    *config.Config
	Env       *dispatch.Environment
	Tasks     func(pass string) pipeline.Runner
	Indexer   pipeline.Indexer
	Gate      retry.Evaluator
	Reviewer  Reviewer
	Finalizer finalize.Finalizer
	Registry  *sharedstate.Registry
	Printer   *ux.Printer
	Timing    *state.Timing
}

// Result is the outcome of a successful run.
type Result struct {
	RunID        string
	Sections     sections.Sections
	Evaluation   evaluate.Result
	AttemptsUsed int
	Status       retry.Status
	Approval     approval.State
	Report       *finalize.Report
}

// RunError is the single fatal error of a run.
type RunError struct {
	Folder string
	Stage  string
	Err    error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Folder, e.Stage, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

// failAndHint finishes the run record with status, saves it (warning on
// error), flushes timing, prints a rerun hint, and returns the error.
func (r *Runner) failAndHint(run *state.Run, status string, err error) error {
	var te *pipeline.TaskError
	if errors.As(err, &te) {
		run.FailedTask = te.Task
	}
	run.Finish(status, err)
	if saveErr := run.Save(r.Env.ArtifactsDir); saveErr != nil {
		r.Printer.Warn("failed to save run record: %v", saveErr)
	}
	r.flushTiming()
	r.Printer.ResumeHint(run.Folder)
	return err
}

func (r *Runner) flushTiming() {
	if r.Timing == nil {
		return
	}
	if err := r.Timing.Flush(r.Env.ArtifactsDir); err != nil {
		r.Printer.Warn("failed to flush timing: %v", err)
	}
}

func (r *Runner) fail(ctx context.Context, run *state.Run, stage string, err error) error {
	status := state.StatusFailed
	if ctx.Err() != nil {
		status = state.StatusInterrupted
	}
	return r.failAndHint(run, status, &RunError{Folder: run.Folder, Stage: stage, Err: err})
}

func (r *Runner) warn(run *state.Run, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	run.Warnings = append(run.Warnings, msg)
	r.Printer.Warn("%s", msg)
}

// Run documents folder.
func (r *Runner) Run(ctx context.Context, folder string) (*Result, error) {
	if err := state.Reset(r.Env.ArtifactsDir); err != nil {
		return nil, &RunError{Folder: folder, Stage: "prepare", Err: fmt.Errorf("preparing artifacts: %w", err)}
	}
	if r.Registry == nil {
		r.Registry = sharedstate.NewRegistry()
	}

	runID := sharedstate.NewRunID()
	store := r.Registry.Open(runID)
	defer r.Registry.Close(runID)
	store.Clear()

	r.Env.RunID = runID
	r.Env.Folder = folder
	run := &state.Run{
		ID:        runID,
		Folder:    folder,
		Status:    state.StatusRunning,
		Threshold: r.Config.Threshold,
		StartedAt: time.Now(),
	}
	if err := run.Save(r.Env.ArtifactsDir); err != nil {
		return nil, &RunError{Folder: folder, Stage: "prepare", Err: fmt.Errorf("saving run record: %w", err)}
	}

	graph := pipeline.Graph{
		Folder:   folder,
		Tasks:    r.Config.Tasks,
		Indexer:  r.Indexer,
		Observer: r.Printer,
	}
	var seed pipeline.Outputs

	attempt := func(ctx context.Context, n int) (string, any, error) {
		variant := pipeline.Full
		if n > 1 {
			variant = pipeline.Retry
		}
		g := graph
		g.Runner = r.Tasks(state.PassLabel(variant.String(), n))
		res, err := g.Execute(ctx, variant, store, seed, nil)
		if err != nil {
			return "", nil, err
		}
		if variant == pipeline.Full {
			seed = r.indexSeed(res)
			r.snapshot(run, store)
		}
		return r.candidate(res), res, nil
	}

	ctrl := &retry.Controller{
		MaxAttempts: r.Config.MaxAttempts,
		Threshold:   r.Config.Threshold,
		Gate:        r.Gate,
		Observer:    r.Printer,
	}
	taskContext := evaluate.TaskContext(folder)
	outcome, err := ctrl.Run(ctx, attempt, taskContext)
	if err != nil {
		var ie *pipeline.IndexError
		if errors.As(err, &ie) {
			return nil, r.fail(ctx, run, "index", err)
		}
		return nil, r.fail(ctx, run, "generate", err)
	}

	for _, h := range outcome.History {
		pass := pipeline.Retry.String()
		if h.N == 1 {
			pass = pipeline.Full.String()
		}
		run.Record(state.Attempt{N: h.N, Pass: pass, Mean: h.Mean, Scores: h.Scores, Failed: h.Failed})
	}
	run.AttemptsUsed = outcome.AttemptsUsed
	run.BestAttempt = outcome.Best.N
	run.Outcome = string(outcome.Status)
	if outcome.StopErr != nil {
		r.warn(run, "attempt %d failed, keeping attempt %d: %v", outcome.AttemptsUsed, outcome.Best.N, outcome.StopErr)
	}
	if outcome.Status == retry.StatusExhausted {
		r.Printer.Exhausted(outcome.Best.N, outcome.Best.Evaluation.Mean)
	}
	if err := run.Save(r.Env.ArtifactsDir); err != nil {
		r.Printer.Warn("failed to save run record: %v", err)
	}

	best := outcome.Best.Payload.(*pipeline.Result)
	secs := r.sectionsOf(best)
	raw := best.Final()
	eval := outcome.Best.Evaluation.Rounded()

	cycle := approval.NewCycle()
	decision, err := r.Reviewer.Review(ctx, secs)
	if err != nil {
		return nil, r.fail(ctx, run, "review", err)
	}
	if err := cycle.Decide(decision); err != nil {
		return nil, r.fail(ctx, run, "review", err)
	}

	if cycle.State() == approval.EditRequested {
		fb := cycle.Feedback()
		run.Feedback = fb
		r.Printer.EditPass(len(fb))
		if err := state.WriteFeedback(r.Env.ArtifactsDir, "reviewer", fb); err != nil {
			r.warn(run, "failed to save reviewer feedback: %v", err)
		}

		g := graph
		g.Runner = r.Tasks(state.PassLabel(pipeline.Edit.String(), 0))
		res, err := g.Execute(ctx, pipeline.Edit, store, seed, map[string]string{pipeline.FeedbackInput: fb})
		if err != nil {
			return nil, r.fail(ctx, run, "edit", err)
		}
		if err := cycle.Regenerated(); err != nil {
			return nil, r.fail(ctx, run, "edit", err)
		}

		secs = r.sectionsOf(res)
		raw = res.Final()
		n := outcome.AttemptsUsed + 1
		eval = r.Gate.Evaluate(ctx, r.candidate(res), taskContext).Rounded()
		r.Printer.AttemptScored(n, eval, r.Config.Threshold)
		run.Record(state.Attempt{N: n, Pass: pipeline.Edit.String(), Mean: eval.Mean, Scores: eval.Scores, Failed: eval.Failed})
	}
	run.Approval = cycle.State().String()

	var lang string
	if _, err := store.Decode(index.KeyLanguage, &lang); err != nil {
		r.warn(run, "reading detected language: %v", err)
	}
	doc := finalize.Document{
		RunID:      runID,
		Folder:     folder,
		Language:   lang,
		Sections:   secs,
		Raw:        raw,
		Evaluation: eval,
		Stats:      finalize.ComputeStats(secs, store),
	}
	rep, err := r.Finalizer.Finalize(ctx, doc)
	if err != nil {
		return nil, r.fail(ctx, run, "finalize", err)
	}
	for _, w := range rep.Warnings {
		r.warn(run, "%s", w)
	}

	run.OutputDir = rep.OutputDir
	run.Files = rep.Files
	run.FinalMean = eval.Mean
	run.Finish(state.StatusCompleted, nil)
	if err := run.Save(r.Env.ArtifactsDir); err != nil {
		r.Printer.Warn("failed to save run record: %v", err)
	}
	r.flushTiming()
	r.Printer.Success(rep.OutputDir, len(rep.Files), eval.Mean)

	return &Result{
		RunID:        runID,
		Sections:     secs,
		Evaluation:   eval,
		AttemptsUsed: outcome.AttemptsUsed,
		Status:       outcome.Status,
		Approval:     cycle.State(),
		Report:       rep,
	}, nil
}

// indexSeed returns the index task output of a full pass, which later
// passes reuse instead of re-indexing.
func (r *Runner) indexSeed(res *pipeline.Result) pipeline.Outputs {
	idx, ok := r.Config.IndexTask()
	if !ok {
		return pipeline.Outputs{}
	}
	out, ok := res.Outputs.Get(idx.Name)
	if !ok {
		return pipeline.Outputs{}
	}
	return pipeline.NewOutputs(out)
}

func (r *Runner) snapshot(run *state.Run, store *sharedstate.Store) {
	data, err := store.MarshalJSON()
	if err == nil {
		err = state.SaveSharedState(r.Env.ArtifactsDir, data)
	}
	if err != nil {
		r.warn(run, "failed to save shared state: %v", err)
	}
}

// sectionsOf parses the final task output, falling back to the individual
// generation task outputs when it carries no section markers.
func (r *Runner) sectionsOf(res *pipeline.Result) sections.Sections {
	if secs := sections.Parse(res.Final()); len(secs) > 0 {
		return secs
	}
	return sections.Fallback(r.sources(res))
}

// candidate is the text the gate scores: the raw final output, or the
// rendered fallback sections when the final output is empty.
func (r *Runner) candidate(res *pipeline.Result) string {
	if raw := res.Final(); raw != "" {
		return raw
	}
	return sections.Render(sections.Fallback(r.sources(res)))
}

func (r *Runner) sources(res *pipeline.Result) []sections.Source {
	var out []sections.Source
	for _, t := range r.Config.GenerationTasks() {
		o, ok := res.Outputs.Get(t.Name)
		if !ok {
			continue
		}
		out = append(out, sections.Source{Name: t.Name, Description: t.Description, Section: t.Section, Text: o.Text})
	}
	return out
}

// DryRunPrint prints the task plan without executing.
func (r *Runner) DryRunPrint(w io.Writer) {
	cfg := r.Config
	fmt.Fprintf(w, "\n%sDry run — %d tasks:%s\n\n", ux.Bold, len(cfg.Tasks), ux.Reset)
	for i, t := range cfg.Tasks {
		fmt.Fprintf(w, "  %s%d.%s %s%s%s (%s)", ux.Cyan, i+1, ux.Reset, ux.Bold, t.Name, ux.Reset, t.Type)
		if t.Description != "" {
			fmt.Fprintf(w, " — %s", t.Description)
		}
		fmt.Fprintln(w)

		if t.Prompt != "" {
			fmt.Fprintf(w, "     prompt: %s\n", t.Prompt)
		}
		if len(t.Context) > 0 {
			fmt.Fprintf(w, "     context: %v\n", t.Context)
		}
		if t.Section != "" {
			fmt.Fprintf(w, "     section: %s\n", t.Section)
		}
	}
	fmt.Fprintf(w, "\n  backend: %s (%s), scorer: %s\n", cfg.Backend.Type, cfg.Backend.Model, cfg.Scorer.Type)
	fmt.Fprintf(w, "  threshold: %.2f, max attempts: %d, auto-approve: %v\n", cfg.Threshold, cfg.MaxAttempts, cfg.AutoApprove)
	fmt.Fprintf(w, "  output: %s\n\n", r.Env.OutputDir)
}
