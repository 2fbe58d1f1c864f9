// Package dispatch renders task prompts and sends them to the configured
// model backend.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jorge-barreto/docgen/internal/config"
	"github.com/jorge-barreto/docgen/internal/llm"
	"github.com/jorge-barreto/docgen/internal/pipeline"
	"github.com/jorge-barreto/docgen/internal/sharedstate"
	"github.com/jorge-barreto/docgen/internal/state"
)

// Environment holds the execution context shared by every task of a run.
type Environment struct {
	ProjectRoot  string
	Folder       string
	ArtifactsDir string
	OutputDir    string
	RunID        string
}

// Vars returns the variable substitution map for prompts.
func (e *Environment) Vars() map[string]string {
	return map[string]string{
		"FOLDER":        e.Folder,
		"PROJECT_ROOT":  e.ProjectRoot,
		"ARTIFACTS_DIR": e.ArtifactsDir,
		"OUTPUT_DIR":    e.OutputDir,
		"RUN_ID":        e.RunID,
	}
}

// LLMRunner executes generation tasks against an llm.Client.
type LLMRunner struct {
	Client llm.Client
	Env    *Environment
	Timing *state.Timing

	pass string
}

// ForPass returns a copy of r that labels its artifacts with pass.
func (r *LLMRunner) ForPass(pass string) *LLMRunner {
	cp := *r
	cp.pass = pass
	return &cp
}

func (r *LLMRunner) passLabel() string {
	if r.pass == "" {
		return "attempt-1"
	}
	return r.pass
}

// Run renders the task prompt, sends it to the backend and returns the
// reply. An empty reply is returned as "" without error.
func (r *LLMRunner) Run(ctx context.Context, task config.Task, inputs map[string]string, st sharedstate.Reader) (string, error) {
	prompt, err := r.RenderPrompt(task, inputs, st)
	if err != nil {
		return "", err
	}

	pass := r.passLabel()
	dir := r.Env.ArtifactsDir
	if dir != "" {
		if err := os.WriteFile(state.PromptPath(dir, pass, task.Name), []byte(prompt), 0644); err != nil {
			return "", fmt.Errorf("saving prompt: %w", err)
		}
	}

	if r.Timing != nil {
		r.Timing.Start(pass, task.Name)
		defer r.Timing.End(pass, task.Name)
	}

	out, err := r.Client.Generate(ctx, prompt)
	if errors.Is(err, llm.ErrEmptyResponse) {
		out, err = "", nil
	}
	if dir != "" {
		r.writeLog(pass, task.Name, out, err)
	}
	if err != nil {
		if dir != "" {
			state.WriteFeedback(dir, pass+"-"+task.Name, err.Error())
		}
		return "", fmt.Errorf("%s: %w", r.Client.Name(), err)
	}
	return out, nil
}

func (r *LLMRunner) writeLog(pass, task, out string, runErr error) {
	var b strings.Builder
	fmt.Fprintf(&b, "backend: %s\n\n", r.Client.Name())
	if runErr != nil {
		fmt.Fprintf(&b, "error: %v\n", runErr)
	} else {
		b.WriteString(out)
	}
	os.WriteFile(state.LogPath(r.Env.ArtifactsDir, pass, task), []byte(b.String()), 0644)
}

// RenderPrompt builds the full prompt for task: the expanded template,
// upstream context, a shared-state summary and any reviewer feedback.
func (r *LLMRunner) RenderPrompt(task config.Task, inputs map[string]string, st sharedstate.Reader) (string, error) {
	path := task.Prompt
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.Env.ProjectRoot, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading prompt: %w", err)
	}

	var b strings.Builder
	b.WriteString(strings.TrimSpace(ExpandVars(string(data), r.Env.Vars(), st)))
	b.WriteString("\n")

	if len(task.Context) > 0 {
		b.WriteString("\n## Context from upstream tasks\n")
		for _, name := range task.Context {
			fmt.Fprintf(&b, "\n### %s\n\n%s\n", name, strings.TrimSpace(inputs[name]))
		}
	}

	var extra []string
	for k := range inputs {
		if k == pipeline.FeedbackInput || contains(task.Context, k) {
			continue
		}
		extra = append(extra, k)
	}
	sort.Strings(extra)
	for _, k := range extra {
		fmt.Fprintf(&b, "\n## %s\n\n%s\n", k, strings.TrimSpace(inputs[k]))
	}

	if st != nil {
		fmt.Fprintf(&b, "\n## %s\n", st.Summary())
	}

	if fb := strings.TrimSpace(inputs[pipeline.FeedbackInput]); fb != "" {
		b.WriteString("\n## Reviewer feedback\n\n")
		b.WriteString("A reviewer read the previous version of this documentation and asked for these changes. Apply them:\n\n")
		b.WriteString(fb)
		b.WriteString("\n")
	}
	return b.String(), nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
