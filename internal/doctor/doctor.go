// Package doctor asks the backend to diagnose the last failed run.
package doctor

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jorge-barreto/docgen/internal/config"
	"github.com/jorge-barreto/docgen/internal/llm"
	"github.com/jorge-barreto/docgen/internal/state"
	"github.com/jorge-barreto/docgen/internal/ux"
)

const maxLogLines = 200

const diagPrompt = `You are diagnosing a failed docgen documentation run. Analyze the context below and provide a concise diagnosis.

## Run
%s

## Failed Task Config
%s

## Backend Log (last %d lines)
%s
%s%s%s
Instructions:
1. Identify what went wrong from the log output and the run error.
2. Classify this as a CONFIG problem (task chain, prompt templates, backend settings, storage credentials) or a BACKEND problem (the model call itself failed or returned unusable output).
3. Suggest specific fixes.
4. Recommend the next command to run:
   - docgen run <folder>            (re-run after fixing)
   - docgen run <folder> --dry-run  (check the task chain first)
   - docgen index <folder>          (inspect the code analysis)

Be direct and concise. Focus on actionable advice.`

// Run gathers failure context from the artifacts directory and prints the
// backend's diagnosis to w.
func Run(ctx context.Context, client llm.Client, w io.Writer, artifactsDir string, cfg *config.Config, run *state.Run) error {
	if run.Status != state.StatusFailed && run.Status != state.StatusInterrupted {
		fmt.Fprintln(w, "No failed run to diagnose.")
		return nil
	}

	var task *config.Task
	if run.FailedTask != "" {
		for i := range cfg.Tasks {
			if cfg.Tasks[i].Name == run.FailedTask {
				task = &cfg.Tasks[i]
				break
			}
		}
		if task == nil {
			return fmt.Errorf("failed task %q not found in config (has %d tasks)", run.FailedTask, len(cfg.Tasks))
		}
	}

	taskName := run.FailedTask
	diagText := buildPrompt(
		gatherRun(run),
		gatherTaskConfig(task),
		gatherLog(artifactsDir, taskName),
		gatherPrompt(artifactsDir, task),
		gatherFeedback(artifactsDir),
		gatherTiming(artifactsDir),
	)

	label := "run"
	if taskName != "" {
		label = "task " + taskName
	}
	fmt.Fprintf(w, "\n%s%s══ Doctor: diagnosing %s (%s) ══%s\n\n", ux.Bold, ux.Cyan, label, client.Name(), ux.Reset)

	reply, err := client.Generate(ctx, diagText)
	if err != nil {
		return fmt.Errorf("diagnosis failed: %w", err)
	}
	fmt.Fprintln(w, strings.TrimSpace(reply))
	fmt.Fprintf(w, "\n%sRerun:%s docgen run %s\n", ux.Yellow, ux.Reset, run.Folder)
	return nil
}

func buildPrompt(runInfo, taskConfig, log, prompt, feedback, timing string) string {
	var promptSection, feedbackSection, timingSection string
	if prompt != "" {
		promptSection = fmt.Sprintf("\n## Rendered Prompt\n%s\n", prompt)
	}
	if feedback != "" {
		feedbackSection = fmt.Sprintf("\n## Feedback Files\n%s\n", feedback)
	}
	if timing != "" {
		timingSection = fmt.Sprintf("\n## Timing\n%s\n", timing)
	}
	return fmt.Sprintf(diagPrompt, runInfo, taskConfig, maxLogLines, log, promptSection, feedbackSection, timingSection)
}

func gatherRun(run *state.Run) string {
	parts := []string{
		fmt.Sprintf("Folder: %s", run.Folder),
		fmt.Sprintf("Status: %s", run.Status),
		fmt.Sprintf("Attempts used: %d", run.AttemptsUsed),
	}
	if run.Error != "" {
		parts = append(parts, fmt.Sprintf("Error: %s", run.Error))
	}
	for _, a := range run.Attempts {
		parts = append(parts, fmt.Sprintf("Attempt %d (%s): mean %.2f", a.N, a.Pass, a.Mean))
	}
	return strings.Join(parts, "\n")
}

func gatherTaskConfig(task *config.Task) string {
	if task == nil {
		return "(no task failed; the run stopped outside the task chain)"
	}
	parts := []string{
		fmt.Sprintf("Name: %s", task.Name),
		fmt.Sprintf("Type: %s", task.Type),
	}
	if task.Description != "" {
		parts = append(parts, fmt.Sprintf("Description: %s", task.Description))
	}
	if task.Prompt != "" {
		parts = append(parts, fmt.Sprintf("Prompt file: %s", task.Prompt))
	}
	if len(task.Context) > 0 {
		parts = append(parts, fmt.Sprintf("Context: %s", strings.Join(task.Context, ", ")))
	}
	if task.Section != "" {
		parts = append(parts, fmt.Sprintf("Section: %s", task.Section))
	}
	return strings.Join(parts, "\n")
}

// latest returns the last path in paths (sorted by name) whose file name
// ends with "-<task><ext>", or the last path overall when task is empty.
func latest(paths []string, task, ext string) string {
	sort.Strings(paths)
	for i := len(paths) - 1; i >= 0; i-- {
		if task == "" || strings.HasSuffix(filepath.Base(paths[i]), "-"+task+ext) {
			return paths[i]
		}
	}
	return ""
}

func gatherLog(artifactsDir, task string) string {
	logs, _ := state.Logs(artifactsDir)
	path := latest(logs, task, ".log")
	if path == "" {
		return "(no log file found)"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "(no log file found)"
	}
	lines := strings.Split(string(data), "\n")
	if len(lines) > maxLogLines {
		lines = lines[len(lines)-maxLogLines:]
		return fmt.Sprintf("... (truncated to last %d lines)\n%s", maxLogLines, strings.Join(lines, "\n"))
	}
	return string(data)
}

func gatherPrompt(artifactsDir string, task *config.Task) string {
	if task == nil || task.Type != config.TaskGenerate {
		return ""
	}
	prompts, _ := filepath.Glob(filepath.Join(artifactsDir, "prompts", "*.md"))
	path := latest(prompts, task.Name, ".md")
	if path == "" {
		return "(no rendered prompt found)"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "(no rendered prompt found)"
	}
	return string(data)
}

func gatherFeedback(artifactsDir string) string {
	fb, err := state.ReadFeedback(artifactsDir)
	if err != nil || len(fb) == 0 {
		return ""
	}
	names := make([]string, 0, len(fb))
	for n := range fb {
		names = append(names, n)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = fmt.Sprintf("--- %s ---\n%s", n, fb[n])
	}
	return strings.Join(parts, "\n")
}

func gatherTiming(artifactsDir string) string {
	timing, err := state.LoadTiming(artifactsDir)
	if err != nil {
		return ""
	}
	return strings.TrimRight(timing.Table(), "\n")
}
