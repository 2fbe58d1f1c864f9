package ux

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jorge-barreto/docgen/internal/config"
	"github.com/jorge-barreto/docgen/internal/evaluate"
	"github.com/jorge-barreto/docgen/internal/state"
)

// ANSI color helpers
const (
	Reset  = "\033[0m"
	Bold   = "\033[1m"
	Dim    = "\033[2m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Cyan   = "\033[36m"
)

func timestamp() string {
	return time.Now().Format("15:04:05")
}

// Printer writes progress lines. Label, when set, prefixes every line so
// concurrent batch runs stay readable.
type Printer struct {
	Out   io.Writer
	Err   io.Writer
	Label string

	mu sync.Mutex
}

// NewPrinter returns a Printer writing to stdout and stderr.
func NewPrinter(label string) *Printer {
	return &Printer{Out: os.Stdout, Err: os.Stderr, Label: label}
}

func (p *Printer) line(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	prefix := fmt.Sprintf("%s[%s]%s ", Dim, timestamp(), Reset)
	if p.Label != "" {
		prefix += fmt.Sprintf("%s%s%s ", Cyan, p.Label, Reset)
	}
	fmt.Fprint(p.Out, prefix, fmt.Sprintf(format, args...), "\n")
}

// TaskStarted prints a task header.
func (p *Printer) TaskStarted(n, total int, task config.Task) {
	desc := ""
	if task.Description != "" {
		desc = fmt.Sprintf(" — %s", task.Description)
	}
	p.line("%s══════════════════════════════════════%s", Cyan, Reset)
	p.line(" %sTask %d/%d: %s (%s)%s%s", Bold, n, total, task.Name, task.Type, desc, Reset)
	p.line("%s══════════════════════════════════════%s", Cyan, Reset)
}

// TaskDone prints a task completion line.
func (p *Printer) TaskDone(task config.Task, elapsed time.Duration, output string) {
	p.line(" %s✓ %s complete (%s, %d chars)%s", Green, task.Name, state.FormatDuration(elapsed), len(output), Reset)
}

// TaskFailed prints a task failure line.
func (p *Printer) TaskFailed(task config.Task, err error) {
	p.line(" %s✗ %s failed: %v%s", Red, task.Name, err, Reset)
}

// AttemptStarted prints the attempt banner.
func (p *Printer) AttemptStarted(n, max int) {
	p.line("%s▶ Attempt %d/%d%s", Bold, n, max, Reset)
}

// AttemptScored prints the attempt's mean and per-criterion scores.
func (p *Printer) AttemptScored(n int, res evaluate.Result, threshold float64) {
	color, verdict := Green, "passed"
	if !res.Passed(threshold) {
		color, verdict = Yellow, "below threshold"
	}
	p.line(" %sAttempt %d score %.2f (threshold %.2f): %s%s", color, n, res.Mean, threshold, verdict, Reset)
	for _, k := range sortedKeys(res.Scores) {
		p.line("   %s%-22s %5.2f%s", Dim, evaluate.DisplayName(k), res.Scores[k], Reset)
	}
	for _, k := range sortedKeys(res.Failed) {
		p.line("   %s%-22s failed: %s%s", Yellow, evaluate.DisplayName(k), res.Failed[k], Reset)
	}
}

// AttemptFailed prints a failed attempt that ends the retry loop.
func (p *Printer) AttemptFailed(n int, err error) {
	p.line(" %s↺ Attempt %d failed: %v%s", Red, n, err, Reset)
}

// Exhausted prints the outcome when no attempt reached the threshold.
func (p *Printer) Exhausted(best int, mean float64) {
	p.line(" %s↺ No attempt reached the threshold; keeping attempt %d (%.2f)%s", Yellow, best, mean, Reset)
}

// EditPass prints the edit pass banner.
func (p *Printer) EditPass(feedbackLen int) {
	p.line("%s✎ Regenerating with reviewer feedback (%d chars)%s", Bold, feedbackLen, Reset)
}

// Warn prints a non-fatal problem to stderr.
func (p *Printer) Warn(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	prefix := ""
	if p.Label != "" {
		prefix = p.Label + ": "
	}
	fmt.Fprintf(p.Err, "%swarning: %s\n", prefix, fmt.Sprintf(format, args...))
}

// Success prints the final success message.
func (p *Printer) Success(outDir string, files int, mean float64) {
	p.line("%s%s══ %d files written to %s (score %.2f) ══%s", Bold, Green, files, outDir, mean, Reset)
}

// ResumeHint prints the command to run again.
func (p *Printer) ResumeHint(folder string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.Out, "\n%sRerun:%s docgen run %s\n", Yellow, Reset, folder)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Truncate shortens s to n runes with a trailing ellipsis.
func Truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
