package ux

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jorge-barreto/docgen/internal/config"
	"github.com/jorge-barreto/docgen/internal/evaluate"
	"github.com/jorge-barreto/docgen/internal/state"
)

func testPrinter(label string) (*Printer, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return &Printer{Out: &out, Err: &errOut, Label: label}, &out, &errOut
}

func TestPrinter_TaskLines(t *testing.T) {
	p, out, _ := testPrinter("")
	task := config.Task{Name: "api_writer", Type: config.TaskGenerate, Description: "Writes the API reference"}
	p.TaskStarted(3, 5, task)
	p.TaskDone(task, 65*time.Second, "hello")
	p.TaskFailed(task, errors.New("boom"))

	got := out.String()
	for _, want := range []string{"Task 3/5: api_writer (generate)", "Writes the API reference", "✓ api_writer complete (1m 05s, 5 chars)", "✗ api_writer failed: boom"} {
		if !strings.Contains(got, want) {
			t.Fatalf("output missing %q:\n%s", want, got)
		}
	}
}

func TestPrinter_AttemptScored(t *testing.T) {
	p, out, _ := testPrinter("")
	res := evaluate.Result{
		Scores: map[string]float64{"faithfulness": 7.5},
		Failed: map[string]string{"toxicity": "timeout"},
		Mean:   7.5,
	}
	p.AttemptScored(1, res, 8)
	got := out.String()
	if !strings.Contains(got, "Attempt 1 score 7.50 (threshold 8.00): below threshold") {
		t.Fatalf("output = %s", got)
	}
	if !strings.Contains(got, "Faithfulness") || !strings.Contains(got, "Toxicity") || !strings.Contains(got, "failed: timeout") {
		t.Fatalf("output = %s", got)
	}
}

func TestPrinter_LabelAndWarn(t *testing.T) {
	p, out, errOut := testPrinter("svc-a")
	p.AttemptStarted(1, 2)
	p.Warn("s3 mirror: %s", "denied")

	if !strings.Contains(out.String(), "svc-a") {
		t.Fatalf("label missing: %q", out.String())
	}
	if errOut.String() != "svc-a: warning: s3 mirror: denied\n" {
		t.Fatalf("warn = %q", errOut.String())
	}
}

func TestPrinter_ResumeHint(t *testing.T) {
	p, out, _ := testPrinter("")
	p.ResumeHint("./app")
	if !strings.Contains(out.String(), "docgen run ./app") {
		t.Fatalf("output = %q", out.String())
	}
}

func TestRenderStatus(t *testing.T) {
	dir := t.TempDir()
	state.EnsureDir(dir)
	run := &state.Run{
		ID:          "abc",
		Folder:      "/src/app",
		Status:      state.StatusCompleted,
		Outcome:     "passed",
		Threshold:   6,
		StartedAt:   time.Now().Add(-2 * time.Minute),
		FinishedAt:  time.Now(),
		BestAttempt: 1,
		Attempts: []state.Attempt{
			{N: 1, Pass: "full", Mean: 7, Scores: map[string]float64{"task_completion": 7}},
		},
		Approval:  "approved",
		OutputDir: "docs",
		Files:     []string{"docs/README.md"},
		FinalMean: 7,
	}
	var buf bytes.Buffer
	RenderStatus(&buf, run, dir)
	got := buf.String()
	for _, want := range []string{"abc", "completed", "(passed)", "Task Completion", "approved", "docs/README.md"} {
		if !strings.Contains(got, want) {
			t.Fatalf("status missing %q:\n%s", want, got)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Fatalf("got %q", got)
	}
	if got := Truncate(strings.Repeat("a", 20), 10); got != "aaaaaaa..." {
		t.Fatalf("got %q", got)
	}
}
