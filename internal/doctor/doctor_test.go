package doctor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jorge-barreto/docgen/internal/config"
	"github.com/jorge-barreto/docgen/internal/state"
)

func TestGatherLog_Short(t *testing.T) {
	dir := t.TempDir()
	os.MkdirAll(filepath.Join(dir, "logs"), 0755)
	os.WriteFile(state.LogPath(dir, "attempt-1", "api_docs"), []byte("line 1\nline 2\nline 3"), 0644)

	result := gatherLog(dir, "api_docs")
	if result != "line 1\nline 2\nline 3" {
		t.Errorf("expected full content, got %q", result)
	}
}

func TestGatherLog_PicksLatestPassForTask(t *testing.T) {
	dir := t.TempDir()
	os.MkdirAll(filepath.Join(dir, "logs"), 0755)
	os.WriteFile(state.LogPath(dir, "attempt-1", "api_docs"), []byte("first"), 0644)
	os.WriteFile(state.LogPath(dir, "attempt-2", "api_docs"), []byte("second"), 0644)
	os.WriteFile(state.LogPath(dir, "attempt-2", "review"), []byte("other"), 0644)

	if result := gatherLog(dir, "api_docs"); result != "second" {
		t.Errorf("got %q", result)
	}
	if result := gatherLog(dir, ""); result != "other" {
		t.Errorf("without a task got %q", result)
	}
}

func TestGatherLog_Long(t *testing.T) {
	dir := t.TempDir()
	os.MkdirAll(filepath.Join(dir, "logs"), 0755)

	var lines []string
	for i := 0; i < 300; i++ {
		lines = append(lines, "log line")
	}
	os.WriteFile(state.LogPath(dir, "attempt-1", "review"), []byte(strings.Join(lines, "\n")), 0644)

	result := gatherLog(dir, "review")
	if !strings.HasPrefix(result, "... (truncated to last 200 lines)") {
		t.Errorf("expected truncation prefix, got %q", result[:60])
	}
	if outLines := strings.Split(result, "\n"); len(outLines) != 201 {
		t.Errorf("expected 201 lines, got %d", len(outLines))
	}
}

func TestGatherLog_Missing(t *testing.T) {
	if result := gatherLog(t.TempDir(), "review"); result != "(no log file found)" {
		t.Errorf("expected missing placeholder, got %q", result)
	}
}

func TestGatherTaskConfig(t *testing.T) {
	task := &config.Task{
		Name:    "api_docs",
		Type:    config.TaskGenerate,
		Prompt:  ".docgen/prompts/api_docs.md",
		Context: []string{"analyzer", "semantics"},
		Section: "API_REFERENCE.md",
	}
	result := gatherTaskConfig(task)
	for _, want := range []string{"Name: api_docs", "Type: generate", "Prompt file: .docgen/prompts/api_docs.md", "Context: analyzer, semantics", "Section: API_REFERENCE.md"} {
		if !strings.Contains(result, want) {
			t.Errorf("missing %q in %q", want, result)
		}
	}
	if !strings.Contains(gatherTaskConfig(nil), "no task failed") {
		t.Error("nil task should be described")
	}
}

func TestGatherPrompt(t *testing.T) {
	dir := t.TempDir()
	os.MkdirAll(filepath.Join(dir, "prompts"), 0755)
	os.WriteFile(state.PromptPath(dir, "edit", "review"), []byte("rendered"), 0644)

	task := &config.Task{Name: "review", Type: config.TaskGenerate}
	if got := gatherPrompt(dir, task); got != "rendered" {
		t.Errorf("got %q", got)
	}
	if got := gatherPrompt(dir, &config.Task{Name: "analyzer", Type: config.TaskIndex}); got != "" {
		t.Errorf("index task should have no prompt, got %q", got)
	}
	if got := gatherPrompt(dir, &config.Task{Name: "missing", Type: config.TaskGenerate}); got != "(no rendered prompt found)" {
		t.Errorf("got %q", got)
	}
}

func TestGatherFeedback(t *testing.T) {
	dir := t.TempDir()
	state.EnsureDir(dir)
	state.WriteFeedback(dir, "reviewer", "add examples")
	state.WriteFeedback(dir, "attempt-1-api_docs", "backend timed out")

	result := gatherFeedback(dir)
	if !strings.Contains(result, "--- reviewer ---\nadd examples") || !strings.Contains(result, "backend timed out") {
		t.Errorf("got %q", result)
	}
	if strings.Index(result, "attempt-1-api_docs") > strings.Index(result, "reviewer") {
		t.Error("feedback not sorted by name")
	}
	if gatherFeedback(t.TempDir()) != "" {
		t.Error("expected empty string for missing dir")
	}
}

func TestGatherTiming(t *testing.T) {
	dir := t.TempDir()
	timing := &state.Timing{Entries: []state.TimingEntry{
		{Pass: "attempt-1", Task: "api_docs", Duration: "1m 30s"},
		{Pass: "attempt-1", Task: "review"},
	}}
	if err := timing.Flush(dir); err != nil {
		t.Fatal(err)
	}

	result := gatherTiming(dir)
	if !strings.Contains(result, "1m 30s") || !strings.Contains(result, "(unfinished)") {
		t.Errorf("got %q", result)
	}
	if gatherTiming(t.TempDir()) != "" {
		t.Error("expected empty string without timing.json")
	}
}

type fakeClient struct {
	prompt string
	reply  string
	err    error
}

func (c *fakeClient) Name() string { return "fake:model" }

func (c *fakeClient) Generate(ctx context.Context, prompt string) (string, error) {
	c.prompt = prompt
	return c.reply, c.err
}

func (c *fakeClient) GenerateJSON(ctx context.Context, prompt string) (json.RawMessage, error) {
	return nil, errors.New("not used")
}

func testConfig() *config.Config {
	return &config.Config{Tasks: []config.Task{
		{Name: "analyzer", Type: config.TaskIndex},
		{Name: "api_docs", Type: config.TaskGenerate, Prompt: ".docgen/prompts/api_docs.md"},
	}}
}

func TestRun_NotFailed(t *testing.T) {
	client := &fakeClient{}
	var out bytes.Buffer
	err := Run(context.Background(), client, &out, t.TempDir(), testConfig(), &state.Run{Status: state.StatusCompleted})
	if err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
	if client.prompt != "" || !strings.Contains(out.String(), "No failed run") {
		t.Errorf("out = %q", out.String())
	}
}

func TestRun_UnknownTask(t *testing.T) {
	run := &state.Run{Status: state.StatusFailed, FailedTask: "gone"}
	err := Run(context.Background(), &fakeClient{}, &bytes.Buffer{}, t.TempDir(), testConfig(), run)
	if err == nil || !strings.Contains(err.Error(), "not found in config") {
		t.Errorf("expected 'not found in config' error, got %v", err)
	}
}

func TestRun_SendsDiagnosis(t *testing.T) {
	dir := t.TempDir()
	state.EnsureDir(dir)
	os.WriteFile(state.LogPath(dir, "attempt-1", "api_docs"), []byte("error: exit status 1"), 0644)

	client := &fakeClient{reply: "The backend CLI is not installed.\n"}
	run := &state.Run{Folder: "./svc", Status: state.StatusFailed, FailedTask: "api_docs", Error: "./svc: generate: boom"}
	var out bytes.Buffer
	if err := Run(context.Background(), client, &out, dir, testConfig(), run); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Folder: ./svc", "Error: ./svc: generate: boom", "Name: api_docs", "error: exit status 1"} {
		if !strings.Contains(client.prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if !strings.Contains(out.String(), "The backend CLI is not installed.") || !strings.Contains(out.String(), "docgen run ./svc") {
		t.Errorf("out = %q", out.String())
	}
}

func TestRun_BackendError(t *testing.T) {
	client := &fakeClient{err: errors.New("quota")}
	run := &state.Run{Status: state.StatusInterrupted}
	err := Run(context.Background(), client, &bytes.Buffer{}, t.TempDir(), testConfig(), run)
	if err == nil || !strings.Contains(err.Error(), "quota") {
		t.Errorf("err = %v", err)
	}
}
