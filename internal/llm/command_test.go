package llm

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// fakeCLI writes an executable shell script standing in for a model CLI.
func fakeCLI(t *testing.T, body string) string {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	path := filepath.Join(t.TempDir(), "fake-cli")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCommandClient_EchoesPrompt(t *testing.T) {
	c := &CommandClient{Command: fakeCLI(t, `echo "prompt=$2 model=$4"`), Model: "sonnet"}
	out, err := c.Generate(context.Background(), "hello")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "prompt=hello model=sonnet" {
		t.Fatalf("got %q", out)
	}
}

func TestCommandClient_NonZeroExit(t *testing.T) {
	c := &CommandClient{Command: fakeCLI(t, `echo "boom" >&2; exit 3`)}
	_, err := c.Generate(context.Background(), "x")
	if err == nil || !strings.Contains(err.Error(), "exited with code 3") || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("got %v", err)
	}
}

func TestCommandClient_EmptyOutput(t *testing.T) {
	c := &CommandClient{Command: fakeCLI(t, `true`)}
	if _, err := c.Generate(context.Background(), "x"); !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("got %v", err)
	}
}

func TestCommandClient_Timeout(t *testing.T) {
	c := &CommandClient{Command: fakeCLI(t, `sleep 5`), Timeout: 100 * time.Millisecond}
	start := time.Now()
	if _, err := c.Generate(context.Background(), "x"); err == nil {
		t.Fatal("expected timeout error")
	}
	if time.Since(start) > 4*time.Second {
		t.Fatal("timeout did not stop the child process")
	}
}

func TestCommandClient_LogsOutput(t *testing.T) {
	var log bytes.Buffer
	c := &CommandClient{Command: fakeCLI(t, `echo out; echo err >&2`), Log: &log}
	if _, err := c.Generate(context.Background(), "x"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(log.String(), "out") || !strings.Contains(log.String(), "err") {
		t.Fatalf("log = %q", log.String())
	}
}

func TestCommandClient_GenerateJSON(t *testing.T) {
	c := &CommandClient{Command: fakeCLI(t, `echo 'Here you go: {"score": 7, "reason": "ok"} thanks'`)}
	raw, err := c.GenerateJSON(context.Background(), "x")
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != `{"score": 7, "reason": "ok"}` {
		t.Fatalf("got %s", raw)
	}
}

func TestFilteredEnv(t *testing.T) {
	t.Setenv("CLAUDECODE", "1")
	t.Setenv("DOCGEN_KEEP", "1")
	env := strings.Join(FilteredEnv(), "\n")
	if strings.Contains(env, "CLAUDECODE=") {
		t.Fatal("CLAUDECODE should be filtered")
	}
	if !strings.Contains(env, "DOCGEN_KEEP=1") {
		t.Fatal("DOCGEN_KEEP should be kept")
	}
}

func TestExitCode(t *testing.T) {
	if code, err := exitCode(nil); code != 0 || err != nil {
		t.Fatalf("nil: got (%d, %v)", code, err)
	}
	other := errors.New("not found")
	if _, err := exitCode(other); err != other {
		t.Fatalf("expected passthrough error, got %v", err)
	}
}
