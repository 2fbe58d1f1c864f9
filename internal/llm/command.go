package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"
)

// CommandClient shells out to a CLI model runner such as `claude -p`.
type CommandClient struct {
	Command string        // binary name or path, e.g. "claude"
	Model   string        // passed as --model when set
	Timeout time.Duration // per request; zero means no timeout
	Dir     string        // working directory for the child process
	Log     io.Writer     // receives the child's stdout and stderr, optional
}

func (c *CommandClient) Name() string { return c.Command + ":" + c.Model }

// Generate runs the command with prompt and returns its stdout.
func (c *CommandClient) Generate(ctx context.Context, prompt string) (string, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	args := []string{"-p", prompt}
	if c.Model != "" {
		args = append(args, "--model", c.Model)
	}
	cmd := exec.CommandContext(ctx, c.Command, args...)
	cmd.Dir = c.Dir
	cmd.Env = FilteredEnv()
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM)
	}
	cmd.WaitDelay = 5 * time.Second

	var stdout, stderr bytes.Buffer
	if c.Log != nil {
		cmd.Stdout = io.MultiWriter(&stdout, c.Log)
		cmd.Stderr = io.MultiWriter(&stderr, c.Log)
	} else {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	}

	code, err := exitCode(cmd.Run())
	if err != nil {
		return "", err
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if code != 0 {
		return "", fmt.Errorf("%s exited with code %d: %s", c.Command, code, tail(stderr.String(), 500))
	}
	out := stdout.String()
	if strings.TrimSpace(out) == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}

// GenerateJSON runs Generate and extracts the JSON payload from the reply.
func (c *CommandClient) GenerateJSON(ctx context.Context, prompt string) (json.RawMessage, error) {
	out, err := c.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return ExtractJSON(out)
}

// FilteredEnv returns the current environment minus CLAUDECODE* variables,
// which make a nested claude refuse to start.
func FilteredEnv() []string {
	var env []string
	for _, e := range os.Environ() {
		key := strings.SplitN(e, "=", 2)[0]
		if strings.HasPrefix(key, "CLAUDECODE") {
			continue
		}
		env = append(env, e)
	}
	return env
}

// exitCode extracts an exit code from a command error.
// Returns (code, nil) for ExitError, (0, err) for other errors, (0, nil) for nil.
func exitCode(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return 0, err
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
