package approval

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/jorge-barreto/docgen/internal/sections"
)

// ErrNoDecision is returned when input ends before a choice is made.
var ErrNoDecision = errors.New("approval: input closed before a decision was made")

// Reviewer presents a document summary and collects a decision.
type Reviewer struct {
	In          io.Reader
	Out         io.Writer
	AutoApprove bool

	once  sync.Once
	lines *lineReader
}

// Review shows the summary of secs and prompts until the reviewer approves
// or requests an edit with non-blank feedback.
func (r *Reviewer) Review(ctx context.Context, secs sections.Sections) (Outcome, error) {
	if r.AutoApprove {
		fmt.Fprintln(r.Out, "Review auto-approved (--auto mode)")
		return Outcome{State: Approved}, nil
	}
	r.once.Do(func() { r.lines = newLineReader(r.In) })

	fmt.Fprintln(r.Out, RenderSummary(secs))

	for {
		fmt.Fprintln(r.Out, "\nWhat would you like to do?")
		fmt.Fprintln(r.Out, "  [A]pprove and save")
		fmt.Fprintln(r.Out, "  [E]dit - request changes (regenerates once)")
		fmt.Fprint(r.Out, "\nChoice [A]: ")

		line, err := r.lines.next(ctx)
		if err != nil {
			return Outcome{}, decisionErr(err)
		}
		choice := strings.ToUpper(strings.TrimSpace(line))
		if choice == "" {
			choice = "A"
		}

		switch choice {
		case "A", "APPROVE":
			return Outcome{State: Approved}, nil
		case "E", "EDIT":
			fb, err := r.collectFeedback(ctx)
			if err != nil {
				return Outcome{}, err
			}
			if fb == "" {
				fmt.Fprintln(r.Out, "\nNo feedback provided. Returning to approval menu...")
				continue
			}
			fmt.Fprintf(r.Out, "\nFeedback captured (%d characters)\n", len(fb))
			return Outcome{State: EditRequested, Feedback: fb}, nil
		default:
			fmt.Fprintln(r.Out, "Invalid choice. Please try again.")
		}
	}
}

// collectFeedback reads lines until two consecutive blank lines or EOF.
func (r *Reviewer) collectFeedback(ctx context.Context) (string, error) {
	fmt.Fprintln(r.Out, "\nDescribe the changes you need.")
	fmt.Fprintln(r.Out, "Enter your feedback (press Enter twice to finish):")

	var buf []string
	for {
		fmt.Fprint(r.Out, "> ")
		line, err := r.lines.next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(line) == "" && len(buf) > 0 && strings.TrimSpace(buf[len(buf)-1]) == "" {
			break
		}
		buf = append(buf, line)
	}
	return strings.TrimSpace(strings.Join(buf, "\n")), nil
}

func decisionErr(err error) error {
	if errors.Is(err, io.EOF) {
		return ErrNoDecision
	}
	return err
}

type readResult struct {
	line string
	err  error
}

// lineReader reads r on a goroutine so reads can be abandoned on context
// cancellation. The goroutine may stay blocked until r is closed.
type lineReader struct {
	ch chan readResult
}

func newLineReader(r io.Reader) *lineReader {
	lr := &lineReader{ch: make(chan readResult)}
	go func() {
		defer close(lr.ch)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			lr.ch <- readResult{line: scanner.Text()}
		}
		if err := scanner.Err(); err != nil {
			lr.ch <- readResult{err: err}
		}
	}()
	return lr
}

func (lr *lineReader) next(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res, ok := <-lr.ch:
		if !ok {
			return "", io.EOF
		}
		return res.line, res.err
	}
}
