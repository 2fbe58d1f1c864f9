package approval

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/jorge-barreto/docgen/internal/sections"
)

func docs() sections.Sections {
	return sections.Sections{
		sections.Readme:       "# Widget\n\nWidget renders charts.",
		sections.APIReference: "# API\n\n**GET** /charts",
	}
}

func review(t *testing.T, input string) (Outcome, string, error) {
	t.Helper()
	var out bytes.Buffer
	r := &Reviewer{In: strings.NewReader(input), Out: &out}
	o, err := r.Review(context.Background(), docs())
	return o, out.String(), err
}

func TestReview_AutoApprove(t *testing.T) {
	var out bytes.Buffer
	r := &Reviewer{In: strings.NewReader(""), Out: &out, AutoApprove: true}
	o, err := r.Review(context.Background(), docs())
	if err != nil {
		t.Fatal(err)
	}
	if o.State != Approved {
		t.Fatalf("State = %s", o.State)
	}
	if !strings.Contains(out.String(), "auto-approved") {
		t.Fatalf("output = %q", out.String())
	}
}

func TestReview_Approve(t *testing.T) {
	for _, in := range []string{"a\n", "A\n", "approve\n", "\n"} {
		o, out, err := review(t, in)
		if err != nil {
			t.Fatalf("input %q: %v", in, err)
		}
		if o.State != Approved {
			t.Fatalf("input %q: State = %s", in, o.State)
		}
		if !strings.Contains(out, sections.Readme) {
			t.Fatalf("summary missing section name: %q", out)
		}
	}
}

func TestReview_InvalidChoiceReprompts(t *testing.T) {
	o, out, err := review(t, "x\nmaybe\na\n")
	if err != nil {
		t.Fatal(err)
	}
	if o.State != Approved {
		t.Fatalf("State = %s", o.State)
	}
	if strings.Count(out, "Invalid choice") != 2 {
		t.Fatalf("expected two re-prompts, got %q", out)
	}
}

func TestReview_EditWithFeedback(t *testing.T) {
	o, out, err := review(t, "e\nadd install steps\n\n\n")
	if err != nil {
		t.Fatal(err)
	}
	if o.State != EditRequested || o.Feedback != "add install steps" {
		t.Fatalf("got %+v", o)
	}
	if strings.Count(out, "Choice [A]") != 1 {
		t.Fatalf("expected a single prompt, got %q", out)
	}
}

func TestReview_MultilineFeedbackKeepsSingleBlanks(t *testing.T) {
	o, _, err := review(t, "edit\nfirst point\n\nsecond point\n\n\n")
	if err != nil {
		t.Fatal(err)
	}
	if o.Feedback != "first point\n\nsecond point" {
		t.Fatalf("Feedback = %q", o.Feedback)
	}
}

func TestReview_FeedbackEndsAtEOF(t *testing.T) {
	o, _, err := review(t, "e\nline one\nline two")
	if err != nil {
		t.Fatal(err)
	}
	if o.State != EditRequested || o.Feedback != "line one\nline two" {
		t.Fatalf("got %+v", o)
	}
}

func TestReview_BlankFeedbackReturnsToMenu(t *testing.T) {
	o, out, err := review(t, "e\n\n\na\n")
	if err != nil {
		t.Fatal(err)
	}
	if o.State != Approved {
		t.Fatalf("State = %s", o.State)
	}
	if !strings.Contains(out, "No feedback provided") {
		t.Fatalf("output = %q", out)
	}
	if strings.Count(out, "Choice [A]") != 2 {
		t.Fatalf("expected the menu twice, got %q", out)
	}
}

func TestReview_EOFBeforeDecision(t *testing.T) {
	_, _, err := review(t, "")
	if !errors.Is(err, ErrNoDecision) {
		t.Fatalf("err = %v, want ErrNoDecision", err)
	}
}

func TestReview_BlankFeedbackThenEOF(t *testing.T) {
	_, _, err := review(t, "e\n   \n")
	if !errors.Is(err, ErrNoDecision) {
		t.Fatalf("err = %v, want ErrNoDecision", err)
	}
}

func TestReview_ContextCancelled(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	r := &Reviewer{In: pr, Out: io.Discard}

	done := make(chan error, 1)
	go func() {
		_, err := r.Review(ctx, docs())
		done <- err
	}()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Review did not return after cancellation")
	}
}

func TestCycle_Approve(t *testing.T) {
	c := NewCycle()
	if err := c.Decide(Outcome{State: Approved}); err != nil {
		t.Fatal(err)
	}
	if c.State() != Approved {
		t.Fatalf("State = %s", c.State())
	}
	if err := c.Decide(Outcome{State: EditRequested, Feedback: "x"}); !errors.Is(err, ErrCycleClosed) {
		t.Fatalf("err = %v", err)
	}
}

func TestCycle_SingleEditIteration(t *testing.T) {
	c := NewCycle()
	if err := c.Decide(Outcome{State: EditRequested, Feedback: "  add install steps "}); err != nil {
		t.Fatal(err)
	}
	if c.Feedback() != "add install steps" {
		t.Fatalf("Feedback = %q", c.Feedback())
	}
	if err := c.Regenerated(); err != nil {
		t.Fatal(err)
	}
	if c.State() != RegeneratedAwaitingFinalize {
		t.Fatalf("State = %s", c.State())
	}
	if err := c.Decide(Outcome{State: EditRequested, Feedback: "more"}); !errors.Is(err, ErrCycleClosed) {
		t.Fatalf("second edit: err = %v", err)
	}
	if err := c.Regenerated(); err == nil {
		t.Fatal("expected error regenerating twice")
	}
}

func TestCycle_BlankFeedbackStaysAwaiting(t *testing.T) {
	c := NewCycle()
	if err := c.Decide(Outcome{State: EditRequested, Feedback: "\n  \n"}); err == nil {
		t.Fatal("expected error for blank feedback")
	}
	if c.State() != AwaitingDecision {
		t.Fatalf("State = %s", c.State())
	}
}

func TestSummarize(t *testing.T) {
	long := strings.Repeat("x", 100)
	got := Summarize(sections.Sections{
		sections.Readme:   "# Title\n---\nFirst real line.\nsecond",
		sections.Examples: long,
		"NOTES.md":        "# Only\n## Headings",
	})
	if len(got) != 3 || got[0].Name != sections.Readme || got[2].Name != "NOTES.md" {
		t.Fatalf("order = %+v", got)
	}
	if got[0].Lines != 4 || got[0].Words != 7 || got[0].Preview != "First real line." {
		t.Fatalf("README summary = %+v", got[0])
	}
	if got[1].Preview != strings.Repeat("x", 80)+"..." {
		t.Fatalf("Preview = %q", got[1].Preview)
	}
	if got[2].Preview != "" {
		t.Fatalf("Preview = %q", got[2].Preview)
	}
}
