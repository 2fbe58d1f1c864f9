// Package approval implements the one-shot human review of a generated
// document set: approve it as is, or request a single regeneration with
// feedback.
package approval

import (
	"errors"
	"fmt"
	"strings"
)

type State int

const (
	AwaitingDecision State = iota
	Approved
	EditRequested
	RegeneratedAwaitingFinalize
)

func (s State) String() string {
	switch s {
	case AwaitingDecision:
		return "awaiting_decision"
	case Approved:
		return "approved"
	case EditRequested:
		return "edit_requested"
	case RegeneratedAwaitingFinalize:
		return "regenerated_awaiting_finalize"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// ErrCycleClosed is returned for any decision after the cycle has left
// AwaitingDecision. A regenerated document is finalized without a second
// review.
var ErrCycleClosed = errors.New("approval: review cycle is closed")

// Outcome is a reviewer's decision. Feedback is set only for EditRequested.
type Outcome struct {
	State    State
	Feedback string
}

// Cycle tracks one review. It permits at most one edit iteration.
type Cycle struct {
	state    State
	feedback string
}

func NewCycle() *Cycle {
	return &Cycle{state: AwaitingDecision}
}

func (c *Cycle) State() State     { return c.state }
func (c *Cycle) Feedback() string { return c.feedback }

// Decide applies a reviewer outcome. Only Approved, or EditRequested with
// non-blank feedback, are accepted, and only while awaiting a decision.
func (c *Cycle) Decide(o Outcome) error {
	if c.state != AwaitingDecision {
		return ErrCycleClosed
	}
	switch o.State {
	case Approved:
		c.state = Approved
	case EditRequested:
		fb := strings.TrimSpace(o.Feedback)
		if fb == "" {
			return errors.New("approval: edit requested without feedback")
		}
		c.state = EditRequested
		c.feedback = fb
	default:
		return fmt.Errorf("approval: cannot decide %s", o.State)
	}
	return nil
}

// Regenerated records that the edit pass has produced a new document.
func (c *Cycle) Regenerated() error {
	if c.state != EditRequested {
		return fmt.Errorf("approval: regenerated in state %s", c.state)
	}
	c.state = RegeneratedAwaitingFinalize
	return nil
}
