// Package sequence executes ordered pump protocols. Motion commands are
// strictly ordered: each one is only meaningful given the mechanical
// state the previous one left behind, so there is no reordering and no
// parallel dispatch.
package sequence

import (
	"context"
	"fmt"
	"time"

	"github.com/maxladabaum/experiment-automation/pump"
)

// Step pairs a command with the settle delay to wait after it completes.
// Delays are data, chosen empirically per motion class, not sleeps buried
// in control flow.
type Step struct {
	Command pump.Command
	Settle  time.Duration
}

// Empirical settle times for the Centris mechanics.
const (
	HomeSettle    = 1500 * time.Millisecond
	ValveSettle   = 900 * time.Millisecond
	PlungerSettle = 1 * time.Second
)

// SequenceAborted reports the step at which the run stopped. When Err is
// the session's failure, the command at Index was issued and failed; when
// Err is a context error the run was cancelled at Index, and that step's
// command may already have completed (cancellation is honored during the
// settle wait too). Later steps were never issued either way.
type SequenceAborted struct {
	Index int
	Err   error
}

func (e *SequenceAborted) Error() string {
	return fmt.Sprintf("sequence aborted at step %d: %v", e.Index, e.Err)
}

func (e *SequenceAborted) Unwrap() error { return e.Err }

// Session is the part of the pump session a sequence drives.
type Session interface {
	Execute(cmd pump.Command) (string, error)
}

// Run executes steps in order against s, sleeping each step's settle
// delay after the command returns. It stops at the first failure.
// Cancellation is honored between steps and during settle waits, never
// mid-command: an issued motion must complete or fault on its own.
func Run(ctx context.Context, s Session, steps []Step) error {
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			return &SequenceAborted{Index: i, Err: err}
		}
		if _, err := s.Execute(step.Command); err != nil {
			return &SequenceAborted{Index: i, Err: err}
		}
		if step.Settle > 0 {
			select {
			case <-ctx.Done():
				return &SequenceAborted{Index: i, Err: ctx.Err()}
			case <-time.After(step.Settle):
			}
		}
	}
	return nil
}
