package exercise

import (
	"fmt"
	"time"

	"github.com/ayusman/handcoach/internal/posture"
)

// FingerStatus tells a renderer whether a finger matches what the exercise
// currently wants from it.
type FingerStatus string

const (
	StatusOK    FingerStatus = "ok"
	StatusWrong FingerStatus = "wrong"
)

// Event marks a milestone reached during an evaluation.
type Event string

const (
	EventNone              Event = ""
	EventCycleCompleted    Event = "cycle_completed"
	EventExerciseCompleted Event = "exercise_completed"
)

// Verdict is the outcome of evaluating one posture.
type Verdict struct {
	Correct  bool
	Message  string
	Progress *Progress // nil for stateless rules
	Event    Event
}

// Rule evaluates postures for one exercise.
//
// Stateless rules ignore now and return the same Verdict for the same
// posture. Stateful rules advance on every Evaluate and are not safe for
// concurrent use; callers serialize access per session.
type Rule interface {
	Kind() Kind
	Evaluate(p posture.Vector, now time.Time) Verdict
	FingerStatus(p posture.Vector) [posture.NumFingers]FingerStatus
	// Progress reports the current state without advancing it. Nil for
	// stateless rules.
	Progress(now time.Time) *Progress
	Reset(now time.Time)
}

// Options configure rule construction. They are fixed for the lifetime of
// a rule instance.
type Options struct {
	Hold        time.Duration
	TotalCycles int
}

// DefaultOptions returns a three second hold and five cycles.
func DefaultOptions() Options {
	return Options{
		Hold:        3 * time.Second,
		TotalCycles: 5,
	}
}

// Validate rejects options a HoldMachine cannot run with.
func (o Options) Validate() error {
	if o.Hold <= 0 {
		return fmt.Errorf("hold duration must be positive, got %s", o.Hold)
	}
	if o.TotalCycles <= 0 {
		return fmt.Errorf("total cycles must be positive, got %d", o.TotalCycles)
	}
	return nil
}

// NewRule constructs a fresh rule for k.
func NewRule(k Kind, opts Options, now time.Time) (Rule, error) {
	switch k {
	case KindFist:
		return Fist{}, nil
	case KindFistIndex:
		return FistIndex{}, nil
	case KindFistPalm:
		if err := opts.Validate(); err != nil {
			return nil, err
		}
		return NewFistPalm(opts, now), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownExercise, string(k))
}

// statusAgainst marks each finger ok when it matches want.
func statusAgainst(p, want posture.Vector) [posture.NumFingers]FingerStatus {
	var out [posture.NumFingers]FingerStatus
	for i := range p {
		if p[i] == want[i] {
			out[i] = StatusOK
		} else {
			out[i] = StatusWrong
		}
	}
	return out
}
