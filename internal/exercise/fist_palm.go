package exercise

import (
	"fmt"
	"time"

	"github.com/ayusman/handcoach/internal/posture"
)

// FistPalm is the stateful fist/palm cycle exercise. It wraps a HoldMachine
// and turns its state into messages and finger statuses.
type FistPalm struct {
	machine *HoldMachine
}

// NewFistPalm creates the exercise in its initial state.
func NewFistPalm(opts Options, now time.Time) *FistPalm {
	return &FistPalm{machine: NewHoldMachine(opts.Hold, opts.TotalCycles, now)}
}

func (e *FistPalm) Kind() Kind { return KindFistPalm }

// Machine exposes the underlying state machine.
func (e *FistPalm) Machine() *HoldMachine { return e.machine }

// Evaluate advances the machine. Correct reports whether the posture matches
// the phase the machine is in after the step.
func (e *FistPalm) Evaluate(p posture.Vector, now time.Time) Verdict {
	event := e.machine.Advance(p, now)
	progress := e.machine.Progress(now)

	return Verdict{
		Correct:  e.matchesPhase(p),
		Message:  e.message(progress),
		Progress: progress,
		Event:    event,
	}
}

// FingerStatus wants fingers lowered in the fist phases and raised otherwise.
func (e *FistPalm) FingerStatus(p posture.Vector) [posture.NumFingers]FingerStatus {
	if e.machine.State().fistPhase() {
		return statusAgainst(p, posture.Vector{})
	}
	return statusAgainst(p, posture.Vector{true, true, true, true, true})
}

func (e *FistPalm) Progress(now time.Time) *Progress {
	return e.machine.Progress(now)
}

func (e *FistPalm) Reset(now time.Time) {
	e.machine.Reset(now)
}

// Message renders the instruction for the current state without advancing.
func (e *FistPalm) Message(now time.Time) string {
	return e.message(e.machine.Progress(now))
}

func (e *FistPalm) matchesPhase(p posture.Vector) bool {
	switch s := e.machine.State(); {
	case s == StateCompleted:
		return true
	case s.fistPhase():
		return fistLike(p)
	default:
		return palmLike(p)
	}
}

func (e *FistPalm) message(p *Progress) string {
	cycle := fmt.Sprintf("(cycle %d/%d)", min(p.CurrentCycle+1, p.TotalCycles), p.TotalCycles)
	countdown := 0
	if p.Countdown != nil {
		countdown = *p.Countdown
	}

	switch p.State {
	case StateWaitingFist:
		return "Step 1/4: make a fist " + cycle
	case StateHoldingFist:
		return fmt.Sprintf("Step 2/4: hold the fist... %d %s", countdown, cycle)
	case StateWaitingPalm:
		return "Step 3/4: open your palm " + cycle
	case StateHoldingPalm:
		return fmt.Sprintf("Step 4/4: hold the palm... %d %s", countdown, cycle)
	case StateCompleted:
		return fmt.Sprintf("Exercise complete! %d cycles done", p.TotalCycles)
	}
	return ""
}
