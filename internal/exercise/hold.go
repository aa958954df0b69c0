package exercise

import (
	"math"
	"time"

	"github.com/ayusman/handcoach/internal/posture"
)

// State is a HoldMachine state.
type State string

const (
	StateWaitingFist State = "waiting_fist"
	StateHoldingFist State = "holding_fist"
	StateWaitingPalm State = "waiting_palm"
	StateHoldingPalm State = "holding_palm"
	StateCompleted   State = "completed"
)

// DisplayName is the short label shown next to the progress bar.
func (s State) DisplayName() string {
	switch s {
	case StateWaitingFist:
		return "Waiting for fist"
	case StateHoldingFist:
		return "Hold the fist"
	case StateWaitingPalm:
		return "Waiting for palm"
	case StateHoldingPalm:
		return "Hold the palm"
	case StateCompleted:
		return "Exercise complete"
	}
	return "Unknown"
}

// Holding reports whether s is timing a hold.
func (s State) Holding() bool {
	return s == StateHoldingFist || s == StateHoldingPalm
}

// fistPhase reports whether s wants a fist rather than a palm.
func (s State) fistPhase() bool {
	return s == StateWaitingFist || s == StateHoldingFist
}

// Fist-like and palm-like thresholds. The fist threshold is looser than the
// Fist exercise so a slightly open fist survives a long hold.
const (
	maxFistRaised = 2
	minPalmRaised = 3
)

func fistLike(p posture.Vector) bool { return p.Raised() <= maxFistRaised }
func palmLike(p posture.Vector) bool { return p.Raised() >= minPalmRaised }

// Progress is the externally visible state of a HoldMachine.
type Progress struct {
	State           State   `json:"state"`
	StateName       string  `json:"state_name"`
	CurrentCycle    int     `json:"current_cycle"`
	TotalCycles     int     `json:"total_cycles"`
	Countdown       *int    `json:"countdown"`
	ProgressPercent float64 `json:"progress_percent"`
}

// HoldMachine walks a user through TotalCycles repetitions of
// fist-hold then palm-hold. It has no timer of its own: every transition is
// decided by comparing now with the time the current state was entered.
//
// Invariants: 0 <= cycle <= total, and state == StateCompleted exactly when
// cycle == total.
type HoldMachine struct {
	state     State
	enteredAt time.Time
	cycle     int
	total     int
	hold      time.Duration
}

// NewHoldMachine returns a machine in StateWaitingFist.
func NewHoldMachine(hold time.Duration, totalCycles int, now time.Time) *HoldMachine {
	m := &HoldMachine{hold: hold, total: totalCycles}
	m.Reset(now)
	return m
}

// Reset returns to the first phase of the first cycle.
func (m *HoldMachine) Reset(now time.Time) {
	m.state = StateWaitingFist
	m.enteredAt = now
	m.cycle = 0
}

func (m *HoldMachine) State() State         { return m.state }
func (m *HoldMachine) Cycle() int           { return m.cycle }
func (m *HoldMachine) TotalCycles() int     { return m.total }
func (m *HoldMachine) Hold() time.Duration  { return m.hold }
func (m *HoldMachine) EnteredAt() time.Time { return m.enteredAt }

// Advance applies one posture observed at now and returns the milestone, if
// any, reached by this step. Releasing a hold early drops back to the
// matching waiting state with no credit kept.
func (m *HoldMachine) Advance(p posture.Vector, now time.Time) Event {
	switch m.state {
	case StateWaitingFist:
		if fistLike(p) {
			m.enter(StateHoldingFist, now)
		}

	case StateHoldingFist:
		switch {
		case !fistLike(p):
			m.state = StateWaitingFist
		case m.elapsed(now) >= m.hold:
			m.enter(StateWaitingPalm, now)
		}

	case StateWaitingPalm:
		if palmLike(p) {
			m.enter(StateHoldingPalm, now)
		}

	case StateHoldingPalm:
		switch {
		case !palmLike(p):
			m.state = StateWaitingPalm
		case m.elapsed(now) >= m.hold:
			m.cycle++
			if m.cycle >= m.total {
				m.cycle = m.total
				m.state = StateCompleted
				return EventExerciseCompleted
			}
			m.enter(StateWaitingFist, now)
			return EventCycleCompleted
		}

	case StateCompleted:
	}
	return EventNone
}

// Progress snapshots the machine as seen at now.
func (m *HoldMachine) Progress(now time.Time) *Progress {
	p := &Progress{
		State:        m.state,
		StateName:    m.state.DisplayName(),
		CurrentCycle: m.cycle,
		TotalCycles:  m.total,
	}
	if m.state.Holding() {
		countdown := m.countdown(now)
		p.Countdown = &countdown
		p.ProgressPercent = math.Min(100, 100*m.elapsed(now).Seconds()/m.hold.Seconds())
	}
	return p
}

func (m *HoldMachine) enter(s State, now time.Time) {
	m.state = s
	m.enteredAt = now
}

// elapsed is clamped at zero so a clock step backwards cannot produce
// negative progress.
func (m *HoldMachine) elapsed(now time.Time) time.Duration {
	d := now.Sub(m.enteredAt)
	if d < 0 {
		return 0
	}
	return d
}

// countdown is the number of whole seconds left in the hold, rounded up.
func (m *HoldMachine) countdown(now time.Time) int {
	remaining := (m.hold - m.elapsed(now)).Seconds()
	if remaining <= 0 {
		return 0
	}
	return int(math.Ceil(remaining))
}
