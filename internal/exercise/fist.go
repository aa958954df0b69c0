package exercise

import (
	"fmt"
	"time"

	"github.com/ayusman/handcoach/internal/posture"
)

// Fist accepts at most one raised finger.
type Fist struct{}

func (Fist) Kind() Kind { return KindFist }

func (Fist) Evaluate(p posture.Vector, _ time.Time) Verdict {
	raised := p.Raised()
	if raised <= 1 {
		return Verdict{Correct: true, Message: "Fist is clenched correctly!"}
	}
	return Verdict{Message: fmt.Sprintf("Close your fingers (%d raised)", raised)}
}

// FingerStatus wants every finger lowered.
func (Fist) FingerStatus(p posture.Vector) [posture.NumFingers]FingerStatus {
	return statusAgainst(p, posture.Vector{})
}

func (Fist) Progress(time.Time) *Progress { return nil }

func (Fist) Reset(time.Time) {}

// FistIndex wants the index finger raised and middle, ring and pinky lowered.
// The thumb is free.
type FistIndex struct{}

func (FistIndex) Kind() Kind { return KindFistIndex }

func (FistIndex) Evaluate(p posture.Vector, _ time.Time) Verdict {
	indexUp := p[posture.Index]
	othersUp := p[posture.Middle] || p[posture.Ring] || p[posture.Pinky]

	switch {
	case indexUp && !othersUp:
		return Verdict{Correct: true, Message: "Index finger raised, others clenched!"}
	case !indexUp:
		return Verdict{Message: "Raise your index finger"}
	default:
		return Verdict{Message: "Lower the other fingers"}
	}
}

// FingerStatus shows the thumb as lowered too, even though Evaluate ignores it.
func (FistIndex) FingerStatus(p posture.Vector) [posture.NumFingers]FingerStatus {
	return statusAgainst(p, posture.Vector{posture.Index: true})
}

func (FistIndex) Progress(time.Time) *Progress { return nil }

func (FistIndex) Reset(time.Time) {}
