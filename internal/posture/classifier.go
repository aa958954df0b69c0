// Package posture classifies each finger of a detected hand as raised or
// lowered. Classification is a pure per-frame function with no smoothing.
package posture

import (
	"math"

	"github.com/ayusman/handcoach/internal/detector"
)

// Finger indexes a posture Vector.
type Finger int

const (
	Thumb Finger = iota
	Index
	Middle
	Ring
	Pinky

	NumFingers = 5
)

var fingerNames = [NumFingers]string{"thumb", "index", "middle", "ring", "pinky"}

func (f Finger) String() string {
	if f < 0 || int(f) >= NumFingers {
		return "unknown"
	}
	return fingerNames[f]
}

// Vector holds the raised state of each finger, thumb first.
type Vector [NumFingers]bool

// Raised counts raised fingers.
func (v Vector) Raised() int {
	n := 0
	for _, up := range v {
		if up {
			n++
		}
	}
	return n
}

// Slice returns the vector as a fresh slice, suitable for JSON output.
func (v Vector) Slice() []bool {
	return append([]bool(nil), v[:]...)
}

// Pixel is a position in frame pixel coordinates.
type Pixel struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Thresholds tune the raise rules, in normalized frame units.
type Thresholds struct {
	// VerticalMargin is how far a fingertip must sit above its PIP joint.
	VerticalMargin float64
	// ThumbDistance is the L1 distance between thumb tip and index MCP
	// beyond which the thumb counts as raised.
	ThumbDistance float64
}

// DefaultThresholds returns the thresholds used by every exercise.
func DefaultThresholds() Thresholds {
	return Thresholds{
		VerticalMargin: 0.02,
		ThumbDistance:  0.15,
	}
}

// Classification is the classifier output for one frame.
type Classification struct {
	Fingers Vector
	Tips    [NumFingers]Pixel
}

// Classifier applies Thresholds to keypoints. It holds no per-frame state
// and is safe for concurrent use.
type Classifier struct {
	thresholds Thresholds
}

// NewClassifier creates a Classifier. Zero thresholds fall back to defaults.
func NewClassifier(t Thresholds) *Classifier {
	def := DefaultThresholds()
	if t.VerticalMargin <= 0 {
		t.VerticalMargin = def.VerticalMargin
	}
	if t.ThumbDistance <= 0 {
		t.ThumbDistance = def.ThumbDistance
	}
	return &Classifier{thresholds: t}
}

// Thresholds returns the thresholds in effect.
func (c *Classifier) Thresholds() Thresholds {
	return c.thresholds
}

// Classify returns the posture vector and fingertip pixel positions.
// ks must be a validated 21-point set; absence of a hand is handled upstream.
func (c *Classifier) Classify(ks *detector.KeypointSet) Classification {
	var out Classification
	for f := 0; f < NumFingers; f++ {
		tip := ks.Points[detector.FingerTips[f]]
		out.Tips[f] = Pixel{
			X: int(tip.X * float64(ks.Width)),
			Y: int(tip.Y * float64(ks.Height)),
		}

		if Finger(f) == Thumb {
			mcp := ks.Points[detector.IndexMCP]
			dist := math.Abs(tip.X-mcp.X) + math.Abs(tip.Y-mcp.Y)
			out.Fingers[f] = dist > c.thresholds.ThumbDistance
			continue
		}

		// Smaller y is higher in the frame.
		pip := ks.Points[detector.FingerPIPs[f]]
		out.Fingers[f] = tip.Y < pip.Y-c.thresholds.VerticalMargin
	}
	return out
}
