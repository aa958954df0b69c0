// Package detector provides hand landmark types and the detector collaborator
// that turns camera frames into keypoints.
package detector

import (
	"errors"
	"fmt"
	"math"
)

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// FingerTips lists the tip landmark of each finger, thumb first.
var FingerTips = [5]int{ThumbTip, IndexTip, MiddleTip, RingTip, PinkyTip}

// FingerPIPs lists the proximal interphalangeal joint of each finger.
// The thumb has no PIP; its IP joint stands in.
var FingerPIPs = [5]int{ThumbIP, IndexPIP, MiddlePIP, RingPIP, PinkyPIP}

// ErrInvalidKeypoints is returned when keypoint input cannot describe one hand.
var ErrInvalidKeypoints = errors.New("invalid keypoints")

// Point3D represents a landmark position. X and Y are normalized to the
// frame; Z is relative depth and unused by the classifier.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandLandmarks represents the 21 hand landmarks detected by MediaPipe.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// Keypoints binds the landmarks to the dimensions of the frame they came from.
func (h *HandLandmarks) Keypoints(width, height int) *KeypointSet {
	if h == nil {
		return nil
	}
	return &KeypointSet{Points: h.Points, Width: width, Height: height}
}

// KeypointSet is one hand's landmarks for a single evaluation, plus the
// pixel size of the source frame.
type KeypointSet struct {
	Points [NumLandmarks]Point3D `json:"points"`
	Width  int                   `json:"width"`
	Height int                   `json:"height"`
}

// NewKeypointSet validates raw points and returns a KeypointSet.
// Exactly NumLandmarks finite points are required.
func NewKeypointSet(points []Point3D, width, height int) (*KeypointSet, error) {
	if len(points) != NumLandmarks {
		return nil, fmt.Errorf("%w: got %d points, want %d", ErrInvalidKeypoints, len(points), NumLandmarks)
	}
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("%w: negative frame size %dx%d", ErrInvalidKeypoints, width, height)
	}

	ks := &KeypointSet{Width: width, Height: height}
	for i, p := range points {
		if !finite(p.X) || !finite(p.Y) || !finite(p.Z) {
			return nil, fmt.Errorf("%w: point %d is not finite", ErrInvalidKeypoints, i)
		}
		ks.Points[i] = p
	}
	return ks, nil
}

// PointsFromPairs converts [x, y] or [x, y, z] tuples into points.
func PointsFromPairs(pairs [][]float64) ([]Point3D, error) {
	points := make([]Point3D, len(pairs))
	for i, pair := range pairs {
		switch len(pair) {
		case 2:
			points[i] = Point3D{X: pair[0], Y: pair[1]}
		case 3:
			points[i] = Point3D{X: pair[0], Y: pair[1], Z: pair[2]}
		default:
			return nil, fmt.Errorf("%w: point %d has %d coordinates", ErrInvalidKeypoints, i, len(pair))
		}
	}
	return points, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
