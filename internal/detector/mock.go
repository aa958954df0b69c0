package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu    sync.Mutex
	hands []HandLandmarks
	err   error
	calls int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands ...HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls reports how many times Detect ran.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.hands, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// FistLandmarks returns a right hand with every finger curled and the thumb
// tucked against the index knuckle.
func FistLandmarks() HandLandmarks {
	lm := HandLandmarks{Handedness: "Right", Score: 0.95}

	lm.Points[Wrist] = Point3D{X: 0.50, Y: 0.80}

	lm.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.76}
	lm.Points[ThumbMCP] = Point3D{X: 0.57, Y: 0.72}
	lm.Points[ThumbIP] = Point3D{X: 0.55, Y: 0.70}
	lm.Points[ThumbTip] = Point3D{X: 0.53, Y: 0.70}

	lm.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.68, Z: -0.02}
	lm.Points[IndexPIP] = Point3D{X: 0.55, Y: 0.68, Z: -0.05}
	lm.Points[IndexDIP] = Point3D{X: 0.52, Y: 0.70, Z: -0.04}
	lm.Points[IndexTip] = Point3D{X: 0.50, Y: 0.72, Z: -0.02}

	lm.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.68, Z: -0.02}
	lm.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.66, Z: -0.05}
	lm.Points[MiddleDIP] = Point3D{X: 0.47, Y: 0.68, Z: -0.04}
	lm.Points[MiddleTip] = Point3D{X: 0.45, Y: 0.70, Z: -0.02}

	lm.Points[RingMCP] = Point3D{X: 0.45, Y: 0.70, Z: -0.02}
	lm.Points[RingPIP] = Point3D{X: 0.45, Y: 0.68, Z: -0.05}
	lm.Points[RingDIP] = Point3D{X: 0.42, Y: 0.70, Z: -0.04}
	lm.Points[RingTip] = Point3D{X: 0.40, Y: 0.72, Z: -0.02}

	lm.Points[PinkyMCP] = Point3D{X: 0.40, Y: 0.72, Z: -0.02}
	lm.Points[PinkyPIP] = Point3D{X: 0.40, Y: 0.70, Z: -0.05}
	lm.Points[PinkyDIP] = Point3D{X: 0.37, Y: 0.72, Z: -0.04}
	lm.Points[PinkyTip] = Point3D{X: 0.35, Y: 0.74, Z: -0.02}

	return lm
}

// IndexUpLandmarks returns a fist with only the index finger extended.
func IndexUpLandmarks() HandLandmarks {
	lm := FistLandmarks()

	lm.Points[IndexPIP] = Point3D{X: 0.56, Y: 0.55}
	lm.Points[IndexDIP] = Point3D{X: 0.57, Y: 0.45}
	lm.Points[IndexTip] = Point3D{X: 0.57, Y: 0.35}

	return lm
}

// OpenPalmLandmarks returns a right hand with every finger extended.
// All fingers are extended outward.
func OpenPalmLandmarks() HandLandmarks {
	lm := HandLandmarks{Handedness: "Right", Score: 0.95}

	lm.Points[Wrist] = Point3D{X: 0.5, Y: 0.8}

	// Thumb extended to the side
	lm.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: 0.02}
	lm.Points[ThumbMCP] = Point3D{X: 0.62, Y: 0.70, Z: 0.03}
	lm.Points[ThumbIP] = Point3D{X: 0.68, Y: 0.65, Z: 0.03}
	lm.Points[ThumbTip] = Point3D{X: 0.73, Y: 0.60, Z: 0.03}

	lm.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.68}
	lm.Points[IndexPIP] = Point3D{X: 0.57, Y: 0.55}
	lm.Points[IndexDIP] = Point3D{X: 0.58, Y: 0.45}
	lm.Points[IndexTip] = Point3D{X: 0.58, Y: 0.35}

	lm.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.66}
	lm.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.52}
	lm.Points[MiddleDIP] = Point3D{X: 0.50, Y: 0.40}
	lm.Points[MiddleTip] = Point3D{X: 0.50, Y: 0.28}

	lm.Points[RingMCP] = Point3D{X: 0.45, Y: 0.68}
	lm.Points[RingPIP] = Point3D{X: 0.43, Y: 0.55}
	lm.Points[RingDIP] = Point3D{X: 0.42, Y: 0.45}
	lm.Points[RingTip] = Point3D{X: 0.42, Y: 0.35}

	lm.Points[PinkyMCP] = Point3D{X: 0.40, Y: 0.70}
	lm.Points[PinkyPIP] = Point3D{X: 0.37, Y: 0.60}
	lm.Points[PinkyDIP] = Point3D{X: 0.35, Y: 0.50}
	lm.Points[PinkyTip] = Point3D{X: 0.34, Y: 0.42}

	return lm
}
