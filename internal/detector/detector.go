package detector

import (
	"time"

	"gocv.io/x/gocv"
)

// Detector defines the interface for hand detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns detected hand landmarks.
	// Returns an empty slice if no hands are detected.
	Detect(frame *gocv.Mat) ([]HandLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for hand detection.
type Config struct {
	// MaxHands is the maximum number of hands to detect. Exercises only
	// ever classify one hand.
	MaxHands int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64

	// IdleTimeout stops the helper process after this long without frames.
	IdleTimeout time.Duration
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxHands:        1,
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
		IdleTimeout:     30 * time.Second,
	}
}

// Primary returns the first detected hand as keypoints for the given frame,
// or nil when no hand was found.
func Primary(hands []HandLandmarks, frame *gocv.Mat) *KeypointSet {
	if len(hands) == 0 {
		return nil
	}
	width, height := 0, 0
	if frame != nil {
		width, height = frame.Cols(), frame.Rows()
	}
	return hands[0].Keypoints(width, height)
}
