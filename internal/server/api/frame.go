package api

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	"gocv.io/x/gocv"

	"github.com/ayusman/handcoach/internal/detector"
	"github.com/ayusman/handcoach/internal/exercise"
	"github.com/ayusman/handcoach/internal/session"
)

// ErrNoDetector is returned for image frames when no detector is configured.
var ErrNoDetector = errors.New("no hand detector configured")

// FrameRequest is the body of a frame submission, over HTTP or WebSocket.
// Exactly one of Keypoints, Frame or NoHand describes the hand.
type FrameRequest struct {
	Keypoints [][]float64 `json:"keypoints,omitempty"`
	Width     int         `json:"width,omitempty"`
	Height    int         `json:"height,omitempty"`
	// Frame is a base64 encoded image run through the detector.
	Frame  string `json:"frame,omitempty"`
	NoHand bool   `json:"no_hand,omitempty"`

	Exercise string `json:"exercise,omitempty"`
	Reset    bool   `json:"reset,omitempty"`
}

// FrameDecoder turns a FrameRequest into a session.Frame.
type FrameDecoder struct {
	detector detector.Detector
}

// NewFrameDecoder creates a FrameDecoder. d may be nil, in which case image
// frames are rejected with ErrNoDetector.
func NewFrameDecoder(d detector.Detector) *FrameDecoder {
	return &FrameDecoder{detector: d}
}

// Decode validates req. Keypoint problems wrap detector.ErrInvalidKeypoints
// and unknown exercise ids wrap exercise.ErrUnknownExercise.
func (d *FrameDecoder) Decode(req *FrameRequest) (session.Frame, error) {
	var f session.Frame

	if req.Exercise != "" {
		kind, err := exercise.ParseKind(req.Exercise)
		if err != nil {
			return f, err
		}
		f.Exercise = kind
	}
	f.Reset = req.Reset

	sources := 0
	for _, set := range []bool{len(req.Keypoints) > 0, req.Frame != "", req.NoHand} {
		if set {
			sources++
		}
	}
	if sources > 1 {
		return f, fmt.Errorf("%w: keypoints, frame and no_hand are exclusive", detector.ErrInvalidKeypoints)
	}

	switch {
	case req.NoHand:
		return f, nil

	case len(req.Keypoints) > 0:
		points, err := detector.PointsFromPairs(req.Keypoints)
		if err != nil {
			return f, err
		}
		ks, err := detector.NewKeypointSet(points, req.Width, req.Height)
		if err != nil {
			return f, err
		}
		f.Hand = ks
		return f, nil

	case req.Frame != "":
		ks, err := d.detect(req.Frame)
		if err != nil {
			return f, err
		}
		f.Hand = ks
		return f, nil
	}

	// A frame-less request still applies Exercise and Reset.
	if f.Exercise != "" || f.Reset {
		return f, nil
	}
	return f, fmt.Errorf("%w: request has no keypoints, frame or no_hand", detector.ErrInvalidKeypoints)
}

// detect decodes an image and returns the primary hand, or nil when the
// detector found none.
func (d *FrameDecoder) detect(encoded string) (*detector.KeypointSet, error) {
	if d.detector == nil {
		return nil, ErrNoDetector
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: frame is not valid base64", detector.ErrInvalidKeypoints)
	}

	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", detector.ErrInvalidKeypoints, err)
	}
	defer mat.Close()
	if mat.Empty() {
		return nil, fmt.Errorf("%w: frame is not a decodable image", detector.ErrInvalidKeypoints)
	}

	hands, err := d.detector.Detect(&mat)
	if err != nil {
		return nil, fmt.Errorf("detect hands: %w", err)
	}
	return detector.Primary(hands, &mat), nil
}

// frameStatus maps a decode or evaluate error to an HTTP status.
func frameStatus(err error) int {
	switch {
	case errors.Is(err, detector.ErrInvalidKeypoints), errors.Is(err, exercise.ErrUnknownExercise):
		return http.StatusBadRequest
	case errors.Is(err, ErrNoDetector):
		return http.StatusNotImplemented
	case errors.Is(err, session.ErrSessionClosed):
		return http.StatusGone
	}
	return http.StatusInternalServerError
}
