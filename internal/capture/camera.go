// Package capture reads frames from a local camera for the practice loop.
package capture

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// Default camera settings
const (
	DefaultFPS    = 15
	DefaultWidth  = 640
	DefaultHeight = 480
)

var (
	// ErrCameraNotOpen is returned when trying to read from a camera that is not open.
	ErrCameraNotOpen = errors.New("camera is not open")
	// ErrNoFrame is returned when the device produced no usable frame.
	ErrNoFrame = errors.New("no frame available")
)

// Camera is a frame source. Callers own the returned Mats.
type Camera interface {
	Open() error
	Close() error
	ReadFrame() (*gocv.Mat, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
}

// Options configure a device camera.
type Options struct {
	DeviceID int
	FPS      int
	Width    int
	Height   int
	// Mirror flips frames horizontally so the preview matches the user's
	// point of view.
	Mirror bool
}

// deviceCamera reads from a camera device through GoCV.
type deviceCamera struct {
	opts    Options
	capture *gocv.VideoCapture
	mu      sync.Mutex
}

// NewCamera creates a Camera for the given device. Zero options fall back to
// the package defaults.
func NewCamera(opts Options) Camera {
	if opts.FPS <= 0 {
		opts.FPS = DefaultFPS
	}
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	return &deviceCamera{opts: opts}
}

// Open opens the device at the configured resolution.
func (c *deviceCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture != nil {
		return nil
	}

	capture, err := gocv.OpenVideoCapture(c.opts.DeviceID)
	if err != nil {
		return fmt.Errorf("open camera %d: %w", c.opts.DeviceID, err)
	}

	capture.Set(gocv.VideoCaptureFrameWidth, float64(c.opts.Width))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(c.opts.Height))
	capture.Set(gocv.VideoCaptureFPS, float64(c.opts.FPS))

	c.capture = capture
	return nil
}

// Close releases the device. Closing a closed camera is a no-op.
func (c *deviceCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		return nil
	}
	err := c.capture.Close()
	c.capture = nil
	return err
}

// ReadFrame reads a single frame. The caller is responsible for closing the
// returned Mat.
func (c *deviceCamera) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		return nil, ErrNoFrame
	}

	if c.opts.Mirror {
		gocv.Flip(mat, &mat, 1)
	}
	return &mat, nil
}

// SetFPS sets the capture rate. Values less than or equal to 0 are ignored.
func (c *deviceCamera) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.opts.FPS = fps
	if c.capture != nil {
		c.capture.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

// FPS returns the current capture rate.
func (c *deviceCamera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opts.FPS
}

// IsOpen reports whether the device is open.
func (c *deviceCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.capture != nil
}
