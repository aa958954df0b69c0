package capture

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockCamera plays back a fixed sequence of frames. It is used by tests and
// by the practice loop when no device is available.
type MockCamera struct {
	frames []*gocv.Mat
	index  int
	loop   bool
	fps    int
	reads  int
	mu     sync.Mutex
	open   bool
}

// NewMockCamera creates a MockCamera. With loop set, playback restarts after
// the last frame; otherwise ReadFrame returns ErrNoFrame.
func NewMockCamera(frames []*gocv.Mat, loop bool) *MockCamera {
	return &MockCamera{
		frames: frames,
		loop:   loop,
		fps:    DefaultFPS,
	}
}

func (c *MockCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = true
	c.index = 0
	return nil
}

func (c *MockCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = false
	return nil
}

// ReadFrame returns a clone of the next frame.
func (c *MockCamera) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.open {
		return nil, ErrCameraNotOpen
	}
	if c.index >= len(c.frames) {
		if !c.loop || len(c.frames) == 0 {
			return nil, ErrNoFrame
		}
		c.index = 0
	}

	frame := c.frames[c.index].Clone()
	c.index++
	c.reads++
	return &frame, nil
}

func (c *MockCamera) SetFPS(fps int) {
	if fps <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fps = fps
}

func (c *MockCamera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

func (c *MockCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// Reads reports how many frames were returned.
func (c *MockCamera) Reads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}
