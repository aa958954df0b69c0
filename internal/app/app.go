// Package app runs the local practice loop: camera frames go through the
// hand detector into a session, and the coaching messages are logged.
package app

import (
	"errors"
	"log"
	"sync"

	"github.com/ayusman/handcoach/internal/capture"
	"github.com/ayusman/handcoach/internal/detector"
	"github.com/ayusman/handcoach/internal/exercise"
	"github.com/ayusman/handcoach/internal/session"
)

// DefaultSessionID names the practice session in the registry.
const DefaultSessionID = "practice"

// Config holds configuration options for the practice loop.
type Config struct {
	Registry *session.Registry
	Camera   capture.Camera
	Detector detector.Detector
	// Exercise is selected on the first frame. Empty keeps the registry
	// default.
	Exercise  exercise.Kind
	SessionID string
	FPS       int
}

// App owns the practice loop.
type App struct {
	config Config

	mu      sync.Mutex
	last    session.Result
	frames  int
	running bool
}

// New creates a new App instance with the given configuration.
func New(config Config) (*App, error) {
	if config.Registry == nil {
		return nil, errors.New("registry is required")
	}
	if config.Camera == nil {
		return nil, errors.New("camera is required")
	}
	if config.Detector == nil {
		return nil, errors.New("detector is required")
	}
	if config.SessionID == "" {
		config.SessionID = DefaultSessionID
	}
	if config.FPS <= 0 {
		config.FPS = capture.DefaultFPS
	}
	return &App{config: config}, nil
}

// LastResult returns the most recent evaluation and the number of frames
// evaluated so far.
func (a *App) LastResult() (session.Result, int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last, a.frames
}

// Running reports whether Run is active.
func (a *App) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}

func (a *App) setRunning(v bool) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if v && a.running {
		return false
	}
	a.running = v
	return true
}

func (a *App) record(res session.Result) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.last = res
	a.frames++
}

// logResult logs events and message changes. prev is the previously logged
// message.
func logResult(res session.Result, prev string) string {
	if res.Event != "" {
		log.Printf("Practice: %s (%s)", res.Event, res.ExerciseName)
	}
	if res.Message != prev {
		log.Printf("Practice: %s", res.Message)
	}
	return res.Message
}
