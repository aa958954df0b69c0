package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ayusman/handcoach/internal/detector"
	"github.com/ayusman/handcoach/internal/session"
)

// ErrAlreadyRunning is returned by Run when the loop is already active.
var ErrAlreadyRunning = errors.New("practice loop already running")

// Run opens the camera and evaluates one frame per tick until ctx is done.
// Frame and detector errors are logged and skipped.
//
// The first frame selects the configured exercise; later frames leave the
// session's exercise alone so it can be switched over HTTP.
func (a *App) Run(ctx context.Context) error {
	if !a.setRunning(true) {
		return ErrAlreadyRunning
	}
	defer a.setRunning(false)

	if err := a.config.Camera.Open(); err != nil {
		return fmt.Errorf("open camera: %w", err)
	}
	defer func() {
		if err := a.config.Camera.Close(); err != nil {
			log.Printf("Error closing camera: %v", err)
		}
	}()
	a.config.Camera.SetFPS(a.config.FPS)

	log.Printf("Practice loop started (session %s, %d fps)", a.config.SessionID, a.config.FPS)
	defer log.Println("Practice loop stopped")

	ticker := time.NewTicker(time.Second / time.Duration(a.config.FPS))
	defer ticker.Stop()

	first := true
	lastMessage := ""
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		f, err := a.readFrame()
		if err != nil {
			log.Printf("Error reading frame: %v", err)
			continue
		}
		if first {
			f.Exercise = a.config.Exercise
		}

		res, err := a.evaluate(f)
		if err != nil {
			log.Printf("Error evaluating frame: %v", err)
			continue
		}
		first = false
		lastMessage = logResult(res, lastMessage)
	}
}

// Step reads and evaluates a single frame. The camera must be open.
func (a *App) Step() (session.Result, error) {
	f, err := a.readFrame()
	if err != nil {
		return session.Result{}, err
	}
	return a.evaluate(f)
}

// readFrame captures one frame and runs the detector on it.
func (a *App) readFrame() (session.Frame, error) {
	mat, err := a.config.Camera.ReadFrame()
	if err != nil {
		return session.Frame{}, err
	}
	defer mat.Close()

	hands, err := a.config.Detector.Detect(mat)
	if err != nil {
		return session.Frame{}, fmt.Errorf("detect hands: %w", err)
	}
	return session.Frame{Hand: detector.Primary(hands, mat)}, nil
}

// evaluate runs f on the practice session, recreating it once if it was
// evicted from the registry.
func (a *App) evaluate(f session.Frame) (session.Result, error) {
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		var s *session.Session
		s, err = a.config.Registry.Acquire(a.config.SessionID)
		if err != nil {
			return session.Result{}, err
		}
		var res session.Result
		res, err = s.Evaluate(f)
		if err == nil {
			a.record(res)
			return res, nil
		}
		if !errors.Is(err, session.ErrSessionClosed) {
			return session.Result{}, err
		}
	}
	return session.Result{}, err
}
