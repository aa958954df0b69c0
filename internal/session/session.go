// Package session binds exercise rules to client sessions. A Session owns
// one live rule and serializes every evaluation against it; the Registry
// maps session ids to sessions.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/ayusman/handcoach/internal/detector"
	"github.com/ayusman/handcoach/internal/exercise"
	"github.com/ayusman/handcoach/internal/posture"
)

// ErrSessionClosed is returned by every Session method once the session has
// been removed from its Registry.
var ErrSessionClosed = errors.New("session closed")

const noHandMessage = "No hand detected"

// Frame is one evaluation request. A nil Hand signals that the detector
// found no hand in the frame.
type Frame struct {
	Hand *detector.KeypointSet
	// Exercise, when set and different from the active one, switches
	// before evaluating.
	Exercise exercise.Kind
	// Reset restarts the active rule before evaluating.
	Reset bool
}

// Result is the outcome of evaluating one Frame.
type Result struct {
	SessionID     string                  `json:"session_id"`
	HandDetected  bool                    `json:"hand_detected"`
	FingerStates  []bool                  `json:"finger_states"`
	RaisedFingers int                     `json:"raised_fingers"`
	FingerStatus  []exercise.FingerStatus `json:"finger_status,omitempty"`
	Fingertips    []posture.Pixel         `json:"fingertips,omitempty"`
	Correct       bool                    `json:"correct"`
	Message       string                  `json:"message"`
	Exercise      exercise.Kind           `json:"exercise"`
	ExerciseName  string                  `json:"exercise_name"`
	Structured    *exercise.Progress      `json:"structured,omitempty"`
	Event         exercise.Event          `json:"event,omitempty"`
}

// Status describes a session without evaluating anything.
type Status struct {
	ID           string             `json:"id"`
	Exercise     exercise.Kind      `json:"exercise"`
	ExerciseName string             `json:"exercise_name"`
	Structured   *exercise.Progress `json:"structured,omitempty"`
	Frames       int                `json:"frames"`
	CreatedAt    time.Time          `json:"created_at"`
	LastFrameAt  *time.Time         `json:"last_frame_at,omitempty"`
}

// Session holds the active exercise for one client. Its mutex is the single
// evaluation slot: concurrent calls for the same session run one at a time.
type Session struct {
	id         string
	catalog    *exercise.Catalog
	classifier *posture.Classifier
	clock      func() time.Time
	notify     func(Result)
	touch      func(id string)

	mu          sync.Mutex
	entry       exercise.Entry
	rule        exercise.Rule
	frames      int
	createdAt   time.Time
	lastFrameAt time.Time
	closed      bool
}

type deps struct {
	catalog    *exercise.Catalog
	classifier *posture.Classifier
	clock      func() time.Time
	notify     func(Result)
	// touch marks the session used. Called without the session lock held.
	touch func(id string)
}

func newSession(id string, kind exercise.Kind, d deps) (*Session, error) {
	s := &Session{
		id:         id,
		catalog:    d.catalog,
		classifier: d.classifier,
		clock:      d.clock,
		notify:     d.notify,
		touch:      d.touch,
		createdAt:  d.clock(),
	}
	if err := s.switchLocked(kind, s.createdAt); err != nil {
		return nil, err
	}
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Exercise returns the active exercise kind.
func (s *Session) Exercise() exercise.Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entry.Kind
}

// Evaluate classifies the frame and runs it through the active rule.
//
// A frame without a hand does not reach the rule: the hold machine is not
// advanced and an in-progress hold is kept, while wall-clock time continues
// to count towards it. An unknown Frame.Exercise fails the call before any
// state changes.
func (s *Session) Evaluate(f Frame) (Result, error) {
	res, err := s.evaluate(f)
	if err != nil {
		return Result{}, err
	}
	s.markUsed()
	if res.Event != exercise.EventNone && s.notify != nil {
		s.notify(res)
	}
	return res, nil
}

func (s *Session) evaluate(f Frame) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Result{}, ErrSessionClosed
	}

	now := s.clock()
	if f.Exercise != "" && f.Exercise != s.entry.Kind {
		if err := s.switchLocked(f.Exercise, now); err != nil {
			return Result{}, err
		}
	}
	if f.Reset {
		s.rule.Reset(now)
	}

	s.frames++
	s.lastFrameAt = now

	res := Result{
		SessionID:    s.id,
		Exercise:     s.entry.Kind,
		ExerciseName: s.entry.Name,
	}

	if f.Hand == nil {
		res.FingerStates = make([]bool, posture.NumFingers)
		res.Message = noHandMessage
		res.Structured = s.rule.Progress(now)
		return res, nil
	}

	c := s.classifier.Classify(f.Hand)
	v := s.rule.Evaluate(c.Fingers, now)
	status := s.rule.FingerStatus(c.Fingers)

	res.HandDetected = true
	res.FingerStates = c.Fingers.Slice()
	res.RaisedFingers = c.Fingers.Raised()
	res.FingerStatus = status[:]
	res.Fingertips = c.Tips[:]
	res.Correct = v.Correct
	res.Message = v.Message
	res.Structured = v.Progress
	res.Event = v.Event
	return res, nil
}

// SetExercise replaces the active rule with a fresh instance of kind, even
// when kind is already active. On error the active rule is unchanged.
func (s *Session) SetExercise(kind exercise.Kind) error {
	if err := s.setExercise(kind); err != nil {
		return err
	}
	s.markUsed()
	return nil
}

func (s *Session) setExercise(kind exercise.Kind) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	return s.switchLocked(kind, s.clock())
}

// Reset restarts the active rule.
func (s *Session) Reset() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.rule.Reset(s.clock())
	s.mu.Unlock()

	s.markUsed()
	return nil
}

// markUsed must not be called with s.mu held: touch takes the registry lock.
func (s *Session) markUsed() {
	if s.touch != nil {
		s.touch(s.id)
	}
}

// Status reports the session state without advancing it.
func (s *Session) Status() (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Status{}, ErrSessionClosed
	}
	st := Status{
		ID:           s.id,
		Exercise:     s.entry.Kind,
		ExerciseName: s.entry.Name,
		Structured:   s.rule.Progress(s.clock()),
		Frames:       s.frames,
		CreatedAt:    s.createdAt,
	}
	if !s.lastFrameAt.IsZero() {
		last := s.lastFrameAt
		st.LastFrameAt = &last
	}
	return st, nil
}

// Closed reports whether the session has been removed.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// close waits for any in-flight evaluation, then marks the session closed.
func (s *Session) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (s *Session) switchLocked(kind exercise.Kind, now time.Time) error {
	entry, err := s.catalog.Lookup(kind)
	if err != nil {
		return err
	}
	rule, err := s.catalog.NewRule(kind, now)
	if err != nil {
		return err
	}
	s.entry = entry
	s.rule = rule
	return nil
}
