package session

import (
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/handcoach/internal/detector"
	"github.com/ayusman/handcoach/internal/exercise"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func hand(lm detector.HandLandmarks) *detector.KeypointSet {
	return lm.Keypoints(640, 480)
}

var (
	fistFrame  = Frame{Hand: hand(detector.FistLandmarks())}
	palmFrame  = Frame{Hand: hand(detector.OpenPalmLandmarks())}
	indexFrame = Frame{Hand: hand(detector.IndexUpLandmarks())}
	noHand     = Frame{}
)

func newTestRegistry(t *testing.T, clock *fakeClock, opts ...func(*Config)) *Registry {
	t.Helper()
	cfg := Config{
		Catalog: exercise.DefaultCatalog(exercise.DefaultOptions()),
		Clock:   clock.Now,
	}
	for _, o := range opts {
		o(&cfg)
	}
	r, err := NewRegistry(cfg)
	require.NoError(t, err)
	return r
}

func newTestSession(t *testing.T, clock *fakeClock, kind exercise.Kind) *Session {
	t.Helper()
	s, err := newTestRegistry(t, clock).Create(kind)
	require.NoError(t, err)
	return s
}

func TestSession_EvaluateStateless(t *testing.T) {
	clock := newFakeClock()

	tests := []struct {
		name    string
		kind    exercise.Kind
		frame   Frame
		correct bool
		raised  int
	}{
		{name: "fist on fist", kind: exercise.KindFist, frame: fistFrame, correct: true, raised: 0},
		{name: "palm on fist", kind: exercise.KindFist, frame: palmFrame, correct: false, raised: 5},
		{name: "index on fist-index", kind: exercise.KindFistIndex, frame: indexFrame, correct: true, raised: 1},
		{name: "fist on fist-index", kind: exercise.KindFistIndex, frame: fistFrame, correct: false, raised: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession(t, clock, tt.kind)

			res, err := s.Evaluate(tt.frame)
			require.NoError(t, err)

			assert.True(t, res.HandDetected)
			assert.Equal(t, tt.correct, res.Correct)
			assert.Equal(t, tt.raised, res.RaisedFingers)
			assert.Len(t, res.FingerStates, 5)
			assert.Len(t, res.FingerStatus, 5)
			assert.Len(t, res.Fingertips, 5)
			assert.Equal(t, tt.kind, res.Exercise)
			assert.Equal(t, s.ID(), res.SessionID)
			assert.NotEmpty(t, res.ExerciseName)
			assert.NotEmpty(t, res.Message)
			assert.Nil(t, res.Structured, "stateless exercises carry no structured block")
		})
	}
}

func TestSession_NoHand(t *testing.T) {
	clock := newFakeClock()
	s := newTestSession(t, clock, exercise.KindFistPalm)

	res, err := s.Evaluate(noHand)
	require.NoError(t, err)

	want := Result{
		SessionID:    s.ID(),
		FingerStates: []bool{false, false, false, false, false},
		Message:      "No hand detected",
		Exercise:     exercise.KindFistPalm,
		ExerciseName: "Fist and palm",
		Structured: &exercise.Progress{
			State:       exercise.StateWaitingFist,
			StateName:   "Waiting for fist",
			TotalCycles: 5,
		},
	}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Errorf("Evaluate() mismatch (-want +got):\n%s", diff)
	}
}

func TestSession_NoHandKeepsHold(t *testing.T) {
	clock := newFakeClock()
	s := newTestSession(t, clock, exercise.KindFistPalm)

	res, err := s.Evaluate(fistFrame)
	require.NoError(t, err)
	require.Equal(t, exercise.StateHoldingFist, res.Structured.State)

	clock.Advance(2 * time.Second)
	res, err = s.Evaluate(noHand)
	require.NoError(t, err)
	assert.False(t, res.HandDetected)
	assert.Equal(t, exercise.StateHoldingFist, res.Structured.State, "no hand must not abort the hold")
	assert.Equal(t, 1, *res.Structured.Countdown)

	// Time without a hand still counts towards the hold.
	clock.Advance(time.Second)
	res, err = s.Evaluate(fistFrame)
	require.NoError(t, err)
	assert.Equal(t, exercise.StateWaitingPalm, res.Structured.State)
}

func TestSession_NoHandDoesNotStartHold(t *testing.T) {
	clock := newFakeClock()
	s := newTestSession(t, clock, exercise.KindFistPalm)

	for i := 0; i < 5; i++ {
		clock.Advance(time.Second)
		res, err := s.Evaluate(noHand)
		require.NoError(t, err)
		assert.Equal(t, exercise.StateWaitingFist, res.Structured.State)
	}
}

func TestSession_SetExerciseDiscardsProgress(t *testing.T) {
	tests := []struct {
		name  string
		apply func(s *Session) error
	}{
		{name: "same kind", apply: func(s *Session) error { return s.SetExercise(exercise.KindFistPalm) }},
		{name: "round trip", apply: func(s *Session) error {
			if err := s.SetExercise(exercise.KindFist); err != nil {
				return err
			}
			return s.SetExercise(exercise.KindFistPalm)
		}},
		{name: "frame switch", apply: func(s *Session) error {
			if _, err := s.Evaluate(Frame{Exercise: exercise.KindFist}); err != nil {
				return err
			}
			return s.SetExercise(exercise.KindFistPalm)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newFakeClock()
			s := newTestSession(t, clock, exercise.KindFistPalm)

			// Complete one cycle and start holding the next fist.
			_, err := s.Evaluate(fistFrame)
			require.NoError(t, err)
			clock.Advance(3 * time.Second)
			_, err = s.Evaluate(fistFrame)
			require.NoError(t, err)
			_, err = s.Evaluate(palmFrame)
			require.NoError(t, err)
			clock.Advance(3 * time.Second)
			res, err := s.Evaluate(palmFrame)
			require.NoError(t, err)
			require.Equal(t, 1, res.Structured.CurrentCycle)
			res, err = s.Evaluate(fistFrame)
			require.NoError(t, err)
			require.Equal(t, exercise.StateHoldingFist, res.Structured.State)

			require.NoError(t, tt.apply(s))

			st, err := s.Status()
			require.NoError(t, err)
			assert.Equal(t, exercise.StateWaitingFist, st.Structured.State)
			assert.Equal(t, 0, st.Structured.CurrentCycle)
		})
	}
}

func TestSession_FrameExercise(t *testing.T) {
	clock := newFakeClock()
	s := newTestSession(t, clock, exercise.KindFistPalm)

	_, err := s.Evaluate(fistFrame)
	require.NoError(t, err)

	t.Run("same kind keeps progress", func(t *testing.T) {
		res, err := s.Evaluate(Frame{Hand: fistFrame.Hand, Exercise: exercise.KindFistPalm})
		require.NoError(t, err)
		assert.Equal(t, exercise.StateHoldingFist, res.Structured.State)
	})

	t.Run("unknown kind leaves session unchanged", func(t *testing.T) {
		_, err := s.Evaluate(Frame{Hand: palmFrame.Hand, Exercise: "wave"})
		assert.ErrorIs(t, err, exercise.ErrUnknownExercise)

		st, err := s.Status()
		require.NoError(t, err)
		assert.Equal(t, exercise.KindFistPalm, st.Exercise)
		assert.Equal(t, exercise.StateHoldingFist, st.Structured.State)
		assert.Equal(t, 2, st.Frames, "a rejected frame is not counted")
	})

	t.Run("different kind switches before evaluating", func(t *testing.T) {
		res, err := s.Evaluate(Frame{Hand: indexFrame.Hand, Exercise: exercise.KindFistIndex})
		require.NoError(t, err)
		assert.Equal(t, exercise.KindFistIndex, res.Exercise)
		assert.True(t, res.Correct)
		assert.Nil(t, res.Structured)
	})
}

func TestSession_SetExerciseUnknown(t *testing.T) {
	clock := newFakeClock()
	s := newTestSession(t, clock, exercise.KindFistIndex)

	err := s.SetExercise("wave")
	assert.ErrorIs(t, err, exercise.ErrUnknownExercise)
	assert.Equal(t, exercise.KindFistIndex, s.Exercise())
}

func TestSession_SetExerciseDisabled(t *testing.T) {
	clock := newFakeClock()
	catalog, err := exercise.NewCatalog([]exercise.Entry{
		{Kind: exercise.KindFist, Enabled: true},
		{Kind: exercise.KindFistIndex, Enabled: false},
	})
	require.NoError(t, err)

	r := newTestRegistry(t, clock, func(c *Config) { c.Catalog = catalog })
	s, err := r.Create("")
	require.NoError(t, err)

	assert.ErrorIs(t, s.SetExercise(exercise.KindFistIndex), exercise.ErrUnknownExercise)
	assert.Equal(t, exercise.KindFist, s.Exercise())
}

func TestSession_Reset(t *testing.T) {
	clock := newFakeClock()
	s := newTestSession(t, clock, exercise.KindFistPalm)

	_, err := s.Evaluate(fistFrame)
	require.NoError(t, err)
	require.NoError(t, s.Reset())

	st, err := s.Status()
	require.NoError(t, err)
	assert.Equal(t, exercise.StateWaitingFist, st.Structured.State)

	_, err = s.Evaluate(fistFrame)
	require.NoError(t, err)
	clock.Advance(time.Second)
	res, err := s.Evaluate(Frame{Hand: fistFrame.Hand, Reset: true})
	require.NoError(t, err)
	assert.Equal(t, exercise.StateHoldingFist, res.Structured.State, "reset then re-entered the hold")
	assert.Equal(t, 3, *res.Structured.Countdown)
}

func TestSession_Status(t *testing.T) {
	clock := newFakeClock()
	s := newTestSession(t, clock, exercise.KindFist)

	st, err := s.Status()
	require.NoError(t, err)
	assert.Equal(t, 0, st.Frames)
	assert.Nil(t, st.LastFrameAt)
	assert.Equal(t, clock.Now(), st.CreatedAt)

	clock.Advance(time.Second)
	_, err = s.Evaluate(fistFrame)
	require.NoError(t, err)

	st, err = s.Status()
	require.NoError(t, err)
	assert.Equal(t, 1, st.Frames)
	require.NotNil(t, st.LastFrameAt)
	assert.Equal(t, clock.Now(), *st.LastFrameAt)
}

func TestSession_NotifyOnEvents(t *testing.T) {
	clock := newFakeClock()
	var mu sync.Mutex
	var events []exercise.Event

	r := newTestRegistry(t, clock, func(c *Config) {
		c.Catalog = exercise.DefaultCatalog(exercise.Options{Hold: time.Second, TotalCycles: 2})
		c.Notify = func(res Result) {
			mu.Lock()
			events = append(events, res.Event)
			mu.Unlock()
		}
	})
	s, err := r.Create(exercise.KindFistPalm)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = s.Evaluate(fistFrame)
		require.NoError(t, err)
		clock.Advance(time.Second)
		_, err = s.Evaluate(fistFrame)
		require.NoError(t, err)
		_, err = s.Evaluate(palmFrame)
		require.NoError(t, err)
		clock.Advance(time.Second)
		_, err = s.Evaluate(palmFrame)
		require.NoError(t, err)
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []exercise.Event{exercise.EventCycleCompleted, exercise.EventExerciseCompleted}, events)
}

func TestSession_ConcurrentEvaluate(t *testing.T) {
	clock := newFakeClock()
	s := newTestSession(t, clock, exercise.KindFistPalm)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				f := fistFrame
				if (i+j)%3 == 0 {
					f = palmFrame
				}
				clock.Advance(100 * time.Millisecond)
				_, err := s.Evaluate(f)
				assert.NoError(t, err)
			}
		}(i)
	}
	wg.Wait()

	st, err := s.Status()
	require.NoError(t, err)
	assert.Equal(t, 16*50, st.Frames)
	assert.LessOrEqual(t, st.Structured.CurrentCycle, st.Structured.TotalCycles)
}
