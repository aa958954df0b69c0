package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ayusman/handcoach/internal/detector"
	"github.com/ayusman/handcoach/internal/exercise"
	"github.com/ayusman/handcoach/internal/session"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// newTestRegistry creates a Registry over the default catalog with a
// controllable clock.
func newTestRegistry(t *testing.T) (*session.Registry, *testClock) {
	t.Helper()

	clock := &testClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	r, err := session.NewRegistry(session.Config{
		Catalog: exercise.DefaultCatalog(exercise.DefaultOptions()),
		Clock:   clock.Now,
	})
	if err != nil {
		t.Fatalf("failed to create registry: %v", err)
	}
	t.Cleanup(r.Close)
	return r, clock
}

// keypoints converts landmarks into the [[x, y, z], ...] request form.
func keypoints(lm detector.HandLandmarks) [][]float64 {
	out := make([][]float64, 0, detector.NumLandmarks)
	for _, p := range lm.Points {
		out = append(out, []float64{p.X, p.Y, p.Z})
	}
	return out
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}
