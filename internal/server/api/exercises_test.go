package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ayusman/handcoach/internal/exercise"
)

func TestExerciseHandler_List(t *testing.T) {
	handler := NewExerciseHandler(exercise.DefaultCatalog(exercise.Options{Hold: 2 * time.Second, TotalCycles: 4}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/exercises", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", ct)
	}

	var resp listExercisesResponse
	decode(t, rec, &resp)

	if len(resp.Exercises) != len(exercise.Kinds()) {
		t.Fatalf("expected %d exercises, got %d", len(exercise.Kinds()), len(resp.Exercises))
	}
	for _, e := range resp.Exercises {
		if e.Name == "" {
			t.Errorf("exercise %s has no name", e.ID)
		}
		if e.ID != string(exercise.KindFistPalm) {
			if e.Stateful || e.HoldSeconds != nil || e.TotalCycles != nil {
				t.Errorf("exercise %s should be stateless without options: %+v", e.ID, e)
			}
			continue
		}
		if !e.Stateful {
			t.Error("fist-palm should be stateful")
		}
		if e.HoldSeconds == nil || *e.HoldSeconds != 2 {
			t.Errorf("expected hold_seconds 2, got %v", e.HoldSeconds)
		}
		if e.TotalCycles == nil || *e.TotalCycles != 4 {
			t.Errorf("expected total_cycles 4, got %v", e.TotalCycles)
		}
	}
}

func TestExerciseHandler_Get(t *testing.T) {
	handler := NewExerciseHandler(exercise.DefaultCatalog(exercise.DefaultOptions()))

	t.Run("known exercise", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/exercises/fist-index", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		var resp exerciseResponse
		decode(t, rec, &resp)
		if resp.ID != "fist-index" {
			t.Errorf("expected id fist-index, got %s", resp.ID)
		}
		if resp.Name != exercise.KindFistIndex.DisplayName() {
			t.Errorf("expected name %q, got %q", exercise.KindFistIndex.DisplayName(), resp.Name)
		}
	})

	t.Run("unknown exercise", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/exercises/wave", nil))

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
		}
	})
}

func TestExerciseHandler_MethodNotAllowed(t *testing.T) {
	handler := NewExerciseHandler(exercise.DefaultCatalog(exercise.DefaultOptions()))

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(method, "/api/exercises", nil))

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("method %s: expected status %d, got %d", method, http.StatusMethodNotAllowed, rec.Code)
		}
	}
}
