package store

import (
	"errors"
	"testing"
	"time"

	"github.com/ayusman/handcoach/internal/exercise"
)

func TestExerciseRepository_Seed(t *testing.T) {
	r := newTestStore(t).Exercises()

	list, err := r.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	want := []string{"fist", "fist-index", "fist-palm"}
	if len(list) != len(want) {
		t.Fatalf("List returned %d rows, want %d", len(list), len(want))
	}
	for i, e := range list {
		if e.ID != want[i] {
			t.Errorf("row %d id = %q, want %q", i, e.ID, want[i])
		}
		if !e.Enabled {
			t.Errorf("%s should be enabled", e.ID)
		}
		if e.HoldSeconds != nil || e.TotalCycles != nil {
			t.Errorf("%s should use default options", e.ID)
		}
		if e.Name == "" || e.Description == "" {
			t.Errorf("%s should have a name and description", e.ID)
		}
	}
}

func TestExerciseRepository_GetByID(t *testing.T) {
	r := newTestStore(t).Exercises()

	e, err := r.GetByID("fist-palm")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if e.Name != "Fist and palm" {
		t.Errorf("Name = %q", e.Name)
	}

	if _, err := r.GetByID("wave"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID(wave) error = %v, want ErrNotFound", err)
	}
}

func TestExerciseRepository_Update(t *testing.T) {
	r := newTestStore(t).Exercises()

	e, err := r.GetByID("fist-palm")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	hold := 1.5
	cycles := 2
	e.HoldSeconds = &hold
	e.TotalCycles = &cycles
	e.Name = "Pump"
	if err := r.Update(e); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := r.GetByID("fist-palm")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Name != "Pump" {
		t.Errorf("Name = %q, want Pump", got.Name)
	}
	if got.HoldSeconds == nil || *got.HoldSeconds != 1.5 {
		t.Errorf("HoldSeconds = %v, want 1.5", got.HoldSeconds)
	}
	if got.TotalCycles == nil || *got.TotalCycles != 2 {
		t.Errorf("TotalCycles = %v, want 2", got.TotalCycles)
	}

	got.HoldSeconds = nil
	if err := r.Update(got); err != nil {
		t.Fatalf("Update clearing hold: %v", err)
	}
	got, _ = r.GetByID("fist-palm")
	if got.HoldSeconds != nil {
		t.Errorf("HoldSeconds = %v, want nil", *got.HoldSeconds)
	}

	if err := r.Update(&Exercise{ID: "wave", Name: "Wave"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update(wave) error = %v, want ErrNotFound", err)
	}
	if err := r.Update(&Exercise{ID: "fist"}); err == nil {
		t.Error("Update without a name should fail")
	}
}

func TestExerciseRepository_UpdateRejectsInvalidOptions(t *testing.T) {
	r := newTestStore(t).Exercises()

	e, _ := r.GetByID("fist-palm")
	zero := 0
	e.TotalCycles = &zero
	if err := r.Update(e); err == nil {
		t.Error("Update should reject zero cycles")
	}
}

func TestExerciseRepository_Catalog(t *testing.T) {
	s := newTestStore(t)
	r := s.Exercises()

	e, _ := r.GetByID("fist-index")
	e.Enabled = false
	if err := r.Update(e); err != nil {
		t.Fatalf("Update: %v", err)
	}
	e, _ = r.GetByID("fist-palm")
	cycles := 3
	e.TotalCycles = &cycles
	if err := r.Update(e); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, err := s.DB().Exec(
		`INSERT INTO exercises (id, name, sort_order) VALUES ('wave', 'Wave', 9)`,
	); err != nil {
		t.Fatalf("insert unsupported row: %v", err)
	}

	c, err := r.Catalog(exercise.DefaultOptions())
	if err != nil {
		t.Fatalf("Catalog: %v", err)
	}

	entries := c.Entries()
	if len(entries) != 2 {
		t.Fatalf("Entries() = %d, want 2 (disabled and unsupported rows skipped)", len(entries))
	}
	if _, err := c.Lookup(exercise.KindFistIndex); !errors.Is(err, exercise.ErrUnknownExercise) {
		t.Errorf("disabled exercise should be unknown, got %v", err)
	}

	palm, err := c.Lookup(exercise.KindFistPalm)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if palm.Options.TotalCycles != 3 {
		t.Errorf("TotalCycles = %d, want 3", palm.Options.TotalCycles)
	}
	if palm.Options.Hold != 3*time.Second {
		t.Errorf("Hold = %v, want default 3s", palm.Options.Hold)
	}
}

func TestExercise_Options(t *testing.T) {
	defaults := exercise.Options{Hold: 3 * time.Second, TotalCycles: 5}

	e := &Exercise{}
	if got := e.Options(defaults); got != defaults {
		t.Errorf("Options() = %+v, want defaults", got)
	}

	hold := 0.25
	e.HoldSeconds = &hold
	if got := e.Options(defaults); got.Hold != 250*time.Millisecond {
		t.Errorf("Hold = %v, want 250ms", got.Hold)
	}
}
