package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/handcoach/internal/exercise"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// Exercise is a catalog row. Nil HoldSeconds or TotalCycles fall back to the
// process defaults when the catalog is built.
type Exercise struct {
	ID          string
	Name        string
	Description string
	HoldSeconds *float64
	TotalCycles *int
	Enabled     bool
	SortOrder   int
	UpdatedAt   time.Time
}

// Options resolves the row's constructor options against defaults.
func (e *Exercise) Options(defaults exercise.Options) exercise.Options {
	opts := defaults
	if e.HoldSeconds != nil {
		opts.Hold = time.Duration(*e.HoldSeconds * float64(time.Second))
	}
	if e.TotalCycles != nil {
		opts.TotalCycles = *e.TotalCycles
	}
	return opts
}

// ExerciseRepository reads and updates the exercise catalog.
type ExerciseRepository struct {
	db *sql.DB
}

// Exercises returns the exercise repository for this store.
func (s *Store) Exercises() *ExerciseRepository {
	return &ExerciseRepository{db: s.db}
}

const exerciseColumns = `id, name, description, hold_seconds, total_cycles, enabled, sort_order, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanExercise(row scanner) (*Exercise, error) {
	e := &Exercise{}
	var hold sql.NullFloat64
	var cycles sql.NullInt64
	var updated sql.NullTime
	var enabled int

	if err := row.Scan(&e.ID, &e.Name, &e.Description, &hold, &cycles, &enabled, &e.SortOrder, &updated); err != nil {
		return nil, err
	}
	e.Enabled = enabled != 0
	if hold.Valid {
		e.HoldSeconds = &hold.Float64
	}
	if cycles.Valid {
		n := int(cycles.Int64)
		e.TotalCycles = &n
	}
	if updated.Valid {
		e.UpdatedAt = updated.Time
	}
	return e, nil
}

// List returns every exercise, enabled or not, in display order.
func (r *ExerciseRepository) List() ([]*Exercise, error) {
	rows, err := r.db.Query(`SELECT ` + exerciseColumns + ` FROM exercises ORDER BY sort_order, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Exercise
	for rows.Next() {
		e, err := scanExercise(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetByID retrieves one exercise.
func (r *ExerciseRepository) GetByID(id string) (*Exercise, error) {
	e, err := scanExercise(r.db.QueryRow(`SELECT `+exerciseColumns+` FROM exercises WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

// Update writes the editable columns of e.
func (r *ExerciseRepository) Update(e *Exercise) error {
	if e.Name == "" {
		return errors.New("exercise name is required")
	}
	e.UpdatedAt = time.Now()

	var hold, cycles any
	if e.HoldSeconds != nil {
		hold = *e.HoldSeconds
	}
	if e.TotalCycles != nil {
		cycles = *e.TotalCycles
	}

	result, err := r.db.Exec(
		`UPDATE exercises
		 SET name = ?, description = ?, hold_seconds = ?, total_cycles = ?, enabled = ?, sort_order = ?, updated_at = ?
		 WHERE id = ?`,
		e.Name, e.Description, hold, cycles, e.Enabled, e.SortOrder, e.UpdatedAt, e.ID,
	)
	if err != nil {
		return err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Catalog builds the process catalog from the stored rows. Rows for ids the
// service does not implement are skipped; supported kinds missing from the
// table are unavailable.
func (r *ExerciseRepository) Catalog(defaults exercise.Options) (*exercise.Catalog, error) {
	rows, err := r.List()
	if err != nil {
		return nil, err
	}

	entries := make([]exercise.Entry, 0, len(rows))
	for _, row := range rows {
		kind, err := exercise.ParseKind(row.ID)
		if err != nil {
			continue
		}
		entries = append(entries, exercise.Entry{
			Kind:        kind,
			Name:        row.Name,
			Description: row.Description,
			Options:     row.Options(defaults),
			Enabled:     row.Enabled,
		})
	}

	c, err := exercise.NewCatalog(entries)
	if err != nil {
		return nil, fmt.Errorf("build catalog: %w", err)
	}
	return c, nil
}
