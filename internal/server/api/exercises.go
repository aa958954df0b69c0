package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/handcoach/internal/exercise"
)

// ExerciseHandler serves the read-only exercise catalog.
type ExerciseHandler struct {
	catalog *exercise.Catalog
}

// NewExerciseHandler creates an ExerciseHandler.
func NewExerciseHandler(c *exercise.Catalog) *ExerciseHandler {
	return &ExerciseHandler{catalog: c}
}

type exerciseResponse struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Stateful    bool     `json:"stateful"`
	HoldSeconds *float64 `json:"hold_seconds,omitempty"`
	TotalCycles *int     `json:"total_cycles,omitempty"`
}

type listExercisesResponse struct {
	Exercises []exerciseResponse `json:"exercises"`
}

func toExerciseResponse(e exercise.Entry) exerciseResponse {
	resp := exerciseResponse{
		ID:          string(e.Kind),
		Name:        e.Name,
		Description: e.Description,
		Stateful:    e.Kind.Stateful(),
	}
	if resp.Stateful {
		hold := e.Options.Hold.Seconds()
		cycles := e.Options.TotalCycles
		resp.HoldSeconds = &hold
		resp.TotalCycles = &cycles
	}
	return resp
}

// ServeHTTP handles /api/exercises and /api/exercises/{id}.
func (h *ExerciseHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/exercises"), "/")
	if id == "" {
		h.list(w)
		return
	}
	h.get(w, id)
}

func (h *ExerciseHandler) list(w http.ResponseWriter) {
	entries := h.catalog.Entries()
	resp := listExercisesResponse{Exercises: make([]exerciseResponse, 0, len(entries))}
	for _, e := range entries {
		resp.Exercises = append(resp.Exercises, toExerciseResponse(e))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ExerciseHandler) get(w http.ResponseWriter, id string) {
	e, err := h.catalog.Resolve(id)
	if err != nil {
		if errors.Is(err, exercise.ErrUnknownExercise) {
			writeError(w, http.StatusNotFound, "Exercise not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get exercise")
		return
	}
	writeJSON(w, http.StatusOK, toExerciseResponse(e))
}
