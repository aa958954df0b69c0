package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/ayusman/handcoach/internal/exercise"
	"github.com/ayusman/handcoach/internal/session"
)

// SessionHandler serves /api/sessions and its sub-resources.
type SessionHandler struct {
	registry *session.Registry
	decoder  *FrameDecoder
	maxBody  int64
}

// NewSessionHandler creates a SessionHandler. Request bodies larger than
// maxBody bytes are rejected.
func NewSessionHandler(r *session.Registry, d *FrameDecoder, maxBody int64) *SessionHandler {
	return &SessionHandler{registry: r, decoder: d, maxBody: maxBody}
}

type exerciseRequest struct {
	Exercise string `json:"exercise"`
}

// ServeHTTP routes:
//
//	POST   /api/sessions
//	GET    /api/sessions/{id}
//	DELETE /api/sessions/{id}
//	POST   /api/sessions/{id}/frames
//	PUT    /api/sessions/{id}/exercise
//	POST   /api/sessions/{id}/reset
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/sessions"), "/")
	if h.maxBody > 0 && r.Body != nil {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}

	if path == "" {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		h.create(w, r)
		return
	}

	id, action, _ := strings.Cut(path, "/")
	switch {
	case action == "" && r.Method == http.MethodGet:
		h.get(w, id)
	case action == "" && r.Method == http.MethodDelete:
		h.delete(w, id)
	case action == "frames" && r.Method == http.MethodPost:
		h.frame(w, r, id)
	case action == "exercise" && r.Method == http.MethodPut:
		h.setExercise(w, r, id)
	case action == "reset" && r.Method == http.MethodPost:
		h.reset(w, id)
	case action == "" || action == "frames" || action == "exercise" || action == "reset":
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

// decodeBody decodes an optional JSON body into v. An empty body is not an
// error.
func decodeBody(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func writeStatus(w http.ResponseWriter, code int, s *session.Session) {
	st, err := s.Status()
	if err != nil {
		writeError(w, http.StatusGone, "Session closed")
		return
	}
	writeJSON(w, code, st)
}

// create handles POST /api/sessions.
func (h *SessionHandler) create(w http.ResponseWriter, r *http.Request) {
	var req exerciseRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	s, err := h.registry.Create(exercise.Kind(req.Exercise))
	if err != nil {
		if errors.Is(err, exercise.ErrUnknownExercise) {
			writeError(w, http.StatusBadRequest, "Unknown exercise")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}
	writeStatus(w, http.StatusCreated, s)
}

// get handles GET /api/sessions/{id}.
func (h *SessionHandler) get(w http.ResponseWriter, id string) {
	s, ok := h.registry.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	writeStatus(w, http.StatusOK, s)
}

// delete handles DELETE /api/sessions/{id}.
func (h *SessionHandler) delete(w http.ResponseWriter, id string) {
	if !h.registry.Remove(id) {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// frame handles POST /api/sessions/{id}/frames. The session is created on
// first use.
func (h *SessionHandler) frame(w http.ResponseWriter, r *http.Request, id string) {
	var req FrameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Frame too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	f, err := h.decoder.Decode(&req)
	if err != nil {
		writeError(w, frameStatus(err), err.Error())
		return
	}

	res, err := h.evaluate(id, f)
	if err != nil {
		writeError(w, frameStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// evaluate runs f against the session for id. A session removed between
// lookup and evaluation is recreated once.
func (h *SessionHandler) evaluate(id string, f session.Frame) (session.Result, error) {
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		var s *session.Session
		s, err = h.registry.Acquire(id)
		if err != nil {
			return session.Result{}, err
		}
		var res session.Result
		res, err = s.Evaluate(f)
		if !errors.Is(err, session.ErrSessionClosed) {
			return res, err
		}
	}
	return session.Result{}, err
}

// setExercise handles PUT /api/sessions/{id}/exercise.
func (h *SessionHandler) setExercise(w http.ResponseWriter, r *http.Request, id string) {
	var req exerciseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Exercise == "" {
		writeError(w, http.StatusBadRequest, "Exercise is required")
		return
	}

	s, ok := h.registry.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	if err := s.SetExercise(exercise.Kind(req.Exercise)); err != nil {
		switch {
		case errors.Is(err, exercise.ErrUnknownExercise):
			writeError(w, http.StatusBadRequest, "Unknown exercise")
		case errors.Is(err, session.ErrSessionClosed):
			writeError(w, http.StatusGone, "Session closed")
		default:
			writeError(w, http.StatusInternalServerError, "Failed to set exercise")
		}
		return
	}
	writeStatus(w, http.StatusOK, s)
}

// reset handles POST /api/sessions/{id}/reset.
func (h *SessionHandler) reset(w http.ResponseWriter, id string) {
	s, ok := h.registry.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	if err := s.Reset(); err != nil {
		writeError(w, http.StatusGone, "Session closed")
		return
	}
	writeStatus(w, http.StatusOK, s)
}
