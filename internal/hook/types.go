// Package hook runs external executables when a session reaches an exercise
// milestone. Hooks live in their own directory under the hook dir and are
// described by a hook.yaml manifest.
package hook

import (
	"encoding/json"
	"time"

	"github.com/ayusman/handcoach/internal/exercise"
)

// ManifestFile is the manifest name looked up in each hook directory.
const ManifestFile = "hook.yaml"

// Manifest describes a hook and the events it subscribes to.
type Manifest struct {
	Name        string           `yaml:"name"`
	Version     string           `yaml:"version"`
	Description string           `yaml:"description"`
	Executable  string           `yaml:"executable"`
	Events      []exercise.Event `yaml:"events"`
}

// Subscribes reports whether the manifest lists ev.
func (m Manifest) Subscribes(ev exercise.Event) bool {
	for _, e := range m.Events {
		if e == ev {
			return true
		}
	}
	return false
}

// Event is written to a hook's stdin as JSON.
type Event struct {
	Type         exercise.Event `json:"type"`
	SessionID    string         `json:"session_id"`
	Exercise     exercise.Kind  `json:"exercise"`
	ExerciseName string         `json:"exercise_name"`
	Cycle        int            `json:"cycle"`
	TotalCycles  int            `json:"total_cycles"`
	Timestamp    time.Time      `json:"timestamp"`
}

// Response is read from a hook's stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Hook is a discovered hook with its manifest and location.
type Hook struct {
	Manifest   Manifest
	Path       string
	Executable string
}
