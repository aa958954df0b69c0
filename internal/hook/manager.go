package hook

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/ayusman/handcoach/internal/exercise"
)

// ErrHookNotFound is returned when a requested hook cannot be found.
var ErrHookNotFound = errors.New("hook not found")

// Manager discovers hooks and indexes them by name.
type Manager struct {
	hookDir string
	hooks   map[string]*Hook
	mu      sync.RWMutex
}

// NewManager creates a Manager for hookDir.
func NewManager(hookDir string) *Manager {
	return &Manager{
		hookDir: hookDir,
		hooks:   make(map[string]*Hook),
	}
}

// Discover rescans the hook directory. A missing directory yields no hooks.
// Directories with an unreadable or invalid manifest are skipped and logged.
func (m *Manager) Discover() error {
	hooks := make(map[string]*Hook)

	info, err := os.Stat(m.hookDir)
	switch {
	case os.IsNotExist(err):
		m.replace(hooks)
		return nil
	case err != nil:
		return err
	case !info.IsDir():
		return fmt.Errorf("hook dir %s is not a directory", m.hookDir)
	}

	entries, err := os.ReadDir(m.hookDir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		hookPath := filepath.Join(m.hookDir, entry.Name())
		h, err := loadHook(hookPath)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				log.Printf("Skipping hook %s: %v", entry.Name(), err)
			}
			continue
		}
		hooks[h.Manifest.Name] = h
	}

	m.replace(hooks)
	return nil
}

func loadHook(dir string) (*Hook, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, err
	}

	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parse %s: %w", ManifestFile, err)
	}
	if manifest.Name == "" || manifest.Executable == "" {
		return nil, fmt.Errorf("%s needs a name and an executable", ManifestFile)
	}
	for _, ev := range manifest.Events {
		if ev != exercise.EventCycleCompleted && ev != exercise.EventExerciseCompleted {
			return nil, fmt.Errorf("unknown event %q", ev)
		}
	}

	return &Hook{
		Manifest:   manifest,
		Path:       dir,
		Executable: filepath.Join(dir, manifest.Executable),
	}, nil
}

func (m *Manager) replace(hooks map[string]*Hook) {
	m.mu.Lock()
	m.hooks = hooks
	m.mu.Unlock()
}

// Get returns a hook by name.
func (m *Manager) Get(name string) (*Hook, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	h, ok := m.hooks[name]
	if !ok {
		return nil, ErrHookNotFound
	}
	return h, nil
}

// List returns every discovered hook sorted by name.
func (m *Manager) List() []*Hook {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Hook, 0, len(m.hooks))
	for _, h := range m.hooks {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Manifest.Name < out[j].Manifest.Name })
	return out
}

// Subscribed returns the hooks listening for ev, sorted by name.
func (m *Manager) Subscribed(ev exercise.Event) []*Hook {
	var out []*Hook
	for _, h := range m.List() {
		if h.Manifest.Subscribes(ev) {
			out = append(out, h)
		}
	}
	return out
}

// HookDir returns the hook directory path.
func (m *Manager) HookDir() string {
	return m.hookDir
}
