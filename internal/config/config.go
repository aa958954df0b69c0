// Package config loads service configuration from HANDCOACH_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/ayusman/handcoach/internal/exercise"
	"github.com/ayusman/handcoach/internal/posture"
)

// Config is the process configuration. Everything here is fixed at startup.
type Config struct {
	Addr    string `env:"HANDCOACH_ADDR"     envDefault:":8080"`
	DataDir string `env:"HANDCOACH_DATA_DIR"`
	DBPath  string `env:"HANDCOACH_DB_PATH"`
	HookDir string `env:"HANDCOACH_HOOK_DIR"`

	HookTimeout time.Duration `env:"HANDCOACH_HOOK_TIMEOUT" envDefault:"5s"`

	DefaultExercise string        `env:"HANDCOACH_DEFAULT_EXERCISE" envDefault:"fist"`
	Hold            time.Duration `env:"HANDCOACH_HOLD"             envDefault:"3s"`
	TotalCycles     int           `env:"HANDCOACH_TOTAL_CYCLES"     envDefault:"5"`
	VerticalMargin  float64       `env:"HANDCOACH_VERTICAL_MARGIN"  envDefault:"0.02"`
	ThumbDistance   float64       `env:"HANDCOACH_THUMB_DISTANCE"   envDefault:"0.15"`

	SessionTTL    time.Duration `env:"HANDCOACH_SESSION_TTL"    envDefault:"30m"`
	MaxSessions   int           `env:"HANDCOACH_MAX_SESSIONS"   envDefault:"1024"`
	SweepInterval time.Duration `env:"HANDCOACH_SWEEP_INTERVAL" envDefault:"1m"`
	MaxFrameBytes int64         `env:"HANDCOACH_MAX_FRAME_BYTES" envDefault:"4194304"`

	Practice    bool `env:"HANDCOACH_PRACTICE"     envDefault:"false"`
	CameraID    int  `env:"HANDCOACH_CAMERA_ID"    envDefault:"0"`
	PracticeFPS int  `env:"HANDCOACH_PRACTICE_FPS" envDefault:"15"`
}

// Load parses the environment, fills derived paths and validates.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("resolve home directory: %w", err)
		}
		cfg.DataDir = filepath.Join(home, ".handcoach")
	}
	cfg.fillPaths()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) fillPaths() {
	if c.DBPath == "" {
		c.DBPath = filepath.Join(c.DataDir, "handcoach.db")
	}
	if c.HookDir == "" {
		c.HookDir = filepath.Join(c.DataDir, "hooks")
	}
}

// Validate rejects values the engine cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("HANDCOACH_ADDR must not be empty"))
	}
	if _, err := exercise.ParseKind(c.DefaultExercise); err != nil {
		errs = append(errs, fmt.Errorf("HANDCOACH_DEFAULT_EXERCISE: %w", err))
	}
	if err := c.ExerciseOptions().Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.VerticalMargin <= 0 {
		errs = append(errs, fmt.Errorf("HANDCOACH_VERTICAL_MARGIN must be positive, got %v", c.VerticalMargin))
	}
	if c.ThumbDistance <= 0 {
		errs = append(errs, fmt.Errorf("HANDCOACH_THUMB_DISTANCE must be positive, got %v", c.ThumbDistance))
	}
	if c.HookTimeout <= 0 {
		errs = append(errs, fmt.Errorf("HANDCOACH_HOOK_TIMEOUT must be positive, got %s", c.HookTimeout))
	}
	if c.SessionTTL < 0 || c.MaxSessions < 0 {
		errs = append(errs, errors.New("session TTL and max sessions must not be negative"))
	}
	if c.MaxFrameBytes <= 0 {
		errs = append(errs, fmt.Errorf("HANDCOACH_MAX_FRAME_BYTES must be positive, got %d", c.MaxFrameBytes))
	}
	if c.Practice && c.PracticeFPS <= 0 {
		errs = append(errs, fmt.Errorf("HANDCOACH_PRACTICE_FPS must be positive, got %d", c.PracticeFPS))
	}
	return errors.Join(errs...)
}

// ExerciseOptions returns the default hold machine options.
func (c Config) ExerciseOptions() exercise.Options {
	return exercise.Options{Hold: c.Hold, TotalCycles: c.TotalCycles}
}

// Thresholds returns the classifier thresholds.
func (c Config) Thresholds() posture.Thresholds {
	return posture.Thresholds{VerticalMargin: c.VerticalMargin, ThumbDistance: c.ThumbDistance}
}

// DefaultKind returns the parsed default exercise. Validate guarantees it
// is known.
func (c Config) DefaultKind() exercise.Kind {
	return exercise.Kind(c.DefaultExercise)
}
