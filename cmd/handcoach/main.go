package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ayusman/handcoach/internal/app"
	"github.com/ayusman/handcoach/internal/capture"
	"github.com/ayusman/handcoach/internal/config"
	"github.com/ayusman/handcoach/internal/detector"
	"github.com/ayusman/handcoach/internal/exercise"
	"github.com/ayusman/handcoach/internal/hook"
	"github.com/ayusman/handcoach/internal/posture"
	"github.com/ayusman/handcoach/internal/server"
	"github.com/ayusman/handcoach/internal/session"
	"github.com/ayusman/handcoach/internal/store"
)

// defaultExerciseKey is the settings row that overrides
// HANDCOACH_DEFAULT_EXERCISE.
const defaultExerciseKey = "default_exercise"

func main() {
	fmt.Println("Handcoach - hand exercise coach")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	addr := flag.String("addr", cfg.Addr, "listen address")
	practice := flag.Bool("practice", cfg.Practice, "run the local camera practice loop")
	flag.Parse()
	cfg.Addr = *addr
	cfg.Practice = *practice

	if err := run(cfg); err != nil {
		log.Fatalf("handcoach: %v", err)
	}
}

func run(cfg config.Config) error {
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	st, err := store.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initialize store: %w", err)
	}
	defer st.Close()

	catalog, err := st.Exercises().Catalog(cfg.ExerciseOptions())
	if err != nil {
		return fmt.Errorf("load exercises: %w", err)
	}
	defaultKind := resolveDefault(st, catalog, cfg.DefaultKind())

	hooks := hook.NewManager(cfg.HookDir)
	if err := hooks.Discover(); err != nil {
		log.Printf("Hook discovery failed: %v", err)
	}
	log.Printf("Loaded %d hooks from %s", len(hooks.List()), hooks.HookDir())
	dispatcher := hook.NewDispatcher(hooks, hook.NewExecutor(cfg.HookTimeout))
	defer dispatcher.Wait()

	registry, err := session.NewRegistry(session.Config{
		Catalog:         catalog,
		Classifier:      posture.NewClassifier(cfg.Thresholds()),
		DefaultExercise: defaultKind,
		TTL:             cfg.SessionTTL,
		MaxSessions:     cfg.MaxSessions,
		Notify:          dispatcher.Notify,
	})
	if err != nil {
		return fmt.Errorf("create session registry: %w", err)
	}
	defer registry.Close()

	var det detector.Detector
	if mp, err := detector.NewMediaPipeDetector(detector.DefaultConfig()); err == nil {
		det = mp
		defer mp.Close()
		log.Println("Using MediaPipe hand detection")
	} else {
		log.Printf("MediaPipe not available (%v), image frames disabled", err)
	}

	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: server.New(server.Config{
			Registry:      registry,
			Catalog:       catalog,
			Detector:      det,
			Hooks:         hooks,
			MaxFrameBytes: cfg.MaxFrameBytes,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("Starting server on %s", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.SweepInterval > 0 && cfg.SessionTTL > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(cfg.SweepInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					if n := registry.Sweep(); n > 0 {
						log.Printf("Expired %d idle sessions", n)
					}
				}
			}
		})
	}

	if cfg.Practice {
		if det == nil {
			log.Println("Practice loop needs a hand detector, skipping")
		} else {
			loop, err := app.New(app.Config{
				Registry: registry,
				Camera:   capture.NewCamera(capture.Options{DeviceID: cfg.CameraID, FPS: cfg.PracticeFPS, Mirror: true}),
				Detector: det,
				Exercise: defaultKind,
				FPS:      cfg.PracticeFPS,
			})
			if err != nil {
				return fmt.Errorf("create practice loop: %w", err)
			}
			g.Go(func() error {
				if err := loop.Run(ctx); err != nil {
					log.Printf("Practice loop failed: %v", err)
				}
				return nil
			})
		}
	}

	return g.Wait()
}

// resolveDefault applies the stored default exercise override when it names
// an enabled exercise, falling back to the configured default and then to
// the first enabled exercise.
func resolveDefault(st *store.Store, catalog *exercise.Catalog, fallback exercise.Kind) exercise.Kind {
	candidates := []exercise.Kind{fallback}
	if v, err := st.Settings().Get(defaultExerciseKey); err == nil {
		candidates = append([]exercise.Kind{exercise.Kind(v)}, candidates...)
	} else if !errors.Is(err, store.ErrNotFound) {
		log.Printf("Failed to read %s setting: %v", defaultExerciseKey, err)
	}
	for _, e := range catalog.Entries() {
		candidates = append(candidates, e.Kind)
	}

	for _, kind := range candidates {
		if _, err := catalog.Lookup(kind); err != nil {
			log.Printf("Default exercise %s unavailable: %v", kind, err)
			continue
		}
		return kind
	}
	return fallback
}
