package session

import (
	"container/list"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/handcoach/internal/exercise"
	"github.com/ayusman/handcoach/internal/posture"
)

// ErrInvalidID is returned for empty session ids.
var ErrInvalidID = errors.New("invalid session id")

// Config configures a Registry.
type Config struct {
	Catalog    *exercise.Catalog
	Classifier *posture.Classifier
	// DefaultExercise is used for sessions created without one.
	DefaultExercise exercise.Kind
	// TTL evicts sessions idle for longer. Zero disables expiry.
	TTL time.Duration
	// MaxSessions evicts the least recently used session beyond the cap.
	// Zero disables the cap.
	MaxSessions int
	// Clock defaults to time.Now.
	Clock func() time.Time
	// Notify receives every Result that carries an Event. It is called
	// outside the session lock and must not block.
	Notify func(Result)
}

// Registry maps session ids to sessions. Lookups and session activity
// refresh recency; idle and overflow sessions are evicted lazily on access
// or by Sweep.
//
// The registry lock is never held while waiting on a session lock: evicted
// sessions are unlinked under r.mu and closed after it is released. Session
// methods take the registry lock only after releasing their own.
type Registry struct {
	cfg  Config
	deps deps

	mu  sync.Mutex
	lru *list.List               // front = most recently used
	m   map[string]*list.Element // id -> element(Value=*entry)
}

type entry struct {
	s        *Session
	lastUsed time.Time
}

// NewRegistry validates cfg and creates an empty Registry.
func NewRegistry(cfg Config) (*Registry, error) {
	if cfg.Catalog == nil {
		return nil, errors.New("session: catalog is required")
	}
	if cfg.Classifier == nil {
		cfg.Classifier = posture.NewClassifier(posture.DefaultThresholds())
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.DefaultExercise == "" {
		cfg.DefaultExercise = exercise.KindFist
	}
	if _, err := cfg.Catalog.Lookup(cfg.DefaultExercise); err != nil {
		return nil, fmt.Errorf("session: default exercise: %w", err)
	}
	if cfg.TTL < 0 {
		cfg.TTL = 0
	}
	if cfg.MaxSessions < 0 {
		cfg.MaxSessions = 0
	}

	r := &Registry{
		cfg: cfg,
		lru: list.New(),
		m:   make(map[string]*list.Element),
	}
	r.deps = deps{
		catalog:    cfg.Catalog,
		classifier: cfg.Classifier,
		clock:      cfg.Clock,
		notify:     cfg.Notify,
		touch:      r.touch,
	}
	return r, nil
}

// Create starts a session with a new random id. An empty kind selects the
// default exercise.
func (r *Registry) Create(kind exercise.Kind) (*Session, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}
	return r.create(id.String(), kind)
}

// Acquire returns the session for id, creating it with the default exercise
// on first use.
func (r *Registry) Acquire(id string) (*Session, error) {
	if id == "" {
		return nil, ErrInvalidID
	}
	if s, ok := r.Get(id); ok {
		return s, nil
	}
	return r.create(id, "")
}

func (r *Registry) create(id string, kind exercise.Kind) (*Session, error) {
	if kind == "" {
		kind = r.cfg.DefaultExercise
	}
	now := r.cfg.Clock()

	r.mu.Lock()
	evicted := r.evictExpiredLocked(now)
	s, err := r.insertLocked(id, kind, now)
	if err == nil {
		evicted = append(evicted, r.evictOverLimitLocked()...)
	}
	r.mu.Unlock()

	closeAll(evicted)
	return s, err
}

func (r *Registry) insertLocked(id string, kind exercise.Kind, now time.Time) (*Session, error) {
	// Lost a race with another creator.
	if e := r.m[id]; e != nil {
		it := e.Value.(*entry)
		it.lastUsed = now
		r.lru.MoveToFront(e)
		return it.s, nil
	}

	s, err := newSession(id, kind, r.deps)
	if err != nil {
		return nil, err
	}
	r.m[id] = r.lru.PushFront(&entry{s: s, lastUsed: now})
	log.Printf("Session %s created (%s)", id, kind)
	return s, nil
}

// Get returns a live session and marks it used.
func (r *Registry) Get(id string) (*Session, bool) {
	now := r.cfg.Clock()

	r.mu.Lock()
	evicted := r.evictExpiredLocked(now)
	var s *Session
	if e := r.m[id]; e != nil {
		it := e.Value.(*entry)
		it.lastUsed = now
		r.lru.MoveToFront(e)
		s = it.s
	}
	r.mu.Unlock()

	closeAll(evicted)
	return s, s != nil
}

// touch refreshes recency for a session that handled a call. Sessions that
// were already removed, or replaced under the same id, are ignored.
func (r *Registry) touch(id string) {
	now := r.cfg.Clock()

	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.m[id]
	if e == nil {
		return
	}
	it := e.Value.(*entry)
	if now.After(it.lastUsed) {
		it.lastUsed = now
	}
	r.lru.MoveToFront(e)
}

// Remove closes and forgets the session. It waits for an in-flight
// evaluation on that session to finish; no evaluation starts afterwards.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	e := r.m[id]
	if e == nil {
		r.mu.Unlock()
		return false
	}
	s := r.unlinkLocked(e)
	r.mu.Unlock()

	s.close()
	log.Printf("Session %s removed", id)
	return true
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lru.Len()
}

// Sweep evicts expired sessions and returns how many were removed.
func (r *Registry) Sweep() int {
	now := r.cfg.Clock()

	r.mu.Lock()
	evicted := r.evictExpiredLocked(now)
	r.mu.Unlock()

	closeAll(evicted)
	return len(evicted)
}

// Close removes every session.
func (r *Registry) Close() {
	r.mu.Lock()
	evicted := make([]*Session, 0, r.lru.Len())
	for e := r.lru.Front(); e != nil; {
		next := e.Next()
		evicted = append(evicted, r.unlinkLocked(e))
		e = next
	}
	r.mu.Unlock()

	closeAll(evicted)
}

func (r *Registry) evictExpiredLocked(now time.Time) []*Session {
	if r.cfg.TTL <= 0 {
		return nil
	}
	var evicted []*Session
	for e := r.lru.Back(); e != nil; {
		prev := e.Prev()
		it := e.Value.(*entry)
		if now.Sub(it.lastUsed) <= r.cfg.TTL {
			break
		}
		log.Printf("Session %s expired after %s idle", it.s.id, now.Sub(it.lastUsed).Round(time.Second))
		evicted = append(evicted, r.unlinkLocked(e))
		e = prev
	}
	return evicted
}

func (r *Registry) evictOverLimitLocked() []*Session {
	if r.cfg.MaxSessions <= 0 {
		return nil
	}
	var evicted []*Session
	for r.lru.Len() > r.cfg.MaxSessions {
		e := r.lru.Back()
		if e == nil {
			break
		}
		log.Printf("Session %s evicted, limit %d reached", e.Value.(*entry).s.id, r.cfg.MaxSessions)
		evicted = append(evicted, r.unlinkLocked(e))
	}
	return evicted
}

func (r *Registry) unlinkLocked(e *list.Element) *Session {
	it := e.Value.(*entry)
	delete(r.m, it.s.id)
	r.lru.Remove(e)
	return it.s
}

// closeAll closes unlinked sessions. Each close waits for that session's
// in-flight evaluation, so it runs without r.mu held.
func closeAll(ss []*Session) {
	for _, s := range ss {
		s.close()
	}
}
