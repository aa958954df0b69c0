package hook

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/ayusman/handcoach/internal/exercise"
	"github.com/ayusman/handcoach/internal/session"
)

// maxInFlight bounds concurrently running hook processes.
const maxInFlight = 8

// Dispatcher fans session milestones out to subscribed hooks. Hook failures
// are logged and never reach the evaluating session.
type Dispatcher struct {
	manager  *Manager
	executor *Executor
	now      func() time.Time

	sem chan struct{}
	wg  sync.WaitGroup
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(manager *Manager, executor *Executor) *Dispatcher {
	return &Dispatcher{
		manager:  manager,
		executor: executor,
		now:      time.Now,
		sem:      make(chan struct{}, maxInFlight),
	}
}

// Notify converts a session result into an Event and runs subscribed hooks
// in the background. It returns immediately; when maxInFlight hooks are
// already running the event is dropped.
func (d *Dispatcher) Notify(res session.Result) {
	if res.Event == exercise.EventNone {
		return
	}
	hooks := d.manager.Subscribed(res.Event)
	if len(hooks) == 0 {
		return
	}

	ev := d.eventFor(res)
	select {
	case d.sem <- struct{}{}:
	default:
		log.Printf("Dropping %s event for session %s: %d hooks already running", ev.Type, ev.SessionID, maxInFlight)
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() { <-d.sem }()
		d.run(context.Background(), hooks, ev)
	}()
}

// Dispatch runs every hook subscribed to ev.Type and waits for them. It
// returns the number of hooks that reported success.
func (d *Dispatcher) Dispatch(ctx context.Context, ev *Event) int {
	return d.run(ctx, d.manager.Subscribed(ev.Type), ev)
}

func (d *Dispatcher) run(ctx context.Context, hooks []*Hook, ev *Event) int {
	ok := 0
	for _, h := range hooks {
		resp, err := d.executor.Execute(ctx, h, ev)
		if err != nil {
			log.Printf("Hook %s on %s: %v", h.Manifest.Name, ev.Type, err)
			continue
		}
		if !resp.Success {
			log.Printf("Hook %s on %s reported failure: %s", h.Manifest.Name, ev.Type, resp.Error)
			continue
		}
		ok++
	}
	return ok
}

// Wait blocks until every background hook started by Notify has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) eventFor(res session.Result) *Event {
	ev := &Event{
		Type:         res.Event,
		SessionID:    res.SessionID,
		Exercise:     res.Exercise,
		ExerciseName: res.ExerciseName,
		Timestamp:    d.now(),
	}
	if res.Structured != nil {
		ev.Cycle = res.Structured.CurrentCycle
		ev.TotalCycles = res.Structured.TotalCycles
	}
	return ev
}
