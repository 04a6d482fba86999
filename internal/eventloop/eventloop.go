package eventloop

import (
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cryguy/scripthost/internal/core"
	"github.com/google/uuid"
)

// Stats are counters maintained by the event loop goroutine.
type Stats struct {
	Events          uint64     `json:"events"`
	Collections     uint64     `json:"collections"`
	TimersFired     uint64     `json:"timers_fired"`
	TimersCancelled uint64     `json:"timers_cancelled"`
	PendingTimers   int        `json:"pending_timers"`
	NextTimer       *time.Time `json:"next_timer,omitempty"`
}

// fireTimerJS takes the stash entry for id and runs its callback with the
// captured receiver. The entry is gone before the callback runs, so it is
// discarded whether or not the callback throws. It returns "missing" when
// no entry exists, "" on success, or a DescribeErrorJS object.
var fireTimerJS = `(function(take, id, describe) {
	var entry = take && take(id);
	if (!entry) return "missing";
	try {
		entry[1].call(entry[0]);
		return "";
	} catch (e) {
		return describe(e);
	}
})(globalThis[Symbol.for(%q)], %q, ` + core.DescribeErrorJS + `)`

// EventLoop is the single consumer of a generation's event queue and the
// only goroutine that calls into the interpreter while the generation runs.
type EventLoop struct {
	queue  *Queue
	timers *TimerRegistry
	stash  string
	log    *slog.Logger

	rt   core.Interpreter
	done chan struct{}

	events      atomic.Uint64
	collections atomic.Uint64
	fired       atomic.Uint64
	cancelled   atomic.Uint64
}

// New creates an event loop with an empty queue and timer registry. The
// stash name is unique per loop so scripts cannot guess it.
func New(log *slog.Logger) *EventLoop {
	return &EventLoop{
		queue:  NewQueue(),
		timers: newTimerRegistry(),
		stash:  "__stash_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		log:    log.With("component", "eventloop"),
	}
}

// Queue returns the loop's event queue.
func (el *EventLoop) Queue() *Queue {
	return el.queue
}

// Stash returns the Symbol.for key of the accessor that takes timer
// callbacks out of the stash.
func (el *EventLoop) Stash() string {
	return el.stash
}

// SetTimer registers a one-shot timer that fires after delay.
func (el *EventLoop) SetTimer(delay time.Duration) TimerID {
	return el.timers.spawn(delay, el.queue)
}

// PendingTimers returns the number of registered timers.
func (el *EventLoop) PendingTimers() int {
	return el.timers.Len()
}

// HasTimer reports whether id is still registered.
func (el *EventLoop) HasTimer(id TimerID) bool {
	return el.timers.Has(id)
}

// Stats returns a snapshot of the loop counters.
func (el *EventLoop) Stats() Stats {
	st := Stats{
		Events:          el.events.Load(),
		Collections:     el.collections.Load(),
		TimersFired:     el.fired.Load(),
		TimersCancelled: el.cancelled.Load(),
		PendingTimers:   el.timers.Len(),
	}
	if next, ok := el.timers.NextDeadline(); ok {
		st.NextTimer = &next
	}
	return st
}

// Start launches the loop goroutine. From here on rt belongs to the loop.
func (el *EventLoop) Start(rt core.Interpreter) {
	el.rt = rt
	el.done = make(chan struct{})
	go el.run()
}

// Stop pushes a stop event, waits for the loop goroutine to exit (which
// cancels and joins every timer) and discards whatever is still queued.
func (el *EventLoop) Stop() {
	if el.done == nil {
		return
	}
	el.queue.Push(Event{Kind: EventStop})
	<-el.done
	el.queue.Clear()
}

// Abandon cancels and joins every timer of a loop that was never started
// and empties its queue.
func (el *EventLoop) Abandon() {
	n := el.timers.cancelAll()
	el.cancelled.Add(uint64(n))
	el.queue.Clear()
}

func (el *EventLoop) run() {
	defer close(el.done)
	for {
		if !el.handle(el.queue.Pop()) {
			return
		}
	}
}

// handle dispatches one event. It returns false when the loop must stop.
func (el *EventLoop) handle(ev Event) bool {
	el.events.Add(1)
	switch ev.Kind {
	case EventCollectGarbage:
		el.collectGarbage()
	case EventTimerFired:
		el.fireTimer(ev.TimerID)
	case EventStop:
		n := el.timers.cancelAll()
		el.cancelled.Add(uint64(n))
		el.log.Debug("event loop stopped", "cancelled_timers", n)
		return false
	default:
		el.log.Warn("unknown event", "kind", ev.Kind)
	}
	return true
}

// collectGarbage runs two passes: the second reclaims what only finalizers
// released during the first one kept alive.
func (el *EventLoop) collectGarbage() {
	el.rt.CollectGarbage()
	el.rt.CollectGarbage()
	el.rt.RunMicrotasks()
	el.collections.Add(1)
}

// fireTimer invokes the stashed callback for id and reaps the timer. A
// missing stash entry (timer cleared by a racing teardown) is a no-op.
func (el *EventLoop) fireTimer(id TimerID) {
	out, err := el.rt.EvalString(fmt.Sprintf(fireTimerJS, el.stash, string(id)))
	el.rt.RunMicrotasks()
	switch {
	case err != nil:
		core.LogScriptError(el.log, &core.ScriptError{Name: "timer", Message: err.Error()})
	case out == "missing":
		el.log.Debug("timer callback missing", "timer", id)
	default:
		if terr := core.ParseThrown("timer", out); terr != nil {
			core.LogScriptError(el.log, terr)
		}
		el.fired.Add(1)
	}
	el.timers.reap(id)
}
