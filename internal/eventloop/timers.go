package eventloop

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// TimerID identifies a live timer. IDs are random UUIDs, so they stay unique
// among live timers regardless of how goroutines are scheduled.
type TimerID string

func newTimerID() TimerID {
	return TimerID(uuid.NewString())
}

// timerHandle tracks one timer goroutine. done is closed when the goroutine
// returns, which is what "joining" a timer waits on.
type timerHandle struct {
	deadline time.Time
	done     chan struct{}
}

// TimerRegistry maps timer IDs to their goroutines. An entry lives from
// spawn until the timer is either reaped after firing or cancelled and
// joined during teardown.
type TimerRegistry struct {
	mu     sync.Mutex
	timers map[TimerID]*timerHandle
	halt   chan struct{} // closed once to wake every outstanding timer
	halted bool
}

func newTimerRegistry() *TimerRegistry {
	return &TimerRegistry{
		timers: make(map[TimerID]*timerHandle),
		halt:   make(chan struct{}),
	}
}

// spawn registers a timer and starts its goroutine. The entry is in the map
// before spawn returns, so the caller never observes a timer that exists
// but is not registered. On timeout the goroutine pushes EventTimerFired
// onto q and returns; it never touches the interpreter.
func (r *TimerRegistry) spawn(delay time.Duration, q *Queue) TimerID {
	id := newTimerID()
	h := &timerHandle{
		deadline: time.Now().Add(delay),
		done:     make(chan struct{}),
	}

	r.mu.Lock()
	if r.halted {
		// Teardown already started; nothing will ever fire.
		r.mu.Unlock()
		close(h.done)
		return id
	}
	r.timers[id] = h
	halt := r.halt
	r.mu.Unlock()

	go func() {
		defer close(h.done)
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-halt:
		case <-t.C:
			q.Push(Event{Kind: EventTimerFired, TimerID: id})
		}
	}()
	return id
}

// reap forgets a timer that has fired. Its goroutine has already pushed its
// event and returns on its own, so nothing waits for it. Reports false if
// the entry was already gone.
func (r *TimerRegistry) reap(id TimerID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.timers[id]; !ok {
		return false
	}
	delete(r.timers, id)
	return true
}

// cancelAll wakes every outstanding timer, waits for all of their
// goroutines to return and clears the registry. Returns how many timers
// were pending.
func (r *TimerRegistry) cancelAll() int {
	r.mu.Lock()
	if !r.halted {
		r.halted = true
		close(r.halt)
	}
	pending := r.timers
	r.timers = make(map[TimerID]*timerHandle)
	r.mu.Unlock()

	for _, h := range pending {
		<-h.done
	}
	return len(pending)
}

// Len returns the number of registered timers.
func (r *TimerRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.timers)
}

// Has reports whether id is registered.
func (r *TimerRegistry) Has(id TimerID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.timers[id]
	return ok
}

// NextDeadline returns the earliest deadline among registered timers.
func (r *TimerRegistry) NextDeadline() (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var next time.Time
	for _, h := range r.timers {
		if next.IsZero() || h.deadline.Before(next) {
			next = h.deadline
		}
	}
	return next, !next.IsZero()
}
