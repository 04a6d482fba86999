package eventloop

import "sync"

// EventKind discriminates Event values.
type EventKind int

const (
	EventCollectGarbage EventKind = iota
	EventStop
	EventTimerFired
)

func (k EventKind) String() string {
	switch k {
	case EventCollectGarbage:
		return "collect-garbage"
	case EventStop:
		return "stop"
	case EventTimerFired:
		return "timer-fired"
	default:
		return "unknown"
	}
}

// Event is a unit of work for the event loop. TimerID is only set for
// EventTimerFired.
type Event struct {
	Kind    EventKind
	TimerID TimerID
}

// Queue is an unbounded, blocking FIFO of events. It is the only structure
// shared between producer goroutines and the event loop.
type Queue struct {
	mu       sync.Mutex
	nonEmpty *sync.Cond
	events   []Event
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	q := &Queue{}
	q.nonEmpty = sync.NewCond(&q.mu)
	return q
}

// Push appends ev and wakes one waiting consumer.
func (q *Queue) Push(ev Event) {
	q.mu.Lock()
	q.events = append(q.events, ev)
	q.mu.Unlock()
	q.nonEmpty.Signal()
}

// Pop blocks until an event is available and removes it.
func (q *Queue) Pop() Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.events) == 0 {
		q.nonEmpty.Wait()
	}
	ev := q.events[0]
	q.events[0] = Event{}
	q.events = q.events[1:]
	return ev
}

// Clear discards all pending events.
func (q *Queue) Clear() {
	q.mu.Lock()
	q.events = nil
	q.mu.Unlock()
}

// Empty reports whether no events are pending.
func (q *Queue) Empty() bool {
	return q.Len() == 0
}

// Len returns the number of pending events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}
