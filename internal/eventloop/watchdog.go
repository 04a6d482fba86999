package eventloop

import (
	"log/slog"
	"sync"
	"time"
)

// Watchdog forces a garbage collection at least once per interval while a
// script is alive. It waits up to interval for release; if release has not
// happened it pushes EventCollectGarbage and waits again. Releasing is the
// only way to stop it.
type Watchdog struct {
	queue    *Queue
	interval time.Duration
	log      *slog.Logger

	mu      sync.Mutex
	release chan struct{}
	done    chan struct{}
}

// NewWatchdog creates a watchdog that feeds q every interval.
func NewWatchdog(q *Queue, interval time.Duration, log *slog.Logger) *Watchdog {
	return &Watchdog{
		queue:    q,
		interval: interval,
		log:      log,
	}
}

// Acquire marks the script as alive. It must be called before Start.
func (w *Watchdog) Acquire() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.release = make(chan struct{})
}

// Start launches the watchdog goroutine.
func (w *Watchdog) Start() {
	w.mu.Lock()
	release := w.release
	w.done = make(chan struct{})
	done := w.done
	w.mu.Unlock()

	if release == nil {
		panic("eventloop: Watchdog.Start called before Acquire")
	}

	go func() {
		defer close(done)
		t := time.NewTimer(w.interval)
		defer t.Stop()
		for {
			select {
			case <-release:
				return
			case <-t.C:
				w.log.Debug("gc interval elapsed")
				w.queue.Push(Event{Kind: EventCollectGarbage})
				t.Reset(w.interval)
			}
		}
	}()
}

// Release tells the watchdog goroutine to exit. Safe to call more than once.
func (w *Watchdog) Release() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.release == nil {
		return
	}
	select {
	case <-w.release:
	default:
		close(w.release)
	}
}

// Join waits for the watchdog goroutine to exit.
func (w *Watchdog) Join() {
	w.mu.Lock()
	done := w.done
	w.mu.Unlock()
	if done != nil {
		<-done
	}
}
