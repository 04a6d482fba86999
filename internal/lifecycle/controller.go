// Package lifecycle owns script generations: it tears down the previous
// interpreter heap with its event loop, watchdog and timers before building
// a new one, and it is the owner value every heap is created with.
package lifecycle

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cryguy/scripthost/internal/core"
	"github.com/cryguy/scripthost/internal/eventloop"
	"github.com/cryguy/scripthost/internal/hostapi"
)

// errNotLoaded is returned to foreign calls made while no generation exists.
var errNotLoaded = errors.New("no script loaded")

// maxTimerSeconds is the longest delay a time.Duration can hold.
const maxTimerSeconds = float64(math.MaxInt64) / float64(time.Second)

// generation is one load-to-unload lifetime of a heap and its goroutines.
type generation struct {
	rt       core.Interpreter
	loop     *eventloop.EventLoop
	watchdog *eventloop.Watchdog
}

// Stats describes the current generation.
type Stats struct {
	Loaded bool `json:"loaded"`
	eventloop.Stats
}

// Controller loads and unloads scripts. Load, Stop and GetText are safe for
// concurrent use; Load and Stop are serialised.
type Controller struct {
	cfg       core.Config
	factory   core.InterpreterFactory
	bootstrap string
	setups    []hostapi.SetupFunc
	log       *slog.Logger

	mu   sync.Mutex
	text string
	gen  atomic.Pointer[generation]
}

var _ core.TimerScheduler = (*Controller)(nil)

// New creates a controller. setups run, in order, on every fresh heap
// before the bootstrap script.
func New(cfg core.Config, factory core.InterpreterFactory, bootstrap string, setups ...hostapi.SetupFunc) *Controller {
	cfg = cfg.WithDefaults()
	return &Controller{
		cfg:       cfg,
		factory:   factory,
		bootstrap: bootstrap,
		setups:    setups,
		log:       cfg.Logger.With("component", "lifecycle"),
	}
}

// Load replaces the running script with text. The previous generation is
// torn down completely before anything else happens; an empty text leaves
// the controller unloaded. Exceptions thrown by either script are logged
// and do not fail Load. A bootstrap script that does not parse does: the
// half-built heap is destroyed and an error wrapping core.ErrBootstrap is
// returned.
func (c *Controller) Load(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.text = text
	c.teardown()

	if text == "" {
		return nil
	}

	loop := eventloop.New(c.cfg.Logger)
	gen := &generation{
		loop:     loop,
		watchdog: eventloop.NewWatchdog(loop.Queue(), c.cfg.GCInterval, c.cfg.Logger.With("component", "watchdog")),
	}
	// Visible to ScheduleTimer while the scripts below run.
	c.gen.Store(gen)

	rt, err := c.factory(c, c.cfg)
	if err != nil {
		c.gen.Store(nil)
		return fmt.Errorf("creating interpreter: %w", err)
	}
	gen.rt = rt

	setups := append([]hostapi.SetupFunc{hostapi.SetupNamespaces}, c.setups...)
	setups = append(setups, hostapi.SetupTimers)
	for _, setup := range setups {
		if err := setup(rt); err != nil {
			c.discard(gen)
			return fmt.Errorf("setup: %w", err)
		}
	}

	if err := core.RunScript(rt, "bootstrap", c.bootstrap); err != nil {
		core.LogScriptError(c.log, err)
		if core.IsParseError(err) {
			c.discard(gen)
			return fmt.Errorf("%w: %w", core.ErrBootstrap, err)
		}
	}

	if err := core.RunScript(rt, "user", text); err != nil {
		core.LogScriptError(c.log, err)
	}

	loop.Start(rt)
	gen.watchdog.Acquire()
	gen.watchdog.Start()

	c.log.Info("script loaded", "bytes", len(text))
	return nil
}

// Stop unloads the running script, if any.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.teardown()
}

// GetText returns the most recently loaded script text.
func (c *Controller) GetText() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text
}

// Loaded reports whether a heap currently exists.
func (c *Controller) Loaded() bool {
	return c.gen.Load() != nil
}

// Stats returns counters of the current generation.
func (c *Controller) Stats() Stats {
	gen := c.gen.Load()
	if gen == nil {
		return Stats{}
	}
	return Stats{Loaded: true, Stats: gen.loop.Stats()}
}

// teardown stops the current generation. The order matters: the event loop
// stops first (cancelling and joining every timer), then the watchdog is
// released and joined, and only then is the heap destroyed, since both may
// still reference this generation until they have exited.
func (c *Controller) teardown() {
	gen := c.gen.Load()
	if gen == nil {
		return
	}

	gen.loop.Stop()

	gen.watchdog.Release()
	gen.watchdog.Join()

	gen.rt.Close()
	c.gen.Store(nil)
	c.log.Info("script unloaded")
}

// discard destroys a generation whose event loop was never started.
func (c *Controller) discard(gen *generation) {
	gen.loop.Abandon()
	gen.rt.Close()
	c.gen.Store(nil)
}

// ScheduleTimer starts a one-shot timer on the current generation. It is
// only called from foreign functions, i.e. by whichever goroutine owns the
// heap at that moment.
func (c *Controller) ScheduleTimer(seconds float64) (string, error) {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return "", fmt.Errorf("invalid timer duration %v", seconds)
	}
	if seconds < 0 {
		seconds = 0
	}
	gen := c.gen.Load()
	if gen == nil {
		return "", errNotLoaded
	}
	d := time.Duration(math.MaxInt64)
	if seconds < maxTimerSeconds {
		d = time.Duration(seconds * float64(time.Second))
	}
	return string(gen.loop.SetTimer(d)), nil
}

// TimerStash returns the stash name of the current generation.
func (c *Controller) TimerStash() string {
	gen := c.gen.Load()
	if gen == nil {
		return ""
	}
	return gen.loop.Stash()
}
