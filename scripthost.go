// Package scripthost runs one user-supplied JavaScript program inside an
// embedded interpreter for the lifetime of a host application. Each Load
// builds a fresh heap with the host bindings, the environment (bootstrap)
// script and the user script, then hands the heap to a single event loop
// goroutine that runs timer callbacks and periodic garbage collection until
// the script is stopped or replaced.
package scripthost

import (
	"fmt"
	"log/slog"

	"github.com/cryguy/scripthost/internal/core"
	"github.com/cryguy/scripthost/internal/hostapi"
	"github.com/cryguy/scripthost/internal/lifecycle"
	"github.com/cryguy/scripthost/internal/scene"
	"github.com/cryguy/scripthost/internal/scriptsrc"
)

// Script hosts one script at a time. Its methods are safe for concurrent
// use.
type Script struct {
	ctl     *lifecycle.Controller
	catalog *scene.Catalog
	store   *scene.Store
	log     *slog.Logger
}

// New creates an unloaded Script. The bootstrap script is read and parsed
// here; a missing or unparsable bootstrap is an error wrapping ErrBootstrap.
func New(cfg Config, opts ...Option) (*Script, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger != nil {
		cfg.Logger = o.logger
	}
	ccfg := cfg.core()
	log := ccfg.Logger

	bootstrap := o.bootstrap
	if bootstrap == "" {
		var err error
		bootstrap, err = scriptsrc.ReadBootstrap(cfg.Bootstrap)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", core.ErrBootstrap, err)
		}
	}
	if err := scriptsrc.Check(bootstrap, "bootstrap"); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrBootstrap, err)
	}

	s := &Script{log: log}

	host := o.host
	if host == nil {
		if cfg.ScenesDB != "" {
			store, err := scene.OpenStore(cfg.ScenesDB)
			if err != nil {
				return nil, err
			}
			s.store = store
		}
		catalog, err := scene.NewCatalog(s.store, log)
		if err != nil {
			s.closeStore()
			return nil, fmt.Errorf("loading scenes: %w", err)
		}
		for _, def := range cfg.Scenes {
			if err := catalog.AddScene(def); err != nil {
				s.closeStore()
				return nil, fmt.Errorf("adding scene %q: %w", def.Name, err)
			}
		}
		s.catalog = catalog
		host = catalog
	}

	setups := []hostapi.SetupFunc{
		hostapi.SetupScenes(host),
		hostapi.SetupConsole(log),
	}
	for _, nb := range o.bindings {
		setups = append(setups, hostapi.SetupBindings(nb.ns, nb.bindings))
	}

	factory := o.factory
	if factory == nil {
		factory = newInterpreter
	}
	s.ctl = lifecycle.New(ccfg, factory, bootstrap, setups...)
	return s, nil
}

// Load replaces the running script with text. An empty text only unloads.
// Exceptions thrown by the scripts are logged, not returned.
func (s *Script) Load(text string) error {
	return s.ctl.Load(text)
}

// Stop unloads the running script. It is a no-op when nothing is loaded.
func (s *Script) Stop() {
	s.ctl.Stop()
}

// GetText returns the text most recently passed to Load.
func (s *Script) GetText() string {
	return s.ctl.GetText()
}

// Loaded reports whether a script heap currently exists.
func (s *Script) Loaded() bool {
	return s.ctl.Loaded()
}

// Stats returns counters of the running generation.
func (s *Script) Stats() Stats {
	return s.ctl.Stats()
}

// Scenes returns the built-in scene catalog, or nil when a custom host was
// supplied with WithSceneHost.
func (s *Script) Scenes() *scene.Catalog {
	return s.catalog
}

// Close stops the script and closes the scene store.
func (s *Script) Close() error {
	s.ctl.Stop()
	return s.closeStore()
}

func (s *Script) closeStore() error {
	if s.store == nil {
		return nil
	}
	err := s.store.Close()
	s.store = nil
	return err
}

// CheckScript parses src without running it.
func CheckScript(src, name string) error {
	return scriptsrc.Check(src, name)
}

// ReadScript reads a script file, transpiling TypeScript.
func ReadScript(path string) (string, error) {
	return scriptsrc.ReadScript(path)
}

// ErrBootstrap is wrapped by errors caused by an unreadable or unparsable
// bootstrap script.
var ErrBootstrap = core.ErrBootstrap
