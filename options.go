package scripthost

import (
	"log/slog"

	"github.com/cryguy/scripthost/internal/core"
	"github.com/cryguy/scripthost/internal/scene"
)

// Option configures a Script.
type Option func(*options)

type namespacedBindings struct {
	ns       string
	bindings []Binding
}

type options struct {
	logger    *slog.Logger
	host      scene.Host
	bindings  []namespacedBindings
	bootstrap string
	factory   core.InterpreterFactory
}

// WithLogger sets the logger, overriding Config.Logger.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) { o.logger = log }
}

// WithSceneHost replaces the built-in scene catalog with host.
func WithSceneHost(host SceneHost) Option {
	return func(o *options) { o.host = host }
}

// WithBindings installs extra foreign functions under the dotted namespace
// ns ("" for globals) in every heap, after the built-in bindings.
func WithBindings(ns string, bindings ...Binding) Option {
	return func(o *options) {
		o.bindings = append(o.bindings, namespacedBindings{ns: ns, bindings: bindings})
	}
}

// WithBootstrap uses src as the environment script instead of reading
// Config.Bootstrap.
func WithBootstrap(src string) Option {
	return func(o *options) { o.bootstrap = src }
}

// WithInterpreter overrides the interpreter backend.
func WithInterpreter(factory InterpreterFactory) Option {
	return func(o *options) { o.factory = factory }
}
