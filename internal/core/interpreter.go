package core

// Interpreter abstracts the JavaScript engine (QuickJS or V8) behind the
// small surface the script host needs. An Interpreter owns one engine heap
// and is not safe for concurrent use: exactly one goroutine may call into it
// at a time. The host guarantees this by only touching it from the event
// loop goroutine once a script generation is running.
type Interpreter interface {
	// Eval evaluates JavaScript source and discards the result.
	Eval(js string) error

	// EvalString evaluates JavaScript and returns the result as a Go string.
	EvalString(js string) (string, error)

	// EvalBool evaluates JavaScript and returns the result as a Go bool.
	EvalBool(js string) (bool, error)

	// SetGlobal sets a global variable on the JS context. Basic Go types
	// (string, int, float64, bool) are auto-converted to JS types.
	SetGlobal(name string, value any) error

	// RegisterFunc registers a Go function as a global JavaScript function.
	// Only func(string) string is required to be supported; RegisterForeign
	// builds every host binding on top of that shape.
	RegisterFunc(name string, fn any) error

	// CollectGarbage runs one full collection cycle. It is idempotent and
	// safe to call repeatedly.
	CollectGarbage()

	// RunMicrotasks pumps the job queue (Promise reactions and
	// FinalizationRegistry callbacks).
	RunMicrotasks()

	// Owner returns the opaque value passed to the InterpreterFactory when
	// the heap was created.
	Owner() any

	// Close destroys the heap. The Interpreter must not be used afterwards.
	Close()
}

// InterpreterFactory creates a fresh heap bound to owner.
type InterpreterFactory func(owner any, cfg Config) (Interpreter, error)

// TimerScheduler is implemented by the owner of an Interpreter heap so that
// foreign functions can schedule one-shot timers on the generation that
// owns them.
type TimerScheduler interface {
	ScheduleTimer(seconds float64) (string, error)
	TimerStash() string
}
