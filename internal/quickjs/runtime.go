//go:build !v8

package quickjs

import (
	"fmt"

	"github.com/cryguy/scripthost/internal/core"
	"modernc.org/libc"
	"modernc.org/quickjs"
)

// qjsRuntime implements core.Interpreter for the QuickJS engine.
type qjsRuntime struct {
	vm    *quickjs.VM
	owner any

	// cached from VM internals for direct C API access (GC, job pump);
	// ok is false when the struct layout could not be read.
	cRuntime uintptr
	tls      *libc.TLS
	ok       bool
}

var _ core.Interpreter = (*qjsRuntime)(nil)

// New creates a QuickJS heap bound to owner. It satisfies
// core.InterpreterFactory.
func New(owner any, cfg core.Config) (core.Interpreter, error) {
	vm, err := quickjs.NewVM()
	if err != nil {
		return nil, fmt.Errorf("creating QuickJS VM: %w", err)
	}

	if cfg.MemoryLimitMB > 0 {
		vm.SetMemoryLimit(uintptr(cfg.MemoryLimitMB) * 1024 * 1024)
	}

	r := &qjsRuntime{vm: vm, owner: owner}
	r.cRuntime, r.tls, r.ok = extractRuntime(vm)
	return r, nil
}

// Eval evaluates JavaScript and discards the result.
func (r *qjsRuntime) Eval(js string) error {
	v, err := r.vm.EvalValue(js, quickjs.EvalGlobal)
	if err != nil {
		return err
	}
	v.Free()
	return nil
}

// EvalString evaluates JavaScript and returns the result as a Go string.
func (r *qjsRuntime) EvalString(js string) (string, error) {
	result, err := r.vm.Eval(js, quickjs.EvalGlobal)
	if err != nil {
		return "", err
	}
	if result == nil {
		return "", nil
	}
	return fmt.Sprint(result), nil
}

// EvalBool evaluates JavaScript and returns the result as a Go bool.
func (r *qjsRuntime) EvalBool(js string) (bool, error) {
	result, err := r.vm.Eval(js, quickjs.EvalGlobal)
	if err != nil {
		return false, err
	}
	b, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("expected bool, got %T", result)
	}
	return b, nil
}

// RegisterFunc registers a Go function as a global JavaScript function.
func (r *qjsRuntime) RegisterFunc(name string, fn any) error {
	return r.vm.RegisterFunc(name, fn, false)
}

// SetGlobal sets a global property on the VM's global object.
func (r *qjsRuntime) SetGlobal(name string, value any) error {
	atom, err := r.vm.NewAtom(name)
	if err != nil {
		return fmt.Errorf("creating atom %q: %w", name, err)
	}
	glob := r.vm.GlobalObject()
	defer glob.Free()
	return glob.SetProperty(atom, value)
}

// CollectGarbage runs JS_RunGC on the VM's runtime.
func (r *qjsRuntime) CollectGarbage() {
	runGC(r.cRuntime, r.tls, r.ok)
}

// RunMicrotasks pumps the QuickJS job queue.
func (r *qjsRuntime) RunMicrotasks() {
	executePendingJobs(r.cRuntime, r.tls, r.ok)
}

// Owner returns the value the heap was created for.
func (r *qjsRuntime) Owner() any {
	return r.owner
}

// Close frees the VM.
func (r *qjsRuntime) Close() {
	r.vm.Close()
}

// VM returns the underlying QuickJS VM for engine-specific operations.
func (r *qjsRuntime) VM() *quickjs.VM {
	return r.vm
}
