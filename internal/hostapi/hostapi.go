// Package hostapi installs the host bindings into a fresh interpreter heap:
// the scene object model under OBS.internal, the setTimer shim, console
// logging and any user-supplied foreign functions.
package hostapi

import (
	"fmt"

	"github.com/cryguy/scripthost/internal/core"
)

// Namespace is the global object scripts reach the host through.
const Namespace = "OBS"

// InternalNamespace holds the raw, handle-based bindings that the
// bootstrap script wraps in friendlier objects.
const InternalNamespace = Namespace + ".internal"

// SetupFunc configures a freshly created heap.
type SetupFunc func(rt core.Interpreter) error

// SetupNamespaces creates the empty OBS and OBS.internal objects.
func SetupNamespaces(rt core.Interpreter) error {
	return core.EnsureNamespace(rt, InternalNamespace)
}

// SetupBindings returns a SetupFunc registering every binding of table
// under ns ("" for the global object).
func SetupBindings(ns string, table []core.Binding) SetupFunc {
	return func(rt core.Interpreter) error {
		for _, b := range table {
			if err := core.RegisterForeign(rt, ns, b); err != nil {
				return fmt.Errorf("installing %s: %w", b.Name, err)
			}
		}
		return nil
	}
}
