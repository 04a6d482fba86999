package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// NativeFunc is the shared dispatch signature of every foreign function.
// args always has exactly the binding's arity; missing JS arguments arrive
// as nil. Values are decoded from JSON, so numbers are float64 and objects
// are map[string]any.
type NativeFunc func(args []any) (any, error)

// Binding is one entry of a foreign-function table.
type Binding struct {
	Name  string
	Arity int
	Fn    NativeFunc
}

// undefinedResult marks a native call that returns nothing to JS.
type undefinedResult struct{}

// Undefined is returned by a NativeFunc that produces no JS value.
var Undefined any = undefinedResult{}

// envelope is the JSON shape passed back from Go to the JS wrapper.
type envelope struct {
	Value json.RawMessage `json:"value,omitempty"`
	Error string          `json:"error,omitempty"`
	Type  string          `json:"type,omitempty"`
}

// EnsureNamespace creates the dotted object path ns under globalThis if it
// does not exist yet.
func EnsureNamespace(rt Interpreter, ns string) error {
	if ns == "" {
		return nil
	}
	js := fmt.Sprintf(`(function() {
		var parts = %s.split('.');
		var obj = globalThis;
		for (var i = 0; i < parts.length; i++) {
			if (typeof obj[parts[i]] !== 'object' || obj[parts[i]] === null) {
				obj[parts[i]] = {};
			}
			obj = obj[parts[i]];
		}
	})()`, JsEscape(ns))
	return rt.Eval(js)
}

// RawName is the global the Go side of binding name in ns is registered
// under.
func RawName(ns, name string) string {
	return "__raw_" + strings.ReplaceAll(ns, ".", "_") + "_" + name
}

// RegisterForeign installs b as ns.<b.Name> (or a global when ns is empty).
// The Go side is registered as a func(string) string taking a JSON array of
// arguments and returning a JSON envelope, so every backend only has to
// marshal strings.
func RegisterForeign(rt Interpreter, ns string, b Binding) error {
	if err := EnsureNamespace(rt, ns); err != nil {
		return fmt.Errorf("creating namespace %q: %w", ns, err)
	}

	rawName := RawName(ns, b.Name)
	if err := rt.RegisterFunc(rawName, func(argsJSON string) string {
		return dispatchForeign(b, argsJSON)
	}); err != nil {
		return fmt.Errorf("registering %s: %w", b.Name, err)
	}

	params := make([]string, b.Arity)
	for i := range params {
		params[i] = fmt.Sprintf("a%d", i)
	}
	target := "globalThis"
	if ns != "" {
		target = "globalThis." + ns
	}
	plist := strings.Join(params, ", ")

	wrapJS := fmt.Sprintf(`(function() {
		var raw = globalThis[%q];
		delete globalThis[%q];
		%s[%q] = function(%s) {
			var r = JSON.parse(raw(JSON.stringify([%s])));
			if (r.error !== undefined) {
				throw r.type === 'TypeError' ? new TypeError(r.error) : new Error(r.error);
			}
			return r.value;
		};
	})()`, rawName, rawName, target, b.Name, plist, plist)
	return rt.Eval(wrapJS)
}

// dispatchForeign decodes the argument array, calls the binding and encodes
// the result or error envelope.
func dispatchForeign(b Binding, argsJSON string) string {
	var args []any
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return encodeEnvelope(envelope{Error: fmt.Sprintf("%s: decoding arguments: %v", b.Name, err), Type: "TypeError"})
	}
	for len(args) < b.Arity {
		args = append(args, nil)
	}
	args = args[:b.Arity]

	v, err := b.Fn(args)
	if err != nil {
		env := envelope{Error: err.Error()}
		var argErr *ArgError
		if errors.As(err, &argErr) {
			env.Type = "TypeError"
		}
		return encodeEnvelope(env)
	}
	if v == Undefined {
		return "{}"
	}
	data, err := json.Marshal(v)
	if err != nil {
		return encodeEnvelope(envelope{Error: fmt.Sprintf("%s: encoding result: %v", b.Name, err)})
	}
	return encodeEnvelope(envelope{Value: data})
}

func encodeEnvelope(env envelope) string {
	data, err := json.Marshal(env)
	if err != nil {
		return `{"error":"internal encoding failure"}`
	}
	return string(data)
}
