package core

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeEnvelope(t *testing.T, s string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(s), &m))
	return m
}

func TestDispatchForeign_Value(t *testing.T) {
	b := Binding{Name: "add", Arity: 2, Fn: func(args []any) (any, error) {
		x, err := RequireNumber(args, 0)
		if err != nil {
			return nil, err
		}
		y, err := RequireNumber(args, 1)
		if err != nil {
			return nil, err
		}
		return x + y, nil
	}}

	env := decodeEnvelope(t, dispatchForeign(b, `[2, 3]`))
	assert.Equal(t, 5.0, env["value"])
	assert.NotContains(t, env, "error")
}

func TestDispatchForeign_PadsAndTruncatesToArity(t *testing.T) {
	var got []any
	b := Binding{Name: "f", Arity: 2, Fn: func(args []any) (any, error) {
		got = args
		return Undefined, nil
	}}

	assert.Equal(t, "{}", dispatchForeign(b, `["a"]`))
	assert.Equal(t, []any{"a", nil}, got)

	dispatchForeign(b, `["a", "b", "c"]`)
	assert.Equal(t, []any{"a", "b"}, got)
}

func TestDispatchForeign_ArgErrorIsTypeError(t *testing.T) {
	b := Binding{Name: "f", Arity: 1, Fn: func(args []any) (any, error) {
		_, err := RequireString(args, 0)
		return nil, err
	}}

	env := decodeEnvelope(t, dispatchForeign(b, `[5]`))
	assert.Equal(t, "TypeError", env["type"])
	assert.Equal(t, "argument 0: expected string, got number", env["error"])
}

func TestDispatchForeign_PlainError(t *testing.T) {
	b := Binding{Name: "f", Arity: 0, Fn: func([]any) (any, error) {
		return nil, errors.New("invalid scene: invalid handle")
	}}

	env := decodeEnvelope(t, dispatchForeign(b, `[]`))
	assert.Equal(t, "invalid scene: invalid handle", env["error"])
	assert.NotContains(t, env, "type")
}

func TestDispatchForeign_NilIsNull(t *testing.T) {
	b := Binding{Name: "f", Arity: 0, Fn: func([]any) (any, error) { return nil, nil }}
	assert.JSONEq(t, `{"value":null}`, dispatchForeign(b, `[]`))
}

func TestDispatchForeign_BadArgumentJSON(t *testing.T) {
	b := Binding{Name: "f", Arity: 0, Fn: func([]any) (any, error) {
		t.Fatal("binding called with undecodable arguments")
		return nil, nil
	}}
	env := decodeEnvelope(t, dispatchForeign(b, `not json`))
	assert.Equal(t, "TypeError", env["type"])
}

// recordingInterpreter captures registrations and evaluated source.
type recordingInterpreter struct {
	funcs map[string]any
	evals []string
}

func (r *recordingInterpreter) Eval(js string) error {
	r.evals = append(r.evals, js)
	return nil
}
func (r *recordingInterpreter) EvalString(js string) (string, error) { return "", r.Eval(js) }
func (r *recordingInterpreter) EvalBool(string) (bool, error)        { return false, nil }
func (r *recordingInterpreter) SetGlobal(string, any) error          { return nil }
func (r *recordingInterpreter) RegisterFunc(name string, fn any) error {
	if r.funcs == nil {
		r.funcs = make(map[string]any)
	}
	r.funcs[name] = fn
	return nil
}
func (r *recordingInterpreter) CollectGarbage() {}
func (r *recordingInterpreter) RunMicrotasks()  {}
func (r *recordingInterpreter) Owner() any      { return nil }
func (r *recordingInterpreter) Close()          {}

func TestRegisterForeign(t *testing.T) {
	rt := &recordingInterpreter{}
	b := Binding{Name: "echo", Arity: 1, Fn: func(args []any) (any, error) { return args[0], nil }}

	require.NoError(t, RegisterForeign(rt, "OBS.internal", b))

	raw, ok := rt.funcs["__raw_OBS_internal_echo"].(func(string) string)
	require.True(t, ok, "raw binding must be a func(string) string")
	assert.JSONEq(t, `{"value":"hi"}`, raw(`["hi"]`))

	require.NotEmpty(t, rt.evals)
	wrapper := rt.evals[len(rt.evals)-1]
	assert.Contains(t, wrapper, `globalThis.OBS.internal["echo"] = function(a0)`)
	assert.Contains(t, wrapper, `delete globalThis["__raw_OBS_internal_echo"]`)
}

func TestRegisterForeign_Global(t *testing.T) {
	rt := &recordingInterpreter{}
	b := Binding{Name: "ping", Arity: 0, Fn: func([]any) (any, error) { return "pong", nil }}

	require.NoError(t, RegisterForeign(rt, "", b))
	assert.Contains(t, rt.funcs, "__raw__ping")
	assert.Equal(t, "__raw__ping", RawName("", "ping"))
	assert.Equal(t, "__raw____console", RawName("", "__console"))
	assert.Equal(t, "__raw_OBS_internal_echo", RawName("OBS.internal", "echo"))
	assert.Contains(t, rt.evals[len(rt.evals)-1], `globalThis["ping"] = function()`)
}
