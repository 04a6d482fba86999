package scripthost

import (
	"github.com/cryguy/scripthost/internal/core"
	"github.com/cryguy/scripthost/internal/lifecycle"
	"github.com/cryguy/scripthost/internal/scene"
)

// Type aliases re-exporting internal types so embedders can supply their
// own bindings, scene host or interpreter without importing internal
// packages.

type Binding = core.Binding
type NativeFunc = core.NativeFunc
type ArgError = core.ArgError
type ScriptError = core.ScriptError
type Interpreter = core.Interpreter
type InterpreterFactory = core.InterpreterFactory
type Stats = lifecycle.Stats
type SceneHost = scene.Host
type SceneHandle = scene.Handle
type SceneDef = scene.Def
type SceneItemDef = scene.ItemDef

// Undefined is returned by a NativeFunc that produces no JS value.
var Undefined = core.Undefined

// Argument validators for NativeFunc implementations.
var (
	RequireString = core.RequireString
	RequireNumber = core.RequireNumber
	RequireBool   = core.RequireBool
	RequireHandle = core.RequireHandle
)
