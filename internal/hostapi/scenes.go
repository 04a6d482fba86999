package hostapi

import (
	"github.com/cryguy/scripthost/internal/core"
	"github.com/cryguy/scripthost/internal/scene"
)

// SceneBindings returns the handle-based scene catalogue installed under
// OBS.internal. Every binding validates its arguments before touching host.
func SceneBindings(host scene.Host) []core.Binding {
	return []core.Binding{
		{Name: "sceneFind", Arity: 1, Fn: func(args []any) (any, error) {
			name, err := core.RequireString(args, 0)
			if err != nil {
				return nil, err
			}
			h, ok := host.FindScene(name)
			if !ok {
				return nil, nil
			}
			return h, nil
		}},
		{Name: "sceneRelease", Arity: 1, Fn: func(args []any) (any, error) {
			h, err := core.RequireHandle(args, 0)
			if err != nil {
				return nil, err
			}
			return core.Undefined, host.ReleaseScene(scene.Handle(h))
		}},
		{Name: "sceneSelect", Arity: 1, Fn: func(args []any) (any, error) {
			h, err := core.RequireHandle(args, 0)
			if err != nil {
				return nil, err
			}
			return core.Undefined, host.SelectScene(scene.Handle(h))
		}},
		{Name: "sceneItemFind", Arity: 2, Fn: func(args []any) (any, error) {
			h, err := core.RequireHandle(args, 0)
			if err != nil {
				return nil, err
			}
			name, err := core.RequireString(args, 1)
			if err != nil {
				return nil, err
			}
			item, ok, err := host.FindItem(scene.Handle(h), name)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, nil
			}
			return item, nil
		}},
		{Name: "sceneItemRelease", Arity: 1, Fn: func(args []any) (any, error) {
			h, err := core.RequireHandle(args, 0)
			if err != nil {
				return nil, err
			}
			return core.Undefined, host.ReleaseItem(scene.Handle(h))
		}},
		{Name: "sceneItemSetVisible", Arity: 2, Fn: func(args []any) (any, error) {
			h, err := core.RequireHandle(args, 0)
			if err != nil {
				return nil, err
			}
			visible, err := core.RequireBool(args, 1)
			if err != nil {
				return nil, err
			}
			return core.Undefined, host.SetItemVisible(scene.Handle(h), visible)
		}},
	}
}

// SetupScenes returns a SetupFunc installing SceneBindings(host).
func SetupScenes(host scene.Host) SetupFunc {
	return SetupBindings(InternalNamespace, SceneBindings(host))
}
