package hostapi

import (
	"fmt"

	"github.com/cryguy/scripthost/internal/core"
)

// timersJS creates the per-generation stash and the setTimer shim. The
// stash lives only in this closure; each entry ties a timer id to its
// [receiver, callback] pair until the event loop takes it. The event loop
// reaches it through a take function keyed by a symbol unique per heap, so
// it never shows up in globalThis property names.
const timersJS = `
(function(key) {
	var timers = {};
	Object.defineProperty(globalThis, Symbol.for(key), {
		value: function(id) {
			var entry = timers[id];
			delete timers[id];
			return entry;
		},
		enumerable: false,
		writable: false,
		configurable: false
	});
	var spawn = OBS.internal.timerSpawn;
	OBS.setTimer = function(seconds, callback) {
		if (typeof callback !== 'function') {
			throw new TypeError('not a function');
		}
		var id = spawn(seconds);
		timers[id] = [this, callback];
	};
	globalThis.setTimer = OBS.setTimer;
})(%q);
`

// SetupTimers installs OBS.setTimer (also reachable as a global). The heap
// owner must implement core.TimerScheduler; timers are spawned on the
// generation that owns the heap.
func SetupTimers(rt core.Interpreter) error {
	sched, ok := rt.Owner().(core.TimerScheduler)
	if !ok {
		return fmt.Errorf("heap owner %T cannot schedule timers", rt.Owner())
	}

	spawn := core.Binding{
		Name:  "timerSpawn",
		Arity: 1,
		Fn: func(args []any) (any, error) {
			seconds, err := core.RequireNumber(args, 0)
			if err != nil {
				return nil, err
			}
			return sched.ScheduleTimer(seconds)
		},
	}
	if err := core.RegisterForeign(rt, InternalNamespace, spawn); err != nil {
		return err
	}

	return rt.Eval(fmt.Sprintf(timersJS, sched.TimerStash()))
}
