package hostapi

import (
	"log/slog"
	"unicode/utf8"

	"github.com/cryguy/scripthost/internal/core"
)

// consoleJS builds the console object on top of the Go-backed __console.
const consoleJS = `
(function() {
	var sink = globalThis.__console;
	delete globalThis.__console;
	var levels = ['log', 'info', 'warn', 'error', 'debug'];
	var con = {};
	for (var i = 0; i < levels.length; i++) {
		(function(lvl) {
			con[lvl] = function() {
				var parts = [];
				for (var j = 0; j < arguments.length; j++) {
					var arg = arguments[j];
					if (typeof arg === 'object' && arg !== null) {
						try { parts.push(JSON.stringify(arg)); } catch (e) { parts.push('[object Object]'); }
					} else {
						parts.push(String(arg));
					}
				}
				sink(lvl, parts.join(' '));
			};
		})(levels[i]);
	}
	globalThis.console = con;
})();
`

// maxLogMessageSize caps a single console message.
const maxLogMessageSize = 4096

// SetupConsole returns a SetupFunc that replaces globalThis.console with a
// version writing to log.
func SetupConsole(log *slog.Logger) SetupFunc {
	log = log.With("component", "console")
	return func(rt core.Interpreter) error {
		sink := core.Binding{
			Name:  "__console",
			Arity: 2,
			Fn: func(args []any) (any, error) {
				level, _ := args[0].(string)
				message, _ := args[1].(string)
				message = truncate(message, maxLogMessageSize)
				switch level {
				case "error":
					log.Error(message)
				case "warn":
					log.Warn(message)
				case "debug":
					log.Debug(message)
				default:
					log.Info(message)
				}
				return core.Undefined, nil
			},
		}
		if err := core.RegisterForeign(rt, "", sink); err != nil {
			return err
		}
		return rt.Eval(consoleJS)
	}
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "...(truncated)"
}
