package core

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrBootstrap is wrapped by errors caused by an environment script that
// cannot be read or parsed.
var ErrBootstrap = errors.New("error found in bootstrap script")

// ScriptError is a JavaScript exception surfaced to Go.
type ScriptError struct {
	Name    string // script name, e.g. "bootstrap" or "user"
	Message string
	Line    int    // 0 when the engine reported no line
	Type    string // constructor name of the thrown error, e.g. "TypeError"
	Parse   bool   // the source failed to compile; nothing in it ran
}

func (e *ScriptError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s: %s (line %d)", e.Name, e.Message, e.Line)
	}
	return fmt.Sprintf("%s: %s", e.Name, e.Message)
}

// IsParseError reports whether err is a script that failed to parse. A
// SyntaxError thrown at run time (JSON.parse, eval) does not count.
func IsParseError(err error) bool {
	var se *ScriptError
	return errors.As(err, &se) && se.Parse
}

// LogScriptError logs err at error level. ScriptErrors get their message
// and line as separate attributes.
func LogScriptError(log *slog.Logger, err error) {
	var se *ScriptError
	if errors.As(err, &se) {
		if se.Line > 0 {
			log.Error("script error", "script", se.Name, "message", se.Message, "line", se.Line)
		} else {
			log.Error("script error", "script", se.Name, "message", se.Message)
		}
		return
	}
	log.Error("script error", "err", err)
}
