package core

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// scriptSrcGlobal temporarily holds the source handed to RunScript.
const scriptSrcGlobal = "__tmp_script_src"

// DescribeErrorJS is a JS function expression that turns a thrown value into
// the JSON {message, line, type} object understood by ParseThrown. The line
// comes from lineNumber when the engine sets it, else from the first stack
// frame.
const DescribeErrorJS = `function(e) {
		var msg, line = 0, type = '';
		if (e !== null && typeof e === 'object') {
			msg = e.message !== undefined ? String(e.message) : String(e);
			if (typeof e.name === 'string') type = e.name;
			if (typeof e.lineNumber === 'number') {
				line = e.lineNumber;
			} else if (typeof e.stack === 'string') {
				var m = /(?:^|\n)\s*at [^\n]*?:(\d+)(?::\d+)?\)?\s*(?=\n|$)/.exec(e.stack);
				if (m) line = +m[1];
			}
		} else {
			msg = String(e);
		}
		return JSON.stringify({ message: msg, line: line, type: type });
	}`

// runScriptJS evaluates the staged source at global scope (indirect eval).
// A SyntaxError is marked as a parse failure when the source does not
// compile on its own either.
var runScriptJS = fmt.Sprintf(`(function(describe) {
	var src = globalThis.%s;
	delete globalThis.%s;
	try {
		(0, eval)(src);
		return "";
	} catch (e) {
		if (!(e instanceof SyntaxError)) return describe(e);
		var out = JSON.parse(describe(e));
		try { new Function(src); } catch (p) { out.parse = p instanceof SyntaxError; }
		return JSON.stringify(out);
	}
})(%s)`, scriptSrcGlobal, scriptSrcGlobal, DescribeErrorJS)

// RunScript evaluates src at global scope and pumps pending jobs. A thrown
// exception is returned as a *ScriptError; other errors come from the
// engine itself.
func RunScript(rt Interpreter, name, src string) error {
	if err := rt.SetGlobal(scriptSrcGlobal, src); err != nil {
		return fmt.Errorf("staging %s script: %w", name, err)
	}
	out, err := rt.EvalString(runScriptJS)
	rt.RunMicrotasks()
	if err != nil {
		return &ScriptError{Name: name, Message: err.Error()}
	}
	return ParseThrown(name, out)
}

// ParseThrown converts the output of DescribeErrorJS into a *ScriptError.
// An empty string means nothing was thrown.
func ParseThrown(name, out string) error {
	if out == "" {
		return nil
	}
	var thrown struct {
		Message string `json:"message"`
		Line    int    `json:"line"`
		Type    string `json:"type"`
		Parse   bool   `json:"parse"`
	}
	if err := json.Unmarshal([]byte(out), &thrown); err != nil {
		return &ScriptError{Name: name, Message: out}
	}
	return &ScriptError{Name: name, Message: thrown.Message, Line: thrown.Line, Type: thrown.Type, Parse: thrown.Parse}
}

// JsEscape escapes a string for safe embedding in JavaScript source code.
func JsEscape(s string) string {
	return strconv.Quote(s)
}
