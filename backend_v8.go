//go:build v8

package scripthost

import (
	"github.com/cryguy/scripthost/internal/core"
	"github.com/cryguy/scripthost/internal/v8engine"
)

// Backend names the interpreter compiled into this build.
const Backend = "v8"

func newInterpreter(owner any, cfg core.Config) (core.Interpreter, error) {
	return v8engine.New(owner, cfg)
}
