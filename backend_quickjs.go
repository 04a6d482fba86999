//go:build !v8

package scripthost

import (
	"github.com/cryguy/scripthost/internal/core"
	"github.com/cryguy/scripthost/internal/quickjs"
)

// Backend names the interpreter compiled into this build.
const Backend = "quickjs"

func newInterpreter(owner any, cfg core.Config) (core.Interpreter, error) {
	return quickjs.New(owner, cfg)
}
