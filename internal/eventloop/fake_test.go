package eventloop

import (
	"strings"
	"sync"

	"github.com/cryguy/scripthost/internal/core"
)

// fakeInterpreter records what the loop asks of it.
type fakeInterpreter struct {
	mu         sync.Mutex
	gcCalls    int
	microtasks int
	evals      []string
	closed     bool

	// result returned by EvalString; "" means the callback ran cleanly.
	result string
}

var _ core.Interpreter = (*fakeInterpreter)(nil)

func (f *fakeInterpreter) Eval(js string) error {
	_, err := f.EvalString(js)
	return err
}

func (f *fakeInterpreter) EvalString(js string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evals = append(f.evals, js)
	return f.result, nil
}

func (f *fakeInterpreter) EvalBool(string) (bool, error)  { return false, nil }
func (f *fakeInterpreter) SetGlobal(string, any) error    { return nil }
func (f *fakeInterpreter) RegisterFunc(string, any) error { return nil }
func (f *fakeInterpreter) Owner() any                     { return nil }

func (f *fakeInterpreter) CollectGarbage() {
	f.mu.Lock()
	f.gcCalls++
	f.mu.Unlock()
}

func (f *fakeInterpreter) RunMicrotasks() {
	f.mu.Lock()
	f.microtasks++
	f.mu.Unlock()
}

func (f *fakeInterpreter) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

func (f *fakeInterpreter) gc() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gcCalls
}

// fired counts fireTimerJS evaluations mentioning id.
func (f *fakeInterpreter) fired(id TimerID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, js := range f.evals {
		if strings.Contains(js, string(id)) {
			n++
		}
	}
	return n
}
