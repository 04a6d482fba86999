//go:build !v8

package quickjs

import (
	"reflect"
	"unsafe"

	"modernc.org/libc"
	lib "modernc.org/libquickjs"
	"modernc.org/quickjs"
)

// runGC runs a full QuickJS collection cycle (reference counts plus cycle
// removal). FinalizationRegistry callbacks it schedules are queued as jobs.
func runGC(cRuntime uintptr, tls *libc.TLS, ok bool) {
	if !ok {
		return
	}
	lib.XJS_RunGC(tls, cRuntime)
}

// executePendingJobs drains the QuickJS job queue and returns how many jobs
// ran.
func executePendingJobs(cRuntime uintptr, tls *libc.TLS, ok bool) int {
	if !ok {
		return 0
	}
	count := 0
	for {
		ret := lib.XJS_ExecutePendingJob(tls, cRuntime, 0)
		if ret <= 0 {
			break
		}
		count++
	}
	return count
}

// extractRuntime uses unsafe reflection to pull the unexported tls and
// cRuntime values out of a *quickjs.VM.
//
// VM struct layout (modernc.org/quickjs@v0.17.1):
//
//	type VM struct {
//	    cContext       uintptr
//	    goFuncs       map[string]int32
//	    int32_16      lib.TJSValue
//	    int32_2       lib.TJSValue
//	    runtime       *runtime
//	    ...
//	}
//
//	type runtime struct {
//	    cRuntime uintptr
//	    tls      *libc.TLS
//	}
func extractRuntime(vm *quickjs.VM) (cRuntime uintptr, tls *libc.TLS, ok bool) {
	defer func() {
		if recover() != nil {
			cRuntime, tls, ok = 0, nil, false
		}
	}()

	vmVal := reflect.ValueOf(vm).Elem()

	rtField := vmVal.FieldByName("runtime")
	if !rtField.IsValid() || rtField.IsNil() {
		return 0, nil, false
	}

	rtPtr := unsafe.Pointer(rtField.Pointer())
	rtVal := reflect.NewAt(rtField.Type().Elem(), rtPtr).Elem()

	cRuntimeField := rtVal.FieldByName("cRuntime")
	if !cRuntimeField.IsValid() {
		return 0, nil, false
	}
	cRuntime = uintptr(cRuntimeField.Uint())

	tlsField := rtVal.FieldByName("tls")
	if !tlsField.IsValid() || tlsField.IsNil() {
		return 0, nil, false
	}
	tls = (*libc.TLS)(unsafe.Pointer(tlsField.Pointer()))

	return cRuntime, tls, cRuntime != 0
}
