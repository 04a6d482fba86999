package core

import (
	"fmt"
	"math"
)

// ArgError reports a foreign-function argument of the wrong type. It is
// thrown into the script as a TypeError.
type ArgError struct {
	Index int
	Want  string
	Got   any
}

func (e *ArgError) Error() string {
	return fmt.Sprintf("argument %d: expected %s, got %s", e.Index, e.Want, jsTypeOf(e.Got))
}

func jsTypeOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case []any:
		return "array"
	default:
		return "object"
	}
}

// RequireString returns args[i] as a string.
func RequireString(args []any, i int) (string, error) {
	s, ok := args[i].(string)
	if !ok {
		return "", &ArgError{Index: i, Want: "string", Got: args[i]}
	}
	return s, nil
}

// RequireNumber returns args[i] as a float64.
func RequireNumber(args []any, i int) (float64, error) {
	n, ok := args[i].(float64)
	if !ok {
		return 0, &ArgError{Index: i, Want: "number", Got: args[i]}
	}
	return n, nil
}

// RequireBool returns args[i] as a bool.
func RequireBool(args []any, i int) (bool, error) {
	b, ok := args[i].(bool)
	if !ok {
		return false, &ArgError{Index: i, Want: "boolean", Got: args[i]}
	}
	return b, nil
}

// RequireHandle returns args[i] as a positive integer handle.
func RequireHandle(args []any, i int) (uint64, error) {
	n, ok := args[i].(float64)
	if !ok || n < 1 || n != math.Trunc(n) || n > math.MaxUint32 {
		return 0, &ArgError{Index: i, Want: "handle", Got: args[i]}
	}
	return uint64(n), nil
}
