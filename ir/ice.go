package ir

import "fmt"

// ICE is an internal consistency error: a precondition of the IR API was
// violated by the caller (a null operand, inserting an attached instruction,
// removing from the wrong block, destroying an instruction with live uses).
// ICEs are not a reportable error type — they indicate a bug in the caller,
// not in the module being processed, so they panic rather than returning an
// error value.
type ICE struct {
	Message string
}

func (e *ICE) Error() string { return "ICE: " + e.Message }

// ICEf panics with a formatted ICE. Use for unconditional internal
// consistency failures reached only by a broken caller.
func ICEf(format string, args ...any) {
	panic(&ICE{Message: fmt.Sprintf(format, args...)})
}

// ICEIf panics with a formatted ICE if cond is true.
func ICEIf(cond bool, format string, args ...any) {
	if cond {
		ICEf(format, args...)
	}
}

// Assert panics with an ICE if cond is false. Named to read naturally at
// call sites: Assert(x != nil, "...").
func Assert(cond bool, format string, args ...any) {
	if !cond {
		ICEf(format, args...)
	}
}
