package validate

import (
	"fmt"
	"strings"

	"github.com/gogpu/tir/ir"
)

// Severity classifies how serious a Diagnostic is. The validator only ever
// emits Error today; Warning is reserved for future non-fatal findings
// (e.g. a deprecated construct that still validates).
type Severity uint8

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// Diagnostic identifies a single invariant violation: its severity, a
// human-readable message, the instruction it was raised against (nil for
// module- or function-level findings), and the enclosing function (nil for
// module-level findings). The enclosing block is not recorded.
type Diagnostic struct {
	Severity    Severity
	Message     string
	Instruction *ir.Instruction
	Function    *ir.Function
}

// String renders the diagnostic the way Result.Dump lays it out: severity,
// message, then the owning function if known.
func (d Diagnostic) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", d.Severity, d.Message)
	if d.Function != nil {
		fmt.Fprintf(&b, " (in function %%%s)", d.Function.FuncName)
	}
	return b.String()
}

// Result is the outcome of a Validate call: a (possibly empty) list of
// Diagnostics. A zero-value Result is success.
type Result struct {
	Diagnostics []Diagnostic
}

// Ok reports whether the module passed validation with no error-severity
// diagnostics.
func (r Result) Ok() bool {
	for _, d := range r.Diagnostics {
		if d.Severity == SeverityError {
			return false
		}
	}
	return true
}

// Error renders every diagnostic on its own line, satisfying the error
// interface so callers may `return nil, result.AsError()`-style plumbing
// without a separate error type.
func (r Result) Error() string {
	lines := make([]string, len(r.Diagnostics))
	for i, d := range r.Diagnostics {
		lines[i] = d.String()
	}
	return strings.Join(lines, "\n")
}

// AsError returns r as an error if it contains any diagnostic, or nil if it
// is clean. Convenience for the common `if err := result.AsError(); err !=
// nil` pattern.
func (r Result) AsError() error {
	if len(r.Diagnostics) == 0 {
		return nil
	}
	return r
}

// Dump renders m as disassembly text alongside the diagnostics, for the
// debug-only "print disassembly next to the error" path. Not part of the
// returned error value: callers opt into this explicitly.
func (r Result) Dump(m *ir.Module) string {
	var b strings.Builder
	b.WriteString(ir.Disassemble(m))
	b.WriteString("\n--- diagnostics ---\n")
	for _, d := range r.Diagnostics {
		b.WriteString(d.String())
		b.WriteByte('\n')
	}
	return b.String()
}

func (r *Result) addf(inst *ir.Instruction, fn *ir.Function, format string, args ...any) {
	r.Diagnostics = append(r.Diagnostics, Diagnostic{
		Severity:    SeverityError,
		Message:     fmt.Sprintf(format, args...),
		Instruction: inst,
		Function:    fn,
	})
}
