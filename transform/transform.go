package transform

import (
	"fmt"

	"github.com/gogpu/tir/ir"
	"github.com/gogpu/tir/validate"
)

// Result is the outcome of running a single Transform or an entire Pipeline.
// It wraps validate.Result so a transform refusal (failed prologue
// validation) and a validation failure report through the same shape.
type Result struct {
	validate.Result
}

// Ok reports whether the transform completed with no error diagnostics.
func (r Result) Ok() bool { return r.Result.Ok() }

// Transform is the signature every named pass in this package implements:
// validate the input against caps, mutate m in place, and return without
// validating the output. caps may be nil, meaning "no extension bits
// required beyond DefaultCapabilities".
type Transform func(m *ir.Module, caps *validate.Capabilities) Result

// Pass pairs a Transform with the metadata the Pipeline needs to run it:
// a name for diagnostics/logging and the capability bits its prologue
// validation requires of the input module.
type Pass struct {
	Name     string
	Requires validate.Capabilities
	Run      Transform
}

// Pipeline is an ordered list of passes. Pass ordering is caller-controlled:
// Pipeline only fixes the validate-before/mutate/no-self-validate-after
// contract each pass must honor.
type Pipeline []Pass

// Run executes every pass in order. Before each pass, the module is
// validated against validationCaps union'd with that pass's Requires bits
// (a pass never runs against a module that doesn't already satisfy its own
// prerequisites). If validation fails, the pipeline stops and returns the
// failing diagnostics without running that pass or any later one. A pass's
// own Transform is responsible for any capability checks specific to its
// mutation (e.g. DecomposeAccess verifying Allow16BitIntegers before
// choosing a u16 BaseElem).
func (p Pipeline) Run(m *ir.Module, validationCaps validate.Capabilities) Result {
	for _, pass := range p {
		caps := validationCaps.With(pass.Requires)
		pre := validate.Validate(m, caps)
		if !pre.Ok() {
			return Result{Result: wrapPrologueFailure(pass.Name, pre)}
		}
		res := pass.Run(m, &caps)
		if !res.Ok() {
			return res
		}
	}
	return Result{}
}

// wrapPrologueFailure annotates a failing prologue validation with which
// pass refused to run. A refusal is distinct from a transform error: the
// module is left unchanged and the diagnostics identify the blocking pass.
func wrapPrologueFailure(passName string, pre validate.Result) validate.Result {
	out := validate.Result{Diagnostics: make([]validate.Diagnostic, len(pre.Diagnostics))}
	for i, d := range pre.Diagnostics {
		d.Message = fmt.Sprintf("[%s] prologue validation failed: %s", passName, d.Message)
		out.Diagnostics[i] = d
	}
	return out
}

// walkBlock visits every instruction in b, recursing into blocks owned by
// control instructions, depth first and in program order. Several
// transforms (ModuleScopeVars, MergeReturn, DemoteToHelper) need this same
// traversal.
func walkBlock(b *ir.Block, fn func(*ir.Instruction)) {
	for i := b.Front(); i != nil; {
		next := i.Next()
		fn(i)
		if ctrl, ok := i.Kind.(ir.ControlInstruction); ok {
			ctrl.ForEachBlock(func(child *ir.Block) {
				walkBlock(child, fn)
			})
		}
		i = next
	}
}

// walkFunctions visits every instruction in every function of m, in
// declaration order.
func walkFunctions(m *ir.Module, fn func(*ir.Function, *ir.Instruction)) {
	for _, f := range m.Functions {
		walkBlock(f.Block, func(inst *ir.Instruction) { fn(f, inst) })
	}
}

// callGraph returns, for every function in m, the set of functions it
// calls directly via UserCall.
func callGraph(m *ir.Module) map[*ir.Function]map[*ir.Function]bool {
	g := map[*ir.Function]map[*ir.Function]bool{}
	walkFunctions(m, func(f *ir.Function, inst *ir.Instruction) {
		if call, ok := inst.Kind.(*ir.UserCall); ok {
			if g[f] == nil {
				g[f] = map[*ir.Function]bool{}
			}
			g[f][call.Target] = true
		}
	})
	return g
}

// markReachable adds fn and every function transitively reachable from it
// (via UserCall) to set.
func markReachable(graph map[*ir.Function]map[*ir.Function]bool, fn *ir.Function, set map[*ir.Function]bool) {
	if set[fn] {
		return
	}
	set[fn] = true
	for callee := range graph[fn] {
		markReachable(graph, callee, set)
	}
}

// buildBlockOwners maps every block nested inside a control instruction
// reachable from root to the *ir.Instruction that owns it (an If, Switch or
// Loop). root itself (and any block with no recorded owner, such as a
// function's top-level block) is absent from the map; callers treat a
// missing entry as "top level".
func buildBlockOwners(root *ir.Block) map[*ir.Block]*ir.Instruction {
	owners := map[*ir.Block]*ir.Instruction{}
	var walk func(b *ir.Block)
	walk = func(b *ir.Block) {
		for i := b.Front(); i != nil; i = i.Next() {
			if ctrl, ok := i.Kind.(ir.ControlInstruction); ok {
				ctrl.ForEachBlock(func(c *ir.Block) {
					owners[c] = i
					walk(c)
				})
			}
		}
	}
	walk(root)
	return owners
}

// ownerKind classifies the control instruction that owns a block, so a
// transform that needs to exit a block early (MergeReturn, DemoteToHelper)
// can pick the matching terminator kind.
type ownerKind uint8

const (
	ownerTop ownerKind = iota
	ownerIf
	ownerSwitch
	ownerLoop
)

func ownerKindOf(owner *ir.Instruction) ownerKind {
	if owner == nil {
		return ownerTop
	}
	switch owner.Kind.(type) {
	case *ir.If:
		return ownerIf
	case *ir.Switch:
		return ownerSwitch
	case *ir.Loop:
		return ownerLoop
	default:
		return ownerTop
	}
}
