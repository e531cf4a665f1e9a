package transform

import (
	"github.com/gogpu/tir/ir"
	"github.com/gogpu/tir/validate"
)

// DemoteToHelper rewrites fragment-shader Discard into a non-terminating
// flag store. Some backends (and WGSL itself, for derivatives) require
// execution to continue past a discard so implicit derivatives stay
// defined; this pass turns `discard` into `continue_execution = false` and
// makes every later side effect (storage store, atomic, texture write,
// helper call) conditional on that flag, so the invocation behaves as if it
// had stopped even though control keeps flowing structurally.
//
// Only fragment entry points (and anything transitively reachable from one)
// that actually contain a Discard are touched; everything else is left
// alone.
func DemoteToHelper(m *ir.Module, caps *validate.Capabilities) Result {
	graph := callGraph(m)

	needsGuard := map[*ir.Function]bool{}
	entries := map[*ir.Function]bool{}
	for _, fn := range m.Functions {
		if fn.Stage == ir.StageFragment && transitivelyContainsDiscard(graph, fn) {
			entries[fn] = true
			markReachable(graph, fn, needsGuard)
		}
	}
	if len(needsGuard) == 0 {
		return Result{}
	}

	continueVar := ensureContinueExecutionVar(m)
	for fn := range needsGuard {
		demoteFunctionBody(m, fn, continueVar)
	}
	for fn := range entries {
		insertTerminateGuardBeforeReturns(m, fn, continueVar)
	}
	return Result{}
}

func transitivelyContainsDiscard(graph map[*ir.Function]map[*ir.Function]bool, fn *ir.Function) bool {
	seen := map[*ir.Function]bool{}
	var visit func(*ir.Function) bool
	visit = func(f *ir.Function) bool {
		if seen[f] {
			return false
		}
		seen[f] = true
		found := false
		walkBlock(f.Block, func(i *ir.Instruction) {
			if _, ok := i.Kind.(ir.Discard); ok {
				found = true
			}
		})
		if found {
			return true
		}
		for callee := range graph[f] {
			if visit(callee) {
				return true
			}
		}
		return false
	}
	return visit(fn)
}

// ensureContinueExecutionVar returns the module-scope continue_execution
// flag, creating it (initialized true, in the private address space) the
// first time it's needed.
func ensureContinueExecutionVar(m *ir.Module) *ir.Instruction {
	for i := m.RootBlock.Front(); i != nil; i = i.Next() {
		if _, ok := i.Kind.(*ir.Var); ok && m.NameOf(i.Result()) == "continue_execution" {
			return i
		}
	}
	bd := ir.NewBuilder(m)
	bd.Append(m.RootBlock)
	trueC := bd.ConstantScalar(m.Types.Bool(), ir.Bool, 1)
	ptrTy := m.Types.Pointer(ir.SpacePrivate, m.Types.Bool(), ir.AccessReadWrite)
	return bd.Var("continue_execution", ptrTy, trueC)
}

// demoteFunctionBody replaces every Discard in fn with a flag store plus a
// matching exit of its enclosing block, then wraps every store, atomic, or
// call in fn behind a load-and-check of continueVar.
func demoteFunctionBody(m *ir.Module, fn *ir.Function, continueVar *ir.Instruction) {
	owners := buildBlockOwners(fn.Block)

	var discards []*ir.Instruction
	var sideEffects []*ir.Instruction
	walkBlock(fn.Block, func(i *ir.Instruction) {
		if _, ok := i.Kind.(ir.Discard); ok {
			discards = append(discards, i)
			return
		}
		switch accessKindOf(i) {
		case accessStore, accessBoth:
			sideEffects = append(sideEffects, i)
		}
	})

	for _, d := range discards {
		replaceDiscardWithFlag(m, fn, d, continueVar, owners)
	}
	for _, inst := range sideEffects {
		bd := ir.NewBuilder(m)
		bd.InsertBefore(inst)
		cond := bd.Load(continueVar.Result(), m.Types.Bool())
		relocateUnderGuard(m, inst, cond.Result())
	}
}

// replaceDiscardWithFlag destroys a Discard terminator, replacing it with
// `store continue_execution, false` followed by whatever exit its
// enclosing block needs to stay validly terminated.
func replaceDiscardWithFlag(m *ir.Module, fn *ir.Function, discardInst *ir.Instruction, continueVar *ir.Instruction, owners map[*ir.Block]*ir.Instruction) {
	block := discardInst.Block()
	bd := ir.NewBuilder(m)
	bd.InsertBefore(discardInst)

	falseC := bd.ConstantScalar(m.Types.Bool(), ir.Bool, 0)
	bd.Store(continueVar.Result(), falseC)

	owner := owners[block]
	switch ownerKindOf(owner) {
	case ownerIf:
		bd.ExitIf(owner)
	case ownerSwitch:
		bd.ExitSwitch(owner)
	case ownerLoop:
		bd.ExitLoop(owner)
	default:
		if _, isVoid := fn.RetType.(*ir.Void); isVoid {
			bd.Return(fn, nil)
		} else {
			bd.Return(fn, zeroConstant(m, fn.RetType))
		}
	}
	discardInst.Destroy()
}

// insertTerminateGuardBeforeReturns inserts `if (!continue_execution) {
// terminate_invocation }` immediately before every Return reachable in fn,
// so an invocation that discarded partway through still stops for real at
// its natural exit point.
func insertTerminateGuardBeforeReturns(m *ir.Module, fn *ir.Function, continueVar *ir.Instruction) {
	var returns []*ir.Instruction
	walkBlock(fn.Block, func(i *ir.Instruction) {
		if _, ok := i.Kind.(*ir.Return); ok {
			returns = append(returns, i)
		}
	})

	for _, ret := range returns {
		bd := ir.NewBuilder(m)
		bd.InsertBefore(ret)
		cond := bd.Load(continueVar.Result(), m.Types.Bool())
		notCond := bd.Unary(ir.UnaryNot, m.Types.Bool(), cond.Result())
		ifInst := bd.If(notCond.Result())
		ifKind := ifInst.Kind.(*ir.If)

		bd.Push()
		bd.Append(ifKind.True)
		bd.TerminateInvocation()
		bd.Pop()

		bd.Push()
		bd.Append(ifKind.False)
		bd.ExitIf(ifInst)
		bd.Pop()
	}
}
