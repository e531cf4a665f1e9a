package transform

import (
	"github.com/gogpu/tir/ir"
	"github.com/gogpu/tir/validate"
)

// MergeReturn collapses every function with more than one Return into a
// function with exactly one, at the very end of its top-level block.
// Backends that can only emit a single exit point (or that need a stable
// place to hang cleanup code) require this shape.
//
// Every existing Return is rewritten to set a continue_execution local to
// false (and, for a non-void function, store the returned value into a
// return_value local) and then exit its immediate enclosing block; once
// every Return has been rewritten this way, every remaining store/atomic/
// call in the function is wrapped behind a check of continue_execution, and
// a single canonical Return loading return_value is appended at the end of
// the function's top-level block.
func MergeReturn(m *ir.Module, caps *validate.Capabilities) Result {
	for _, fn := range m.Functions {
		mergeReturnFunction(m, fn)
	}
	return Result{}
}

func mergeReturnFunction(m *ir.Module, fn *ir.Function) {
	var returns []*ir.Instruction
	walkBlock(fn.Block, func(i *ir.Instruction) {
		if _, ok := i.Kind.(*ir.Return); ok {
			returns = append(returns, i)
		}
	})
	if len(returns) <= 1 {
		return
	}

	owners := buildBlockOwners(fn.Block)

	bd := ir.NewBuilder(m)
	if front := fn.Block.Front(); front != nil {
		bd.InsertBefore(front)
	} else {
		bd.Append(fn.Block)
	}
	trueC := bd.ConstantScalar(m.Types.Bool(), ir.Bool, 1)
	continuePtrTy := m.Types.Pointer(ir.SpaceFunction, m.Types.Bool(), ir.AccessReadWrite)
	continueVar := bd.Var("continue_execution", continuePtrTy, trueC)

	var returnValueVar *ir.Instruction
	if _, isVoid := fn.RetType.(*ir.Void); !isVoid {
		retPtrTy := m.Types.Pointer(ir.SpaceFunction, fn.RetType, ir.AccessReadWrite)
		returnValueVar = bd.Var("return_value", retPtrTy, nil)
	}

	for _, ret := range returns {
		rewriteEarlyReturn(m, ret, continueVar, returnValueVar, owners)
	}

	var sideEffects []*ir.Instruction
	walkBlock(fn.Block, func(i *ir.Instruction) {
		switch accessKindOf(i) {
		case accessStore, accessBoth:
			sideEffects = append(sideEffects, i)
		}
	})
	for _, inst := range sideEffects {
		gbd := ir.NewBuilder(m)
		gbd.InsertBefore(inst)
		cond := gbd.Load(continueVar.Result(), m.Types.Bool())
		relocateUnderGuard(m, inst, cond.Result())
	}

	fbd := ir.NewBuilder(m)
	fbd.Append(fn.Block)
	var retVal ir.Value
	if returnValueVar != nil {
		retVal = fbd.Load(returnValueVar.Result(), fn.RetType).Result()
	}
	fbd.Return(fn, retVal)
}

// rewriteEarlyReturn destroys ret, replacing it with the flag/value stores
// and whatever exit its enclosing block needs. A top-level return (owner
// == nil) is simply removed: the function's top-level block is left
// unterminated until mergeReturnFunction appends the single canonical
// Return after every other early return has been processed the same way.
func rewriteEarlyReturn(m *ir.Module, ret *ir.Instruction, continueVar, returnValueVar *ir.Instruction, owners map[*ir.Block]*ir.Instruction) {
	retKind := ret.Kind.(*ir.Return)
	block := ret.Block()

	bd := ir.NewBuilder(m)
	bd.InsertBefore(ret)
	falseC := bd.ConstantScalar(m.Types.Bool(), ir.Bool, 0)
	bd.Store(continueVar.Result(), falseC)
	if returnValueVar != nil && retKind.Value != nil {
		bd.Store(returnValueVar.Result(), retKind.Value)
	}

	owner := owners[block]
	switch ownerKindOf(owner) {
	case ownerIf:
		bd.ExitIf(owner)
	case ownerSwitch:
		bd.ExitSwitch(owner)
	case ownerLoop:
		bd.ExitLoop(owner)
	default:
		// top level: nothing to emit here, the canonical return follows
		// once the whole function has been processed.
	}
	ret.Destroy()
}
