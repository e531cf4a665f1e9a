package transform

import "github.com/gogpu/tir/ir"

// relocateUnderGuard moves inst, an already-attached instruction with at
// most one result, into the true branch of a freshly inserted If(guard),
// replacing inst in its block with the If. inst's result (if any) is
// re-exposed through the If's own result, carried out via ExitIf on both
// branches; the false branch exits with a zero-valued placeholder of the
// same type. This is the relocate-and-rewire shape DemoteToHelper and
// MergeReturn both use to gate a side-effecting instruction behind a
// runtime flag without cloning it.
func relocateUnderGuard(m *ir.Module, inst *ir.Instruction, guard ir.Value) {
	block := inst.Block()
	hasResult := inst.HasResults()
	var resultTy ir.Type
	var origResult *ir.InstructionResult
	var priorUses []ir.Usage
	if hasResult {
		origResult = inst.Result()
		resultTy = origResult.Ty
		priorUses = origResult.Uses()
	}

	bd := ir.NewBuilder(m)
	bd.InsertBefore(inst)
	var ifInst *ir.Instruction
	if hasResult {
		ifInst = bd.If(guard, resultTy)
	} else {
		ifInst = bd.If(guard)
	}
	ifKind := ifInst.Kind.(*ir.If)

	block.Remove(inst)
	ifKind.True.Append(inst)

	bd.Push()
	bd.Append(ifKind.True)
	if hasResult {
		bd.ExitIf(ifInst, origResult)
	} else {
		bd.ExitIf(ifInst)
	}
	bd.Pop()

	bd.Push()
	bd.Append(ifKind.False)
	if hasResult {
		bd.ExitIf(ifInst, zeroConstant(m, resultTy))
	} else {
		bd.ExitIf(ifInst)
	}
	bd.Pop()

	if hasResult {
		for _, u := range priorUses {
			u.Instruction.SetOperand(u.OperandIndex, ifInst.Result())
		}
	}
}

// zeroConstant builds a recursively zero-valued constant of ty, for use as
// the placeholder result of a branch that skips its guarded instruction.
func zeroConstant(m *ir.Module, ty ir.Type) *ir.Constant {
	switch t := ty.(type) {
	case *ir.Scalar:
		return &ir.Constant{Ty: t, Value: ir.ScalarConstant{Kind: t.Kind, Bits: 0}}
	case *ir.Vector:
		comps := make([]*ir.Constant, t.Width)
		for i := range comps {
			comps[i] = zeroConstant(m, t.Elem)
		}
		return &ir.Constant{Ty: t, Value: ir.CompositeConstant{Components: comps}}
	case *ir.Matrix:
		comps := make([]*ir.Constant, t.Columns)
		for i := range comps {
			comps[i] = zeroConstant(m, t.Column)
		}
		return &ir.Constant{Ty: t, Value: ir.CompositeConstant{Components: comps}}
	case *ir.Array:
		if t.Count.Runtime() {
			ir.ICEf("zeroConstant: cannot build a zero value for a runtime-sized array")
		}
		comps := make([]*ir.Constant, *t.Count.Constant)
		for i := range comps {
			comps[i] = zeroConstant(m, t.Elem)
		}
		return &ir.Constant{Ty: t, Value: ir.CompositeConstant{Components: comps}}
	case *ir.Struct:
		comps := make([]*ir.Constant, len(t.Members))
		for i, mem := range t.Members {
			comps[i] = zeroConstant(m, mem.Type)
		}
		return &ir.Constant{Ty: t, Value: ir.CompositeConstant{Components: comps}}
	default:
		ir.ICEf("zeroConstant: unsupported type %s", ty.String())
		return nil
	}
}
