package transform

import (
	"github.com/gogpu/tir/ir"
	"github.com/gogpu/tir/validate"
)

// CombineAccessInstructions folds a chain Access(Access(o, i...), j...) into
// a single Access(o, i..., j...): a flat parent-into-child operand splice.
// The parent Access is destroyed only once it has no other uses, since an
// Access feeding two different child accesses must survive until every
// child has been folded.
func CombineAccessInstructions(m *ir.Module, caps *validate.Capabilities) Result {
	for combineOnePass(m) {
	}
	return Result{}
}

// combineOnePass performs one left-to-right sweep over every function,
// folding every Access whose object is itself the sole-definition result of
// another Access. It returns whether anything changed, so the caller can
// iterate to a fixed point (a fold can expose a new parent/child pair when
// three or more Access instructions are chained).
func combineOnePass(m *ir.Module) bool {
	changed := false
	for _, fn := range m.Functions {
		combineBlock(m, fn.Block, &changed)
	}
	return changed
}

func combineBlock(m *ir.Module, b *ir.Block, changed *bool) {
	for i := b.Front(); i != nil; {
		next := i.Next()
		if ctrl, ok := i.Kind.(ir.ControlInstruction); ok {
			ctrl.ForEachBlock(func(c *ir.Block) { combineBlock(m, c, changed) })
		}
		if acc, ok := i.Kind.(*ir.Access); ok {
			if foldAccess(m, i, acc) {
				*changed = true
			}
		}
		i = next
	}
}

// foldAccess attempts to fold inst (an Access wrapping acc) into its parent
// Access, if its object is produced by one. Returns whether a fold happened.
func foldAccess(m *ir.Module, inst *ir.Instruction, acc *ir.Access) bool {
	parentRes, ok := acc.Object.(*ir.InstructionResult)
	if !ok {
		return false
	}
	parentInst := parentRes.Source
	parentAcc, ok := parentInst.Kind.(*ir.Access)
	if !ok {
		return false
	}

	combinedIndices := make([]ir.Value, 0, len(parentAcc.Indices)+len(acc.Indices))
	combinedIndices = append(combinedIndices, parentAcc.Indices...)
	combinedIndices = append(combinedIndices, acc.Indices...)

	bd := ir.NewBuilder(m)
	bd.InsertBefore(inst)
	combined := bd.Access(inst.Result().Ty, parentAcc.Object, combinedIndices...)

	inst.Result().ReplaceAllUsesWith(combined.Result())
	inst.Destroy()

	if len(parentRes.Uses()) == 0 {
		parentInst.Destroy()
	}
	return true
}
