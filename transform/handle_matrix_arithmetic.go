package transform

import (
	"github.com/gogpu/tir/ir"
	"github.com/gogpu/tir/validate"
)

// HandleMatrixArithmetic rewrites Binary instructions whose operands are
// matrices into forms every backend can lower directly: matrix+matrix and
// matrix-matrix become per-column vector arithmetic reconstructed with
// Construct, and every multiplication involving at least one matrix
// operand becomes a named intrinsic call (MatrixTimesScalar,
// MatrixTimesVector, VectorTimesMatrix, MatrixTimesMatrix) a backend maps
// onto its own primitive or a synthesized helper.
func HandleMatrixArithmetic(m *ir.Module, caps *validate.Capabilities) Result {
	for _, fn := range m.Functions {
		handleMatrixArithmeticBlock(m, fn.Block)
	}
	return Result{}
}

func handleMatrixArithmeticBlock(m *ir.Module, b *ir.Block) {
	for i := b.Front(); i != nil; {
		next := i.Next()
		if ctrl, ok := i.Kind.(ir.ControlInstruction); ok {
			ctrl.ForEachBlock(func(c *ir.Block) { handleMatrixArithmeticBlock(m, c) })
		}
		if bin, ok := i.Kind.(*ir.Binary); ok {
			rewriteMatrixBinary(m, i, bin)
		}
		i = next
	}
}

func rewriteMatrixBinary(m *ir.Module, inst *ir.Instruction, bin *ir.Binary) {
	lhsMat, lhsIsMat := bin.LHS.Type().(*ir.Matrix)
	rhsMat, rhsIsMat := bin.RHS.Type().(*ir.Matrix)

	switch bin.Op {
	case ir.BinaryAdd, ir.BinarySubtract:
		if !lhsIsMat || !rhsIsMat {
			return
		}
		decomposeMatrixAddSub(m, inst, bin, lhsMat)
	case ir.BinaryMultiply:
		if !lhsIsMat && !rhsIsMat {
			return
		}
		rewriteMatrixMultiply(m, inst, bin, lhsMat, rhsMat)
	}
}

func decomposeMatrixAddSub(m *ir.Module, inst *ir.Instruction, bin *ir.Binary, matTy *ir.Matrix) {
	bd := ir.NewBuilder(m)
	bd.InsertBefore(inst)
	cols := make([]ir.Value, matTy.Columns)
	for c := uint8(0); c < matTy.Columns; c++ {
		idx := bd.ConstantScalar(m.Types.U32(), ir.U32, uint64(c))
		lc := bd.Access(matTy.Column, bin.LHS, idx)
		rc := bd.Access(matTy.Column, bin.RHS, idx)
		cols[c] = bd.Binary(bin.Op, matTy.Column, lc.Result(), rc.Result()).Result()
	}
	built := bd.Construct(matTy, cols...)
	inst.Result().ReplaceAllUsesWith(built.Result())
	inst.Destroy()
}

func rewriteMatrixMultiply(m *ir.Module, inst *ir.Instruction, bin *ir.Binary, lhsMat, rhsMat *ir.Matrix) {
	bd := ir.NewBuilder(m)
	bd.InsertBefore(inst)
	resultTy := inst.Result().Ty

	var name string
	var args []ir.Value
	switch {
	case lhsMat != nil && rhsMat != nil:
		name, args = "MatrixTimesMatrix", []ir.Value{bin.LHS, bin.RHS}
	case lhsMat != nil && isVectorType(bin.RHS.Type()):
		name, args = "MatrixTimesVector", []ir.Value{bin.LHS, bin.RHS}
	case rhsMat != nil && isVectorType(bin.LHS.Type()):
		name, args = "VectorTimesMatrix", []ir.Value{bin.LHS, bin.RHS}
	case lhsMat != nil:
		name, args = "MatrixTimesScalar", []ir.Value{bin.LHS, bin.RHS}
	default:
		name, args = "MatrixTimesScalar", []ir.Value{bin.RHS, bin.LHS}
	}

	call := bd.CallIntrinsicNamed(name, args, resultTy)
	inst.Result().ReplaceAllUsesWith(call.Result())
	inst.Destroy()
}

func isVectorType(t ir.Type) bool {
	_, ok := t.(*ir.Vector)
	return ok
}
