package transform

import (
	"github.com/gogpu/tir/ir"
	"github.com/gogpu/tir/validate"
)

// AddEmptyEntryPoint appends a trivial compute entry point
// (@compute @workgroup_size(1,1,1) fn unused_entry_point() {}) to m if it
// contains no entry points at all. Some backends require at least one
// entry point to emit valid output even when the module under test only
// exercises module-scope declarations; this keeps such modules backend-
// consumable without forcing every caller to special-case the empty case.
func AddEmptyEntryPoint(m *ir.Module, caps *validate.Capabilities) Result {
	if len(m.EntryPoints()) > 0 {
		return Result{}
	}

	fn := ir.NewFunction("unused_entry_point", m.Types.Void())
	fn.Stage = ir.StageCompute
	one := &ir.Constant{Ty: m.Types.U32(), Value: ir.ScalarConstant{Kind: ir.U32, Bits: 1}}
	fn.WorkgroupSize = &ir.WorkgroupSize{X: one, Y: one, Z: one}

	bd := ir.NewBuilder(m)
	bd.Append(fn.Block)
	bd.Return(fn, nil)

	m.AddFunction(fn)
	return Result{}
}
