package transform

import (
	"github.com/gogpu/tir/ir"
	"github.com/gogpu/tir/validate"
)

// ArrayOffsetFromImmediateConfig maps a storage binding to the index of its
// dynamic byte offset inside the shared immediate-data block.
type ArrayOffsetFromImmediateConfig struct {
	BindingToElementIndex map[ir.BindingPoint]uint32
}

// ArrayOffsetFromImmediate returns a Transform that adds a per-binding
// dynamic byte offset, loaded from a fixed `array<vec4<u32>, N>` immediate-
// data block, to the byte-offset argument of every load/store/atomic call
// touching a configured storage binding. It is built as a config-to-
// Transform factory rather than taking the binding map as a direct
// parameter, since Transform's signature is fixed and every other pass in
// this package needs no extra input beyond the module and capabilities.
func ArrayOffsetFromImmediate(cfg ArrayOffsetFromImmediateConfig) Transform {
	return func(m *ir.Module, caps *validate.Capabilities) Result {
		if len(cfg.BindingToElementIndex) == 0 {
			return Result{}
		}

		immediateVar := ensureImmediateDataVar(m, cfg)
		varsByBinding := collectStorageVarsByBinding(m)

		for _, fn := range m.Functions {
			arrayOffsetBlock(m, fn.Block, cfg, immediateVar, varsByBinding)
		}
		return Result{}
	}
}

func collectStorageVarsByBinding(m *ir.Module) map[ir.BindingPoint]*ir.Instruction {
	out := map[ir.BindingPoint]*ir.Instruction{}
	for i := m.RootBlock.Front(); i != nil; i = i.Next() {
		v, ok := i.Kind.(*ir.Var)
		if !ok || v.BindingAttr == nil {
			continue
		}
		out[*v.BindingAttr] = i
	}
	return out
}

// ensureImmediateDataVar creates (if not already present) the module-scope
// immediate-data block sized to cover the largest configured element index.
func ensureImmediateDataVar(m *ir.Module, cfg ArrayOffsetFromImmediateConfig) *ir.Instruction {
	for i := m.RootBlock.Front(); i != nil; i = i.Next() {
		if _, ok := i.Kind.(*ir.Var); ok && m.NameOf(i.Result()) == "immediate_data" {
			return i
		}
	}

	var maxIndex uint32
	for _, idx := range cfg.BindingToElementIndex {
		if idx > maxIndex {
			maxIndex = idx
		}
	}
	count := maxIndex/4 + 1

	vec4u32 := m.Types.Vec4U32()
	arrayTy := m.Types.Array(vec4u32, count)
	ptrTy := m.Types.Pointer(ir.SpaceImmediate, arrayTy, ir.AccessRead)

	bd := ir.NewBuilder(m)
	bd.Append(m.RootBlock)
	return bd.Var("immediate_data", ptrTy, nil)
}

func arrayOffsetBlock(m *ir.Module, b *ir.Block, cfg ArrayOffsetFromImmediateConfig, immediateVar *ir.Instruction, varsByBinding map[ir.BindingPoint]*ir.Instruction) {
	for i := b.Front(); i != nil; {
		next := i.Next()
		if ctrl, ok := i.Kind.(ir.ControlInstruction); ok {
			ctrl.ForEachBlock(func(c *ir.Block) { arrayOffsetBlock(m, c, cfg, immediateVar, varsByBinding) })
		}

		if args, ok := callArgsOf(i); ok && len(args) >= 2 {
			if varInst, ok := resolveBackingVar(args[0]); ok {
				if binding, ok := bindingOf(varInst); ok {
					if elementIndex, ok := cfg.BindingToElementIndex[binding]; ok {
						addImmediateOffset(m, i, args, 1, immediateVar, elementIndex)
					}
				}
			}
		}
		i = next
	}
}

func callArgsOf(i *ir.Instruction) ([]ir.Value, bool) {
	switch k := i.Kind.(type) {
	case *ir.UserCall:
		return k.Args, true
	case *ir.CoreBuiltinCall:
		return k.Args, true
	case *ir.IntrinsicCall:
		return k.Args, true
	default:
		return nil, false
	}
}

func resolveBackingVar(v ir.Value) (*ir.Instruction, bool) {
	res, ok := v.(*ir.InstructionResult)
	if !ok {
		return nil, false
	}
	if _, ok := res.SourceInstruction().Kind.(*ir.Var); ok {
		return res.SourceInstruction(), true
	}
	return nil, false
}

func bindingOf(varInst *ir.Instruction) (ir.BindingPoint, bool) {
	v := varInst.Kind.(*ir.Var)
	if v.BindingAttr == nil {
		return ir.BindingPoint{}, false
	}
	return *v.BindingAttr, true
}

// addImmediateOffset rewrites operand argIndex of the call instruction i
// (its byte-offset argument) to be the sum of its current value and the
// dynamic offset loaded from the immediate-data block at elementIndex.
func addImmediateOffset(m *ir.Module, i *ir.Instruction, args []ir.Value, argIndex int, immediateVar *ir.Instruction, elementIndex uint32) {
	bd := ir.NewBuilder(m)
	bd.InsertBefore(i)

	u32Ty := m.Types.U32()
	vecIdx := bd.ConstantScalar(u32Ty, ir.U32, uint64(elementIndex/4))
	compIdx := bd.ConstantScalar(u32Ty, ir.U32, uint64(elementIndex%4))
	elemPtrTy := m.Types.Pointer(ir.SpaceImmediate, u32Ty, ir.AccessRead)
	elemPtr := bd.Access(elemPtrTy, immediateVar.Result(), vecIdx, compIdx)
	dynamicOffset := bd.Load(elemPtr.Result(), u32Ty)

	combined := bd.Binary(ir.BinaryAdd, u32Ty, args[argIndex], dynamicOffset.Result())
	// operand index within the call's operand list is argIndex+1 for
	// UserCall (Target occupies index 0 of Operands, so call arg 0 is
	// operand 1); CoreBuiltinCall/IntrinsicCall expose Args directly as
	// Operands, so there the operand index equals argIndex.
	switch k := i.Kind.(type) {
	case *ir.UserCall:
		_ = k
		i.SetOperand(argIndex+1, combined.Result())
	default:
		i.SetOperand(argIndex, combined.Result())
	}
}
