package transform

import (
	"fmt"

	"github.com/gogpu/tir/ir"
	"github.com/gogpu/tir/validate"
)

// PreservePadding rewrites every Store targeting a padded struct in storage
// memory into a call to a synthesized per-member helper function, so a
// backend that lowers a single Store into several narrower writes never
// touches the padding bytes between members (doing so can corrupt memory a
// different invocation concurrently owns).
func PreservePadding(m *ir.Module, caps *validate.Capabilities) Result {
	helpers := map[*ir.Struct]*ir.Function{}
	for _, fn := range m.Functions {
		preservePaddingBlock(m, fn.Block, helpers)
	}
	return Result{}
}

func preservePaddingBlock(m *ir.Module, b *ir.Block, helpers map[*ir.Struct]*ir.Function) {
	for i := b.Front(); i != nil; {
		next := i.Next()
		if ctrl, ok := i.Kind.(ir.ControlInstruction); ok {
			ctrl.ForEachBlock(func(c *ir.Block) { preservePaddingBlock(m, c, helpers) })
		}
		if st, ok := i.Kind.(*ir.Store); ok {
			if strct, ptr, ok := storageStructStore(st); ok && structHasPadding(strct) {
				rewriteStoreToHelper(m, i, st, strct, ptr, helpers)
			}
		}
		i = next
	}
}

func storageStructStore(st *ir.Store) (*ir.Struct, *ir.Pointer, bool) {
	ptr, ok := st.To.Type().(*ir.Pointer)
	if !ok || ptr.Space != ir.SpaceStorage {
		return nil, nil, false
	}
	strct, ok := ptr.StoreType.(*ir.Struct)
	if !ok {
		return nil, nil, false
	}
	return strct, ptr, true
}

// structHasPadding reports whether s has any gap between members, or
// between its last member and its own size, that a member-by-member store
// would otherwise leave untouched in the destination but a single wide
// store would overwrite.
func structHasPadding(s *ir.Struct) bool {
	offset := uint32(0)
	for _, mem := range s.Members {
		if mem.Offset != offset {
			return true
		}
		offset = mem.Offset + mem.Size
	}
	return offset != s.SizeBytes
}

// rewriteStoreToHelper replaces inst with a call to the (lazily
// synthesized) per-member store helper for strct.
func rewriteStoreToHelper(m *ir.Module, inst *ir.Instruction, st *ir.Store, strct *ir.Struct, ptr *ir.Pointer, helpers map[*ir.Struct]*ir.Function) {
	helper := helpers[strct]
	if helper == nil {
		helper = buildPreservePaddingHelper(m, strct, ptr)
		helpers[strct] = helper
		m.AddFunction(helper)
	}

	bd := ir.NewBuilder(m)
	bd.InsertBefore(inst)
	bd.Call(helper, st.To, st.Val)
	inst.Destroy()
}

// buildPreservePaddingHelper synthesizes
// fn store_padded_<struct>(dest: ptr<storage, S, read_write>, value: S) that
// stores each member of value into dest individually.
func buildPreservePaddingHelper(m *ir.Module, strct *ir.Struct, ptr *ir.Pointer) *ir.Function {
	fn := ir.NewFunction(fmt.Sprintf("store_padded_%s", strct.Name), m.Types.Void())

	destParam := &ir.FunctionParam{Ty: ptr}
	valueParam := &ir.FunctionParam{Ty: strct}
	fn.AddParam(destParam)
	fn.AddParam(valueParam)

	bd := ir.NewBuilder(m)
	bd.Append(fn.Block)
	for i, mem := range strct.Members {
		idx := bd.ConstantScalar(m.Types.U32(), ir.U32, uint64(i))
		memberPtrTy := m.Types.Pointer(ptr.Space, mem.Type, ptr.AccessCtl)
		memberPtr := bd.Access(memberPtrTy, destParam, idx)
		memberVal := bd.Access(mem.Type, valueParam, idx)
		bd.Store(memberPtr.Result(), memberVal.Result())
	}
	bd.Return(fn, nil)
	return fn
}
