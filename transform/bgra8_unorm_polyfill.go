package transform

import (
	"github.com/gogpu/tir/ir"
	"github.com/gogpu/tir/validate"
)

// Bgra8UnormPolyfill replaces every module-scope storage texture declared
// with format bgra8unorm by an equivalent rgba8unorm texture, swizzling
// around the channel-order difference at every textureStore/textureLoad
// call site: store values and load results both get a .bgra swizzle, so
// the shader still reads and writes the colors it expects even though the
// underlying texture no longer claims the BGRA format a backend may not
// support as a storage target.
func Bgra8UnormPolyfill(m *ir.Module, caps *validate.Capabilities) Result {
	for i := m.RootBlock.Front(); i != nil; i = i.Next() {
		if _, ok := i.Kind.(*ir.Var); !ok {
			continue
		}
		ptr, ok := i.Result().Ty.(*ir.Pointer)
		if !ok {
			continue
		}
		tex, ok := ptr.StoreType.(*ir.StorageTexture)
		if !ok || tex.Format != ir.FormatBGRA8Unorm {
			continue
		}

		rgba := m.Types.StorageTexture(tex.DimKind, ir.FormatRGBA8Unorm, tex.AccessCtl)
		i.Result().Ty = m.Types.Pointer(ptr.Space, rgba, ptr.AccessCtl)
		polyfillTextureVarUses(m, i.Result())
	}
	return Result{}
}

func polyfillTextureVarUses(m *ir.Module, varResult ir.Value) {
	for _, u := range varResult.Uses() {
		if _, ok := u.Instruction.Kind.(*ir.Load); ok {
			polyfillTextureHandleUses(m, u.Instruction.Result())
		}
	}
}

func polyfillTextureHandleUses(m *ir.Module, handle ir.Value) {
	for _, u := range handle.Uses() {
		call, ok := u.Instruction.Kind.(*ir.CoreBuiltinCall)
		if !ok {
			continue
		}
		switch call.Fn {
		case ir.BuiltinFnTextureStore:
			swizzleTextureStoreValue(m, u.Instruction, call)
		case ir.BuiltinFnTextureLoad:
			swizzleTextureLoadResult(m, u.Instruction)
		}
	}
}

func swizzleTextureStoreValue(m *ir.Module, call *ir.Instruction, builtin *ir.CoreBuiltinCall) {
	idx := len(builtin.Args) - 1
	val := builtin.Args[idx]
	bd := ir.NewBuilder(m)
	bd.InsertBefore(call)
	swiz := bd.Swizzle(val.Type(), val, 2, 1, 0, 3)
	call.SetOperand(idx, swiz.Result())
}

func swizzleTextureLoadResult(m *ir.Module, call *ir.Instruction) {
	res := call.Result()
	priorUses := res.Uses()
	bd := ir.NewBuilder(m)
	bd.InsertBefore(call.Next())
	swiz := bd.Swizzle(res.Ty, res, 2, 1, 0, 3)
	for _, u := range priorUses {
		u.Instruction.SetOperand(u.OperandIndex, swiz.Result())
	}
}
