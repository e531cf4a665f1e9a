package transform

import (
	"testing"

	"github.com/gogpu/tir/ir"
	"github.com/gogpu/tir/validate"
)

func TestAddEmptyEntryPoint(t *testing.T) {
	m := ir.NewModule()
	res := AddEmptyEntryPoint(m, nil)
	if !res.Ok() {
		t.Fatalf("transform failed: %s", res.Error())
	}

	eps := m.EntryPoints()
	if len(eps) != 1 {
		t.Fatalf("entry points = %d, want 1", len(eps))
	}
	ep := eps[0]
	if ep.FuncName != "unused_entry_point" || ep.Stage != ir.StageCompute {
		t.Errorf("entry point = %s @%v, want unused_entry_point @compute", ep.FuncName, ep.Stage)
	}
	if ep.WorkgroupSize == nil {
		t.Fatalf("entry point has no workgroup size")
	}

	if res := validate.Validate(m, validate.DefaultCapabilities()); !res.Ok() {
		t.Fatalf("module does not validate after transform: %s", res.Error())
	}

	// Idempotence: a second run must not add a second entry point.
	if res := AddEmptyEntryPoint(m, nil); !res.Ok() {
		t.Fatalf("second run failed: %s", res.Error())
	}
	if len(m.EntryPoints()) != 1 {
		t.Errorf("second run added another entry point")
	}
}

func TestCombineAccessInstructions(t *testing.T) {
	m := ir.NewModule()
	f32 := m.Types.F32()
	inner := m.Types.Struct("Inner", ir.ComputeStructLayout([]string{"v"}, []ir.Type{m.Types.Vector(f32, 4)}))
	outer := m.Types.Struct("Outer", ir.ComputeStructLayout([]string{"i"}, []ir.Type{inner}))

	fn := ir.NewFunction("main", m.Types.Void())
	fn.Stage = ir.StageCompute
	one := &ir.Constant{Ty: m.Types.U32(), Value: ir.ScalarConstant{Kind: ir.U32, Bits: 1}}
	fn.WorkgroupSize = &ir.WorkgroupSize{X: one, Y: one, Z: one}
	m.AddFunction(fn)

	bd := ir.NewBuilder(m)
	bd.Append(fn.Block)
	v := bd.Var("v", m.Types.Pointer(ir.SpaceFunction, outer, ir.AccessReadWrite), nil)
	zero := bd.ConstantScalar(m.Types.U32(), ir.U32, 0)
	innerPtr := m.Types.Pointer(ir.SpaceFunction, inner, ir.AccessReadWrite)
	vecPtr := m.Types.Pointer(ir.SpaceFunction, m.Types.Vector(f32, 4), ir.AccessReadWrite)
	a1 := bd.Access(innerPtr, v.Result(), zero)
	a2 := bd.Access(vecPtr, a1.Result(), zero)
	ld := bd.Load(a2.Result(), m.Types.Vector(f32, 4))
	bd.Let("x", ld.Result())
	bd.Return(fn, nil)

	res := CombineAccessInstructions(m, nil)
	if !res.Ok() {
		t.Fatalf("transform failed: %s", res.Error())
	}

	var accesses []*ir.Instruction
	for i := fn.Block.Front(); i != nil; i = i.Next() {
		if _, ok := i.Kind.(*ir.Access); ok {
			accesses = append(accesses, i)
		}
	}
	if len(accesses) != 1 {
		t.Fatalf("access instructions after fold = %d, want 1", len(accesses))
	}
	folded := accesses[0].Kind.(*ir.Access)
	if folded.Object != v.Result() || len(folded.Indices) != 2 {
		t.Errorf("folded access = (%v, %d indices), want (var, 2 indices)", folded.Object, len(folded.Indices))
	}

	if res := validate.Validate(m, validate.DefaultCapabilities()); !res.Ok() {
		t.Fatalf("module does not validate after transform: %s", res.Error())
	}

	// Idempotence: rerunning must change nothing.
	before := ir.Disassemble(m)
	if res := CombineAccessInstructions(m, nil); !res.Ok() {
		t.Fatalf("second run failed: %s", res.Error())
	}
	if after := ir.Disassemble(m); after != before {
		t.Errorf("second CombineAccessInstructions run changed the module:\nbefore:\n%s\nafter:\n%s", before, after)
	}
}

func TestCombineAccessKeepsSharedParent(t *testing.T) {
	m := ir.NewModule()
	f32 := m.Types.F32()
	vec4 := m.Types.Vector(f32, 4)
	inner := m.Types.Struct("Inner", ir.ComputeStructLayout([]string{"v"}, []ir.Type{vec4}))

	fn := ir.NewFunction("main", m.Types.Void())
	fn.Stage = ir.StageCompute
	one := &ir.Constant{Ty: m.Types.U32(), Value: ir.ScalarConstant{Kind: ir.U32, Bits: 1}}
	fn.WorkgroupSize = &ir.WorkgroupSize{X: one, Y: one, Z: one}
	m.AddFunction(fn)

	bd := ir.NewBuilder(m)
	bd.Append(fn.Block)
	v := bd.Var("v", m.Types.Pointer(ir.SpaceFunction, inner, ir.AccessReadWrite), nil)
	zero := bd.ConstantScalar(m.Types.U32(), ir.U32, 0)
	vecPtr := m.Types.Pointer(ir.SpaceFunction, vec4, ir.AccessReadWrite)
	f32Ptr := m.Types.Pointer(ir.SpaceFunction, f32, ir.AccessReadWrite)
	parent := bd.Access(vecPtr, v.Result(), zero)
	c1 := bd.Access(f32Ptr, parent.Result(), zero)
	c2 := bd.Access(f32Ptr, parent.Result(), bd.ConstantScalar(m.Types.U32(), ir.U32, 1))
	l1 := bd.Load(c1.Result(), f32)
	l2 := bd.Load(c2.Result(), f32)
	bd.Let("a", l1.Result())
	bd.Let("b", l2.Result())
	bd.Return(fn, nil)

	res := CombineAccessInstructions(m, nil)
	if !res.Ok() {
		t.Fatalf("transform failed: %s", res.Error())
	}

	// Both children folded straight onto the var; the shared parent is gone
	// only after the last fold.
	count := 0
	for i := fn.Block.Front(); i != nil; i = i.Next() {
		if acc, ok := i.Kind.(*ir.Access); ok {
			count++
			if acc.Object != v.Result() {
				t.Errorf("folded access object is not the var")
			}
		}
	}
	if count != 2 {
		t.Errorf("access instructions = %d, want 2", count)
	}
}

func TestValueToLetHoistsMultiUsedLoads(t *testing.T) {
	m := ir.NewModule()
	i32 := m.Types.I32()
	fn := ir.NewFunction("main", m.Types.Void())
	fn.Stage = ir.StageCompute
	one := &ir.Constant{Ty: m.Types.U32(), Value: ir.ScalarConstant{Kind: ir.U32, Bits: 1}}
	fn.WorkgroupSize = &ir.WorkgroupSize{X: one, Y: one, Z: one}
	m.AddFunction(fn)

	bd := ir.NewBuilder(m)
	bd.Append(fn.Block)
	v := bd.Var("v", m.Types.Pointer(ir.SpaceFunction, i32, ir.AccessReadWrite), nil)
	ld := bd.Load(v.Result(), i32)
	sum := bd.Binary(ir.BinaryAdd, i32, ld.Result(), ld.Result())
	bd.Store(v.Result(), sum.Result())
	bd.Return(fn, nil)

	res := ValueToLet(m, nil)
	if !res.Ok() {
		t.Fatalf("transform failed: %s", res.Error())
	}

	// The doubly-used load must now feed a let, and both binary operands
	// must reference the let's result.
	var let *ir.Instruction
	for i := fn.Block.Front(); i != nil; i = i.Next() {
		if _, ok := i.Kind.(*ir.Let); ok {
			let = i
		}
	}
	if let == nil {
		t.Fatalf("no let introduced for the multi-used load")
	}
	bin := sum.Kind.(*ir.Binary)
	if bin.LHS != let.Result() || bin.RHS != let.Result() {
		t.Errorf("binary operands were not redirected to the let")
	}

	if res := validate.Validate(m, validate.DefaultCapabilities()); !res.Ok() {
		t.Fatalf("module does not validate after transform: %s", res.Error())
	}

	// Idempotence.
	before := ir.Disassemble(m)
	if res := ValueToLet(m, nil); !res.Ok() {
		t.Fatalf("second run failed: %s", res.Error())
	}
	if after := ir.Disassemble(m); after != before {
		t.Errorf("second ValueToLet run changed the module:\nbefore:\n%s\nafter:\n%s", before, after)
	}
}

func TestHandleMatrixArithmeticAddBecomesPerColumn(t *testing.T) {
	m := ir.NewModule()
	matTy := m.Types.Matrix(m.Types.F32(), 2, 2)
	fn := ir.NewFunction("main", m.Types.Void())
	fn.Stage = ir.StageCompute
	one := &ir.Constant{Ty: m.Types.U32(), Value: ir.ScalarConstant{Kind: ir.U32, Bits: 1}}
	fn.WorkgroupSize = &ir.WorkgroupSize{X: one, Y: one, Z: one}
	m.AddFunction(fn)

	bd := ir.NewBuilder(m)
	bd.Append(fn.Block)
	v := bd.Var("v", m.Types.Pointer(ir.SpaceFunction, matTy, ir.AccessReadWrite), nil)
	a := bd.Load(v.Result(), matTy)
	b := bd.Load(v.Result(), matTy)
	sum := bd.Binary(ir.BinaryAdd, matTy, a.Result(), b.Result())
	bd.Store(v.Result(), sum.Result())
	bd.Return(fn, nil)

	res := HandleMatrixArithmetic(m, nil)
	if !res.Ok() {
		t.Fatalf("transform failed: %s", res.Error())
	}

	// No Binary over matrices survives; the store now takes a Construct of
	// per-column vector adds.
	walkBlock(fn.Block, func(i *ir.Instruction) {
		if bin, ok := i.Kind.(*ir.Binary); ok {
			if _, isMat := bin.LHS.Type().(*ir.Matrix); isMat {
				t.Errorf("matrix binary survived the transform")
			}
		}
	})
	var construct *ir.Instruction
	walkBlock(fn.Block, func(i *ir.Instruction) {
		if _, ok := i.Kind.(*ir.Construct); ok {
			construct = i
		}
	})
	if construct == nil || construct.Result().Ty != ir.Type(matTy) {
		t.Fatalf("no matrix construct emitted")
	}
	if len(construct.Kind.(*ir.Construct).Args) != 2 {
		t.Errorf("construct has %d columns, want 2", len(construct.Kind.(*ir.Construct).Args))
	}

	if res := validate.Validate(m, validate.DefaultCapabilities()); !res.Ok() {
		t.Fatalf("module does not validate after transform: %s", res.Error())
	}
}

func TestHandleMatrixArithmeticMultiplyBecomesIntrinsic(t *testing.T) {
	m := ir.NewModule()
	matTy := m.Types.Matrix(m.Types.F32(), 4, 4)
	vecTy := m.Types.Vector(m.Types.F32(), 4)
	fn := ir.NewFunction("main", m.Types.Void())
	fn.Stage = ir.StageCompute
	one := &ir.Constant{Ty: m.Types.U32(), Value: ir.ScalarConstant{Kind: ir.U32, Bits: 1}}
	fn.WorkgroupSize = &ir.WorkgroupSize{X: one, Y: one, Z: one}
	m.AddFunction(fn)

	bd := ir.NewBuilder(m)
	bd.Append(fn.Block)
	mv := bd.Var("m", m.Types.Pointer(ir.SpaceFunction, matTy, ir.AccessReadWrite), nil)
	vv := bd.Var("v", m.Types.Pointer(ir.SpaceFunction, vecTy, ir.AccessReadWrite), nil)
	mat := bd.Load(mv.Result(), matTy)
	vec := bd.Load(vv.Result(), vecTy)
	prod := bd.Binary(ir.BinaryMultiply, vecTy, mat.Result(), vec.Result())
	bd.Store(vv.Result(), prod.Result())
	bd.Return(fn, nil)

	res := HandleMatrixArithmetic(m, nil)
	if !res.Ok() {
		t.Fatalf("transform failed: %s", res.Error())
	}

	var call *ir.Instruction
	walkBlock(fn.Block, func(i *ir.Instruction) {
		if _, ok := i.Kind.(*ir.IntrinsicCall); ok {
			call = i
		}
	})
	if call == nil {
		t.Fatalf("no intrinsic call emitted")
	}
	if name := call.Kind.(*ir.IntrinsicCall).OtherName; name != "MatrixTimesVector" {
		t.Errorf("intrinsic = %s, want MatrixTimesVector", name)
	}

	if res := validate.Validate(m, validate.DefaultCapabilities()); !res.Ok() {
		t.Fatalf("module does not validate after transform: %s", res.Error())
	}
}

func TestBgra8UnormPolyfill(t *testing.T) {
	m := ir.NewModule()
	bgra := m.Types.StorageTexture(ir.Dim2D, ir.FormatBGRA8Unorm, ir.AccessWrite)
	texPtr := m.Types.Pointer(ir.SpaceHandle, bgra, ir.AccessRead)

	bd := ir.NewBuilder(m)
	bd.Append(m.RootBlock)
	tex := bd.Var("t", texPtr, nil)
	tex.Kind.(*ir.Var).BindingAttr = &ir.BindingPoint{Group: 0, Binding: 0}

	fn := ir.NewFunction("main", m.Types.Void())
	fn.Stage = ir.StageFragment
	m.AddFunction(fn)
	fbd := ir.NewBuilder(m)
	fbd.Append(fn.Block)
	handle := fbd.Load(tex.Result(), bgra)
	coords := fbd.ConstantComposite(m.Types.Vector(m.Types.U32(), 2),
		fbd.ConstantScalar(m.Types.U32(), ir.U32, 0), fbd.ConstantScalar(m.Types.U32(), ir.U32, 0))
	vec4f := m.Types.Vector(m.Types.F32(), 4)
	zero := fbd.ConstantScalar(m.Types.F32(), ir.F32, 0)
	value := fbd.ConstantComposite(vec4f, zero, zero, zero, zero)
	fbd.CallBuiltin(ir.BuiltinFnTextureStore, []ir.Value{handle.Result(), coords, value})
	fbd.Return(fn, nil)

	res := Bgra8UnormPolyfill(m, nil)
	if !res.Ok() {
		t.Fatalf("transform failed: %s", res.Error())
	}

	ptr := tex.Result().Ty.(*ir.Pointer)
	st := ptr.StoreType.(*ir.StorageTexture)
	if st.Format != ir.FormatRGBA8Unorm {
		t.Errorf("texture format = %s, want rgba8unorm", st.Format)
	}

	// The stored value now goes through a .bgra swizzle.
	var store *ir.Instruction
	walkBlock(fn.Block, func(i *ir.Instruction) {
		if call, ok := i.Kind.(*ir.CoreBuiltinCall); ok && call.Fn == ir.BuiltinFnTextureStore {
			store = i
		}
	})
	val := store.Kind.(*ir.CoreBuiltinCall).Args[2].(*ir.InstructionResult)
	swiz, ok := val.SourceInstruction().Kind.(*ir.Swizzle)
	if !ok {
		t.Fatalf("textureStore value is not swizzled")
	}
	want := []uint32{2, 1, 0, 3}
	for i, idx := range swiz.Indices {
		if idx != want[i] {
			t.Errorf("swizzle[%d] = %d, want %d", i, idx, want[i])
		}
	}
}

func TestPreservePaddingRewritesPaddedStructStores(t *testing.T) {
	m := ir.NewModule()
	f32 := m.Types.F32()
	// f32 at 0, vec4 at 16: 12 bytes of padding in between.
	padded := m.Types.Struct("P", ir.ComputeStructLayout(
		[]string{"a", "b"}, []ir.Type{f32, m.Types.Vector(f32, 4)}))
	v := declareBufferVar(m, "v", ir.SpaceStorage, padded, ir.AccessReadWrite)

	fn := newComputeFunction(m, "main")
	bd := ir.NewBuilder(m)
	bd.Append(fn.Block)
	zero := bd.ConstantScalar(f32, ir.F32, 0)
	zeroVec := bd.ConstantComposite(m.Types.Vector(f32, 4), zero, zero, zero, zero)
	val := bd.ConstantComposite(padded, zero, zeroVec)
	bd.Store(v.Result(), val)
	bd.Return(fn, nil)

	res := PreservePadding(m, nil)
	if !res.Ok() {
		t.Fatalf("transform failed: %s", res.Error())
	}

	// The whole-struct store becomes a call to a per-member helper.
	stores := 0
	walkBlock(fn.Block, func(i *ir.Instruction) {
		if _, ok := i.Kind.(*ir.Store); ok {
			stores++
		}
	})
	if stores != 0 {
		t.Errorf("whole-struct store survived")
	}
	if len(m.Functions) != 2 {
		t.Fatalf("functions = %d, want 2 (main + store helper)", len(m.Functions))
	}
	helper := m.Functions[1]
	memberStores := 0
	walkBlock(helper.Block, func(i *ir.Instruction) {
		if _, ok := i.Kind.(*ir.Store); ok {
			memberStores++
		}
	})
	if memberStores != 2 {
		t.Errorf("helper stores = %d, want one per member (2)", memberStores)
	}

	if res := validate.Validate(m, validate.DefaultCapabilities()); !res.Ok() {
		t.Fatalf("module does not validate after transform: %s", res.Error())
	}
}

func TestPipelinePrologueRefusal(t *testing.T) {
	m := ir.NewModule()
	fn := ir.NewFunction("broken", m.Types.Void())
	m.AddFunction(fn)
	// Unterminated block: the prologue validation of the first pass refuses.

	ran := false
	p := Pipeline{{
		Name: "NeverRuns",
		Run: func(m *ir.Module, caps *validate.Capabilities) Result {
			ran = true
			return Result{}
		},
	}}
	res := p.Run(m, validate.DefaultCapabilities())
	if res.Ok() {
		t.Fatalf("expected prologue refusal for an invalid module")
	}
	if ran {
		t.Errorf("pass body ran despite prologue failure")
	}
}

func TestPipelineRunsPassesInOrder(t *testing.T) {
	m := ir.NewModule()
	var order []string
	pass := func(name string) Pass {
		return Pass{Name: name, Run: func(m *ir.Module, caps *validate.Capabilities) Result {
			order = append(order, name)
			return Result{}
		}}
	}
	p := Pipeline{pass("a"), pass("b"), pass("c")}
	if res := p.Run(m, validate.DefaultCapabilities()); !res.Ok() {
		t.Fatalf("pipeline failed: %s", res.Error())
	}
	if len(order) != 3 || order[0] != "a" || order[1] != "b" || order[2] != "c" {
		t.Errorf("pass order = %v, want [a b c]", order)
	}
}

func TestModuleScopeVarsThreadsStructParameter(t *testing.T) {
	m := ir.NewModule()
	i32 := m.Types.I32()
	bd := ir.NewBuilder(m)
	bd.Append(m.RootBlock)
	g := bd.Var("counter", m.Types.Pointer(ir.SpacePrivate, i32, ir.AccessReadWrite), nil)

	helper := ir.NewFunction("bump", m.Types.Void())
	m.AddFunction(helper)
	hbd := ir.NewBuilder(m)
	hbd.Append(helper.Block)
	ld := hbd.Load(g.Result(), i32)
	sum := hbd.Binary(ir.BinaryAdd, i32, ld.Result(), hbd.ConstantScalar(i32, ir.I32, 1))
	hbd.Store(g.Result(), sum.Result())
	hbd.Return(helper, nil)

	fn := newComputeFunction(m, "main")
	fbd := ir.NewBuilder(m)
	fbd.Append(fn.Block)
	fbd.Call(helper)
	fbd.Return(fn, nil)

	res := ModuleScopeVars(m, nil)
	if !res.Ok() {
		t.Fatalf("transform failed: %s", res.Error())
	}

	// The global is folded into the struct; the helper takes the struct
	// handle as its new first parameter and the entry point passes it.
	if len(helper.Params) != 1 {
		t.Fatalf("helper params = %d, want 1 (module_scope)", len(helper.Params))
	}
	if m.RootBlock.Length() != 0 {
		t.Errorf("unused module-scope var survived")
	}

	var call *ir.Instruction
	walkBlock(fn.Block, func(i *ir.Instruction) {
		if _, ok := i.Kind.(*ir.UserCall); ok {
			call = i
		}
	})
	if call == nil {
		t.Fatalf("entry point lost its helper call")
	}
	if len(call.Kind.(*ir.UserCall).Args) != 1 {
		t.Errorf("rewritten call passes %d args, want 1 (the struct handle)", len(call.Kind.(*ir.UserCall).Args))
	}
}

func TestArrayOffsetFromImmediate(t *testing.T) {
	m := ir.NewModule()
	f32 := m.Types.F32()
	arr := m.Types.RuntimeArray(f32)
	v := declareBufferVar(m, "data", ir.SpaceStorage, arr, ir.AccessReadWrite)

	fn := newComputeFunction(m, "main")
	bd := ir.NewBuilder(m)
	bd.Append(fn.Block)
	off := bd.ConstantScalar(m.Types.U32(), ir.U32, 64)
	load := bd.CallIntrinsicNamed("LoadFromByteOffset", []ir.Value{v.Result(), off}, f32)
	bd.Let("x", load.Result())
	bd.Return(fn, nil)

	cfg := ArrayOffsetFromImmediateConfig{
		BindingToElementIndex: map[ir.BindingPoint]uint32{{Group: 0, Binding: 0}: 3},
	}
	res := ArrayOffsetFromImmediate(cfg)(m, nil)
	if !res.Ok() {
		t.Fatalf("transform failed: %s", res.Error())
	}

	// An immediate_data block appears at module scope.
	var imm *ir.Instruction
	for i := m.RootBlock.Front(); i != nil; i = i.Next() {
		if m.NameOf(i.Result()) == "immediate_data" {
			imm = i
		}
	}
	if imm == nil {
		t.Fatalf("no immediate_data var created")
	}
	ptr := imm.Result().Ty.(*ir.Pointer)
	if ptr.Space != ir.SpaceImmediate {
		t.Errorf("immediate_data space = %s, want immediate", ptr.Space)
	}

	// The call's offset argument is now an Add of the original constant and
	// a value loaded out of the immediate block.
	callKind := load.Kind.(*ir.IntrinsicCall)
	sum, ok := callKind.Args[1].(*ir.InstructionResult)
	if !ok {
		t.Fatalf("offset argument was not rewritten")
	}
	bin, ok := sum.SourceInstruction().Kind.(*ir.Binary)
	if !ok || bin.Op != ir.BinaryAdd {
		t.Fatalf("offset argument is not an add")
	}
	if bin.LHS != ir.Value(off) {
		t.Errorf("add does not keep the original offset as its first operand")
	}
}
