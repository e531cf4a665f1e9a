package transform

import (
	"fmt"
	"strings"

	"github.com/gogpu/tir/ir"
	"github.com/gogpu/tir/validate"
)

// DecomposeAccessConfig selects which address spaces DecomposeAccess rewrites.
// Uniform buffers are always re-laid over vec4<u32>; storage and workgroup
// variables pick the narrowest base element their accesses allow.
type DecomposeAccessConfig struct {
	Uniform   bool
	Storage   bool
	Workgroup bool
}

// DecomposeAccess rewrites every uniform/storage/workgroup Var selected by
// cfg so its store type becomes an array of a canonical base element
// (u16, u32, vec2<u32> or vec4<u32>), then rewrites every access chain,
// load, store and buffer builtin against that Var to compute a byte offset,
// fetch base elements out of the canonical array, and bitcast/reconstruct
// the originally typed value. Backends that address buffers as untyped byte
// ranges (HLSL byte-address buffers in particular) require this shape.
//
// Variables whose store type contains an atomic are excluded: atomics must
// keep their typed addresses.
//
// Choosing a u16 base element (needed for any 2-byte access granularity,
// e.g. f16 or vec3<f16> loads from storage) requires Allow16BitIntegers;
// without it the transform refuses to run and leaves the module unchanged.
func DecomposeAccess(cfg DecomposeAccessConfig) Transform {
	return func(m *ir.Module, caps *validate.Capabilities) Result {
		var worklist []*decomposeState
		for i := m.RootBlock.Front(); i != nil; i = i.Next() {
			if _, ok := i.Kind.(*ir.Var); !ok {
				continue
			}
			ptr, ok := i.Result().Ty.(*ir.Pointer)
			if !ok {
				continue
			}
			selected := (ptr.Space == ir.SpaceStorage && cfg.Storage) ||
				(ptr.Space == ir.SpaceUniform && cfg.Uniform) ||
				(ptr.Space == ir.SpaceWorkgroup && cfg.Workgroup)
			if !selected || containsAtomic(ptr.StoreType) {
				continue
			}
			worklist = append(worklist, newDecomposeState(m, i, ptr))
		}

		effective := validate.DefaultCapabilities()
		if caps != nil {
			effective = *caps
		}
		for _, st := range worklist {
			if st.base == m.Types.U16() && !effective.Has(validate.Allow16BitIntegers) {
				return Result{Result: validate.Result{Diagnostics: []validate.Diagnostic{{
					Severity: validate.SeverityError,
					Message: fmt.Sprintf("var %%%s needs a u16 base element for its 2-byte accesses; requires Allow16BitIntegers",
						m.NameOf(st.varInst.Result())),
					Instruction: st.varInst,
				}}}}
			}
		}

		for _, st := range worklist {
			st.process()
		}
		return Result{}
	}
}

func containsAtomic(t ir.Type) bool {
	switch tt := t.(type) {
	case *ir.Atomic:
		return true
	case *ir.Array:
		return containsAtomic(tt.Elem)
	case *ir.Struct:
		for _, mem := range tt.Members {
			if containsAtomic(mem.Type) {
				return true
			}
		}
	}
	return false
}

// offsetData is a byte offset expressed as a compile-time constant part plus
// a sum of runtime u32 parts. It is a value type: plusConst/plusExpr return
// fresh copies so a caller can fork the offset down two access-chain arms
// without the arms seeing each other's additions.
type offsetData struct {
	constBytes uint32
	exprs      []ir.Value
}

func (o offsetData) plusConst(c uint32) offsetData {
	out := offsetData{constBytes: o.constBytes + c}
	out.exprs = append(out.exprs, o.exprs...)
	return out
}

func (o offsetData) plusExpr(v ir.Value) offsetData {
	out := offsetData{constBytes: o.constBytes}
	out.exprs = append(out.exprs, o.exprs...)
	out.exprs = append(out.exprs, v)
	return out
}

// decomposeState carries the per-variable rewrite context: the chosen base
// element, its pointer type, and the memoised per-type load/store helper
// functions, so the second matrix load against the same variable calls the
// same helper the first one synthesized.
type decomposeState struct {
	m       *ir.Module
	varInst *ir.Instruction
	varPtr  *ir.Pointer

	base    ir.Type
	basePtr *ir.Pointer
	bs      uint32

	loadHelpers  map[ir.Type]*ir.Function
	storeHelpers map[ir.Type]*ir.Function
}

func newDecomposeState(m *ir.Module, varInst *ir.Instruction, ptr *ir.Pointer) *decomposeState {
	s := &decomposeState{
		m:            m,
		varInst:      varInst,
		varPtr:       ptr,
		loadHelpers:  map[ir.Type]*ir.Function{},
		storeHelpers: map[ir.Type]*ir.Function{},
	}
	size := uint32(16)
	if ptr.Space != ir.SpaceUniform {
		size = s.smallestAccessSize()
	}
	switch {
	case size == 2 || size == 6:
		// 6 is vec3<f16>: only a 2-byte granularity can address its middle.
		s.base = m.Types.U16()
	case size < 8 || size == 12:
		// 12 is vec3<u32>: 4-byte granularity.
		s.base = m.Types.U32()
	case size < 13:
		s.base = m.Types.Vec2U32()
	default:
		s.base = m.Types.Vec4U32()
	}
	s.bs = s.base.Size()
	s.basePtr = m.Types.Pointer(ptr.Space, s.base, ptr.AccessCtl)
	return s
}

// smallestElementSize is the byte size of the narrowest single load/store a
// value of type t decomposes into. Vectors of width 3 report their full
// size (6 for vec3<f16>, 12 for vec3<u32>) since their padding forces an
// unaligned-width access.
func smallestElementSize(t ir.Type) uint32 {
	switch tt := t.(type) {
	case *ir.Scalar:
		return tt.Size()
	case *ir.Vector:
		return tt.Size()
	case *ir.Matrix:
		return smallestElementSize(tt.Column)
	case *ir.Array:
		return smallestElementSize(tt.Elem)
	case *ir.Struct:
		size := ^uint32(0)
		for _, mem := range tt.Members {
			if s := smallestElementSize(mem.Type); s < size {
				size = s
			}
		}
		return size
	default:
		ir.ICEf("smallestElementSize: unsupported type %s", t.String())
		return 0
	}
}

// smallestAccessSize walks every use reachable from the variable (through
// Access chains, Lets and bufferView calls) and returns the smallest
// load/store size in bytes, capped at 16 since nothing needs a granularity
// wider than a vec4<u32>.
func (s *decomposeState) smallestAccessSize() uint32 {
	size := ^uint32(0)
	work := s.varInst.Result().Uses()
	for len(work) > 0 {
		u := work[0]
		work = work[1:]
		inst := u.Instruction
		switch k := inst.Kind.(type) {
		case *ir.LoadVectorElement:
			if sz := inst.Result().Ty.Size(); sz < size {
				size = sz
			}
		case *ir.StoreVectorElement:
			if sz := k.Val.Type().Size(); sz < size {
				size = sz
			}
		case *ir.Load:
			if sz := smallestElementSize(inst.Result().Ty); sz < size {
				size = sz
			}
		case *ir.Store:
			if sz := smallestElementSize(k.Val.Type()); sz < size {
				size = sz
			}
		case *ir.Access, *ir.Let:
			work = append(work, inst.Result().Uses()...)
		case *ir.CoreBuiltinCall:
			switch k.Fn {
			case ir.BuiltinFnBufferView:
				work = append(work, inst.Result().Uses()...)
			case ir.BuiltinFnArrayLength:
				if ptr, ok := k.Args[0].Type().(*ir.Pointer); ok {
					if sz := smallestElementSize(ptr.StoreType); sz < size {
						size = sz
					}
				}
			}
		}
	}
	if size > 16 {
		size = 16
	}
	return size
}

func (s *decomposeState) process() {
	result := s.varInst.Result()
	work := result.Uses()
	for len(work) > 0 {
		u := work[0]
		work = work[1:]
		inst := u.Instruction
		if !inst.Alive() {
			continue
		}
		switch k := inst.Kind.(type) {
		case *ir.LoadVectorElement:
			s.rewriteLoadVectorElement(inst, k, offsetData{})
		case *ir.StoreVectorElement:
			s.rewriteStoreVectorElement(inst, k, offsetData{})
		case *ir.Load:
			s.rewriteLoad(inst, offsetData{})
		case *ir.Store:
			s.rewriteStore(inst, k, offsetData{})
		case *ir.Access:
			s.rewriteAccess(inst, k, s.varPtr.StoreType, offsetData{})
		case *ir.Let:
			// The let is an alias for the var itself: fold its uses back onto
			// this worklist and dissolve it.
			work = append(work, dissolveLet(inst, result)...)
		case *ir.CoreBuiltinCall:
			switch k.Fn {
			case ir.BuiltinFnArrayLength:
				s.rewriteArrayLength(inst, s.varPtr.StoreType, offsetData{})
			case ir.BuiltinFnBufferLength:
				s.rewriteBufferLength(inst, k)
			case ir.BuiltinFnBufferView:
				s.rewriteBufferView(inst, k, offsetData{})
			default:
				ir.ICEf("DecomposeAccess: unexpected builtin %s against a buffer var", inst.Kind.Name())
			}
		default:
			ir.ICEf("DecomposeAccess: unexpected use of a buffer var by %s", inst.Kind.Name())
		}
	}

	newStore := s.rewrittenStoreType()
	result.Ty = s.m.Types.Pointer(s.varPtr.Space, newStore, s.varPtr.AccessCtl)
}

func (s *decomposeState) rewrittenStoreType() ir.Type {
	if hasRuntimeSize(s.varPtr.StoreType) {
		return s.m.Types.RuntimeArray(s.base)
	}
	count := (s.varPtr.StoreType.Size() + s.bs - 1) / s.bs
	return s.m.Types.Array(s.base, count)
}

func hasRuntimeSize(t ir.Type) bool {
	switch tt := t.(type) {
	case *ir.Array:
		return tt.Count.Runtime()
	case *ir.Struct:
		if len(tt.Members) == 0 {
			return false
		}
		if arr, ok := tt.Members[len(tt.Members)-1].Type.(*ir.Array); ok {
			return arr.Count.Runtime()
		}
	}
	return false
}

// dissolveLet replaces every use of a Let aliasing aliasee with aliasee
// itself, destroys the Let, and returns the redirected usages for the
// caller's worklist.
func dissolveLet(letInst *ir.Instruction, aliasee ir.Value) []ir.Usage {
	pending := letInst.Result().Uses()
	letInst.Result().ReplaceAllUsesWith(aliasee)
	letInst.Destroy()
	return pending
}

// ---- offset arithmetic ---------------------------------------------------

func (s *decomposeState) constU32(v uint32) *ir.Constant {
	return &ir.Constant{Ty: s.m.Types.U32(), Value: ir.ScalarConstant{Kind: ir.U32, Bits: uint64(v)}}
}

func constantAsU32(v ir.Value) (uint32, bool) {
	c, ok := v.(*ir.Constant)
	if !ok {
		return 0, false
	}
	sc, ok := c.Value.(ir.ScalarConstant)
	if !ok {
		return 0, false
	}
	return uint32(sc.Bits), true
}

// toU32 converts an index value to u32 if it is typed otherwise (a signed
// i32 index from the source language, most commonly).
func (s *decomposeState) toU32(bd *ir.Builder, v ir.Value) ir.Value {
	if v.Type() == s.m.Types.U32() {
		return v
	}
	if c, ok := constantAsU32(v); ok {
		return s.constU32(c)
	}
	return bd.Convert(s.m.Types.U32(), v).Result()
}

// addIndex folds index*elemSize into the offset: into the constant part for
// a constant index, onto the expression list otherwise.
func (s *decomposeState) addIndex(bd *ir.Builder, off offsetData, index ir.Value, elemSize uint32) offsetData {
	if c, ok := constantAsU32(index); ok {
		return off.plusConst(c * elemSize)
	}
	idx := s.toU32(bd, index)
	scaled := bd.Binary(ir.BinaryMultiply, s.m.Types.U32(), idx, s.constU32(elemSize))
	return off.plusExpr(scaled.Result())
}

// materialize turns the offset into a single u32 value at the current
// insertion point. A pure-zero offset becomes the literal 0u.
func (s *decomposeState) materialize(bd *ir.Builder, off offsetData) ir.Value {
	var val ir.Value
	if off.constBytes != 0 {
		val = s.constU32(off.constBytes)
	} else if len(off.exprs) == 0 {
		return s.constU32(0)
	}
	for _, e := range off.exprs {
		if val == nil {
			val = e
		} else {
			val = bd.Binary(ir.BinaryAdd, s.m.Types.U32(), val, e).Result()
		}
	}
	return val
}

// arrayIndexOf converts a byte offset value to an index into the canonical
// base-element array.
func (s *decomposeState) arrayIndexOf(bd *ir.Builder, byteIdx ir.Value) ir.Value {
	if c, ok := constantAsU32(byteIdx); ok {
		return s.constU32(c / s.bs)
	}
	return bd.Binary(ir.BinaryDivide, s.m.Types.U32(), byteIdx, s.constU32(s.bs)).Result()
}

// vectorLaneOf computes which 4-byte lane of a base vector holds the byte at
// byteIdx. Bitwise AND/shift is used for the dynamic path instead of
// modulo/divide: FXC miscompiles the %-and-/ spelling.
func (s *decomposeState) vectorLaneOf(bd *ir.Builder, byteIdx ir.Value, vec *ir.Vector) ir.Value {
	if c, ok := constantAsU32(byteIdx); ok {
		return s.constU32((c % vec.Size()) / uint32(vec.Width))
	}
	masked := bd.Binary(ir.BinaryAnd, s.m.Types.U32(), byteIdx, s.constU32(vec.Size()-1))
	return bd.Binary(ir.BinaryShiftRight, s.m.Types.U32(), masked.Result(), s.constU32(log2u32(uint32(vec.Width)))).Result()
}

func log2u32(v uint32) uint32 {
	n := uint32(0)
	for v > 1 {
		v >>= 1
		n++
	}
	return n
}

func (s *decomposeState) bitcastIfNeeded(bd *ir.Builder, ty ir.Type, v ir.Value) ir.Value {
	if v.Type() == ty {
		return v
	}
	return bd.Bitcast(ty, v).Result()
}

// incrementIndex returns index+1, folding for constants.
func (s *decomposeState) incrementIndex(bd *ir.Builder, idx ir.Value) ir.Value {
	if c, ok := constantAsU32(idx); ok {
		return s.constU32(c + 1)
	}
	return bd.Binary(ir.BinaryAdd, s.m.Types.U32(), idx, s.constU32(1)).Result()
}

// ---- access-chain walking ------------------------------------------------

// rewriteAccess folds an Access chain's indices into the running byte
// offset, then continues with every use of the chain's result. objTy is the
// pointee type the chain starts at: the var's store type for a direct
// access, or a partially resolved type when recursing through a nested
// chain.
func (s *decomposeState) rewriteAccess(inst *ir.Instruction, acc *ir.Access, objTy ir.Type, off offsetData) {
	bd := ir.NewBuilder(s.m)
	bd.InsertBefore(inst)

	for _, idx := range acc.Indices {
		switch t := objTy.(type) {
		case *ir.Vector:
			off = s.addIndex(bd, off, idx, t.Elem.Size())
			objTy = t.Elem
		case *ir.Matrix:
			off = s.addIndex(bd, off, idx, t.ColumnStride())
			objTy = t.Column
		case *ir.Array:
			off = s.addIndex(bd, off, idx, t.ImplicitStride)
			objTy = t.Elem
		case *ir.Struct:
			c, ok := constantAsU32(idx)
			ir.Assert(ok, "DecomposeAccess: struct index must be a constant")
			mem := t.Members[c]
			off = off.plusConst(mem.Offset)
			objTy = mem.Type
		default:
			ir.ICEf("DecomposeAccess: cannot index into %s", objTy.String())
		}
	}
	s.rewriteAccessUses(inst, objTy, off)
}

// rewriteAccessUses processes every consumer of an access-like instruction's
// result (an Access or a bufferView call), then destroys the instruction.
func (s *decomposeState) rewriteAccessUses(inst *ir.Instruction, objTy ir.Type, off offsetData) {
	work := inst.Result().Uses()
	for len(work) > 0 {
		u := work[0]
		work = work[1:]
		use := u.Instruction
		if !use.Alive() {
			continue
		}
		switch k := use.Kind.(type) {
		case *ir.Let:
			work = append(work, dissolveLet(use, inst.Result())...)
		case *ir.Access:
			s.rewriteAccess(use, k, objTy, off)
		case *ir.Load:
			s.rewriteLoad(use, off)
		case *ir.Store:
			s.rewriteStore(use, k, off)
		case *ir.LoadVectorElement:
			s.rewriteLoadVectorElement(use, k, off)
		case *ir.StoreVectorElement:
			s.rewriteStoreVectorElement(use, k, off)
		case *ir.CoreBuiltinCall:
			// bufferView and bufferLength only ever apply to the var itself,
			// never partway down a chain.
			ir.Assert(k.Fn == ir.BuiltinFnArrayLength, "DecomposeAccess: unexpected builtin after an access chain")
			s.rewriteArrayLength(use, objTy, off)
		default:
			ir.ICEf("DecomposeAccess: unexpected use of an access chain by %s", use.Kind.Name())
		}
	}
	inst.Destroy()
}

func (s *decomposeState) rewriteBufferView(inst *ir.Instruction, call *ir.CoreBuiltinCall, off offsetData) {
	bd := ir.NewBuilder(s.m)
	bd.InsertBefore(inst)
	off = s.addIndex(bd, off, call.Args[1], 1)

	viewPtr, ok := inst.Result().Ty.(*ir.Pointer)
	ir.Assert(ok, "DecomposeAccess: bufferView must produce a pointer")
	s.rewriteAccessUses(inst, viewPtr.StoreType, off)
}

// ---- loads ---------------------------------------------------------------

func (s *decomposeState) rewriteLoad(inst *ir.Instruction, off offsetData) {
	bd := ir.NewBuilder(s.m)
	bd.InsertBefore(inst)
	byteIdx := s.materialize(bd, off)
	v := s.emitLoad(bd, inst.Result().Ty, byteIdx)
	inst.Result().ReplaceAllUsesWith(v)
	inst.Destroy()
}

func (s *decomposeState) rewriteLoadVectorElement(inst *ir.Instruction, lve *ir.LoadVectorElement, off offsetData) {
	bd := ir.NewBuilder(s.m)
	bd.InsertBefore(inst)
	off = s.addIndex(bd, off, lve.Index, inst.Result().Ty.Size())
	byteIdx := s.materialize(bd, off)
	v := s.emitLoad(bd, inst.Result().Ty, byteIdx)
	inst.Result().ReplaceAllUsesWith(v)
	inst.Destroy()
}

// emitLoad produces a value of ty read from the canonical array at byteIdx.
// Aggregates go through a memoised helper function; vectors and scalars are
// emitted inline.
func (s *decomposeState) emitLoad(bd *ir.Builder, ty ir.Type, byteIdx ir.Value) ir.Value {
	switch t := ty.(type) {
	case *ir.Struct, *ir.Matrix, *ir.Array:
		fn := s.loadHelperFor(ty)
		return bd.Call(fn, byteIdx).Result()
	case *ir.Vector:
		return s.emitVectorLoad(bd, t, byteIdx)
	case *ir.Scalar:
		return s.emitScalarLoad(bd, t, byteIdx)
	default:
		ir.ICEf("DecomposeAccess: cannot load a %s from a buffer", ty.String())
		return nil
	}
}

// emitBaseLoads loads n consecutive base elements starting at startIdx.
func (s *decomposeState) emitBaseLoads(bd *ir.Builder, startIdx ir.Value, n uint32) []ir.Value {
	out := make([]ir.Value, 0, n)
	idx := startIdx
	for i := uint32(0); i < n; i++ {
		if i > 0 {
			idx = s.incrementIndex(bd, idx)
		}
		acc := bd.Access(s.basePtr, s.varInst.Result(), idx)
		out = append(out, bd.Load(acc.Result(), s.base).Result())
	}
	return out
}

func (s *decomposeState) numBaseElements(ty ir.Type) uint32 {
	return (ty.Size() + s.bs - 1) / s.bs
}

func (s *decomposeState) emitScalarLoad(bd *ir.Builder, ty *ir.Scalar, byteIdx ir.Value) ir.Value {
	arrayIdx := s.arrayIndexOf(bd, byteIdx)
	if n := s.numBaseElements(ty); n > 1 {
		// Only reachable with a u16 base element and a 4-byte scalar.
		ir.Assert(n == 2, "DecomposeAccess: scalar spans more than two base elements")
		loads := s.emitBaseLoads(bd, arrayIdx, n)
		pair := bd.Construct(s.m.Types.Vector(s.base.(*ir.Scalar), 2), loads...)
		return s.bitcastIfNeeded(bd, ty, pair.Result())
	}

	acc := bd.Access(s.basePtr, s.varInst.Result(), arrayIdx)
	var loaded ir.Value
	if baseVec, ok := s.base.(*ir.Vector); ok {
		lane := s.vectorLaneOf(bd, byteIdx, baseVec)
		loaded = bd.LoadVectorElement(acc.Result(), lane, baseVec.Elem).Result()
	} else {
		loaded = bd.Load(acc.Result(), s.base).Result()
	}

	if ty.Size() < loaded.Type().Size() {
		return s.extractNarrowScalar(bd, loaded, ty, byteIdx)
	}
	return s.bitcastIfNeeded(bd, ty, loaded)
}

// extractNarrowScalar pulls a 2-byte scalar out of a loaded 4-byte value:
// bitcast the load to a two-element vector of the result type and index the
// half selected by the byte offset.
func (s *decomposeState) extractNarrowScalar(bd *ir.Builder, loaded ir.Value, ty *ir.Scalar, byteIdx ir.Value) ir.Value {
	n := loaded.Type().Size() / ty.Size()
	vecTy := s.m.Types.Vector(ty, uint8(n))

	var lane ir.Value
	if c, ok := constantAsU32(byteIdx); ok {
		if c%4 == 0 {
			lane = s.constU32(0)
		} else {
			lane = s.constU32(1)
		}
	} else {
		rem := bd.Binary(ir.BinaryAnd, s.m.Types.U32(), byteIdx, s.constU32(3))
		cond := bd.Binary(ir.BinaryEqual, s.m.Types.Bool(), rem.Result(), s.constU32(0))
		sel := bd.CallBuiltinNamed("select", []ir.Value{s.constU32(1), s.constU32(0), cond.Result()}, s.m.Types.U32())
		lane = sel.Result()
	}

	cast := bd.Bitcast(vecTy, loaded)
	return bd.Access(ty, cast.Result(), lane).Result()
}

func (s *decomposeState) emitVectorLoad(bd *ir.Builder, ty *ir.Vector, byteIdx ir.Value) ir.Value {
	if ty.Elem.Size() == 2 {
		return s.emitNarrowVectorLoad(bd, ty, byteIdx)
	}

	arrayIdx := s.arrayIndexOf(bd, byteIdx)
	numLoads := s.numBaseElements(ty)
	loads := s.emitBaseLoads(bd, arrayIdx, numLoads)

	if s.bs < ty.Elem.Size() {
		// u16 base under a 4-byte-element vector: pair the u16 loads up into
		// u32 values first.
		ir.Assert(s.base == s.m.Types.U16(), "DecomposeAccess: undersized base element is not u16")
		paired := make([]ir.Value, 0, numLoads/2)
		for i := uint32(0); i < numLoads; i += 2 {
			pair := bd.Construct(s.m.Types.Vector(s.m.Types.U16(), 2), loads[i], loads[i+1])
			paired = append(paired, bd.Bitcast(s.m.Types.U32(), pair.Result()).Result())
		}
		loads = paired
	}

	var value ir.Value
	switch {
	case loads[0].Type() == ir.Type(s.m.Types.U32()):
		value = bd.Construct(s.m.Types.Vector(s.m.Types.U32(), uint8(len(loads))), loads...).Result()
	case loads[0].Type() == ir.Type(s.m.Types.Vec2U32()):
		if len(loads) > 1 {
			value = bd.Construct(s.m.Types.Vec4U32(), loads...).Result()
		} else {
			value = loads[0]
		}
	default:
		ir.Assert(loads[0].Type() == ir.Type(s.m.Types.Vec4U32()), "DecomposeAccess: unexpected base load type")
		value = loads[0]
	}

	var out ir.Value
	switch ty.Width {
	case 4:
		out = value
	case 3:
		out = bd.Swizzle(s.m.Types.Vector(s.m.Types.U32(), 3), value, 0, 1, 2).Result()
	case 2:
		if value.Type().Size() == ty.Size() {
			out = value
		} else {
			// The vec2 sits in either the low or the high half of a loaded
			// vec4<u32>, decided by the byte offset's low nibble.
			lane := s.vectorLaneOf(bd, byteIdx, s.m.Types.Vec4U32())
			if c, ok := constantAsU32(lane); ok {
				if c == 2 {
					out = bd.Swizzle(s.m.Types.Vec2U32(), value, 2, 3).Result()
				} else {
					out = bd.Swizzle(s.m.Types.Vec2U32(), value, 0, 1).Result()
				}
			} else {
				hi := bd.Swizzle(s.m.Types.Vec2U32(), value, 2, 3)
				lo := bd.Swizzle(s.m.Types.Vec2U32(), value, 0, 1)
				cond := bd.Binary(ir.BinaryEqual, s.m.Types.Bool(), lane, s.constU32(2))
				sel := bd.CallBuiltinNamed("select", []ir.Value{lo.Result(), hi.Result(), cond.Result()}, s.m.Types.Vec2U32())
				out = sel.Result()
			}
		}
	default:
		ir.ICEf("DecomposeAccess: unsupported vector width %d", ty.Width)
	}
	return s.bitcastIfNeeded(bd, ty, out)
}

// emitNarrowVectorLoad loads a vector with 2-byte elements (f16/u16). The
// shape depends entirely on the base element:
//   - u16 base: one scalar load per element, construct, bitcast.
//   - u32 base: one u32 per element pair.
//   - vec2<u32> base: one load, bitcast (only vec4 possible).
//   - vec4<u32> base (uniform): pick the half/lane of the loaded vec4 that
//     the byte offset selects, then bitcast.
func (s *decomposeState) emitNarrowVectorLoad(bd *ir.Builder, ty *ir.Vector, byteIdx ir.Value) ir.Value {
	arrayIdx := s.arrayIndexOf(bd, byteIdx)
	numLoads := s.numBaseElements(ty)
	loads := s.emitBaseLoads(bd, arrayIdx, numLoads)

	switch base := s.base.(type) {
	case *ir.Scalar:
		if base.Kind == ir.U16 {
			vecTy := s.m.Types.Vector(base, uint8(numLoads))
			built := bd.Construct(vecTy, loads...)
			return s.bitcastIfNeeded(bd, ty, built.Result())
		}
		if ty.Width == 2 {
			return bd.Bitcast(ty, loads[0]).Result()
		}
		ir.Assert(ty.Width == 4, "DecomposeAccess: vec3 of 2-byte elements cannot have a u32 base")
		pair := bd.Construct(s.m.Types.Vec2U32(), loads...)
		return bd.Bitcast(ty, pair.Result()).Result()
	case *ir.Vector:
		if base.Width == 2 {
			ir.Assert(ty.Width == 4, "DecomposeAccess: vec2<u32> base only carries vec4 of 2-byte elements")
			return bd.Bitcast(ty, loads[0]).Result()
		}
		ir.Assert(len(loads) == 1, "DecomposeAccess: narrow vector spans several vec4<u32> elements")
		if ty.Width == 3 || ty.Width == 4 {
			half := s.selectVec2Half(bd, loads[0], byteIdx)
			if ty.Width == 3 {
				full := bd.Bitcast(s.m.Types.Vector(ty.Elem, 4), half)
				return bd.Swizzle(ty, full.Result(), 0, 1, 2).Result()
			}
			return bd.Bitcast(ty, half).Result()
		}
		// vec2 of 2-byte elements: one u32 lane, bitcast.
		lane := s.vectorLaneOf(bd, byteIdx, s.m.Types.Vec4U32())
		var word ir.Value
		if c, ok := constantAsU32(lane); ok {
			word = bd.Swizzle(s.m.Types.U32(), loads[0], c).Result()
		} else {
			word = bd.Access(s.m.Types.U32(), loads[0], lane).Result()
		}
		return bd.Bitcast(ty, word).Result()
	}
	ir.ICEf("DecomposeAccess: unexpected base element %s", s.base.String())
	return nil
}

// selectVec2Half picks the .xy or .zw half of a loaded vec4<u32> according
// to the byte offset: statically when the offset is constant, via select
// otherwise.
func (s *decomposeState) selectVec2Half(bd *ir.Builder, loaded ir.Value, byteIdx ir.Value) ir.Value {
	lane := s.vectorLaneOf(bd, byteIdx, s.m.Types.Vec4U32())
	if c, ok := constantAsU32(lane); ok {
		if c == 2 {
			return bd.Swizzle(s.m.Types.Vec2U32(), loaded, 2, 3).Result()
		}
		return bd.Swizzle(s.m.Types.Vec2U32(), loaded, 0, 1).Result()
	}
	hi := bd.Swizzle(s.m.Types.Vec2U32(), loaded, 2, 3)
	lo := bd.Swizzle(s.m.Types.Vec2U32(), loaded, 0, 1)
	cond := bd.Binary(ir.BinaryEqual, s.m.Types.Bool(), lane, s.constU32(2))
	return bd.CallBuiltinNamed("select", []ir.Value{lo.Result(), hi.Result(), cond.Result()}, s.m.Types.Vec2U32()).Result()
}

// ---- stores --------------------------------------------------------------

func (s *decomposeState) rewriteStore(inst *ir.Instruction, st *ir.Store, off offsetData) {
	bd := ir.NewBuilder(s.m)
	bd.InsertBefore(inst)
	byteIdx := s.materialize(bd, off)
	s.emitStore(bd, st.Val, byteIdx)
	inst.Destroy()
}

func (s *decomposeState) rewriteStoreVectorElement(inst *ir.Instruction, sve *ir.StoreVectorElement, off offsetData) {
	bd := ir.NewBuilder(s.m)
	bd.InsertBefore(inst)
	off = s.addIndex(bd, off, sve.Index, sve.Val.Type().Size())
	byteIdx := s.materialize(bd, off)
	s.emitStore(bd, sve.Val, byteIdx)
	inst.Destroy()
}

func (s *decomposeState) emitStore(bd *ir.Builder, from ir.Value, byteIdx ir.Value) {
	switch t := from.Type().(type) {
	case *ir.Struct, *ir.Matrix, *ir.Array:
		fn := s.storeHelperFor(from.Type())
		bd.Call(fn, byteIdx, from)
	case *ir.Vector:
		s.emitVectorStore(bd, t, from, byteIdx)
	case *ir.Scalar:
		s.emitScalarStore(bd, from, byteIdx)
	default:
		ir.ICEf("DecomposeAccess: cannot store a %s into a buffer", from.Type().String())
	}
}

func (s *decomposeState) emitScalarStore(bd *ir.Builder, from ir.Value, byteIdx ir.Value) {
	arrayIdx := s.arrayIndexOf(bd, byteIdx)
	if n := s.numBaseElements(from.Type()); n > 1 {
		// u16 base storing a 4-byte scalar: split into two u16 lanes.
		ir.Assert(n == 2 && s.base == ir.Type(s.m.Types.U16()), "DecomposeAccess: oversized scalar store")
		vecTy := s.m.Types.Vector(s.m.Types.U16(), 2)
		cast := s.bitcastIfNeeded(bd, vecTy, from)
		for i := uint32(0); i < n; i++ {
			acc := bd.Access(s.basePtr, s.varInst.Result(), arrayIdx)
			lane := bd.Access(s.base, cast, s.constU32(i))
			bd.Store(acc.Result(), lane.Result())
			if i < n-1 {
				arrayIdx = s.incrementIndex(bd, arrayIdx)
			}
		}
		return
	}

	if baseVec, ok := s.base.(*ir.Vector); ok {
		// A scalar narrower than a vector base element: write just its lane.
		acc := bd.Access(s.basePtr, s.varInst.Result(), arrayIdx)
		lane := s.vectorLaneOf(bd, byteIdx, baseVec)
		bd.StoreVectorElement(acc.Result(), lane, s.bitcastIfNeeded(bd, baseVec.Elem, from))
		return
	}

	ir.Assert(from.Type().Size() == s.bs, "DecomposeAccess: scalar store size does not match base element")
	acc := bd.Access(s.basePtr, s.varInst.Result(), arrayIdx)
	bd.Store(acc.Result(), s.bitcastIfNeeded(bd, s.base, from))
}

func (s *decomposeState) emitVectorStore(bd *ir.Builder, ty *ir.Vector, from ir.Value, byteIdx ir.Value) {
	numEles := s.numBaseElements(ty)
	arrayIdx := s.arrayIndexOf(bd, byteIdx)

	if baseVec, ok := s.base.(*ir.Vector); ok {
		if numEles == 1 {
			if ty.Size() == s.bs {
				acc := bd.Access(s.basePtr, s.varInst.Result(), arrayIdx)
				bd.Store(acc.Result(), s.bitcastIfNeeded(bd, s.base, from))
				return
			}
			// Narrower than the base element: write the individual lanes the
			// value occupies (a vec2 or vec3 inside a vec4<u32>).
			acc := bd.Access(s.basePtr, s.varInst.Result(), arrayIdx)
			startLane := s.vectorLaneOf(bd, byteIdx, baseVec)
			asWords := s.bitcastIfNeeded(bd, s.m.Types.Vector(s.m.Types.U32(), ty.Width), from)
			lane := startLane
			for i := uint8(0); i < ty.Width; i++ {
				if i > 0 {
					lane = s.incrementIndex(bd, lane)
				}
				word := bd.Access(s.m.Types.U32(), asWords, s.constU32(uint32(i)))
				bd.StoreVectorElement(acc.Result(), lane, word.Result())
			}
			return
		}
		// A vec4 (or vec4-of-halves) split across two vec2<u32> elements.
		ir.Assert(numEles == 2, "DecomposeAccess: vector spans more than two base elements")
		sub := s.m.Types.Vector(ty.Elem, 2)
		lo := bd.Swizzle(sub, from, 0, 1)
		acc := bd.Access(s.basePtr, s.varInst.Result(), arrayIdx)
		bd.Store(acc.Result(), s.bitcastIfNeeded(bd, s.base, lo.Result()))

		arrayIdx = s.incrementIndex(bd, arrayIdx)
		hi := bd.Swizzle(sub, from, 2, 3)
		acc = bd.Access(s.basePtr, s.varInst.Result(), arrayIdx)
		bd.Store(acc.Result(), s.bitcastIfNeeded(bd, s.base, hi.Result()))
		return
	}

	// Scalar base: one store per base element, with 4-byte vector lanes split
	// into u16 halves when the base is narrower than the element.
	ratio := ty.Elem.Size() / s.bs
	ir.Assert(ratio == 1 || ratio == 2, "DecomposeAccess: unsupported element/base size ratio")
	for i := uint32(0); i < numEles; i++ {
		lane := bd.Access(ty.Elem, from, s.constU32(i/ratio))
		var value ir.Value = lane.Result()
		if ratio == 2 {
			half := s.bitcastIfNeeded(bd, s.m.Types.Vector(s.base.(*ir.Scalar), 2), value)
			value = bd.Access(s.base, half, s.constU32(i%2)).Result()
		} else if ty.Elem != s.base.(*ir.Scalar) {
			value = s.bitcastIfNeeded(bd, s.base, value)
		}
		acc := bd.Access(s.basePtr, s.varInst.Result(), arrayIdx)
		bd.Store(acc.Result(), value)
		if i < numEles-1 {
			arrayIdx = s.incrementIndex(bd, arrayIdx)
		}
	}
}

// ---- helper functions ----------------------------------------------------

func (s *decomposeState) helperName(prefix string, ty ir.Type) string {
	varName := s.m.NameOf(s.varInst.Result())
	if varName == "" {
		varName = "buffer"
	}
	mangled := strings.NewReplacer("<", "_", ">", "", ",", "_", " ", "", "{", "_", "}", "", ":", "_").Replace(ty.String())
	return fmt.Sprintf("%s_%s_%s", prefix, varName, mangled)
}

// loadHelperFor returns (synthesizing on first request) the function that
// loads a whole struct, matrix or fixed-count array of type ty starting at a
// byte offset parameter.
func (s *decomposeState) loadHelperFor(ty ir.Type) *ir.Function {
	if fn, ok := s.loadHelpers[ty]; ok {
		return fn
	}
	fn := ir.NewFunction(s.helperName("load", ty), ty)
	start := &ir.FunctionParam{Ty: s.m.Types.U32(), Name: "start_byte_offset"}
	fn.AddParam(start)
	s.loadHelpers[ty] = fn
	s.m.AddFunction(fn)

	bd := ir.NewBuilder(s.m)
	bd.Append(fn.Block)
	switch t := ty.(type) {
	case *ir.Matrix:
		cols := make([]ir.Value, t.Columns)
		for c := uint8(0); c < t.Columns; c++ {
			off := offsetData{constBytes: uint32(c) * t.ColumnStride(), exprs: []ir.Value{start}}
			byteIdx := s.materialize(bd, off)
			cols[c] = s.emitLoad(bd, t.Column, byteIdx)
		}
		built := bd.Construct(t, cols...)
		bd.Return(fn, built.Result())
	case *ir.Struct:
		vals := make([]ir.Value, len(t.Members))
		for i, mem := range t.Members {
			off := offsetData{constBytes: mem.Offset, exprs: []ir.Value{start}}
			byteIdx := s.materialize(bd, off)
			vals[i] = s.emitLoad(bd, mem.Type, byteIdx)
		}
		built := bd.Construct(t, vals...)
		bd.Return(fn, built.Result())
	case *ir.Array:
		ir.Assert(!t.Count.Runtime(), "DecomposeAccess: cannot load a whole runtime-sized array")
		localPtr := s.m.Types.Pointer(ir.SpaceFunction, t, ir.AccessReadWrite)
		local := bd.Var("a", localPtr, zeroConstant(s.m, t))
		lo := s.constU32(0)
		hi := s.constU32(*t.Count.Constant)
		step := s.constU32(1)
		bd.LoopRange(lo, hi, step, s.m.Types.U32(), func(idx *ir.BlockParam, loop *ir.Instruction) {
			scaled := bd.Binary(ir.BinaryMultiply, s.m.Types.U32(), idx, s.constU32(t.ImplicitStride))
			off := offsetData{exprs: []ir.Value{start, scaled.Result()}}
			byteIdx := s.materialize(bd, off)
			elemPtr := s.m.Types.Pointer(ir.SpaceFunction, t.Elem, ir.AccessReadWrite)
			slot := bd.Access(elemPtr, local.Result(), idx)
			bd.Store(slot.Result(), s.emitLoad(bd, t.Elem, byteIdx))
			bd.Continue(loop)
		})
		loaded := bd.Load(local.Result(), t)
		bd.Return(fn, loaded.Result())
	}
	return fn
}

// storeHelperFor returns (synthesizing on first request) the function that
// stores a whole struct, matrix or fixed-count array value member by member
// starting at a byte offset parameter.
func (s *decomposeState) storeHelperFor(ty ir.Type) *ir.Function {
	if fn, ok := s.storeHelpers[ty]; ok {
		return fn
	}
	fn := ir.NewFunction(s.helperName("store", ty), s.m.Types.Void())
	start := &ir.FunctionParam{Ty: s.m.Types.U32(), Name: "start_byte_offset"}
	object := &ir.FunctionParam{Ty: ty, Name: "object"}
	fn.AddParam(start)
	fn.AddParam(object)
	s.storeHelpers[ty] = fn
	s.m.AddFunction(fn)

	bd := ir.NewBuilder(s.m)
	bd.Append(fn.Block)
	switch t := ty.(type) {
	case *ir.Matrix:
		for c := uint8(0); c < t.Columns; c++ {
			off := offsetData{constBytes: uint32(c) * t.ColumnStride(), exprs: []ir.Value{start}}
			byteIdx := s.materialize(bd, off)
			col := bd.Access(t.Column, object, s.constU32(uint32(c)))
			s.emitStore(bd, col.Result(), byteIdx)
		}
		bd.Return(fn, nil)
	case *ir.Struct:
		for i, mem := range t.Members {
			off := offsetData{constBytes: mem.Offset, exprs: []ir.Value{start}}
			byteIdx := s.materialize(bd, off)
			val := bd.Access(mem.Type, object, s.constU32(uint32(i)))
			s.emitStore(bd, val.Result(), byteIdx)
		}
		bd.Return(fn, nil)
	case *ir.Array:
		ir.Assert(!t.Count.Runtime(), "DecomposeAccess: cannot store a whole runtime-sized array")
		lo := s.constU32(0)
		hi := s.constU32(*t.Count.Constant)
		step := s.constU32(1)
		bd.LoopRange(lo, hi, step, s.m.Types.U32(), func(idx *ir.BlockParam, loop *ir.Instruction) {
			scaled := bd.Binary(ir.BinaryMultiply, s.m.Types.U32(), idx, s.constU32(t.ImplicitStride))
			off := offsetData{exprs: []ir.Value{start, scaled.Result()}}
			byteIdx := s.materialize(bd, off)
			elem := bd.Access(t.Elem, object, idx)
			s.emitStore(bd, elem.Result(), byteIdx)
			bd.Continue(loop)
		})
		bd.Return(fn, nil)
	}
	return fn
}

// ---- buffer builtins -----------------------------------------------------

// rewriteArrayLength replaces arrayLength(chain into var) with arithmetic
// over arrayLength(var): the rewritten variable's length is counted in base
// elements, so any byte prefix (struct offsets, bufferView offsets) is
// subtracted and the remainder divided by the original element stride.
func (s *decomposeState) rewriteArrayLength(inst *ir.Instruction, objTy ir.Type, off offsetData) {
	if ptr, ok := objTy.(*ir.Pointer); ok {
		objTy = ptr.StoreType
	}
	arr, ok := objTy.(*ir.Array)
	ir.Assert(ok && arr.Count.Runtime(), "DecomposeAccess: arrayLength target is not a runtime-sized array")
	ratio := arr.ImplicitStride / s.bs

	bd := ir.NewBuilder(s.m)
	bd.InsertBefore(inst)
	u32Ty := s.m.Types.U32()
	length := bd.CallBuiltin(ir.BuiltinFnArrayLength, []ir.Value{s.varInst.Result()}, u32Ty)

	var value ir.Value = length.Result()
	if off.constBytes != 0 || len(off.exprs) != 0 {
		var prefix ir.Value
		if len(off.exprs) != 0 {
			prefix = s.materialize(bd, off)
			prefix = bd.Binary(ir.BinaryDivide, u32Ty, prefix, s.constU32(s.bs)).Result()
		} else {
			prefix = s.constU32(off.constBytes / s.bs)
		}
		value = bd.Binary(ir.BinarySubtract, u32Ty, value, prefix).Result()
	}
	if ratio != 1 {
		value = bd.Binary(ir.BinaryDivide, u32Ty, value, s.constU32(ratio)).Result()
	}
	inst.Result().ReplaceAllUsesWith(value)
	inst.Destroy()
}

// rewriteBufferLength resolves a bufferLength call: a lower-limit second
// operand wins outright, a statically sized buffer becomes a constant, and a
// runtime-sized one becomes arrayLength(var) scaled back to bytes.
func (s *decomposeState) rewriteBufferLength(inst *ir.Instruction, call *ir.CoreBuiltinCall) {
	switch {
	case len(call.Args) > 1:
		inst.Result().ReplaceAllUsesWith(call.Args[1])
	case !hasRuntimeSize(s.varPtr.StoreType):
		inst.Result().ReplaceAllUsesWith(s.constU32(s.varPtr.StoreType.Size()))
	default:
		bd := ir.NewBuilder(s.m)
		bd.InsertBefore(inst)
		u32Ty := s.m.Types.U32()
		length := bd.CallBuiltin(ir.BuiltinFnArrayLength, []ir.Value{s.varInst.Result()}, u32Ty)
		scaled := bd.Binary(ir.BinaryMultiply, u32Ty, length.Result(), s.constU32(s.bs))
		inst.Result().ReplaceAllUsesWith(scaled.Result())
	}
	inst.Destroy()
}
