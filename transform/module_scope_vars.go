package transform

import (
	"fmt"

	"github.com/gogpu/tir/ir"
	"github.com/gogpu/tir/validate"
)

// ModuleScopeVars merges every module-scope variable into a single
// synthesized struct. Entry points declare a local instance of the struct
// and pass it down to every function transitively reachable from them that
// touches a module-scope variable, as an added first parameter; every use
// of an original module-scope variable becomes an access chain into
// whichever function's struct handle reaches that use site. Backends with
// no notion of a free-standing global (several HLSL/MSL lowerings) need
// this shape.
func ModuleScopeVars(m *ir.Module, caps *validate.Capabilities) Result {
	var varInsts []*ir.Instruction
	for i := m.RootBlock.Front(); i != nil; i = i.Next() {
		if _, ok := i.Kind.(*ir.Var); ok {
			varInsts = append(varInsts, i)
		}
	}
	if len(varInsts) == 0 {
		return Result{}
	}

	varSet := map[*ir.Instruction]bool{}
	names := make([]string, len(varInsts))
	types := make([]ir.Type, len(varInsts))
	memberIndex := map[*ir.Instruction]int{}
	for idx, v := range varInsts {
		varSet[v] = true
		ptr := v.Result().Ty.(*ir.Pointer)
		name := m.NameOf(v.Result())
		if name == "" {
			name = fmt.Sprintf("module_var%d", idx)
		}
		names[idx] = name
		types[idx] = ptr.StoreType
		memberIndex[v] = idx
	}
	members := ir.ComputeStructLayout(names, types)
	structTy := m.Types.Struct("ModuleScopeVars", members)
	structPtrTy := m.Types.Pointer(ir.SpacePrivate, structTy, ir.AccessReadWrite)

	instFn := map[*ir.Instruction]*ir.Function{}
	for _, fn := range m.Functions {
		walkBlock(fn.Block, func(i *ir.Instruction) { instFn[i] = fn })
	}

	graph := callGraph(m)
	reverse := map[*ir.Function]map[*ir.Function]bool{}
	for caller, callees := range graph {
		for callee := range callees {
			if reverse[callee] == nil {
				reverse[callee] = map[*ir.Function]bool{}
			}
			reverse[callee][caller] = true
		}
	}

	needsStruct := map[*ir.Function]bool{}
	var markAncestors func(*ir.Function)
	markAncestors = func(f *ir.Function) {
		if needsStruct[f] {
			return
		}
		needsStruct[f] = true
		for caller := range reverse[f] {
			markAncestors(caller)
		}
	}
	for _, fn := range m.Functions {
		if functionUsesAny(fn, varSet) {
			markAncestors(fn)
		}
	}
	if len(needsStruct) == 0 {
		return Result{}
	}

	structHandle := map[*ir.Function]ir.Value{}
	for fn := range needsStruct {
		if fn.IsEntryPoint() {
			bd := ir.NewBuilder(m)
			if front := fn.Block.Front(); front != nil {
				bd.InsertBefore(front)
			} else {
				bd.Append(fn.Block)
			}
			local := bd.Var("module_scope", structPtrTy, nil)
			structHandle[fn] = local.Result()
		} else {
			p := &ir.FunctionParam{Ty: structPtrTy, Name: "module_scope"}
			fn.Params = append([]*ir.FunctionParam{p}, fn.Params...)
			structHandle[fn] = p
		}
	}

	for fn := range needsStruct {
		rewriteModuleScopeCallSites(m, fn, needsStruct, structHandle)
	}

	for _, v := range varInsts {
		rewriteModuleScopeVarUses(m, v, memberIndex[v], types[memberIndex[v]], structHandle, instFn)
	}

	for _, v := range varInsts {
		if len(v.Result().Uses()) == 0 {
			v.Destroy()
		}
	}

	return Result{}
}

func functionUsesAny(fn *ir.Function, varSet map[*ir.Instruction]bool) bool {
	used := false
	walkBlock(fn.Block, func(i *ir.Instruction) {
		for _, op := range i.Operands() {
			if res, ok := op.(*ir.InstructionResult); ok && varSet[res.SourceInstruction()] {
				used = true
			}
		}
	})
	return used
}

func rewriteModuleScopeCallSites(m *ir.Module, fn *ir.Function, needsStruct map[*ir.Function]bool, structHandle map[*ir.Function]ir.Value) {
	handle := structHandle[fn]
	walkBlock(fn.Block, func(i *ir.Instruction) {
		call, ok := i.Kind.(*ir.UserCall)
		if !ok || !needsStruct[call.Target] {
			return
		}
		newArgs := make([]ir.Value, 0, len(call.Args)+1)
		newArgs = append(newArgs, handle)
		newArgs = append(newArgs, call.Args...)

		bd := ir.NewBuilder(m)
		bd.InsertBefore(i)
		newCall := bd.Call(call.Target, newArgs...)
		if i.HasResults() {
			i.Result().ReplaceAllUsesWith(newCall.Result())
		}
		i.Destroy()
	})
}

// rewriteModuleScopeVarUses redirects every use of v's result to an access
// chain into whichever function's struct handle reaches that use site, one
// Access per function (cached, and inserted before the first use
// encountered in that function).
func rewriteModuleScopeVarUses(m *ir.Module, v *ir.Instruction, idx int, memberTy ir.Type, structHandle map[*ir.Function]ir.Value, instFn map[*ir.Instruction]*ir.Function) {
	priorUses := v.Result().Uses()
	accessCache := map[*ir.Function]ir.Value{}
	for _, u := range priorUses {
		fn := instFn[u.Instruction]
		handle := structHandle[fn]
		acc, ok := accessCache[fn]
		if !ok {
			ptrTy := handle.Type().(*ir.Pointer)
			bd := ir.NewBuilder(m)
			bd.InsertBefore(u.Instruction)
			idxConst := bd.ConstantScalar(m.Types.U32(), ir.U32, uint64(idx))
			memberPtrTy := m.Types.Pointer(ptrTy.Space, memberTy, ptrTy.AccessCtl)
			accInst := bd.Access(memberPtrTy, handle, idxConst)
			acc = accInst.Result()
			accessCache[fn] = acc
		}
		u.Instruction.SetOperand(u.OperandIndex, acc)
	}
}
