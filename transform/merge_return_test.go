package transform

import (
	"testing"

	"github.com/gogpu/tir/ir"
	"github.com/gogpu/tir/validate"
)

// buildEarlyReturnFunction builds
//
//	fn f(x: bool): i32 { if x { return 1 } return 2 }
func buildEarlyReturnFunction(m *ir.Module) *ir.Function {
	i32 := m.Types.I32()
	fn := ir.NewFunction("f", i32)
	p := &ir.FunctionParam{Ty: m.Types.Bool(), Name: "x"}
	fn.AddParam(p)
	m.AddFunction(fn)

	bd := ir.NewBuilder(m)
	bd.Append(fn.Block)
	ifInst := bd.If(p)
	ifKind := ifInst.Kind.(*ir.If)

	bd.Push()
	bd.Append(ifKind.True)
	bd.Return(fn, bd.ConstantScalar(i32, ir.I32, 1))
	bd.Pop()

	bd.Push()
	bd.Append(ifKind.False)
	bd.ExitIf(ifInst)
	bd.Pop()

	bd.Return(fn, bd.ConstantScalar(i32, ir.I32, 2))
	return fn
}

func countReturns(fn *ir.Function) int {
	n := 0
	walkBlock(fn.Block, func(i *ir.Instruction) {
		if _, ok := i.Kind.(*ir.Return); ok {
			n++
		}
	})
	return n
}

func TestMergeReturnCollapsesEarlyReturns(t *testing.T) {
	m := ir.NewModule()
	fn := buildEarlyReturnFunction(m)

	res := MergeReturn(m, nil)
	if !res.Ok() {
		t.Fatalf("transform failed: %s", res.Error())
	}

	if got := countReturns(fn); got != 1 {
		t.Fatalf("returns after merge = %d, want 1", got)
	}

	// The single return must be the function's final top-level instruction,
	// loading the return_value local.
	term := fn.Block.TerminatorInst()
	ret, ok := term.Kind.(*ir.Return)
	if !ok {
		t.Fatalf("final instruction is %s, want return", term.Kind.Name())
	}
	retRes, ok := ret.Value.(*ir.InstructionResult)
	if !ok {
		t.Fatalf("merged return does not carry a loaded value")
	}
	if _, ok := retRes.SourceInstruction().Kind.(*ir.Load); !ok {
		t.Errorf("merged return value is not a load of return_value")
	}

	// continue_execution and return_value locals were introduced at the top.
	names := map[string]bool{}
	for i := fn.Block.Front(); i != nil; i = i.Next() {
		if _, ok := i.Kind.(*ir.Var); ok {
			names[m.NameOf(i.Result())] = true
		}
	}
	if !names["continue_execution"] || !names["return_value"] {
		t.Errorf("missing merge locals, got %v", names)
	}

	if res := validate.Validate(m, validate.DefaultCapabilities()); !res.Ok() {
		t.Fatalf("module does not validate after transform: %s", res.Error())
	}
}

func TestMergeReturnLeavesSingleReturnAlone(t *testing.T) {
	m := ir.NewModule()
	i32 := m.Types.I32()
	fn := ir.NewFunction("f", i32)
	m.AddFunction(fn)
	bd := ir.NewBuilder(m)
	bd.Append(fn.Block)
	bd.Return(fn, bd.ConstantScalar(i32, ir.I32, 7))

	res := MergeReturn(m, nil)
	if !res.Ok() {
		t.Fatalf("transform failed: %s", res.Error())
	}
	if fn.Block.Length() != 1 {
		t.Errorf("single-return function was rewritten, length = %d", fn.Block.Length())
	}
}
