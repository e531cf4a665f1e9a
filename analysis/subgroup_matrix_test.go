package analysis

import (
	"sort"
	"testing"

	"github.com/gogpu/tir/ir"
)

func sortedConfigs(set map[SubgroupMatrixConfig]struct{}) []SubgroupMatrixConfig {
	out := make([]SubgroupMatrixConfig, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		if a.Direction != b.Direction {
			return a.Direction < b.Direction
		}
		if a.M != b.M {
			return a.M < b.M
		}
		if a.N != b.N {
			return a.N < b.N
		}
		return a.K < b.K
	})
	return out
}

// declareMatrixVar emits a function-local var whose pointee is the given
// subgroup matrix type.
func declareMatrixVar(bd *ir.Builder, m *ir.Module, name string, mat *ir.SubgroupMatrix) *ir.Instruction {
	ptr := m.Types.Pointer(ir.SpaceFunction, mat, ir.AccessReadWrite)
	return bd.Var(name, ptr, nil)
}

func TestGatherConfigsFromVars(t *testing.T) {
	m := ir.NewModule()
	fn := ir.NewFunction("main", m.Types.Void())
	fn.Stage = ir.StageCompute
	m.AddFunction(fn)

	bd := ir.NewBuilder(m)
	bd.Append(fn.Block)
	declareMatrixVar(bd, m, "v1", m.Types.SubgroupMatrix(ir.SubgroupMatrixLeft, m.Types.F16(), 8, 8))
	declareMatrixVar(bd, m, "v2", m.Types.SubgroupMatrix(ir.SubgroupMatrixResult, m.Types.F16(), 32, 64))
	declareMatrixVar(bd, m, "v3", m.Types.SubgroupMatrix(ir.SubgroupMatrixRight, m.Types.F32(), 8, 8))
	declareMatrixVar(bd, m, "v1_dup", m.Types.SubgroupMatrix(ir.SubgroupMatrixLeft, m.Types.F16(), 8, 8))
	bd.Return(fn, nil)

	configs, multiplies := GatherSubgroupMatrixInfo(m)
	if len(multiplies) != 0 {
		t.Fatalf("multiplies = %d, want 0", len(multiplies))
	}
	if len(configs) != 3 {
		t.Fatalf("configs = %d, want 3 (v1_dup must dedupe)", len(configs))
	}

	cfgs := sortedConfigs(configs)
	want := []SubgroupMatrixConfig{
		{M: 8, K: 8, Type: ir.F16, Direction: DirectionLeft},
		{M: 64, N: 32, Type: ir.F16, Direction: DirectionResult},
		{N: 8, K: 8, Type: ir.F32, Direction: DirectionRight},
	}
	for i, w := range want {
		if cfgs[i] != w {
			t.Errorf("config[%d] = %+v, want %+v", i, cfgs[i], w)
		}
	}
}

func TestGatherMultiply(t *testing.T) {
	m := ir.NewModule()
	fn := ir.NewFunction("main", m.Types.Void())
	fn.Stage = ir.StageCompute
	m.AddFunction(fn)

	leftTy := m.Types.SubgroupMatrix(ir.SubgroupMatrixLeft, m.Types.F32(), 2, 8)
	rightTy := m.Types.SubgroupMatrix(ir.SubgroupMatrixRight, m.Types.F32(), 8, 2)
	resultTy := m.Types.SubgroupMatrix(ir.SubgroupMatrixResult, m.Types.F32(), 8, 8)

	bd := ir.NewBuilder(m)
	bd.Append(fn.Block)
	leftVar := declareMatrixVar(bd, m, "left", leftTy)
	left := bd.Load(leftVar.Result(), leftTy)
	rightVar := declareMatrixVar(bd, m, "right", rightTy)
	right := bd.Load(rightVar.Result(), rightTy)
	mul := bd.CallBuiltin(ir.BuiltinFnSubgroupMatrixMultiply, []ir.Value{left.Result(), right.Result()}, resultTy)
	bd.Let("result", mul.Result())
	bd.Return(fn, nil)

	configs, multiplies := GatherSubgroupMatrixInfo(m)

	if len(configs) != 3 {
		t.Fatalf("configs = %d, want 3 (left, right, result)", len(configs))
	}
	cfgs := sortedConfigs(configs)
	want := []SubgroupMatrixConfig{
		{M: 8, K: 2, Type: ir.F32, Direction: DirectionLeft},
		{N: 8, K: 2, Type: ir.F32, Direction: DirectionRight},
		{M: 8, N: 8, Type: ir.F32, Direction: DirectionResult},
	}
	for i, w := range want {
		if cfgs[i] != w {
			t.Errorf("config[%d] = %+v, want %+v", i, cfgs[i], w)
		}
	}

	if len(multiplies) != 1 {
		t.Fatalf("multiplies = %d, want 1", len(multiplies))
	}
	wantMul := SubgroupMatrixMultiply{M: 8, N: 8, K: 2, InputType: ir.F32, OutputType: ir.F32}
	if _, ok := multiplies[wantMul]; !ok {
		t.Errorf("multiplies missing %+v, got %+v", wantMul, multiplies)
	}
}

func TestGatherMultiplyAccumulateWideningTypes(t *testing.T) {
	m := ir.NewModule()
	fn := ir.NewFunction("main", m.Types.Void())
	fn.Stage = ir.StageCompute
	m.AddFunction(fn)

	leftTy := m.Types.SubgroupMatrix(ir.SubgroupMatrixLeft, m.Types.I8(), 2, 8)
	rightTy := m.Types.SubgroupMatrix(ir.SubgroupMatrixRight, m.Types.I8(), 8, 2)
	accTy := m.Types.SubgroupMatrix(ir.SubgroupMatrixResult, m.Types.I32(), 8, 8)

	bd := ir.NewBuilder(m)
	bd.Append(fn.Block)
	leftVar := declareMatrixVar(bd, m, "left", leftTy)
	left := bd.Load(leftVar.Result(), leftTy)
	rightVar := declareMatrixVar(bd, m, "right", rightTy)
	right := bd.Load(rightVar.Result(), rightTy)
	accVar := declareMatrixVar(bd, m, "acc", accTy)
	acc := bd.Load(accVar.Result(), accTy)
	mul := bd.CallBuiltin(ir.BuiltinFnSubgroupMatrixMultiplyAccumulate,
		[]ir.Value{left.Result(), right.Result(), acc.Result()}, accTy)
	bd.Let("result", mul.Result())
	bd.Return(fn, nil)

	_, multiplies := GatherSubgroupMatrixInfo(m)
	if len(multiplies) != 1 {
		t.Fatalf("multiplies = %d, want 1", len(multiplies))
	}
	wantMul := SubgroupMatrixMultiply{M: 8, N: 8, K: 2, InputType: ir.I8, OutputType: ir.I32}
	if _, ok := multiplies[wantMul]; !ok {
		t.Errorf("multiplies missing %+v, got %+v", wantMul, multiplies)
	}
}

func TestGatherConfigInControlFlowAndAggregates(t *testing.T) {
	m := ir.NewModule()
	fn := ir.NewFunction("main", m.Types.Void())
	fn.Stage = ir.StageCompute
	m.AddFunction(fn)

	matTy := m.Types.SubgroupMatrix(ir.SubgroupMatrixResult, m.Types.F16(), 8, 8)
	structTy := m.Types.Struct("S", ir.ComputeStructLayout([]string{"a"}, []ir.Type{matTy}))

	bd := ir.NewBuilder(m)
	bd.Append(fn.Block)
	trueC := bd.ConstantScalar(m.Types.Bool(), ir.Bool, 1)
	ifInst := bd.If(trueC)
	ifKind := ifInst.Kind.(*ir.If)

	bd.Push()
	bd.Append(ifKind.True)
	bd.Var("v", m.Types.Pointer(ir.SpaceFunction, structTy, ir.AccessReadWrite), nil)
	bd.ExitIf(ifInst)
	bd.Pop()

	bd.Push()
	bd.Append(ifKind.False)
	bd.ExitIf(ifInst)
	bd.Pop()

	bd.Return(fn, nil)

	configs, multiplies := GatherSubgroupMatrixInfo(m)
	if len(multiplies) != 0 {
		t.Fatalf("multiplies = %d, want 0", len(multiplies))
	}
	if len(configs) != 1 {
		t.Fatalf("configs = %d, want 1", len(configs))
	}
	want := SubgroupMatrixConfig{M: 8, N: 8, Type: ir.F16, Direction: DirectionResult}
	if _, ok := configs[want]; !ok {
		t.Errorf("configs missing %+v, got %+v", want, configs)
	}
}

func TestGatherConfigFromFunctionSignature(t *testing.T) {
	m := ir.NewModule()
	matTy := m.Types.SubgroupMatrix(ir.SubgroupMatrixLeft, m.Types.F32(), 8, 8)

	helper := ir.NewFunction("f", matTy)
	helper.AddParam(&ir.FunctionParam{Ty: matTy, Name: "p"})
	m.AddFunction(helper)
	bd := ir.NewBuilder(m)
	bd.Append(helper.Block)
	bd.Return(helper, helper.Params[0])

	configs, _ := GatherSubgroupMatrixInfo(m)
	if len(configs) != 1 {
		t.Fatalf("configs = %d, want 1", len(configs))
	}
	want := SubgroupMatrixConfig{M: 8, K: 8, Type: ir.F32, Direction: DirectionLeft}
	if _, ok := configs[want]; !ok {
		t.Errorf("configs missing %+v, got %+v", want, configs)
	}
}
