package ir

import (
	"strings"
	"testing"
)

func buildDisassemblyFixture() *Module {
	m := NewModule()
	i32 := m.Types.I32()

	bd := NewBuilder(m)
	bd.Append(m.RootBlock)
	g := bd.Var("counter", m.Types.Pointer(SpacePrivate, i32, AccessReadWrite), nil)

	fn := NewFunction("main", m.Types.Void())
	fn.Stage = StageCompute
	m.AddFunction(fn)
	bd.Append(fn.Block)
	ld := bd.Load(g.Result(), i32)
	sum := bd.Binary(BinaryAdd, i32, ld.Result(), bd.ConstantScalar(i32, I32, 1))
	bd.Store(g.Result(), sum.Result())
	bd.Return(fn, nil)
	return m
}

func TestDisassembleIsDeterministic(t *testing.T) {
	m := buildDisassemblyFixture()
	first := Disassemble(m)
	for i := 0; i < 5; i++ {
		if got := Disassemble(m); got != first {
			t.Fatalf("run %d differs:\n%s\n---\n%s", i, first, got)
		}
	}
}

func TestDisassembleShape(t *testing.T) {
	m := buildDisassemblyFixture()
	text := Disassemble(m)

	for _, want := range []string{
		"%main = @compute func():void {",
		"%counter",
		"load",
		"binary",
		"store",
		"return",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("disassembly missing %q:\n%s", want, text)
		}
	}
}

func TestDisassembleNamesValuesOnFirstSight(t *testing.T) {
	m := NewModule()
	i32 := m.Types.I32()
	fn := NewFunction("f", i32)
	m.AddFunction(fn)
	bd := NewBuilder(m)
	bd.Append(fn.Block)
	a := bd.Let("", bd.ConstantScalar(i32, I32, 1))
	b := bd.Binary(BinaryAdd, i32, a.Result(), a.Result())
	bd.Return(fn, b.Result())

	text := Disassemble(m)
	// The let's unnamed result gets a synthetic %N once and is reused for
	// both operands of the add.
	if !strings.Contains(text, "binary %1, %1") {
		t.Errorf("expected both add operands to reuse the first synthetic name:\n%s", text)
	}
}
