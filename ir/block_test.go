package ir

import "testing"

func newLoop() *Instruction {
	return NewInstruction(&Loop{
		Initializer: NewBlock(),
		Body:        NewMultiInBlock(),
		Continuing:  NewMultiInBlock(),
	})
}

func expectICE(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("%s: expected an ICE panic", name)
		}
		if _, ok := r.(*ICE); !ok {
			t.Fatalf("%s: panicked with %v, want *ICE", name, r)
		}
	}()
	fn()
}

func TestBlockListIntegrity(t *testing.T) {
	b := NewBlock()
	l1, l2, l3 := newLoop(), newLoop(), newLoop()
	b.Append(l1)
	b.Append(l2)
	b.Append(l3)

	if b.Length() != 3 {
		t.Fatalf("length = %d, want 3", b.Length())
	}
	if b.Front() != l1 {
		t.Errorf("front != l1")
	}
	if l1.Next() != l2 || l2.Next() != l3 || l3.Next() != nil {
		t.Errorf("next chain broken")
	}
	if l3.Prev() != l2 || l2.Prev() != l1 || l1.Prev() != nil {
		t.Errorf("prev chain broken")
	}
	for _, l := range []*Instruction{l1, l2, l3} {
		if l.Block() != b {
			t.Errorf("instruction block pointer does not match containing block")
		}
	}

	l4 := newLoop()
	b.InsertBefore(l3, l4)
	if b.Length() != 4 {
		t.Fatalf("length after insert = %d, want 4", b.Length())
	}
	want := []*Instruction{l1, l2, l4, l3}
	i := b.Front()
	for idx, w := range want {
		if i != w {
			t.Fatalf("position %d holds the wrong instruction", idx)
		}
		i = i.Next()
	}
}

func TestBlockPrependAndInsertAfter(t *testing.T) {
	b := NewBlock()
	l1, l2, l3 := newLoop(), newLoop(), newLoop()
	b.Append(l2)
	b.Prepend(l1)
	b.InsertAfter(l2, l3)

	if b.Front() != l1 || b.Back() != l3 || b.Length() != 3 {
		t.Fatalf("prepend/insert_after produced the wrong list shape")
	}
	if l1.Next() != l2 || l2.Next() != l3 {
		t.Errorf("chain order wrong after prepend/insert_after")
	}
}

func TestBlockReplaceKeepsNeighbors(t *testing.T) {
	b := NewBlock()
	l1, l2, l3 := newLoop(), newLoop(), newLoop()
	b.Append(l1)
	b.Append(l2)
	b.Append(l3)

	repl := newLoop()
	b.Replace(l2, repl)

	if b.Length() != 3 {
		t.Errorf("length changed across replace")
	}
	if l1.Next() != repl || repl.Next() != l3 || l3.Prev() != repl {
		t.Errorf("replace did not splice correctly")
	}
	if l2.Block() != nil || l2.Next() != nil || l2.Prev() != nil {
		t.Errorf("replaced instruction was not fully detached")
	}
	if !l2.Alive() {
		t.Errorf("replace must not destroy the target")
	}
}

func TestBlockRemove(t *testing.T) {
	b := NewBlock()
	l1, l2 := newLoop(), newLoop()
	b.Append(l1)
	b.Append(l2)

	b.Remove(l1)
	if b.Length() != 1 || b.Front() != l2 || l2.Prev() != nil {
		t.Errorf("remove of the front instruction left a broken list")
	}
	if l1.Block() != nil {
		t.Errorf("removed instruction still claims a block")
	}
	// A removed instruction is reusable: re-append.
	b.Append(l1)
	if b.Back() != l1 || b.Length() != 2 {
		t.Errorf("re-append after remove failed")
	}
}

func TestBlockInsertPreconditions(t *testing.T) {
	b := NewBlock()
	other := NewBlock()
	l1 := newLoop()
	b.Append(l1)

	expectICE(t, "append attached", func() { other.Append(l1) })
	expectICE(t, "append nil", func() { b.Append(nil) })
	expectICE(t, "remove from wrong block", func() { other.Remove(l1) })
	expectICE(t, "insert before foreign anchor", func() { other.InsertBefore(l1, newLoop()) })
	expectICE(t, "insert attached before anchor", func() {
		l2 := newLoop()
		b.Append(l2)
		b.InsertBefore(l1, l2)
	})
}

func TestDestroyRequiresZeroUses(t *testing.T) {
	m := NewModule()
	i32 := m.Types.I32()

	def := NewInstruction(&Let{Val: &Constant{Ty: i32, Value: ScalarConstant{Kind: I32, Bits: 1}}})
	def.SetResults(i32)
	def.setOperandsFresh()

	user := NewInstruction(&Unary{Op: UnaryNegate, Val: def.Result()})
	user.SetResults(i32)
	user.setOperandsFresh()

	expectICE(t, "destroy with live uses", func() { def.Destroy() })

	user.Destroy()
	def.Destroy()
	if def.Alive() {
		t.Errorf("destroyed instruction still alive")
	}
}

func TestDestroyedInstructionUnregistersOperands(t *testing.T) {
	m := NewModule()
	i32 := m.Types.I32()

	c := &Constant{Ty: i32, Value: ScalarConstant{Kind: I32, Bits: 3}}
	let := NewInstruction(&Let{Val: c})
	let.SetResults(i32)
	let.setOperandsFresh()

	if len(c.Uses()) != 1 {
		t.Fatalf("constant has %d uses, want 1", len(c.Uses()))
	}
	let.Destroy()
	if len(c.Uses()) != 0 {
		t.Errorf("destroyed instruction's operand use was not unregistered")
	}
}

func TestMultiInBlockParamsAndBranches(t *testing.T) {
	m := NewModule()
	bd := NewBuilder(m)

	fn := NewFunction("f", m.Types.Void())
	m.AddFunction(fn)
	bd.Append(fn.Block)

	loopInst := bd.Loop()
	loop := loopInst.Kind.(*Loop)
	p := &BlockParam{Ty: m.Types.U32(), Name: "idx"}
	loop.Body.AddParam(p)

	bd.Push()
	bd.Append(loop.Initializer)
	zero := bd.ConstantScalar(m.Types.U32(), U32, 0)
	entry := bd.NextIteration(loopInst, zero)
	loop.Body.RegisterInboundBranch(entry)
	bd.Pop()

	if len(loop.Body.Params) != 1 || loop.Body.Params[0] != p {
		t.Errorf("body params not recorded")
	}
	if len(loop.Body.InboundSiblingBranches) != 1 || loop.Body.InboundSiblingBranches[0] != entry {
		t.Errorf("inbound branch not registered")
	}
	if loop.Body.Parent() != loopInst.Kind {
		t.Errorf("body parent does not point at the loop")
	}
}
