package ir

import "testing"

func TestReplaceAllUsesWith(t *testing.T) {
	m := NewModule()
	i32 := m.Types.Scalar(I32)

	a := &InstructionResult{Ty: i32}
	b := &InstructionResult{Ty: i32}

	load1 := NewInstruction(&Load{From: a})
	load1.SetResults(i32)
	a.addUse(Usage{Instruction: load1, OperandIndex: 0})

	load2 := NewInstruction(&Load{From: a})
	load2.SetResults(i32)
	a.addUse(Usage{Instruction: load2, OperandIndex: 0})

	if got := len(a.Uses()); got != 2 {
		t.Fatalf("a.Uses() len = %d, want 2", got)
	}

	a.ReplaceAllUsesWith(b)

	if got := len(a.Uses()); got != 0 {
		t.Fatalf("a.Uses() after replace len = %d, want 0", got)
	}
	if got := len(b.Uses()); got != 2 {
		t.Fatalf("b.Uses() after replace len = %d, want 2", got)
	}
	if load1.Kind.(*Load).From != b {
		t.Errorf("load1 still refers to a, not b")
	}
	if load2.Kind.(*Load).From != b {
		t.Errorf("load2 still refers to a, not b")
	}
}

func TestReplaceAllUsesWithFunc(t *testing.T) {
	m := NewModule()
	i32 := m.Types.Scalar(I32)

	a := &InstructionResult{Ty: i32}
	b1 := &InstructionResult{Ty: i32}
	b2 := &InstructionResult{Ty: i32}

	loads := make([]*Instruction, 3)
	for i := range loads {
		ld := NewInstruction(&Load{From: a})
		ld.SetResults(i32)
		a.addUse(Usage{Instruction: ld, OperandIndex: 0})
		loads[i] = ld
	}

	n := 0
	a.ReplaceAllUsesWithFunc(func(Usage) Value {
		n++
		if n%2 == 0 {
			return b2
		}
		return b1
	})

	if len(a.Uses()) != 0 {
		t.Fatalf("a still has uses after ReplaceAllUsesWithFunc")
	}
	if len(b1.Uses())+len(b2.Uses()) != 3 {
		t.Fatalf("expected 3 uses split across b1/b2, got %d+%d", len(b1.Uses()), len(b2.Uses()))
	}
}

func TestSetOperandMaintainsUseLists(t *testing.T) {
	m := NewModule()
	i32 := m.Types.Scalar(I32)

	a := &InstructionResult{Ty: i32}
	b := &InstructionResult{Ty: i32}

	inst := NewInstruction(&Unary{Op: UnaryNegate, Val: a})
	inst.SetResults(i32)
	inst.setOperandsFresh()

	if len(a.Uses()) != 1 {
		t.Fatalf("a.Uses() = %d, want 1", len(a.Uses()))
	}

	inst.SetOperand(0, b)

	if len(a.Uses()) != 0 {
		t.Errorf("a still has a use after SetOperand moved it away")
	}
	if len(b.Uses()) != 1 {
		t.Errorf("b did not gain a use after SetOperand")
	}
}
