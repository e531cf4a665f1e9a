package ir

import (
	"fmt"
	"strings"
)

// disassembler assigns a stable %N name to every value the first time it is
// printed, then reuses it for every later reference — mirroring how naga's
// own disassembler numbers arena handles on first sight.
type disassembler struct {
	mod    *Module
	sb     strings.Builder
	names  map[Value]string
	blocks map[*Block]string
	next   int
	indent int
}

// Disassemble renders m as human-readable, line-oriented text: module-scope
// vars first, then each function's signature and block tree. The format is
// intended for debugging and golden-file tests, not for round-tripping.
func Disassemble(m *Module) string {
	d := &disassembler{
		mod:    m,
		names:  map[Value]string{},
		blocks: map[*Block]string{},
	}
	if !m.RootBlock.IsEmpty() {
		d.writeLine("$B0: { # root")
		d.indent++
		for i := m.RootBlock.Front(); i != nil; i = i.Next() {
			d.writeInstruction(i)
		}
		d.indent--
		d.writeLine("}")
		d.sb.WriteByte('\n')
	}
	for _, fn := range m.Functions {
		d.writeFunction(fn)
		d.sb.WriteByte('\n')
	}
	return d.sb.String()
}

func (d *disassembler) writeLine(format string, args ...any) {
	d.sb.WriteString(strings.Repeat("  ", d.indent))
	fmt.Fprintf(&d.sb, format, args...)
	d.sb.WriteByte('\n')
}

func (d *disassembler) nameOf(v Value) string {
	if v == nil {
		return "undef"
	}
	if f, ok := v.(*Function); ok {
		return "%" + f.FuncName
	}
	if n, ok := d.names[v]; ok {
		return n
	}
	if named := d.mod.NameOf(v); named != "" {
		d.names[v] = "%" + named
		return d.names[v]
	}
	if c, ok := v.(*Constant); ok {
		return constantLiteral(c)
	}
	d.next++
	n := fmt.Sprintf("%%%d", d.next)
	d.names[v] = n
	return n
}

func constantLiteral(c *Constant) string {
	switch val := c.Value.(type) {
	case ScalarConstant:
		return fmt.Sprintf("%s(%d)", c.Ty.String(), val.Bits)
	case CompositeConstant:
		parts := make([]string, len(val.Components))
		for i, comp := range val.Components {
			parts[i] = constantLiteral(comp)
		}
		return fmt.Sprintf("%s(%s)", c.Ty.String(), strings.Join(parts, ", "))
	default:
		return "<const>"
	}
}

func (d *disassembler) writeFunction(fn *Function) {
	params := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		d.names[p] = "%" + p.Name
		params[i] = fmt.Sprintf("%%%s:%s", p.Name, p.Ty.String())
	}
	attrs := ""
	switch fn.Stage {
	case StageCompute:
		attrs = "@compute "
	case StageVertex:
		attrs = "@vertex "
	case StageFragment:
		attrs = "@fragment "
	}
	if ws := fn.WorkgroupSize; ws != nil {
		attrs += fmt.Sprintf("@workgroup_size(%s, %s, %s) ", d.nameOf(ws.X), d.nameOf(ws.Y), d.nameOf(ws.Z))
	}
	d.writeLine("%%%s = %sfunc(%s):%s {", fn.FuncName, attrs, strings.Join(params, ", "), fn.RetType.String())
	d.indent++
	d.writeBlock(fn.Block)
	d.indent--
	d.writeLine("}")
}

func (d *disassembler) writeBlock(b *Block) {
	d.writeLine("$B%d: {", d.blockID(b))
	d.indent++
	for i := b.Front(); i != nil; i = i.Next() {
		d.writeInstruction(i)
	}
	d.indent--
	d.writeLine("}")
}

func (d *disassembler) blockID(b *Block) int {
	if id, ok := d.lookupBlockID(b); ok {
		return id
	}
	id := len(d.blocks) + 1
	d.blocks[b] = fmt.Sprintf("%d", id)
	return id
}

func (d *disassembler) lookupBlockID(b *Block) (int, bool) {
	s, ok := d.blocks[b]
	if !ok {
		return 0, false
	}
	var id int
	fmt.Sscanf(s, "%d", &id)
	return id, true
}

func (d *disassembler) resultPrefix(i *Instruction) string {
	if !i.HasResults() {
		return ""
	}
	names := make([]string, len(i.Results()))
	for idx, r := range i.Results() {
		names[idx] = fmt.Sprintf("%s:%s", d.nameOf(r), r.Ty.String())
	}
	return strings.Join(names, ", ") + " = "
}

func (d *disassembler) operandList(vals []Value) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = d.nameOf(v)
	}
	return strings.Join(parts, ", ")
}

func (d *disassembler) writeInstruction(i *Instruction) {
	switch k := i.Kind.(type) {
	case *If:
		d.writeLine("%sif %s [t: $B%d, f: $B%d]", d.resultPrefix(i), d.nameOf(k.Cond), len(d.blocks)+1, len(d.blocks)+2)
		d.indent++
		d.writeBlock(k.True)
		d.writeBlock(k.False)
		d.indent--
		return
	case *Switch:
		d.writeLine("%sswitch %s", d.resultPrefix(i), d.nameOf(k.Cond))
		d.indent++
		for _, c := range k.Cases {
			d.writeBlock(c.Block)
		}
		d.indent--
		return
	case *Loop:
		d.writeLine("%sloop", d.resultPrefix(i))
		d.indent++
		d.writeBlock(k.Initializer)
		d.writeBlock(&k.Body.Block)
		d.writeBlock(&k.Continuing.Block)
		d.indent--
		return
	}
	d.writeLine("%s%s %s", d.resultPrefix(i), i.Kind.Name(), d.operandList(i.Operands()))
}
