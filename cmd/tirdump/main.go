// Command tirdump is a debugging aid for the tir transform pipeline.
//
// It builds a demonstration module with the library builder, validates it,
// runs a caller-selected transform pipeline over it, and prints the
// disassembly before and after. With no shader reader in this module, the
// canned input stands in for what a WGSL or SPIR-V front end would produce.
//
// Usage:
//
//	tirdump [options]
//
// Examples:
//
//	tirdump                                   # validate + default pipeline
//	tirdump -passes decompose_access,value_to_let
//	tirdump -caps allow16bit -no-dump
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/gogpu/tir/ir"
	"github.com/gogpu/tir/transform"
	"github.com/gogpu/tir/validate"
)

var (
	passesFlag = flag.String("passes", "decompose_access,merge_return,value_to_let,add_empty_entry_point", "comma-separated pass list")
	capsFlag   = flag.String("caps", "", "comma-separated capability list (allow8bit, allow16bit, allowdup, allownoncore, allowoverrides, allowresource)")
	noDump     = flag.Bool("no-dump", false, "suppress disassembly output")
)

func main() {
	flag.Usage = usage
	flag.Parse()

	caps, err := parseCaps(*capsFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	pipeline, err := parsePipeline(*passesFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	m := buildDemoModule()

	if res := validate.Validate(m, caps); !res.Ok() {
		fmt.Fprintf(os.Stderr, "Input module does not validate:\n%s\n", res.Dump(m))
		os.Exit(1)
	}
	if !*noDump {
		fmt.Println("=== input ===")
		fmt.Print(ir.Disassemble(m))
	}

	if res := pipeline.Run(m, caps); !res.Ok() {
		fmt.Fprintf(os.Stderr, "Pipeline failed:\n%s\n", res.Dump(m))
		os.Exit(1)
	}
	if res := validate.Validate(m, caps.With(validate.Allow16BitIntegers|validate.AllowNonCoreTypes)); !res.Ok() {
		fmt.Fprintf(os.Stderr, "Output module does not validate:\n%s\n", res.Dump(m))
		os.Exit(1)
	}

	if !*noDump {
		fmt.Println("=== output ===")
		fmt.Print(ir.Disassemble(m))
	}
}

func parseCaps(s string) (validate.Capabilities, error) {
	caps := validate.DefaultCapabilities()
	if s == "" {
		return caps, nil
	}
	for _, name := range strings.Split(s, ",") {
		switch strings.TrimSpace(name) {
		case "allow8bit":
			caps = caps.With(validate.Allow8BitIntegers)
		case "allow16bit":
			caps = caps.With(validate.Allow16BitIntegers)
		case "allowdup":
			caps = caps.With(validate.AllowDuplicateBindings)
		case "allownoncore":
			caps = caps.With(validate.AllowNonCoreTypes)
		case "allowoverrides":
			caps = caps.With(validate.AllowOverrides)
		case "allowresource":
			caps = caps.With(validate.AllowResourceBinding)
		default:
			return 0, fmt.Errorf("unknown capability %q", name)
		}
	}
	return caps, nil
}

func parsePipeline(s string) (transform.Pipeline, error) {
	var p transform.Pipeline
	for _, name := range strings.Split(s, ",") {
		name = strings.TrimSpace(name)
		switch name {
		case "decompose_access":
			p = append(p, transform.Pass{
				Name: name,
				Run:  transform.DecomposeAccess(transform.DecomposeAccessConfig{Uniform: true, Storage: true}),
			})
		case "demote_to_helper":
			p = append(p, transform.Pass{Name: name, Run: transform.DemoteToHelper})
		case "merge_return":
			p = append(p, transform.Pass{Name: name, Run: transform.MergeReturn})
		case "handle_matrix_arithmetic":
			p = append(p, transform.Pass{Name: name, Run: transform.HandleMatrixArithmetic})
		case "preserve_padding":
			p = append(p, transform.Pass{Name: name, Run: transform.PreservePadding})
		case "combine_access_instructions":
			p = append(p, transform.Pass{Name: name, Run: transform.CombineAccessInstructions})
		case "bgra8unorm_polyfill":
			p = append(p, transform.Pass{Name: name, Run: transform.Bgra8UnormPolyfill})
		case "value_to_let":
			p = append(p, transform.Pass{Name: name, Run: transform.ValueToLet})
		case "module_scope_vars":
			p = append(p, transform.Pass{Name: name, Run: transform.ModuleScopeVars})
		case "add_empty_entry_point":
			p = append(p, transform.Pass{Name: name, Run: transform.AddEmptyEntryPoint})
		case "":
		default:
			return nil, fmt.Errorf("unknown pass %q", name)
		}
	}
	return p, nil
}

// buildDemoModule assembles a small compute shader that exercises the
// default pipeline: a uniform matrix, a storage scalar, an access chain and
// a final return.
func buildDemoModule() *ir.Module {
	m := ir.NewModule()
	f32 := m.Types.F32()
	matTy := m.Types.Matrix(f32, 4, 4)

	bd := ir.NewBuilder(m)
	bd.Append(m.RootBlock)
	matVar := bd.Var("transform", m.Types.Pointer(ir.SpaceUniform, matTy, ir.AccessRead), nil)
	matVar.Kind.(*ir.Var).BindingAttr = &ir.BindingPoint{Group: 0, Binding: 0}
	outVar := bd.Var("output", m.Types.Pointer(ir.SpaceStorage, f32, ir.AccessReadWrite), nil)
	outVar.Kind.(*ir.Var).BindingAttr = &ir.BindingPoint{Group: 0, Binding: 1}

	fn := ir.NewFunction("main", m.Types.Void())
	fn.Stage = ir.StageCompute
	one := &ir.Constant{Ty: m.Types.U32(), Value: ir.ScalarConstant{Kind: ir.U32, Bits: 1}}
	fn.WorkgroupSize = &ir.WorkgroupSize{X: one, Y: one, Z: one}
	m.AddFunction(fn)

	bd.Append(fn.Block)
	mat := bd.Load(matVar.Result(), matTy)
	col := bd.Access(m.Types.Vector(f32, 4), mat.Result(), bd.ConstantScalar(m.Types.U32(), ir.U32, 0))
	lane := bd.Access(f32, col.Result(), bd.ConstantScalar(m.Types.U32(), ir.U32, 0))
	bd.Store(outVar.Result(), lane.Result())
	bd.Return(fn, nil)
	return m
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: tirdump [options]\n\n")
	fmt.Fprintf(os.Stderr, "Options:\n")
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr, "\nExamples:\n")
	fmt.Fprintf(os.Stderr, "  tirdump                                  Validate and run the default pipeline\n")
	fmt.Fprintf(os.Stderr, "  tirdump -passes decompose_access         Run a single pass\n")
	fmt.Fprintf(os.Stderr, "  tirdump -caps allow16bit -no-dump        Grant capabilities, quiet output\n")
}
