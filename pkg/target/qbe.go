// Package target renders an allocated TAC instruction stream into QBE's
// textual intermediate language and drives the vendored QBE backend to
// produce target assembly, the way the pkg/codegen renders
// its own SSA IR to QBE IL and calls modernc.org/libqbe.Main. QBE
// performs its own register allocation over the IL it is given, so
// pkg/regalloc's coloring is not required for correctness here -- it is
// carried through in FunctionAllocation, which RenderIL does not read,
// and is the piece a native, non-QBE assembly backend would consume
// directly.
package target

import (
	"bytes"
	"fmt"
	"runtime"
	"strings"

	"modernc.org/libqbe"

	"github.com/decafc/decafc/pkg/regalloc"
	"github.com/decafc/decafc/pkg/tac"
)

// Backend renders and assembles one compilation unit's worth of TAC.
type Backend struct {
	qbeTarget string
}

// NewBackend resolves the libqbe target for the host's GOOS/GOARCH.
func NewBackend() *Backend {
	return &Backend{qbeTarget: libqbe.DefaultTarget(runtime.GOOS, runtime.GOARCH)}
}

// NewBackendForTarget resolves the libqbe target for an explicit
// goos/goarch pair, for the -target override cmd/decafc exposes;
// libqbe.DefaultTarget already takes exactly this pair.
func NewBackendForTarget(goos, goarch string) *Backend {
	return &Backend{qbeTarget: libqbe.DefaultTarget(goos, goarch)}
}

// FunctionAllocation pairs one function's instruction range with its
// register-allocation result, produced by the emission driver.
type FunctionAllocation struct {
	Range  [2]int
	Colors regalloc.Result
}

// RenderIL renders instrs (the full program's flat TAC stream) plus its
// per-function allocations into QBE textual IL. Each BeginFunc/EndFunc
// range becomes one QBE function, in which every Location, frame- or
// global-relative, is rendered as a QBE temporary; VTable instructions
// outside functions become QBE data definitions, and no data items are
// emitted for global variables.
func RenderIL(instrs []tac.Instruction, allocations []FunctionAllocation) string {
	r := &renderer{instrs: instrs}
	inFunc := make([]bool, len(instrs))
	for _, a := range allocations {
		for i := a.Range[0]; i < a.Range[1]; i++ {
			inFunc[i] = true
		}
	}

	var out strings.Builder
	for _, a := range allocations {
		out.WriteString(r.renderFunction(a))
	}
	for i, instr := range instrs {
		if inFunc[i] {
			continue
		}
		if vt, ok := instr.(*tac.VTable); ok {
			out.WriteString(r.renderVTable(vt))
		}
	}
	return out.String()
}

// Assemble invokes the vendored QBE backend on qbeIL and returns the
// resulting target assembly text.
func (b *Backend) Assemble(qbeIL string) (*bytes.Buffer, error) {
	var asm bytes.Buffer
	if err := libqbe.Main(b.qbeTarget, "decafc.ssa", strings.NewReader(qbeIL), &asm, nil); err != nil {
		return nil, fmt.Errorf("libqbe: %w\n--- generated IL ---\n%s", err, qbeIL)
	}
	return &asm, nil
}

type renderer struct {
	instrs []tac.Instruction
	names  map[*tac.Location]string
	next   int
}

func (r *renderer) name(loc *tac.Location) string {
	if r.names == nil {
		r.names = make(map[*tac.Location]string)
	}
	if n, ok := r.names[loc]; ok {
		return n
	}
	n := fmt.Sprintf("%%v%d", r.next)
	r.next++
	r.names[loc] = n
	return n
}

func (r *renderer) renderFunction(a FunctionAllocation) string {
	begin, end := a.Range[0], a.Range[1]
	label := r.instrs[begin-1].(*tac.Label).Name
	var b strings.Builder
	fmt.Fprintf(&b, "export function w $%s() {\n@start\n", qbeSym(label))

	var pending []*tac.Location
	for i := begin + 1; i < end-1; i++ {
		switch instr := r.instrs[i].(type) {
		case *tac.Label:
			fmt.Fprintf(&b, "@%s\n", qbeSym(instr.Name))
		case *tac.LoadConst:
			fmt.Fprintf(&b, "\t%s =w copy %d\n", r.name(instr.Dst), instr.Value)
		case *tac.LoadStringConst:
			fmt.Fprintf(&b, "\t%s =l copy $%s\n", r.name(instr.Dst), qbeSym(instr.Dst.Name))
		case *tac.LoadLabel:
			fmt.Fprintf(&b, "\t%s =l copy $%s\n", r.name(instr.Dst), qbeSym(instr.Label))
		case *tac.Assign:
			fmt.Fprintf(&b, "\t%s =w copy %s\n", r.name(instr.Dst), r.name(instr.Src))
		case *tac.Load:
			fmt.Fprintf(&b, "\t%s =w loadw %s\n", r.name(instr.Dst), addrExpr(r, instr.Src, instr.Offset))
		case *tac.Store:
			fmt.Fprintf(&b, "\tstorew %s, %s\n", r.name(instr.Src), addrExpr(r, instr.Dst, instr.Offset))
		case *tac.BinOp:
			fmt.Fprintf(&b, "\t%s =w %s %s, %s\n", r.name(instr.Dst), qbeOp(instr.Op), r.name(instr.Op1), r.name(instr.Op2))
		case *tac.Goto:
			fmt.Fprintf(&b, "\tjmp @%s\n", qbeSym(instr.Target))
		case *tac.IfZ:
			fallLabel := fmt.Sprintf("fall%d", i)
			fmt.Fprintf(&b, "\tjnz %s, @%s, @%s\n", r.name(instr.Test), fallLabel, qbeSym(instr.Target))
			fmt.Fprintf(&b, "@%s\n", fallLabel)
		case *tac.PushParam:
			pending = append(pending, instr.Param)
		case *tac.PopParams:
			// Arguments are consumed at the call site; nothing to emit.
		case *tac.LCall:
			b.WriteString(renderCall(r, instr.Dst, "$"+qbeSym(instr.Label), pending))
			pending = nil
		case *tac.ACall:
			b.WriteString(renderCall(r, instr.Dst, r.name(instr.MethodAddr), pending))
			pending = nil
		case *tac.Return:
			if instr.Val == nil {
				b.WriteString("\tret\n")
			} else {
				fmt.Fprintf(&b, "\tret %s\n", r.name(instr.Val))
			}
		}
	}
	b.WriteString("\tret\n}\n")
	return b.String()
}

func renderCall(r *renderer, dst *tac.Location, target string, args []*tac.Location) string {
	var b strings.Builder
	argList := make([]string, len(args))
	for i, a := range args {
		argList[i] = "w " + r.name(a)
	}
	if dst != nil {
		fmt.Fprintf(&b, "\t%s =w call %s(%s)\n", r.name(dst), target, strings.Join(argList, ", "))
	} else {
		fmt.Fprintf(&b, "\tcall %s(%s)\n", target, strings.Join(argList, ", "))
	}
	return b.String()
}

func addrExpr(r *renderer, base *tac.Location, offset int64) string {
	if offset == 0 {
		return r.name(base)
	}
	return fmt.Sprintf("%s+%d", r.name(base), offset)
}

func (r *renderer) renderVTable(vt *tac.VTable) string {
	var b strings.Builder
	fmt.Fprintf(&b, "data $%s = { ", qbeSym(vt.Label))
	for _, m := range vt.MethodLabels {
		fmt.Fprintf(&b, "l $%s, ", qbeSym(m))
	}
	b.WriteString("}\n")
	return b.String()
}

// qbeSym strips the leading underscore this compiler's label naming
// convention uses, since QBE symbol names are not required to carry it
// and a bare "$_Foo" reads oddly next to QBE's own convention of user
// symbols without a leading underscore.
func qbeSym(name string) string { return strings.TrimPrefix(name, "_") }

func qbeOp(op string) string {
	switch op {
	case "+":
		return "add"
	case "-":
		return "sub"
	case "*":
		return "mul"
	case "/":
		return "div"
	case "%":
		return "rem"
	case "<":
		return "csltw"
	case ">":
		return "csgtw"
	case "==":
		return "ceqw"
	case "&&":
		return "and"
	case "||":
		return "or"
	default:
		return op
	}
}
