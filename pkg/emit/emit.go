// Package emit drives the post-check pipeline: scan the flat TAC
// instruction list once, run CFG-build/liveness/allocation at each
// function's EndFunc, then hand the whole stream to a target renderer.
//
// The driver gates emission on zero reported errors rather than
// emitting best-effort output over a program the checker already
// rejected; see DESIGN.md for that decision.
package emit

import (
	"fmt"
	"strings"

	"github.com/decafc/decafc/pkg/cfg"
	"github.com/decafc/decafc/pkg/diag"
	"github.com/decafc/decafc/pkg/regalloc"
	"github.com/decafc/decafc/pkg/tac"
	"github.com/decafc/decafc/pkg/target"
)

// Format selects the driver's output form.
type Format int

const (
	FormatTAC Format = iota
	FormatQBE
	FormatAsm
)

// NumRegisters is the register pool size NewDriver starts a Driver
// with; cmd/decafc replaces it with the -registers value (default
// config.DefaultRegisters).
const NumRegisters = 8

// Driver runs the post-check pipeline over one program's TAC stream.
type Driver struct {
	Reporter  diag.Reporter
	NumColors int

	// GOOS/GOARCH override the host libqbe target FormatAsm assembles
	// for, when both are set; otherwise the host's own values are used.
	GOOS, GOARCH string
}

func NewDriver(reporter diag.Reporter) *Driver {
	return &Driver{Reporter: reporter, NumColors: NumRegisters}
}

// Run scans instrs once: whenever a BeginFunc is seen,
// CFG-build/liveness/allocation run at the matching EndFunc; the
// result is fed to the requested Format's renderer. It returns an error
// -- rather than emitting -- when the reporter has already recorded a
// user error.
func (d *Driver) Run(instrs []tac.Instruction, format Format) (string, error) {
	if d.Reporter.HasErrors() {
		return "", fmt.Errorf("emit: refusing to emit output for a program with %d reported error(s)", d.Reporter.Count())
	}

	ranges := cfg.FunctionRanges(instrs)
	allocations := make([]target.FunctionAllocation, 0, len(ranges))
	for _, rng := range ranges {
		body := instrs[rng[0] : rng[1]]
		g := cfg.Build(body)
		colors := regalloc.Allocate(g, d.NumColors)
		allocations = append(allocations, target.FunctionAllocation{Range: rng, Colors: colors})
	}

	switch format {
	case FormatTAC:
		return PrettyPrint(instrs), nil
	case FormatQBE:
		return target.RenderIL(instrs, allocations), nil
	case FormatAsm:
		il := target.RenderIL(instrs, allocations)
		backend := target.NewBackend()
		if d.GOOS != "" && d.GOARCH != "" {
			backend = target.NewBackendForTarget(d.GOOS, d.GOARCH)
		}
		asm, err := backend.Assemble(il)
		if err != nil {
			return "", err
		}
		return asm.String(), nil
	}
	return "", fmt.Errorf("emit: unknown format %v", format)
}

// PrettyPrint renders instrs as a textual TAC listing for the
// -dump-tac/-emit=tac debug switches: one instruction per line, in
// emission order, indented except for labels and vtables.
func PrettyPrint(instrs []tac.Instruction) string {
	var b strings.Builder
	for _, instr := range instrs {
		switch instr.(type) {
		case *tac.Label, *tac.VTable:
			b.WriteString(instr.String())
		default:
			b.WriteString("\t" + instr.String())
		}
		b.WriteByte('\n')
	}
	return b.String()
}
