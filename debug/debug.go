// Package debug pretty-prints simulator and assembler state for the
// cmd/rvsim CLI: a simulator Snapshot, a decoded instruction, or an
// assembled Object.
package debug

import (
	"fmt"
	"io"
	"os"

	"github.com/k0kubun/pp/v3"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"rv32sim/asm"
	"rv32sim/core"
	"rv32sim/decode"
	"rv32sim/sim"
)

// Printer writes to w, using pp for structured dumps of decoded
// instructions; snapshots and objects are formatted with fmt. Color is a package-global switch in pp, so
// NewPrinter flips it once per Printer based on whether w is a terminal —
// fine for a single-command-per-process CLI like rvsim.
type Printer struct {
	w io.Writer
}

// NewPrinter builds a Printer writing to w. If w is *os.File and a
// terminal, ANSI color is enabled via go-colorable; otherwise pp's
// coloring is disabled.
func NewPrinter(w io.Writer) *Printer {
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		pp.ColoringEnabled = true
		w = colorable.NewColorable(f)
	} else {
		pp.ColoringEnabled = false
	}
	return &Printer{w: w}
}

// Snapshot pretty-prints a simulator snapshot: PC, state, halt reason,
// every register's value annotated with its ABI name, and recent trace.
func (p *Printer) Snapshot(s sim.Snapshot) {
	fmt.Fprintf(p.w, "state: %s", s.State)
	if s.State == sim.Halted {
		fmt.Fprintf(p.w, " (%s)", s.HaltReason)
	}
	fmt.Fprintf(p.w, "  pc=0x%08x  instructions=%d\n", s.PC, s.InstructionsExecuted)
	if s.Err != nil {
		fmt.Fprintf(p.w, "error: %v\n", s.Err)
	}

	meta := core.RegisterMetadata()
	for i, v := range s.Registers {
		fmt.Fprintf(p.w, "  x%-2d %-5s = 0x%08x (%d)\n", i, meta[i].ABI, v, int32(v))
	}

	if len(s.RecentTrace) > 0 {
		fmt.Fprintln(p.w, "trace:")
		for _, t := range s.RecentTrace {
			fmt.Fprintf(p.w, "  0x%08x: %-8s (word=0x%08x)\n", t.PC, t.Mnemonic, t.Word)
		}
	}
}

// Decoded pretty-prints one decoded instruction via pp, for inspecting a
// single word without running anything.
func (p *Printer) Decoded(d decode.Decoded) {
	pp.Fprintln(p.w, d)
}

// Object pretty-prints an assembled object file's structure: code size,
// exported globals, extern references, and pending relocations.
func (p *Printer) Object(o *asm.Object) {
	fmt.Fprintf(p.w, "object %q: %d bytes of code\n", o.Name, len(o.Code))
	if len(o.Globals) > 0 {
		fmt.Fprintln(p.w, "globals:")
		for _, g := range o.Globals {
			fmt.Fprintf(p.w, "  %-16s 0x%08x\n", g.Name, g.Value)
		}
	}
	if len(o.Externs) > 0 {
		fmt.Fprintln(p.w, "externs:")
		for _, e := range o.Externs {
			fmt.Fprintf(p.w, "  %s\n", e)
		}
	}
	if len(o.Relocations) > 0 {
		fmt.Fprintln(p.w, "relocations:")
		for _, r := range o.Relocations {
			fmt.Fprintf(p.w, "  +0x%04x -> %-16s (%s)\n", r.Offset, r.Symbol, relocTypeName(r.Type))
		}
	}
}

func relocTypeName(t asm.RelocationType) string {
	switch t {
	case asm.RelocAbsolute:
		return "absolute"
	case asm.RelocRelative:
		return "relative"
	default:
		return "unknown"
	}
}
