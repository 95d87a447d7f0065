// Package link combines several assembled Objects into one flat, loadable
// binary by resolving each object's extern relocations against the other
// objects' exported globals: every object's code is placed contiguously
// starting at address 0, and relocations are patched in place.
package link

import (
	"fmt"

	"rv32sim/asm"
	"rv32sim/core"
	"rv32sim/decode"
)

// Link concatenates objs' code sections in the order given, then resolves
// every relocation against the combined symbol table built from every
// object's Globals. The result is a flat byte slice ready to load at
// address 0.
func Link(objs []*asm.Object) ([]byte, error) {
	symbols := make(map[string]uint32)
	definedIn := make(map[string]string)

	base := make([]uint32, len(objs))
	offset := uint32(0)
	for i, obj := range objs {
		base[i] = offset
		offset += uint32(len(obj.Code))
	}

	for i, obj := range objs {
		for _, g := range obj.Globals {
			addr := base[i] + g.Value
			if prior, dup := definedIn[g.Name]; dup {
				return nil, &core.LinkError{
					Kind:   core.DuplicateGlobalSymbol,
					Symbol: g.Name,
					Msg:    fmt.Sprintf("defined in both %q and %q", prior, obj.Name),
				}
			}
			symbols[g.Name] = addr
			definedIn[g.Name] = obj.Name
		}
	}

	out := make([]byte, offset)
	for i, obj := range objs {
		copy(out[base[i]:], obj.Code)
	}

	for i, obj := range objs {
		for _, r := range obj.Relocations {
			target, ok := symbols[r.Symbol]
			if !ok {
				return nil, &core.LinkError{
					Kind:   core.UndefinedSymbol,
					Symbol: r.Symbol,
					Msg:    fmt.Sprintf("referenced by %q, defined nowhere", obj.Name),
				}
			}

			instrAddr := base[i] + r.Offset
			word := core.Word(out[instrAddr]) | core.Word(out[instrAddr+1])<<8 |
				core.Word(out[instrAddr+2])<<16 | core.Word(out[instrAddr+3])<<24

			patched, err := patchRelocation(word, r.Type, target, instrAddr)
			if err != nil {
				return nil, err
			}

			out[instrAddr] = byte(patched)
			out[instrAddr+1] = byte(patched >> 8)
			out[instrAddr+2] = byte(patched >> 16)
			out[instrAddr+3] = byte(patched >> 24)
		}
	}

	return out, nil
}

// patchRelocation re-decodes the placeholder word, substitutes the
// resolved immediate, and re-encodes — it never hand-pokes bit fields, so
// branch/jump relocations go through the same immediate packing tables as
// the assembler.
func patchRelocation(word core.Word, typ asm.RelocationType, target, instrAddr uint32) (core.Word, error) {
	if typ == asm.RelocAbsolute {
		// A bare .word data slot holding a symbol's address: no
		// instruction framing to preserve, overwrite outright.
		return core.Word(target), nil
	}

	d, err := decode.Decode(word)
	if err != nil {
		return 0, fmt.Errorf("link: relocation target at %#x is not a valid instruction: %w", instrAddr, err)
	}
	d.Imm = int32(target) - int32(instrAddr)
	return decode.Encode(d), nil
}
