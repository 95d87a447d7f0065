package asm

import (
	"encoding/binary"
	"fmt"
)

// RelocationType distinguishes how a relocation's value is computed once
// the symbol's final address is known.
type RelocationType uint8

const (
	// RelocAbsolute writes the symbol's final address directly.
	RelocAbsolute RelocationType = iota
	// RelocRelative writes (symbol address - instruction address), for
	// branch/JAL operands.
	RelocRelative
)

// Relocation records one place in Code that still needs a symbol's final
// address: the byte offset to patch, the symbol name, and how to compute
// the patched value.
type Relocation struct {
	Offset uint32
	Symbol string
	Type   RelocationType
}

// Symbol is a named address this object defines and exports.
type Symbol struct {
	Name  string
	Value uint32
}

// Object is one assembled translation unit: encoded bytes plus enough
// symbol/relocation metadata for the linker to combine several of these
// into one flat binary. Carries a single code section — no separate
// data/bss sections, no string table indirection.
type Object struct {
	Name        string
	Code        []byte
	Globals     []Symbol
	Externs     []string
	Relocations []Relocation
}

const objectMagic = "DULF"

// Encode serializes the object into the on-disk container format: a
// fixed header (magic, code length, and the global, extern, and
// relocation counts), then the code bytes, then the globals table, extern
// name table, and relocation table. Names are stored inline with a length
// prefix. All integers are little-endian.
func (o *Object) Encode() []byte {
	var buf []byte

	buf = append(buf, objectMagic...)
	buf = appendU32(buf, uint32(len(o.Code)))
	buf = appendU32(buf, uint32(len(o.Globals)))
	buf = appendU32(buf, uint32(len(o.Externs)))
	buf = appendU32(buf, uint32(len(o.Relocations)))

	buf = append(buf, o.Code...)

	for _, g := range o.Globals {
		buf = appendString(buf, g.Name)
		buf = appendU32(buf, g.Value)
	}
	for _, e := range o.Externs {
		buf = appendString(buf, e)
	}
	for _, r := range o.Relocations {
		buf = appendU32(buf, r.Offset)
		buf = appendString(buf, r.Symbol)
		buf = append(buf, byte(r.Type))
	}

	return buf
}

// Decode parses the container format Encode produces.
func Decode(data []byte) (*Object, error) {
	if len(data) < 20 || string(data[:4]) != objectMagic {
		return nil, fmt.Errorf("asm: not a DULF object file")
	}
	codeLen := binary.LittleEndian.Uint32(data[4:8])
	globalCount := binary.LittleEndian.Uint32(data[8:12])
	externCount := binary.LittleEndian.Uint32(data[12:16])
	relocCount := binary.LittleEndian.Uint32(data[16:20])

	r := reader{data: data, pos: 20}
	obj := &Object{}

	code, err := r.take(int(codeLen))
	if err != nil {
		return nil, err
	}
	obj.Code = code

	for i := uint32(0); i < globalCount; i++ {
		name, err := r.string()
		if err != nil {
			return nil, err
		}
		value, err := r.u32()
		if err != nil {
			return nil, err
		}
		obj.Globals = append(obj.Globals, Symbol{Name: name, Value: value})
	}
	for i := uint32(0); i < externCount; i++ {
		name, err := r.string()
		if err != nil {
			return nil, err
		}
		obj.Externs = append(obj.Externs, name)
	}
	for i := uint32(0); i < relocCount; i++ {
		offset, err := r.u32()
		if err != nil {
			return nil, err
		}
		symbol, err := r.string()
		if err != nil {
			return nil, err
		}
		typ, err := r.byte()
		if err != nil {
			return nil, err
		}
		obj.Relocations = append(obj.Relocations, Relocation{Offset: offset, Symbol: symbol, Type: RelocationType(typ)})
	}
	return obj, nil
}

func appendU32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendString(buf []byte, s string) []byte {
	buf = appendU32(buf, uint32(len(s)))
	return append(buf, s...)
}

type reader struct {
	data []byte
	pos  int
}

func (r *reader) take(n int) ([]byte, error) {
	if r.pos+n > len(r.data) {
		return nil, fmt.Errorf("asm: truncated object file")
	}
	out := r.data[r.pos : r.pos+n]
	r.pos += n
	return out, nil
}

func (r *reader) u32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *reader) byte() (byte, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) string() (string, error) {
	n, err := r.u32()
	if err != nil {
		return "", err
	}
	b, err := r.take(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}
