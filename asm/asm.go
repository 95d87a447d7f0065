// Package asm translates RV32I assembly text into encoded words, in two
// passes: label collection, then encoding. Handles all six instruction
// formats and their operand syntax (imm(reg) memory operands, labels
// resolved to PC-relative offsets for branches/JAL).
package asm

import (
	"fmt"
	"strings"

	"rv32sim/core"
	"rv32sim/decode"
)

type stmtKind int

const (
	stmtInstruction stmtKind = iota
	stmtWord
	stmtByte
	stmtGlobal
	stmtExtern
)

// statement is one line's worth of parsed-but-not-yet-encoded assembly: a
// label declaration, an instruction, or a directive.
type statement struct {
	lineNo   int
	label    string
	kind     stmtKind
	mnemonic string
	operands []string

	addr uint32 // filled in by pass 1
	size uint32 // bytes this statement occupies; 0 for pure labels/directives with no payload
}

// Info carries assembler state across both passes: the symbol table built
// in pass 1, and the global/extern visibility declared along the way.
type Info struct {
	symbols map[string]uint32
	globals map[string]bool
	externs map[string]bool
}

func newInfo() *Info {
	return &Info{
		symbols: make(map[string]uint32),
		globals: make(map[string]bool),
		externs: make(map[string]bool),
	}
}

// Assemble translates text into a sequence of bytes in program order.
// No partial program is ever returned: on error the returned byte slice
// is nil.
func Assemble(text string) ([]byte, error) {
	stmts, err := parseStatements(text)
	if err != nil {
		return nil, err
	}

	info := newInfo()
	if err := firstPass(info, stmts); err != nil {
		return nil, err
	}

	out, _, err := secondPass(info, stmts, false)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AssembleObject translates text the same way as Assemble, but tolerates
// references to symbols declared .extern (or simply undefined locally),
// emitting a Relocation for each one instead of failing with UnknownLabel.
// This is the entry point the linker drives.
func AssembleObject(name, text string) (*Object, error) {
	stmts, err := parseStatements(text)
	if err != nil {
		return nil, err
	}

	info := newInfo()
	if err := firstPass(info, stmts); err != nil {
		return nil, err
	}

	code, relocs, err := secondPass(info, stmts, true)
	if err != nil {
		return nil, err
	}

	obj := &Object{Name: name, Code: code, Relocations: relocs}
	for sym := range info.globals {
		addr, ok := info.symbols[sym]
		if !ok {
			return nil, &core.AssembleError{Kind: core.UnknownLabel, Msg: fmt.Sprintf(".global %s has no definition in this file", sym)}
		}
		obj.Globals = append(obj.Globals, Symbol{Name: sym, Value: addr})
	}
	for sym := range info.externs {
		obj.Externs = append(obj.Externs, sym)
	}
	return obj, nil
}

func parseStatements(text string) ([]*statement, error) {
	lines := strings.Split(text, "\n")
	stmts := make([]*statement, 0, len(lines))
	for i, raw := range lines {
		st, err := parseStatement(raw, i+1)
		if err != nil {
			return nil, err
		}
		if st != nil {
			stmts = append(stmts, st)
		}
	}
	return stmts, nil
}

func parseStatement(raw string, lineNo int) (*statement, error) {
	line := strings.TrimSpace(stripComment(raw))
	if line == "" {
		return nil, nil
	}

	label, rest, hasLabel := splitLabel(line)
	if hasLabel && !isIdentifier(label) {
		return nil, &core.AssembleError{Kind: core.SyntaxError, Line: lineNo, Msg: fmt.Sprintf("invalid label %q", label)}
	}
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return &statement{lineNo: lineNo, label: label, kind: stmtInstruction}, nil
	}

	head := rest
	tail := ""
	if idx := strings.IndexAny(rest, " \t"); idx >= 0 {
		head = rest[:idx]
		tail = rest[idx+1:]
	}
	operands := splitOperands(tail)

	if strings.HasPrefix(head, ".") {
		switch foldMnemonic(head) {
		case ".word":
			if len(operands) != 1 {
				return nil, operandCountErr(lineNo, head, 1, len(operands))
			}
			return &statement{lineNo: lineNo, label: label, kind: stmtWord, operands: operands}, nil
		case ".byte":
			if len(operands) != 1 {
				return nil, operandCountErr(lineNo, head, 1, len(operands))
			}
			return &statement{lineNo: lineNo, label: label, kind: stmtByte, operands: operands}, nil
		case ".global":
			if len(operands) != 1 || !isIdentifier(operands[0]) {
				return nil, &core.AssembleError{Kind: core.SyntaxError, Line: lineNo, Msg: ".global requires one label operand"}
			}
			return &statement{lineNo: lineNo, label: label, kind: stmtGlobal, operands: operands}, nil
		case ".extern":
			if len(operands) != 1 || !isIdentifier(operands[0]) {
				return nil, &core.AssembleError{Kind: core.SyntaxError, Line: lineNo, Msg: ".extern requires one label operand"}
			}
			return &statement{lineNo: lineNo, label: label, kind: stmtExtern, operands: operands}, nil
		default:
			return nil, &core.AssembleError{Kind: core.SyntaxError, Line: lineNo, Msg: fmt.Sprintf("unknown directive %q", head)}
		}
	}

	return &statement{lineNo: lineNo, label: label, kind: stmtInstruction, mnemonic: foldMnemonic(head), operands: operands}, nil
}

func operandCountErr(lineNo int, mnemonic string, want, got int) error {
	return &core.AssembleError{
		Kind: core.OperandCountMismatch,
		Line: lineNo,
		Msg:  fmt.Sprintf("%s expects %d operand(s), got %d", mnemonic, want, got),
	}
}

// firstPass assigns byte addresses to every statement and records labels.
func firstPass(info *Info, stmts []*statement) error {
	addr := uint32(0)
	for _, st := range stmts {
		st.size = statementSize(st)

		if st.label != "" {
			if _, dup := info.symbols[st.label]; dup {
				return &core.AssembleError{Kind: core.DuplicateLabel, Line: st.lineNo, Msg: fmt.Sprintf("label %q already defined", st.label)}
			}
			info.symbols[st.label] = addr
		}

		switch st.kind {
		case stmtGlobal:
			info.globals[st.operands[0]] = true
		case stmtExtern:
			info.externs[st.operands[0]] = true
		}

		st.addr = addr
		addr += st.size
	}
	return nil
}

func statementSize(st *statement) uint32 {
	switch st.kind {
	case stmtInstruction:
		if st.mnemonic == "" {
			return 0
		}
		return 4
	case stmtWord:
		return 4
	case stmtByte:
		return 1
	default:
		return 0
	}
}

// secondPass encodes every statement into bytes. When allowExternRefs is
// true, an operand naming a symbol this file never defines produces a
// Relocation instead of an UnknownLabel error — the caller is building an
// Object for the linker, and the symbol is expected to resolve elsewhere.
func secondPass(info *Info, stmts []*statement, allowExternRefs bool) ([]byte, []Relocation, error) {
	var out []byte
	var relocs []Relocation

	for _, st := range stmts {
		switch st.kind {
		case stmtInstruction:
			if st.mnemonic == "" {
				continue
			}
			word, unresolved, err := encodeInstruction(info, st, allowExternRefs)
			if err != nil {
				return nil, nil, err
			}
			if unresolved != "" {
				relocs = append(relocs, Relocation{
					Offset: st.addr,
					Symbol: unresolved,
					Type:   relocationTypeFor(st.mnemonic),
				})
			}
			out = appendWordLE(out, word)

		case stmtWord:
			value, unresolved, err := resolveOperand(info, st.operands[0], st.addr, false)
			if err != nil {
				return nil, nil, err
			}
			if unresolved != "" {
				if !allowExternRefs {
					return nil, nil, unknownLabelErr(st.lineNo, unresolved)
				}
				relocs = append(relocs, Relocation{Offset: st.addr, Symbol: unresolved, Type: RelocAbsolute})
			}
			out = appendWordLE(out, uint32(value))

		case stmtByte:
			value, err := parseImmediate(st.operands[0])
			if err != nil {
				return nil, nil, &core.AssembleError{Kind: core.SyntaxError, Line: st.lineNo, Msg: err.Error()}
			}
			out = append(out, byte(value))

		case stmtGlobal, stmtExtern:
			// no bytes emitted; handled in firstPass/AssembleObject.
		}
	}
	return out, relocs, nil
}

func relocationTypeFor(mnemonic string) RelocationType {
	switch mnemonic {
	case "jal", "beq", "bne", "blt", "bge", "bltu", "bgeu":
		return RelocRelative
	default:
		return RelocAbsolute
	}
}

func appendWordLE(out []byte, w uint32) []byte {
	return append(out, byte(w), byte(w>>8), byte(w>>16), byte(w>>24))
}

func unknownLabelErr(lineNo int, name string) error {
	return &core.AssembleError{Kind: core.UnknownLabel, Line: lineNo, Msg: fmt.Sprintf("undefined label %q", name)}
}

// resolveOperand interprets operand as either an integer literal or a
// label. If it's a defined label, absolute returns its address; relative
// (pcRelative=true) returns (label address - currentAddr). If it's an
// identifier with no definition, it is returned as the unresolved symbol
// name with no error, leaving the decision (fail, or emit a relocation) to
// the caller.
func resolveOperand(info *Info, operand string, currentAddr uint32, pcRelative bool) (int64, string, error) {
	if v, err := parseImmediate(operand); err == nil {
		return v, "", nil
	}
	if !isIdentifier(operand) {
		return 0, "", &core.AssembleError{Kind: core.SyntaxError, Msg: fmt.Sprintf("expected integer or label, got %q", operand)}
	}
	if addr, ok := info.symbols[operand]; ok {
		if pcRelative {
			return int64(addr) - int64(currentAddr), "", nil
		}
		return int64(addr), "", nil
	}
	return 0, operand, nil
}

func resolveRegister(lineNo int, name string) (int, error) {
	idx, ok := core.RegisterIndexByName(name)
	if !ok {
		return 0, &core.AssembleError{Kind: core.UnknownRegister, Line: lineNo, Msg: fmt.Sprintf("unknown register %q", name)}
	}
	return idx, nil
}

func checkRange(lineNo int, value int64, lo, hi int64, evenOnly bool, what string) error {
	if value < lo || value > hi || (evenOnly && value%2 != 0) {
		return &core.AssembleError{Kind: core.ImmediateOutOfRange, Line: lineNo, Msg: fmt.Sprintf("%s %d out of range [%d, %d]", what, value, lo, hi)}
	}
	return nil
}

// encodeInstruction parses st's operands for its mnemonic and encodes the
// resulting word. If an operand names a symbol this file doesn't define
// and allowExternRefs is set, the word is encoded with a zero placeholder
// in place of that operand and its name is returned as unresolved.
func encodeInstruction(info *Info, st *statement, allowExternRefs bool) (core.Word, string, error) {
	desc, ok := decode.DescByMnemonic(st.mnemonic)
	if !ok {
		return 0, "", &core.AssembleError{Kind: core.UnknownMnemonic, Line: st.lineNo, Msg: fmt.Sprintf("unknown mnemonic %q", st.mnemonic)}
	}

	ops := st.operands
	line := st.lineNo

	reg := func(s string) (int, error) { return resolveRegister(line, s) }

	switch desc.Op {
	case decode.ADD, decode.SUB, decode.SLL, decode.SLT, decode.SLTU,
		decode.XOR, decode.SRL, decode.SRA, decode.OR, decode.AND:
		if err := checkOperandCount(line, st.mnemonic, ops, 3); err != nil {
			return 0, "", err
		}
		rd, err := reg(ops[0])
		if err != nil {
			return 0, "", err
		}
		rs1, err := reg(ops[1])
		if err != nil {
			return 0, "", err
		}
		rs2, err := reg(ops[2])
		if err != nil {
			return 0, "", err
		}
		return encode(decode.Decoded{Op: desc.Op, Format: decode.FormatR, Rd: rd, Rs1: rs1, Rs2: rs2}), "", nil

	case decode.ADDI, decode.XORI, decode.ORI, decode.ANDI, decode.SLTI, decode.SLTIU:
		if err := checkOperandCount(line, st.mnemonic, ops, 3); err != nil {
			return 0, "", err
		}
		rd, err := reg(ops[0])
		if err != nil {
			return 0, "", err
		}
		rs1, err := reg(ops[1])
		if err != nil {
			return 0, "", err
		}
		imm, err := parseImmediate(ops[2])
		if err != nil {
			return 0, "", &core.AssembleError{Kind: core.SyntaxError, Line: line, Msg: err.Error()}
		}
		if err := checkRange(line, imm, -2048, 2047, false, "immediate"); err != nil {
			return 0, "", err
		}
		return encode(decode.Decoded{Op: desc.Op, Format: decode.FormatI, Rd: rd, Rs1: rs1, Imm: int32(imm)}), "", nil

	case decode.SLLI, decode.SRLI, decode.SRAI:
		if err := checkOperandCount(line, st.mnemonic, ops, 3); err != nil {
			return 0, "", err
		}
		rd, err := reg(ops[0])
		if err != nil {
			return 0, "", err
		}
		rs1, err := reg(ops[1])
		if err != nil {
			return 0, "", err
		}
		shamt, err := parseImmediate(ops[2])
		if err != nil {
			return 0, "", &core.AssembleError{Kind: core.SyntaxError, Line: line, Msg: err.Error()}
		}
		if err := checkRange(line, shamt, 0, 31, false, "shift amount"); err != nil {
			return 0, "", err
		}
		return encode(decode.Decoded{Op: desc.Op, Format: decode.FormatI, Rd: rd, Rs1: rs1, Imm: int32(shamt)}), "", nil

	case decode.LB, decode.LH, decode.LW, decode.LBU, decode.LHU:
		if err := checkOperandCount(line, st.mnemonic, ops, 2); err != nil {
			return 0, "", err
		}
		rd, err := reg(ops[0])
		if err != nil {
			return 0, "", err
		}
		imm, baseName, err := parseMemOperand(ops[1])
		if err != nil {
			return 0, "", &core.AssembleError{Kind: core.SyntaxError, Line: line, Msg: err.Error()}
		}
		rs1, err := reg(baseName)
		if err != nil {
			return 0, "", err
		}
		if err := checkRange(line, imm, -2048, 2047, false, "offset"); err != nil {
			return 0, "", err
		}
		return encode(decode.Decoded{Op: desc.Op, Format: decode.FormatI, Rd: rd, Rs1: rs1, Imm: int32(imm)}), "", nil

	case decode.SB, decode.SH, decode.SW:
		if err := checkOperandCount(line, st.mnemonic, ops, 2); err != nil {
			return 0, "", err
		}
		rs2, err := reg(ops[0])
		if err != nil {
			return 0, "", err
		}
		imm, baseName, err := parseMemOperand(ops[1])
		if err != nil {
			return 0, "", &core.AssembleError{Kind: core.SyntaxError, Line: line, Msg: err.Error()}
		}
		rs1, err := reg(baseName)
		if err != nil {
			return 0, "", err
		}
		if err := checkRange(line, imm, -2048, 2047, false, "offset"); err != nil {
			return 0, "", err
		}
		return encode(decode.Decoded{Op: desc.Op, Format: decode.FormatS, Rs1: rs1, Rs2: rs2, Imm: int32(imm)}), "", nil

	case decode.BEQ, decode.BNE, decode.BLT, decode.BGE, decode.BLTU, decode.BGEU:
		if err := checkOperandCount(line, st.mnemonic, ops, 3); err != nil {
			return 0, "", err
		}
		rs1, err := reg(ops[0])
		if err != nil {
			return 0, "", err
		}
		rs2, err := reg(ops[1])
		if err != nil {
			return 0, "", err
		}
		offset, unresolved, err := resolveOperand(info, ops[2], st.addr, true)
		if err != nil {
			return 0, "", err
		}
		if unresolved != "" {
			if !allowExternRefs {
				return 0, "", unknownLabelErr(line, unresolved)
			}
			return encode(decode.Decoded{Op: desc.Op, Format: decode.FormatB, Rs1: rs1, Rs2: rs2, Imm: 0}), unresolved, nil
		}
		if err := checkRange(line, offset, -4096, 4094, true, "branch offset"); err != nil {
			return 0, "", err
		}
		return encode(decode.Decoded{Op: desc.Op, Format: decode.FormatB, Rs1: rs1, Rs2: rs2, Imm: int32(offset)}), "", nil

	case decode.JAL:
		if err := checkOperandCount(line, st.mnemonic, ops, 2); err != nil {
			return 0, "", err
		}
		rd, err := reg(ops[0])
		if err != nil {
			return 0, "", err
		}
		offset, unresolved, err := resolveOperand(info, ops[1], st.addr, true)
		if err != nil {
			return 0, "", err
		}
		if unresolved != "" {
			if !allowExternRefs {
				return 0, "", unknownLabelErr(line, unresolved)
			}
			return encode(decode.Decoded{Op: decode.JAL, Format: decode.FormatJ, Rd: rd, Imm: 0}), unresolved, nil
		}
		if err := checkRange(line, offset, -1048576, 1048574, true, "jump offset"); err != nil {
			return 0, "", err
		}
		return encode(decode.Decoded{Op: decode.JAL, Format: decode.FormatJ, Rd: rd, Imm: int32(offset)}), "", nil

	case decode.JALR:
		if err := checkOperandCount(line, st.mnemonic, ops, 2); err != nil {
			return 0, "", err
		}
		rd, err := reg(ops[0])
		if err != nil {
			return 0, "", err
		}
		imm, baseName, err := parseMemOperand(ops[1])
		if err != nil {
			return 0, "", &core.AssembleError{Kind: core.SyntaxError, Line: line, Msg: err.Error()}
		}
		rs1, err := reg(baseName)
		if err != nil {
			return 0, "", err
		}
		if err := checkRange(line, imm, -2048, 2047, false, "offset"); err != nil {
			return 0, "", err
		}
		return encode(decode.Decoded{Op: decode.JALR, Format: decode.FormatI, Rd: rd, Rs1: rs1, Imm: int32(imm)}), "", nil

	case decode.LUI, decode.AUIPC:
		if err := checkOperandCount(line, st.mnemonic, ops, 2); err != nil {
			return 0, "", err
		}
		rd, err := reg(ops[0])
		if err != nil {
			return 0, "", err
		}
		imm20, err := parseImmediate(ops[1])
		if err != nil {
			return 0, "", &core.AssembleError{Kind: core.SyntaxError, Line: line, Msg: err.Error()}
		}
		if err := checkRange(line, imm20, -524288, 1048575, false, "upper immediate"); err != nil {
			return 0, "", err
		}
		// operand is the raw 20-bit upper field, not a full 32-bit constant;
		// shift it into position to match what the decoder hands back.
		return encode(decode.Decoded{Op: desc.Op, Format: decode.FormatU, Rd: rd, Imm: int32(imm20) << 12}), "", nil

	case decode.ECALL, decode.EBREAK:
		if err := checkOperandCount(line, st.mnemonic, ops, 0); err != nil {
			return 0, "", err
		}
		return encode(decode.Decoded{Op: desc.Op, Format: decode.FormatI}), "", nil

	default:
		return 0, "", &core.AssembleError{Kind: core.UnknownMnemonic, Line: line, Msg: fmt.Sprintf("assembler has no operand rule for %q", st.mnemonic)}
	}
}

func checkOperandCount(lineNo int, mnemonic string, ops []string, n int) error {
	if len(ops) != n {
		return operandCountErr(lineNo, mnemonic, n, len(ops))
	}
	return nil
}

func encode(d decode.Decoded) core.Word {
	return decode.Encode(d)
}
